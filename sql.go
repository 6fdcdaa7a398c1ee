package migsql

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

// Statement is one executable SQL statement with optional bound parameters.
// Nil and empty Params both mean the statement takes no parameters.
type Statement struct {
	Query  string
	Params []any
}

// SQL is an ordered list of statements. A bare string is the one-statement,
// parameter-less form; the two representations compare equal.
type SQL []Statement

// Raw returns SQL holding a single statement without parameters.
func Raw(query string) SQL {
	return SQL{{Query: query}}
}

// Stmt returns SQL holding a single statement with params.
func Stmt(query string, params ...any) SQL {
	return SQL{{Query: query, Params: normalizeParams(params)}}
}

// IsNoop reports whether executing s would do nothing: there are no
// statements, or every statement is empty and has no parameters.
func (s SQL) IsNoop() bool {
	for _, st := range s {
		if strings.TrimSpace(st.Query) != "" || len(st.Params) > 0 {
			return false
		}
	}

	return true
}

// Clone returns a deep copy of s.
func (s SQL) Clone() SQL {
	if s == nil {
		return nil
	}

	out := make(SQL, len(s))
	for i, st := range s {
		out[i] = Statement{Query: st.Query, Params: normalizeParams(st.Params)}
	}

	return out
}

// String joins the statement queries with ";\n". Parameters are not
// interpolated.
func (s SQL) String() string {
	parts := make([]string, 0, len(s))
	for _, st := range s {
		if len(st.Params) == 0 {
			parts = append(parts, st.Query)
			continue
		}

		parts = append(parts, fmt.Sprintf("%s -- params: %v", st.Query, st.Params))
	}

	return strings.Join(parts, ";\n")
}

// EqualSQL reports whether a and b describe the same statements: same length,
// and pairwise the same query text and the same parameters, in order.
// A statement with nil params equals one with empty params. Params are opaque
// and compared deeply, unexported struct fields included.
func EqualSQL(a, b SQL) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i].Query != b[i].Query {
			return false
		}

		if len(a[i].Params) == 0 && len(b[i].Params) == 0 {
			continue
		}

		if !cmp.Equal(normalizeParams(a[i].Params), normalizeParams(b[i].Params), paramsExporter) {
			return false
		}
	}

	return true
}

var paramsExporter = cmp.Exporter(func(reflect.Type) bool { return true })

// ParseSQL converts a loosely typed payload, as decoded from YAML, JSON or
// HCL, into SQL. Accepted shapes are nil, a string, or a list whose elements
// are either strings or two-element [query, params] lists. Params may be a
// list or nil.
func ParseSQL(v any) (SQL, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case SQL:
		return t.Clone(), nil
	case string:
		return Raw(t), nil
	case []string:
		out := make(SQL, 0, len(t))
		for _, q := range t {
			out = append(out, Statement{Query: q})
		}

		return out, nil
	case []any:
		out := make(SQL, 0, len(t))
		for i, elem := range t {
			st, err := parseStatement(elem)
			if err != nil {
				return nil, fmt.Errorf("statement %d: %w", i, err)
			}

			out = append(out, st)
		}

		return out, nil
	default:
		return nil, fmt.Errorf("%w: unexpected %T", ErrMalformedSQL, v)
	}
}

func parseStatement(v any) (Statement, error) {
	switch t := v.(type) {
	case string:
		return Statement{Query: t}, nil
	case []any:
		if len(t) != 2 {
			return Statement{}, fmt.Errorf("%w: expected a 2-tuple but got %d", ErrMalformedSQL, len(t))
		}

		query, ok := t[0].(string)
		if !ok {
			return Statement{}, fmt.Errorf("%w: query must be a string, got %T", ErrMalformedSQL, t[0])
		}

		switch p := t[1].(type) {
		case nil:
			return Statement{Query: query}, nil
		case []any:
			return Statement{Query: query, Params: normalizeParams(p)}, nil
		default:
			return Statement{}, fmt.Errorf("%w: params must be a list, got %T", ErrMalformedSQL, t[1])
		}
	default:
		return Statement{}, fmt.Errorf("%w: unexpected statement %T", ErrMalformedSQL, v)
	}
}

// normalizeParams folds numeric types so payloads decoded by different codecs
// compare equal: integers and integral floats become int64, other floats
// float64.
func normalizeParams(params []any) []any {
	if params == nil {
		return nil
	}

	out := make([]any, len(params))
	for i, p := range params {
		out[i] = normalizeValue(p)
	}

	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint:
		if t <= math.MaxInt64 {
			return int64(t)
		}

		return t
	case uint64:
		if t <= math.MaxInt64 {
			return int64(t)
		}

		return t
	case float32:
		return normalizeValue(float64(t))
	case float64:
		if t == math.Trunc(t) && t >= math.MinInt64 && t <= math.MaxInt64 {
			return int64(t)
		}

		return t
	case []any:
		return normalizeParams(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeValue(e)
		}

		return out
	default:
		return v
	}
}

// MarshalYAML emits the most compact equivalent form: a string for a single
// parameter-less statement, otherwise a list of strings and [query, params]
// pairs.
func (s SQL) MarshalYAML() (any, error) {
	if len(s) == 0 {
		return nil, nil
	}

	if len(s) == 1 && len(s[0].Params) == 0 {
		return s[0].Query, nil
	}

	out := make([]any, 0, len(s))
	for _, st := range s {
		if len(st.Params) == 0 {
			out = append(out, st.Query)
			continue
		}

		out = append(out, []any{st.Query, st.Params})
	}

	return out, nil
}

// UnmarshalYAML accepts every shape ParseSQL does.
func (s *SQL) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}

	parsed, err := ParseSQL(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}

	*s = parsed

	return nil
}

// MarshalJSON uses the same compact form as MarshalYAML.
func (s SQL) MarshalJSON() ([]byte, error) {
	v, err := s.MarshalYAML()
	if err != nil {
		return nil, err
	}

	return json.Marshal(v)
}

// UnmarshalJSON accepts every shape ParseSQL does.
func (s *SQL) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := ParseSQL(raw)
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}
