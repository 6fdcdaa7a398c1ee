package report

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/rlch/migsql/operation"
)

// Filter selects operations with a boolean expr-lang expression such as
//
//	kind == "Delete" || namespace == "library"
//
// The expression sees the variables kind, key, namespace, name, sql,
// reverse_sql, replace, dependencies and runs_sql. runs_sql is false for
// operations that only change recorded state.
type Filter struct {
	source  string
	program *vm.Program
}

// filterEnv returns the environment of op, or a representative one for
// compilation when op is nil.
func filterEnv(op *operation.Operation) map[string]any {
	if op == nil {
		return map[string]any{
			"kind":         "",
			"key":          "",
			"namespace":    "",
			"name":         "",
			"sql":          "",
			"reverse_sql":  "",
			"replace":      false,
			"dependencies": []string{},
			"runs_sql":     false,
		}
	}

	deps := make([]string, 0, len(op.Dependencies)+len(op.AddDependencies))
	for _, k := range op.Dependencies {
		deps = append(deps, k.String())
	}

	for _, k := range op.AddDependencies {
		deps = append(deps, k.String())
	}

	return map[string]any{
		"kind":         op.Kind.String(),
		"key":          op.Key.String(),
		"namespace":    op.Key.Namespace,
		"name":         op.Key.Name,
		"sql":          op.SQL.String(),
		"reverse_sql":  op.ReverseSQL.String(),
		"replace":      op.Replace,
		"dependencies": deps,
		"runs_sql":     op.Kind.TouchesDatabase(),
	}
}

// CompileFilter compiles source. An empty source yields a nil filter, which
// matches everything.
func CompileFilter(source string) (*Filter, error) {
	if strings.TrimSpace(source) == "" {
		return nil, nil
	}

	program, err := expr.Compile(source, expr.Env(filterEnv(nil)), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", source, err)
	}

	return &Filter{source: source, program: program}, nil
}

// String returns the filter source.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}

	return f.source
}

// Match reports whether op satisfies the filter.
func (f *Filter) Match(op *operation.Operation) (bool, error) {
	if f == nil {
		return true, nil
	}

	out, err := expr.Run(f.program, filterEnv(op))
	if err != nil {
		return false, fmt.Errorf("evaluating filter on %s: %w", op.Key, err)
	}

	matched, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("filter %q returned %T, not bool", f.source, out)
	}

	return matched, nil
}

// Apply returns the operations that match, in order. The references of the
// returned operations may point at operations that were filtered out.
func (f *Filter) Apply(ops []*operation.Operation) ([]*operation.Operation, error) {
	if f == nil {
		return ops, nil
	}

	var out []*operation.Operation

	for _, op := range ops {
		ok, err := f.Match(op)
		if err != nil {
			return nil, err
		}

		if ok {
			out = append(out, op)
		}
	}

	return out, nil
}
