package declare

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/rlch/migsql"
)

// hclFile is the layout of a *.sql.hcl declaration file:
//
//	item "top_books" {
//	  sql          = "CREATE VIEW top_books AS ..."
//	  reverse_sql  = ["DROP VIEW top_books", ["SELECT log($1)", ["dropped"]]]
//	  dependencies = ["book", "library.author"]
//	  replace      = true
//	}
type hclFile struct {
	Items []hclItem `hcl:"item,block"`
}

type hclItem struct {
	Name         string    `hcl:"name,label"`
	SQL          cty.Value `hcl:"sql"`
	ReverseSQL   cty.Value `hcl:"reverse_sql,optional"`
	Dependencies []string  `hcl:"dependencies,optional"`
	Replace      bool      `hcl:"replace,optional"`
}

func decodeHCL(path string, data []byte) ([]rawItem, error) {
	parser := hclparse.NewParser()

	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing hcl: %w", diags)
	}

	var root hclFile

	diags = gohcl.DecodeBody(file.Body, nil, &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("decoding hcl: %w", diags)
	}

	out := make([]rawItem, 0, len(root.Items))

	for _, it := range root.Items {
		sql, err := sqlFromCty(it.SQL)
		if err != nil {
			return nil, fmt.Errorf("item %q: sql: %w", it.Name, err)
		}

		reverse, err := sqlFromCty(it.ReverseSQL)
		if err != nil {
			return nil, fmt.Errorf("item %q: reverse_sql: %w", it.Name, err)
		}

		out = append(out, rawItem{
			Name:         it.Name,
			SQL:          sql,
			ReverseSQL:   reverse,
			Dependencies: it.Dependencies,
			Replace:      it.Replace,
		})
	}

	return out, nil
}

func sqlFromCty(v cty.Value) (migsql.SQL, error) {
	native, err := ctyToNative(v)
	if err != nil {
		return nil, err
	}

	return migsql.ParseSQL(native)
}

// ctyToNative converts v into the shapes migsql.ParseSQL understands.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}

	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}

	ty := v.Type()

	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}

		f, _ := bf.Float64()

		return f, nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())

		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()

			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}

			out = append(out, native)
		}

		return out, nil
	case ty.IsMapType() || ty.IsObjectType():
		out := make(map[string]any, v.LengthInt())

		for it := v.ElementIterator(); it.Next(); {
			k, elem := it.Element()

			native, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", k.AsString(), err)
			}

			out[k.AsString()] = native
		}

		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value of type %s", ty.FriendlyName())
	}
}
