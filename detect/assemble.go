package detect

import (
	"fmt"
	"slices"

	"github.com/rlch/migsql"
	"github.com/rlch/migsql/graph"
)

// Assemble orders primary and resolve keys of the resolved graph g so that
// every key precedes all of its ancestors: leaves first, roots last.
//
// resolve holds changed keys. Unless an item is marked Replace, everything
// that transitively depends on it has to be dropped and rebuilt with it, so
// those descendants are pulled into the result and added to resolve. The
// caller sees the expanded set.
func Assemble(primary, resolve migsql.KeySet, g *graph.Graph) ([]migsql.Key, error) {
	if !g.Resolved() {
		return nil, graph.ErrNotResolved
	}

	candidates := primary.Union(resolve)

	for _, k := range resolve.Sorted() {
		item, ok := g.Item(k)
		if !ok {
			return nil, fmt.Errorf("assemble %s: %w", k, migsql.ErrNodeNotFound)
		}

		if item.Replace {
			continue
		}

		for _, desc := range g.Descendants(k)[1:] {
			if candidates.Has(desc) {
				continue
			}

			candidates.Add(desc)
			resolve.Add(desc)
		}
	}

	for k := range candidates {
		if !g.Has(k) {
			return nil, fmt.Errorf("assemble %s: %w", k, migsql.ErrNodeNotFound)
		}
	}

	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	result := make([]migsql.Key, 0, len(candidates))

	// Visiting root-first means ancestors are always placed before their
	// descendants get inserted in front of them.
	for _, k := range order {
		if !candidates.Has(k) {
			continue
		}

		ancestors := g.Ancestors(k)
		ancestors = ancestors[:len(ancestors)-1]

		pos := len(result)
		if len(ancestors) > 0 {
			set := migsql.NewKeySet(ancestors...)
			if i := slices.IndexFunc(result, set.Has); i >= 0 {
				pos = i
			}
		}

		result = slices.Insert(result, pos, k)
	}

	return result, nil
}
