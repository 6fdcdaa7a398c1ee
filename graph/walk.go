package graph

import (
	"slices"

	"github.com/rlch/migsql"
)

// Ancestors returns key and everything it transitively depends on, ordered
// root-first and ending with key itself. Every key appears after all of its
// own ancestors. It returns nil for unknown keys.
func (g *Graph) Ancestors(key migsql.Key) []migsql.Key {
	return g.postOrder(key, func(n *node) []migsql.Key { return n.parents })
}

// Descendants returns key and everything that transitively depends on it,
// starting with key itself and ordered toward the leaves. Every key appears
// before all of its own descendants. It returns nil for unknown keys.
func (g *Graph) Descendants(key migsql.Key) []migsql.Key {
	out := g.postOrder(key, func(n *node) []migsql.Key { return n.children })
	slices.Reverse(out)

	return out
}

// postOrder walks the edges returned by next from key without recursion and
// returns the keys in post-order: each key follows everything reachable from
// it, and start comes last.
func (g *Graph) postOrder(start migsql.Key, next func(*node) []migsql.Key) []migsql.Key {
	root, ok := g.nodes[start]
	if !ok {
		return nil
	}

	type frame struct {
		n   *node
		pos int
	}

	var out []migsql.Key

	visited := migsql.NewKeySet(start)
	stack := []frame{{n: root}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		edges := next(top.n)

		if top.pos < len(edges) {
			k := edges[top.pos]
			top.pos++

			if visited.Has(k) {
				continue
			}

			visited.Add(k)
			stack = append(stack, frame{n: g.nodes[k]})

			continue
		}

		out = append(out, top.n.key)
		stack = stack[:len(stack)-1]
	}

	return out
}

// TopologicalOrder returns every key root-first: each key comes after all of
// its parents. Among keys whose parents are all placed, the smallest key by
// migsql.Key.Compare goes first.
func (g *Graph) TopologicalOrder() ([]migsql.Key, error) {
	if !g.resolved {
		return nil, ErrNotResolved
	}

	pending := make(map[migsql.Key]int, len(g.nodes))

	var ready []migsql.Key

	for k, n := range g.nodes {
		pending[k] = len(n.parents)
		if len(n.parents) == 0 {
			ready = append(ready, k)
		}
	}

	migsql.SortKeys(ready)

	order := make([]migsql.Key, 0, len(g.nodes))

	for len(ready) > 0 {
		k := ready[0]
		ready = ready[1:]
		order = append(order, k)

		for _, child := range g.nodes[k].children {
			pending[child]--
			if pending[child] == 0 {
				i, _ := slices.BinarySearchFunc(ready, child, migsql.Key.Compare)
				ready = slices.Insert(ready, i, child)
			}
		}
	}

	if len(order) != len(g.nodes) {
		// Resolve rejects cycles, so this only happens if the graph was
		// modified behind our back.
		return nil, g.detectCycles()
	}

	return order, nil
}
