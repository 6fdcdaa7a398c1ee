package graph

import "github.com/rlch/migsql"

// detectCycles walks every node along its parent edges with an explicit
// stack. A parent found on the current path closes a cycle, reported from
// that parent to the top of the stack. Each node and edge is visited once.
func (g *Graph) detectCycles() error {
	todo := make(migsql.KeySet, len(g.nodes))
	for k := range g.nodes {
		todo.Add(k)
	}

	type frame struct {
		key migsql.Key
		pos int
	}

	for _, start := range todo.Sorted() {
		if !todo.Has(start) {
			continue
		}

		todo.Remove(start)

		stack := []frame{{key: start}}
		onStack := map[migsql.Key]int{start: 0}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			parents := g.nodes[top.key].parents

			if top.pos < len(parents) {
				parent := parents[top.pos]
				top.pos++

				if idx, ok := onStack[parent]; ok {
					cycle := make([]migsql.Key, 0, len(stack)-idx)
					for _, f := range stack[idx:] {
						cycle = append(cycle, f.key)
					}

					return &migsql.CycleError{Cycle: cycle}
				}

				if todo.Has(parent) {
					todo.Remove(parent)
					onStack[parent] = len(stack)
					stack = append(stack, frame{key: parent})
				}

				continue
			}

			delete(onStack, top.key)
			stack = stack[:len(stack)-1]
		}
	}

	return nil
}
