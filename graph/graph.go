package graph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rlch/migsql"
)

// ErrNotResolved is returned by queries that need materialised edges.
var ErrNotResolved = errors.New("graph: not resolved")

// Graph maps item keys to items and tracks the dependency edges between them.
type Graph struct {
	items map[migsql.Key]*migsql.Item
	nodes map[migsql.Key]*node

	// deps holds lazily registered dependencies: child -> parents.
	deps map[migsql.Key]migsql.KeySet

	resolved bool
}

// node holds the resolved edges of one item.
type node struct {
	key      migsql.Key
	parents  []migsql.Key
	children []migsql.Key
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		items: make(map[migsql.Key]*migsql.Item),
		nodes: make(map[migsql.Key]*node),
		deps:  make(map[migsql.Key]migsql.KeySet),
	}
}

// AddNode inserts the item under key, replacing any previous item. Lazy
// dependencies registered for key are kept.
func (g *Graph) AddNode(key migsql.Key, item *migsql.Item) {
	g.items[key] = item
	g.nodes[key] = &node{key: key}
	g.resolved = false
}

// RemoveNode deletes the item under key. Removing a missing key is a no-op:
// a replayed state may lag behind the declarations it was recorded from.
func (g *Graph) RemoveNode(key migsql.Key) {
	if _, ok := g.items[key]; !ok {
		return
	}

	delete(g.items, key)
	delete(g.nodes, key)
	g.resolved = false
}

// AddLazyDependency records that child depends on parent. Neither has to
// exist until Resolve.
func (g *Graph) AddLazyDependency(child, parent migsql.Key) {
	parents, ok := g.deps[child]
	if !ok {
		parents = make(migsql.KeySet)
		g.deps[child] = parents
	}

	parents.Add(parent)
	g.resolved = false
}

// RemoveLazyDependency forgets a dependency recorded with AddLazyDependency.
// Unknown pairs are ignored.
func (g *Graph) RemoveLazyDependency(child, parent migsql.Key) {
	parents, ok := g.deps[child]
	if !ok {
		return
	}

	parents.Remove(parent)

	if len(parents) == 0 {
		delete(g.deps, child)
	}

	g.resolved = false
}

// RemoveLazyForChild forgets every dependency recorded for child.
func (g *Graph) RemoveLazyForChild(child migsql.Key) {
	if _, ok := g.deps[child]; !ok {
		return
	}

	delete(g.deps, child)
	g.resolved = false
}

// Resolve validates the lazy dependencies, materialises edges and checks the
// graph for cycles. It returns a *migsql.DanglingReferenceError when a
// registration names a missing item and a *migsql.CycleError when the edges
// form a cycle.
func (g *Graph) Resolve() error {
	g.resolved = false

	for key := range g.nodes {
		g.nodes[key] = &node{key: key}
	}

	children := make([]migsql.Key, 0, len(g.deps))
	for child := range g.deps {
		children = append(children, child)
	}

	for _, child := range migsql.SortKeys(children) {
		childNode, ok := g.nodes[child]
		if !ok {
			return &migsql.DanglingReferenceError{Namespace: child.Namespace, Child: child, Missing: child}
		}

		for _, parent := range g.deps[child].Sorted() {
			parentNode, ok := g.nodes[parent]
			if !ok {
				return &migsql.DanglingReferenceError{Namespace: child.Namespace, Child: child, Missing: parent}
			}

			childNode.parents = append(childNode.parents, parent)
			parentNode.children = append(parentNode.children, child)
		}
	}

	for _, n := range g.nodes {
		migsql.SortKeys(n.children)
	}

	if err := g.detectCycles(); err != nil {
		return err
	}

	g.resolved = true

	return nil
}

// Resolved reports whether edges reflect the current registrations.
func (g *Graph) Resolved() bool {
	return g.resolved
}

// Has reports whether the graph holds key.
func (g *Graph) Has(key migsql.Key) bool {
	_, ok := g.items[key]

	return ok
}

// Item returns the item stored under key.
func (g *Graph) Item(key migsql.Key) (*migsql.Item, bool) {
	item, ok := g.items[key]

	return item, ok
}

// Len returns the number of items.
func (g *Graph) Len() int {
	return len(g.items)
}

// Keys returns every key in key order.
func (g *Graph) Keys() []migsql.Key {
	keys := make([]migsql.Key, 0, len(g.items))
	for k := range g.items {
		keys = append(keys, k)
	}

	return migsql.SortKeys(keys)
}

// KeySet returns every key as a set.
func (g *Graph) KeySet() migsql.KeySet {
	s := make(migsql.KeySet, len(g.items))
	for k := range g.items {
		s.Add(k)
	}

	return s
}

// Dependencies returns the lazily registered parents of key in key order.
// Unlike Parents it does not need a resolved graph.
func (g *Graph) Dependencies(key migsql.Key) []migsql.Key {
	return g.deps[key].Sorted()
}

// DependencySet returns a copy of the lazily registered parents of key.
func (g *Graph) DependencySet(key migsql.Key) migsql.KeySet {
	return g.deps[key].Clone()
}

// Parents returns the items key directly depends on, in key order.
func (g *Graph) Parents(key migsql.Key) []migsql.Key {
	n, ok := g.nodes[key]
	if !ok {
		return nil
	}

	return append([]migsql.Key(nil), n.parents...)
}

// Children returns the items that directly depend on key, in key order.
func (g *Graph) Children(key migsql.Key) []migsql.Key {
	n, ok := g.nodes[key]
	if !ok {
		return nil
	}

	return append([]migsql.Key(nil), n.children...)
}

// Clone returns an unresolved deep copy of the graph.
func (g *Graph) Clone() *Graph {
	out := New()

	for k, item := range g.items {
		out.AddNode(k, item.Clone())
	}

	for child, parents := range g.deps {
		out.deps[child] = parents.Clone()
	}

	return out
}

// Build creates and resolves a graph from declarations grouped by namespace.
// Item dependencies are registered lazily so items may be declared in any
// order and across namespaces.
func Build(decls map[string][]migsql.Item) (*Graph, error) {
	g := New()

	namespaces := make([]string, 0, len(decls))
	for ns := range decls {
		namespaces = append(namespaces, ns)
	}

	slices.Sort(namespaces)

	for _, ns := range namespaces {
		if err := migsql.ValidateNamespace(ns); err != nil {
			return nil, fmt.Errorf("graph: %w", err)
		}

		for i := range decls[ns] {
			item := decls[ns][i]
			key := migsql.K(ns, item.Name)

			if g.Has(key) {
				return nil, fmt.Errorf("graph: duplicate item %s", key)
			}

			g.AddNode(key, &item)

			for _, dep := range item.Dependencies {
				g.AddLazyDependency(key, dep)
			}
		}
	}

	if err := g.Resolve(); err != nil {
		return nil, err
	}

	return g, nil
}
