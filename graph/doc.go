// Package graph holds the dependency graph of SQL items.
//
// A Graph is filled in two phases. Items are added with AddNode and their
// dependencies are registered lazily with AddLazyDependency, in any order and
// without the parent having to exist yet. Resolve then validates every
// registration, materialises parent/child edges and rejects cycles. Queries
// over edges (Parents, Children, Ancestors, Descendants, TopologicalOrder)
// are only meaningful on a resolved graph; any mutation marks the graph
// unresolved again.
//
// Edges point from a child to the parents it depends on. Parents must be
// created before their children and dropped after them.
//
// A Graph is not safe for concurrent use.
package graph
