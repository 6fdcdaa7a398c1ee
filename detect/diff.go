package detect

import (
	"slices"

	"github.com/rlch/migsql"
	"github.com/rlch/migsql/graph"
)

// DependencyChange records how the declared dependencies of an item present
// in both snapshots differ.
type DependencyChange struct {
	Key     migsql.Key
	Removed []migsql.Key
	Added   []migsql.Key
}

// Changes is the raw difference between two snapshots.
type Changes struct {
	Added   migsql.KeySet
	Removed migsql.KeySet
	// Changed holds keys present in both snapshots whose forward SQL differs.
	Changed migsql.KeySet
	// Dependencies is sorted by key.
	Dependencies []DependencyChange
}

// Empty reports whether there is nothing to migrate.
func (c *Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 &&
		len(c.Changed) == 0 && len(c.Dependencies) == 0
}

// Diff compares the from and to snapshots. Neither graph needs to be
// resolved; dependency changes are computed from declared dependencies.
func Diff(from, to *graph.Graph) *Changes {
	fromKeys := from.KeySet()
	toKeys := to.KeySet()

	changes := &Changes{
		Added:   toKeys.Difference(fromKeys),
		Removed: fromKeys.Difference(toKeys),
		Changed: make(migsql.KeySet),
	}

	for _, k := range fromKeys.Intersect(toKeys).Sorted() {
		oldItem, _ := from.Item(k)
		newItem, _ := to.Item(k)

		if !migsql.EqualSQL(oldItem.SQL, newItem.SQL) {
			changes.Changed.Add(k)
		}

		oldDeps := from.DependencySet(k)
		newDeps := to.DependencySet(k)

		removed := oldDeps.Difference(newDeps)
		added := newDeps.Difference(oldDeps)

		if len(removed) == 0 && len(added) == 0 {
			continue
		}

		changes.Dependencies = append(changes.Dependencies, DependencyChange{
			Key:     k,
			Removed: nilIfEmpty(removed.Sorted()),
			Added:   nilIfEmpty(added.Sorted()),
		})
	}

	return changes
}

func nilIfEmpty(keys []migsql.Key) []migsql.Key {
	if len(keys) == 0 {
		return nil
	}

	return slices.Clip(keys)
}
