package migsql

import "slices"

// Item is one named unit of raw SQL: a function, type, trigger or index.
type Item struct {
	// Name is unique within the owning namespace; other items refer to it.
	Name string

	// SQL creates the entity.
	SQL SQL

	// ReverseSQL destroys the entity. Empty means the item cannot be rolled
	// back.
	ReverseSQL SQL

	// Dependencies lists the items that must exist before this one is
	// created. Order does not matter.
	Dependencies []Key

	// Replace marks SQL as replacing a previous version in place (for example
	// CREATE OR REPLACE FUNCTION). A changed replace item gets a single alter
	// instead of a drop followed by a create.
	Replace bool
}

// Clone returns a deep copy of the item.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}

	return &Item{
		Name:         it.Name,
		SQL:          it.SQL.Clone(),
		ReverseSQL:   it.ReverseSQL.Clone(),
		Dependencies: slices.Clone(it.Dependencies),
		Replace:      it.Replace,
	}
}
