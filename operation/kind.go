// Package operation defines the operations a migration is made of and how
// each one changes the recorded item state.
package operation

import (
	"fmt"

	"github.com/rlch/migsql"
)

// Kind identifies what an operation does.
type Kind int

// Operation kinds.
const (
	// Create creates a new item.
	Create Kind = iota + 1
	// Alter applies the new forward SQL of a changed item.
	Alter
	// ReverseAlter drops the previous version of a changed item by running
	// its old reverse SQL.
	ReverseAlter
	// Delete drops an item that is no longer declared.
	Delete
	// AlterDependenciesOnly updates the declared dependencies of an item
	// without touching the database.
	AlterDependenciesOnly
)

var kindNames = map[Kind]string{
	Create:                "Create",
	Alter:                 "Alter",
	ReverseAlter:          "ReverseAlter",
	Delete:                "Delete",
	AlterDependenciesOnly: "AlterDependenciesOnly",
}

// Kinds lists every kind in declaration order.
var Kinds = []Kind{Create, Alter, ReverseAlter, Delete, AlterDependenciesOnly}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind returns the kind named s.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", migsql.ErrUnknownKind, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("%w: %d", migsql.ErrUnknownKind, int(k))
	}

	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}

	*k = parsed

	return nil
}

// TouchesDatabase reports whether operations of this kind run SQL.
// AlterDependenciesOnly only changes recorded state.
func (k Kind) TouchesDatabase() bool {
	return k != AlterDependenciesOnly
}
