package migsql

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors.
var (
	// ErrConfigNotFound is returned when no .migsql.yaml is found.
	ErrConfigNotFound = errors.New("migsql: no .migsql.yaml found")

	// ErrInvalidKey is returned for item references that cannot be parsed.
	ErrInvalidKey = errors.New("migsql: invalid item key")

	// ErrDanglingReference is returned when a dependency names an item that
	// does not exist in the graph being resolved.
	ErrDanglingReference = errors.New("migsql: dangling reference")

	// ErrCircularDependency is returned when the resolved graph has a cycle.
	ErrCircularDependency = errors.New("migsql: circular dependency")

	// ErrMalformedSQL is returned for SQL payloads of the wrong shape.
	ErrMalformedSQL = errors.New("migsql: malformed SQL payload")

	// ErrNodeNotFound is returned by strict state replay when an operation
	// targets an item the state does not hold.
	ErrNodeNotFound = errors.New("migsql: node not found")

	// ErrUnknownKind is returned when decoding an unrecognised operation kind.
	ErrUnknownKind = errors.New("migsql: unknown operation kind")
)

// DanglingReferenceError reports a dependency edge to a missing item.
type DanglingReferenceError struct {
	// Namespace owns the item that declared the dependency.
	Namespace string
	// Child is the item declaring the dependency.
	Child Key
	// Missing is the key that could not be found. It equals Child when the
	// declaring item itself is absent.
	Missing Key
}

func (e *DanglingReferenceError) Error() string {
	role := "parent"
	if e.Missing == e.Child {
		role = "child"
	}

	return fmt.Sprintf("namespace %s dependencies reference nonexistent %s node %s", e.Namespace, role, e.Missing)
}

func (e *DanglingReferenceError) Unwrap() error {
	return ErrDanglingReference
}

// CycleError reports a dependency cycle. Each key in Cycle depends on the
// next one, and the last depends on the first.
type CycleError struct {
	Cycle []Key
}

func (e *CycleError) Error() string {
	names := make([]string, len(e.Cycle))
	for i, k := range e.Cycle {
		names[i] = k.String()
	}

	return "cyclic dependency: " + strings.Join(names, " -> ")
}

func (e *CycleError) Unwrap() error {
	return ErrCircularDependency
}
