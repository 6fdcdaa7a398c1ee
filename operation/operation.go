package operation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rlch/migsql"
	"github.com/rlch/migsql/graph"
)

// ErrBrokenChain is returned by VerifyChain.
var ErrBrokenChain = errors.New("operation: broken dependency chain")

// Ref ties an operation to one of the items it must follow. Operation is the
// last operation emitted for Key before the referencing one, or nil when
// nothing touched Key earlier in the same plan; the item then predates the
// plan and the dependency is already satisfied.
type Ref struct {
	Key       migsql.Key
	Operation *Operation
}

// Satisfied reports whether the reference points at no operation.
func (r Ref) Satisfied() bool {
	return r.Operation == nil
}

// Operation is one step of a migration.
type Operation struct {
	Kind Kind
	Key  migsql.Key

	// SQL is executed when migrating forward.
	SQL migsql.SQL
	// ReverseSQL is executed when migrating backward. Empty means the step
	// cannot be reversed.
	ReverseSQL migsql.SQL

	// Replace marks an Alter of a replace-in-place item. ReverseSQL then
	// holds the previous forward SQL and StateReverseSQL the reverse SQL
	// recorded in state.
	Replace         bool
	StateReverseSQL migsql.SQL

	// Dependencies are the declared dependencies of a created item.
	Dependencies []migsql.Key

	// AddDependencies and RemoveDependencies carry the edge changes of an
	// AlterDependenciesOnly operation.
	AddDependencies    []migsql.Key
	RemoveDependencies []migsql.Key

	// DependsOn lists the operations this one must run after.
	DependsOn []Ref
}

// Describe returns a one-line human description.
func (o *Operation) Describe() string {
	switch o.Kind {
	case Create:
		return fmt.Sprintf("Create SQL item %s", o.Key)
	case Alter:
		if o.Replace {
			return fmt.Sprintf("Replace SQL item %s", o.Key)
		}

		return fmt.Sprintf("Alter SQL item %s", o.Key)
	case ReverseAlter:
		return fmt.Sprintf("Reverse SQL item %s", o.Key)
	case Delete:
		return fmt.Sprintf("Delete SQL item %s", o.Key)
	case AlterDependenciesOnly:
		var parts []string
		if len(o.AddDependencies) > 0 {
			parts = append(parts, "+"+joinKeys(o.AddDependencies))
		}

		if len(o.RemoveDependencies) > 0 {
			parts = append(parts, "-"+joinKeys(o.RemoveDependencies))
		}

		return fmt.Sprintf("Alter SQL state %s (%s)", o.Key, strings.Join(parts, " "))
	default:
		return fmt.Sprintf("%s %s", o.Kind, o.Key)
	}
}

func joinKeys(keys []migsql.Key) string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}

	return strings.Join(names, ",")
}

// Apply mutates state the way running o forward changes the recorded items.
//
// Alter and AlterDependenciesOnly need the target item in state. When it is
// missing they do nothing unless strict is set, in which case an error
// wrapping migsql.ErrNodeNotFound is returned. The same holds for Delete.
func (o *Operation) Apply(state *graph.Graph, strict bool) error {
	switch o.Kind {
	case Create:
		state.AddNode(o.Key, &migsql.Item{
			Name:         o.Key.Name,
			SQL:          o.SQL.Clone(),
			ReverseSQL:   o.ReverseSQL.Clone(),
			Dependencies: append([]migsql.Key(nil), o.Dependencies...),
		})

		for _, dep := range o.Dependencies {
			state.AddLazyDependency(o.Key, dep)
		}
	case Alter:
		current, ok := state.Item(o.Key)
		if !ok {
			return missing(o, strict)
		}

		next := current.Clone()
		next.SQL = o.SQL.Clone()

		if o.Replace {
			next.ReverseSQL = o.StateReverseSQL.Clone()
		} else {
			next.ReverseSQL = o.ReverseSQL.Clone()
		}

		state.AddNode(o.Key, next)
	case ReverseAlter:
		// The item is recreated by the Alter that follows.
	case Delete:
		if !state.Has(o.Key) {
			if err := missing(o, strict); err != nil {
				return err
			}
		}

		state.RemoveNode(o.Key)
		state.RemoveLazyForChild(o.Key)
	case AlterDependenciesOnly:
		current, ok := state.Item(o.Key)
		if !ok {
			return missing(o, strict)
		}

		for _, dep := range o.AddDependencies {
			state.AddLazyDependency(o.Key, dep)
		}

		for _, dep := range o.RemoveDependencies {
			state.RemoveLazyDependency(o.Key, dep)
		}

		next := current.Clone()
		next.Dependencies = state.Dependencies(o.Key)
		state.AddNode(o.Key, next)
	default:
		return fmt.Errorf("%w: %d", migsql.ErrUnknownKind, int(o.Kind))
	}

	return nil
}

// missing handles an operation whose target item is absent from state.
// The CLI does not always carry state between invocations, so by default this
// is tolerated.
func missing(o *Operation, strict bool) error {
	if !strict {
		return nil
	}

	return fmt.Errorf("%s %s: %w", o.Kind, o.Key, migsql.ErrNodeNotFound)
}

// VerifyChain checks that every reference in ops points at an earlier
// operation of the list targeting the referenced key.
func VerifyChain(ops []*Operation) error {
	pos := make(map[*Operation]int, len(ops))

	for i, op := range ops {
		for _, ref := range op.DependsOn {
			if ref.Operation == nil {
				continue
			}

			j, ok := pos[ref.Operation]
			if !ok {
				return fmt.Errorf("%w: operation %d (%s) follows an operation that does not precede it", ErrBrokenChain, i, op.Describe())
			}

			if ref.Operation.Key != ref.Key {
				return fmt.Errorf("%w: operation %d references %s through operation %d on %s",
					ErrBrokenChain, i, ref.Key, j, ref.Operation.Key)
			}
		}

		pos[op] = i
	}

	return nil
}
