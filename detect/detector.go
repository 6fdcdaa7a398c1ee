// Package detect computes the operations that move a set of SQL items from
// one snapshot to another.
package detect

import (
	"slices"

	"go.uber.org/zap"

	"github.com/rlch/migsql"
	"github.com/rlch/migsql/graph"
	"github.com/rlch/migsql/operation"
)

// Plan is the result of a detection.
type Plan struct {
	Changes *Changes
	// Rebuilt lists the unchanged items pulled in because something they
	// depend on changed.
	Rebuilt []migsql.Key
	// Operations is in execution order.
	Operations []*operation.Operation
}

// Empty reports whether the plan holds no operations.
func (p *Plan) Empty() bool {
	return len(p.Operations) == 0
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Detector compares a from snapshot with a to snapshot.
type Detector struct {
	from   *graph.Graph
	to     *graph.Graph
	logger *zap.Logger
}

// New returns a detector for the given snapshots. Unresolved graphs are
// resolved by Detect.
func New(from, to *graph.Graph, opts ...Option) *Detector {
	d := &Detector{
		from:   from,
		to:     to,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Detect returns the operations needed to move from the from snapshot to the
// to snapshot. A dangling reference or a cycle in either graph aborts the
// detection.
func (d *Detector) Detect() (*Plan, error) {
	for _, g := range []*graph.Graph{d.from, d.to} {
		if g.Resolved() {
			continue
		}

		if err := g.Resolve(); err != nil {
			return nil, err
		}
	}

	changes := Diff(d.from, d.to)

	d.logger.Debug("snapshot diff",
		zap.Int("added", len(changes.Added)),
		zap.Int("removed", len(changes.Removed)),
		zap.Int("changed", len(changes.Changed)),
		zap.Int("dependency_changes", len(changes.Dependencies)),
	)

	changed := changes.Changed.Clone()

	keys, err := Assemble(changes.Added, changed, d.to)
	if err != nil {
		return nil, err
	}

	deleted, err := Assemble(changes.Removed, make(migsql.KeySet), d.from)
	if err != nil {
		return nil, err
	}

	rebuilt := changed.Difference(changes.Changed).Sorted()

	d.logger.Debug("assembled sequence",
		zap.Stringers("keys", keys),
		zap.Stringers("deleted", deleted),
		zap.Stringers("rebuilt", rebuilt),
	)

	reg := newRegistry()

	d.reverseAlters(reg, keys, changed)
	d.forwards(reg, keys, changed)
	d.deletes(reg, deleted)
	d.dependencyChanges(reg, changes.Dependencies)

	plan := &Plan{
		Changes:    changes,
		Rebuilt:    rebuilt,
		Operations: reg.operations(),
	}

	d.logger.Debug("detected operations", zap.Int("count", len(plan.Operations)))

	return plan, nil
}

// reverseAlters drops the previous version of changed items, leaves first.
func (d *Detector) reverseAlters(reg *registry, keys []migsql.Key, changed migsql.KeySet) {
	for _, k := range keys {
		if !changed.Has(k) {
			continue
		}

		oldItem, _ := d.from.Item(k)
		newItem, _ := d.to.Item(k)

		if oldItem.ReverseSQL.IsNoop() || newItem.Replace {
			continue
		}

		reg.add(&operation.Operation{
			Kind:       operation.ReverseAlter,
			Key:        k,
			SQL:        oldItem.ReverseSQL.Clone(),
			ReverseSQL: oldItem.SQL.Clone(),
		}, append(d.from.Children(k), k))
	}
}

// forwards creates new items and applies changed ones, roots first.
func (d *Detector) forwards(reg *registry, keys []migsql.Key, changed migsql.KeySet) {
	for _, k := range slices.Backward(keys) {
		newItem, _ := d.to.Item(k)
		parents := d.to.Parents(k)

		op := &operation.Operation{
			Key: k,
			SQL: newItem.SQL.Clone(),
		}

		switch {
		case changed.Has(k) && newItem.Replace:
			oldItem, _ := d.from.Item(k)
			op.Kind = operation.Alter
			op.Replace = true
			op.ReverseSQL = oldItem.SQL.Clone()
			op.StateReverseSQL = newItem.ReverseSQL.Clone()
		case changed.Has(k):
			op.Kind = operation.Alter
			op.ReverseSQL = newItem.ReverseSQL.Clone()
		default:
			op.Kind = operation.Create
			op.ReverseSQL = newItem.ReverseSQL.Clone()
			op.Dependencies = slices.Clone(parents)
		}

		reg.add(op, append(parents, k))
	}
}

// deletes drops removed items, leaves first.
func (d *Detector) deletes(reg *registry, keys []migsql.Key) {
	for _, k := range keys {
		oldItem, _ := d.from.Item(k)

		reg.add(&operation.Operation{
			Kind:       operation.Delete,
			Key:        k,
			SQL:        oldItem.ReverseSQL.Clone(),
			ReverseSQL: oldItem.SQL.Clone(),
		}, append(d.from.Children(k), k))
	}
}

func (d *Detector) dependencyChanges(reg *registry, changes []DependencyChange) {
	for _, c := range changes {
		reg.add(&operation.Operation{
			Kind:               operation.AlterDependenciesOnly,
			Key:                c.Key,
			AddDependencies:    slices.Clone(c.Added),
			RemoveDependencies: slices.Clone(c.Removed),
		}, []migsql.Key{c.Key})
	}
}
