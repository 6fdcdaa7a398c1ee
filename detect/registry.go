package detect

import (
	"github.com/rlch/migsql"
	"github.com/rlch/migsql/operation"
)

// registry remembers the last operation emitted per key and links each new
// operation to the operations it has to follow.
type registry struct {
	last map[migsql.Key]*operation.Operation
	ops  []*operation.Operation
}

func newRegistry() *registry {
	return &registry{last: make(map[migsql.Key]*operation.Operation)}
}

// add appends op, resolving deps against what has been emitted so far. A
// dependency on a key nothing touched yet gets a nil operation.
func (r *registry) add(op *operation.Operation, deps []migsql.Key) {
	op.DependsOn = make([]operation.Ref, len(deps))
	for i, k := range deps {
		op.DependsOn[i] = operation.Ref{Key: k, Operation: r.last[k]}
	}

	r.ops = append(r.ops, op)
	r.last[op.Key] = op
}

func (r *registry) operations() []*operation.Operation {
	return r.ops
}
