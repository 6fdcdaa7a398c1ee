package history

import (
	"fmt"

	"github.com/rlch/migsql"
	"github.com/rlch/migsql/operation"
)

// migrationFile is the on-disk layout of one migration.
type migrationFile struct {
	Operations []operationRecord `yaml:"operations"`
}

type operationRecord struct {
	Kind               operation.Kind `yaml:"kind"`
	Key                migsql.Key     `yaml:"key"`
	SQL                migsql.SQL     `yaml:"sql,omitempty"`
	ReverseSQL         migsql.SQL     `yaml:"reverse_sql,omitempty"`
	Replace            bool           `yaml:"replace,omitempty"`
	StateReverseSQL    migsql.SQL     `yaml:"state_reverse_sql,omitempty"`
	Dependencies       []migsql.Key   `yaml:"dependencies,omitempty"`
	AddDependencies    []migsql.Key   `yaml:"add_dependencies,omitempty"`
	RemoveDependencies []migsql.Key   `yaml:"remove_dependencies,omitempty"`
	DependsOn          []refRecord    `yaml:"depends_on,omitempty"`
}

// refRecord stores a dependency reference. Op is the index of the referenced
// operation within the same file, absent when the dependency was already
// satisfied.
type refRecord struct {
	Key migsql.Key `yaml:"key"`
	Op  *int       `yaml:"op,omitempty"`
}

func encodeOperations(ops []*operation.Operation) (*migrationFile, error) {
	index := make(map[*operation.Operation]int, len(ops))
	file := &migrationFile{Operations: make([]operationRecord, len(ops))}

	for i, op := range ops {
		rec := operationRecord{
			Kind:               op.Kind,
			Key:                op.Key,
			SQL:                op.SQL,
			ReverseSQL:         op.ReverseSQL,
			Replace:            op.Replace,
			StateReverseSQL:    op.StateReverseSQL,
			Dependencies:       op.Dependencies,
			AddDependencies:    op.AddDependencies,
			RemoveDependencies: op.RemoveDependencies,
		}

		for _, ref := range op.DependsOn {
			r := refRecord{Key: ref.Key}

			if ref.Operation != nil {
				j, ok := index[ref.Operation]
				if !ok {
					return nil, fmt.Errorf("operation %d (%s): %w", i, op.Describe(), operation.ErrBrokenChain)
				}

				r.Op = &j
			}

			rec.DependsOn = append(rec.DependsOn, r)
		}

		file.Operations[i] = rec
		index[op] = i
	}

	return file, nil
}

func decodeOperations(file *migrationFile) ([]*operation.Operation, error) {
	ops := make([]*operation.Operation, len(file.Operations))

	for i, rec := range file.Operations {
		if _, err := rec.Kind.MarshalText(); err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}

		if rec.Key.IsZero() {
			return nil, fmt.Errorf("operation %d: %w: missing key", i, migsql.ErrInvalidKey)
		}

		op := &operation.Operation{
			Kind:               rec.Kind,
			Key:                rec.Key,
			SQL:                rec.SQL,
			ReverseSQL:         rec.ReverseSQL,
			Replace:            rec.Replace,
			StateReverseSQL:    rec.StateReverseSQL,
			Dependencies:       rec.Dependencies,
			AddDependencies:    rec.AddDependencies,
			RemoveDependencies: rec.RemoveDependencies,
		}

		for _, r := range rec.DependsOn {
			ref := operation.Ref{Key: r.Key}

			if r.Op != nil {
				if *r.Op < 0 || *r.Op >= i {
					return nil, fmt.Errorf("operation %d: reference to operation %d: %w", i, *r.Op, operation.ErrBrokenChain)
				}

				ref.Operation = ops[*r.Op]
			}

			op.DependsOn = append(op.DependsOn, ref)
		}

		ops[i] = op
	}

	return ops, operation.VerifyChain(ops)
}
