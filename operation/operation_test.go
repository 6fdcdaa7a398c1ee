package operation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/migsql"
	"github.com/rlch/migsql/graph"
	"github.com/rlch/migsql/operation"
)

func key(name string) migsql.Key {
	return migsql.K("app", name)
}

func TestKind_Text(t *testing.T) {
	for _, k := range operation.Kinds {
		text, err := k.MarshalText()
		require.NoError(t, err)

		var got operation.Kind
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, k, got)
	}

	var k operation.Kind
	require.ErrorIs(t, k.UnmarshalText([]byte("Drop")), migsql.ErrUnknownKind)

	_, err := operation.Kind(42).MarshalText()
	require.ErrorIs(t, err, migsql.ErrUnknownKind)
	assert.Equal(t, "Kind(42)", operation.Kind(42).String())
}

func TestKind_TouchesDatabase(t *testing.T) {
	for _, k := range operation.Kinds {
		assert.Equal(t, k != operation.AlterDependenciesOnly, k.TouchesDatabase(), k.String())
	}
}

func TestApply_CreateAlterDelete(t *testing.T) {
	state := graph.New()

	create := &operation.Operation{
		Kind: operation.Create, Key: key("a"),
		SQL: migsql.Raw("CREATE a"), ReverseSQL: migsql.Raw("DROP a"),
	}
	require.NoError(t, create.Apply(state, true))

	child := &operation.Operation{
		Kind: operation.Create, Key: key("b"),
		SQL: migsql.Raw("CREATE b"), Dependencies: []migsql.Key{key("a")},
	}
	require.NoError(t, child.Apply(state, true))
	require.NoError(t, state.Resolve())
	assert.Equal(t, []migsql.Key{key("a")}, state.Parents(key("b")))

	alter := &operation.Operation{
		Kind: operation.Alter, Key: key("a"),
		SQL: migsql.Raw("CREATE a v2"), ReverseSQL: migsql.Raw("DROP a v2"),
	}
	require.NoError(t, alter.Apply(state, true))
	assert.False(t, state.Resolved())

	item, ok := state.Item(key("a"))
	require.True(t, ok)
	assert.Equal(t, migsql.Raw("CREATE a v2"), item.SQL)
	assert.Equal(t, migsql.Raw("DROP a v2"), item.ReverseSQL)

	del := &operation.Operation{Kind: operation.Delete, Key: key("b")}
	require.NoError(t, del.Apply(state, true))
	assert.False(t, state.Has(key("b")))
	assert.Empty(t, state.Dependencies(key("b")))
	require.NoError(t, state.Resolve())
}

func TestApply_ReplaceUsesStateReverse(t *testing.T) {
	state := graph.New()
	state.AddNode(key("a"), &migsql.Item{Name: "a", SQL: migsql.Raw("v1"), ReverseSQL: migsql.Raw("drop v1")})

	op := &operation.Operation{
		Kind: operation.Alter, Key: key("a"), Replace: true,
		SQL: migsql.Raw("v2"), ReverseSQL: migsql.Raw("v1"),
		StateReverseSQL: migsql.Raw("drop v2"),
	}
	require.NoError(t, op.Apply(state, false))

	item, _ := state.Item(key("a"))
	assert.Equal(t, migsql.Raw("drop v2"), item.ReverseSQL)
}

func TestApply_ReverseAlterLeavesState(t *testing.T) {
	state := graph.New()
	state.AddNode(key("a"), &migsql.Item{Name: "a", SQL: migsql.Raw("v1")})
	require.NoError(t, state.Resolve())

	op := &operation.Operation{Kind: operation.ReverseAlter, Key: key("a"), SQL: migsql.Raw("drop v1")}
	require.NoError(t, op.Apply(state, true))

	assert.True(t, state.Resolved())

	item, _ := state.Item(key("a"))
	assert.Equal(t, migsql.Raw("v1"), item.SQL)
}

func TestApply_DependenciesOnly(t *testing.T) {
	state := graph.New()
	for _, n := range []string{"a", "b", "c"} {
		state.AddNode(key(n), &migsql.Item{Name: n})
	}

	state.AddLazyDependency(key("c"), key("a"))

	op := &operation.Operation{
		Kind: operation.AlterDependenciesOnly, Key: key("c"),
		AddDependencies:    []migsql.Key{key("b")},
		RemoveDependencies: []migsql.Key{key("a")},
	}
	require.NoError(t, op.Apply(state, true))
	require.NoError(t, state.Resolve())

	assert.Equal(t, []migsql.Key{key("b")}, state.Parents(key("c")))

	item, _ := state.Item(key("c"))
	assert.Equal(t, []migsql.Key{key("b")}, item.Dependencies)
}

func TestApply_MissingNode(t *testing.T) {
	ops := []*operation.Operation{
		{Kind: operation.Alter, Key: key("ghost"), SQL: migsql.Raw("x")},
		{Kind: operation.Delete, Key: key("ghost")},
		{Kind: operation.AlterDependenciesOnly, Key: key("ghost"), AddDependencies: []migsql.Key{key("a")}},
	}

	for _, op := range ops {
		t.Run(op.Kind.String(), func(t *testing.T) {
			state := graph.New()

			require.NoError(t, op.Apply(state, false))
			assert.Equal(t, 0, state.Len())
			assert.Empty(t, state.Dependencies(key("ghost")))

			err := op.Apply(state, true)
			require.ErrorIs(t, err, migsql.ErrNodeNotFound)
			assert.Contains(t, err.Error(), "app.ghost")
		})
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		op   operation.Operation
		want string
	}{
		{operation.Operation{Kind: operation.Create, Key: key("a")}, "Create SQL item app.a"},
		{operation.Operation{Kind: operation.Alter, Key: key("a")}, "Alter SQL item app.a"},
		{operation.Operation{Kind: operation.Alter, Key: key("a"), Replace: true}, "Replace SQL item app.a"},
		{operation.Operation{Kind: operation.ReverseAlter, Key: key("a")}, "Reverse SQL item app.a"},
		{operation.Operation{Kind: operation.Delete, Key: key("a")}, "Delete SQL item app.a"},
		{
			operation.Operation{
				Kind: operation.AlterDependenciesOnly, Key: key("a"),
				AddDependencies: []migsql.Key{key("b")}, RemoveDependencies: []migsql.Key{key("c"), key("d")},
			},
			"Alter SQL state app.a (+app.b -app.c,app.d)",
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.op.Describe())
	}
}

func TestVerifyChain(t *testing.T) {
	a := &operation.Operation{Kind: operation.Create, Key: key("a"), DependsOn: []operation.Ref{{Key: key("a")}}}
	b := &operation.Operation{
		Kind: operation.Create, Key: key("b"),
		DependsOn: []operation.Ref{{Key: key("a"), Operation: a}, {Key: key("b")}},
	}

	require.NoError(t, operation.VerifyChain([]*operation.Operation{a, b}))
	require.ErrorIs(t, operation.VerifyChain([]*operation.Operation{b, a}), operation.ErrBrokenChain)

	wrong := &operation.Operation{
		Kind: operation.Create, Key: key("c"),
		DependsOn: []operation.Ref{{Key: key("b"), Operation: a}},
	}
	require.ErrorIs(t, operation.VerifyChain([]*operation.Operation{a, wrong}), operation.ErrBrokenChain)

	assert.True(t, operation.Ref{Key: key("a")}.Satisfied())
	assert.False(t, b.DependsOn[0].Satisfied())
}
