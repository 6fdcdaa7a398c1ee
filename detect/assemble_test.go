package detect_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/migsql"
	"github.com/rlch/migsql/detect"
	"github.com/rlch/migsql/graph"
)

func TestAssemble_LeavesFirst(t *testing.T) {
	g := snapshot(t,
		item("a", "v1"),
		item("b", "v1", "a"),
		item("c", "v1", "a"),
		item("d", "v1", "b", "c"),
		item("e", "v1", "d"),
		item("f", "v1"),
		item("g", "v1", "f", "a"),
	)

	all := g.KeySet()

	seq, err := detect.Assemble(all, make(migsql.KeySet), g)
	require.NoError(t, err)
	require.Len(t, seq, len(all))

	pos := make(map[migsql.Key]int, len(seq))
	for i, k := range seq {
		pos[k] = i
	}

	for _, k := range seq {
		for _, anc := range g.Ancestors(k) {
			if anc == k {
				continue
			}

			assert.Less(t, pos[k], pos[anc], "%s must precede its ancestor %s", k, anc)
		}
	}
}

func TestAssemble_Subset(t *testing.T) {
	g := snapshot(t, item("a", "v1"), item("b", "v1", "a"), item("c", "v1", "b"))

	seq, err := detect.Assemble(migsql.NewKeySet(key("a"), key("c")), make(migsql.KeySet), g)
	require.NoError(t, err)
	assert.Equal(t, []migsql.Key{key("c"), key("a")}, seq)
}

func TestAssemble_PullsDescendants(t *testing.T) {
	replaced := item("x", "v1")
	replaced.Replace = true

	g := snapshot(t,
		item("a", "v1"),
		item("b", "v1", "a"),
		item("c", "v1", "b"),
		replaced,
		item("y", "v1", "x"),
	)

	resolve := migsql.NewKeySet(key("a"), key("x"))

	seq, err := detect.Assemble(make(migsql.KeySet), resolve, g)
	require.NoError(t, err)

	assert.Equal(t, []migsql.Key{key("c"), key("b"), key("a"), key("x")}, seq)
	assert.Equal(t, migsql.NewKeySet(key("a"), key("b"), key("c"), key("x")), resolve)
}

func TestAssemble_DoesNotPullPrimaryKeys(t *testing.T) {
	g := snapshot(t, item("a", "v1"), item("b", "v1", "a"))

	resolve := migsql.NewKeySet(key("a"))

	seq, err := detect.Assemble(migsql.NewKeySet(key("b")), resolve, g)
	require.NoError(t, err)

	assert.Equal(t, []migsql.Key{key("b"), key("a")}, seq)
	assert.False(t, resolve.Has(key("b")))
}

func TestAssemble_Errors(t *testing.T) {
	g := graph.New()
	g.AddNode(key("a"), &migsql.Item{Name: "a"})

	_, err := detect.Assemble(migsql.NewKeySet(key("a")), make(migsql.KeySet), g)
	require.ErrorIs(t, err, graph.ErrNotResolved)

	require.NoError(t, g.Resolve())

	_, err = detect.Assemble(migsql.NewKeySet(key("missing")), make(migsql.KeySet), g)
	require.ErrorIs(t, err, migsql.ErrNodeNotFound)
}

func TestDiff(t *testing.T) {
	from := snapshot(t, item("a", "v1"), item("b", "v1", "a"), item("gone", "v1"))
	to := snapshot(t, item("a", "v2"), item("b", "v1"), item("new", "v1", "a"))

	changes := detect.Diff(from, to)

	assert.Equal(t, migsql.NewKeySet(key("new")), changes.Added)
	assert.Equal(t, migsql.NewKeySet(key("gone")), changes.Removed)
	assert.Equal(t, migsql.NewKeySet(key("a")), changes.Changed)
	assert.Equal(t, []detect.DependencyChange{
		{Key: key("b"), Removed: []migsql.Key{key("a")}},
	}, changes.Dependencies)
	assert.False(t, changes.Empty())

	assert.True(t, detect.Diff(to, to.Clone()).Empty())
}

func TestDiff_ChangedIsSorted(t *testing.T) {
	from := snapshot(t, item("c", "v1"), item("a", "v1"), item("b", "v1"))
	to := snapshot(t, item("c", "v2"), item("a", "v2"), item("b", "v1"))

	changed := detect.Diff(from, to).Changed.Sorted()
	assert.True(t, slices.IsSortedFunc(changed, migsql.Key.Compare))
	assert.Equal(t, []migsql.Key{key("a"), key("c")}, changed)
}
