package detect_test

import (
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/migsql"
	"github.com/rlch/migsql/detect"
	"github.com/rlch/migsql/graph"
	"github.com/rlch/migsql/operation"
)

func key(name string) migsql.Key {
	return migsql.K("app", name)
}

// item declares an app item whose SQL and reverse SQL are derived from
// version, e.g. "CREATE a v1" and "DROP a v1".
func item(name, version string, deps ...string) migsql.Item {
	it := migsql.Item{
		Name:       name,
		SQL:        migsql.Raw("CREATE " + name + " " + version),
		ReverseSQL: migsql.Raw("DROP " + name + " " + version),
	}

	for _, d := range deps {
		it.Dependencies = append(it.Dependencies, key(d))
	}

	return it
}

func snapshot(t *testing.T, items ...migsql.Item) *graph.Graph {
	t.Helper()

	g, err := graph.Build(map[string][]migsql.Item{"app": items})
	require.NoError(t, err)

	return g
}

func detectPlan(t *testing.T, from, to *graph.Graph) *detect.Plan {
	t.Helper()

	plan, err := detect.New(from, to).Detect()
	require.NoError(t, err)
	require.NoError(t, operation.VerifyChain(plan.Operations))

	return plan
}

// summary renders operations as "Kind key" for compact comparisons.
func summary(ops []*operation.Operation) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.Kind.String() + " " + op.Key.String()
	}

	return out
}

// refs renders the dependency references of op as "key" or "key@index" where
// index is the position of the referenced operation in ops.
func refs(ops []*operation.Operation, op *operation.Operation) []string {
	out := make([]string, len(op.DependsOn))

	for i, ref := range op.DependsOn {
		out[i] = ref.Key.String()
		if ref.Operation == nil {
			continue
		}

		for j, candidate := range ops {
			if candidate == ref.Operation {
				out[i] += "@" + strconv.Itoa(j)
			}
		}
	}

	return out
}

func TestDetect_NoChanges(t *testing.T) {
	build := func() *graph.Graph {
		return snapshot(t, item("a", "v1"), item("b", "v1", "a"), item("c", "v1", "a", "b"))
	}

	plan := detectPlan(t, build(), build())
	assert.True(t, plan.Empty())
	assert.True(t, plan.Changes.Empty())
}

func TestDetect_CreateOrder(t *testing.T) {
	to := snapshot(t, item("c", "v1", "b"), item("b", "v1", "a"), item("a", "v1"), item("z", "v1"))

	plan := detectPlan(t, graph.New(), to)

	ops := plan.Operations
	// Unrelated roots are placed after the chain, so they are created first.
	require.Equal(t, []string{
		"Create app.z", "Create app.a", "Create app.b", "Create app.c",
	}, summary(ops))

	assert.Equal(t, []string{"app.a"}, refs(ops, ops[1]))
	assert.Equal(t, []string{"app.a@1", "app.b"}, refs(ops, ops[2]))
	assert.Equal(t, []string{"app.b@2", "app.c"}, refs(ops, ops[3]))
	assert.Equal(t, []migsql.Key{key("a")}, ops[2].Dependencies)
	assert.Equal(t, migsql.Raw("DROP b v1"), ops[2].ReverseSQL)
}

func TestDetect_RebuildsDependents(t *testing.T) {
	from := snapshot(t, item("a", "v1"), item("b", "v1", "a"))
	to := snapshot(t, item("a", "v2"), item("b", "v1", "a"))

	plan := detectPlan(t, from, to)
	ops := plan.Operations

	require.Equal(t, []string{
		"ReverseAlter app.b", "ReverseAlter app.a", "Alter app.a", "Alter app.b",
	}, summary(ops))

	assert.Equal(t, []migsql.Key{key("b")}, plan.Rebuilt)
	assert.Equal(t, migsql.NewKeySet(key("a")), plan.Changes.Changed)

	assert.Equal(t, migsql.Raw("DROP b v1"), ops[0].SQL)
	assert.Equal(t, migsql.Raw("CREATE b v1"), ops[0].ReverseSQL)
	assert.Equal(t, migsql.Raw("CREATE a v2"), ops[2].SQL)
	assert.Equal(t, migsql.Raw("DROP a v2"), ops[2].ReverseSQL)

	assert.Equal(t, []string{"app.b"}, refs(ops, ops[0]))
	assert.Equal(t, []string{"app.b@0", "app.a"}, refs(ops, ops[1]))
	assert.Equal(t, []string{"app.a@1"}, refs(ops, ops[2]))
	assert.Equal(t, []string{"app.a@2", "app.b@0"}, refs(ops, ops[3]))
}

func TestDetect_ReplaceSuppressesReverse(t *testing.T) {
	replaced := item("a", "v2")
	replaced.Replace = true

	from := snapshot(t, item("a", "v1"), item("b", "v1", "a"))
	to := snapshot(t, replaced, item("b", "v1", "a"))

	plan := detectPlan(t, from, to)

	require.Equal(t, []string{"Alter app.a"}, summary(plan.Operations))

	op := plan.Operations[0]
	assert.True(t, op.Replace)
	assert.Equal(t, migsql.Raw("CREATE a v2"), op.SQL)
	assert.Equal(t, migsql.Raw("CREATE a v1"), op.ReverseSQL)
	assert.Equal(t, migsql.Raw("DROP a v2"), op.StateReverseSQL)
	assert.Empty(t, plan.Rebuilt)
}

func TestDetect_PulledReplaceItemIsAlteredOnce(t *testing.T) {
	replaced := item("b", "v1", "a")
	replaced.Replace = true

	from := snapshot(t, item("a", "v1"), item("b", "v1", "a"))
	to := snapshot(t, item("a", "v2"), replaced)

	plan := detectPlan(t, from, to)

	require.Equal(t, []string{"ReverseAlter app.a", "Alter app.a", "Alter app.b"}, summary(plan.Operations))
	assert.True(t, plan.Operations[2].Replace)
}

func TestDetect_MissingReverseSkipsReverseAlter(t *testing.T) {
	old := item("a", "v1")
	old.ReverseSQL = nil

	from := snapshot(t, old)
	to := snapshot(t, item("a", "v2"))

	plan := detectPlan(t, from, to)
	assert.Equal(t, []string{"Alter app.a"}, summary(plan.Operations))
}

func TestDetect_DeleteOrder(t *testing.T) {
	from := snapshot(t, item("a", "v1"), item("b", "v1", "a"))

	plan := detectPlan(t, from, graph.New())
	ops := plan.Operations

	require.Equal(t, []string{"Delete app.b", "Delete app.a"}, summary(ops))
	assert.Equal(t, migsql.Raw("DROP b v1"), ops[0].SQL)
	assert.Equal(t, migsql.Raw("CREATE b v1"), ops[0].ReverseSQL)
	assert.Equal(t, []string{"app.b@0", "app.a"}, refs(ops, ops[1]))
}

func TestDetect_DependencyOnlyChange(t *testing.T) {
	from := snapshot(t, item("a", "v1"), item("b", "v1"), item("c", "v1", "a"))
	to := snapshot(t, item("a", "v1"), item("b", "v1"), item("c", "v1", "b"))

	plan := detectPlan(t, from, to)

	require.Equal(t, []string{"AlterDependenciesOnly app.c"}, summary(plan.Operations))

	op := plan.Operations[0]
	assert.Equal(t, []migsql.Key{key("b")}, op.AddDependencies)
	assert.Equal(t, []migsql.Key{key("a")}, op.RemoveDependencies)
	assert.Equal(t, []string{"app.c"}, refs(plan.Operations, op))
}

func TestDetect_SQLRepresentation(t *testing.T) {
	from := snapshot(t, migsql.Item{Name: "a", SQL: migsql.Raw("SELECT 1")})
	to := snapshot(t, migsql.Item{Name: "a", SQL: migsql.SQL{{Query: "SELECT 1", Params: []any{}}}})

	assert.True(t, detectPlan(t, from, to).Empty())

	from = snapshot(t, migsql.Item{Name: "a", SQL: migsql.Stmt("SELECT %s", 1)})
	to = snapshot(t, migsql.Item{Name: "a", SQL: migsql.Stmt("SELECT %s", 2)})

	assert.Equal(t, []string{"Alter app.a"}, summary(detectPlan(t, from, to).Operations))
}

func TestDetect_Mixed(t *testing.T) {
	from := snapshot(t, item("a", "v1"), item("b", "v1", "a"), item("old", "v1", "a"))
	to := snapshot(t, item("a", "v2"), item("b", "v1", "a"), item("n", "v1", "b"))

	plan := detectPlan(t, from, to)

	assert.Equal(t, []string{
		"ReverseAlter app.b",
		"ReverseAlter app.a",
		"Alter app.a",
		"Alter app.b",
		"Create app.n",
		"Delete app.old",
	}, summary(plan.Operations))

	assert.Equal(t, migsql.NewKeySet(key("n")), plan.Changes.Added)
	assert.Equal(t, migsql.NewKeySet(key("old")), plan.Changes.Removed)
}

func TestDetect_CrossNamespace(t *testing.T) {
	to, err := graph.Build(map[string][]migsql.Item{
		"app": {{Name: "report", SQL: migsql.Raw("CREATE VIEW report"), Dependencies: []migsql.Key{migsql.K("lib", "fn")}}},
		"lib": {{Name: "fn", SQL: migsql.Raw("CREATE FUNCTION fn")}},
	})
	require.NoError(t, err)

	plan := detectPlan(t, graph.New(), to)
	assert.Equal(t, []string{"Create lib.fn", "Create app.report"}, summary(plan.Operations))
}

func TestDetect_InvalidSnapshots(t *testing.T) {
	dangling := graph.New()
	dangling.AddNode(key("X"), &migsql.Item{Name: "X"})
	dangling.AddLazyDependency(key("X"), key("Y"))

	_, err := detect.New(graph.New(), dangling).Detect()
	require.ErrorIs(t, err, migsql.ErrDanglingReference)
	assert.Contains(t, err.Error(), "app.Y")

	cyclic := graph.New()
	cyclic.AddNode(key("a"), &migsql.Item{Name: "a"})
	cyclic.AddNode(key("b"), &migsql.Item{Name: "b"})
	cyclic.AddLazyDependency(key("a"), key("b"))
	cyclic.AddLazyDependency(key("b"), key("a"))

	_, err = detect.New(cyclic, graph.New()).Detect()
	require.ErrorIs(t, err, migsql.ErrCircularDependency)
}

func TestDetect_Deterministic(t *testing.T) {
	build := func() (*graph.Graph, *graph.Graph) {
		from := snapshot(t, item("a", "v1"), item("b", "v1", "a"), item("c", "v1", "a"), item("d", "v1", "b", "c"))
		to := snapshot(t, item("a", "v2"), item("b", "v1", "a"), item("c", "v2", "a"), item("d", "v1", "b", "c"), item("e", "v1", "d"))

		return from, to
	}

	from, to := build()
	first := detectPlan(t, from, to)

	for range 10 {
		from, to := build()
		again := detectPlan(t, from, to)
		if diff := cmp.Diff(summary(first.Operations), summary(again.Operations)); diff != "" {
			t.Fatalf("plan changed between runs (-first +again):\n%s", diff)
		}
	}
}
