package toposort

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/MyCarrier-DevOps/go-gitgraph/internal/identity"
	"github.com/stretchr/testify/require"
)

type node struct {
	Name string
	Deps []string
}

// nodes builds a graph from "name -> deps" pairs and returns the items in
// declaration order plus a lookup-backed dependency function.
func nodes(defs ...node) ([]*node, func(*node) []*node) {
	items := make([]*node, len(defs))
	byName := make(map[string]*node, len(defs))
	for i := range defs {
		items[i] = &defs[i]
		byName[defs[i].Name] = items[i]
	}
	deps := func(n *node) []*node {
		out := make([]*node, 0, len(n.Deps))
		for _, d := range n.Deps {
			out = append(out, byName[d])
		}
		return out
	}
	return items, deps
}

func name(n *node) string { return n.Name }

func names(items []*node) []string {
	out := make([]string, len(items))
	for i, n := range items {
		out[i] = n.Name
	}
	return out
}

func requireTopological(t *testing.T, sorted []*node) {
	t.Helper()
	pos := make(map[string]int, len(sorted))
	for i, n := range sorted {
		pos[n.Name] = i
	}
	for _, n := range sorted {
		for _, d := range n.Deps {
			require.Less(t, pos[d], pos[n.Name], "%s must come after its dependency %s", n.Name, d)
		}
	}
}

func TestSort_Linear(t *testing.T) {
	items, deps := nodes(
		node{Name: "c", Deps: []string{"b"}},
		node{Name: "b", Deps: []string{"a"}},
		node{Name: "a"},
	)

	sorted, err := Sort(items, deps, name)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, names(sorted))
}

func TestSort_Diamond(t *testing.T) {
	items, deps := nodes(
		node{Name: "top", Deps: []string{"left", "right"}},
		node{Name: "left", Deps: []string{"base"}},
		node{Name: "right", Deps: []string{"base"}},
		node{Name: "base"},
	)

	sorted, err := Sort(items, deps, name)
	require.NoError(t, err)
	require.Equal(t, []string{"base", "left", "right", "top"}, names(sorted))
	requireTopological(t, sorted)
}

func TestSort_NoDependencies_KeepsInputOrder(t *testing.T) {
	items, deps := nodes(node{Name: "x"}, node{Name: "y"}, node{Name: "z"})

	sorted, err := Sort(items, deps, name)
	require.NoError(t, err)
	require.Equal(t, []string{"x", "y", "z"}, names(sorted))
}

func TestSort_NilDependencyFunc(t *testing.T) {
	items, _ := nodes(node{Name: "x"}, node{Name: "y"})

	sorted, err := Sort[*node, string](items, nil, name)
	require.NoError(t, err)
	require.Equal(t, []string{"x", "y"}, names(sorted))
}

func TestSort_Empty(t *testing.T) {
	sorted, err := Sort[*node, string](nil, nil, name)
	require.NoError(t, err)
	require.Empty(t, sorted)
}

func TestSort_Cycle(t *testing.T) {
	items, deps := nodes(
		node{Name: "a", Deps: []string{"b"}},
		node{Name: "b", Deps: []string{"c"}},
		node{Name: "c", Deps: []string{"a"}},
	)

	_, err := Sort(items, deps, name)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrCyclicDependency))
	require.Contains(t, err.Error(), "at a")
}

func TestSort_SelfCycle(t *testing.T) {
	items, deps := nodes(node{Name: "a", Deps: []string{"a"}})

	_, err := Sort(items, deps, name)
	require.ErrorIs(t, err, ErrCyclicDependency)
}

func TestSort_IgnoreCycles_EveryItemOnce(t *testing.T) {
	items, deps := nodes(
		node{Name: "a", Deps: []string{"b"}},
		node{Name: "b", Deps: []string{"c"}},
		node{Name: "c", Deps: []string{"a"}},
		node{Name: "d", Deps: []string{"a"}},
	)

	sorted, err := Sort(items, deps, name, IgnoreCycles())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b", "c", "d"}, names(sorted))
	require.Equal(t, []string{"c", "b", "a", "d"}, names(sorted))
}

func TestSort_WithIgnoreCyclesFalse(t *testing.T) {
	items, deps := nodes(node{Name: "a", Deps: []string{"a"}})

	_, err := Sort(items, deps, name, WithIgnoreCycles(false))
	require.ErrorIs(t, err, ErrCyclicDependency)
}

func TestSort_DuplicateKeysCollapse(t *testing.T) {
	a1 := &node{Name: "a"}
	a2 := &node{Name: "a"}
	b := &node{Name: "b"}
	deps := func(n *node) []*node {
		if n == b {
			return []*node{a2}
		}
		return nil
	}

	sorted, err := Sort([]*node{b, a1}, deps, name)
	require.NoError(t, err)
	require.Len(t, sorted, 2)
	require.Same(t, a2, sorted[0], "first visited value is emitted")
	require.Same(t, b, sorted[1])
}

func TestSortByKey(t *testing.T) {
	items := []node{
		{Name: "app", Deps: []string{"lib", "log"}},
		{Name: "lib", Deps: []string{"log"}},
		{Name: "log"},
	}

	sorted, err := SortByKey(items,
		func(n node) []string { return n.Deps },
		func(n node) string { return n.Name })
	require.NoError(t, err)

	got := make([]string, len(sorted))
	for i, n := range sorted {
		got[i] = n.Name
	}
	require.Equal(t, []string{"log", "lib", "app"}, got)
}

func TestSortByKey_UnknownDependency(t *testing.T) {
	items := []node{{Name: "app", Deps: []string{"missing"}}}

	_, err := SortByKey(items,
		func(n node) []string { return n.Deps },
		func(n node) string { return n.Name })
	require.ErrorIs(t, err, ErrUnknownDependency)
	require.Contains(t, err.Error(), "missing")
}

func TestSortWith_CustomComparer(t *testing.T) {
	items, deps := nodes(
		node{Name: "B", Deps: []string{"a"}},
		node{Name: "a"},
	)
	caseless := identity.ByKey(func(n *node) string {
		if n.Name == "B" {
			return "b"
		}
		return n.Name
	})

	sorted, err := SortWith(items, deps, caseless)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "B"}, names(sorted))
}

func TestSortWith_CycleHasNoLabel(t *testing.T) {
	items, deps := nodes(node{Name: "a", Deps: []string{"a"}})

	_, err := SortWith(items, deps, identity.ByKey(name))
	require.Equal(t, ErrCyclicDependency, err)
}

func TestSort_RandomDAG_IsTopologicalAndDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const size = 200

	defs := make([]node, size)
	for i := range defs {
		defs[i].Name = string(rune('A'+i%26)) + string(rune('0'+i/26))
		for j := 0; j < i; j++ {
			if rng.Intn(20) == 0 {
				defs[i].Deps = append(defs[i].Deps, defs[j].Name)
			}
		}
	}
	rng.Shuffle(len(defs), func(i, j int) { defs[i], defs[j] = defs[j], defs[i] })
	items, deps := nodes(defs...)

	first, err := Sort(items, deps, name)
	require.NoError(t, err)
	require.Len(t, first, size)
	requireTopological(t, first)

	for i := 0; i < 5; i++ {
		again, err := Sort(items, deps, name)
		require.NoError(t, err)
		require.Equal(t, names(first), names(again))
	}
}
