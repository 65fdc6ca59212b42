package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/MyCarrier-DevOps/go-gitgraph/internal/toposort"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	s := buildStore(t,
		[]string{"c0"},
		[]string{"c1", "c0"},
		[]string{"f1", "c1"},
		[]string{"c2", "c1"},
		[]string{"m", "c2", "f1"},
	)
	r := NewRepository(s)

	main := NewBranch(NewBranchReferenceName("main"), []*Commit{get(t, s, "m"), get(t, s, "c2"), get(t, s, "f1"), get(t, s, "c1"), get(t, s, "c0")})
	feature := NewBranch(NewBranchReferenceName("feature"), []*Commit{get(t, s, "f1"), get(t, s, "c1"), get(t, s, "c0")})
	remoteMain := NewBranch(NewReferenceName("refs/remotes/origin/main"), main.Commits)
	remoteMain.IsRemote = true

	r.Head = main
	r.Commits = main.Commits
	r.Branches = []*Branch{main, feature, remoteMain}
	r.Tags = []*Tag{{
		Name:         NewTagReferenceName("v1.0.0"),
		TargetSha:    "c1",
		Target:       get(t, s, "c1"),
		PeeledTarget: get(t, s, "c1"),
	}}
	return r
}

func TestRepository_FindBranch(t *testing.T) {
	r := newTestRepository(t)

	b, err := r.FindBranch("feature")
	require.NoError(t, err)
	require.Equal(t, "f1", b.Tip.Sha)

	b, err = r.FindBranch("refs/remotes/origin/main")
	require.NoError(t, err)
	require.True(t, b.IsRemote)

	_, err = r.FindBranch("nope")
	require.ErrorIs(t, err, ErrNotFound)
	require.Contains(t, err.Error(), "nope")
}

func TestRepository_FindTag(t *testing.T) {
	r := newTestRepository(t)

	tag, err := r.FindTag("v1.0.0")
	require.NoError(t, err)
	require.Equal(t, "c1", tag.PeeledTarget.Sha)

	_, err = r.FindTag("v9")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_FindMergeBase_InMemory(t *testing.T) {
	r := newTestRepository(t)

	base, err := r.FindMergeBase(context.Background(), get(t, r.Store(), "c2"), get(t, r.Store(), "f1"))
	require.NoError(t, err)
	require.Equal(t, "c1", base.Sha)
}

func TestRepository_FindMergeBase_Delegates(t *testing.T) {
	r := newTestRepository(t)
	var gotA, gotB string
	r.ObjectDatabase = &MockObjectDatabase{
		FindMergeBaseFunc: func(_ context.Context, a, b string) (string, error) {
			gotA, gotB = a, b
			return "c0", nil
		},
	}

	base, err := r.FindMergeBase(context.Background(), get(t, r.Store(), "m"), get(t, r.Store(), "f1"))
	require.NoError(t, err)
	require.Equal(t, "c0", base.Sha)
	require.Equal(t, "m", gotA)
	require.Equal(t, "f1", gotB)
}

func TestRepository_FindMergeBase_NoneAndErrors(t *testing.T) {
	r := newTestRepository(t)
	c := get(t, r.Store(), "c0")

	r.ObjectDatabase = &MockObjectDatabase{}
	base, err := r.FindMergeBase(context.Background(), c, c)
	require.NoError(t, err)
	require.Nil(t, base)

	r.ObjectDatabase = &MockObjectDatabase{
		FindMergeBaseFunc: func(context.Context, string, string) (string, error) {
			return "", errors.New("boom")
		},
	}
	_, err = r.FindMergeBase(context.Background(), c, c)
	require.ErrorContains(t, err, "boom")

	r.ObjectDatabase = &MockObjectDatabase{
		FindMergeBaseFunc: func(context.Context, string, string) (string, error) {
			return "unknown", nil
		},
	}
	_, err = r.FindMergeBase(context.Background(), c, c)
	require.ErrorIs(t, err, ErrMissingObject)
}

func TestRepository_TopologicalOrder(t *testing.T) {
	r := newTestRepository(t)

	order, err := r.TopologicalOrder()
	require.NoError(t, err)
	require.Len(t, order, 5)

	pos := make(map[string]int)
	for i, c := range order {
		pos[c.Sha] = i
	}
	for _, c := range order {
		for _, p := range c.Parents {
			require.Less(t, pos[p.Sha], pos[c.Sha])
		}
	}
}

func TestRepository_Generations(t *testing.T) {
	r := newTestRepository(t)

	gens, err := r.Generations()
	require.NoError(t, err)
	require.Equal(t, [][]string{{"c0"}, {"c1"}, {"f1", "c2"}, {"m"}}, [][]string{
		shas(gens[0]), shas(gens[1]), shas(gens[2]), shas(gens[3]),
	})
}

func TestTopologicalOrder_Cycle(t *testing.T) {
	a := &Commit{Sha: "a"}
	b := &Commit{Sha: "b", Parents: []*Commit{a}}
	a.Parents = []*Commit{b}

	_, err := TopologicalOrder([]*Commit{a, b})
	require.ErrorIs(t, err, ErrCyclicDependency)

	order, err := TopologicalOrder([]*Commit{a, b}, toposort.IgnoreCycles())
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a"}, shas(order))
}

func TestRepository_Validate(t *testing.T) {
	r := newTestRepository(t)
	require.NoError(t, r.Validate())

	r.Branches[1].Tip = get(t, r.Store(), "c0")
	require.ErrorContains(t, r.Validate(), "tip")
}

func TestRepository_Validate_MissingTip(t *testing.T) {
	r := newTestRepository(t)
	b := r.Branches[1]
	b.Tip = nil

	var err error
	require.NotPanics(t, func() { err = r.Validate() })
	require.ErrorContains(t, err, "no tip")
	require.ErrorContains(t, err, b.Commits[0].ShortSha())

	r.Branches = append(r.Branches, &Branch{Name: NewBranchReferenceName("empty")})
	b.Tip = b.Commits[0]
	require.NoError(t, r.Validate(), "a branch without commits needs no tip")
}

func TestRepository_Validate_UnpeeledTag(t *testing.T) {
	r := newTestRepository(t)
	r.Tags = append(r.Tags, &Tag{Name: NewTagReferenceName("broken")})
	require.ErrorIs(t, r.Validate(), ErrMissingObject)
}

func TestRepository_Fingerprint(t *testing.T) {
	r1 := newTestRepository(t)
	r2 := newTestRepository(t)

	fp1, err := r1.Fingerprint()
	require.NoError(t, err)
	fp2, err := r2.Fingerprint()
	require.NoError(t, err)
	require.Equal(t, fp1, fp2)
	require.NotEmpty(t, fp1)

	r2.Branches[0], r2.Branches[1] = r2.Branches[1], r2.Branches[0]
	fp3, err := r2.Fingerprint()
	require.NoError(t, err)
	require.Equal(t, fp1, fp3, "branch order does not matter")

	r2.Tags = nil
	fp4, err := r2.Fingerprint()
	require.NoError(t, err)
	require.NotEqual(t, fp1, fp4)
}

func TestRepository_LookupAndAllCommits(t *testing.T) {
	r := newTestRepository(t)

	c, ok := r.Lookup("f1")
	require.True(t, ok)
	require.Equal(t, "commit f1", c.Message)
	require.Len(t, r.AllCommits(), 5)
}

func TestMockProvider_Default(t *testing.T) {
	repo, err := (&MockProvider{}).Snapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, repo)
	require.Empty(t, repo.AllCommits())
}
