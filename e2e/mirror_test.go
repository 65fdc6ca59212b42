// Package e2e contains end-to-end tests that load the same history through
// both backends and check that the snapshots agree.
//
// Each test builds a real (temporary) git repository, serves that same
// repository through a mock GitHub API (REST + GraphQL), loads it with
// sdk.LoadLocal and sdk.LoadRemote, and compares the results.
package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MyCarrier-DevOps/go-gitgraph/internal/testutil"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

const (
	mirrorOwner = "testowner"
	mirrorRepo  = "testrepo"
	mirrorPath  = "/api/v3/repos/" + mirrorOwner + "/" + mirrorRepo
)

// mirror serves a go-git repository through the subset of the GitHub API
// the remote backend reads.
type mirror struct {
	mu   sync.Mutex // go-git storage is read from one handler at a time
	t    *testing.T
	repo *gogit.Repository
	head string // default branch
}

func newMirror(t *testing.T, r *testutil.Repo) *httptest.Server {
	t.Helper()
	head, err := r.Git().Head()
	require.NoError(t, err)

	m := &mirror{t: t, repo: r.Git(), head: head.Name().Short()}
	mux := http.NewServeMux()
	mux.HandleFunc(mirrorPath, m.serialized(m.repository))
	mux.HandleFunc(mirrorPath+"/commits", m.serialized(m.commits))
	mux.HandleFunc(mirrorPath+"/branches", m.serialized(m.branches))
	mux.HandleFunc(mirrorPath+"/compare/", m.serialized(m.compare))
	mux.HandleFunc("/api/graphql", m.serialized(m.tags))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func (m *mirror) serialized(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(err)
	}
}

func notFound(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
	writeJSON(w, map[string]any{"message": "Not Found"})
}

func (m *mirror) repository(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{"default_branch": m.head})
}

// resolve maps a branch name or sha to a commit hash.
func (m *mirror) resolve(rev string) (plumbing.Hash, bool) {
	if rev == "" {
		rev = m.head
	}
	if ref, err := m.repo.Reference(plumbing.NewBranchReferenceName(rev), true); err == nil {
		return ref.Hash(), true
	}
	h := plumbing.NewHash(rev)
	if _, err := m.repo.CommitObject(h); err != nil {
		return plumbing.ZeroHash, false
	}
	return h, true
}

// commits lists the history of ?sha= newest first, in one page.
func (m *mirror) commits(w http.ResponseWriter, r *http.Request) {
	start, ok := m.resolve(r.URL.Query().Get("sha"))
	if !ok {
		notFound(w)
		return
	}

	iter, err := m.repo.Log(&gogit.LogOptions{From: start, Order: gogit.LogOrderCommitterTime})
	require.NoError(m.t, err)

	var out []map[string]any
	require.NoError(m.t, iter.ForEach(func(c *object.Commit) error {
		out = append(out, commitJSON(c))
		return nil
	}))
	writeJSON(w, out)
}

func commitJSON(c *object.Commit) map[string]any {
	parents := make([]map[string]any, 0, len(c.ParentHashes))
	for _, p := range c.ParentHashes {
		parents = append(parents, map[string]any{"sha": p.String()})
	}
	return map[string]any{
		"sha": c.Hash.String(),
		"commit": map[string]any{
			"message": c.Message,
			"committer": map[string]any{
				"name":  c.Committer.Name,
				"email": c.Committer.Email,
				"date":  c.Committer.When.UTC().Format(time.RFC3339),
			},
		},
		"parents": parents,
	}
}

func (m *mirror) branches(w http.ResponseWriter, _ *http.Request) {
	iter, err := m.repo.Branches()
	require.NoError(m.t, err)

	var out []map[string]any
	require.NoError(m.t, iter.ForEach(func(ref *plumbing.Reference) error {
		out = append(out, map[string]any{
			"name":   ref.Name().Short(),
			"commit": map[string]any{"sha": ref.Hash().String()},
		})
		return nil
	}))
	writeJSON(w, out)
}

func (m *mirror) compare(w http.ResponseWriter, r *http.Request) {
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, mirrorPath+"/compare/"), "...", 2)
	if len(parts) != 2 {
		notFound(w)
		return
	}
	a, err := m.repo.CommitObject(plumbing.NewHash(parts[0]))
	require.NoError(m.t, err)
	b, err := m.repo.CommitObject(plumbing.NewHash(parts[1]))
	require.NoError(m.t, err)

	bases, err := a.MergeBase(b)
	require.NoError(m.t, err)
	if len(bases) == 0 {
		notFound(w)
		return
	}
	writeJSON(w, map[string]any{"merge_base_commit": map[string]any{"sha": bases[0].Hash.String()}})
}

// tags answers the GraphQL tag query with every tag in one page.
func (m *mirror) tags(w http.ResponseWriter, _ *http.Request) {
	iter, err := m.repo.Tags()
	require.NoError(m.t, err)

	var nodes []map[string]any
	require.NoError(m.t, iter.ForEach(func(ref *plumbing.Reference) error {
		nodes = append(nodes, map[string]any{
			"name":   ref.Name().Short(),
			"target": m.tagTarget(ref.Hash()),
		})
		return nil
	}))
	sort.Slice(nodes, func(i, j int) bool { return nodes[i]["name"].(string) < nodes[j]["name"].(string) })

	writeJSON(w, map[string]any{
		"data": map[string]any{
			"repository": map[string]any{
				"refs": map[string]any{
					"nodes":    nodes,
					"pageInfo": map[string]any{"hasNextPage": false, "endCursor": ""},
				},
			},
		},
	})
}

func (m *mirror) tagTarget(h plumbing.Hash) map[string]any {
	tag, err := m.repo.TagObject(h)
	if err != nil {
		return map[string]any{"__typename": "Commit", "oid": h.String()}
	}
	return map[string]any{
		"__typename": "Tag",
		"oid":        h.String(),
		"message":    tag.Message,
		"tagger": map[string]any{
			"name":  tag.Tagger.Name,
			"email": tag.Tagger.Email,
			"date":  tag.Tagger.When.UTC().Format(time.RFC3339),
		},
		"target": m.tagTarget(tag.Target),
	}
}
