package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	gh "github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/require"
)

const (
	repoPath = "/api/v3/repos/testowner/testrepo"
	cloneURL = "https://github.com/testowner/testrepo.git"
)

// writeJSON encodes v as JSON to the response writer. Panics on error (test only).
func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(err)
	}
}

// newTestServer creates a test HTTP server and a GitHub client pointed at it.
func newTestServer(t *testing.T, mux *http.ServeMux) (*gh.Client, func()) {
	t.Helper()
	server := httptest.NewServer(mux)
	client, err := gh.NewClient(nil).WithEnterpriseURLs(server.URL+"/", server.URL+"/")
	require.NoError(t, err)
	return client, server.Close
}

// newTestRepo creates a GitHubRepository backed by a test server. Retries
// do not sleep.
func newTestRepo(t *testing.T, mux *http.ServeMux, opts ...Option) (*GitHubRepository, func()) {
	t.Helper()
	client, cleanup := newTestServer(t, mux)
	repo := NewGitHubRepository(client, "testowner", "testrepo", opts...)
	repo.sleep = func(context.Context, time.Duration) error { return nil }
	return repo, cleanup
}

func sha(n int) string {
	return fmt.Sprintf("%040x", n)
}

type fakeCommit struct {
	parents []string
	minute  int
}

type fakeBranch struct {
	name   string
	tip    string
	listed string // head reported by the branch listing, defaults to tip
}

// fakeGitHub serves the subset of the GitHub API the adapter uses.
type fakeGitHub struct {
	mu          sync.Mutex
	calls       map[string]int
	rateLimited map[string]int // responses to refuse per route before serving

	commits    map[string]fakeCommit
	branches   []fakeBranch
	tagNodes   []map[string]any
	restTags   []map[string]any
	mergeBases map[string]string
	pageSize   int
}

// newFakeGitHub returns this history:
//
//	c1 ── c2 ── c3   main
//	 │     └─── f1   feature
//	 └── o1          tagged only
func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{
		calls:       make(map[string]int),
		rateLimited: make(map[string]int),
		commits: map[string]fakeCommit{
			sha(1): {minute: 1},
			sha(2): {parents: []string{sha(1)}, minute: 2},
			sha(3): {parents: []string{sha(2)}, minute: 3},
			sha(4): {parents: []string{sha(2)}, minute: 4},
			sha(5): {parents: []string{sha(1)}, minute: 5},
		},
		branches: []fakeBranch{
			{name: "main", tip: sha(3)},
			{name: "feature", tip: sha(4)},
		},
		tagNodes: []map[string]any{
			lightweightTagNode("v1.0.0", "Commit", sha(1)),
			annotatedTagNode("v2.0.0", sha(100), "release two", map[string]any{"__typename": "Commit", "oid": sha(3)}),
			lightweightTagNode("docs", "Tree", sha(200)),
			annotatedTagNode("nested", sha(101), "outer", map[string]any{
				"__typename": "Tag",
				"oid":        sha(102),
				"target":     map[string]any{"__typename": "Commit", "oid": sha(2)},
			}),
			lightweightTagNode("old", "Commit", sha(5)),
		},
		restTags: []map[string]any{
			{"name": "v1.0.0", "commit": map[string]any{"sha": sha(1)}},
		},
		mergeBases: map[string]string{
			sha(3) + "..." + sha(4): sha(2),
		},
	}
}

func lightweightTagNode(name, typeName, oid string) map[string]any {
	return map[string]any{
		"name":   name,
		"target": map[string]any{"__typename": typeName, "oid": oid},
	}
}

func annotatedTagNode(name, oid, message string, target map[string]any) map[string]any {
	return map[string]any{
		"name": name,
		"target": map[string]any{
			"__typename": "Tag",
			"oid":        oid,
			"message":    message,
			"tagger": map[string]any{
				"name":  "Releaser",
				"email": "releaser@example.com",
				"date":  "2025-02-01T00:00:00Z",
			},
			"target": target,
		},
	}
}

func (f *fakeGitHub) callCount(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

func (f *fakeGitHub) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc(repoPath, f.route("repo", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"default_branch": "main", "clone_url": cloneURL})
	}))
	mux.HandleFunc(repoPath+"/commits", f.route("commits", f.listCommits))
	mux.HandleFunc(repoPath+"/branches", f.route("branches", f.listBranches))
	mux.HandleFunc(repoPath+"/tags", f.route("tags", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, f.restTags)
	}))
	mux.HandleFunc(repoPath+"/compare/", f.route("compare", f.compare))
	mux.HandleFunc("/api/graphql", f.route("graphql", f.graphql))
	return mux
}

// route counts calls and answers with a primary rate limit response while
// rateLimited[name] is positive. The reset time is in the past so the
// client does not hold back the retry.
func (f *fakeGitHub) route(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[name]++
		limited := f.rateLimited[name] > 0
		if limited {
			f.rateLimited[name]--
		}
		f.mu.Unlock()

		if limited {
			w.Header().Set("X-RateLimit-Limit", "60")
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(-time.Minute).Unix(), 10))
			w.WriteHeader(http.StatusForbidden)
			writeJSON(w, map[string]any{"message": "API rate limit exceeded"})
			return
		}
		h(w, r)
	}
}

func (f *fakeGitHub) listCommits(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("sha")
	if ref == "" {
		ref = "main"
	}
	start := ref
	for _, b := range f.branches {
		if b.name == ref {
			start = b.tip
		}
	}
	if _, ok := f.commits[start]; !ok {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]any{"message": "No commit found for SHA: " + ref})
		return
	}

	shas := f.history(start)
	if f.pageSize > 0 {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page == 0 {
			page = 1
		}
		from := min((page-1)*f.pageSize, len(shas))
		to := min(from+f.pageSize, len(shas))
		if to < len(shas) {
			w.Header().Set("Link", fmt.Sprintf(`<http://%s%s?page=%d>; rel="next"`, r.Host, r.URL.Path, page+1))
		}
		shas = shas[from:to]
	}

	out := make([]map[string]any, 0, len(shas))
	for _, s := range shas {
		out = append(out, f.commitJSON(s))
	}
	writeJSON(w, out)
}

// history lists the commits reachable from start, newest first.
func (f *fakeGitHub) history(start string) []string {
	seen := map[string]bool{}
	stack := []string{start}
	var shas []string
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[s] {
			continue
		}
		seen[s] = true
		shas = append(shas, s)
		stack = append(stack, f.commits[s].parents...)
	}
	sort.Slice(shas, func(i, j int) bool {
		return f.commits[shas[i]].minute > f.commits[shas[j]].minute
	})
	return shas
}

func (f *fakeGitHub) commitJSON(s string) map[string]any {
	c := f.commits[s]
	parents := make([]map[string]any, 0, len(c.parents))
	for _, p := range c.parents {
		parents = append(parents, map[string]any{"sha": p})
	}
	return map[string]any{
		"sha": s,
		"commit": map[string]any{
			"message": "commit " + s[len(s)-3:],
			"committer": map[string]any{
				"name":  "Test",
				"email": "test@example.com",
				"date":  fakeDate(c.minute).Format(time.RFC3339),
			},
		},
		"parents": parents,
	}
}

func fakeDate(minute int) time.Time {
	return time.Date(2025, 1, 1, 12, minute, 0, 0, time.UTC)
}

func (f *fakeGitHub) listBranches(w http.ResponseWriter, _ *http.Request) {
	out := make([]map[string]any, 0, len(f.branches))
	for _, b := range f.branches {
		head := b.listed
		if head == "" {
			head = b.tip
		}
		out = append(out, map[string]any{"name": b.name, "commit": map[string]any{"sha": head}})
	}
	writeJSON(w, out)
}

func (f *fakeGitHub) compare(w http.ResponseWriter, r *http.Request) {
	spec := strings.TrimPrefix(r.URL.Path, repoPath+"/compare/")
	base, ok := f.mergeBases[spec]
	if !ok {
		parts := strings.SplitN(spec, "...", 2)
		if len(parts) == 2 {
			base, ok = f.mergeBases[parts[1]+"..."+parts[0]]
		}
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]any{"message": "Not Found"})
		return
	}
	writeJSON(w, map[string]any{
		"status":            "diverged",
		"merge_base_commit": map[string]any{"sha": base},
	})
}

// graphql serves the tag query in pages of two nodes.
func (f *fakeGitHub) graphql(w http.ResponseWriter, r *http.Request) {
	var req graphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := 0
	if c, ok := req.Variables["cursor"].(string); ok {
		start, _ = strconv.Atoi(c)
	}
	end := min(start+2, len(f.tagNodes))

	writeJSON(w, map[string]any{
		"data": map[string]any{
			"repository": map[string]any{
				"refs": map[string]any{
					"nodes": f.tagNodes[start:end],
					"pageInfo": map[string]any{
						"hasNextPage": end < len(f.tagNodes),
						"endCursor":   strconv.Itoa(end),
					},
				},
			},
		},
	})
}
