package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// buildStore adds commits given as "sha: parent..." in the order listed and
// links them. Commit i is dated epoch + i minutes.
func buildStore(t *testing.T, edges ...[]string) *CommitStore {
	t.Helper()
	s := NewCommitStore()
	for i, e := range edges {
		s.Add(RawCommit{
			Sha:       e[0],
			Message:   "commit " + e[0],
			Committer: Committer{Date: epoch.Add(time.Duration(i) * time.Minute), Name: "Test", Email: "test@example.com"},
			Parents:   e[1:],
		})
	}
	require.NoError(t, s.Link())
	return s
}

func get(t *testing.T, s *CommitStore, sha string) *Commit {
	t.Helper()
	c, ok := s.Get(sha)
	require.True(t, ok, "commit %s", sha)
	return c
}

func shas(commits []*Commit) []string {
	out := make([]string, len(commits))
	for i, c := range commits {
		out[i] = c.Sha
	}
	return out
}
