// Package output renders repository snapshots and graph queries as text or
// JSON for the command line.
package output

import (
	"strings"
	"time"

	"github.com/MyCarrier-DevOps/go-gitgraph/internal/graph"
)

// CommitView is the printable form of a commit.
type CommitView struct {
	Sha     string    `json:"sha"`
	Parents []string  `json:"parents"`
	Date    time.Time `json:"date"`
	Author  string    `json:"author"`
	Subject string    `json:"subject"`

	// Merge is set when the message names what was merged.
	Merge *MergeInfo `json:"merge,omitempty"`
}

// BranchView is the printable form of a branch.
type BranchView struct {
	Name      string `json:"name"`
	Canonical string `json:"canonical"`
	Remote    bool   `json:"remote"`
	Detached  bool   `json:"detached"`
	Tip       string `json:"tip"`
	Commits   int    `json:"commits"`
}

// TagView is the printable form of a tag.
type TagView struct {
	Name      string `json:"name"`
	Target    string `json:"target"`
	Commit    string `json:"commit"`
	Annotated bool   `json:"annotated"`
	Message   string `json:"message,omitempty"`
}

// Summary describes a repository snapshot.
type Summary struct {
	Head         BranchView     `json:"head"`
	Fingerprint  string         `json:"fingerprint"`
	TotalCommits int            `json:"totalCommits"`
	HeadCommits  int            `json:"headCommits"`
	Branches     []BranchView   `json:"branches"`
	Tags         []TagView      `json:"tags"`
	Remotes      []graph.Remote `json:"remotes"`
}

// NewCommitView converts a commit. A nil commit yields the zero view.
func NewCommitView(c *graph.Commit) CommitView {
	if c == nil {
		return CommitView{}
	}
	v := CommitView{
		Sha:     c.Sha,
		Parents: c.ParentShas(),
		Date:    c.When(),
		Author:  c.Committer.Name,
		Subject: subject(c.Message),
	}
	if m, ok := ParseMerge(strings.TrimSpace(c.Message)); ok {
		v.Merge = &m
	}
	return v
}

// NewCommitViews converts commits in order.
func NewCommitViews(commits []*graph.Commit) []CommitView {
	views := make([]CommitView, len(commits))
	for i, c := range commits {
		views[i] = NewCommitView(c)
	}
	return views
}

// NewSummary describes repo. It fails only if the fingerprint cannot be computed.
func NewSummary(repo *graph.Repository) (Summary, error) {
	fp, err := repo.Fingerprint()
	if err != nil {
		return Summary{}, err
	}

	s := Summary{
		Fingerprint:  fp,
		TotalCommits: repo.Store().Len(),
		HeadCommits:  len(repo.Commits),
		Branches:     make([]BranchView, 0, len(repo.Branches)),
		Tags:         make([]TagView, 0, len(repo.Tags)),
		Remotes:      append([]graph.Remote{}, repo.Network.Remotes...),
	}
	if repo.Head != nil {
		s.Head = branchView(repo.Head)
	}
	for _, b := range repo.Branches {
		s.Branches = append(s.Branches, branchView(b))
	}
	for _, t := range repo.Tags {
		s.Tags = append(s.Tags, TagView{
			Name:      t.FriendlyName(),
			Target:    t.TargetSha,
			Commit:    graph.CommitSha(orEmpty(t.PeeledTarget)),
			Annotated: t.IsAnnotated(),
			Message:   subject(t.Message),
		})
	}
	return s, nil
}

func branchView(b *graph.Branch) BranchView {
	return BranchView{
		Name:      b.FriendlyName(),
		Canonical: b.CanonicalName(),
		Remote:    b.IsRemote,
		Detached:  b.IsDetachedHead,
		Tip:       graph.CommitSha(orEmpty(b.Tip)),
		Commits:   len(b.Commits),
	}
}

func orEmpty(c *graph.Commit) *graph.Commit {
	if c == nil {
		return &graph.Commit{}
	}
	return c
}

// subject returns the first line of a commit or tag message.
func subject(msg string) string {
	msg = strings.TrimSpace(msg)
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return strings.TrimSpace(msg)
}

func short(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// NewGenerationViews converts commit generations level by level.
func NewGenerationViews(generations [][]*graph.Commit) [][]CommitView {
	views := make([][]CommitView, len(generations))
	for i, level := range generations {
		views[i] = NewCommitViews(level)
	}
	return views
}
