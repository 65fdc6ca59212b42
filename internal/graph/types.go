// Package graph defines the canonical commit graph shared by every backend:
// commits, branches, tags and remotes, held in one Repository snapshot.
// Backends populate it through a CommitStore; reachability and ordering
// queries operate on it without knowing where the data came from.
package graph

import (
	"strings"
	"time"
)

const (
	localBranchPrefix          = "refs/heads/"
	remoteTrackingBranchPrefix = "refs/remotes/"
	tagRefPrefix               = "refs/tags/"

	// DetachedHeadName is the canonical and friendly name of a detached HEAD.
	DetachedHeadName = "(no branch)"
)

// Committer is the identity and timestamp recorded on a commit or tag annotation.
type Committer struct {
	Date  time.Time
	Name  string
	Email string
}

// Commit is a node in the commit graph. Identity is by Sha alone.
// Parents point into the CommitStore that created the commit.
type Commit struct {
	Sha       string
	Message   string
	Parents   []*Commit
	Committer Committer
}

// When returns the committer date.
func (c *Commit) When() time.Time {
	return c.Committer.Date
}

// Equal reports whether c and other have the same SHA. Two nil commits are equal.
func (c *Commit) Equal(other *Commit) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Sha == other.Sha
}

// IsMerge returns true if the commit has more than one parent.
func (c *Commit) IsMerge() bool {
	return len(c.Parents) > 1
}

// ShortSha returns the first 7 characters of the SHA.
func (c *Commit) ShortSha() string {
	if len(c.Sha) >= 7 {
		return c.Sha[:7]
	}
	return c.Sha
}

// ParentShas returns the SHAs of the commit's parents in order.
func (c *Commit) ParentShas() []string {
	shas := make([]string, len(c.Parents))
	for i, p := range c.Parents {
		shas[i] = p.Sha
	}
	return shas
}

// CommitSha is the identity key of a commit.
func CommitSha(c *Commit) string {
	return c.Sha
}

// ReferenceName represents a git reference with canonical and friendly forms.
type ReferenceName struct {
	Canonical     string // e.g., "refs/heads/main"
	Friendly      string // e.g., "main"
	WithoutRemote string // e.g., "main" (strips "origin/" from remote refs)
}

// NewReferenceName creates a ReferenceName from a canonical ref path.
func NewReferenceName(canonical string) ReferenceName {
	friendly := canonical
	withoutRemote := canonical

	switch {
	case strings.HasPrefix(canonical, localBranchPrefix):
		friendly = canonical[len(localBranchPrefix):]
		withoutRemote = friendly
	case strings.HasPrefix(canonical, remoteTrackingBranchPrefix):
		friendly = canonical[len(remoteTrackingBranchPrefix):]
		withoutRemote = stripRemote(friendly)
	case strings.HasPrefix(canonical, tagRefPrefix):
		friendly = canonical[len(tagRefPrefix):]
		withoutRemote = friendly
	}

	return ReferenceName{
		Canonical:     canonical,
		Friendly:      friendly,
		WithoutRemote: withoutRemote,
	}
}

// NewBranchReferenceName creates a ReferenceName for a local branch.
func NewBranchReferenceName(name string) ReferenceName {
	return NewReferenceName(localBranchPrefix + name)
}

// NewTagReferenceName creates a ReferenceName for a tag.
func NewTagReferenceName(name string) ReferenceName {
	return NewReferenceName(tagRefPrefix + name)
}

// IsBranch returns true if this reference is a local branch.
func (r ReferenceName) IsBranch() bool {
	return strings.HasPrefix(r.Canonical, localBranchPrefix)
}

// IsRemoteBranch returns true if this reference is a remote tracking branch.
func (r ReferenceName) IsRemoteBranch() bool {
	return strings.HasPrefix(r.Canonical, remoteTrackingBranchPrefix)
}

// IsTag returns true if this reference is a tag.
func (r ReferenceName) IsTag() bool {
	return strings.HasPrefix(r.Canonical, tagRefPrefix)
}

func stripRemote(friendly string) string {
	if idx := strings.Index(friendly, "/"); idx >= 0 {
		return friendly[idx+1:]
	}
	return friendly
}

// Branch is a named line of history. Commits run from the tip toward the
// root, most recent first; Tip is always Commits[0] when Commits is non-empty.
type Branch struct {
	Name           ReferenceName
	Tip            *Commit
	Commits        []*Commit
	IsTracking     bool
	IsRemote       bool
	IsDetachedHead bool
}

// NewBranch creates a branch whose tip is the first of commits.
func NewBranch(name ReferenceName, commits []*Commit) *Branch {
	b := &Branch{Name: name, Commits: commits}
	if len(commits) > 0 {
		b.Tip = commits[0]
	}
	return b
}

// NewDetachedHead creates the branch representing a detached HEAD.
func NewDetachedHead(commits []*Commit) *Branch {
	b := NewBranch(ReferenceName{
		Canonical:     DetachedHeadName,
		Friendly:      DetachedHeadName,
		WithoutRemote: DetachedHeadName,
	}, commits)
	b.IsDetachedHead = true
	return b
}

// FriendlyName returns the friendly name of the branch.
func (b *Branch) FriendlyName() string {
	return b.Name.Friendly
}

// CanonicalName returns the full reference name of the branch.
func (b *Branch) CanonicalName() string {
	return b.Name.Canonical
}

// normalizedName is the friendly name with the remote prefix removed for
// remote branches.
func (b *Branch) normalizedName() string {
	if b.IsRemote {
		return stripRemote(b.Name.Friendly)
	}
	return b.Name.Friendly
}

// IsSameBranch reports whether b and other name the same logical branch,
// comparing friendly names with any remote prefix stripped.
func (b *Branch) IsSameBranch(other *Branch) bool {
	if b == nil || other == nil {
		return false
	}
	return b.normalizedName() == other.normalizedName()
}

// CommitsPriorTo returns the branch commits from the first one whose
// committer date is not after olderThan.
func (b *Branch) CommitsPriorTo(olderThan time.Time) []*Commit {
	for i, c := range b.Commits {
		if !c.When().After(olderThan) {
			return b.Commits[i:]
		}
	}
	return nil
}

// Tag is a named reference to a commit.
type Tag struct {
	Name ReferenceName

	// Message is the annotation message; empty for lightweight tags.
	Message string

	// Author is the tagger of an annotated tag; nil for lightweight tags.
	Author *Committer

	// TargetSha is the object the tag reference points at. For annotated
	// tags this is the tag object, not a commit.
	TargetSha string

	// Target is the commit the reference resolves to. For annotated tags it
	// is reached through the annotation and equals PeeledTarget.
	Target *Commit

	// PeeledTarget is the commit reached by dereferencing every tag level.
	PeeledTarget *Commit
}

// FriendlyName returns the short tag name.
func (t *Tag) FriendlyName() string {
	return t.Name.Friendly
}

// CanonicalName returns the full reference name of the tag.
func (t *Tag) CanonicalName() string {
	return t.Name.Canonical
}

// IsAnnotated returns true if the tag carries an annotation.
func (t *Tag) IsAnnotated() bool {
	return t.Author != nil
}

// Remote is a configured remote of a repository.
type Remote struct {
	Name string
	URL  string
}

// Network is the set of remotes of a repository.
type Network struct {
	Remotes []Remote
}

// URLs returns the URLs of all remotes in order.
func (n Network) URLs() []string {
	urls := make([]string, 0, len(n.Remotes))
	for _, r := range n.Remotes {
		urls = append(urls, r.URL)
	}
	return urls
}

// HasURL reports whether any remote is configured with url.
func (n Network) HasURL(url string) bool {
	for _, r := range n.Remotes {
		if r.URL == url {
			return true
		}
	}
	return false
}
