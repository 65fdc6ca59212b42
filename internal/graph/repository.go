package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/MyCarrier-DevOps/go-gitgraph/internal/toposort"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Provider produces one Repository snapshot per call. The local and remote
// backends both implement it; callers do not depend on which one they use.
type Provider interface {
	Snapshot(ctx context.Context) (*Repository, error)
}

// ObjectDatabase answers queries that a backend can serve more cheaply than
// a walk of the in-memory graph.
type ObjectDatabase interface {
	// FindMergeBase returns the SHA of the best common ancestor of two
	// commits, or an empty string if they share no history.
	FindMergeBase(ctx context.Context, sha1, sha2 string) (string, error)
}

// Repository is a point-in-time snapshot of one repository. It owns the
// commit store; branches and tags reference commits in it. Changes to the
// source after the snapshot was taken are not reflected.
type Repository struct {
	// Head is the checked-out branch, or a detached head.
	Head *Branch

	// Commits are the commits reachable from Head, most recent first.
	Commits []*Commit

	Branches []*Branch
	Tags     []*Tag
	Network  Network

	// ObjectDatabase serves merge-base queries. When nil, the snapshot
	// computes them from its own graph.
	ObjectDatabase ObjectDatabase

	store *CommitStore
}

// NewRepository creates a snapshot over store. The caller fills in the
// remaining fields.
func NewRepository(store *CommitStore) *Repository {
	if store == nil {
		store = NewCommitStore()
	}
	return &Repository{store: store}
}

// Store returns the commit store backing the snapshot.
func (r *Repository) Store() *CommitStore {
	return r.store
}

// Lookup returns the commit with the given SHA.
func (r *Repository) Lookup(sha string) (*Commit, bool) {
	return r.store.Get(sha)
}

// AllCommits returns every commit in the snapshot, in ingestion order.
func (r *Repository) AllCommits() []*Commit {
	return r.store.Commits()
}

// FindBranch returns the first branch whose friendly or canonical name is name.
func (r *Repository) FindBranch(name string) (*Branch, error) {
	for _, b := range r.Branches {
		if b.Name.Friendly == name || b.Name.Canonical == name {
			return b, nil
		}
	}
	return nil, NewOpError("find branch", name, ErrNotFound, nil)
}

// FindTag returns the tag whose friendly or canonical name is name.
func (r *Repository) FindTag(name string) (*Tag, error) {
	for _, t := range r.Tags {
		if t.Name.Friendly == name || t.Name.Canonical == name {
			return t, nil
		}
	}
	return nil, NewOpError("find tag", name, ErrNotFound, nil)
}

// FindMergeBase returns the best common ancestor of a and b, or nil when
// they share no history.
func (r *Repository) FindMergeBase(ctx context.Context, a, b *Commit) (*Commit, error) {
	db := r.ObjectDatabase
	if db == nil {
		db = GraphDatabase{Store: r.store}
	}
	sha, err := db.FindMergeBase(ctx, a.Sha, b.Sha)
	if err != nil {
		return nil, fmt.Errorf("finding merge base of %s and %s: %w", a.ShortSha(), b.ShortSha(), err)
	}
	if sha == "" {
		return nil, nil
	}
	return r.store.Must(sha)
}

// TopologicalOrder returns all commits with every parent before its children.
func (r *Repository) TopologicalOrder(opts ...toposort.Option) ([]*Commit, error) {
	return TopologicalOrder(r.store.Commits(), opts...)
}

// Generations groups all commits by their distance from a root commit.
func (r *Repository) Generations(opts ...toposort.Option) ([][]*Commit, error) {
	return Generations(r.store.Commits(), opts...)
}

// Validate checks the snapshot's structural invariants: the commit graph is
// acyclic, each branch tip leads its commit list, and each tag has a peeled
// commit.
func (r *Repository) Validate() error {
	if _, err := r.TopologicalOrder(); err != nil {
		return fmt.Errorf("validating commit graph: %w", err)
	}
	branches := r.Branches
	if r.Head != nil {
		branches = append([]*Branch{r.Head}, branches...)
	}
	for _, b := range branches {
		if len(b.Commits) == 0 {
			continue
		}
		if b.Tip == nil {
			return fmt.Errorf("branch %s: no tip, first commit is %s", b.FriendlyName(), b.Commits[0].ShortSha())
		}
		if !b.Tip.Equal(b.Commits[0]) {
			return fmt.Errorf("branch %s: tip %s is not the first commit", b.FriendlyName(), b.Tip.ShortSha())
		}
	}
	for _, t := range r.Tags {
		if t.PeeledTarget == nil {
			return NewOpError("validate tag", t.FriendlyName(), ErrMissingObject, nil)
		}
	}
	return nil
}

// Fingerprint returns a content identifier for the snapshot's references:
// a CIDv1 over the sorted set of ref names and the commits they resolve to.
// Two snapshots with the same refs at the same commits share a fingerprint.
func (r *Repository) Fingerprint() (string, error) {
	var lines []string
	if r.Head != nil && r.Head.Tip != nil {
		lines = append(lines, "HEAD "+r.Head.Tip.Sha)
	}
	for _, b := range r.Branches {
		if b.Tip != nil {
			lines = append(lines, b.CanonicalName()+" "+b.Tip.Sha)
		}
	}
	for _, t := range r.Tags {
		if t.PeeledTarget != nil {
			lines = append(lines, t.CanonicalName()+" "+t.PeeledTarget.Sha)
		}
	}
	sort.Strings(lines)

	mh, err := multihash.Sum([]byte(strings.Join(lines, "\n")), multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("hashing snapshot refs: %w", err)
	}
	return cid.NewCidV1(cid.Raw, mh).String(), nil
}

// TopologicalOrder sorts commits so that every parent precedes its children.
func TopologicalOrder(commits []*Commit, opts ...toposort.Option) ([]*Commit, error) {
	return toposort.Sort(commits, commitParents, CommitSha, opts...)
}

// Generations groups commits into levels: root commits first, then each
// commit one level above its highest parent.
func Generations(commits []*Commit, opts ...toposort.Option) ([][]*Commit, error) {
	return toposort.Group(commits, commitParents, CommitSha, opts...)
}

func commitParents(c *Commit) []*Commit {
	return c.Parents
}
