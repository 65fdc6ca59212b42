// Package git is the local backend: it reads an on-disk repository with
// go-git and translates it into a graph.Repository snapshot. It also
// provides the clone, fetch and normalize operations the preparer uses.
package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/MyCarrier-DevOps/go-gitgraph/internal/graph"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/rs/zerolog/log"
)

// Compile-time checks that GoGitRepository serves as a provider and object database.
var (
	_ graph.Provider       = (*GoGitRepository)(nil)
	_ graph.ObjectDatabase = (*GoGitRepository)(nil)
)

// GoGitRepository reads a local repository using go-git.
type GoGitRepository struct {
	repo    *gogit.Repository
	path    string
	workDir string
}

// Open opens the repository containing path, searching parent directories
// for a .git directory.
func Open(path string) (*GoGitRepository, error) {
	return open(path, true)
}

// OpenExact opens the repository at path. Unlike Open it never searches
// parent directories, so a plain directory inside a working tree is not a
// repository.
func OpenExact(path string) (*GoGitRepository, error) {
	return open(path, false)
}

func open(path string, detect bool) (*GoGitRepository, error) {
	r, err := plainOpen(path, detect)
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, graph.NewOpError("opening git repository at", path, graph.ErrNotFound, err)
		}
		return nil, fmt.Errorf("opening git repository at %s: %w", path, err)
	}

	wt, err := r.Worktree()
	switch {
	case errors.Is(err, gogit.ErrIsBareRepository):
		root := path
		if fs, ok := r.Storer.(*filesystem.Storage); ok {
			root = fs.Filesystem().Root()
		}
		return &GoGitRepository{repo: r, path: root}, nil
	case err != nil:
		return nil, fmt.Errorf("getting worktree: %w", err)
	}

	root := wt.Filesystem.Root()

	return &GoGitRepository{
		repo:    r,
		path:    filepath.Join(root, ".git"),
		workDir: root,
	}, nil
}

// plainOpen opens path as a working tree, a .git directory or a bare
// repository. With detect set it falls back to searching parent directories.
func plainOpen(path string, detect bool) (*gogit.Repository, error) {
	path = filepath.Clean(path)
	if filepath.Base(path) == gogit.GitDirName {
		path = filepath.Dir(path)
	}
	r, err := gogit.PlainOpen(path)
	if detect && errors.Is(err, gogit.ErrRepositoryNotExists) {
		r, err = gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	}
	return r, err
}

// Discover returns the .git directory of the repository enclosing path.
func Discover(path string) (string, error) {
	r, err := Open(path)
	if err != nil {
		return "", err
	}
	return r.Path(), nil
}

// Path returns the path to the .git directory.
func (r *GoGitRepository) Path() string {
	return r.path
}

// WorkingDirectory returns the working tree root, or "" for a bare repository.
func (r *GoGitRepository) WorkingDirectory() string {
	return r.workDir
}

// Network returns the configured remotes, sorted by name.
func (r *GoGitRepository) Network() (graph.Network, error) {
	remotes, err := r.repo.Remotes()
	if err != nil {
		return graph.Network{}, fmt.Errorf("listing remotes: %w", err)
	}

	var network graph.Network
	for _, rm := range remotes {
		cfg := rm.Config()
		for _, url := range cfg.URLs {
			network.Remotes = append(network.Remotes, graph.Remote{Name: cfg.Name, URL: url})
		}
	}
	sort.SliceStable(network.Remotes, func(i, j int) bool {
		return network.Remotes[i].Name < network.Remotes[j].Name
	})
	return network, nil
}

// Snapshot translates every commit, branch and tag reachable from the
// repository's references into one graph.Repository.
func (r *GoGitRepository) Snapshot(ctx context.Context) (*graph.Repository, error) {
	headRef, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, graph.NewOpError("resolve HEAD in", r.path, graph.ErrNotFound, err)
		}
		return nil, fmt.Errorf("getting HEAD: %w", err)
	}

	branchRefs, err := r.branchRefs()
	if err != nil {
		return nil, err
	}
	tagRefs, err := r.tagRefs()
	if err != nil {
		return nil, err
	}

	starts := []plumbing.Hash{headRef.Hash()}
	for _, ref := range branchRefs {
		starts = append(starts, ref.Hash())
	}
	for _, t := range tagRefs {
		starts = append(starts, t.peeled)
	}

	store := graph.NewCommitStore()
	if err := r.collectCommits(ctx, store, starts); err != nil {
		return nil, err
	}
	if err := store.Link(); err != nil {
		return nil, err
	}

	snap := graph.NewRepository(store)
	snap.ObjectDatabase = r

	tracking, err := r.trackingBranches()
	if err != nil {
		return nil, err
	}
	for _, ref := range branchRefs {
		b, err := r.branch(store, ref)
		if err != nil {
			return nil, err
		}
		b.IsTracking = tracking[ref.Name().Short()]
		snap.Branches = append(snap.Branches, b)
	}

	snap.Head, err = r.head(store, headRef, snap.Branches)
	if err != nil {
		return nil, err
	}
	snap.Commits = snap.Head.Commits

	for _, t := range tagRefs {
		tag, err := t.resolve(store)
		if err != nil {
			return nil, err
		}
		snap.Tags = append(snap.Tags, tag)
	}

	snap.Network, err = r.Network()
	if err != nil {
		return nil, err
	}

	if err := snap.Validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("path", r.path).
		Int("commits", store.Len()).
		Int("branches", len(snap.Branches)).
		Int("tags", len(snap.Tags)).
		Msg("local snapshot loaded")

	return snap, nil
}

// collectCommits walks parent links from every start hash and adds each
// commit to the store once. Parents of shallow commits are not followed.
func (r *GoGitRepository) collectCommits(ctx context.Context, store *graph.CommitStore, starts []plumbing.Hash) error {
	shallow := make(map[plumbing.Hash]bool)
	if hashes, err := r.repo.Storer.Shallow(); err == nil {
		for _, h := range hashes {
			shallow[h] = true
		}
	}

	stack := append([]plumbing.Hash(nil), starts...)
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := store.Get(h.String()); ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		c, err := r.repo.CommitObject(h)
		if err != nil {
			return graph.NewOpError("load commit", h.String(), graph.ErrMissingObject, err)
		}

		raw := convertCommit(c)
		if shallow[h] {
			raw.Parents = nil
		}
		store.Add(raw)
		for i := len(raw.Parents) - 1; i >= 0; i-- {
			stack = append(stack, plumbing.NewHash(raw.Parents[i]))
		}
	}
	return nil
}

// branchRefs returns local and remote-tracking branch references sorted by
// name, local first. Symbolic references such as origin/HEAD are skipped.
func (r *GoGitRepository) branchRefs() ([]*plumbing.Reference, error) {
	iter, err := r.repo.References()
	if err != nil {
		return nil, fmt.Errorf("listing references: %w", err)
	}

	var local, remote []*plumbing.Reference
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		switch {
		case ref.Name().IsBranch():
			local = append(local, ref)
		case ref.Name().IsRemote():
			remote = append(remote, ref)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterating references: %w", err)
	}

	byName := func(refs []*plumbing.Reference) {
		sort.Slice(refs, func(i, j int) bool { return refs[i].Name() < refs[j].Name() })
	}
	byName(local)
	byName(remote)
	return append(local, remote...), nil
}

// trackingBranches returns the local branch names configured with an upstream.
func (r *GoGitRepository) trackingBranches() (map[string]bool, error) {
	cfg, err := r.repo.Config()
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	tracking := make(map[string]bool, len(cfg.Branches))
	for name, b := range cfg.Branches {
		tracking[name] = b.Remote != ""
	}
	return tracking, nil
}

func (r *GoGitRepository) branch(store *graph.CommitStore, ref *plumbing.Reference) (*graph.Branch, error) {
	tip, err := store.Must(ref.Hash().String())
	if err != nil {
		return nil, err
	}
	commits, err := graph.History(tip)
	if err != nil {
		return nil, fmt.Errorf("walking branch %s: %w", ref.Name().Short(), err)
	}
	b := graph.NewBranch(graph.NewReferenceName(string(ref.Name())), commits)
	b.IsRemote = ref.Name().IsRemote()
	return b, nil
}

// head returns the branch HEAD points to, sharing the Branch from branches
// when HEAD is attached.
func (r *GoGitRepository) head(store *graph.CommitStore, ref *plumbing.Reference, branches []*graph.Branch) (*graph.Branch, error) {
	if ref.Name().IsBranch() {
		for _, b := range branches {
			if b.CanonicalName() == string(ref.Name()) {
				return b, nil
			}
		}
	}

	tip, err := store.Must(ref.Hash().String())
	if err != nil {
		return nil, err
	}
	commits, err := graph.History(tip)
	if err != nil {
		return nil, fmt.Errorf("walking HEAD: %w", err)
	}
	return graph.NewDetachedHead(commits), nil
}

// FindMergeBase returns the best common ancestor of two commits.
// Returns an empty string if no merge base exists.
func (r *GoGitRepository) FindMergeBase(_ context.Context, sha1, sha2 string) (string, error) {
	hash1 := plumbing.NewHash(sha1)
	hash2 := plumbing.NewHash(sha2)

	c1, err := r.repo.CommitObject(hash1)
	if err != nil {
		return "", graph.NewOpError("load commit", sha1, graph.ErrNotFound, err)
	}

	c2, err := r.repo.CommitObject(hash2)
	if err != nil {
		return "", graph.NewOpError("load commit", sha2, graph.ErrNotFound, err)
	}

	bases, err := c1.MergeBase(c2)
	if err != nil {
		return "", fmt.Errorf("computing merge base: %w", err)
	}

	if len(bases) == 0 {
		return "", nil
	}

	return bases[0].Hash.String(), nil
}

// convertCommit converts a go-git commit to a raw graph commit.
func convertCommit(c *object.Commit) graph.RawCommit {
	parents := make([]string, 0, c.NumParents())
	for _, p := range c.ParentHashes {
		parents = append(parents, p.String())
	}

	return graph.RawCommit{
		Sha:     c.Hash.String(),
		Message: c.Message,
		Committer: graph.Committer{
			Date:  c.Committer.When,
			Name:  c.Committer.Name,
			Email: c.Committer.Email,
		},
		Parents: parents,
	}
}
