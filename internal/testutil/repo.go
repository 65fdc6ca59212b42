// Package testutil builds throwaway git repositories with a controlled
// history for tests of the local backend, the preparer and the CLI.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gogitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Epoch is the committer date of the first commit made by a Repo. Every
// further commit is one minute later.
var Epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// Repo is a builder for a temporary repository.
type Repo struct {
	t     testing.TB
	path  string
	repo  *gogit.Repository
	clock time.Time
	n     int
}

// NewRepo initializes an empty repository with a working tree in a
// temporary directory.
func NewRepo(t testing.TB) *Repo {
	t.Helper()
	return initRepo(t, t.TempDir(), false)
}

// NewBareRepo initializes an empty bare repository.
func NewBareRepo(t testing.TB) *Repo {
	t.Helper()
	return initRepo(t, t.TempDir(), true)
}

func initRepo(t testing.TB, dir string, bare bool) *Repo {
	t.Helper()
	repo, err := gogit.PlainInit(dir, bare)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}
	return &Repo{t: t, path: dir, repo: repo, clock: Epoch.Add(-time.Minute)}
}

// Path returns the working tree root, or the repository directory when bare.
func (r *Repo) Path() string {
	return r.path
}

// GitDir returns the .git directory.
func (r *Repo) GitDir() string {
	return filepath.Join(r.path, ".git")
}

// Git exposes the underlying go-git repository.
func (r *Repo) Git() *gogit.Repository {
	return r.repo
}

// Commit records a commit on top of HEAD and returns its sha.
func (r *Repo) Commit(message string) string {
	r.t.Helper()
	return r.commit(message, nil)
}

// Merge records a merge commit whose parents are HEAD and other.
func (r *Repo) Merge(message, other string) string {
	r.t.Helper()
	head := r.Head()
	return r.commit(message, []plumbing.Hash{plumbing.NewHash(head), plumbing.NewHash(other)})
}

func (r *Repo) commit(message string, parents []plumbing.Hash) string {
	r.t.Helper()
	r.clock = r.clock.Add(time.Minute)
	r.n++

	wt, err := r.repo.Worktree()
	if err != nil {
		r.t.Fatalf("worktree: %v", err)
	}

	name := fmt.Sprintf("change-%03d.txt", r.n)
	if err := os.WriteFile(filepath.Join(r.path, name), []byte(message), 0o644); err != nil {
		r.t.Fatalf("write %s: %v", name, err)
	}
	if _, err := wt.Add(name); err != nil {
		r.t.Fatalf("stage %s: %v", name, err)
	}

	sig := r.signature()
	hash, err := wt.Commit(message, &gogit.CommitOptions{
		Author:    sig,
		Committer: sig,
		Parents:   parents,
	})
	if err != nil {
		r.t.Fatalf("commit %q: %v", message, err)
	}
	return hash.String()
}

func (r *Repo) signature() *object.Signature {
	return &object.Signature{Name: "Test", Email: "test@example.com", When: r.clock}
}

// Tag creates a lightweight tag pointing at sha.
func (r *Repo) Tag(name, sha string) {
	r.t.Helper()
	r.setRef(plumbing.NewTagReferenceName(name), sha)
}

// AnnotatedTag creates an annotated tag of sha and returns the sha of the
// tag object.
func (r *Repo) AnnotatedTag(name, sha, message string) string {
	r.t.Helper()
	ref, err := r.repo.CreateTag(name, plumbing.NewHash(sha), &gogit.CreateTagOptions{
		Tagger:  r.signature(),
		Message: message,
	})
	if err != nil {
		r.t.Fatalf("annotated tag %s: %v", name, err)
	}
	return ref.Hash().String()
}

// NestedTag creates an annotated tag whose target is another tag object.
func (r *Repo) NestedTag(name, tagObject, message string) {
	r.t.Helper()
	tag := &object.Tag{
		Name:       name,
		Tagger:     *r.signature(),
		Message:    message,
		TargetType: plumbing.TagObject,
		Target:     plumbing.NewHash(tagObject),
	}
	obj := r.repo.Storer.NewEncodedObject()
	if err := tag.Encode(obj); err != nil {
		r.t.Fatalf("encode tag %s: %v", name, err)
	}
	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		r.t.Fatalf("store tag %s: %v", name, err)
	}
	r.setRef(plumbing.NewTagReferenceName(name), hash.String())
}

// Branch creates or moves a local branch to sha without checking it out.
func (r *Repo) Branch(name, sha string) {
	r.t.Helper()
	r.setRef(plumbing.NewBranchReferenceName(name), sha)
}

// RemoteBranch creates refs/remotes/<remote>/<name> at sha.
func (r *Repo) RemoteBranch(remote, name, sha string) {
	r.t.Helper()
	r.setRef(plumbing.NewRemoteReferenceName(remote, name), sha)
}

// Track configures branch to track remote.
func (r *Repo) Track(branch, remote string) {
	r.t.Helper()
	cfg, err := r.repo.Config()
	if err != nil {
		r.t.Fatalf("read config: %v", err)
	}
	cfg.Branches[branch] = &gogitconfig.Branch{
		Name:   branch,
		Remote: remote,
		Merge:  plumbing.NewBranchReferenceName(branch),
	}
	if err := r.repo.SetConfig(cfg); err != nil {
		r.t.Fatalf("save config: %v", err)
	}
}

// AddRemote registers a remote with a single URL.
func (r *Repo) AddRemote(name, url string) {
	r.t.Helper()
	if _, err := r.repo.CreateRemote(&gogitconfig.RemoteConfig{Name: name, URLs: []string{url}}); err != nil {
		r.t.Fatalf("add remote %s: %v", name, err)
	}
}

// Checkout switches HEAD and the working tree to an existing branch.
func (r *Repo) Checkout(branch string) {
	r.t.Helper()
	wt, err := r.repo.Worktree()
	if err != nil {
		r.t.Fatalf("worktree: %v", err)
	}
	if err := wt.Checkout(&gogit.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(branch)}); err != nil {
		r.t.Fatalf("checkout %s: %v", branch, err)
	}
}

// NewBranch creates a branch at HEAD and checks it out.
func (r *Repo) NewBranch(name string) {
	r.t.Helper()
	r.Branch(name, r.Head())
	r.Checkout(name)
}

// Detach points HEAD directly at sha.
func (r *Repo) Detach(sha string) {
	r.t.Helper()
	r.setRef(plumbing.HEAD, sha)
}

// Head returns the commit HEAD resolves to.
func (r *Repo) Head() string {
	r.t.Helper()
	head, err := r.repo.Head()
	if err != nil {
		r.t.Fatalf("resolve HEAD: %v", err)
	}
	return head.Hash().String()
}

// HeadRef returns what HEAD points to: a branch reference name when
// attached, otherwise a sha.
func (r *Repo) HeadRef() string {
	r.t.Helper()
	ref, err := r.repo.Reference(plumbing.HEAD, false)
	if err != nil {
		r.t.Fatalf("read HEAD: %v", err)
	}
	if ref.Type() == plumbing.SymbolicReference {
		return ref.Target().String()
	}
	return ref.Hash().String()
}

// WriteFile writes content to name relative to the repository root.
func (r *Repo) WriteFile(name, content string) string {
	r.t.Helper()
	path := filepath.Join(r.path, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func (r *Repo) setRef(name plumbing.ReferenceName, sha string) {
	r.t.Helper()
	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(name, plumbing.NewHash(sha))); err != nil {
		r.t.Fatalf("set %s: %v", name, err)
	}
}
