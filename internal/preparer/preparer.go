// Package preparer locates or creates the on-disk repository a snapshot is
// read from. A target URL makes the repository dynamic: it is cloned into
// a temporary location, or reused when a matching clone already exists.
package preparer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MyCarrier-DevOps/go-gitgraph/internal/git"
	"github.com/MyCarrier-DevOps/go-gitgraph/internal/graph"

	"github.com/rs/zerolog/log"
)

// Options configures a GitPreparer.
type Options struct {
	// TargetPath is the working directory to search for a repository.
	TargetPath string

	// TargetURL, when set, selects a dynamic repository cloned from it.
	TargetURL string

	// DynamicRepositoryLocation is the parent directory for dynamic
	// clones. Defaults to the system temp directory.
	DynamicRepositoryLocation string

	Credentials *git.Credentials

	// NoFetch skips fetching from origin when normalizing.
	NoFetch bool
}

// GitPreparer resolves the .git directory for a local or dynamic repository.
type GitPreparer struct {
	opts        Options
	dynamicPath string
}

// New creates a GitPreparer. Trailing path separators are removed from the
// target path.
func New(opts Options) *GitPreparer {
	opts.TargetPath = strings.TrimRight(opts.TargetPath, `/\`)
	if opts.TargetPath == "" {
		opts.TargetPath = "."
	}
	return &GitPreparer{opts: opts}
}

// WorkingDirectory returns the target path.
func (p *GitPreparer) WorkingDirectory() string {
	return p.opts.TargetPath
}

// IsDynamicRepository reports whether Initialise produced a dynamic clone.
func (p *GitPreparer) IsDynamicRepository() bool {
	return strings.TrimSpace(p.dynamicPath) != ""
}

// DynamicRepositoryPath returns the .git directory of the dynamic clone, or
// "" before Initialise or for a local repository.
func (p *GitPreparer) DynamicRepositoryPath() string {
	return p.dynamicPath
}

// Initialise prepares the repository. Without a target URL it normalizes
// the local repository when normalise is set. With a target URL it creates
// or reuses a dynamic clone of branch.
func (p *GitPreparer) Initialise(ctx context.Context, normalise bool, branch string) error {
	if strings.TrimSpace(p.opts.TargetURL) == "" {
		if !normalise {
			return nil
		}
		gitDir, err := p.GetDotGitDirectory()
		if err != nil {
			return err
		}
		return git.Normalize(ctx, gitDir, git.NormalizeOptions{
			Credentials: p.opts.Credentials,
			NoFetch:     p.opts.NoFetch,
			Branch:      branch,
		})
	}

	path := CalculateTemporaryRepositoryPath(p.opts.TargetURL, p.opts.DynamicRepositoryLocation)
	gitDir, err := p.createDynamicRepository(ctx, path, branch)
	if err != nil {
		return err
	}
	p.dynamicPath = gitDir
	return nil
}

// CalculateTemporaryRepositoryPath picks the directory a dynamic clone of
// targetURL lives in: the URL's last path segment without ".git" under
// location, or the temp directory when location is empty. An existing
// directory holding some other repository is skipped by appending _1, _2
// and so on until a free or matching directory is found.
func CalculateTemporaryRepositoryPath(targetURL, location string) string {
	if location == "" {
		location = os.TempDir()
	}

	name := targetURL
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ReplaceAll(name, ".git", "")

	candidate := filepath.Join(location, name)
	if !dirExists(candidate) || RepoHasMatchingRemote(candidate, targetURL) {
		return candidate
	}

	for i := 1; ; i++ {
		next := candidate + "_" + strconv.Itoa(i)
		if !dirExists(next) || RepoHasMatchingRemote(next, targetURL) {
			return next
		}
	}
}

// RepoHasMatchingRemote reports whether the repository at exactly path has a
// remote with targetURL. Any failure to open the repository counts as no
// match, including path being a plain directory inside another repository.
func RepoHasMatchingRemote(path, targetURL string) bool {
	r, err := git.OpenExact(path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("not a reusable repository")
		return false
	}
	network, err := r.Network()
	if err != nil {
		return false
	}
	return network.HasURL(targetURL)
}

// GetDotGitDirectory returns the .git directory to read from.
func (p *GitPreparer) GetDotGitDirectory() (string, error) {
	if p.IsDynamicRepository() {
		return p.dynamicPath, nil
	}

	dir, err := git.Discover(p.opts.TargetPath)
	if err != nil {
		return "", fmt.Errorf("can't find the .git directory in %s: %w", p.opts.TargetPath, err)
	}
	dir = strings.TrimRight(dir, `/\`)
	if dir == "" {
		return "", graph.NewOpError("find .git directory in", p.opts.TargetPath, graph.ErrNotFound, nil)
	}
	return dir, nil
}

// GetProjectRootDirectory returns the target path for a dynamic repository,
// otherwise the parent of the .git directory.
func (p *GitPreparer) GetProjectRootDirectory() (string, error) {
	log.Debug().Bool("dynamic", p.IsDynamicRepository()).Msg("resolving project root")
	if p.IsDynamicRepository() {
		return p.opts.TargetPath, nil
	}

	gitDir, err := p.GetDotGitDirectory()
	if err != nil {
		return "", err
	}
	root := filepath.Dir(gitDir)
	log.Debug().Str("git_dir", gitDir).Str("root", root).Msg("project root from .git directory")
	return root, nil
}

// Provider returns the local backend for the prepared repository.
func (p *GitPreparer) Provider() (*git.GoGitRepository, error) {
	gitDir, err := p.GetDotGitDirectory()
	if err != nil {
		return nil, err
	}
	return git.Open(gitDir)
}

// WithRepository snapshots the prepared repository and passes it to fn.
func (p *GitPreparer) WithRepository(ctx context.Context, fn func(*graph.Repository) error) error {
	provider, err := p.Provider()
	if err != nil {
		return err
	}
	repo, err := provider.Snapshot(ctx)
	if err != nil {
		return err
	}
	return fn(repo)
}

func (p *GitPreparer) createDynamicRepository(ctx context.Context, path, branch string) (string, error) {
	if strings.TrimSpace(branch) == "" {
		return "", graph.NewOpError("create dynamic repository", p.opts.TargetURL, graph.ErrInvalidConfiguration,
			errors.New("dynamic repositories must have a target branch"))
	}
	log.Info().Str("path", path).Msg("creating dynamic repository")

	gitDir := filepath.Join(path, ".git")
	if dirExists(path) {
		log.Info().Msg("git repository already exists")
	} else if err := CloneRepository(ctx, p.opts.TargetURL, path, p.opts.Credentials); err != nil {
		return "", err
	}

	err := git.Normalize(ctx, gitDir, git.NormalizeOptions{
		Credentials: p.opts.Credentials,
		NoFetch:     p.opts.NoFetch,
		Branch:      branch,
		Checkout:    true,
	})
	if err != nil {
		return "", err
	}
	return gitDir, nil
}

// CloneRepository clones url into path without checking out files.
// Authentication and missing-repository failures carry the matching
// graph error kind.
func CloneRepository(ctx context.Context, url, path string, creds *git.Credentials) error {
	return git.Clone(ctx, url, path, creds)
}

func dirExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
