// Package sdk provides a public Go API for loading a git repository's commit
// graph. It supports both local repositories (via go-git) and remote GitHub
// repositories (via the GitHub API). Both return the same snapshot type.
//
// Basic usage:
//
//	repo, err := sdk.LoadLocal(ctx, sdk.LocalOptions{
//	    Path: "/path/to/repo",
//	})
//	fmt.Println(repo.Head.Tip.Sha)
//
//	repo, err := sdk.LoadRemote(ctx, sdk.RemoteOptions{
//	    Owner: "myorg",
//	    Repo:  "myrepo",
//	    Token: os.Getenv("GITHUB_TOKEN"),
//	})
//	order, err := repo.TopologicalOrder()
package sdk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MyCarrier-DevOps/go-gitgraph/internal/git"
	"github.com/MyCarrier-DevOps/go-gitgraph/internal/graph"
	"github.com/MyCarrier-DevOps/go-gitgraph/internal/preparer"
	"github.com/MyCarrier-DevOps/go-gitgraph/internal/toposort"

	ghprovider "github.com/MyCarrier-DevOps/go-gitgraph/internal/github"
)

// Snapshot types shared by both backends.
type (
	Repository    = graph.Repository
	Commit        = graph.Commit
	Branch        = graph.Branch
	Tag           = graph.Tag
	Committer     = graph.Committer
	ReferenceName = graph.ReferenceName
	Remote        = graph.Remote
	Network       = graph.Network
	OpError       = graph.OpError
)

// Error kinds, matched with errors.Is.
var (
	ErrNotFound             = graph.ErrNotFound
	ErrMissingObject        = graph.ErrMissingObject
	ErrUnauthorized         = graph.ErrUnauthorized
	ErrForbidden            = graph.ErrForbidden
	ErrRateLimited          = graph.ErrRateLimited
	ErrInvalidConfiguration = graph.ErrInvalidConfiguration
	ErrCyclicDependency     = graph.ErrCyclicDependency
)

// LocalOptions configures loading from a repository on disk.
type LocalOptions struct {
	// Path to the git repository or any directory inside it. Defaults to "."
	// if empty.
	Path string

	// URL, when set, clones the repository into Location (or the system temp
	// directory) before loading it. Branch is then required.
	URL string

	// Location is the parent directory for clones of URL.
	Location string

	// Branch is checked out as a local branch tracking origin. For a local
	// Path it is only applied when Normalize is set.
	Branch string

	// Normalize fetches from origin and ensures Branch exists locally before
	// a local Path is read.
	Normalize bool

	// NoFetch skips fetching from origin.
	NoFetch bool

	// Username and Password authenticate clone and fetch over HTTP.
	Username string
	Password string
}

// RemoteOptions configures loading via the GitHub API.
type RemoteOptions struct {
	// Owner is the GitHub repository owner (required).
	Owner string

	// Repo is the GitHub repository name (required).
	Repo string

	// Token is a GitHub personal access token or GITHUB_TOKEN.
	Token string

	// AppID is the GitHub App ID for app authentication.
	AppID int64

	// AppKey is the GitHub App private key PEM content.
	AppKey string

	// AppKeyPath is the path to a GitHub App private key PEM file.
	AppKeyPath string

	// BaseURL is a custom GitHub API base URL for GitHub Enterprise.
	BaseURL string

	// Ref is the branch or SHA HEAD resolves to. Defaults to the
	// repository's default branch.
	Ref string

	// MaxCommits caps each commit listing. Zero means no cap.
	MaxCommits int

	// Concurrency bounds the API requests in flight. Defaults to 4.
	Concurrency int

	// DisableGraphQL lists tags through REST only. Annotation messages
	// and taggers are then unavailable.
	DisableGraphQL bool
}

// LoadLocal reads a snapshot of a repository on disk, cloning it first
// when URL is set.
func LoadLocal(ctx context.Context, opts LocalOptions) (*Repository, error) {
	var creds *git.Credentials
	if opts.Username != "" || opts.Password != "" {
		creds = &git.Credentials{Username: opts.Username, Password: opts.Password}
	}

	p := preparer.New(preparer.Options{
		TargetPath:                opts.Path,
		TargetURL:                 opts.URL,
		DynamicRepositoryLocation: opts.Location,
		Credentials:               creds,
		NoFetch:                   opts.NoFetch,
	})
	if err := p.Initialise(ctx, opts.Normalize, opts.Branch); err != nil {
		return nil, fmt.Errorf("preparing repository: %w", err)
	}

	var repo *Repository
	err := p.WithRepository(ctx, func(r *graph.Repository) error {
		repo = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading repository: %w", err)
	}
	return repo, nil
}

// LoadRemote reads a snapshot of a GitHub repository through the API.
func LoadRemote(ctx context.Context, opts RemoteOptions) (*Repository, error) {
	if strings.TrimSpace(opts.Owner) == "" || strings.TrimSpace(opts.Repo) == "" {
		return nil, graph.NewOpError("load remote", "", graph.ErrInvalidConfiguration, errors.New("owner and repo are required"))
	}

	baseURL := ghprovider.ResolveBaseURL(opts.BaseURL)
	client, err := ghprovider.NewClient(ctx, ghprovider.ClientConfig{
		Token:      opts.Token,
		AppID:      opts.AppID,
		AppKey:     opts.AppKey,
		AppKeyPath: opts.AppKeyPath,
		BaseURL:    baseURL,
		Owner:      opts.Owner,
	})
	if err != nil {
		return nil, fmt.Errorf("creating GitHub client: %w", err)
	}

	ghOpts := []ghprovider.Option{
		ghprovider.WithMaxCommits(opts.MaxCommits),
		ghprovider.WithConcurrency(opts.Concurrency),
		ghprovider.WithGraphQL(!opts.DisableGraphQL),
	}
	if opts.Ref != "" {
		ghOpts = append(ghOpts, ghprovider.WithRef(opts.Ref))
	}

	repo, err := ghprovider.NewGitHubRepository(client, opts.Owner, opts.Repo, ghOpts...).Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading repository: %w", err)
	}
	return repo, nil
}

// TopologicalOrder returns every commit of repo with parents before their
// children. With tolerateCycles set, dependency cycles are skipped instead
// of reported.
func TopologicalOrder(repo *Repository, tolerateCycles bool) ([]*Commit, error) {
	return repo.TopologicalOrder(toposort.WithIgnoreCycles(tolerateCycles))
}

// Generations groups every commit of repo by distance from a root commit.
func Generations(repo *Repository, tolerateCycles bool) ([][]*Commit, error) {
	return repo.Generations(toposort.WithIgnoreCycles(tolerateCycles))
}

// ReachableFrom returns commit and every ancestor, each once.
func ReachableFrom(commit *Commit) ([]*Commit, error) {
	return graph.ReachableFrom(commit)
}
