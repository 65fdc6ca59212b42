package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MyCarrier-DevOps/go-gitgraph/internal/graph"

	gogit "github.com/go-git/go-git/v5"
	gogitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/rs/zerolog/log"
)

const defaultRemote = "origin"

// Credentials is a username/password pair passed through to the transport.
type Credentials struct {
	Username string
	Password string
}

// auth returns HTTP basic auth when both fields are set, otherwise nil.
func (c *Credentials) auth() transport.AuthMethod {
	if c == nil || strings.TrimSpace(c.Username) == "" || strings.TrimSpace(c.Password) == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: c.Username, Password: c.Password}
}

// Clone clones url into dir without checking out a working tree. The
// repository metadata ends up in dir/.git.
func Clone(ctx context.Context, url, dir string, creds *Credentials) error {
	auth := creds.auth()
	if auth != nil {
		log.Info().Str("username", creds.Username).Msg("setting up credentials")
	}
	log.Info().Str("url", url).Msg("retrieving git info")

	_, err := gogit.PlainCloneContext(ctx, dir, false, &gogit.CloneOptions{
		URL:        url,
		Auth:       auth,
		NoCheckout: true,
		Tags:       gogit.AllTags,
	})
	if err != nil {
		return classifyTransportError("clone", url, err)
	}
	log.Debug().Str("path", dir).Msg("repository cloned")
	return nil
}

// NormalizeOptions controls Normalize.
type NormalizeOptions struct {
	Credentials *Credentials

	// NoFetch skips fetching from origin.
	NoFetch bool

	// Branch, when set, must exist locally after normalization. It is
	// created from origin/<Branch> if missing, and HEAD is moved to it
	// when HEAD is detached.
	Branch string

	// Checkout points HEAD at Branch even when HEAD is attached elsewhere.
	// The working tree is not touched.
	Checkout bool
}

// Normalize brings the repository at path up to date with origin and makes
// sure the target branch exists as a local tracking branch. path must be the
// working tree root or the .git directory itself; parent directories are
// not searched.
func Normalize(ctx context.Context, path string, opts NormalizeOptions) error {
	r, err := plainOpen(path, false)
	if err != nil {
		return fmt.Errorf("opening git repository at %s: %w", path, err)
	}

	if !opts.NoFetch {
		if err := fetch(ctx, r, opts.Credentials); err != nil {
			return err
		}
	}

	if opts.Branch == "" {
		return nil
	}
	return ensureLocalBranch(r, opts.Branch, opts.Checkout)
}

func fetch(ctx context.Context, r *gogit.Repository, creds *Credentials) error {
	if _, err := r.Remote(defaultRemote); err != nil {
		if errors.Is(err, gogit.ErrRemoteNotFound) {
			log.Debug().Msg("no origin remote, skipping fetch")
			return nil
		}
		return fmt.Errorf("looking up remote %s: %w", defaultRemote, err)
	}

	log.Info().Str("remote", defaultRemote).Msg("fetching")
	err := r.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: defaultRemote,
		Auth:       creds.auth(),
		RefSpecs: []gogitconfig.RefSpec{
			gogitconfig.RefSpec("+refs/heads/*:refs/remotes/" + defaultRemote + "/*"),
		},
		Tags: gogit.AllTags,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return classifyTransportError("fetch", defaultRemote, err)
	}
	return nil
}

func ensureLocalBranch(r *gogit.Repository, branch string, moveHead bool) error {
	local := plumbing.NewBranchReferenceName(branch)

	if _, err := r.Reference(local, true); err != nil {
		if !errors.Is(err, plumbing.ErrReferenceNotFound) {
			return fmt.Errorf("resolving %s: %w", local, err)
		}

		remote := plumbing.NewRemoteReferenceName(defaultRemote, branch)
		remoteRef, err := r.Reference(remote, true)
		if err != nil {
			return graph.NewOpError("find branch", branch, graph.ErrNotFound, err)
		}

		if err := r.Storer.SetReference(plumbing.NewHashReference(local, remoteRef.Hash())); err != nil {
			return fmt.Errorf("creating branch %s: %w", branch, err)
		}

		cfg, err := r.Config()
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
		cfg.Branches[branch] = &gogitconfig.Branch{
			Name:   branch,
			Remote: defaultRemote,
			Merge:  local,
		}
		if err := r.SetConfig(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		log.Info().Str("branch", branch).Msg("created local tracking branch")
	}

	head, err := r.Reference(plumbing.HEAD, false)
	if err != nil && !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return fmt.Errorf("reading HEAD: %w", err)
	}
	if moveHead || head == nil || head.Type() == plumbing.HashReference {
		if err := r.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, local)); err != nil {
			return fmt.Errorf("moving HEAD to %s: %w", branch, err)
		}
	}
	return nil
}

// classifyTransportError maps transport failures to graph error kinds.
func classifyTransportError(op, id string, err error) error {
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired):
		return graph.NewOpError(op, id, graph.ErrUnauthorized, err)
	case errors.Is(err, transport.ErrAuthorizationFailed):
		return graph.NewOpError(op, id, graph.ErrForbidden, err)
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return graph.NewOpError(op, id, graph.ErrNotFound, err)
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "401"):
		return graph.NewOpError(op, id, graph.ErrUnauthorized, err)
	case strings.Contains(msg, "403"):
		return graph.NewOpError(op, id, graph.ErrForbidden, err)
	case strings.Contains(msg, "404"):
		return graph.NewOpError(op, id, graph.ErrNotFound, err)
	}
	return graph.NewOpError(op, id, nil, fmt.Errorf("unknown problem with the git repository: %w", err))
}
