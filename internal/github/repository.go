package github

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/MyCarrier-DevOps/go-gitgraph/internal/graph"

	gh "github.com/google/go-github/v68/github"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Compile-time checks that GitHubRepository serves as a provider and object database.
var (
	_ graph.Provider       = (*GitHubRepository)(nil)
	_ graph.ObjectDatabase = (*GitHubRepository)(nil)
)

const (
	defaultConcurrency = 4
	perPage            = 100
	originRemote       = "origin"
)

var hexPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// GitHubRepository builds snapshots of one hosted repository.
type GitHubRepository struct {
	client      *gh.Client
	owner       string
	repo        string
	ref         string // branch name, tag or SHA; empty means the default branch
	maxCommits  int    // per listing; 0 means unlimited
	concurrency int
	maxRetries  int
	useGraphQL  bool
	mergeBases  *mergeBaseCache
	sleep       func(context.Context, time.Duration) error
	log         zerolog.Logger
}

// Option configures a GitHubRepository.
type Option func(*GitHubRepository)

// WithRef sets the ref HEAD resolves to.
func WithRef(ref string) Option {
	return func(r *GitHubRepository) { r.ref = ref }
}

// WithMaxCommits caps every commit listing. A capped listing that stops
// short of a parent makes Snapshot fail with graph.ErrMissingObject.
func WithMaxCommits(n int) Option {
	return func(r *GitHubRepository) { r.maxCommits = n }
}

// WithConcurrency bounds the number of API requests in flight.
func WithConcurrency(n int) Option {
	return func(r *GitHubRepository) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithMaxRetries sets how often a rate-limited request is retried.
func WithMaxRetries(n int) Option {
	return func(r *GitHubRepository) { r.maxRetries = n }
}

// WithGraphQL selects the GraphQL tag listing, which carries annotation
// messages and taggers. The REST listing only knows peeled commits.
func WithGraphQL(enabled bool) Option {
	return func(r *GitHubRepository) { r.useGraphQL = enabled }
}

// NewGitHubRepository creates a new GitHubRepository.
func NewGitHubRepository(client *gh.Client, owner, repo string, opts ...Option) *GitHubRepository {
	r := &GitHubRepository{
		client:      client,
		owner:       owner,
		repo:        repo,
		concurrency: defaultConcurrency,
		maxRetries:  defaultMaxRetries,
		useGraphQL:  true,
		mergeBases:  newMergeBaseCache(mergeBaseCacheSize),
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = log.With().Str("repository", r.FullName()).Logger()
	return r
}

// FullName returns "owner/repo".
func (r *GitHubRepository) FullName() string {
	return r.owner + "/" + r.repo
}

// IsHeadDetached reports whether the configured ref is a commit SHA.
func (r *GitHubRepository) IsHeadDetached() bool {
	return hexPattern.MatchString(r.ref)
}

type repoInfo struct {
	defaultBranch string
	cloneURL      string
}

type remoteBranch struct {
	name    string
	headSha string // tip reported by the branch listing
	commits []graph.RawCommit
}

type remoteTag struct {
	name      string
	targetSha string // tag object, or the commit for lightweight tags
	commitSha string // peeled commit
	message   string
	author    *graph.Committer
}

// Snapshot fetches repository metadata, branches, tags and commit history
// concurrently, then links everything into one graph.Repository. Linking
// starts only after every listing has finished.
func (r *GitHubRepository) Snapshot(ctx context.Context) (*graph.Repository, error) {
	r.log.Debug().Str("ref", r.ref).Msg("fetching remote snapshot")

	var (
		info        repoInfo
		headCommits []graph.RawCommit
		branches    []remoteBranch
		tags        []remoteTag
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	g.Go(func() (err error) {
		info, err = r.fetchRepository(gctx)
		return err
	})
	g.Go(func() (err error) {
		headCommits, err = r.listCommits(gctx, r.ref)
		return err
	})
	g.Go(func() (err error) {
		branches, err = r.listBranches(gctx)
		return err
	})
	g.Go(func() (err error) {
		tags, err = r.listTags(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i := range branches {
		g.Go(func() (err error) {
			branches[i].commits, err = r.listCommits(gctx, branches[i].name)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	store := graph.NewCommitStore()
	addCommits(store, headCommits)
	for _, b := range branches {
		addCommits(store, b.commits)
	}
	if err := r.fetchTagHistory(ctx, store, tags); err != nil {
		return nil, err
	}
	if err := store.Link(); err != nil {
		return nil, err
	}

	snap := graph.NewRepository(store)
	snap.ObjectDatabase = r
	if info.cloneURL != "" {
		snap.Network.Remotes = []graph.Remote{{Name: originRemote, URL: info.cloneURL}}
	}

	for _, b := range branches {
		branch, err := r.branch(store, b)
		if err != nil {
			return nil, err
		}
		snap.Branches = append(snap.Branches, branch)
	}

	head, err := r.head(store, info, headCommits, snap.Branches)
	if err != nil {
		return nil, err
	}
	snap.Head = head
	snap.Commits = head.Commits

	for _, t := range tags {
		c, err := store.Must(t.commitSha)
		if err != nil {
			return nil, err
		}
		snap.Tags = append(snap.Tags, &graph.Tag{
			Name:         graph.NewTagReferenceName(t.name),
			Message:      t.message,
			Author:       t.author,
			TargetSha:    t.targetSha,
			Target:       c,
			PeeledTarget: c,
		})
	}

	if err := snap.Validate(); err != nil {
		return nil, err
	}

	r.log.Debug().
		Int("commits", store.Len()).
		Int("branches", len(snap.Branches)).
		Int("tags", len(snap.Tags)).
		Msg("remote snapshot loaded")

	return snap, nil
}

func addCommits(store *graph.CommitStore, commits []graph.RawCommit) {
	for _, c := range commits {
		store.Add(c)
	}
}

// fetchTagHistory lists history for tagged commits that no branch reaches.
func (r *GitHubRepository) fetchTagHistory(ctx context.Context, store *graph.CommitStore, tags []remoteTag) error {
	var missing []string
	seen := make(map[string]bool)
	for _, t := range tags {
		if _, ok := store.Get(t.commitSha); ok || seen[t.commitSha] {
			continue
		}
		seen[t.commitSha] = true
		missing = append(missing, t.commitSha)
	}
	if len(missing) == 0 {
		return nil
	}

	r.log.Debug().Int("commits", len(missing)).Msg("fetching history of tags outside branches")

	lists := make([][]graph.RawCommit, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, sha := range missing {
		g.Go(func() (err error) {
			lists[i], err = r.listCommits(gctx, sha)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, l := range lists {
		addCommits(store, l)
	}
	return nil
}

// branch resolves a listed branch. GitHub lists commits newest first, so
// the tip is the first commit of the listing.
func (r *GitHubRepository) branch(store *graph.CommitStore, b remoteBranch) (*graph.Branch, error) {
	shas := make([]string, len(b.commits))
	for i, c := range b.commits {
		shas[i] = c.Sha
	}
	commits, err := store.Resolve(shas)
	if err != nil {
		return nil, err
	}

	branch := graph.NewBranch(graph.NewBranchReferenceName(b.name), commits)
	if branch.Tip != nil && b.headSha != "" && branch.Tip.Sha != b.headSha {
		r.log.Warn().
			Str("branch", b.name).
			Str("listed", b.headSha).
			Str("tip", branch.Tip.Sha).
			Msg("branch moved while fetching, using the commit listing")
	}
	return branch, nil
}

// head returns the branch named by the ref, or the default branch when no
// ref is set. Any other ref produces a detached head.
func (r *GitHubRepository) head(store *graph.CommitStore, info repoInfo, commits []graph.RawCommit, branches []*graph.Branch) (*graph.Branch, error) {
	ref := r.ref
	if ref == "" {
		ref = info.defaultBranch
	}
	if !hexPattern.MatchString(ref) {
		for _, b := range branches {
			if b.FriendlyName() == ref || b.CanonicalName() == ref {
				return b, nil
			}
		}
	}

	if len(commits) == 0 {
		return nil, graph.NewOpError("resolve HEAD", r.FullName()+"@"+ref, graph.ErrNotFound, nil)
	}
	shas := make([]string, len(commits))
	for i, c := range commits {
		shas[i] = c.Sha
	}
	resolved, err := store.Resolve(shas)
	if err != nil {
		return nil, err
	}
	return graph.NewDetachedHead(resolved), nil
}

func (r *GitHubRepository) fetchRepository(ctx context.Context) (repoInfo, error) {
	var repo *gh.Repository
	err := r.call(ctx, "get repository", r.FullName(), func() (err error) {
		repo, _, err = r.client.Repositories.Get(ctx, r.owner, r.repo)
		return err
	})
	if err != nil {
		return repoInfo{}, err
	}
	return repoInfo{
		defaultBranch: repo.GetDefaultBranch(),
		cloneURL:      repo.GetCloneURL(),
	}, nil
}

// listCommits pages through the commits reachable from ref, newest first.
func (r *GitHubRepository) listCommits(ctx context.Context, ref string) ([]graph.RawCommit, error) {
	id := r.FullName()
	if ref != "" {
		id += "@" + ref
	}
	opts := &gh.CommitsListOptions{
		SHA:         ref,
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	var commits []graph.RawCommit
	for {
		var (
			page []*gh.RepositoryCommit
			resp *gh.Response
		)
		err := r.call(ctx, "list commits", id, func() (err error) {
			page, resp, err = r.client.Repositories.ListCommits(ctx, r.owner, r.repo, opts)
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, c := range page {
			commits = append(commits, convertCommit(c))
			if r.maxCommits > 0 && len(commits) >= r.maxCommits {
				r.log.Debug().Str("ref", ref).Int("max", r.maxCommits).Msg("commit listing capped")
				return commits, nil
			}
		}

		if resp.NextPage == 0 {
			return commits, nil
		}
		opts.Page = resp.NextPage
	}
}

func (r *GitHubRepository) listBranches(ctx context.Context) ([]remoteBranch, error) {
	opts := &gh.BranchListOptions{ListOptions: gh.ListOptions{PerPage: perPage}}

	var branches []remoteBranch
	for {
		var (
			page []*gh.Branch
			resp *gh.Response
		)
		err := r.call(ctx, "list branches", r.FullName(), func() (err error) {
			page, resp, err = r.client.Repositories.ListBranches(ctx, r.owner, r.repo, opts)
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, b := range page {
			branches = append(branches, remoteBranch{
				name:    b.GetName(),
				headSha: b.GetCommit().GetSHA(),
			})
		}

		if resp.NextPage == 0 {
			return branches, nil
		}
		opts.Page = resp.NextPage
	}
}

func (r *GitHubRepository) listTags(ctx context.Context) ([]remoteTag, error) {
	if r.useGraphQL {
		return r.fetchTagsGraphQL(ctx)
	}

	opts := &gh.ListOptions{PerPage: perPage}
	var tags []remoteTag
	for {
		var (
			page []*gh.RepositoryTag
			resp *gh.Response
		)
		err := r.call(ctx, "list tags", r.FullName(), func() (err error) {
			page, resp, err = r.client.Repositories.ListTags(ctx, r.owner, r.repo, opts)
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, t := range page {
			sha := t.GetCommit().GetSHA()
			tags = append(tags, remoteTag{name: t.GetName(), targetSha: sha, commitSha: sha})
		}

		if resp.NextPage == 0 {
			return tags, nil
		}
		opts.Page = resp.NextPage
	}
}

// FindMergeBase asks the compare API for the merge base of two commits.
// Answers are cached per repository.
func (r *GitHubRepository) FindMergeBase(ctx context.Context, sha1, sha2 string) (string, error) {
	if base, ok := r.mergeBases.get(sha1, sha2); ok {
		return base, nil
	}

	var comparison *gh.CommitsComparison
	err := r.call(ctx, "compare commits", fmt.Sprintf("%s...%s", sha1, sha2), func() (err error) {
		comparison, _, err = r.client.Repositories.CompareCommits(ctx, r.owner, r.repo, sha1, sha2, nil)
		return err
	})
	if err != nil {
		return "", err
	}

	base := comparison.GetMergeBaseCommit().GetSHA()
	r.mergeBases.put(sha1, sha2, base)
	return base, nil
}

// convertCommit converts a GitHub API commit to a raw graph commit.
func convertCommit(c *gh.RepositoryCommit) graph.RawCommit {
	parents := make([]string, 0, len(c.Parents))
	for _, p := range c.Parents {
		parents = append(parents, p.GetSHA())
	}

	committer := c.GetCommit().GetCommitter()
	return graph.RawCommit{
		Sha:     c.GetSHA(),
		Message: c.GetCommit().GetMessage(),
		Committer: graph.Committer{
			Date:  committer.GetDate().Time,
			Name:  committer.GetName(),
			Email: committer.GetEmail(),
		},
		Parents: parents,
	}
}
