package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/MyCarrier-DevOps/go-gitgraph/internal/config"
	"github.com/MyCarrier-DevOps/go-gitgraph/internal/graph"

	ghprovider "github.com/MyCarrier-DevOps/go-gitgraph/internal/github"

	"github.com/spf13/cobra"
)

var (
	flagToken       string
	flagAppID       int64
	flagAppKey      string
	flagAppKeyPath  string
	flagGitHubURL   string
	flagRef         string
	flagMaxCommits  int
	flagConcurrency int
	flagNoGraphQL   bool
)

var remoteCmd = &cobra.Command{
	Use:   "remote [owner/repo]",
	Short: "Read the commit graph of a GitHub repository via API",
	Long: `Read a repository snapshot from the GitHub API. No local clone is
required. Without an argument, remote.owner and remote.repo from the
config file are used.

Authentication (checked in order):
  1. --token flag or GITHUB_TOKEN env var
  2. --github-app-id + --github-app-key (PEM content) or GH_APP_ID + GH_APP_PRIVATE_KEY env vars
  3. --github-app-id + --github-app-key-path (PEM file) or GH_APP_ID + GH_APP_PRIVATE_KEY_PATH env vars

Examples:
  GITHUB_TOKEN=ghp_xxx gitgraph remote myorg/myrepo
  gitgraph remote myorg/myrepo --token ghp_xxx --ref main
  gitgraph remote myorg/myrepo --github-app-id 12345 --github-app-key "$APP_PRIVATE_KEY"
  gitgraph remote myorg/myrepo --github-app-id 12345 --github-app-key-path /path/to/key.pem`,
	Args: cobra.MaximumNArgs(1),
	RunE: remoteRunE,
}

func init() {
	remoteCmd.Flags().StringVar(&flagToken, "token", "", "GitHub token (or set GITHUB_TOKEN env var)")
	remoteCmd.Flags().Int64Var(&flagAppID, "github-app-id", 0, "GitHub App ID (or set GH_APP_ID env var)")
	remoteCmd.Flags().StringVar(&flagAppKey, "github-app-key", "", "GitHub App private key PEM content (or set GH_APP_PRIVATE_KEY env var)")
	remoteCmd.Flags().StringVar(&flagAppKeyPath, "github-app-key-path", "", "path to GitHub App private key PEM file (or set GH_APP_PRIVATE_KEY_PATH env var)")
	remoteCmd.Flags().StringVar(&flagGitHubURL, "github-url", "", "GitHub API base URL for GitHub Enterprise (or set GITHUB_API_URL env var)")
	remoteCmd.Flags().StringVar(&flagRef, "ref", "", "branch or SHA HEAD resolves to (default: repo default branch)")
	remoteCmd.Flags().IntVar(&flagMaxCommits, "max-commits", config.DefaultMaxCommits, "cap on each commit listing, 0 for none")
	remoteCmd.Flags().IntVar(&flagConcurrency, "concurrency", config.DefaultConcurrency, "API requests in flight")
	remoteCmd.Flags().BoolVar(&flagNoGraphQL, "no-graphql", false, "list tags through REST only (no annotation messages)")

	rootCmd.AddCommand(remoteCmd)
}

// addRemoteOverrides copies explicitly set remote flags into override.
func addRemoteOverrides(cmd *cobra.Command, override *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("github-url") {
		override.Remote.BaseURL = config.String(flagGitHubURL)
	}
	if flags.Changed("ref") {
		override.Remote.Ref = config.String(flagRef)
	}
	if flags.Changed("max-commits") {
		override.Remote.MaxCommits = config.Int(flagMaxCommits)
	}
	if flags.Changed("concurrency") {
		override.Remote.Concurrency = config.Int(flagConcurrency)
	}
	if flags.Changed("no-graphql") {
		override.Remote.GraphQL = config.Bool(!flagNoGraphQL)
	}
}

func remoteRunE(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	owner, repo := *cfg.Remote.Owner, *cfg.Remote.Repo
	if len(args) == 1 {
		owner, repo, err = parseOwnerRepo(args[0])
		if err != nil {
			return err
		}
	}
	if owner == "" || repo == "" {
		return graph.NewOpError("read remote repository", "", graph.ErrInvalidConfiguration,
			fmt.Errorf("pass owner/repo or set remote.owner and remote.repo"))
	}

	snap, err := loadRemote(cmd.Context(), cfg, owner, repo)
	if err != nil {
		return err
	}
	return writeSummary(cmd, snap)
}

func loadRemote(ctx context.Context, cfg *config.Config, owner, repo string) (*graph.Repository, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// Resolve base URL from config or env var so both client and repository use it.
	baseURL := ghprovider.ResolveBaseURL(*cfg.Remote.BaseURL)

	client, err := ghprovider.NewClient(ctx, ghprovider.ClientConfig{
		Token:      flagToken,
		AppID:      flagAppID,
		AppKey:     flagAppKey,
		AppKeyPath: flagAppKeyPath,
		BaseURL:    baseURL,
		Owner:      owner,
	})
	if err != nil {
		return nil, fmt.Errorf("creating GitHub client: %w", err)
	}

	opts := []ghprovider.Option{
		ghprovider.WithMaxCommits(*cfg.Remote.MaxCommits),
		ghprovider.WithConcurrency(*cfg.Remote.Concurrency),
		ghprovider.WithGraphQL(*cfg.Remote.GraphQL),
	}
	if ref := *cfg.Remote.Ref; ref != "" {
		opts = append(opts, ghprovider.WithRef(ref))
	}

	snap, err := ghprovider.NewGitHubRepository(client, owner, repo, opts...).Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading %s/%s: %w", owner, repo, err)
	}
	return snap, nil
}

func parseOwnerRepo(s string) (string, string, error) {
	parts := strings.SplitN(s, "/", 3)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository format %q, expected owner/repo", s)
	}
	return parts[0], parts[1], nil
}
