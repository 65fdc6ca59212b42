package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/MyCarrier-DevOps/go-gitgraph/internal/config"
	"github.com/MyCarrier-DevOps/go-gitgraph/internal/git"
	"github.com/MyCarrier-DevOps/go-gitgraph/internal/graph"
	"github.com/MyCarrier-DevOps/go-gitgraph/internal/logging"
	"github.com/MyCarrier-DevOps/go-gitgraph/internal/output"
	"github.com/MyCarrier-DevOps/go-gitgraph/internal/preparer"

	"github.com/spf13/cobra"
)

// passwordEnv holds the password for HTTP clone and fetch.
const passwordEnv = "GITGRAPH_PASSWORD"

// Global flags shared across commands.
var (
	flagPath           string
	flagConfig         string
	flagOutput         string
	flagVerbosity      string
	flagTolerateCycles bool
	flagURL            string
	flagLocation       string
	flagBranch         string
	flagUsername       string
	flagNoFetch        bool
	flagNormalize      bool
)

// rootCmd is the top-level command for gitgraph.
var rootCmd = &cobra.Command{
	Use:   "gitgraph",
	Short: "Inspect the commit graph of a git repository",
	Long: `gitgraph reads a repository's commits, branches and tags into one
snapshot and answers ordering and ancestry questions about it. It reads a
local repository, a dynamic clone of a URL, or a GitHub repository through
the API (see "gitgraph remote").`,
	SilenceUsage:      true,
	PersistentPreRunE: setupRunE,
	// Default action prints the snapshot summary.
	RunE: summaryRunE,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagPath, "path", "p", ".", "path to the git repository")
	pf.StringVar(&flagConfig, "config", "", "path to config file (default: auto-detect)")
	pf.StringVarP(&flagOutput, "output", "o", "", "output format: json, or empty for text")
	pf.StringVarP(&flagVerbosity, "verbosity", "v", logging.Info, "log verbosity: quiet, info, debug")
	pf.BoolVar(&flagTolerateCycles, "tolerate-cycles", false, "skip dependency cycles instead of failing")
	pf.StringVar(&flagURL, "url", "", "clone this URL into a dynamic repository instead of reading --path")
	pf.StringVar(&flagLocation, "location", "", "parent directory for dynamic repositories (default: temp dir)")
	pf.StringVarP(&flagBranch, "branch", "b", "", "branch to check out in a dynamic or normalized repository")
	pf.StringVar(&flagUsername, "username", "", "username for HTTP clone and fetch (password from "+passwordEnv+")")
	pf.BoolVar(&flagNoFetch, "no-fetch", false, "do not fetch from origin")
	pf.BoolVar(&flagNormalize, "normalize", false, "fetch and create the target branch in a local repository before reading")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupRunE(cmd *cobra.Command, _ []string) error {
	if err := logging.Setup(flagVerbosity, cmd.ErrOrStderr()); err != nil {
		return err
	}
	return config.LoadDotEnv(flagPath)
}

func summaryRunE(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	repo, err := loadLocal(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	return writeSummary(cmd, repo)
}

// loadConfig layers flags that were set explicitly over the config file
// and defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	fileCfg, err := config.Load(flagPath, flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	flags := cmd.Flags()
	override := &config.Config{}
	if flags.Changed("tolerate-cycles") {
		override.TolerateCycles = config.Bool(flagTolerateCycles)
	}
	if flags.Changed("url") {
		override.Clone.URL = config.String(flagURL)
	}
	if flags.Changed("location") {
		override.Clone.Location = config.String(flagLocation)
	}
	if flags.Changed("branch") {
		override.Clone.Branch = config.String(flagBranch)
	}
	if flags.Changed("username") {
		override.Clone.Username = config.String(flagUsername)
	}
	if flags.Changed("no-fetch") {
		override.Clone.NoFetch = config.Bool(flagNoFetch)
	}
	addRemoteOverrides(cmd, override)

	cfg, err := config.NewBuilder().Add(fileCfg).Add(override).Build()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// loadLocal prepares the local or dynamic repository and snapshots it.
func loadLocal(ctx context.Context, cfg *config.Config) (*graph.Repository, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var creds *git.Credentials
	if user := *cfg.Clone.Username; user != "" {
		creds = &git.Credentials{Username: user, Password: os.Getenv(passwordEnv)}
	}

	p := preparer.New(preparer.Options{
		TargetPath:                flagPath,
		TargetURL:                 *cfg.Clone.URL,
		DynamicRepositoryLocation: *cfg.Clone.Location,
		Credentials:               creds,
		NoFetch:                   *cfg.Clone.NoFetch,
	})
	if err := p.Initialise(ctx, flagNormalize, *cfg.Clone.Branch); err != nil {
		return nil, fmt.Errorf("preparing repository: %w", err)
	}

	var repo *graph.Repository
	err := p.WithRepository(ctx, func(r *graph.Repository) error {
		repo = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading repository: %w", err)
	}
	return repo, nil
}

func writeSummary(cmd *cobra.Command, repo *graph.Repository) error {
	summary, err := output.NewSummary(repo)
	if err != nil {
		return err
	}
	return writeOutput(cmd, summary, func() error {
		return output.WriteSummary(cmd.OutOrStdout(), summary)
	})
}

// writeOutput writes v as JSON or runs text in the requested format.
func writeOutput(cmd *cobra.Command, v any, text func() error) error {
	switch flagOutput {
	case "json":
		return output.WriteJSON(cmd.OutOrStdout(), v)
	case "":
		return text()
	default:
		return fmt.Errorf("unknown output format %q", flagOutput)
	}
}
