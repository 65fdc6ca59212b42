package cmd

import (
	"fmt"
	"strings"

	"github.com/MyCarrier-DevOps/go-gitgraph/internal/graph"
	"github.com/MyCarrier-DevOps/go-gitgraph/internal/output"
	"github.com/MyCarrier-DevOps/go-gitgraph/internal/toposort"

	"github.com/spf13/cobra"
)

// minShaPrefix is the shortest abbreviated sha resolveCommit accepts.
const minShaPrefix = 4

var flagGenerations bool

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "List every commit with parents before their children",
	Long: `List every commit of the snapshot in topological order, oldest
ancestry first. With --generations, commits are grouped into levels where
each commit sits one level above its highest parent.`,
	Args: cobra.NoArgs,
	RunE: orderRunE,
}

var reachableCmd = &cobra.Command{
	Use:   "reachable <rev>",
	Short: "List a commit and all of its ancestors",
	Long: `List the commit named by rev and every commit reachable from it through
parent links, each once. rev is a branch, a tag, or a full or abbreviated sha.`,
	Args: cobra.ExactArgs(1),
	RunE: reachableRunE,
}

var mergeBaseCmd = &cobra.Command{
	Use:   "merge-base <rev> <rev>",
	Short: "Print the best common ancestor of two commits",
	Args:  cobra.ExactArgs(2),
	RunE:  mergeBaseRunE,
}

func init() {
	orderCmd.Flags().BoolVar(&flagGenerations, "generations", false, "group commits by generation")

	rootCmd.AddCommand(orderCmd, reachableCmd, mergeBaseCmd)
}

func orderRunE(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	repo, err := loadLocal(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	tolerate := toposort.WithIgnoreCycles(*cfg.TolerateCycles)

	if flagGenerations {
		gens, err := repo.Generations(tolerate)
		if err != nil {
			return fmt.Errorf("grouping commits: %w", err)
		}
		views := output.NewGenerationViews(gens)
		return writeOutput(cmd, views, func() error {
			return output.WriteGenerations(cmd.OutOrStdout(), views)
		})
	}

	commits, err := repo.TopologicalOrder(tolerate)
	if err != nil {
		return fmt.Errorf("ordering commits: %w", err)
	}
	views := output.NewCommitViews(commits)
	return writeOutput(cmd, views, func() error {
		return output.WriteCommits(cmd.OutOrStdout(), views)
	})
}

func reachableRunE(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	repo, err := loadLocal(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	start, err := resolveCommit(repo, args[0])
	if err != nil {
		return err
	}
	commits, err := graph.ReachableFrom(start)
	if err != nil {
		return err
	}
	views := output.NewCommitViews(commits)
	return writeOutput(cmd, views, func() error {
		return output.WriteCommits(cmd.OutOrStdout(), views)
	})
}

func mergeBaseRunE(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	repo, err := loadLocal(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	a, err := resolveCommit(repo, args[0])
	if err != nil {
		return err
	}
	b, err := resolveCommit(repo, args[1])
	if err != nil {
		return err
	}
	base, err := repo.FindMergeBase(cmd.Context(), a, b)
	if err != nil {
		return err
	}

	var view *output.CommitView
	if base != nil {
		v := output.NewCommitView(base)
		view = &v
	}
	return writeOutput(cmd, view, func() error {
		return output.WriteMergeBase(cmd.OutOrStdout(), view)
	})
}

// resolveCommit finds the commit rev names: HEAD, a full sha, a branch, a
// tag, or an unambiguous sha prefix.
func resolveCommit(repo *graph.Repository, rev string) (*graph.Commit, error) {
	if rev == "HEAD" && repo.Head != nil && repo.Head.Tip != nil {
		return repo.Head.Tip, nil
	}
	if c, ok := repo.Lookup(rev); ok {
		return c, nil
	}
	if b, err := repo.FindBranch(rev); err == nil && b.Tip != nil {
		return b.Tip, nil
	}
	if t, err := repo.FindTag(rev); err == nil && t.PeeledTarget != nil {
		return t.PeeledTarget, nil
	}

	if len(rev) >= minShaPrefix {
		var match *graph.Commit
		for _, c := range repo.AllCommits() {
			if !strings.HasPrefix(c.Sha, strings.ToLower(rev)) {
				continue
			}
			if match != nil {
				return nil, fmt.Errorf("ambiguous revision %q", rev)
			}
			match = c
		}
		if match != nil {
			return match, nil
		}
	}
	return nil, graph.NewOpError("resolve revision", rev, graph.ErrNotFound, nil)
}
