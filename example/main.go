// Example program demonstrating the gitgraph library API.
//
// Run from the repo root:
//
//	go run ./example/
//
// With remote mode (set GITHUB_TOKEN first):
//
//	GITHUB_TOKEN=ghp_xxx go run ./example/
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/MyCarrier-DevOps/go-gitgraph/pkg/sdk"
)

func main() {
	ctx := context.Background()
	localGraph(ctx)

	if os.Getenv("GITHUB_TOKEN") != "" {
		remoteGraph(ctx)
	}
}

func localGraph(ctx context.Context) {
	repo, err := sdk.LoadLocal(ctx, sdk.LocalOptions{
		Path: ".",
	})
	if err != nil {
		log.Fatalf("local load failed: %v", err)
	}

	printGraph("Local", repo)
}

func remoteGraph(ctx context.Context) {
	repo, err := sdk.LoadRemote(ctx, sdk.RemoteOptions{
		Owner:      "MyCarrier-DevOps",
		Repo:       "go-gitgraph",
		Token:      os.Getenv("GITHUB_TOKEN"),
		Ref:        "main",
		MaxCommits: 500,
	})
	if err != nil {
		log.Fatalf("remote load failed: %v", err)
	}

	printGraph("Remote", repo)
}

func printGraph(label string, repo *sdk.Repository) {
	fmt.Printf("=== %s Graph ===\n", label)
	fmt.Printf("%-12s %s at %s\n", "HEAD", repo.Head.FriendlyName(), repo.Head.Tip.ShortSha())
	fmt.Printf("%-12s %d\n", "Commits", len(repo.AllCommits()))
	fmt.Printf("%-12s %d\n", "Branches", len(repo.Branches))
	fmt.Printf("%-12s %d\n", "Tags", len(repo.Tags))

	gens, err := sdk.Generations(repo, true)
	if err != nil {
		log.Fatalf("grouping commits: %v", err)
	}
	fmt.Printf("%-12s %d\n", "Generations", len(gens))

	for _, t := range repo.Tags {
		fmt.Printf("  %-30s %s\n", t.FriendlyName(), t.PeeledTarget.ShortSha())
	}
	fmt.Println()
}
