package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/MyCarrier-DevOps/go-gitgraph/internal/graph"
)

// WriteSummary writes a human-readable description of a snapshot.
func WriteSummary(w io.Writer, s Summary) error {
	var sb strings.Builder

	head := s.Head.Name
	if s.Head.Detached {
		head = graph.DetachedHeadName
	}
	fmt.Fprintf(&sb, "HEAD:        %s at %s\n", head, short(s.Head.Tip))
	fmt.Fprintf(&sb, "Commits:     %d reachable from HEAD, %d total\n", s.HeadCommits, s.TotalCommits)
	fmt.Fprintf(&sb, "Fingerprint: %s\n", s.Fingerprint)

	fmt.Fprintln(&sb)
	fmt.Fprintf(&sb, "Branches (%d):\n", len(s.Branches))
	for _, b := range s.Branches {
		kind := ""
		if b.Remote {
			kind = " (remote)"
		}
		fmt.Fprintf(&sb, "  %-30s %s %4d commits%s\n", b.Name, short(b.Tip), b.Commits, kind)
	}

	fmt.Fprintln(&sb)
	fmt.Fprintf(&sb, "Tags (%d):\n", len(s.Tags))
	for _, t := range s.Tags {
		line := fmt.Sprintf("  %-30s %s", t.Name, short(t.Commit))
		if t.Annotated {
			line += fmt.Sprintf(" %s %q", arrowPrefix, t.Message)
		}
		fmt.Fprintln(&sb, line)
	}

	if len(s.Remotes) > 0 {
		fmt.Fprintln(&sb)
		fmt.Fprintln(&sb, "Remotes:")
		for _, r := range s.Remotes {
			fmt.Fprintf(&sb, "  %-10s %s\n", r.Name, r.URL)
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteCommits writes one commit per line: short sha, date and subject.
func WriteCommits(w io.Writer, commits []CommitView) error {
	for _, c := range commits {
		line := fmt.Sprintf("%s %s %s", short(c.Sha), c.Date.UTC().Format("2006-01-02"), c.Subject)
		if c.Merge != nil && c.Merge.Source != "" {
			line += fmt.Sprintf(" [%s %s]", arrowPrefix, c.Merge.Source)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// WriteGenerations writes each generation on its own line, prefixed with
// its level.
func WriteGenerations(w io.Writer, generations [][]CommitView) error {
	for i, level := range generations {
		shas := make([]string, len(level))
		for j, c := range level {
			shas[j] = short(c.Sha)
		}
		if _, err := fmt.Fprintf(w, "%d: %s\n", i, strings.Join(shas, " ")); err != nil {
			return err
		}
	}
	return nil
}

// WriteMergeBase writes the merge base of two commits, or "(none)".
func WriteMergeBase(w io.Writer, base *CommitView) error {
	if base == nil {
		_, err := fmt.Fprintln(w, "(none)")
		return err
	}
	_, err := fmt.Fprintln(w, base.Sha)
	return err
}

const arrowPrefix = "→"
