package graph

import (
	"context"
	"fmt"
)

// Compile-time check that GraphDatabase implements ObjectDatabase.
var _ ObjectDatabase = GraphDatabase{}

// GraphDatabase answers ObjectDatabase queries from an in-memory commit store.
type GraphDatabase struct {
	Store *CommitStore
}

// FindMergeBase returns the best common ancestor of sha1 and sha2: a common
// ancestor that is not an ancestor of any other common ancestor. When there
// are several, the most recently committed wins, then the lowest SHA.
func (d GraphDatabase) FindMergeBase(ctx context.Context, sha1, sha2 string) (string, error) {
	a, err := d.Store.Must(sha1)
	if err != nil {
		return "", err
	}
	b, err := d.Store.Must(sha2)
	if err != nil {
		return "", err
	}

	fromA, err := ReachableFrom(a)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fromB, err := ReachableFrom(b)
	if err != nil {
		return "", err
	}

	inA := make(map[string]bool, len(fromA))
	for _, c := range fromA {
		inA[c.Sha] = true
	}
	var common []*Commit
	for _, c := range fromB {
		if inA[c.Sha] {
			common = append(common, c)
		}
	}
	if len(common) == 0 {
		return "", nil
	}

	// Mark every strict ancestor of a common ancestor. Marking stops at
	// commits already marked, whose ancestors are marked too.
	redundant := make(map[string]bool)
	var mark func(c *Commit)
	mark = func(c *Commit) {
		for _, p := range c.Parents {
			if redundant[p.Sha] {
				continue
			}
			redundant[p.Sha] = true
			mark(p)
		}
	}
	for _, c := range common {
		mark(c)
	}

	var best *Commit
	for _, c := range common {
		if redundant[c.Sha] {
			continue
		}
		if best == nil || newer(c, best) {
			best = c
		}
	}
	if best == nil {
		return "", fmt.Errorf("no best common ancestor among %d candidates", len(common))
	}
	return best.Sha, nil
}

func newer(c, other *Commit) bool {
	if c.When().Equal(other.When()) {
		return c.Sha < other.Sha
	}
	return c.When().After(other.When())
}
