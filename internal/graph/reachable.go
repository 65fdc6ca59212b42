package graph

import "sort"

type visitState uint8

const (
	unvisited visitState = iota
	inProcess
	done
)

// ReachableFrom returns commit followed by every ancestor reachable through
// parent links, each SHA once, in first-visit depth-first order with parents
// taken in their recorded order. A parent link that leads back into the
// path being walked is an ErrCyclicDependency error.
func ReachableFrom(commit *Commit) ([]*Commit, error) {
	if commit == nil {
		return nil, nil
	}

	type frame struct {
		c    *Commit
		next int
	}

	state := map[string]visitState{commit.Sha: inProcess}
	reachable := []*Commit{commit}
	stack := []frame{{c: commit}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next == len(top.c.Parents) {
			state[top.c.Sha] = done
			stack = stack[:len(stack)-1]
			continue
		}

		parent := top.c.Parents[top.next]
		top.next++

		switch state[parent.Sha] {
		case inProcess:
			return nil, NewOpError("walk ancestors", parent.Sha, ErrCyclicDependency, nil)
		case done:
			continue
		}

		state[parent.Sha] = inProcess
		reachable = append(reachable, parent)
		stack = append(stack, frame{c: parent})
	}

	return reachable, nil
}

// IsAncestor reports whether ancestor is reachable from descendant. A commit
// is its own ancestor.
func IsAncestor(ancestor, descendant *Commit) (bool, error) {
	reachable, err := ReachableFrom(descendant)
	if err != nil {
		return false, err
	}
	for _, c := range reachable {
		if c.Sha == ancestor.Sha {
			return true, nil
		}
	}
	return false, nil
}

// History returns tip and its ancestors, most recent first: tip leads, the
// rest follow by committer date descending with ties kept in first-visit
// order.
func History(tip *Commit) ([]*Commit, error) {
	reachable, err := ReachableFrom(tip)
	if err != nil || len(reachable) < 2 {
		return reachable, err
	}
	rest := reachable[1:]
	sort.SliceStable(rest, func(i, j int) bool {
		return rest[i].When().After(rest[j].When())
	})
	return reachable, nil
}
