package graph

import "fmt"

// RawCommit is a commit as a backend reads it, with parents named by SHA.
type RawCommit struct {
	Sha       string
	Message   string
	Committer Committer
	Parents   []string
}

// CommitStore interns commits by SHA so that every backend produces exactly
// one *Commit per SHA no matter how many listings mention it. Parent links
// are resolved in one pass once all commits are known.
//
// A CommitStore is not safe for concurrent use.
type CommitStore struct {
	bySha   map[string]*Commit
	order   []*Commit
	pending map[string][]string
}

// NewCommitStore creates an empty CommitStore.
func NewCommitStore() *CommitStore {
	return &CommitStore{
		bySha:   make(map[string]*Commit),
		pending: make(map[string][]string),
	}
}

// Add interns raw and returns the canonical commit for its SHA. When the SHA
// is already known the existing commit is returned unchanged.
func (s *CommitStore) Add(raw RawCommit) *Commit {
	if c, ok := s.bySha[raw.Sha]; ok {
		return c
	}
	c := &Commit{
		Sha:       raw.Sha,
		Message:   raw.Message,
		Committer: raw.Committer,
	}
	s.bySha[raw.Sha] = c
	s.order = append(s.order, c)
	if len(raw.Parents) > 0 {
		s.pending[raw.Sha] = append([]string(nil), raw.Parents...)
	}
	return c
}

// Get returns the commit with the given SHA.
func (s *CommitStore) Get(sha string) (*Commit, bool) {
	c, ok := s.bySha[sha]
	return c, ok
}

// Must returns the commit with the given SHA or an ErrMissingObject error.
func (s *CommitStore) Must(sha string) (*Commit, error) {
	c, ok := s.bySha[sha]
	if !ok {
		return nil, NewOpError("resolve commit", sha, ErrMissingObject, nil)
	}
	return c, nil
}

// Len returns the number of interned commits.
func (s *CommitStore) Len() int {
	return len(s.order)
}

// Commits returns every interned commit in insertion order.
func (s *CommitStore) Commits() []*Commit {
	return append([]*Commit(nil), s.order...)
}

// Link resolves the parent SHAs of every commit added since the last call.
// A parent that was never added is an ErrMissingObject error; in that case
// no links are changed.
func (s *CommitStore) Link() error {
	for _, c := range s.order {
		for _, p := range s.pending[c.Sha] {
			if _, ok := s.bySha[p]; !ok {
				return NewOpError("link parents", c.Sha, ErrMissingObject,
					fmt.Errorf("parent %s not in fetched set", p))
			}
		}
	}
	for _, c := range s.order {
		parents, ok := s.pending[c.Sha]
		if !ok {
			continue
		}
		c.Parents = make([]*Commit, len(parents))
		for i, p := range parents {
			c.Parents[i] = s.bySha[p]
		}
		delete(s.pending, c.Sha)
	}
	return nil
}

// Resolve maps SHAs to their interned commits, failing on the first unknown SHA.
func (s *CommitStore) Resolve(shas []string) ([]*Commit, error) {
	commits := make([]*Commit, 0, len(shas))
	for _, sha := range shas {
		c, err := s.Must(sha)
		if err != nil {
			return nil, err
		}
		commits = append(commits, c)
	}
	return commits, nil
}
