package github

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

const mergeBaseCacheSize = 1024

// mergeBaseCache remembers compare API answers for the lifetime of one
// GitHubRepository. The underlying LRU is safe for concurrent use.
type mergeBaseCache struct {
	bases *lru.Cache[string, string]
}

func newMergeBaseCache(size int) *mergeBaseCache {
	if size <= 0 {
		size = mergeBaseCacheSize
	}
	bases, err := lru.New[string, string](size)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return &mergeBaseCache{bases: bases}
}

func (c *mergeBaseCache) get(sha1, sha2 string) (string, bool) {
	return c.bases.Get(mergeBaseKey(sha1, sha2))
}

func (c *mergeBaseCache) put(sha1, sha2, base string) {
	c.bases.Add(mergeBaseKey(sha1, sha2), base)
}

// mergeBaseKey returns the same key for either argument order.
func mergeBaseKey(sha1, sha2 string) string {
	if sha2 < sha1 {
		sha1, sha2 = sha2, sha1
	}
	return sha1 + ":" + sha2
}
