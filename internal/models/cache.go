package models

import (
	"time"
)

// Cache is the process-external persisted state of a collection run:
// per-repository push snapshots, the deduplicated commit set, and run
// metadata. Loaded once at run start, persisted once at run end.
type Cache struct {
	Username   string                   `json:"username"`
	Snapshots  map[string]*RepoSnapshot `json:"snapshots"`
	Commits    map[string]*Commit       `json:"commits"` // keyed by SHA
	LastSearch *time.Time               `json:"last_search,omitempty"`
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{
		Snapshots: make(map[string]*RepoSnapshot),
		Commits:   make(map[string]*Commit),
	}
}

// NeedsRefetch reports whether a repository must be fetched again. A
// repository needs re-fetching when no snapshot exists for it, when its
// push timestamp moved since the snapshot was taken, or when a forced
// refresh was requested.
func (c *Cache) NeedsRefetch(fullName string, pushedAt time.Time, forceRefresh bool) bool {
	if forceRefresh {
		return true
	}
	snapshot, ok := c.Snapshots[fullName]
	if !ok {
		return true
	}
	return !snapshot.PushedAt.Equal(pushedAt.UTC())
}

// AddCommit inserts a commit if its SHA is not already present.
// Returns true when the commit was new. First observation wins.
func (c *Cache) AddCommit(commit *Commit) bool {
	if _, exists := c.Commits[commit.SHA]; exists {
		return false
	}
	c.Commits[commit.SHA] = commit
	return true
}

// SetSnapshot records the push state of a successfully fetched repository
func (c *Cache) SetSnapshot(fullName string, pushedAt time.Time) {
	c.Snapshots[fullName] = NewRepoSnapshot(fullName, pushedAt)
}

// CommitList returns the commit set as a slice in unspecified order
func (c *Cache) CommitList() []*Commit {
	commits := make([]*Commit, 0, len(c.Commits))
	for _, commit := range c.Commits {
		commits = append(commits, commit)
	}
	return commits
}
