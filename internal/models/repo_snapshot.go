package models

import (
	"time"
)

// RepoSnapshot records the push state a repository had the last time
// its branches were fully fetched. An unchanged push timestamp means
// the repository can be served from cache.
type RepoSnapshot struct {
	FullName  string    `json:"full_name"`
	PushedAt  time.Time `json:"pushed_at"`
	FetchedAt time.Time `json:"fetched_at"`
}

// NewRepoSnapshot creates a snapshot stamped with the current time
func NewRepoSnapshot(fullName string, pushedAt time.Time) *RepoSnapshot {
	return &RepoSnapshot{
		FullName:  fullName,
		PushedAt:  pushedAt.UTC(),
		FetchedAt: time.Now().UTC(),
	}
}
