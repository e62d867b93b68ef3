package models

import (
	"time"
)

// Commit represents a single commit authored by the target user.
// Identity is the commit SHA; the collector stores at most one Commit
// per SHA no matter how many branches or phases surfaced it.
type Commit struct {
	SHA string `json:"sha"`
	// Message is the first line of the commit message.
	Message    string    `json:"message"`
	AuthorDate time.Time `json:"author_date"`
	// Repository is the owning repository's full name (owner/name).
	Repository string `json:"repository"`
	// Branch is nil when the commit was discovered via the commit
	// search endpoint, which does not report branches.
	Branch *string `json:"branch,omitempty"`
	URL    string  `json:"url"`
}

// NewCommit creates a new Commit with the author date normalized to UTC
func NewCommit(sha, message string, authorDate time.Time, repository string, branch *string, url string) *Commit {
	return &Commit{
		SHA:        sha,
		Message:    message,
		AuthorDate: authorDate.UTC(),
		Repository: repository,
		Branch:     branch,
		URL:        url,
	}
}

// BranchName returns the branch this commit was observed on, or empty
// when the branch is unknown (search-sourced commits).
func (c *Commit) BranchName() string {
	if c.Branch == nil {
		return ""
	}
	return *c.Branch
}
