package repositories

import (
	"time"

	"github.com/kibotu/git-history-timeline/internal/models"
)

type CommitRepository struct {
	db DB
}

func NewCommitRepository(db DB) *CommitRepository {
	return &CommitRepository{db: db}
}

// Upsert inserts a commit or replaces the stored row for its SHA
func (r *CommitRepository) Upsert(commit *models.Commit) error {
	query := `
		INSERT OR REPLACE INTO commits (sha, message, author_date, repository, branch, url)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		commit.SHA, commit.Message, commit.AuthorDate.UTC().Format(time.RFC3339),
		commit.Repository, commit.Branch, commit.URL,
	)

	return err
}

// GetAll retrieves every stored commit
func (r *CommitRepository) GetAll() ([]*models.Commit, error) {
	query := `
		SELECT sha, message, author_date, repository, branch, url
		FROM commits
		ORDER BY author_date DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commits []*models.Commit
	for rows.Next() {
		commit := &models.Commit{}
		var authorDate string
		if err := rows.Scan(
			&commit.SHA, &commit.Message, &authorDate,
			&commit.Repository, &commit.Branch, &commit.URL,
		); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339, authorDate)
		if err != nil {
			return nil, err
		}
		commit.AuthorDate = parsed.UTC()
		commits = append(commits, commit)
	}

	return commits, rows.Err()
}

// DeleteAll removes every stored commit
func (r *CommitRepository) DeleteAll() error {
	_, err := r.db.Exec(`DELETE FROM commits`)
	return err
}
