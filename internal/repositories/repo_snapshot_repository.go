package repositories

import (
	"time"

	"github.com/kibotu/git-history-timeline/internal/models"
)

type RepoSnapshotRepository struct {
	db DB
}

func NewRepoSnapshotRepository(db DB) *RepoSnapshotRepository {
	return &RepoSnapshotRepository{db: db}
}

// Upsert inserts or replaces the snapshot for a repository
func (r *RepoSnapshotRepository) Upsert(snapshot *models.RepoSnapshot) error {
	query := `
		INSERT OR REPLACE INTO repo_snapshots (full_name, pushed_at, fetched_at)
		VALUES (?, ?, ?)
	`

	_, err := r.db.Exec(query,
		snapshot.FullName,
		snapshot.PushedAt.UTC().Format(time.RFC3339),
		snapshot.FetchedAt.UTC().Format(time.RFC3339),
	)

	return err
}

// GetAll retrieves every stored repository snapshot
func (r *RepoSnapshotRepository) GetAll() ([]*models.RepoSnapshot, error) {
	query := `SELECT full_name, pushed_at, fetched_at FROM repo_snapshots`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*models.RepoSnapshot
	for rows.Next() {
		snapshot := &models.RepoSnapshot{}
		var pushedAt, fetchedAt string
		if err := rows.Scan(&snapshot.FullName, &pushedAt, &fetchedAt); err != nil {
			return nil, err
		}
		if snapshot.PushedAt, err = time.Parse(time.RFC3339, pushedAt); err != nil {
			return nil, err
		}
		if snapshot.FetchedAt, err = time.Parse(time.RFC3339, fetchedAt); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}

	return snapshots, rows.Err()
}

// DeleteAll removes every stored snapshot
func (r *RepoSnapshotRepository) DeleteAll() error {
	_, err := r.db.Exec(`DELETE FROM repo_snapshots`)
	return err
}
