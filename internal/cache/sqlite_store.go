package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kibotu/git-history-timeline/internal/models"
	"github.com/kibotu/git-history-timeline/internal/repositories"
	"github.com/kibotu/git-history-timeline/pkg/database"
)

const (
	metaKeyUsername   = "username"
	metaKeyLastSearch = "last_search"
)

// SQLiteStore persists the cache in an embedded SQLite database
type SQLiteStore struct {
	db           *sql.DB
	commitRepo   *repositories.CommitRepository
	snapshotRepo *repositories.RepoSnapshotRepository
	metaRepo     *repositories.MetaRepository
}

// NewSQLiteStore opens (or creates) the cache database at the given path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	return &SQLiteStore{
		db:           db,
		commitRepo:   repositories.NewCommitRepository(db),
		snapshotRepo: repositories.NewRepoSnapshotRepository(db),
		metaRepo:     repositories.NewMetaRepository(db),
	}, nil
}

// Load reads the full cache record
func (s *SQLiteStore) Load(ctx context.Context) (*models.Cache, error) {
	cache := models.NewCache()

	commits, err := s.commitRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load commits: %w", err)
	}
	for _, commit := range commits {
		cache.Commits[commit.SHA] = commit
	}

	snapshots, err := s.snapshotRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshots: %w", err)
	}
	for _, snapshot := range snapshots {
		cache.Snapshots[snapshot.FullName] = snapshot
	}

	if cache.Username, err = s.metaRepo.Get(metaKeyUsername); err != nil {
		return nil, fmt.Errorf("failed to load username: %w", err)
	}

	lastSearch, err := s.metaRepo.Get(metaKeyLastSearch)
	if err != nil {
		return nil, fmt.Errorf("failed to load search marker: %w", err)
	}
	if lastSearch != "" {
		parsed, err := time.Parse(time.RFC3339, lastSearch)
		if err == nil {
			cache.LastSearch = &parsed
		}
	}

	return cache, nil
}

// Save writes the full cache record, replacing previous contents. The
// replacement happens in one transaction so an interrupted save never
// leaves a partially emptied cache behind.
func (s *SQLiteStore) Save(ctx context.Context, cache *models.Cache) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save: %w", err)
	}
	defer tx.Rollback()

	commitRepo := repositories.NewCommitRepository(tx)
	snapshotRepo := repositories.NewRepoSnapshotRepository(tx)
	metaRepo := repositories.NewMetaRepository(tx)

	if err := commitRepo.DeleteAll(); err != nil {
		return fmt.Errorf("failed to clear commits: %w", err)
	}
	if err := snapshotRepo.DeleteAll(); err != nil {
		return fmt.Errorf("failed to clear snapshots: %w", err)
	}

	for _, commit := range cache.Commits {
		if err := commitRepo.Upsert(commit); err != nil {
			return fmt.Errorf("failed to save commit %s: %w", commit.SHA, err)
		}
	}
	for _, snapshot := range cache.Snapshots {
		if err := snapshotRepo.Upsert(snapshot); err != nil {
			return fmt.Errorf("failed to save snapshot %s: %w", snapshot.FullName, err)
		}
	}

	if err := metaRepo.Set(metaKeyUsername, cache.Username); err != nil {
		return fmt.Errorf("failed to save username: %w", err)
	}
	if cache.LastSearch != nil {
		if err := metaRepo.Set(metaKeyLastSearch, cache.LastSearch.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("failed to save search marker: %w", err)
		}
	} else if err := metaRepo.Delete(metaKeyLastSearch); err != nil {
		return fmt.Errorf("failed to clear search marker: %w", err)
	}

	return tx.Commit()
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
