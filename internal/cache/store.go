// Package cache persists collection state between runs: per-repository
// push snapshots plus the deduplicated commit set. Two backends exist,
// an embedded SQLite file and Redis.
package cache

import (
	"context"

	"github.com/kibotu/git-history-timeline/internal/models"
)

// Store loads and saves the persisted cache record. Load on an empty
// backend returns a fresh empty cache, never an error.
type Store interface {
	Load(ctx context.Context) (*models.Cache, error)
	Save(ctx context.Context, cache *models.Cache) error
	Close() error
}
