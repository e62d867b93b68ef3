package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kibotu/git-history-timeline/internal/models"
)

func testCache() *models.Cache {
	cache := models.NewCache()
	cache.Username = "octo"

	branch := "main"
	cache.AddCommit(models.NewCommit(
		"abc123", "initial commit",
		time.Date(2024, 1, 13, 10, 0, 0, 0, time.UTC),
		"octo/alpha", &branch, "https://example.com/abc123",
	))
	cache.AddCommit(models.NewCommit(
		"def456", "merged elsewhere",
		time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
		"other/project", nil, "https://example.com/def456",
	))

	cache.SetSnapshot("octo/alpha", time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC))

	lastSearch := time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC)
	cache.LastSearch = &lastSearch

	return cache
}

func assertCacheRoundtrip(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	// An empty backend yields an empty cache
	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Commits)
	assert.Empty(t, empty.Snapshots)

	original := testCache()
	require.NoError(t, store.Save(ctx, original))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, "octo", loaded.Username)
	require.Len(t, loaded.Commits, 2)

	abc := loaded.Commits["abc123"]
	require.NotNil(t, abc)
	assert.Equal(t, "initial commit", abc.Message)
	assert.Equal(t, "octo/alpha", abc.Repository)
	require.NotNil(t, abc.Branch)
	assert.Equal(t, "main", *abc.Branch)
	assert.True(t, abc.AuthorDate.Equal(time.Date(2024, 1, 13, 10, 0, 0, 0, time.UTC)))

	def := loaded.Commits["def456"]
	require.NotNil(t, def)
	assert.Nil(t, def.Branch, "search-sourced commits keep their absent branch")

	snapshot := loaded.Snapshots["octo/alpha"]
	require.NotNil(t, snapshot)
	assert.True(t, snapshot.PushedAt.Equal(time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)))

	require.NotNil(t, loaded.LastSearch)
	assert.True(t, loaded.LastSearch.Equal(time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC)))
}

func TestSQLiteStoreRoundtrip(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	assertCacheRoundtrip(t, store)
}

func TestSQLiteStoreSaveReplacesPreviousRun(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, testCache()))

	// A later run with fewer commits fully replaces the stored set
	replacement := models.NewCache()
	replacement.Username = "octo"
	replacement.AddCommit(models.NewCommit(
		"only", "sole survivor",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		"octo/alpha", nil, "",
	))
	require.NoError(t, store.Save(ctx, replacement))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Commits, 1)
	assert.Empty(t, loaded.Snapshots)
	assert.NotNil(t, loaded.Commits["only"])
	assert.Nil(t, loaded.LastSearch, "a run without a search phase clears the stored marker")
}

func TestSQLiteStoreSaveIsAtomic(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, testCache()))

	// Break the save midway: the meta write fails after the commit and
	// snapshot tables have already been cleared inside the transaction
	_, err = store.db.Exec(`DROP TABLE meta`)
	require.NoError(t, err)

	replacement := models.NewCache()
	replacement.Username = "octo"
	require.Error(t, store.Save(ctx, replacement))

	_, err = store.db.Exec(`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`)
	require.NoError(t, err)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Commits, 2, "failed save must not drop previously stored commits")
	assert.Len(t, loaded.Snapshots, 1)
	assert.NotNil(t, loaded.Commits["abc123"])
}
