package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/kibotu/git-history-timeline/internal/models"
)

const redisCacheKey = "contribgraph:cache"

// RedisStore persists the cache as a single JSON record in Redis
type RedisStore struct {
	client *redis.Client
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	Database int
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.Database,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Load reads the cache record; a missing key yields an empty cache
func (s *RedisStore) Load(ctx context.Context) (*models.Cache, error) {
	payload, err := s.client.Get(ctx, redisCacheKey).Bytes()
	if err == redis.Nil {
		return models.NewCache(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cache from redis: %w", err)
	}

	cache := models.NewCache()
	if err := json.Unmarshal(payload, cache); err != nil {
		return nil, fmt.Errorf("failed to decode cache record: %w", err)
	}
	if cache.Snapshots == nil {
		cache.Snapshots = make(map[string]*models.RepoSnapshot)
	}
	if cache.Commits == nil {
		cache.Commits = make(map[string]*models.Commit)
	}

	return cache, nil
}

// Save writes the cache record
func (s *RedisStore) Save(ctx context.Context, cache *models.Cache) error {
	payload, err := json.Marshal(cache)
	if err != nil {
		return fmt.Errorf("failed to encode cache record: %w", err)
	}

	if err := s.client.Set(ctx, redisCacheKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to save cache to redis: %w", err)
	}

	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
