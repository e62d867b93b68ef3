package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	GitHub   GitHubConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Fetch    FetchConfig
	Server   ServerConfig
}

type GitHubConfig struct {
	Token    string
	Username string
}

type DatabaseConfig struct {
	Path string
}

type CacheConfig struct {
	Backend       string // "sqlite" or "redis"
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type FetchConfig struct {
	Concurrency       int
	RequestsPerMinute int
	MaxRetries        int
	SearchMaxPages    int
}

type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

var AppConfig *Config

// Load loads configuration from .env file and environment variables
func Load() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = &Config{
		GitHub: GitHubConfig{
			Token:    getEnv("GITHUB_TOKEN", ""),
			Username: getEnv("GITHUB_USERNAME", ""),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./contribgraph.db"),
		},
		Cache: CacheConfig{
			Backend:       getEnv("CACHE_BACKEND", "sqlite"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
		},
		Fetch: FetchConfig{
			Concurrency:       getEnvAsInt("FETCH_CONCURRENCY", 5),
			RequestsPerMinute: getEnvAsInt("GITHUB_RATE_LIMIT", 80),
			MaxRetries:        getEnvAsInt("MAX_RETRIES", 3),
			SearchMaxPages:    getEnvAsInt("SEARCH_MAX_PAGES", 10),
		},
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 15),
		},
	}

	return nil
}

// ValidateToken checks that a usable GitHub token is configured.
// Placeholder values left over from .env templates count as missing.
func (c *GitHubConfig) ValidateToken() error {
	if c.Token == "" {
		return fmt.Errorf("GITHUB_TOKEN is not set")
	}
	if c.Token == "YOUR_GITHUB_TOKEN" || c.Token == "your_token_here" {
		return fmt.Errorf("GITHUB_TOKEN is still set to a placeholder value")
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
