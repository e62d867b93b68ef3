package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kibotu/git-history-timeline/internal/cache"
	"github.com/kibotu/git-history-timeline/internal/handlers"
	"github.com/kibotu/git-history-timeline/internal/services"
	"github.com/kibotu/git-history-timeline/pkg/config"
	"github.com/kibotu/git-history-timeline/pkg/logger"
)

func main() {
	user := flag.String("user", "", "target username (defaults to the token owner)")
	filterFlag := flag.String("filter", "all", "repository filter: all, owned, forks, contributions")
	refresh := flag.Bool("refresh", false, "ignore cached push state and refetch everything")
	cached := flag.Bool("cached", false, "serve the last persisted run without network calls")
	out := flag.String("out", "contributions.json", "output file for the commits payload")
	export := flag.String("export", "", "optional path for an Excel export of the statistics")
	serve := flag.Bool("serve", false, "serve the collected history over HTTP after fetching")
	flag.Parse()

	// Load configuration
	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.AppConfig

	filter, err := services.ParseRepoFilter(*filterFlag)
	if err != nil {
		log.Fatalf("%v", err)
	}

	// A missing or placeholder token aborts before any network work.
	// Cache-only runs need no token at all.
	if !*cached {
		if err := cfg.GitHub.ValidateToken(); err != nil {
			log.Fatalf("Authentication error: %v", err)
		}
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open cache store: %v", err)
	}
	defer store.Close()

	// Initialize dependencies
	githubService := services.NewGitHubService(cfg.GitHub.Token, cfg.Fetch)
	collector := services.NewCollectorService(githubService, store, cfg.Fetch.Concurrency, cfg.Fetch.SearchMaxPages)
	statisticsService := services.NewStatisticsService()
	calendarService := services.NewCalendarService(statisticsService)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	username := *user
	if username == "" {
		username = cfg.GitHub.Username
	}

	result, err := collector.Collect(ctx, services.CollectOptions{
		Username:     username,
		Filter:       filter,
		ForceRefresh: *refresh,
		UseCache:     *cached,
	})
	if err != nil {
		logger.Fatalf("Collection failed: %v", err)
	}

	if err := writeResult(result, *out); err != nil {
		logger.Fatalf("Failed to write %s: %v", *out, err)
	}

	stats := statisticsService.Aggregate(result.Commits)
	logger.WithFields(logrus.Fields{
		"username":     result.Username,
		"commits":      stats.TotalCommits,
		"repositories": stats.RepoCount,
		"years":        len(stats.Years),
		"output":       *out,
	}).Info("Commit history ready")

	if *export != "" {
		exportService := services.NewExportService(statisticsService)
		if err := exportService.ExportStatistics(stats, *export); err != nil {
			logger.Fatalf("Export failed: %v", err)
		}
		logger.Infof("Statistics exported to %s", *export)
	}

	if *serve {
		refreshFunc := handlers.RefreshFunc(func(ctx context.Context) (*services.CollectResult, error) {
			return collector.Collect(ctx, services.CollectOptions{Username: username, Filter: filter})
		})
		runServer(ctx, cfg, result, statisticsService, calendarService, refreshFunc)
	}
}

// openStore selects the configured cache backend
func openStore(cfg *config.Config) (cache.Store, error) {
	if cfg.Cache.Backend == "redis" {
		return cache.NewRedisStore(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			Database: cfg.Cache.RedisDB,
		})
	}
	return cache.NewSQLiteStore(cfg.Database.Path)
}

// writeResult writes the {username, commits} payload consumed by
// external renderers
func writeResult(result *services.CollectResult, path string) error {
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func runServer(
	ctx context.Context,
	cfg *config.Config,
	result *services.CollectResult,
	statisticsService *services.StatisticsService,
	calendarService *services.CalendarService,
	refresh handlers.RefreshFunc,
) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	healthHandler := handlers.NewHealthHandler()
	statsHandler := handlers.NewStatsHandler(result, statisticsService, calendarService, refresh)

	router.GET("/health", healthHandler.HealthCheck)
	api := router.Group("/api")
	{
		api.GET("/commits", statsHandler.GetCommits)
		api.GET("/statistics", statsHandler.GetStatistics)
		api.GET("/calendar/:year", statsHandler.GetCalendar)
		api.POST("/refresh", statsHandler.Refresh)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Infof("Server starting on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown: %v", err)
	}
}
