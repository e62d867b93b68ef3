package handlers

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/kibotu/git-history-timeline/internal/models"
	"github.com/kibotu/git-history-timeline/internal/services"
)

// RefreshFunc re-runs a collection and returns the fresh result
type RefreshFunc func(ctx context.Context) (*services.CollectResult, error)

// StatsHandler serves the collected history and its aggregates to
// external renderers.
type StatsHandler struct {
	mu                sync.RWMutex
	result            *services.CollectResult
	stats             *models.Statistics
	statisticsService *services.StatisticsService
	calendarService   *services.CalendarService
	refresh           RefreshFunc
}

func NewStatsHandler(
	result *services.CollectResult,
	statisticsService *services.StatisticsService,
	calendarService *services.CalendarService,
	refresh RefreshFunc,
) *StatsHandler {
	return &StatsHandler{
		result:            result,
		stats:             statisticsService.Aggregate(result.Commits),
		statisticsService: statisticsService,
		calendarService:   calendarService,
		refresh:           refresh,
	}
}

// GetCommits returns the {username, commits} payload
func (h *StatsHandler) GetCommits(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c.JSON(http.StatusOK, h.result)
}

// GetStatistics returns the full aggregate
func (h *StatsHandler) GetStatistics(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c.JSON(http.StatusOK, h.stats)
}

// GetCalendar returns one year's calendar grid
func (h *StatsHandler) GetCalendar(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return
	}

	h.mu.RLock()
	stats := h.stats
	h.mu.RUnlock()

	c.JSON(http.StatusOK, h.calendarService.BuildYear(year, stats))
}

// Refresh re-runs the collection and swaps the served data
func (h *StatsHandler) Refresh(c *gin.Context) {
	if h.refresh == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "refresh not available"})
		return
	}

	result, err := h.refresh(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	h.mu.Lock()
	h.result = result
	h.stats = h.statisticsService.Aggregate(result.Commits)
	h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"commits": len(result.Commits)})
}
