package services

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kibotu/git-history-timeline/internal/models"
)

func TestExportStatistics(t *testing.T) {
	statisticsService := NewStatisticsService()
	service := NewExportService(statisticsService)

	stats := statisticsService.Aggregate([]*models.Commit{
		commitAt("a1", "octo/alpha", "2024-01-13T10:00:00Z"),
		commitAt("a2", "octo/alpha", "2024-01-13T11:00:00Z"),
		commitAt("b1", "octo/beta", "2023-06-01T12:00:00Z"),
	})

	path := filepath.Join(t.TempDir(), "stats.xlsx")
	require.NoError(t, service.ExportStatistics(stats, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	total, err := f.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "3", total)

	repos, err := f.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "2", repos)

	// One sheet per year, daily rows sorted by date
	date, err := f.GetCellValue("2024", "A2")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-13", date)

	count, err := f.GetCellValue("2024", "B2")
	require.NoError(t, err)
	assert.Equal(t, "2", count)

	_, err = f.GetCellValue("2023", "A2")
	assert.NoError(t, err)
}
