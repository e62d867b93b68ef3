package services

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/kibotu/git-history-timeline/internal/models"
)

// ExportService writes the aggregate to an Excel workbook: a summary
// sheet plus one sheet per year with daily counts and levels.
type ExportService struct {
	statistics *StatisticsService
}

func NewExportService(statisticsService *StatisticsService) *ExportService {
	return &ExportService{statistics: statisticsService}
}

// ExportStatistics writes the workbook to the given path
func (s *ExportService) ExportStatistics(stats *models.Statistics, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	f.SetSheetName("Sheet1", summary)

	f.SetCellValue(summary, "A1", "Total commits")
	f.SetCellValue(summary, "B1", stats.TotalCommits)
	f.SetCellValue(summary, "A2", "Repositories")
	f.SetCellValue(summary, "B2", stats.RepoCount)

	f.SetCellValue(summary, "A4", "Year")
	f.SetCellValue(summary, "B4", "Commits")
	f.SetCellValue(summary, "C4", "Busiest day")

	row := 5
	for _, year := range stats.YearList() {
		yearStats := stats.Years[year]

		f.SetCellValue(summary, fmt.Sprintf("A%d", row), year)
		f.SetCellValue(summary, fmt.Sprintf("B%d", row), yearStats.Total)
		f.SetCellValue(summary, fmt.Sprintf("C%d", row), yearStats.MaxDaily)
		row++

		if err := s.writeYearSheet(f, yearStats); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	return nil
}

func (s *ExportService) writeYearSheet(f *excelize.File, yearStats *models.YearStats) error {
	sheet := strconv.Itoa(yearStats.Year)
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	f.SetCellValue(sheet, "A1", "Date")
	f.SetCellValue(sheet, "B1", "Commits")
	f.SetCellValue(sheet, "C1", "Level")

	dates := make([]string, 0, len(yearStats.Days))
	for date := range yearStats.Days {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	for i, date := range dates {
		row := i + 2
		count := yearStats.Days[date]
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), date)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), count)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), s.statistics.ContributionLevel(count, yearStats.MaxDaily))
	}

	return nil
}
