package services

import (
	"time"

	"github.com/kibotu/git-history-timeline/internal/models"
)

// CalendarService lays one year's aggregate out as a week-major grid,
// the way contribution calendars are drawn.
type CalendarService struct {
	statistics *StatisticsService
}

func NewCalendarService(statisticsService *StatisticsService) *CalendarService {
	return &CalendarService{statistics: statisticsService}
}

// BuildYear builds the grid for one year. The grid starts on the
// Sunday on or before January 1 and ends on the Saturday on or after
// December 31, so every week holds exactly seven days. Days outside
// the year are padding cells with count 0 and the out-of-year level.
func (s *CalendarService) BuildYear(year int, stats *models.Statistics) *models.CalendarGrid {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	dec31 := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	start := jan1.AddDate(0, 0, -int(jan1.Weekday()))
	end := dec31.AddDate(0, 0, 6-int(dec31.Weekday()))

	var yearStats *models.YearStats
	if stats != nil {
		yearStats = stats.Years[year]
	}

	grid := &models.CalendarGrid{Year: year}
	for weekStart := start; !weekStart.After(end); weekStart = weekStart.AddDate(0, 0, 7) {
		var week models.Week
		for day := 0; day < 7; day++ {
			date := weekStart.AddDate(0, 0, day)
			cell := models.DayCell{Date: date, Level: models.LevelOutOfYear}

			if !date.Before(jan1) && !date.After(dec31) {
				cell.InYear = true
				count, maxDaily := 0, 0
				if yearStats != nil {
					count = yearStats.Days[date.Format(models.DateKey)]
					maxDaily = yearStats.MaxDaily
				}
				cell.Count = count
				cell.Level = s.statistics.ContributionLevel(count, maxDaily)
			}

			week.Days[day] = cell
		}
		grid.Weeks = append(grid.Weeks, week)
	}

	return grid
}
