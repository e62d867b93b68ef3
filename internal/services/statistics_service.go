package services

import (
	"sort"

	"github.com/kibotu/git-history-timeline/internal/models"
)

// StatisticsService reduces a commit set into per-day and per-year
// aggregates. Aggregate is a pure function of its input.
type StatisticsService struct{}

func NewStatisticsService() *StatisticsService {
	return &StatisticsService{}
}

// Aggregate computes daily counts, per-year totals and each year's
// busiest day from a commit set. Commits sharing a SHA are counted
// once; the first occurrence wins.
func (s *StatisticsService) Aggregate(commits []*models.Commit) *models.Statistics {
	stats := &models.Statistics{
		ByDate:      make(map[string]int),
		ReposByDate: make(map[string][]string),
		Years:       make(map[int]*models.YearStats),
	}

	seen := make(map[string]bool, len(commits))
	repos := make(map[string]bool)
	reposByDate := make(map[string]map[string]bool)

	for _, commit := range commits {
		if seen[commit.SHA] {
			continue
		}
		seen[commit.SHA] = true

		date := commit.AuthorDate.UTC()
		key := date.Format(models.DateKey)
		year := date.Year()

		stats.TotalCommits++
		stats.ByDate[key]++

		yearStats := stats.Years[year]
		if yearStats == nil {
			yearStats = &models.YearStats{Year: year, Days: make(map[string]int)}
			stats.Years[year] = yearStats
		}
		yearStats.Days[key]++
		yearStats.Total++

		repos[commit.Repository] = true
		if reposByDate[key] == nil {
			reposByDate[key] = make(map[string]bool)
		}
		reposByDate[key][commit.Repository] = true
	}

	for _, yearStats := range stats.Years {
		for _, count := range yearStats.Days {
			if count > yearStats.MaxDaily {
				yearStats.MaxDaily = count
			}
		}
	}

	stats.RepoCount = len(repos)
	for key, names := range reposByDate {
		sorted := make([]string, 0, len(names))
		for name := range names {
			sorted = append(sorted, name)
		}
		sort.Strings(sorted)
		stats.ReposByDate[key] = sorted
	}

	return stats
}

// ContributionLevel classifies a day's commit count against the year's
// busiest day into a 0-4 intensity. Years whose busiest day has at
// most 4 commits use absolute counts; active years scale relative to
// MaxDaily. Scaling is always per year, never global.
func (s *StatisticsService) ContributionLevel(count, maxDaily int) int {
	if count == 0 {
		return 0
	}

	if maxDaily <= 4 {
		switch {
		case count >= 4:
			return 4
		case count == 3:
			return 3
		case count == 2:
			return 2
		default:
			return 1
		}
	}

	ratio := float64(count) / float64(maxDaily)
	switch {
	case ratio >= 0.75:
		return 4
	case ratio >= 0.50:
		return 3
	case ratio >= 0.25:
		return 2
	default:
		return 1
	}
}
