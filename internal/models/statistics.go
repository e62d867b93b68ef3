package models

import "sort"

// DateKey is the layout used for daily aggregation keys (UTC dates).
const DateKey = "2006-01-02"

// LevelOutOfYear marks calendar cells that pad the grid outside the
// target year.
const LevelOutOfYear = -1

// YearStats holds one calendar year's aggregate: daily counts, the
// year total, and the busiest single day. MaxDaily drives that year's
// relative color scaling; scaling is never global.
type YearStats struct {
	Year     int            `json:"year"`
	Total    int            `json:"total"`
	MaxDaily int            `json:"max_daily"`
	Days     map[string]int `json:"days"` // DateKey -> commit count
}

// Statistics is the full aggregate produced from a deduplicated commit set
type Statistics struct {
	TotalCommits int                 `json:"total_commits"`
	RepoCount    int                 `json:"repo_count"`
	ByDate       map[string]int      `json:"by_date"`       // DateKey -> commit count
	ReposByDate  map[string][]string `json:"repos_by_date"` // DateKey -> distinct repo names, sorted
	Years        map[int]*YearStats  `json:"years"`
}

// YearList returns the years present in the aggregate in ascending order
func (s *Statistics) YearList() []int {
	years := make([]int, 0, len(s.Years))
	for year := range s.Years {
		years = append(years, year)
	}
	sort.Ints(years)
	return years
}
