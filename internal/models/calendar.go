package models

import (
	"time"
)

// DayCell is one day in the calendar grid. Cells padding the grid
// outside the target year carry count 0, level LevelOutOfYear and
// InYear=false.
type DayCell struct {
	Date   time.Time `json:"date"`
	Count  int       `json:"count"`
	Level  int       `json:"level"`
	InYear bool      `json:"in_year"`
}

// Week is a fixed Sunday..Saturday run of day cells
type Week struct {
	Days [7]DayCell `json:"days"`
}

// CalendarGrid is one year's contribution calendar: chronological
// weeks, each exactly seven days, Sunday-aligned on both ends.
type CalendarGrid struct {
	Year  int    `json:"year"`
	Weeks []Week `json:"weeks"`
}
