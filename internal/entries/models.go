package entries

import (
	"time"
)

// MaxCalories is the exclusive upper bound for intake/burned values.
// Anything at or above it is treated as corrupt input.
const MaxCalories = 10000

// RawEntry is a daily entry as found in storage or an import file,
// in either the current or the legacy shape.
type RawEntry map[string]any

// Shape identifies which historical layout a raw entry uses.
type Shape int

const (
	// ShapeCurrent has flat weightKg/caloriesIntake/caloriesBurned fields.
	ShapeCurrent Shape = iota
	// ShapeLegacy has weight and an optional nested calories {intake, burned} object.
	ShapeLegacy
)

func (s Shape) String() string {
	switch s {
	case ShapeLegacy:
		return "legacy"
	default:
		return "current"
	}
}

// DailyEntry is the canonical daily record.
type DailyEntry struct {
	ID                string    `json:"id"`
	Date              time.Time `json:"date"`
	WeightKg          float64   `json:"weightKg"`
	CaloriesIntake    int       `json:"caloriesIntake"`
	CaloriesBurned    int       `json:"caloriesBurned"`
	Notes             string    `json:"notes"`
	CompletedWorkouts []string  `json:"completedWorkouts"`
}

// HasWeight reports whether a weight was logged that day.
func (e DailyEntry) HasWeight() bool {
	return e.WeightKg > 0
}

// DayKey formats the entry's calendar day in loc.
func (e DailyEntry) DayKey(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return e.Date.In(loc).Format(time.DateOnly)
}

// DefaultID returns the id used for an entry saved without one: the
// calendar day of date in loc, so it matches DayKey.
func DefaultID(date time.Time, loc *time.Location) string {
	if date.IsZero() {
		return "entry-undated"
	}
	return "entry-" + DailyEntry{Date: date}.DayKey(loc)
}
