package stats

import (
	"time"

	"github.com/Raventwist88/ontrakk/internal/entries"
)

type WeightPoint struct {
	Date   time.Time `json:"date"`
	Weight float64   `json:"weight"`
}

type CaloriePoint struct {
	Date   time.Time `json:"date"`
	Intake int       `json:"intake"`
	Burned int       `json:"burned"`
	Net    int       `json:"net"`
}

// Stats is derived from the deduplicated entry set. Nil pointers mean
// "no data" for that field.
type Stats struct {
	CurrentWeight     *float64        `json:"currentWeight"`
	StartingWeight    *float64        `json:"startingWeight"`
	WeightChange      *float64        `json:"weightChange"`
	AvgCaloriesIntake *float64        `json:"avgCaloriesIntake"`
	AvgCaloriesBurned *float64        `json:"avgCaloriesBurned"`
	TotalDaysTracked  int             `json:"totalDaysTracked"`
	LastEntry         *time.Time      `json:"lastEntry"`
	WeightTrend       []WeightPoint   `json:"weightTrend"`
	CalorieTrend      []CaloriePoint  `json:"calorieTrend"`
	Projection        *Projection     `json:"projection,omitempty"`
	GoalProjection    *GoalProjection `json:"goalProjection,omitempty"`
}

// DailyDeficit is average burned minus average intake, or nil when either
// average is missing. Positive means weight loss.
func (s *Stats) DailyDeficit() *float64 {
	if s == nil || s.AvgCaloriesIntake == nil || s.AvgCaloriesBurned == nil {
		return nil
	}
	d := *s.AvgCaloriesBurned - *s.AvgCaloriesIntake
	return &d
}

type Options struct {
	// Location groups entries by calendar day. Nil means UTC.
	Location *time.Location
	Window   Window
	Now      time.Time

	// ProjectionDays > 0 yields one point per day up to the horizon.
	// Otherwise Checkpoints (default 7, 30, 90) are projected.
	ProjectionDays int
	Checkpoints    []int

	CalorieGoal *int
	WeightGoal  *float64
}

// ComputeStats deduplicates list, applies the window and derives Stats.
// It returns nil when nothing is left to aggregate.
func ComputeStats(list []entries.DailyEntry, opts Options) *Stats {
	sorted := DeduplicateByDay(list, opts.Location)
	return computeSorted(sorted, opts)
}

func computeSorted(sorted []entries.DailyEntry, opts Options) *Stats {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Window != "" {
		sorted = FilterWindow(sorted, opts.Window, opts.Now)
	}
	if len(sorted) == 0 {
		return nil
	}

	st := &Stats{
		TotalDaysTracked: len(sorted),
		WeightTrend:      make([]WeightPoint, 0, len(sorted)),
		CalorieTrend:     make([]CaloriePoint, 0, len(sorted)),
	}

	var intakeSum, burnedSum float64
	var intakeCount, burnedCount int
	for _, e := range sorted {
		if e.HasWeight() {
			w := e.WeightKg
			if st.StartingWeight == nil {
				st.StartingWeight = &w
			}
			st.CurrentWeight = &w
			st.WeightTrend = append(st.WeightTrend, WeightPoint{Date: e.Date, Weight: w})
		}
		if inCalorieRange(e.CaloriesIntake) {
			intakeSum += float64(e.CaloriesIntake)
			intakeCount++
		}
		if inCalorieRange(e.CaloriesBurned) {
			burnedSum += float64(e.CaloriesBurned)
			burnedCount++
		}
		st.CalorieTrend = append(st.CalorieTrend, CaloriePoint{
			Date:   e.Date,
			Intake: e.CaloriesIntake,
			Burned: e.CaloriesBurned,
			Net:    e.CaloriesIntake - e.CaloriesBurned,
		})
	}

	if st.CurrentWeight != nil && st.StartingWeight != nil {
		change := *st.CurrentWeight - *st.StartingWeight
		st.WeightChange = &change
	}
	if intakeCount > 0 {
		avg := intakeSum / float64(intakeCount)
		st.AvgCaloriesIntake = &avg
	}
	if burnedCount > 0 {
		avg := burnedSum / float64(burnedCount)
		st.AvgCaloriesBurned = &avg
	}
	last := sorted[len(sorted)-1].Date
	st.LastEntry = &last

	if st.CurrentWeight != nil {
		if deficit := st.DailyDeficit(); deficit != nil {
			st.Projection = Project(*st.CurrentWeight, *deficit, horizonOrCheckpoints(opts), last)
		}
		if opts.CalorieGoal != nil && st.AvgCaloriesBurned != nil {
			st.GoalProjection = ProjectGoal(*st.CurrentWeight, *opts.CalorieGoal, *st.AvgCaloriesBurned, opts.WeightGoal, horizonOrCheckpoints(opts), last)
		}
	}
	return st
}

func inCalorieRange(v int) bool {
	return v >= 0 && v < entries.MaxCalories
}
