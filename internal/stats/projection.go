package stats

import (
	"math"
	"time"
)

// KcalPerKg is the energy equivalent of one kilogram of body mass.
const KcalPerKg = 7700.0

const maxProjectionDays = 3650

var defaultCheckpoints = []int{7, 30, 90}

type ProjectionPoint struct {
	Day    int       `json:"day"`
	Date   time.Time `json:"date"`
	Weight float64   `json:"weight"`
}

type Projection struct {
	CurrentWeight float64 `json:"currentWeight"`
	// DailyDeficit is burned minus intake in kcal/day: positive means weight
	// loss. It is the negation of avgCaloriesIntake - avgCaloriesBurned.
	DailyDeficit float64 `json:"dailyDeficit"`
	// Meaningful is false when the deficit is zero and the series is flat.
	Meaningful bool              `json:"meaningful"`
	Points     []ProjectionPoint `json:"points"`
}

type GoalProjection struct {
	CalorieGoal int `json:"calorieGoal"`
	// DailyDeficit is avgCaloriesBurned - calorieGoal, same sign as Projection.DailyDeficit.
	DailyDeficit float64     `json:"dailyDeficit"`
	Projection   *Projection `json:"projection"`
	WeightGoal   *float64    `json:"weightGoal,omitempty"`
	// DaysToGoal is set only when the deficit moves weight toward the goal.
	DaysToGoal *int `json:"daysToGoal,omitempty"`
}

// Project estimates weight at each requested day n as
// current - deficit*n/KcalPerKg, dated from start.
func Project(current, dailyDeficit float64, days []int, start time.Time) *Projection {
	if current <= 0 || math.IsNaN(dailyDeficit) || math.IsInf(dailyDeficit, 0) {
		return nil
	}

	p := &Projection{
		CurrentWeight: current,
		DailyDeficit:  dailyDeficit,
		Meaningful:    dailyDeficit != 0,
		Points:        make([]ProjectionPoint, 0, len(days)),
	}
	for _, n := range days {
		p.Points = append(p.Points, ProjectionPoint{
			Day:    n,
			Date:   start.AddDate(0, 0, n),
			Weight: current - dailyDeficit*float64(n)/KcalPerKg,
		})
	}
	return p
}

// ProjectGoal assumes the user eats exactly calorieGoal every day.
func ProjectGoal(current float64, calorieGoal int, avgBurned float64, weightGoal *float64, days []int, start time.Time) *GoalProjection {
	deficit := avgBurned - float64(calorieGoal)
	g := &GoalProjection{
		CalorieGoal:  calorieGoal,
		DailyDeficit: deficit,
		Projection:   Project(current, deficit, days, start),
		WeightGoal:   weightGoal,
	}
	if weightGoal != nil && *weightGoal > 0 && deficit != 0 {
		toLose := current - *weightGoal
		if toLose != 0 && (toLose > 0) == (deficit > 0) {
			n := int(math.Ceil(toLose * KcalPerKg / deficit))
			g.DaysToGoal = &n
		}
	}
	return g
}

// ProjectionDays expands a horizon into 1..horizon.
func ProjectionDays(horizon int) []int {
	if horizon > maxProjectionDays {
		horizon = maxProjectionDays
	}
	days := make([]int, 0, horizon)
	for n := 1; n <= horizon; n++ {
		days = append(days, n)
	}
	return days
}

func horizonOrCheckpoints(opts Options) []int {
	if opts.ProjectionDays > 0 {
		return ProjectionDays(opts.ProjectionDays)
	}
	if len(opts.Checkpoints) > 0 {
		return opts.Checkpoints
	}
	return defaultCheckpoints
}
