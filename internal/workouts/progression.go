package workouts

// SuggestProgression looks at the logged sets of ex. When every set was
// completed at or above the target reps the weight goes up; when every set
// was completed but reps fell short the rep target goes up.
func SuggestProgression(ex Exercise) Suggestion {
	s := Suggestion{
		Exercise: ex.Name,
		Kind:     ProgressionNone,
		Weight:   ex.Weight,
		Reps:     ex.Reps,
	}
	if len(ex.CompletedSets) == 0 {
		return s
	}

	allCompleted, allHitReps := true, true
	for _, set := range ex.CompletedSets {
		if !set.Completed {
			allCompleted = false
		}
		if set.Reps < ex.Reps {
			allHitReps = false
		}
	}

	switch {
	case allCompleted && allHitReps:
		s.Kind = ProgressionWeight
		s.Weight = ex.Weight + WeightIncrement
	case allCompleted:
		s.Kind = ProgressionReps
		s.Reps = ex.Reps + 1
	}
	return s
}

// Summarize counts target and completed sets. Volume is weight x reps over
// completed sets.
func Summarize(w Workout) Summary {
	sum := Summary{
		WorkoutID: w.ID,
		Status:    w.Status,
		Exercises: make([]ExerciseSummary, 0, len(w.Exercises)),
	}
	for _, ex := range w.Exercises {
		es := ExerciseSummary{Name: ex.Name, TargetSets: ex.Sets}
		for _, set := range ex.CompletedSets {
			if !set.Completed {
				continue
			}
			es.CompletedSets++
			es.Volume += set.Weight * float64(set.Reps)
		}
		sum.TotalSets += es.TargetSets
		sum.CompletedSets += es.CompletedSets
		sum.Volume += es.Volume
		sum.Exercises = append(sum.Exercises, es)
	}
	if sum.TotalSets > 0 {
		sum.CompletionRate = float64(min(sum.CompletedSets, sum.TotalSets)) / float64(sum.TotalSets)
	}
	if w.StartedAt != nil && w.CompletedAt != nil {
		d := int64(w.CompletedAt.Sub(*w.StartedAt).Seconds())
		sum.DurationSec = &d
	}
	return sum
}
