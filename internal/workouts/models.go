package workouts

import (
	"fmt"
	"strings"
	"time"
)

// ============================================================================
// Domain
// ============================================================================

type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

const (
	DefaultRest = 60
	DefaultSets = 3
	DefaultReps = 10

	// WeightIncrement is the load added when every target rep was hit.
	WeightIncrement = 2.5
)

// CompletedSet is one performed set of an exercise.
type CompletedSet struct {
	Weight    float64   `json:"weight"`
	Reps      int       `json:"reps"`
	Completed bool      `json:"completed"`
	Timestamp time.Time `json:"timestamp"`
}

type Exercise struct {
	ID            string         `json:"id,omitempty"`
	Name          string         `json:"name"`
	Category      string         `json:"category,omitempty"`
	Sets          int            `json:"sets"`
	Reps          int            `json:"reps"`
	Weight        float64        `json:"weight"`
	Rest          int            `json:"rest"`
	Notes         string         `json:"notes,omitempty"`
	Difficulty    string         `json:"difficulty,omitempty"`
	CompletedSets []CompletedSet `json:"completedSets"`
}

type Workout struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Type        string     `json:"type,omitempty"`
	Date        string     `json:"date,omitempty"`
	Status      Status     `json:"status"`
	TemplateID  string     `json:"templateId,omitempty"`
	WorkoutID   string     `json:"workoutId,omitempty"`
	Exercises   []Exercise `json:"exercises"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ApplyDefaults fills the fields older records may lack.
func (w *Workout) ApplyDefaults() {
	if w.Status == "" {
		w.Status = StatusPlanned
	}
	if w.Exercises == nil {
		w.Exercises = []Exercise{}
	}
	for i := range w.Exercises {
		if w.Exercises[i].Rest <= 0 {
			w.Exercises[i].Rest = DefaultRest
		}
		if w.Exercises[i].CompletedSets == nil {
			w.Exercises[i].CompletedSets = []CompletedSet{}
		}
	}
}

// ============================================================================
// Requests
// ============================================================================

// ExerciseRequest describes an exercise to plan. Nil numbers take defaults.
type ExerciseRequest struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Sets     *int     `json:"sets"`
	Reps     *int     `json:"reps"`
	Weight   *float64 `json:"weight"`
	Rest     *int     `json:"rest"`
	Notes    string   `json:"notes"`
}

// WorkoutRequest is used to create or update a planned workout.
type WorkoutRequest struct {
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Date      string            `json:"date"`
	Exercises []ExerciseRequest `json:"exercises"`
}

// LogSetRequest records one set of the exercise at ExerciseIndex.
type LogSetRequest struct {
	ExerciseIndex int     `json:"exerciseIndex"`
	Weight        float64 `json:"weight"`
	Reps          int     `json:"reps"`
	Completed     *bool   `json:"completed"`
}

type InstantiateRequest struct {
	Date string `json:"date"`
}

// ============================================================================
// Responses
// ============================================================================

type ListResponse struct {
	Workouts []Workout `json:"workouts"`
}

type ExerciseSummary struct {
	Name          string  `json:"name"`
	TargetSets    int     `json:"targetSets"`
	CompletedSets int     `json:"completedSets"`
	Volume        float64 `json:"volume"`
}

type Summary struct {
	WorkoutID      string            `json:"workoutId"`
	Status         Status            `json:"status"`
	TotalSets      int               `json:"totalSets"`
	CompletedSets  int               `json:"completedSets"`
	CompletionRate float64           `json:"completionRate"`
	Volume         float64           `json:"volume"`
	DurationSec    *int64            `json:"durationSec,omitempty"`
	Exercises      []ExerciseSummary `json:"exercises"`
}

type ProgressionKind string

const (
	ProgressionNone   ProgressionKind = "none"
	ProgressionWeight ProgressionKind = "weight"
	ProgressionReps   ProgressionKind = "reps"
)

// Suggestion is the next target for an exercise.
type Suggestion struct {
	Exercise string          `json:"exercise"`
	Kind     ProgressionKind `json:"kind"`
	Weight   float64         `json:"weight"`
	Reps     int             `json:"reps"`
}

type ProgressionResponse struct {
	WorkoutID   string       `json:"workoutId"`
	Suggestions []Suggestion `json:"suggestions"`
}

type TemplatesResponse struct {
	Templates []Template `json:"templates"`
}

// ============================================================================
// Validation
// ============================================================================

const (
	MaxExercises        = 30
	MaxSetsPerExercise  = 20
	MaxRepsPerSet       = 200
	MaxRest             = 600
	MaxNameLength       = 120
	MaxWeight           = 1000.0
	MaxLoggedSetsFactor = 3
)

// ValidateWorkoutRequest validates a create/update request.
func ValidateWorkoutRequest(req *WorkoutRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(req.Name) > MaxNameLength {
		return fmt.Errorf("name too long: max %d characters", MaxNameLength)
	}

	if err := validateDate(req.Date); err != nil {
		return err
	}

	if len(req.Exercises) > MaxExercises {
		return fmt.Errorf("too many exercises: max %d", MaxExercises)
	}
	for i, ex := range req.Exercises {
		if err := validateExerciseRequest(ex); err != nil {
			return fmt.Errorf("exercises[%d]: %w", i, err)
		}
	}
	return nil
}

func validateExerciseRequest(ex ExerciseRequest) error {
	if strings.TrimSpace(ex.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if ex.Sets != nil && (*ex.Sets < 1 || *ex.Sets > MaxSetsPerExercise) {
		return fmt.Errorf("sets must be between 1 and %d", MaxSetsPerExercise)
	}
	if ex.Reps != nil && (*ex.Reps < 1 || *ex.Reps > MaxRepsPerSet) {
		return fmt.Errorf("reps must be between 1 and %d", MaxRepsPerSet)
	}
	if ex.Weight != nil && (*ex.Weight < 0 || *ex.Weight > MaxWeight) {
		return fmt.Errorf("weight must be between 0 and %.0f", MaxWeight)
	}
	if ex.Rest != nil && (*ex.Rest < 1 || *ex.Rest > MaxRest) {
		return fmt.Errorf("rest must be between 1 and %d", MaxRest)
	}
	return nil
}

// ValidateLogSetRequest checks the set against the workout it is logged to.
func ValidateLogSetRequest(req *LogSetRequest, w *Workout) error {
	if req.ExerciseIndex < 0 || req.ExerciseIndex >= len(w.Exercises) {
		return fmt.Errorf("exerciseIndex out of range")
	}
	if req.Reps < 0 || req.Reps > MaxRepsPerSet {
		return fmt.Errorf("reps must be between 0 and %d", MaxRepsPerSet)
	}
	if req.Weight < 0 || req.Weight > MaxWeight {
		return fmt.Errorf("weight must be between 0 and %.0f", MaxWeight)
	}
	ex := w.Exercises[req.ExerciseIndex]
	if limit := max(ex.Sets, 1) * MaxLoggedSetsFactor; len(ex.CompletedSets) >= limit {
		return fmt.Errorf("too many sets logged for %s: max %d", ex.Name, limit)
	}
	return nil
}

func validateDate(date string) error {
	if date == "" {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return fmt.Errorf("date must be in YYYY-MM-DD format")
	}
	return nil
}
