package workouts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Raventwist88/ontrakk/internal/storage"
)

var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrWorkoutNotFound   = errors.New("workout not found")
	ErrTemplateNotFound  = errors.New("template not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Service manages planned workouts and their sessions.
type Service struct {
	store     storage.Store
	templates []Template
	now       func() time.Time
}

func NewService(store storage.Store) *Service {
	return &Service{
		store:     store,
		templates: builtinTemplates,
		now:       time.Now,
	}
}

// List returns workouts ordered by date, undated last, then by creation time.
func (s *Service) List(ctx context.Context) ([]Workout, error) {
	records, err := s.store.GetAll(ctx, storage.Workouts)
	if err != nil {
		return nil, storage.Unavailable("list workouts", err)
	}

	list := make([]Workout, 0, len(records))
	for _, rec := range records {
		w, err := Decode(rec.Body)
		if err != nil {
			continue
		}
		list = append(list, w)
	}
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Date != b.Date {
			if a.Date == "" || b.Date == "" {
				return b.Date == ""
			}
			return a.Date < b.Date
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return list, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Workout, error) {
	rec, err := s.store.Get(ctx, storage.Workouts, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, storage.Unavailable("get workout", err)
	}
	w, err := Decode(rec.Body)
	if err != nil {
		return nil, fmt.Errorf("decode workout %s: %w", rec.ID, err)
	}
	return &w, nil
}

// Create plans a new workout.
func (s *Service) Create(ctx context.Context, req *WorkoutRequest) (*Workout, error) {
	if err := ValidateWorkoutRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	w := Workout{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Type:      strings.TrimSpace(req.Type),
		Date:      req.Date,
		Status:    StatusPlanned,
		Exercises: exercisesFromRequest(req.Exercises),
		CreatedAt: s.now().UTC(),
	}
	if err := s.save(ctx, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// Update replaces the plan of a workout that has not started yet.
func (s *Service) Update(ctx context.Context, id string, req *WorkoutRequest) (*Workout, error) {
	if err := ValidateWorkoutRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.Status != StatusPlanned {
		return nil, fmt.Errorf("%w: cannot edit a %s workout", ErrInvalidTransition, w.Status)
	}

	w.Name = req.Name
	w.Type = strings.TrimSpace(req.Type)
	w.Date = req.Date
	w.Exercises = exercisesFromRequest(req.Exercises)
	if err := s.save(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, storage.Workouts, strings.TrimSpace(id)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrWorkoutNotFound
		}
		return storage.Unavailable("delete workout", err)
	}
	return nil
}

// Start moves a planned workout to in-progress.
func (s *Service) Start(ctx context.Context, id string) (*Workout, error) {
	return s.transition(ctx, id, StatusPlanned, StatusInProgress, func(w *Workout, now time.Time) {
		w.StartedAt = &now
	})
}

// Complete finishes an in-progress workout.
func (s *Service) Complete(ctx context.Context, id string) (*Workout, error) {
	return s.transition(ctx, id, StatusInProgress, StatusCompleted, func(w *Workout, now time.Time) {
		w.CompletedAt = &now
	})
}

// LogSet appends a set to an exercise of an in-progress workout.
func (s *Service) LogSet(ctx context.Context, id string, req *LogSetRequest) (*Workout, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.Status != StatusInProgress {
		return nil, fmt.Errorf("%w: sets can only be logged while in-progress, workout is %s", ErrInvalidTransition, w.Status)
	}
	if err := ValidateLogSetRequest(req, w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}
	ex := &w.Exercises[req.ExerciseIndex]
	ex.CompletedSets = append(ex.CompletedSets, CompletedSet{
		Weight:    req.Weight,
		Reps:      req.Reps,
		Completed: completed,
		Timestamp: s.now().UTC(),
	})
	if err := s.save(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) Summary(ctx context.Context, id string) (*Summary, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sum := Summarize(*w)
	return &sum, nil
}

// Progression suggests next targets for every exercise of the workout.
func (s *Service) Progression(ctx context.Context, id string) (*ProgressionResponse, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := &ProgressionResponse{
		WorkoutID:   w.ID,
		Suggestions: make([]Suggestion, 0, len(w.Exercises)),
	}
	for _, ex := range w.Exercises {
		resp.Suggestions = append(resp.Suggestions, SuggestProgression(ex))
	}
	return resp, nil
}

func (s *Service) ListTemplates() []Template {
	out := make([]Template, len(s.templates))
	copy(out, s.templates)
	return out
}

// CreateFromTemplate plans a workout from a built-in template.
func (s *Service) CreateFromTemplate(ctx context.Context, templateID, date string) (*Workout, error) {
	t, ok := findTemplate(s.templates, strings.TrimSpace(templateID))
	if !ok {
		return nil, ErrTemplateNotFound
	}
	if err := validateDate(date); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	exercises := make([]Exercise, 0, len(t.Exercises))
	for _, te := range t.Exercises {
		exercises = append(exercises, Exercise{
			ID:            uuid.NewString(),
			Name:          te.Name,
			Category:      te.Category,
			Sets:          te.Sets,
			Reps:          te.Reps,
			Weight:        te.Weight,
			Rest:          te.Rest,
			Notes:         te.Notes,
			CompletedSets: []CompletedSet{},
		})
	}
	w := Workout{
		ID:         uuid.NewString(),
		Name:       t.Name,
		Type:       t.Type,
		Date:       date,
		Status:     StatusPlanned,
		TemplateID: t.ID,
		Exercises:  exercises,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.save(ctx, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// Decode reads a stored workout and fills defaults for older records.
func Decode(body []byte) (Workout, error) {
	var w Workout
	if err := json.Unmarshal(body, &w); err != nil {
		return Workout{}, err
	}
	w.ApplyDefaults()
	return w, nil
}

// Encode returns the storage record for w.
func Encode(w Workout) (storage.Record, error) {
	body, err := json.Marshal(w)
	if err != nil {
		return storage.Record{}, fmt.Errorf("encode workout %s: %w", w.ID, err)
	}
	return storage.Record{ID: w.ID, Body: body}, nil
}

func (s *Service) transition(ctx context.Context, id string, from, to Status, apply func(*Workout, time.Time)) (*Workout, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.Status != from {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, w.Status, to)
	}
	w.Status = to
	apply(w, s.now().UTC())
	if err := s.save(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) save(ctx context.Context, w *Workout) error {
	rec, err := Encode(*w)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, storage.Workouts, rec); err != nil {
		return storage.Unavailable("put workout", err)
	}
	return nil
}

func exercisesFromRequest(reqs []ExerciseRequest) []Exercise {
	exercises := make([]Exercise, 0, len(reqs))
	for _, r := range reqs {
		ex := Exercise{
			ID:            uuid.NewString(),
			Name:          strings.TrimSpace(r.Name),
			Category:      strings.TrimSpace(r.Category),
			Sets:          DefaultSets,
			Reps:          DefaultReps,
			Rest:          DefaultRest,
			Notes:         r.Notes,
			CompletedSets: []CompletedSet{},
		}
		if r.Sets != nil {
			ex.Sets = *r.Sets
		}
		if r.Reps != nil {
			ex.Reps = *r.Reps
		}
		if r.Weight != nil {
			ex.Weight = *r.Weight
		}
		if r.Rest != nil {
			ex.Rest = *r.Rest
		}
		exercises = append(exercises, ex)
	}
	return exercises
}
