package workouts

import (
	"strings"
	"testing"
	"time"
)

func TestSuggestProgression(t *testing.T) {
	base := Exercise{Name: "Row", Sets: 3, Reps: 10, Weight: 50}
	set := func(reps int, done bool) CompletedSet {
		return CompletedSet{Weight: 50, Reps: reps, Completed: done}
	}

	tests := []struct {
		name       string
		sets       []CompletedSet
		wantKind   ProgressionKind
		wantWeight float64
		wantReps   int
	}{
		{"no sets", nil, ProgressionNone, 50, 10},
		{"all hit", []CompletedSet{set(10, true), set(12, true), set(10, true)}, ProgressionWeight, 52.5, 10},
		{"missed reps", []CompletedSet{set(10, true), set(8, true)}, ProgressionReps, 50, 11},
		{"incomplete set", []CompletedSet{set(10, true), set(10, false)}, ProgressionNone, 50, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := base
			ex.CompletedSets = tt.sets
			got := SuggestProgression(ex)
			if got.Kind != tt.wantKind || got.Weight != tt.wantWeight || got.Reps != tt.wantReps {
				t.Fatalf("got %+v, want kind=%s weight=%v reps=%d", got, tt.wantKind, tt.wantWeight, tt.wantReps)
			}
		})
	}
}

func TestSummarizeDuration(t *testing.T) {
	start := time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)
	end := start.Add(45 * time.Minute)
	sum := Summarize(Workout{ID: "w", StartedAt: &start, CompletedAt: &end})

	if sum.DurationSec == nil || *sum.DurationSec != 2700 {
		t.Fatalf("expected 2700s, got %v", sum.DurationSec)
	}
	if sum.CompletionRate != 0 {
		t.Fatalf("expected zero rate without sets, got %v", sum.CompletionRate)
	}
}

func TestParseTemplatesRejectsBadInput(t *testing.T) {
	_, err := ParseTemplates(`
[[template]]
id = "a"
name = "A"
colour = "red"
`)
	if err == nil || !strings.Contains(err.Error(), "unknown keys") {
		t.Fatalf("expected unknown keys error, got %v", err)
	}

	_, err = ParseTemplates(`
[[template]]
id = "a"
name = "A"

[[template]]
id = "a"
name = "B"
`)
	if err == nil || !strings.Contains(err.Error(), "duplicate id") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestDecodeAppliesDefaults(t *testing.T) {
	w, err := Decode([]byte(`{"id":"w1","name":"Old","exercises":[{"name":"Squat","sets":3,"reps":5}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Status != StatusPlanned {
		t.Fatalf("expected planned, got %s", w.Status)
	}
	if w.Exercises[0].Rest != DefaultRest || w.Exercises[0].CompletedSets == nil {
		t.Fatalf("expected rest default and empty sets, got %+v", w.Exercises[0])
	}
}
