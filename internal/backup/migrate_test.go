package backup

import (
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_09FillsNewFields(t *testing.T) {
	in := Bundle{
		Version:      "0.9",
		Timestamp:    "2024-01-01T00:00:00Z",
		DailyEntries: []Record{{"id": "e1", "date": "2024-01-01", "weight": 80.0, "calories": map[string]any{"intake": 2000.0, "burned": 500.0}}},
		Workouts: []Record{{
			"id":   "w1",
			"name": "Day 1",
			"exercises": []any{
				map[string]any{"name": "Bench Press", "sets": 3.0, "reps": 8.0},
				map[string]any{"name": "Dips", "sets": 3.0, "reps": 12.0, "rest": 90.0},
			},
		}},
	}

	out, err := Migrate(in)
	require.NoError(t, err)

	assert.Equal(t, CurrentVersion, out.Version)
	assert.Equal(t, "", out.DailyEntries[0]["notes"])
	assert.Equal(t, []any{}, out.DailyEntries[0]["completedWorkouts"])
	assert.Equal(t, "planned", out.Workouts[0]["status"])

	exercises := out.Workouts[0]["exercises"].([]any)
	assert.Equal(t, 60, exercises[0].(map[string]any)["rest"])
	assert.Equal(t, 90.0, exercises[1].(map[string]any)["rest"])
	assert.Equal(t, []any{}, exercises[0].(map[string]any)["completedSets"])

	// the input is untouched
	_, hasNotes := in.DailyEntries[0]["notes"]
	assert.False(t, hasNotes)
	_, hasStatus := in.Workouts[0]["status"]
	assert.False(t, hasStatus)
	assert.Equal(t, "0.9", in.Version)
}

func TestMigrate_KeepsExistingValues(t *testing.T) {
	in := Bundle{
		Version:      "0.9",
		Timestamp:    "2024-01-01T00:00:00Z",
		DailyEntries: []Record{{"id": "e1", "notes": "tired", "completedWorkouts": []any{"w1"}}},
		Workouts:     []Record{{"id": "w1", "status": "completed"}},
	}

	out, err := Migrate(in)
	require.NoError(t, err)
	assert.Equal(t, "tired", out.DailyEntries[0]["notes"])
	assert.Equal(t, []any{"w1"}, out.DailyEntries[0]["completedWorkouts"])
	assert.Equal(t, "completed", out.Workouts[0]["status"])
}

func TestMigrate_RejectsVersions(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    error
	}{
		{"missing", "", ErrMissingVersion},
		{"blank", "   ", ErrMissingVersion},
		{"too new", "99.0", ErrVersionTooNew},
		{"minor too new", "1.1", ErrVersionTooNew},
		{"no step", "0.5", ErrUnknownVersion},
		{"garbage", "banana", ErrUnknownVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Bundle{Version: tt.version, Workouts: []Record{{"id": "w1"}}}
			_, err := Migrate(in)
			require.ErrorIs(t, err, tt.want)
			_, touched := in.Workouts[0]["status"]
			assert.False(t, touched)
		})
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	f := gofakeit.New(42)
	for i := 0; i < 50; i++ {
		in := fakeBundle(f, "0.9")
		once, err := Migrate(in)
		require.NoError(t, err)
		twice, err := Migrate(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice, "iteration %d", i)
	}
}

func TestMigrate_CurrentIsCopy(t *testing.T) {
	in := Bundle{Version: "1.0", Timestamp: "t", DailyEntries: []Record{{"id": "e1"}}}
	out, err := Migrate(in)
	require.NoError(t, err)
	out.DailyEntries[0]["id"] = "changed"
	assert.Equal(t, "e1", in.DailyEntries[0]["id"])
}

func TestCompareVersions(t *testing.T) {
	cmp, err := CompareVersions("0.9", "1.0")
	require.NoError(t, err)
	assert.Equal(t, -1, cmp)

	cmp, err = CompareVersions("1.0", "1.0")
	require.NoError(t, err)
	assert.Equal(t, 0, cmp)

	cmp, err = CompareVersions("1.10", "1.9")
	require.NoError(t, err)
	assert.Equal(t, 1, cmp)

	_, err = CompareVersions("x", "1.0")
	assert.ErrorIs(t, err, ErrUnknownVersion)
}

func fakeBundle(f *gofakeit.Faker, version string) Bundle {
	b := Bundle{Version: version, Timestamp: f.Date().UTC().Format("2006-01-02T15:04:05Z")}
	for i := 0; i < f.Number(0, 6); i++ {
		rec := Record{
			"id":     fmt.Sprintf("entry-%d", i),
			"date":   f.Date().UTC().Format("2006-01-02"),
			"weight": f.Float64Range(50, 120),
			"calories": map[string]any{
				"intake": float64(f.Number(0, 4000)),
				"burned": float64(f.Number(0, 1500)),
			},
		}
		if f.Bool() {
			rec["notes"] = f.Sentence(3)
		}
		b.DailyEntries = append(b.DailyEntries, rec)
	}
	for i := 0; i < f.Number(0, 4); i++ {
		var exercises []any
		for j := 0; j < f.Number(1, 4); j++ {
			ex := map[string]any{"name": f.Noun(), "sets": float64(f.Number(1, 5)), "reps": float64(f.Number(1, 15))}
			if f.Bool() {
				ex["rest"] = float64(f.Number(30, 180))
			}
			exercises = append(exercises, ex)
		}
		rec := Record{"id": fmt.Sprintf("workout-%d", i), "name": f.Noun(), "exercises": exercises}
		if f.Bool() {
			rec["status"] = f.RandomString([]string{"planned", "in-progress", "completed"})
		}
		b.Workouts = append(b.Workouts, rec)
	}
	return b
}
