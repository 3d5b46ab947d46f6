package backup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Raventwist88/ontrakk/internal/blob"
	"github.com/Raventwist88/ontrakk/internal/entries"
	"github.com/Raventwist88/ontrakk/internal/storage"
	"github.com/Raventwist88/ontrakk/internal/storage/memory"
	"github.com/Raventwist88/ontrakk/internal/telemetry"
	"github.com/Raventwist88/ontrakk/internal/workouts"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails every Put into one collection.
type flakyStore struct {
	storage.Store
	failPut storage.Collection
}

func (f *flakyStore) Put(ctx context.Context, c storage.Collection, rec storage.Record) error {
	if c == f.failPut {
		return errors.New("disk full")
	}
	return f.Store.Put(ctx, c, rec)
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate() { c.calls++ }

type fixedLocation struct{ loc *time.Location }

func (f fixedLocation) Location(context.Context) (*time.Location, error) { return f.loc, nil }

var testNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func newTestService(store storage.Store, bs blob.Store) (*Service, *telemetry.Instrumentation, *countingInvalidator) {
	instr := telemetry.NewTestInstrumentation()
	inv := &countingInvalidator{}
	svc := NewService(store, bs, instr, "test-secret", "backups").WithInvalidator(inv)
	svc.now = func() time.Time { return testNow }
	return svc, instr, inv
}

func seed(t *testing.T, store storage.Store) {
	t.Helper()
	ctx := context.Background()
	es := entries.NewService(store)
	for _, raw := range []entries.RawEntry{
		{"date": "2024-01-01T08:00:00Z", "weightKg": 80.0, "caloriesIntake": 2100.0, "caloriesBurned": 500.0},
		{"date": "2024-01-02T08:00:00Z", "weightKg": 79.6, "caloriesIntake": 1900.0, "caloriesBurned": 600.0},
	} {
		_, err := es.Save(ctx, raw)
		require.NoError(t, err)
	}
	rec, err := workouts.Encode(workouts.Workout{
		ID:     "w1",
		Name:   "Day 1 - Chest, Triceps & Shoulders",
		Date:   "2024-01-01",
		Status: workouts.StatusCompleted,
		Exercises: []workouts.Exercise{
			{Name: "Bench Press", Sets: 3, Reps: 8, Weight: 60, Rest: 90, CompletedSets: []workouts.CompletedSet{}},
		},
	})
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, storage.Workouts, rec))
}

func count(t *testing.T, store storage.Store, c storage.Collection) int {
	t.Helper()
	all, err := store.GetAll(context.Background(), c)
	require.NoError(t, err)
	return len(all)
}

func TestService_CreateAndRestore(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seed(t, store)
	svc, instr, inv := newTestService(store, nil)

	b, err := svc.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, b.Version)
	assert.Equal(t, "2024-01-10T12:00:00Z", b.Timestamp)
	assert.Len(t, b.DailyEntries, 2)
	assert.Len(t, b.Workouts, 1)
	assert.Nil(t, b.Mirror)

	require.NoError(t, store.Delete(ctx, storage.Workouts, "w1"))
	require.NoError(t, store.Clear(ctx, storage.DailyEntries))
	require.NoError(t, store.Put(ctx, storage.LegacyDailyEntries, storage.Record{ID: "old", Body: []byte(`{"date":"2023-01-01"}`)}))

	result, err := svc.Restore(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, RestoreResult{Entries: 2, Workouts: 1}, result)
	assert.Equal(t, 2, count(t, store, storage.DailyEntries))
	assert.Equal(t, 0, count(t, store, storage.LegacyDailyEntries))
	assert.Equal(t, 1, count(t, store, storage.Workouts))
	assert.Equal(t, 1, inv.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(instr.CounterBackupOps.WithLabelValues("restore", "ok")))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
	assert.False(t, list[0].IsImported)
}

func TestService_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(memory.New(), nil)

	first, err := svc.Create(ctx)
	require.NoError(t, err)
	svc.now = func() time.Time { return testNow.Add(time.Hour) }
	second, err := svc.Create(ctx)
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestService_ImportMigratesLegacyVersion(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc, instr, inv := newTestService(store, nil)

	data := []byte(`{
		"version": "0.9",
		"timestamp": "2023-12-01T00:00:00Z",
		"dailyEntries": [{"id": "e1", "date": "2023-11-30", "weight": 81.0, "calories": {"intake": 2000, "burned": 300}}],
		"workouts": [{"id": "w1", "name": "Day 1", "exercises": [{"name": "Bench Press", "sets": 3, "reps": 8}]}]
	}`)
	b, err := svc.Import(ctx, data)
	require.NoError(t, err)
	assert.True(t, b.IsImported)
	assert.Equal(t, "1.0", b.Version)
	assert.Equal(t, "", b.DailyEntries[0]["notes"])
	assert.Equal(t, "planned", b.Workouts[0]["status"])
	assert.Equal(t, 1.0, testutil.ToFloat64(instr.CounterMigrations.WithLabelValues("0.9")))

	// import stores a backup only
	assert.Equal(t, 1, count(t, store, storage.Backups))
	assert.Equal(t, 0, count(t, store, storage.DailyEntries))
	assert.Equal(t, 0, inv.calls)
}

func TestService_ImportRejects(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc, _, _ := newTestService(store, nil)

	_, err := svc.Import(ctx, []byte(`{"version": "99.0", "timestamp": "t", "dailyEntries": [], "workouts": []}`))
	assert.ErrorIs(t, err, ErrVersionTooNew)

	_, err = svc.Import(ctx, []byte(`{"timestamp": "t", "dailyEntries": [], "workouts": []}`))
	assert.ErrorIs(t, err, ErrMissingVersion)

	_, err = svc.Import(ctx, []byte(`{"version": "1.0", "timestamp": "t", "dailyEntries": [{"id": "e1", "date": "2024-01-01"}], "workouts": [{"name": "x"}]}`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{
		"Daily entry 1: Invalid weight",
		"Daily entry 1: Invalid calories intake",
		"Daily entry 1: Invalid calories burned",
		"Workout 1: Missing ID",
		"Workout 1: Invalid exercises",
	}, verr.Problems)

	assert.Equal(t, 0, count(t, store, storage.Backups))
}

func TestService_RestoreFailsBeforeClearing(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seed(t, store)
	svc, _, inv := newTestService(store, nil)

	// sets is numeric for validation but cannot be decoded as a workout
	data := []byte(`{"version": "1.0", "timestamp": "t", "dailyEntries": [],
		"workouts": [{"id": "w9", "name": "Broken", "exercises": [{"name": "Row", "sets": 3.5, "reps": 8}]}]}`)
	_, err := svc.RestoreFromData(ctx, data)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	assert.Equal(t, 2, count(t, store, storage.DailyEntries))
	assert.Equal(t, 1, count(t, store, storage.Workouts))
	assert.Equal(t, 0, inv.calls)
}

func TestService_PartialRestore(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	seed(t, mem)
	svc, _, _ := newTestService(mem, nil)
	b, err := svc.Create(ctx)
	require.NoError(t, err)

	flaky := &flakyStore{Store: mem, failPut: storage.Workouts}
	svc.store = flaky
	_, err = svc.Restore(ctx, b.ID)

	var partial *PartialRestoreError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 2, partial.Written)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.Equal(t, 0, count(t, mem, storage.Workouts))
}

func TestService_MirrorAndVerify(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seed(t, store)
	bs := blob.NewMemoryStore()
	svc, _, _ := newTestService(store, bs)

	b, err := svc.Create(ctx)
	require.NoError(t, err)
	require.NotNil(t, b.Mirror)
	assert.Equal(t, "backups/"+b.ID+".json", b.Mirror.BundleKey)
	assert.Equal(t, "backups/"+b.ID+".jwt", b.Mirror.ManifestKey)

	m, err := svc.VerifyMirror(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, m.BackupID)
	assert.Equal(t, 2, m.Entries)
	assert.Equal(t, b.Mirror.Digest, m.Digest)

	_, err = bs.PutObject(ctx, b.Mirror.BundleKey, []byte(`{"tampered":true}`), "application/json")
	require.NoError(t, err)
	_, err = svc.VerifyMirror(ctx, b.ID)
	assert.ErrorIs(t, err, ErrDigestMismatch)

	require.NoError(t, svc.Delete(ctx, b.ID))
	assert.Empty(t, bs.Keys())
	_, err = svc.Get(ctx, b.ID)
	assert.ErrorIs(t, err, ErrBackupNotFound)
}

func TestService_VerifyWithoutMirror(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(memory.New(), nil)
	b, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.VerifyMirror(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotMirrored)
}

func TestService_ExportDeduplicates(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	es := entries.NewService(store)
	for _, raw := range []entries.RawEntry{
		{"id": "a", "date": "2024-01-01T08:00:00Z", "weightKg": 80.0},
		{"id": "b", "date": "2024-01-01T20:00:00Z", "weightKg": 79.0},
		{"id": "c", "date": "2024-01-02T08:00:00Z", "weightKg": 78.5},
	} {
		_, err := es.Save(ctx, raw)
		require.NoError(t, err)
	}
	svc, _, _ := newTestService(store, nil)

	out, err := svc.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, out.Version)
	require.Len(t, out.DailyEntries, 2)
	assert.Equal(t, "b", out.DailyEntries[0]["id"])
	assert.Equal(t, "c", out.DailyEntries[1]["id"])
	assert.Empty(t, out.Workouts)

	// in UTC+14 the 20:00 entry falls on the next day
	kiritimati, err := time.LoadLocation("Pacific/Kiritimati")
	require.NoError(t, err)
	svc.WithLocations(fixedLocation{loc: kiritimati})
	out, err = svc.Export(ctx)
	require.NoError(t, err)
	require.Len(t, out.DailyEntries, 2)
	assert.Equal(t, "a", out.DailyEntries[0]["id"])
	assert.Equal(t, "c", out.DailyEntries[1]["id"])
}
