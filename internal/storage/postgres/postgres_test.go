package postgres_test

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/Raventwist88/ontrakk/internal/storage"
	"github.com/Raventwist88/ontrakk/internal/storage/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStorage(t *testing.T) (pgxmock.PgxPoolIface, *postgres.PostgresStorage) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	ps, err := postgres.NewWithConn(context.Background(), mock)
	require.NoError(t, err)
	return mock, ps
}

func TestPutDocument(t *testing.T) {
	mock, ps := newMockStorage(t)
	ctx := context.Background()
	query := regexp.QuoteMeta(`INSERT INTO documents (collection, id, body, updated_at) VALUES ($1, $2, $3, $4)`)
	updated := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	body := json.RawMessage(`{"weightKg":80}`)

	t.Run("successfully stored", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs("dailyEntries", "entry-2024-01-01", []byte(body), updated).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		err := ps.Put(ctx, storage.DailyEntries, storage.Record{ID: "entry-2024-01-01", Body: body, UpdatedAt: updated})
		assert.NoError(t, err)
	})
	t.Run("connection failure is unavailable", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs("dailyEntries", "entry-2024-01-01", []byte(body), updated).
			WillReturnError(errors.New("connection reset"))
		err := ps.Put(ctx, storage.DailyEntries, storage.Record{ID: "entry-2024-01-01", Body: body, UpdatedAt: updated})
		assert.ErrorIs(t, err, storage.ErrUnavailable)
	})
	t.Run("unknown collection", func(t *testing.T) {
		err := ps.Put(ctx, storage.Collection("bogus"), storage.Record{ID: "x"})
		assert.ErrorIs(t, err, storage.ErrUnknownCollection)
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDocument(t *testing.T) {
	mock, ps := newMockStorage(t)
	ctx := context.Background()
	query := regexp.QuoteMeta(`SELECT id, body, updated_at FROM documents WHERE collection = $1 AND id = $2`)
	updated := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("workouts", "w1").
			WillReturnRows(pgxmock.NewRows([]string{"id", "body", "updated_at"}).AddRow("w1", []byte(`{"name":"Upper"}`), updated))
		rec, err := ps.Get(ctx, storage.Workouts, "w1")
		require.NoError(t, err)
		assert.Equal(t, "w1", rec.ID)
		assert.JSONEq(t, `{"name":"Upper"}`, string(rec.Body))
		assert.Equal(t, updated, rec.UpdatedAt)
	})
	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("workouts", "missing").
			WillReturnError(pgx.ErrNoRows)
		_, err := ps.Get(ctx, storage.Workouts, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAllDocuments(t *testing.T) {
	mock, ps := newMockStorage(t)
	ctx := context.Background()
	query := regexp.QuoteMeta(`SELECT id, body, updated_at FROM documents WHERE collection = $1 ORDER BY id`)
	now := time.Now().UTC()

	mock.ExpectQuery(query).
		WithArgs("backups").
		WillReturnRows(pgxmock.NewRows([]string{"id", "body", "updated_at"}).
			AddRow("a", []byte(`{}`), now).
			AddRow("b", []byte(`{"version":"1.0"}`), now))

	recs, err := ps.GetAll(ctx, storage.Backups)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteDocument(t *testing.T) {
	mock, ps := newMockStorage(t)
	ctx := context.Background()
	query := regexp.QuoteMeta(`DELETE FROM documents WHERE collection = $1 AND id = $2`)

	t.Run("deleted", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs("backups", "b1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
		assert.NoError(t, ps.Delete(ctx, storage.Backups, "b1"))
	})
	t.Run("nothing deleted", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs("backups", "b2").WillReturnResult(pgxmock.NewResult("DELETE", 0))
		assert.ErrorIs(t, ps.Delete(ctx, storage.Backups, "b2"), storage.ErrNotFound)
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClearDocuments(t *testing.T) {
	mock, ps := newMockStorage(t)
	query := regexp.QuoteMeta(`DELETE FROM documents WHERE collection = $1`)

	mock.ExpectExec(query).WithArgs("dailyEntries").WillReturnResult(pgxmock.NewResult("DELETE", 12))
	assert.NoError(t, ps.Clear(context.Background(), storage.DailyEntries))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSettingsNotFound(t *testing.T) {
	mock, ps := newMockStorage(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM app_settings`)).WillReturnError(pgx.ErrNoRows)
	_, found, err := ps.GetSettings(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSettings(t *testing.T) {
	mock, ps := newMockStorage(t)
	now := time.Now().UTC()
	goal := 72.5
	in := storage.Settings{
		WeightUnit:      "kg",
		DefaultRestTime: 90,
		WeightGoal:      &goal,
		CalorieGoal:     2000,
		ReminderTime:    "18:00",
		TimeZone:        "UTC",
	}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO app_settings`)).
		WithArgs(in.WeightUnit, in.DefaultRestTime, in.WeightGoal, in.CalorieGoal, in.WorkoutReminders,
			in.ReminderTime, in.SoundEnabled, in.VibrationEnabled, in.DarkMode, in.TimeZone).
		WillReturnRows(pgxmock.NewRows([]string{
			"weight_unit", "default_rest_time", "weight_goal", "calorie_goal",
			"workout_reminders", "reminder_time", "sound_enabled", "vibration_enabled",
			"dark_mode", "time_zone", "created_at", "updated_at",
		}).AddRow("kg", 90, &goal, 2000, false, "18:00", false, false, false, "UTC", now, now))

	out, err := ps.UpsertSettings(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 2000, out.CalorieGoal)
	require.NotNil(t, out.WeightGoal)
	assert.Equal(t, 72.5, *out.WeightGoal)
	assert.NoError(t, mock.ExpectationsWereMet())
}
