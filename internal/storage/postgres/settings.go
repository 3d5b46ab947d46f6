package postgres

import (
	"context"
	"errors"

	"github.com/Raventwist88/ontrakk/internal/storage"
	"github.com/jackc/pgx/v5"
)

const selectSettingsQuery = `
		SELECT weight_unit, default_rest_time, weight_goal, calorie_goal,
		       workout_reminders, reminder_time, sound_enabled, vibration_enabled,
		       dark_mode, time_zone, created_at, updated_at
		FROM app_settings
		WHERE id = 1
	`

const upsertSettingsQuery = `
		INSERT INTO app_settings (
			id, weight_unit, default_rest_time, weight_goal, calorie_goal,
			workout_reminders, reminder_time, sound_enabled, vibration_enabled,
			dark_mode, time_zone, created_at, updated_at
		)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			weight_unit = EXCLUDED.weight_unit,
			default_rest_time = EXCLUDED.default_rest_time,
			weight_goal = EXCLUDED.weight_goal,
			calorie_goal = EXCLUDED.calorie_goal,
			workout_reminders = EXCLUDED.workout_reminders,
			reminder_time = EXCLUDED.reminder_time,
			sound_enabled = EXCLUDED.sound_enabled,
			vibration_enabled = EXCLUDED.vibration_enabled,
			dark_mode = EXCLUDED.dark_mode,
			time_zone = EXCLUDED.time_zone,
			updated_at = NOW()
		RETURNING weight_unit, default_rest_time, weight_goal, calorie_goal,
		          workout_reminders, reminder_time, sound_enabled, vibration_enabled,
		          dark_mode, time_zone, created_at, updated_at
	`

type PostgresSettingsStorage struct {
	conn Conn
}

func NewPostgresSettingsStorage(conn Conn) *PostgresSettingsStorage {
	return &PostgresSettingsStorage{conn: conn}
}

func (s *PostgresSettingsStorage) GetSettings(ctx context.Context) (storage.Settings, bool, error) {
	var row storage.Settings
	err := s.conn.QueryRow(ctx, selectSettingsQuery).Scan(
		&row.WeightUnit,
		&row.DefaultRestTime,
		&row.WeightGoal,
		&row.CalorieGoal,
		&row.WorkoutReminders,
		&row.ReminderTime,
		&row.SoundEnabled,
		&row.VibrationEnabled,
		&row.DarkMode,
		&row.TimeZone,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Settings{}, false, nil
		}
		return storage.Settings{}, false, storage.Unavailable("get settings", err)
	}

	return row, true, nil
}

func (s *PostgresSettingsStorage) UpsertSettings(ctx context.Context, in storage.Settings) (storage.Settings, error) {
	var out storage.Settings
	err := s.conn.QueryRow(ctx, upsertSettingsQuery,
		in.WeightUnit,
		in.DefaultRestTime,
		in.WeightGoal,
		in.CalorieGoal,
		in.WorkoutReminders,
		in.ReminderTime,
		in.SoundEnabled,
		in.VibrationEnabled,
		in.DarkMode,
		in.TimeZone,
	).Scan(
		&out.WeightUnit,
		&out.DefaultRestTime,
		&out.WeightGoal,
		&out.CalorieGoal,
		&out.WorkoutReminders,
		&out.ReminderTime,
		&out.SoundEnabled,
		&out.VibrationEnabled,
		&out.DarkMode,
		&out.TimeZone,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	if err != nil {
		return storage.Settings{}, storage.Unavailable("upsert settings", err)
	}

	return out, nil
}

func (p *PostgresStorage) GetSettings(ctx context.Context) (storage.Settings, bool, error) {
	return p.settings.GetSettings(ctx)
}

func (p *PostgresStorage) UpsertSettings(ctx context.Context, s storage.Settings) (storage.Settings, error) {
	return p.settings.UpsertSettings(ctx, s)
}
