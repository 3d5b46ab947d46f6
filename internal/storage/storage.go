package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get/Delete when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable marks a failed read or write on the underlying store.
	ErrUnavailable = errors.New("storage unavailable")
	// ErrUnknownCollection is returned for a collection the store does not hold.
	ErrUnknownCollection = errors.New("unknown collection")
)

// Collection — имя коллекции документов
type Collection string

const (
	DailyEntries       Collection = "dailyEntries"
	LegacyDailyEntries Collection = "legacyDailyEntries"
	Workouts           Collection = "workouts"
	Backups            Collection = "backups"
)

// Collections lists every collection a store must support.
var Collections = []Collection{DailyEntries, LegacyDailyEntries, Workouts, Backups}

func (c Collection) Valid() bool {
	for _, known := range Collections {
		if c == known {
			return true
		}
	}
	return false
}

// Record is one JSON document keyed by ID inside a collection.
type Record struct {
	ID        string
	Body      json.RawMessage
	UpdatedAt time.Time
}

// Store is a key/value document store. Один вызов = одна атомарная операция.
// Multi-collection transactions are not offered.
type Store interface {
	// Get returns the record by id or ErrNotFound.
	Get(ctx context.Context, c Collection, id string) (Record, error)

	// GetAll returns every record of the collection ordered by id.
	GetAll(ctx context.Context, c Collection) ([]Record, error)

	// Put inserts or replaces the record.
	Put(ctx context.Context, c Collection, rec Record) error

	// Delete removes the record or returns ErrNotFound.
	Delete(ctx context.Context, c Collection, id string) error

	// Clear removes every record of the collection.
	Clear(ctx context.Context, c Collection) error

	// Close releases resources (pool, file handles).
	Close() error
}

// SettingsStorage — интерфейс для настроек приложения (одна запись).
type SettingsStorage interface {
	// GetSettings returns stored settings. bool=false means not found.
	GetSettings(ctx context.Context) (Settings, bool, error)

	// UpsertSettings creates or replaces settings.
	UpsertSettings(ctx context.Context, s Settings) (Settings, error)
}

// Settings is the persisted application settings row.
type Settings struct {
	WeightUnit       string
	DefaultRestTime  int
	WeightGoal       *float64
	CalorieGoal      int
	WorkoutReminders bool
	ReminderTime     string
	SoundEnabled     bool
	VibrationEnabled bool
	DarkMode         bool
	TimeZone         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Backend is a Store that also persists settings.
type Backend interface {
	Store
	SettingsStorage
}

// Unavailable wraps err so that errors.Is(err, ErrUnavailable) holds.
// ErrNotFound and nil pass through untouched.
func Unavailable(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnavailable) {
		return err
	}
	return &OpError{Op: op, Err: err}
}

// OpError is a storage failure tagged with the operation that failed.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return "storage " + e.Op + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() []error {
	return []error{ErrUnavailable, e.Err}
}
