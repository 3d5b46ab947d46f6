package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Raventwist88/ontrakk/internal/storage"
)

// FileStorage keeps every collection and the settings in one JSON document on disk.
// Each operation reads and rewrites the whole file under the lock.
type FileStorage struct {
	path string
	mu   sync.RWMutex
}

type fileRecord struct {
	Body      json.RawMessage `json:"body"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type fileSettings struct {
	WeightUnit       string    `json:"weightUnit"`
	DefaultRestTime  int       `json:"defaultRestTime"`
	WeightGoal       *float64  `json:"weightGoal"`
	CalorieGoal      int       `json:"calorieGoal"`
	WorkoutReminders bool      `json:"workoutReminders"`
	ReminderTime     string    `json:"reminderTime"`
	SoundEnabled     bool      `json:"soundEnabled"`
	VibrationEnabled bool      `json:"vibrationEnabled"`
	DarkMode         bool      `json:"darkMode"`
	TimeZone         string    `json:"timeZone"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type document struct {
	Collections map[storage.Collection]map[string]fileRecord `json:"collections"`
	Settings    *fileSettings                                `json:"settings,omitempty"`
}

// New opens (or lazily creates) the data file at path.
func New(path string) (*FileStorage, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("data file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &FileStorage{path: path}
	// Fail early on a corrupt file.
	if _, err := s.read(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStorage) Get(ctx context.Context, c storage.Collection, id string) (storage.Record, error) {
	_ = ctx
	if !c.Valid() {
		return storage.Record{}, storage.ErrUnknownCollection
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.read()
	if err != nil {
		return storage.Record{}, storage.Unavailable("get", err)
	}
	id = strings.TrimSpace(id)
	rec, ok := doc.Collections[c][id]
	if !ok {
		return storage.Record{}, storage.ErrNotFound
	}
	return storage.Record{ID: id, Body: rec.Body, UpdatedAt: rec.UpdatedAt}, nil
}

func (s *FileStorage) GetAll(ctx context.Context, c storage.Collection) ([]storage.Record, error) {
	_ = ctx
	if !c.Valid() {
		return nil, storage.ErrUnknownCollection
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.read()
	if err != nil {
		return nil, storage.Unavailable("get all", err)
	}
	records := doc.Collections[c]
	result := make([]storage.Record, 0, len(records))
	for id, rec := range records {
		result = append(result, storage.Record{ID: id, Body: rec.Body, UpdatedAt: rec.UpdatedAt})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *FileStorage) Put(ctx context.Context, c storage.Collection, rec storage.Record) error {
	_ = ctx
	if !c.Valid() {
		return storage.ErrUnknownCollection
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return storage.Unavailable("put", err)
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	doc.Collections[c][strings.TrimSpace(rec.ID)] = fileRecord{Body: rec.Body, UpdatedAt: rec.UpdatedAt}
	return storage.Unavailable("put", s.write(doc))
}

func (s *FileStorage) Delete(ctx context.Context, c storage.Collection, id string) error {
	_ = ctx
	if !c.Valid() {
		return storage.ErrUnknownCollection
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return storage.Unavailable("delete", err)
	}
	id = strings.TrimSpace(id)
	if _, ok := doc.Collections[c][id]; !ok {
		return storage.ErrNotFound
	}
	delete(doc.Collections[c], id)
	return storage.Unavailable("delete", s.write(doc))
}

func (s *FileStorage) Clear(ctx context.Context, c storage.Collection) error {
	_ = ctx
	if !c.Valid() {
		return storage.ErrUnknownCollection
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return storage.Unavailable("clear", err)
	}
	doc.Collections[c] = map[string]fileRecord{}
	return storage.Unavailable("clear", s.write(doc))
}

func (s *FileStorage) GetSettings(ctx context.Context) (storage.Settings, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.read()
	if err != nil {
		return storage.Settings{}, false, storage.Unavailable("get settings", err)
	}
	if doc.Settings == nil {
		return storage.Settings{}, false, nil
	}
	return settingsFromFile(*doc.Settings), true, nil
}

func (s *FileStorage) UpsertSettings(ctx context.Context, in storage.Settings) (storage.Settings, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return storage.Settings{}, storage.Unavailable("upsert settings", err)
	}
	now := time.Now().UTC()
	row := settingsToFile(in)
	row.CreatedAt = now
	if doc.Settings != nil {
		row.CreatedAt = doc.Settings.CreatedAt
	}
	row.UpdatedAt = now
	doc.Settings = &row
	if err := s.write(doc); err != nil {
		return storage.Settings{}, storage.Unavailable("upsert settings", err)
	}
	return settingsFromFile(row), nil
}

func (s *FileStorage) Close() error {
	return nil
}

func (s *FileStorage) read() (*document, error) {
	doc := &document{}
	data, err := os.ReadFile(s.path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", s.path, err)
		}
	}
	if doc.Collections == nil {
		doc.Collections = make(map[storage.Collection]map[string]fileRecord, len(storage.Collections))
	}
	for _, c := range storage.Collections {
		if doc.Collections[c] == nil {
			doc.Collections[c] = map[string]fileRecord{}
		}
	}
	return doc, nil
}

// write replaces the file atomically via rename.
func (s *FileStorage) write(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func settingsToFile(in storage.Settings) fileSettings {
	return fileSettings{
		WeightUnit:       in.WeightUnit,
		DefaultRestTime:  in.DefaultRestTime,
		WeightGoal:       in.WeightGoal,
		CalorieGoal:      in.CalorieGoal,
		WorkoutReminders: in.WorkoutReminders,
		ReminderTime:     in.ReminderTime,
		SoundEnabled:     in.SoundEnabled,
		VibrationEnabled: in.VibrationEnabled,
		DarkMode:         in.DarkMode,
		TimeZone:         in.TimeZone,
	}
}

func settingsFromFile(in fileSettings) storage.Settings {
	return storage.Settings{
		WeightUnit:       in.WeightUnit,
		DefaultRestTime:  in.DefaultRestTime,
		WeightGoal:       in.WeightGoal,
		CalorieGoal:      in.CalorieGoal,
		WorkoutReminders: in.WorkoutReminders,
		ReminderTime:     in.ReminderTime,
		SoundEnabled:     in.SoundEnabled,
		VibrationEnabled: in.VibrationEnabled,
		DarkMode:         in.DarkMode,
		TimeZone:         in.TimeZone,
		CreatedAt:        in.CreatedAt,
		UpdatedAt:        in.UpdatedAt,
	}
}
