package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Raventwist88/ontrakk/internal/storage"
)

type SettingsMemoryStorage struct {
	mu       sync.RWMutex
	settings *storage.Settings
}

func NewSettingsMemoryStorage() *SettingsMemoryStorage {
	return &SettingsMemoryStorage{}
}

func (s *SettingsMemoryStorage) GetSettings(ctx context.Context) (storage.Settings, bool, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.settings == nil {
		return storage.Settings{}, false, nil
	}
	return cloneSettings(*s.settings), true, nil
}

func (s *SettingsMemoryStorage) UpsertSettings(ctx context.Context, in storage.Settings) (storage.Settings, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	createdAt := now
	if s.settings != nil {
		createdAt = s.settings.CreatedAt
	}

	row := cloneSettings(in)
	row.CreatedAt = createdAt
	row.UpdatedAt = now
	s.settings = &row
	return cloneSettings(row), nil
}

func cloneSettings(in storage.Settings) storage.Settings {
	if in.WeightGoal != nil {
		goal := *in.WeightGoal
		in.WeightGoal = &goal
	}
	return in
}
