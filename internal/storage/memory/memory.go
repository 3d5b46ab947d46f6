package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Raventwist88/ontrakk/internal/storage"
)

// MemoryStorage — in-memory реализация storage.Store и storage.SettingsStorage
type MemoryStorage struct {
	mu          sync.RWMutex
	collections map[storage.Collection]map[string]storage.Record
	settings    *SettingsMemoryStorage
}

// New создаёт пустой MemoryStorage со всеми коллекциями
func New() *MemoryStorage {
	collections := make(map[storage.Collection]map[string]storage.Record, len(storage.Collections))
	for _, c := range storage.Collections {
		collections[c] = make(map[string]storage.Record)
	}
	return &MemoryStorage{
		collections: collections,
		settings:    NewSettingsMemoryStorage(),
	}
}

func (m *MemoryStorage) Get(ctx context.Context, c storage.Collection, id string) (storage.Record, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()

	records, ok := m.collections[c]
	if !ok {
		return storage.Record{}, storage.ErrUnknownCollection
	}
	rec, ok := records[strings.TrimSpace(id)]
	if !ok {
		return storage.Record{}, storage.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (m *MemoryStorage) GetAll(ctx context.Context, c storage.Collection) ([]storage.Record, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()

	records, ok := m.collections[c]
	if !ok {
		return nil, storage.ErrUnknownCollection
	}
	result := make([]storage.Record, 0, len(records))
	for _, rec := range records {
		result = append(result, cloneRecord(rec))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MemoryStorage) Put(ctx context.Context, c storage.Collection, rec storage.Record) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	records, ok := m.collections[c]
	if !ok {
		return storage.ErrUnknownCollection
	}
	rec.ID = strings.TrimSpace(rec.ID)
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	records[rec.ID] = cloneRecord(rec)
	return nil
}

func (m *MemoryStorage) Delete(ctx context.Context, c storage.Collection, id string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	records, ok := m.collections[c]
	if !ok {
		return storage.ErrUnknownCollection
	}
	id = strings.TrimSpace(id)
	if _, ok := records[id]; !ok {
		return storage.ErrNotFound
	}
	delete(records, id)
	return nil
}

func (m *MemoryStorage) Clear(ctx context.Context, c storage.Collection) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collections[c]; !ok {
		return storage.ErrUnknownCollection
	}
	m.collections[c] = make(map[string]storage.Record)
	return nil
}

func (m *MemoryStorage) GetSettings(ctx context.Context) (storage.Settings, bool, error) {
	return m.settings.GetSettings(ctx)
}

func (m *MemoryStorage) UpsertSettings(ctx context.Context, s storage.Settings) (storage.Settings, error) {
	return m.settings.UpsertSettings(ctx, s)
}

// GetSettingsStorage returns the settings sub-store.
func (m *MemoryStorage) GetSettingsStorage() *SettingsMemoryStorage {
	return m.settings
}

// Close ничего не делает для in-memory storage
func (m *MemoryStorage) Close() error {
	return nil
}

func cloneRecord(rec storage.Record) storage.Record {
	body := make([]byte, len(rec.Body))
	copy(body, rec.Body)
	rec.Body = body
	return rec
}
