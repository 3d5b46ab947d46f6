package entries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Raventwist88/ontrakk/internal/storage"
)

var (
	ErrEntryNotFound = errors.New("entry not found")
	ErrInvalidEntry  = errors.New("invalid entry")
)

// Invalidator is notified after every write that changes entry data.
type Invalidator interface {
	Invalidate()
}

// LocationSource supplies the zone whose calendar day names new entries.
type LocationSource interface {
	Location(ctx context.Context) (*time.Location, error)
}

type Service struct {
	store       storage.Store
	invalidator Invalidator
	locations   LocationSource
}

func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

// WithInvalidator registers a hook called after successful writes.
func (s *Service) WithInvalidator(inv Invalidator) *Service {
	s.invalidator = inv
	return s
}

// WithLocations derives default ids from the day in the zone src reports.
func (s *Service) WithLocations(src LocationSource) *Service {
	s.locations = src
	return s
}

func (s *Service) location(ctx context.Context) (*time.Location, error) {
	if s.locations == nil {
		return time.UTC, nil
	}
	loc, err := s.locations.Location(ctx)
	if err != nil {
		return nil, storage.Unavailable("load time zone", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return loc, nil
}

// Save normalizes raw and stores it under its id, replacing any previous
// version of the same record.
func (s *Service) Save(ctx context.Context, raw RawEntry) (DailyEntry, error) {
	loc, err := s.location(ctx)
	if err != nil {
		return DailyEntry{}, err
	}
	entry := NormalizeEntryIn(raw, loc)
	if entry.Date.IsZero() {
		return DailyEntry{}, fmt.Errorf("%w: date is required", ErrInvalidEntry)
	}

	body, err := json.Marshal(entry)
	if err != nil {
		return DailyEntry{}, fmt.Errorf("encode entry: %w", err)
	}
	if err := s.store.Put(ctx, storage.DailyEntries, storage.Record{ID: entry.ID, Body: body}); err != nil {
		return DailyEntry{}, storage.Unavailable("put entry", err)
	}
	s.invalidate()
	return entry, nil
}

// List returns stored entries (not deduplicated) sorted by date, then id.
func (s *Service) List(ctx context.Context) ([]DailyEntry, error) {
	result, err := s.load(ctx, storage.DailyEntries)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *Service) Get(ctx context.Context, id string) (DailyEntry, error) {
	rec, err := s.store.Get(ctx, storage.DailyEntries, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return DailyEntry{}, ErrEntryNotFound
		}
		return DailyEntry{}, storage.Unavailable("get entry", err)
	}
	return decodeRecord(rec), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.Delete(ctx, storage.DailyEntries, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrEntryNotFound
		}
		return storage.Unavailable("delete entry", err)
	}
	s.invalidate()
	return nil
}

// ImportLegacyCache stores raw records from the old local cache as-is.
// They are normalized when read, together with the current entries.
func (s *Service) ImportLegacyCache(ctx context.Context, raws []RawEntry) (int, error) {
	loc, err := s.location(ctx)
	if err != nil {
		return 0, err
	}
	imported := 0
	for _, raw := range raws {
		entry := NormalizeEntryIn(raw, loc)
		if entry.Date.IsZero() {
			continue
		}
		body, err := json.Marshal(raw)
		if err != nil {
			continue
		}
		if err := s.store.Put(ctx, storage.LegacyDailyEntries, storage.Record{ID: entry.ID, Body: body}); err != nil {
			return imported, storage.Unavailable("put legacy entry", err)
		}
		imported++
	}
	if imported > 0 {
		s.invalidate()
	}
	return imported, nil
}

// LoadAll returns every entry from the store and the legacy cache, normalized.
func (s *Service) LoadAll(ctx context.Context) ([]DailyEntry, error) {
	return LoadAll(ctx, s.store)
}

// LoadAll reads both entry collections from store.
func LoadAll(ctx context.Context, store storage.Store) ([]DailyEntry, error) {
	svc := &Service{store: store}
	current, err := svc.load(ctx, storage.DailyEntries)
	if err != nil {
		return nil, err
	}
	legacy, err := svc.load(ctx, storage.LegacyDailyEntries)
	if err != nil {
		return nil, err
	}
	return append(current, legacy...), nil
}

func (s *Service) load(ctx context.Context, c storage.Collection) ([]DailyEntry, error) {
	records, err := s.store.GetAll(ctx, c)
	if err != nil {
		return nil, storage.Unavailable("load "+string(c), err)
	}
	result := make([]DailyEntry, 0, len(records))
	for _, rec := range records {
		result = append(result, decodeRecord(rec))
	}
	return result, nil
}

// decodeRecord tolerates corrupt bodies: they normalize to an undated entry.
func decodeRecord(rec storage.Record) DailyEntry {
	raw := RawEntry{}
	if err := json.Unmarshal(rec.Body, &raw); err != nil || raw == nil {
		raw = RawEntry{}
	}
	if _, ok := raw["id"]; !ok && rec.ID != "" {
		raw["id"] = rec.ID
	}
	return NormalizeEntry(raw)
}

func (s *Service) invalidate() {
	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}
}
