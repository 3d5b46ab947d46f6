package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Raventwist88/ontrakk/internal/entries"
	"github.com/Raventwist88/ontrakk/internal/storage"
)

var (
	ErrStorageUnavailable = errors.New("stats: storage unavailable")
	ErrInvalidProjection  = errors.New("invalid projection days")
)

// Preferences are the settings that change how stats are computed.
type Preferences struct {
	Location    *time.Location
	CalorieGoal *int
	WeightGoal  *float64
}

// SettingsReader supplies Preferences. Implemented by settings.Service.
type SettingsReader interface {
	StatsPreferences(ctx context.Context) (Preferences, error)
}

type Query struct {
	Window         Window
	ProjectionDays int
}

type Service struct {
	store    storage.Store
	settings SettingsReader
	cache    *Cache
	now      func() time.Time
}

func NewService(store storage.Store, settings SettingsReader, cache *Cache) *Service {
	return &Service{
		store:    store,
		settings: settings,
		cache:    cache,
		now:      time.Now,
	}
}

// Invalidate implements entries.Invalidator.
func (s *Service) Invalidate() {
	s.cache.Invalidate()
}

// Compute loads both entry collections and returns Stats for q.
// A nil result means there is nothing to report.
func (s *Service) Compute(ctx context.Context, q Query) (*Stats, error) {
	if q.Window == "" {
		q.Window = WindowAll
	}
	if q.ProjectionDays < 0 || q.ProjectionDays > maxProjectionDays {
		return nil, fmt.Errorf("%w: %d", ErrInvalidProjection, q.ProjectionDays)
	}

	// Taken before any read so a concurrent write keeps the result out of the cache.
	gen := s.cache.Generation()
	prefs, err := s.preferences(ctx)
	if err != nil {
		return nil, err
	}

	// Windowed results depend on the clock, so only "all" is cached.
	cacheable := q.Window == WindowAll
	key := cacheKey(q, prefs)
	if cacheable {
		if st, ok := s.cache.Get(key); ok {
			return st, nil
		}
	}

	list, err := s.loadDeduplicated(ctx, prefs.Location)
	if err != nil {
		return nil, err
	}
	st := computeSorted(list, Options{
		Location:       prefs.Location,
		Window:         q.Window,
		Now:            s.now(),
		ProjectionDays: q.ProjectionDays,
		CalorieGoal:    prefs.CalorieGoal,
		WeightGoal:     prefs.WeightGoal,
	})
	if cacheable {
		s.cache.Set(key, st, gen)
	}
	return st, nil
}

// Recent returns the latest n deduplicated entries, newest first.
func (s *Service) Recent(ctx context.Context, n int) ([]entries.DailyEntry, error) {
	prefs, err := s.preferences(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.loadDeduplicated(ctx, prefs.Location)
	if err != nil {
		return nil, err
	}
	return viewsOf(list).Latest(n), nil
}

func (s *Service) loadDeduplicated(ctx context.Context, loc *time.Location) ([]entries.DailyEntry, error) {
	list, err := entries.LoadAll(ctx, s.store)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return DeduplicateByDay(list, loc), nil
}

func (s *Service) preferences(ctx context.Context) (Preferences, error) {
	if s.settings == nil {
		return Preferences{Location: time.UTC}, nil
	}
	prefs, err := s.settings.StatsPreferences(ctx)
	if err != nil {
		return Preferences{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if prefs.Location == nil {
		prefs.Location = time.UTC
	}
	return prefs, nil
}
