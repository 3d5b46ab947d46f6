package settings

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Raventwist88/ontrakk/internal/stats"
	"github.com/Raventwist88/ontrakk/internal/storage"
)

const (
	defaultRestTime    = 90
	defaultCalorieGoal = 2000
	defaultReminder    = "18:00"
)

// Invalidator is notified after settings change.
type Invalidator interface {
	Invalidate()
}

type Service struct {
	storage     storage.SettingsStorage
	defaultTZ   string
	invalidator Invalidator
}

func NewService(settingsStorage storage.SettingsStorage, defaultTimeZone string) *Service {
	if strings.TrimSpace(defaultTimeZone) == "" {
		defaultTimeZone = "UTC"
	}
	return &Service{
		storage:   settingsStorage,
		defaultTZ: defaultTimeZone,
	}
}

func (s *Service) WithInvalidator(inv Invalidator) *Service {
	s.invalidator = inv
	return s
}

// Get returns stored settings or defaults with IsDefault set.
func (s *Service) Get(ctx context.Context) (SettingsResponse, error) {
	row, found, err := s.storage.GetSettings(ctx)
	if err != nil {
		return SettingsResponse{}, storage.Unavailable("get settings", err)
	}
	if !found {
		return SettingsResponse{
			Settings:  dtoFromStorage(s.defaults()),
			IsDefault: true,
		}, nil
	}
	return SettingsResponse{Settings: dtoFromStorage(row)}, nil
}

// Update validates dto and replaces the stored settings.
func (s *Service) Update(ctx context.Context, dto SettingsDTO) (SettingsDTO, error) {
	if err := dto.Validate(); err != nil {
		return SettingsDTO{}, err
	}

	row, err := s.storage.UpsertSettings(ctx, dtoToStorage(dto))
	if err != nil {
		return SettingsDTO{}, storage.Unavailable("upsert settings", err)
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}
	return dtoFromStorage(row), nil
}

// Location is the zone used to group entries by calendar day.
func (s *Service) Location(ctx context.Context) (*time.Location, error) {
	resp, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return s.location(resp.Settings.TimeZone), nil
}

// CalorieGoal returns nil when no goal is set.
func (s *Service) CalorieGoal(ctx context.Context) (*int, error) {
	resp, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return calorieGoal(resp.Settings), nil
}

// StatsPreferences implements stats.SettingsReader with a single read.
func (s *Service) StatsPreferences(ctx context.Context) (stats.Preferences, error) {
	resp, err := s.Get(ctx)
	if err != nil {
		return stats.Preferences{}, err
	}
	return stats.Preferences{
		Location:    s.location(resp.Settings.TimeZone),
		CalorieGoal: calorieGoal(resp.Settings),
		WeightGoal:  cloneFloatPointer(resp.Settings.WeightGoal),
	}, nil
}

func (s *Service) location(name string) *time.Location {
	if strings.TrimSpace(name) == "" {
		name = s.defaultTZ
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warnf("settings: unknown time zone %q, using UTC", name)
		return time.UTC
	}
	return loc
}

func calorieGoal(dto SettingsDTO) *int {
	if dto.CalorieGoal <= 0 {
		return nil
	}
	goal := dto.CalorieGoal
	return &goal
}

func (s *Service) defaults() storage.Settings {
	return storage.Settings{
		WeightUnit:       WeightUnitKg,
		DefaultRestTime:  defaultRestTime,
		CalorieGoal:      defaultCalorieGoal,
		WorkoutReminders: true,
		ReminderTime:     defaultReminder,
		SoundEnabled:     true,
		VibrationEnabled: true,
		TimeZone:         s.defaultTZ,
	}
}

// IsValidation reports whether err is a settings validation failure.
func IsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	ok := errors.As(err, &verr)
	return verr, ok
}
