package settings

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Raventwist88/ontrakk/internal/storage"
)

const (
	WeightUnitKg  = "kg"
	WeightUnitLbs = "lbs"

	MaxRestTime    = 600
	MaxCalorieGoal = 9999
)

var reminderTimeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

type SettingsDTO struct {
	WeightUnit       string   `json:"weightUnit"`
	DefaultRestTime  int      `json:"defaultRestTime"`
	WeightGoal       *float64 `json:"weightGoal"`
	CalorieGoal      int      `json:"calorieGoal"`
	WorkoutReminders bool     `json:"workoutReminders"`
	ReminderTime     string   `json:"reminderTime"`
	SoundEnabled     bool     `json:"soundEnabled"`
	VibrationEnabled bool     `json:"vibrationEnabled"`
	DarkMode         bool     `json:"darkMode"`
	TimeZone         string   `json:"timeZone"`
}

type SettingsResponse struct {
	Settings  SettingsDTO `json:"settings"`
	IsDefault bool        `json:"isDefault"`
}

// ValidationError lists every invalid field of an update.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid settings: " + strings.Join(e.Problems, "; ")
}

// Validate returns nil or a *ValidationError with every problem found.
func (s SettingsDTO) Validate() error {
	var problems []string

	if s.WeightUnit != WeightUnitKg && s.WeightUnit != WeightUnitLbs {
		problems = append(problems, "weightUnit must be kg or lbs")
	}
	if s.DefaultRestTime < 0 || s.DefaultRestTime > MaxRestTime {
		problems = append(problems, fmt.Sprintf("defaultRestTime must be in range 0..%d", MaxRestTime))
	}
	if s.CalorieGoal < 0 || s.CalorieGoal > MaxCalorieGoal {
		problems = append(problems, fmt.Sprintf("calorieGoal must be in range 0..%d", MaxCalorieGoal))
	}
	if s.WeightGoal != nil && *s.WeightGoal <= 0 {
		problems = append(problems, "weightGoal must be positive or null")
	}
	if !reminderTimeRe.MatchString(s.ReminderTime) {
		problems = append(problems, "reminderTime must be HH:MM")
	}
	if strings.TrimSpace(s.TimeZone) != "" {
		if _, err := time.LoadLocation(strings.TrimSpace(s.TimeZone)); err != nil {
			problems = append(problems, "invalid timeZone")
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func dtoFromStorage(s storage.Settings) SettingsDTO {
	return SettingsDTO{
		WeightUnit:       s.WeightUnit,
		DefaultRestTime:  s.DefaultRestTime,
		WeightGoal:       cloneFloatPointer(s.WeightGoal),
		CalorieGoal:      s.CalorieGoal,
		WorkoutReminders: s.WorkoutReminders,
		ReminderTime:     s.ReminderTime,
		SoundEnabled:     s.SoundEnabled,
		VibrationEnabled: s.VibrationEnabled,
		DarkMode:         s.DarkMode,
		TimeZone:         s.TimeZone,
	}
}

func dtoToStorage(dto SettingsDTO) storage.Settings {
	return storage.Settings{
		WeightUnit:       dto.WeightUnit,
		DefaultRestTime:  dto.DefaultRestTime,
		WeightGoal:       cloneFloatPointer(dto.WeightGoal),
		CalorieGoal:      dto.CalorieGoal,
		WorkoutReminders: dto.WorkoutReminders,
		ReminderTime:     dto.ReminderTime,
		SoundEnabled:     dto.SoundEnabled,
		VibrationEnabled: dto.VibrationEnabled,
		DarkMode:         dto.DarkMode,
		TimeZone:         strings.TrimSpace(dto.TimeZone),
	}
}

func cloneFloatPointer(v *float64) *float64 {
	if v == nil {
		return nil
	}
	copied := *v
	return &copied
}
