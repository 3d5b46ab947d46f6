package entries

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
}

// DetectShape picks the record layout by its discriminating field.
// weightKg always means current; a nested calories object or a bare
// weight key means legacy.
func DetectShape(raw RawEntry) Shape {
	if _, ok := raw["weightKg"]; ok {
		return ShapeCurrent
	}
	if _, ok := raw["calories"].(map[string]any); ok {
		return ShapeLegacy
	}
	if _, ok := raw["weight"]; ok {
		return ShapeLegacy
	}
	return ShapeCurrent
}

// NormalizeEntry converts a raw entry of either shape into a DailyEntry.
// It never fails: unusable numbers become 0 and an unparseable date
// becomes the zero time. Missing ids are derived from the UTC day.
func NormalizeEntry(raw RawEntry) DailyEntry {
	return NormalizeEntryIn(raw, time.UTC)
}

// NormalizeEntryIn is NormalizeEntry with missing ids derived from the day in loc.
func NormalizeEntryIn(raw RawEntry, loc *time.Location) DailyEntry {
	var weight, intake, burned any
	switch DetectShape(raw) {
	case ShapeLegacy:
		weight = raw["weight"]
		calories, _ := raw["calories"].(map[string]any)
		intake = calories["intake"]
		burned = calories["burned"]
	default:
		weight = raw["weightKg"]
		intake = raw["caloriesIntake"]
		burned = raw["caloriesBurned"]
	}

	entry := DailyEntry{
		Date:              ParseDate(raw["date"]),
		WeightKg:          CoerceWeight(weight),
		CaloriesIntake:    CoerceCalories(intake),
		CaloriesBurned:    CoerceCalories(burned),
		CompletedWorkouts: workoutNames(raw),
	}
	if notes, ok := raw["notes"].(string); ok {
		entry.Notes = notes
	}

	entry.ID = stringField(raw, "id")
	if entry.ID == "" {
		entry.ID = DefaultID(entry.Date, loc)
	}
	return entry
}

// NormalizeAll maps NormalizeEntry over raws.
func NormalizeAll(raws []RawEntry) []DailyEntry {
	result := make([]DailyEntry, 0, len(raws))
	for _, raw := range raws {
		result = append(result, NormalizeEntry(raw))
	}
	return result
}

// CoerceCalories truncates v to an integer (parseInt semantics) and
// returns 0 for anything non-numeric, negative or >= MaxCalories.
func CoerceCalories(v any) int {
	n, ok := parseIntPrefix(v)
	if !ok || n < 0 || n >= MaxCalories {
		return 0
	}
	return int(n)
}

// CoerceWeight returns v as kilograms, or 0 for anything non-numeric,
// non-finite or negative.
func CoerceWeight(v any) float64 {
	f, ok := ToNumber(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// ToNumber converts JSON-ish numeric values. Strings must be fully numeric.
func ToNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// parseIntPrefix mimics parseInt: numbers are truncated, strings are read
// up to the first character that is not part of a leading integer.
func parseIntPrefix(v any) (int64, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		end := 0
		if end < len(s) && (s[end] == '-' || s[end] == '+') {
			end++
		}
		digits := end
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
		}
		if end == digits {
			return 0, false
		}
		n, err := strconv.ParseInt(s[:end], 10, 64)
		return n, err == nil
	}

	f, ok := ToNumber(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// ParseDate accepts RFC 3339, zone-less timestamps (read as UTC), plain
// dates and unix milliseconds. Anything else yields the zero time.
func ParseDate(v any) time.Time {
	switch d := v.(type) {
	case time.Time:
		return d
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return time.Time{}
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
		return time.Time{}
	default:
		ms, ok := ToNumber(v)
		if !ok || ms <= 0 || math.IsNaN(ms) || math.IsInf(ms, 0) {
			return time.Time{}
		}
		return time.UnixMilli(int64(ms)).UTC()
	}
}

func workoutNames(raw RawEntry) []string {
	list, ok := raw["completedWorkouts"].([]any)
	if !ok {
		list, _ = raw["workouts"].([]any)
	}
	names := make([]string, 0, len(list))
	for _, item := range list {
		switch w := item.(type) {
		case string:
			if w = strings.TrimSpace(w); w != "" {
				names = append(names, w)
			}
		case map[string]any:
			if name, ok := w["name"].(string); ok && strings.TrimSpace(name) != "" {
				names = append(names, strings.TrimSpace(name))
			}
		}
	}
	return names
}

func stringField(raw RawEntry, key string) string {
	switch v := raw[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
