package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var ErrUnrecognizedFormat = errors.New("unrecognized backup format")

// LegacyVersion is stamped on bundles converted from the old layout.
const LegacyVersion = "0.9"

// Layout is the top-level shape of an import document.
type Layout int

const (
	LayoutBundle Layout = iota
	LayoutLegacy
)

func (l Layout) String() string {
	if l == LayoutLegacy {
		return "legacy"
	}
	return "bundle"
}

// DetectLayout tells a bundle from the old {entries, mesocycle, workoutLogs}
// export.
func DetectLayout(doc map[string]any) (Layout, error) {
	_, hasEntries := doc["dailyEntries"]
	_, hasWorkouts := doc["workouts"]
	if hasEntries || hasWorkouts {
		return LayoutBundle, nil
	}
	for _, key := range []string{"entries", "mesocycle", "workoutLogs"} {
		if _, ok := doc[key]; ok {
			return LayoutLegacy, nil
		}
	}
	if _, ok := doc["version"]; ok {
		return LayoutBundle, nil
	}
	return 0, ErrUnrecognizedFormat
}

// ParseImport decodes data as a bundle, converting the legacy layout.
// Arrays that are not arrays are reported as a *ValidationError.
func ParseImport(data []byte) (Bundle, Layout, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return Bundle{}, 0, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}
	if doc == nil {
		return Bundle{}, 0, ErrUnrecognizedFormat
	}

	layout, err := DetectLayout(doc)
	if err != nil {
		return Bundle{}, 0, err
	}
	if layout == LayoutLegacy {
		b, err := ConvertLegacy(doc)
		return b, layout, err
	}

	var problems []string
	b := Bundle{
		Version:   versionString(doc["version"]),
		Timestamp: stringValue(doc["timestamp"]),
	}
	if b.DailyEntries, err = recordList(doc["dailyEntries"]); err != nil {
		problems = append(problems, "dailyEntries must be an array")
	}
	if b.Workouts, err = recordList(doc["workouts"]); err != nil {
		problems = append(problems, "workouts must be an array")
	}
	if len(problems) > 0 {
		return Bundle{}, layout, &ValidationError{Problems: problems}
	}
	return b, layout, nil
}

// ConvertLegacy maps the old export layout onto a 0.9 bundle. Mesocycle
// days become workout-<i>; every workout log date becomes a workout
// holding the sets actually performed.
func ConvertLegacy(doc map[string]any) (Bundle, error) {
	rawEntries, ok := listValue(doc["entries"])
	if !ok {
		return Bundle{}, &ValidationError{Problems: []string{"entries must be an array"}}
	}

	b := Bundle{
		Version:      LegacyVersion,
		Timestamp:    firstString(doc, "timestamp", "exportDate"),
		DailyEntries: make([]Record, 0, len(rawEntries)),
		Workouts:     []Record{},
	}

	for _, item := range rawEntries {
		e := asObject(item)
		if e == nil {
			b.DailyEntries = append(b.DailyEntries, nil)
			continue
		}
		rec := Record{
			"id":     "entry-" + stringValue(e["date"]),
			"date":   e["date"],
			"weight": e["weightKg"],
			"calories": map[string]any{
				"intake": e["caloriesIntake"],
				"burned": e["caloriesBurned"],
				"net":    e["netCalories"],
			},
			"completedWorkouts": orDefault(e["workouts"], []any{}),
		}
		if notes, ok := e["notes"].(string); ok {
			rec["notes"] = notes
		}
		b.DailyEntries = append(b.DailyEntries, rec)
	}

	days, _ := listValue(asObject(doc["mesocycle"])["days"])
	for i, item := range days {
		day := asObject(item)
		if day == nil {
			b.Workouts = append(b.Workouts, nil)
			continue
		}
		exercises, _ := listValue(day["exercises"])
		converted := make([]any, 0, len(exercises))
		for _, exItem := range exercises {
			ex := asObject(exItem)
			if ex == nil {
				converted = append(converted, exItem)
				continue
			}
			converted = append(converted, map[string]any{
				"name":     ex["name"],
				"category": ex["category"],
				"sets":     ex["sets"],
				"reps":     ex["reps"],
				"weight":   orDefault(ex["weight"], 0),
				"notes":    orDefault(ex["notes"], ""),
				"rest":     orDefault(ex["rest"], defaultExerciseRest),
			})
		}
		b.Workouts = append(b.Workouts, Record{
			"id":        fmt.Sprintf("workout-%d", i),
			"name":      day["name"],
			"type":      orDefault(day["type"], ""),
			"exercises": converted,
		})
	}

	logs := asObject(doc["workoutLogs"])
	dates := make([]string, 0, len(logs))
	for date := range logs {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	for _, date := range dates {
		entry := asObject(logs[date])
		if entry == nil {
			continue
		}
		b.Workouts = append(b.Workouts, convertLog(date, entry, days))
	}
	return b, nil
}

func convertLog(date string, entry map[string]any, days []any) Record {
	rec := Record{
		"id":     "log-" + date,
		"date":   date,
		"status": orDefault(entry["status"], "completed"),
		"name":   "Workout " + date,
	}
	if idx, ok := intValue(entry["dayIndex"]); ok {
		rec["workoutId"] = fmt.Sprintf("workout-%d", idx)
		if idx >= 0 && idx < len(days) {
			if name, _ := asObject(days[idx])["name"].(string); name != "" {
				rec["name"] = name
			}
		}
	}

	exercises, _ := listValue(entry["exercises"])
	converted := make([]any, 0, len(exercises))
	for _, item := range exercises {
		ex := asObject(item)
		if ex == nil {
			converted = append(converted, item)
			continue
		}
		converted = append(converted, map[string]any{
			"name":       ex["name"],
			"sets":       orDefault(ex["actualSets"], ex["sets"]),
			"reps":       orDefault(ex["actualReps"], ex["reps"]),
			"weight":     orDefault(ex["actualWeight"], orDefault(ex["weight"], 0)),
			"notes":      orDefault(ex["notes"], ""),
			"difficulty": orDefault(ex["difficulty"], "moderate"),
		})
	}
	rec["exercises"] = converted
	return rec
}

func recordList(v any) ([]Record, error) {
	if v == nil {
		return []Record{}, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, ErrUnrecognizedFormat
	}
	out := make([]Record, 0, len(list))
	for _, item := range list {
		out = append(out, Record(asObject(item)))
	}
	return out, nil
}

// listValue treats a missing value as an empty list.
func listValue(v any) ([]any, bool) {
	if v == nil {
		return nil, true
	}
	list, ok := v.([]any)
	return list, ok
}

func orDefault(v, fallback any) any {
	if truthy(v) {
		return v
	}
	return fallback
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

// versionString keeps "1.0" readable when a version was written as a number.
func versionString(v any) string {
	if f, ok := v.(float64); ok {
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	return stringValue(v)
}

func firstString(doc map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := stringValue(doc[k]); s != "" {
			return s
		}
	}
	return ""
}

func intValue(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}
