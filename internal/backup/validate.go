package backup

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/Raventwist88/ontrakk/internal/entries"
)

// ValidationError carries every problem found in a bundle.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid backup: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid backup: %d problems", len(e.Problems))
}

// ValidateBundle lists human readable problems, each prefixed with the
// 1-based position of the offending record. An empty result means valid.
func ValidateBundle(b Bundle) []string {
	var problems []string

	if strings.TrimSpace(b.Version) == "" {
		problems = append(problems, "Missing version")
	}
	if strings.TrimSpace(b.Timestamp) == "" {
		problems = append(problems, "Missing timestamp")
	}

	for i, entry := range b.DailyEntries {
		prefix := fmt.Sprintf("Daily entry %d", i+1)
		for _, p := range validateEntry(entry) {
			problems = append(problems, prefix+": "+p)
		}
	}

	for i, workout := range b.Workouts {
		prefix := fmt.Sprintf("Workout %d", i+1)
		problems = append(problems, validateWorkout(prefix, workout)...)
	}
	return problems
}

func validateEntry(entry Record) []string {
	if entry == nil {
		return []string{"Not an object"}
	}

	var problems []string
	if !nonEmptyID(entry["id"]) {
		problems = append(problems, "Missing ID")
	}
	switch date := entry["date"]; {
	case date == nil || date == "":
		problems = append(problems, "Missing date")
	case entries.ParseDate(date).IsZero():
		problems = append(problems, "Invalid date")
	}

	weight, intake, burned := entry["weightKg"], entry["caloriesIntake"], entry["caloriesBurned"]
	if entries.DetectShape(entries.RawEntry(entry)) == entries.ShapeLegacy {
		calories := asObject(entry["calories"])
		weight, intake, burned = entry["weight"], calories["intake"], calories["burned"]
	}
	if !isNumber(weight) {
		problems = append(problems, "Invalid weight")
	}
	if !isNumber(intake) {
		problems = append(problems, "Invalid calories intake")
	}
	if !isNumber(burned) {
		problems = append(problems, "Invalid calories burned")
	}
	return problems
}

func validateWorkout(prefix string, workout Record) []string {
	if workout == nil {
		return []string{prefix + ": Not an object"}
	}

	var problems []string
	if !nonEmptyID(workout["id"]) {
		problems = append(problems, prefix+": Missing ID")
	}
	if name, _ := workout["name"].(string); strings.TrimSpace(name) == "" {
		problems = append(problems, prefix+": Missing name")
	}

	exercises, ok := workout["exercises"].([]any)
	if !ok {
		return append(problems, prefix+": Invalid exercises")
	}
	for j, item := range exercises {
		exPrefix := fmt.Sprintf("%s, exercise %d", prefix, j+1)
		ex := asObject(item)
		if ex == nil {
			problems = append(problems, exPrefix+": Not an object")
			continue
		}
		if name, _ := ex["name"].(string); strings.TrimSpace(name) == "" {
			problems = append(problems, exPrefix+": Missing name")
		}
		if !isNumber(ex["sets"]) {
			problems = append(problems, exPrefix+": Invalid sets")
		}
		if !isNumber(ex["reps"]) {
			problems = append(problems, exPrefix+": Invalid reps")
		}
	}
	return problems
}

func nonEmptyID(v any) bool {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id) != ""
	case float64:
		return true
	case json.Number:
		return id != ""
	}
	return false
}

// isNumber accepts JSON numbers only; numeric strings are rejected.
func isNumber(v any) bool {
	switch n := v.(type) {
	case float64:
		return !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return !math.IsNaN(float64(n)) && !math.IsInf(float64(n), 0)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case json.Number:
		_, err := n.Float64()
		return err == nil
	}
	return false
}

// truthy mirrors the loose "value or default" checks of the legacy format:
// nil, false, 0 and "" count as absent.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	case int:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	}
	return true
}
