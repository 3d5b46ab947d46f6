package backup

import (
	"encoding/json"
	"time"
)

// CurrentVersion is the schema version written by this build.
const CurrentVersion = "1.0"

// Record is a loosely typed entry or workout as found in a bundle.
// A nil Record stands for an array item that was not a JSON object.
type Record map[string]any

// Bundle is the backup interchange document.
type Bundle struct {
	Version      string   `json:"version"`
	Timestamp    string   `json:"timestamp"`
	DailyEntries []Record `json:"dailyEntries"`
	Workouts     []Record `json:"workouts"`
	IsImported   bool     `json:"isImported,omitempty"`
}

// Clone deep-copies b. Nested slices of concrete types are converted to
// []any so clones of equal bundles compare equal.
func (b Bundle) Clone() Bundle {
	out := b
	out.DailyEntries = cloneRecords(b.DailyEntries)
	out.Workouts = cloneRecords(b.Workouts)
	return out
}

// Backup is a stored bundle.
type Backup struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Bundle
	Mirror *Mirror `json:"mirror,omitempty"`
}

// Mirror points at the object storage copy of a backup.
type Mirror struct {
	BundleKey   string `json:"bundleKey"`
	ManifestKey string `json:"manifestKey"`
	Digest      string `json:"digest"`
}

// Summary is a backup without its records.
type Summary struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	Version    string    `json:"version"`
	Timestamp  string    `json:"timestamp"`
	IsImported bool      `json:"isImported"`
	Entries    int       `json:"entries"`
	Workouts   int       `json:"workouts"`
	Mirrored   bool      `json:"mirrored"`
}

func (b Backup) Summary() Summary {
	return Summary{
		ID:         b.ID,
		CreatedAt:  b.CreatedAt,
		Version:    b.Version,
		Timestamp:  b.Timestamp,
		IsImported: b.IsImported,
		Entries:    len(b.DailyEntries),
		Workouts:   len(b.Workouts),
		Mirrored:   b.Mirror != nil,
	}
}

func cloneRecords(in []Record) []Record {
	if in == nil {
		return nil
	}
	out := make([]Record, len(in))
	for i, rec := range in {
		if rec == nil {
			continue
		}
		out[i] = cloneMap(rec)
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		if t == nil {
			return nil
		}
		return cloneMap(t)
	case map[string]any:
		if t == nil {
			return nil
		}
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []Record:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item
		}
		return out
	case json.RawMessage:
		out := make(json.RawMessage, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}

// asObject returns v as a JSON object, or nil.
func asObject(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case Record:
		return t
	}
	return nil
}
