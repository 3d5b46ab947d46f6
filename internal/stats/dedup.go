package stats

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/Raventwist88/ontrakk/internal/entries"
)

var ErrInvalidWindow = errors.New("invalid window")

// Window bounds trend series to the most recent N days.
type Window string

const (
	Window7D   Window = "7d"
	Window30D  Window = "30d"
	Window90D  Window = "90d"
	Window365D Window = "365d"
	WindowAll  Window = "all"
)

// ParseWindow accepts "7d", "7", "30d", "90d", "365d", "all" or "".
func ParseWindow(s string) (Window, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return WindowAll, nil
	}
	if !strings.HasSuffix(s, "d") && s != "all" {
		s += "d"
	}
	switch w := Window(s); w {
	case Window7D, Window30D, Window90D, Window365D, WindowAll:
		return w, nil
	}
	return "", ErrInvalidWindow
}

// Days returns the window length, 0 for WindowAll.
func (w Window) Days() int {
	switch w {
	case Window7D:
		return 7
	case Window30D:
		return 30
	case Window90D:
		return 90
	case Window365D:
		return 365
	default:
		return 0
	}
}

// DeduplicateByDay keeps one entry per calendar day in loc (UTC when nil).
// The entry with the latest timestamp wins; on an exact tie the greater id
// wins, and if ids are equal too the one later in list wins. Entries without
// a date are dropped. The result is sorted by date ascending.
func DeduplicateByDay(list []entries.DailyEntry, loc *time.Location) []entries.DailyEntry {
	if loc == nil {
		loc = time.UTC
	}

	best := make(map[string]int, len(list))
	for i, e := range list {
		if e.Date.IsZero() {
			continue
		}
		key := e.DayKey(loc)
		if j, ok := best[key]; !ok || supersedes(e, list[j]) {
			best[key] = i
		}
	}

	result := make([]entries.DailyEntry, 0, len(best))
	for _, i := range best {
		result = append(result, cloneEntry(list[i]))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result
}

func supersedes(candidate, current entries.DailyEntry) bool {
	if !candidate.Date.Equal(current.Date) {
		return candidate.Date.After(current.Date)
	}
	if candidate.ID != current.ID {
		return candidate.ID > current.ID
	}
	return true
}

// Views holds both orderings of one deduplication pass.
type Views struct {
	Ascending  []entries.DailyEntry
	Descending []entries.DailyEntry
}

func NewViews(list []entries.DailyEntry, loc *time.Location) Views {
	return viewsOf(DeduplicateByDay(list, loc))
}

func viewsOf(asc []entries.DailyEntry) Views {
	desc := make([]entries.DailyEntry, len(asc))
	for i, e := range asc {
		desc[len(asc)-1-i] = e
	}
	return Views{Ascending: asc, Descending: desc}
}

// Latest returns at most n entries from the descending view.
func (v Views) Latest(n int) []entries.DailyEntry {
	if n <= 0 || n >= len(v.Descending) {
		return v.Descending
	}
	return v.Descending[:n]
}

// FilterWindow keeps entries dated at or after now minus the window.
// sorted must already be deduplicated; it is not deduplicated again.
func FilterWindow(sorted []entries.DailyEntry, w Window, now time.Time) []entries.DailyEntry {
	days := w.Days()
	if days == 0 {
		out := make([]entries.DailyEntry, len(sorted))
		copy(out, sorted)
		return out
	}

	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)
	out := make([]entries.DailyEntry, 0, len(sorted))
	for _, e := range sorted {
		if !e.Date.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

func cloneEntry(e entries.DailyEntry) entries.DailyEntry {
	workouts := make([]string, len(e.CompletedWorkouts))
	copy(workouts, e.CompletedWorkouts)
	e.CompletedWorkouts = workouts
	return e
}
