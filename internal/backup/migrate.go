package backup

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

var (
	ErrMissingVersion = errors.New("cannot migrate data of unknown origin")
	ErrVersionTooNew  = errors.New("data version is newer than supported")
	ErrUnknownVersion = errors.New("unknown data version")
)

const (
	defaultWorkoutStatus = "planned"
	defaultExerciseRest  = 60
)

type migrationStep struct {
	from  string
	to    string
	apply func(Bundle) Bundle
}

// steps must stay ordered by from.
var steps = []migrationStep{
	{from: "0.9", to: "1.0", apply: migrate09To10},
}

// Migrate brings b to CurrentVersion one step at a time. The input is
// never modified. A bundle newer than CurrentVersion is rejected untouched.
func Migrate(b Bundle) (Bundle, error) {
	version := strings.TrimSpace(b.Version)
	if version == "" {
		return Bundle{}, ErrMissingVersion
	}

	cmp, err := CompareVersions(version, CurrentVersion)
	if err != nil {
		return Bundle{}, err
	}
	if cmp > 0 {
		return Bundle{}, fmt.Errorf("%w: %s > %s", ErrVersionTooNew, version, CurrentVersion)
	}

	out := b.Clone()
	out.Version = version
	for cmp < 0 {
		step, ok := findStep(out.Version)
		if !ok {
			return Bundle{}, fmt.Errorf("%w: %s", ErrUnknownVersion, out.Version)
		}
		out = step.apply(out)
		out.Version = step.to
		if cmp, err = CompareVersions(out.Version, CurrentVersion); err != nil {
			return Bundle{}, err
		}
	}
	out.Version = CurrentVersion
	return out, nil
}

// CompareVersions orders dotted versions such as "0.9" and "1.0".
func CompareVersions(a, b string) (int, error) {
	va, vb := canonical(a), canonical(b)
	if !semver.IsValid(va) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownVersion, a)
	}
	if !semver.IsValid(vb) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownVersion, b)
	}
	return semver.Compare(va, vb), nil
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

func findStep(version string) (migrationStep, bool) {
	for _, s := range steps {
		if semver.Compare(canonical(s.from), canonical(version)) == 0 {
			return s, true
		}
	}
	return migrationStep{}, false
}

// migrate09To10 fills fields introduced in 1.0. It mutates b, which is
// always a private clone.
func migrate09To10(b Bundle) Bundle {
	for _, entry := range b.DailyEntries {
		if entry == nil {
			continue
		}
		if _, ok := entry["notes"].(string); !ok {
			entry["notes"] = ""
		}
		if _, ok := entry["completedWorkouts"]; !ok {
			entry["completedWorkouts"] = []any{}
		}
	}

	for _, workout := range b.Workouts {
		if workout == nil {
			continue
		}
		if status, _ := workout["status"].(string); status == "" {
			workout["status"] = defaultWorkoutStatus
		}
		exercises, _ := workout["exercises"].([]any)
		for _, item := range exercises {
			ex := asObject(item)
			if ex == nil {
				continue
			}
			if !truthy(ex["rest"]) {
				ex["rest"] = defaultExerciseRest
			}
			if _, ok := ex["completedSets"]; !ok {
				ex["completedSets"] = []any{}
			}
		}
	}
	return b
}
