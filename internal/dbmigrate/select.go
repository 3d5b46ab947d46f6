package dbmigrate

import (
	"errors"

	"github.com/Raventwist88/ontrakk/internal/config"
)

// DefaultMigrationsDir is the embedded migrations directory.
const DefaultMigrationsDir = "migrations"

var (
	ErrNoDatabaseURL  = errors.New("no database URL configured (set DATABASE_URL_DIRECT or DATABASE_URL)")
	ErrDirectRequired = errors.New("DATABASE_URL_DIRECT is required for startup migrations")
)

// Target is the connection string picked for DDL.
type Target struct {
	URL     string
	Source  string // env variable the URL came from
	Warning string
}

type candidate struct {
	env     string
	url     string
	warning string
}

// SelectDatabaseURL picks the URL for migrations: DIRECT, then DATABASE_URL,
// then POOLED with a warning. With requireDirect only DIRECT is accepted.
func SelectDatabaseURL(cfg *config.Config, requireDirect bool) (Target, error) {
	candidates := []candidate{
		{env: "DATABASE_URL_DIRECT", url: cfg.DatabaseURLDirect},
		{env: "DATABASE_URL", url: cfg.DatabaseURLRaw},
		{env: "DATABASE_URL_POOLED", url: cfg.DatabaseURLPooled, warning: "pooled connections may break DDL transactions; set DATABASE_URL_DIRECT"},
	}
	if requireDirect {
		candidates = candidates[:1]
	}

	for _, c := range candidates {
		if c.url != "" {
			return Target{URL: c.url, Source: c.env, Warning: c.warning}, nil
		}
	}
	if requireDirect {
		return Target{}, ErrDirectRequired
	}
	return Target{}, ErrNoDatabaseURL
}
