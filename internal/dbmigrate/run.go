package dbmigrate

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	log "github.com/sirupsen/logrus"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Run applies a goose command. An empty migrationsDir uses the migrations
// compiled into the binary; anything else is read from disk.
func Run(command string, dbURL string, migrationsDir string) error {
	if dbURL == "" {
		return fmt.Errorf("database URL is empty")
	}
	if err := ValidateCommand(command); err != nil {
		return err
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	dir := migrationsDir
	if dir == "" {
		goose.SetBaseFS(embeddedMigrations)
		defer goose.SetBaseFS(nil)
		dir = DefaultMigrationsDir
	}
	goose.SetLogger(log.StandardLogger())

	if err := goose.Run(command, db, dir); err != nil {
		return fmt.Errorf("goose %s failed: %w", command, err)
	}

	return nil
}

// ValidateCommand accepts the goose commands exposed by cmd/migrate.
func ValidateCommand(command string) error {
	switch command {
	case "up", "status", "down":
		return nil
	default:
		return fmt.Errorf("unsupported command %q (allowed: up, status, down)", command)
	}
}

// EmbeddedMigrations lists the migration files compiled into the binary.
func EmbeddedMigrations() ([]string, error) {
	entries, err := embeddedMigrations.ReadDir(DefaultMigrationsDir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
