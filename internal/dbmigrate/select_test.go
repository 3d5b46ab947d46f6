package dbmigrate

import (
	"errors"
	"testing"

	"github.com/Raventwist88/ontrakk/internal/config"
)

func TestSelectDatabaseURL(t *testing.T) {
	tests := []struct {
		name          string
		cfg           config.Config
		requireDirect bool
		wantURL       string
		wantSource    string
		wantWarning   bool
		wantErr       error
	}{
		{
			name:       "direct wins",
			cfg:        config.Config{DatabaseURLDirect: "postgres://direct", DatabaseURLRaw: "postgres://url", DatabaseURLPooled: "postgres://pooled"},
			wantURL:    "postgres://direct",
			wantSource: "DATABASE_URL_DIRECT",
		},
		{
			name:       "database url before pooled",
			cfg:        config.Config{DatabaseURLRaw: "postgres://url", DatabaseURLPooled: "postgres://pooled"},
			wantURL:    "postgres://url",
			wantSource: "DATABASE_URL",
		},
		{
			name:        "pooled warns",
			cfg:         config.Config{DatabaseURLPooled: "postgres://pooled"},
			wantURL:     "postgres://pooled",
			wantSource:  "DATABASE_URL_POOLED",
			wantWarning: true,
		},
		{
			name:    "nothing set",
			wantErr: ErrNoDatabaseURL,
		},
		{
			name:          "direct required",
			cfg:           config.Config{DatabaseURLRaw: "postgres://url", DatabaseURLPooled: "postgres://pooled"},
			requireDirect: true,
			wantErr:       ErrDirectRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := SelectDatabaseURL(&tt.cfg, tt.requireDirect)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if target.URL != tt.wantURL || target.Source != tt.wantSource {
				t.Fatalf("expected %s from %s, got %+v", tt.wantURL, tt.wantSource, target)
			}
			if (target.Warning != "") != tt.wantWarning {
				t.Fatalf("unexpected warning state: %q", target.Warning)
			}
		})
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	names, err := EmbeddedMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 embedded migrations, got %v", names)
	}
	if names[0] != "00001_documents.sql" {
		t.Fatalf("expected documents migration first, got %q", names[0])
	}
}

func TestValidateCommand(t *testing.T) {
	for _, cmd := range []string{"up", "down", "status"} {
		if err := ValidateCommand(cmd); err != nil {
			t.Fatalf("expected %q to be accepted: %v", cmd, err)
		}
	}
	if err := ValidateCommand("redo"); err == nil {
		t.Fatal("expected redo to be rejected")
	}
}
