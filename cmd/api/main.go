package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	log "github.com/sirupsen/logrus"

	"github.com/Raventwist88/ontrakk/internal/blob"
	"github.com/Raventwist88/ontrakk/internal/config"
	"github.com/Raventwist88/ontrakk/internal/dbmigrate"
	"github.com/Raventwist88/ontrakk/internal/httpserver"
	"github.com/Raventwist88/ontrakk/internal/logging"
)

func main() {
	cfg := config.Load()

	logCloser := logging.Setup(logging.SetupParams{
		LogFileName: cfg.LogFile,
		LogToStdout: true,
		LogLevel:    cfg.LogLevel,
		LogJSON:     cfg.Env != "local",
	})
	defer logCloser.Close()

	printStartupBanner(cfg)
	validateProductionConfig(cfg)

	if cfg.RunMigrationsOnStartup {
		target, err := dbmigrate.SelectDatabaseURL(cfg, true)
		if err != nil {
			log.Fatalf("FATAL startup migrations: %v", err)
		}

		log.Printf("startup migrations: command=up using=%s", target.Source)
		if err := dbmigrate.Run("up", target.URL, ""); err != nil {
			log.Fatalf("FATAL startup migrations failed: %v", err)
		}
		log.Printf("startup migrations: completed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	blobStore, blobMode, err := blob.NewBlobStore(ctx, cfg.Blob, log.StandardLogger())
	if err != nil {
		log.Fatalf("FATAL blob: %v", err)
	}
	log.WithField("mode", blobMode).Info("backup mirror ready")

	server := httpserver.New(cfg, httpserver.WithBlobStore(blobStore))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("server stopped")
		}
	case <-ctx.Done():
		log.Info("shutting down...")
	}

	if err := server.Close(); err != nil {
		log.WithError(err).Error("shutdown")
	}
}

// printStartupBanner logs a one-time summary of the resolved configuration.
// Secrets are printed only as "set" / "not set".
func printStartupBanner(cfg *config.Config) {
	log.Println("============ OnTrakk API ============")
	log.Printf("  env              = %s", cfg.Env)
	log.Printf("  port             = %d", cfg.Port)
	log.Printf("  log_level        = %s", nonEmptyOrDash(cfg.LogLevel))

	// ---- Storage ----
	log.Println("---- storage ----")
	log.Printf("  storage_mode     = %s (effective=%s)", cfg.StorageMode, cfg.EffectiveStorageMode())
	if cfg.EffectiveStorageMode() == config.StorageModeFile {
		log.Printf("  data_file        = %s", cfg.DataFile)
	}
	log.Printf("  runtime_url      = %s", describeDBURL(cfg.DatabaseURL, cfg.DatabaseURLPooled))
	log.Printf("  pooled           = %s", setOrNot(cfg.DatabaseURLPooled))
	log.Printf("  direct           = %s", setOrNot(cfg.DatabaseURLDirect))
	log.Printf("  migrations_on_startup = %t", cfg.RunMigrationsOnStartup)

	// ---- Stats ----
	log.Println("---- stats ----")
	log.Printf("  cache_mb         = %d", cfg.StatsCacheMB)
	log.Printf("  default_tz       = %s", nonEmptyOrDash(cfg.DefaultTimeZone))

	// ---- Backups ----
	log.Println("---- backups ----")
	log.Printf("  blob_mode        = %s", cfg.Blob.Mode)
	log.Printf("  prefix           = %s", nonEmptyOrDash(cfg.BackupPrefix))
	log.Printf("  signing_secret   = %s", setOrNot(cfg.BackupSigningSecret))
	if cfg.Blob.Mode != config.BlobModeLocal {
		log.Printf("  s3: %s", cfg.Blob.S3.DiagnosticsSummary())
	}

	log.Println("=====================================")
}

// validateProductionConfig performs fatal checks that only matter in non-local envs.
func validateProductionConfig(cfg *config.Config) {
	isProd := cfg.Env == "production" || cfg.Env == "prod" || cfg.Env == "staging"

	if cfg.Blob.Mode == config.BlobModeS3 {
		if missing := cfg.Blob.S3.MissingRequired(); len(missing) > 0 {
			log.Fatalf("FATAL blob: BLOB_MODE is 's3' but S3 config is incomplete, missing: %s", strings.Join(missing, ", "))
		}
	}

	if isProd && cfg.EffectiveStorageMode() == config.StorageModeMemory {
		log.Warnf("storage: in-memory storage in %s, data is lost on restart", cfg.Env)
	}
	if isProd && cfg.Blob.Mode == config.BlobModeS3 && cfg.BackupSigningSecret == "" {
		log.Fatalf("FATAL backups: BACKUP_SIGNING_SECRET must be set in %s when mirroring to S3", cfg.Env)
	}
}

// ---- helpers (no secrets) ----

func setOrNot(v string) string {
	if strings.TrimSpace(v) == "" {
		return "not set"
	}
	return "set"
}

func nonEmptyOrDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func describeDBURL(runtime, pooled string) string {
	if runtime == "" {
		return "not set"
	}
	if pooled != "" && runtime == pooled {
		return "set (via DATABASE_URL_POOLED)"
	}
	return "set"
}
