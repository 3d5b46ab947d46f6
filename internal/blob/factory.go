package blob

import (
	"context"
	"fmt"
	"strings"

	appcfg "github.com/Raventwist88/ontrakk/internal/config"
)

// Logger is satisfied by *logrus.Logger and *log.Logger.
type Logger interface {
	Printf(format string, v ...any)
}

// NewBlobStore builds the backup mirror for mode local|s3|auto.
// A nil Store means backups live only in the document store.
// Only an explicit s3 mode turns a broken S3 setup into an error; auto degrades to local.
func NewBlobStore(ctx context.Context, cfg appcfg.BlobConfig, logger Logger) (Store, string, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = appcfg.BlobModeLocal
	}

	forced, how := false, "auto"
	switch mode {
	case appcfg.BlobModeLocal:
		logf(logger, "INFO blob: mode=local (forced), backup mirror disabled")
		return nil, appcfg.BlobModeLocal, nil
	case appcfg.BlobModeS3:
		forced, how = true, "forced"
	case appcfg.BlobModeAuto:
	default:
		return nil, "", fmt.Errorf("unsupported blob mode: %s", mode)
	}

	if missing := cfg.S3.MissingRequired(); len(missing) > 0 {
		if forced {
			logf(logger, "ERROR blob.s3: code=s3_config_incomplete missing=%v", missing)
			logf(logger, "ERROR blob.s3: %s", cfg.S3.DiagnosticsSummary())
			return nil, "", fmt.Errorf("BLOB_MODE=s3 requested but missing required config: %s", strings.Join(missing, ", "))
		}
		level, code, msg := cfg.S3.Diagnostics()
		logf(logger, "%s blob.s3: code=%s %s", level, code, msg)
		logf(logger, "INFO blob: mode=local (auto, S3 not configured)")
		return nil, appcfg.BlobModeLocal, nil
	}

	logf(logger, "INFO blob.s3: code=s3_ready %s", cfg.S3.DiagnosticsSummary())
	store, err := NewS3Store(ctx, cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey)
	switch {
	case err != nil && forced:
		logf(logger, "ERROR blob.s3: init_failed=%v", err)
		return nil, "", fmt.Errorf("BLOB_MODE=s3 init failed: %w", err)
	case err != nil:
		logf(logger, "WARN blob.s3: init_failed=%q, fallback=local", err.Error())
		return nil, appcfg.BlobModeLocal, nil
	}

	logf(logger, "INFO blob: mode=s3 (%s), backups mirrored to bucket %s", how, cfg.S3.Bucket)
	return store, appcfg.BlobModeS3, nil
}

func logf(logger Logger, format string, v ...any) {
	if logger == nil {
		return
	}
	logger.Printf(format, v...)
}
