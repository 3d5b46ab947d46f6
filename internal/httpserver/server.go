package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Raventwist88/ontrakk/internal/backup"
	"github.com/Raventwist88/ontrakk/internal/blob"
	"github.com/Raventwist88/ontrakk/internal/config"
	"github.com/Raventwist88/ontrakk/internal/entries"
	"github.com/Raventwist88/ontrakk/internal/reports"
	"github.com/Raventwist88/ontrakk/internal/settings"
	"github.com/Raventwist88/ontrakk/internal/stats"
	"github.com/Raventwist88/ontrakk/internal/storage"
	"github.com/Raventwist88/ontrakk/internal/storage/file"
	"github.com/Raventwist88/ontrakk/internal/storage/memory"
	"github.com/Raventwist88/ontrakk/internal/storage/postgres"
	"github.com/Raventwist88/ontrakk/internal/telemetry"
	"github.com/Raventwist88/ontrakk/internal/workouts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const shutdownTimeout = 10 * time.Second

// Server представляет HTTP сервер
type Server struct {
	config      *config.Config
	mux         *http.ServeMux
	storage     storage.Backend
	storageMode string
	blob        blob.Store
	registry    *prometheus.Registry
	instr       *telemetry.Instrumentation
	httpServer  *http.Server
}

type Option func(*Server)

// WithStorage skips storage selection and uses b.
func WithStorage(b storage.Backend) Option {
	return func(s *Server) {
		s.storage = b
		s.storageMode = "injected"
	}
}

// WithBlobStore enables mirroring backups to bs.
func WithBlobStore(bs blob.Store) Option {
	return func(s *Server) {
		s.blob = bs
	}
}

// New создаёт новый HTTP сервер
func New(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		config:   cfg,
		mux:      http.NewServeMux(),
		registry: telemetry.SetupRegistry(),
	}
	s.instr = telemetry.NewInstrumentation(s.registry)
	for _, opt := range opts {
		opt(s)
	}

	if s.storage == nil {
		s.initStorage()
	}
	s.routes()
	return s
}

// initStorage выбирает storage по STORAGE_MODE, при ошибке использует in-memory.
func (s *Server) initStorage() {
	mode := s.config.EffectiveStorageMode()
	switch mode {
	case config.StorageModePostgres:
		log.Info("connecting to PostgreSQL...")
		pg, err := postgres.New(context.Background(), s.config.DatabaseURL)
		if err != nil {
			log.WithError(err).Warn("PostgreSQL unavailable, falling back to in-memory storage")
			break
		}
		log.Info("PostgreSQL connected")
		s.storage, s.storageMode = pg, mode
		return

	case config.StorageModeFile:
		fs, err := file.New(s.config.DataFile)
		if err != nil {
			log.WithError(err).WithField("path", s.config.DataFile).Warn("file storage unavailable, falling back to in-memory storage")
			break
		}
		log.WithField("path", s.config.DataFile).Info("using file storage")
		s.storage, s.storageMode = fs, mode
		return
	}

	log.Info("using in-memory storage")
	s.storage, s.storageMode = memory.New(), config.StorageModeMemory
}

// routes регистрирует маршруты
func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	// Settings feed preferences into stats; writes anywhere drop cached stats.
	settingsService := settings.NewService(s.storage, s.config.DefaultTimeZone)
	statsService := stats.NewService(s.storage, settingsService, stats.NewCache(s.config.StatsCacheMB, s.instr))
	settingsService.WithInvalidator(statsService)

	// Entries API
	entriesService := entries.NewService(s.storage).WithInvalidator(statsService).WithLocations(settingsService)
	entriesHandler := entries.NewHandler(entriesService)
	s.mux.HandleFunc("GET /v1/entries", entriesHandler.HandleList)
	s.mux.HandleFunc("POST /v1/entries", entriesHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/entries/{id}", entriesHandler.HandleGet)
	s.mux.HandleFunc("DELETE /v1/entries/{id}", entriesHandler.HandleDelete)
	s.mux.HandleFunc("POST /v1/entries/legacy-cache", entriesHandler.HandleImportLegacy)

	// Stats API
	statsHandler := stats.NewHandler(statsService)
	reportsHandler := reports.NewHandlers(reports.NewService(statsService, reports.NewGenerator()))
	s.mux.HandleFunc("GET /v1/stats", statsHandler.HandleGet)
	s.mux.HandleFunc("GET /v1/stats/recent", statsHandler.HandleRecent)
	s.mux.HandleFunc("GET /v1/stats/report", reportsHandler.HandleStatsReport)

	// Workouts API
	workoutsHandler := workouts.NewHandlers(workouts.NewService(s.storage))
	s.mux.HandleFunc("GET /v1/workouts", workoutsHandler.HandleList)
	s.mux.HandleFunc("POST /v1/workouts", workoutsHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/workouts/{id}", workoutsHandler.HandleGet)
	s.mux.HandleFunc("PUT /v1/workouts/{id}", workoutsHandler.HandleUpdate)
	s.mux.HandleFunc("DELETE /v1/workouts/{id}", workoutsHandler.HandleDelete)
	s.mux.HandleFunc("POST /v1/workouts/{id}/start", workoutsHandler.HandleStart)
	s.mux.HandleFunc("POST /v1/workouts/{id}/sets", workoutsHandler.HandleLogSet)
	s.mux.HandleFunc("POST /v1/workouts/{id}/complete", workoutsHandler.HandleComplete)
	s.mux.HandleFunc("GET /v1/workouts/{id}/summary", workoutsHandler.HandleSummary)
	s.mux.HandleFunc("GET /v1/workouts/{id}/progression", workoutsHandler.HandleProgression)
	s.mux.HandleFunc("GET /v1/templates", workoutsHandler.HandleListTemplates)
	s.mux.HandleFunc("POST /v1/templates/{id}/instantiate", workoutsHandler.HandleInstantiate)

	// Settings API
	settingsHandler := settings.NewHandler(settingsService)
	s.mux.HandleFunc("GET /v1/settings", settingsHandler.HandleGet)
	s.mux.HandleFunc("PUT /v1/settings", settingsHandler.HandlePut)

	// Backups API
	backupService := backup.NewService(s.storage, s.blob, s.instr, s.config.BackupSigningSecret, s.config.BackupPrefix).
		WithInvalidator(statsService).
		WithLocations(settingsService)
	backupHandler := backup.NewHandler(backupService)
	s.mux.HandleFunc("GET /v1/backups", backupHandler.HandleList)
	s.mux.HandleFunc("POST /v1/backups", backupHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/backups/export", backupHandler.HandleExport)
	s.mux.HandleFunc("POST /v1/backups/import", backupHandler.HandleImport)
	s.mux.HandleFunc("POST /v1/backups/restore", backupHandler.HandleRestoreData)
	s.mux.HandleFunc("GET /v1/backups/{id}", backupHandler.HandleGet)
	s.mux.HandleFunc("DELETE /v1/backups/{id}", backupHandler.HandleDelete)
	s.mux.HandleFunc("POST /v1/backups/{id}/restore", backupHandler.HandleRestore)
	s.mux.HandleFunc("GET /v1/backups/{id}/verify", backupHandler.HandleVerify)
}

// Handler returns the router wrapped in middleware, outermost first:
// CORS → Rate Limit → Metrics → Router.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	handler = telemetry.RequestMetrics(s.instr, handler)
	handler = RateLimitMiddleware(s.config, handler)
	handler = CORSMiddleware(s.config, handler)
	return handler
}

// handleHealthz возвращает статус сервера
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"storage": s.storageMode,
	})
}

// Start запускает HTTP сервер и блокируется до Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("server listening on http://localhost%s", addr)
	log.Printf("health check: http://localhost%s/healthz", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Close останавливает сервер и закрывает storage.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error
	err = multierr.Append(err, s.Shutdown(ctx))
	if s.storage != nil {
		err = multierr.Append(err, s.storage.Close())
	}
	return err
}
