// Package session wires settings, logging, storage, metrics and the entry
// store for one application session. The CLI opens one session per command
// and the API server one per process.
package session

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gpacalc/gpacalc/internal/conf"
	"github.com/gpacalc/gpacalc/internal/errors"
	"github.com/gpacalc/gpacalc/internal/kvstore"
	"github.com/gpacalc/gpacalc/internal/logger"
	"github.com/gpacalc/gpacalc/internal/observability"
	"github.com/gpacalc/gpacalc/internal/store"
	"github.com/gpacalc/gpacalc/internal/telemetry"
)

// telemetryFlushTimeout bounds the Sentry flush on Close.
const telemetryFlushTimeout = 2 * time.Second

// Session holds the components shared by every command of one run.
type Session struct {
	ID       string
	Settings *conf.Settings
	Store    *store.Store
	Cache    *kvstore.Cache
	Metrics  *observability.Metrics

	central *logger.CentralLogger
	log     logger.Logger
}

// Open builds a session from settings, opening the configured backend.
func Open(ctx context.Context, settings *conf.Settings) (*Session, error) {
	return OpenWithBackend(ctx, settings, nil)
}

// OpenWithBackend builds a session over backend. A nil backend opens the
// one configured in settings.Storage.
func OpenWithBackend(ctx context.Context, settings *conf.Settings, backend kvstore.Backend) (*Session, error) {
	if settings == nil {
		return nil, errors.Newf("settings cannot be nil").
			Component("session").
			Category(errors.CategoryConfiguration).
			Build()
	}

	s := &Session{
		ID:       uuid.NewString(),
		Settings: settings,
	}

	if err := s.initLogger(); err != nil {
		return nil, err
	}

	if err := telemetry.InitSentry(settings); err != nil {
		s.log.Warn("Failed to initialize telemetry", logger.Error(err))
	}

	if backend == nil {
		var err error
		backend, err = openBackend(&settings.Storage, s.central.Module("kvstore"))
		if err != nil {
			s.closeLogger()
			return nil, err
		}
	}
	s.Cache = kvstore.NewCache(backend, s.central.Module("kvstore"))

	metrics, err := observability.NewMetrics()
	if err != nil {
		_ = s.Cache.Close()
		s.closeLogger()
		return nil, errors.New(err).
			Component("session").
			Category(errors.CategoryConfiguration).
			Context("operation", "create-metrics").
			Build()
	}
	s.Metrics = metrics

	s.Store = store.New(s.Context(ctx), s.Cache, store.Config{
		Debounce: settings.Storage.Debounce,
		Logger:   s.central.Module("store"),
		Observer: metrics.Store,
	})

	s.log.Debug("Session opened",
		logger.String("backend", settings.Storage.Backend),
		logger.Int("subjects", len(s.Store.Subjects())),
		logger.Int("semesters", len(s.Store.Semesters())))
	return s, nil
}

// initLogger installs a central logger built from settings.Logging.
func (s *Session) initLogger() error {
	cfg := s.Settings.Logging
	if s.Settings.Debug {
		console := logger.ConsoleOutput{Enabled: true, Level: "debug"}
		if cfg.Console != nil {
			console.Enabled = cfg.Console.Enabled
		}
		cfg.Console = &console
		cfg.DefaultLevel = "debug"
	}

	central, err := logger.NewCentralLogger(&cfg)
	if err != nil {
		return errors.New(err).
			Component("session").
			Category(errors.CategoryConfiguration).
			Context("operation", "create-logger").
			Build()
	}
	logger.SetGlobal(central)
	s.central = central
	s.log = central.Module("session").With(logger.String("session_id", s.ID))
	return nil
}

// openBackend resolves the storage path and opens the backend.
func openBackend(settings *conf.StorageSettings, log logger.Logger) (kvstore.Backend, error) {
	opts := kvstore.Options{Kind: settings.Backend, DSN: settings.DSN}

	switch settings.Backend {
	case conf.BackendFile, conf.BackendSQLite, "":
		path, err := conf.ResolveStoragePath(settings)
		if err != nil {
			return nil, err
		}
		opts.Path = path
		if settings.Backend == conf.BackendSQLite && path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, errors.New(err).
					Component("session").
					Category(errors.CategoryFileIO).
					Context("operation", "create-data-dir").
					Build()
			}
		}
	}

	log.Debug("Opening storage backend",
		logger.String("backend", opts.Kind),
		logger.String("path", opts.Path))
	return kvstore.Open(opts, log)
}

// Context returns ctx tagged with the session id for log correlation.
func (s *Session) Context(ctx context.Context) context.Context {
	return logger.WithTraceID(ctx, s.ID)
}

// Logger returns the session logger.
func (s *Session) Logger() logger.Logger {
	return s.log
}

// Close flushes pending writes and releases the backend, telemetry and
// logger. Persistence errors are returned after everything is released.
func (s *Session) Close(ctx context.Context) error {
	var errs []error

	if err := s.Store.Close(s.Context(ctx)); err != nil {
		errs = append(errs, err)
	}
	if err := s.Cache.Close(); err != nil {
		errs = append(errs, err)
	}

	telemetry.Shutdown(telemetryFlushTimeout)
	s.log.Debug("Session closed")
	s.closeLogger()

	return errors.Join(errs...)
}

// closeLogger closes the central logger and restores the default global.
func (s *Session) closeLogger() {
	if s.central == nil {
		return
	}
	logger.SetGlobal(nil)
	_ = s.central.Close()
	s.central = nil
}
