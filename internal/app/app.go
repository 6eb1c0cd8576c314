package app

import (
	"context"
	"fmt"

	"redcapprep/internal/config"
	"redcapprep/internal/dbclient"
	"redcapprep/internal/domain"
	"redcapprep/internal/etl"
	"redcapprep/internal/logging"
	"redcapprep/internal/secret"
	"redcapprep/internal/service"
	"redcapprep/internal/storage"
)

// Options selects the process-wide resources App opens on Startup.
type Options struct {
	Config    *config.Config
	HistoryDB string // overrides Config.HistoryDB when set
	NoHistory bool
	Emitter   service.EventEmitter
	Secrets   secret.SecretStore // nil selects Config.SecretStore
}

// App owns the history database, export connections and the PrepService
// built on them.
type App struct {
	opts Options

	db        *storage.DB
	runs      *storage.RunStore
	exporters []dbclient.Exporter
	prep      *service.PrepService
}

// New creates a new App. Nothing is opened until Startup.
func New(opts Options) *App {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	return &App{opts: opts}
}

// Startup opens the run history and export destinations and builds the
// service. On error everything opened so far is closed again.
func (a *App) Startup(ctx context.Context) error {
	cfg := a.opts.Config

	if !a.opts.NoHistory {
		dbPath := a.opts.HistoryDB
		if dbPath == "" {
			dbPath = cfg.HistoryDB
		}
		db, err := storage.New(dbPath)
		if err != nil {
			return fmt.Errorf("open run history: %w", err)
		}
		a.db = db
		a.runs = storage.NewRunStore(db)
		logging.Debug("run history opened", "path", dbPath)
	}

	var exports []etl.Destination
	if len(cfg.Exports) > 0 && a.opts.Secrets == nil {
		secrets, err := secret.New(cfg.SecretStore)
		if err != nil {
			a.Shutdown(ctx)
			return err
		}
		a.opts.Secrets = secrets
	}
	for _, target := range cfg.Exports {
		dsn, err := secret.ExpandDSN(a.opts.Secrets, target.Secret, target.DSN)
		if err != nil {
			a.Shutdown(ctx)
			return fmt.Errorf("export %s: %w", target.Driver, err)
		}
		target.DSN = dsn
		exp, err := dbclient.NewExporter(target)
		if err != nil {
			a.Shutdown(ctx)
			return fmt.Errorf("export %s: %w", target.Driver, err)
		}
		a.exporters = append(a.exporters, exp)
		exports = append(exports, exp)
	}

	delim, err := cfg.DelimiterRune()
	if err != nil {
		a.Shutdown(ctx)
		return err
	}

	// A nil *RunStore must not become a non-nil interface.
	var store domain.RunStore
	if a.runs != nil {
		store = a.runs
	}
	a.prep = service.NewPrepService(service.PrepOptions{
		Rules:          cfg.PrefixRules,
		FallbackFormID: cfg.FallbackFormID,
		Variant:        cfg.Variant(),
		Delimiter:      delim,
		Exports:        exports,
	}, store, a.opts.Emitter)
	return nil
}

// Shutdown stops triggers, waits for running batches and closes every
// connection.
func (a *App) Shutdown(ctx context.Context) {
	if a.prep != nil {
		a.prep.Stop()
		if running := a.prep.RunningBatches(); len(running) > 0 {
			logging.Info("waiting for running batches", "batches", running)
		}
		a.prep.WaitRunning(ctx)
	}
	for _, exp := range a.exporters {
		if err := exp.Close(); err != nil {
			logging.Warn("close exporter failed", "error", err)
		}
	}
	a.exporters = nil
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
}

// Prep returns the batch service. It is nil before Startup.
func (a *App) Prep() *service.PrepService {
	return a.prep
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	return a.opts.Config
}
