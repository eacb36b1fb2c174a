package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	compliancemetrics "treasury/internal/compliance/metrics"
	"treasury/internal/compliance/service"
	"treasury/internal/compliance/store"
	"treasury/internal/platform/config"
	"treasury/internal/platform/logger"
	"treasury/pkg/platform/audit"
	"treasury/pkg/platform/audit/publisher"
	auditmem "treasury/pkg/platform/audit/store/memory"
	auditpg "treasury/pkg/platform/audit/store/postgres"
)

// closableStore is a record store holding process resources.
type closableStore interface {
	service.RecordStore
	Close() error
}

type memoryStore struct {
	*store.InMemoryStore
}

func (memoryStore) Close() error { return nil }

// app is the dependency graph shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	store    closableStore
	service  *service.Service
}

func newApp(ctx context.Context, opts *RootOptions, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	log := logger.New(logOut, cfg.Log.Level, cfg.Log.Format)

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open store", err)
	}
	trail, err := openAuditStore(ctx, st)
	if err != nil {
		_ = st.Close()
		return nil, WrapExitError(ExitCommandError, "open audit store", err)
	}

	reg := prometheus.NewRegistry()
	svcOpts := []service.Option{
		service.WithLogger(log),
		service.WithAuditPublisher(publisher.New(trail, publisher.WithLogger(log))),
		service.WithAuditReader(trail),
		service.WithConcurrency(cfg.Reconcile.Concurrency),
		service.WithBatchSize(cfg.Reconcile.BatchSize),
	}
	if cfg.Metrics.Enabled {
		svcOpts = append(svcOpts, service.WithMetrics(compliancemetrics.NewWithRegisterer(reg)))
	}

	return &app{
		cfg:      cfg,
		logger:   log,
		registry: reg,
		store:    st,
		service:  service.New(st, svcOpts...),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func openStore(ctx context.Context, cfg config.Store) (closableStore, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memoryStore{store.NewInMemory()}, nil
	case config.DriverSQLite:
		sq, err := store.OpenSQLite(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return sq, nil
	case config.DriverPostgres:
		pg, err := store.OpenPostgres(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// openAuditStore keeps the audit trail next to the records when the record
// store is PostgreSQL. Other drivers keep it for the process lifetime only.
func openAuditStore(ctx context.Context, st closableStore) (audit.Store, error) {
	pg, ok := st.(*store.PostgresStore)
	if !ok {
		return auditmem.NewInMemoryStore(), nil
	}
	trail := auditpg.New(pg.DB())
	if err := trail.Migrate(ctx); err != nil {
		return nil, err
	}
	return trail, nil
}
