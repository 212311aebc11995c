package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sharide/internal/auth"
	"sharide/internal/config"
	"sharide/internal/connectivity"
	"sharide/internal/metrics"
	"sharide/internal/repository"
	"sharide/internal/repository/memory"
	"sharide/internal/repository/postgres"
	"sharide/internal/repository/sqlite"
	"sharide/internal/services"
)

// app wires the store, services and connectivity tracking for one process.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	store   repository.DocumentStore
	cache   repository.NotificationCache
	locks   *memory.LockManager
	metrics *metrics.Metrics

	observer *connectivity.Observer
	probe    *connectivity.ProbeMonitor
	jwt      *auth.JWTManager

	notifications *services.NotificationService
	ratings       *services.RatingService
	directory     *services.DirectoryService
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	if logger == nil {
		logger = slog.Default()
	}
	store, cache, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		cache:    cache,
		locks:    memory.NewLockManager(),
		metrics:  metrics.New(),
		observer: connectivity.NewObserver(logger),
		jwt:      auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration),
	}
	a.probe = connectivity.NewProbeMonitor(store.Ping, a.observer,
		cfg.Connectivity.ProbeInterval, cfg.Connectivity.ProbeTimeout, logger)

	a.notifications = services.NewNotificationService(cache, logger)
	a.ratings, err = services.NewRatingService(store, a.locks, a.notifications, a.metrics, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.directory = services.NewDirectoryService(store, a.metrics, cfg, logger)
	return a, nil
}

// openStore returns the document store and notification cache for the
// configured driver. PostgreSQL keeps notifications in process memory.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.DocumentStore, repository.NotificationCache, error) {
	switch cfg.Store.Driver {
	case config.StoreMemory:
		return memory.NewDocumentStore(), memory.NewNotificationCache(), nil
	case config.StoreSQLite:
		st, err := sqlite.New(cfg.Store.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, st, nil
	case config.StorePostgres:
		dbCtx, cancel := context.WithTimeout(ctx, cfg.Store.ConnTimeout)
		defer cancel()
		st, err := postgres.New(dbCtx, cfg.Store.DSN, postgres.Options{
			MaxConns:    cfg.Store.MaxConns,
			MinConns:    cfg.Store.MinConns,
			ConnTimeout: cfg.Store.ConnTimeout,
			Logger:      logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return st, memory.NewNotificationCache(), nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// Close stops background work and releases the store.
func (a *app) Close() error {
	if a.probe != nil {
		a.probe.Stop()
	}
	a.locks.Stop()
	a.observer.Unsubscribe()
	if err := a.store.Close(); err != nil && !errors.Is(err, repository.ErrStoreUnavailable) {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
