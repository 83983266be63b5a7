package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"posd/pkg/bus"
	"posd/pkg/cache"
	"posd/pkg/db"
	"posd/pkg/s3"
	"posd/pkg/telemetry"
	"posd/services/admin"
	"posd/services/dashboard"
	"posd/services/logs"
	"posd/services/staff"
)

// Run assembles the service and blocks until the context is cancelled or a
// termination signal arrives.
func Run(ctx context.Context, cfg Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, "posd", cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("shutdown tracing")
		}
	}()

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database pool: %w", err)
	}
	defer pool.Close()

	orm, err := db.OpenORM(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open orm: %w", err)
	}
	defer func() {
		if err := db.CloseORM(orm); err != nil {
			logger.Warn().Err(err).Msg("close orm")
		}
	}()

	store := cache.New(cfg.CacheCapacity, cfg.CacheTTL)
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("start cache sweep: %w", err)
	}
	defer store.Stop()

	var eventBus *bus.Bus
	if cfg.NATSURL != "" {
		eventBus, err = bus.New(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("connect event bus: %w", err)
		}
		defer eventBus.Close()
	} else {
		logger.Warn().Msg("NATS_URL unset, events disabled")
	}

	var objects *s3.Client
	if cfg.S3Bucket != "" {
		objects, err = s3.NewClientFromEnv()
		if err != nil {
			return fmt.Errorf("init object storage: %w", err)
		}
	} else {
		logger.Warn().Msg("POSD_S3_BUCKET unset, image uploads disabled")
	}

	issuer, err := staff.NewTokenIssuer(cfg.JWTKey, cfg.JWTTTL)
	if err != nil {
		return fmt.Errorf("init token issuer: %w", err)
	}

	engine, err := logs.NewEngine(orm, store, eventBus, logs.Config{
		UndoWindow:  cfg.UndoWindow,
		MaxPageSize: cfg.MaxPageSize,
	}, logger)
	if err != nil {
		return fmt.Errorf("init log engine: %w", err)
	}

	staffHandler, err := staff.NewHandler(orm, issuer, logger)
	if err != nil {
		return fmt.Errorf("init staff handler: %w", err)
	}
	logsHandler, err := logs.NewHandler(engine)
	if err != nil {
		return fmt.Errorf("init logs handler: %w", err)
	}
	adminHandler, err := admin.NewHandler(orm, engine, objects, cfg.S3Bucket, logger)
	if err != nil {
		return fmt.Errorf("init admin handler: %w", err)
	}

	dashboardSvc, err := dashboard.NewService(pool, orm, store, engine, eventBus, logger)
	if err != nil {
		return fmt.Errorf("init dashboard service: %w", err)
	}

	var tracker *dashboard.Tracker
	if eventBus != nil {
		tracker = dashboard.NewTracker(eventBus, logger)
		if err := tracker.Start(ctx); err != nil {
			return fmt.Errorf("start occupancy tracker: %w", err)
		}
		defer tracker.Stop()
	}

	dashboardHandler, err := dashboard.NewHandler(dashboardSvc, tracker)
	if err != nil {
		return fmt.Errorf("init dashboard handler: %w", err)
	}

	router := newRouter(routerDeps{
		cfg:       cfg,
		staff:     staffHandler,
		issuer:    issuer,
		logsH:     logsHandler,
		adminH:    adminHandler,
		dashboard: dashboardHandler,
		ready: func(r *http.Request) error {
			return db.Ping(r.Context(), pool)
		},
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
