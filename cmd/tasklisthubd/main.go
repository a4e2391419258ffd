// Command tasklisthubd serves the per-user task list synchronization hub:
// a WebSocket streaming endpoint plus the habit-tracker integration REST
// routes, backed by a durable checkpoint-and-operation-log store.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dshills/tasklisthub/internal/cell"
	"github.com/dshills/tasklisthub/internal/collab"
	"github.com/dshills/tasklisthub/internal/emit"
	"github.com/dshills/tasklisthub/internal/logstore"
	"github.com/dshills/tasklisthub/internal/metrics"
	"github.com/dshills/tasklisthub/internal/server"
	flags "github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

func main() {
	var cfg server.Config
	if _, err := flags.Parse(&cfg); err != nil {
		// flags.Parse has already printed usage on ErrHelp.
		if ferr, ok := err.(*flags.Error); ok && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if cfg.LogJSON {
		log.SetFormatter(&log.JSONFormatter{})
	}

	if err := run(cfg); err != nil {
		log.WithError(err).Fatal("tasklisthubd exited with error")
	}
}

func run(cfg server.Config) error {
	store, db, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	habitTracker := collab.NewSQLHabitTracker(db)
	if err := habitTracker.EnsureSchema(context.Background()); err != nil {
		return fmt.Errorf("ensuring habit tracker schema: %w", err)
	}

	if cfg.JWTSecret == "" {
		log.Warn("no jwt secret configured; every handshake will fail authentication")
	}
	auth := collab.NewJWTAuth([]byte(cfg.JWTSecret))

	registry := prometheus.NewRegistry()
	recorder := metrics.New(registry)
	emitter := emit.NewLogEmitter(os.Stdout, cfg.LogJSON)

	cellRegistry := cell.NewRegistry(store, emitter,
		cell.WithBroadcastCapacity(cfg.BroadcastCapacity),
		cell.WithIdleEviction(cfg.IdleCellGrace),
		cell.WithRecorder(recorder),
	)
	defer cellRegistry.Close()

	router := server.NewRouter(server.Deps{
		Auth:         auth,
		HabitTracker: habitTracker,
		Registry:     cellRegistry,
		Emitter:      emitter,
		Recorder:     recorder,
	})

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Warn("metrics server exited")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("tasklisthubd listening")
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
	case sig := <-sigCh:
		log.WithField("signal", sig).Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctx)
		if metricsServer != nil {
			_ = metricsServer.Shutdown(ctx)
		}
	}

	return nil
}

// openStore constructs the durable logstore.Store selected by
// cfg.StoreBackend, plus the *sql.DB it's built on (for the habit tracker
// to share, where applicable).
func openStore(cfg server.Config) (logstore.Store, *sql.DB, error) {
	switch cfg.StoreBackend {
	case "sqlite":
		store, err := logstore.NewSQLiteStore(cfg.StoreDSN)
		if err != nil {
			return nil, nil, err
		}
		db, err := sql.Open("sqlite", cfg.StoreDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("opening companion sqlite connection: %w", err)
		}
		return store, db, nil

	case "mysql":
		store, err := logstore.NewMySQLStore(cfg.StoreDSN)
		if err != nil {
			return nil, nil, err
		}
		db, err := sql.Open("mysql", cfg.StoreDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("opening companion mysql connection: %w", err)
		}
		return store, db, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q (want sqlite or mysql)", cfg.StoreBackend)
	}
}
