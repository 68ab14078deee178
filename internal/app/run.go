package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"seattle-events/internal/auth"
	"seattle-events/internal/config"
	"seattle-events/internal/db"
	"seattle-events/internal/httpapi"
	"seattle-events/internal/ingest"
	"seattle-events/internal/metrics"
	"seattle-events/internal/migrate"
	"seattle-events/internal/modules/events"
	"seattle-events/internal/modules/events/service"
	"seattle-events/internal/modules/events/views"
	"seattle-events/internal/mqtt"
	"seattle-events/internal/pubsub"
)

const (
	mqttConnectTimeout = 5 * time.Second
	shutdownTimeout    = 10 * time.Second
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"staticDir", cfg.StaticDir,
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.SQLitePath,
		"dbHost", cfg.DBHost,
		"dbName", cfg.DBName,
		"dbMaxOpenConns", cfg.MaxOpenConns,
		"dbMaxIdleConns", cfg.MaxIdleConns,
		"dbConnMaxLifetime", cfg.ConnMaxLifetime,
		"dbMigrate", cfg.Migrate,
		"ingestSource", cfg.IngestSource,
		"authEnabled", cfg.AuthFile != "",
		"dashboardConfig", cfg.DashboardConfig,
	)

	if cfg.Migrate && !db.InMemory(cfg) {
		if err := migrate.Up(cfg); err != nil {
			return err
		}
	}

	dbConn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := db.Close(dbConn)
		if closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()
	slog.Info("database connection successful", "driver", cfg.Driver)

	if cfg.Migrate && db.InMemory(cfg) {
		if err := migrate.UpSQLite(dbConn); err != nil {
			return err
		}
	}

	creds, err := auth.LoadFile(cfg.AuthFile)
	if err != nil {
		return err
	}

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	m := metrics.New()
	mux := httpapi.NewMux(dbConn, cfg.StaticDir, m)
	eventsService, err := events.RegisterFeature(mux, dbConn, cfg, m)
	if err != nil {
		return err
	}

	stop, err := startIngest(ctx, cfg, eventsService, m)
	if err != nil {
		return err
	}
	stopSource := sync.OnceFunc(stop)
	defer stopSource()

	srv := httpapi.NewServer(cfg, mux, creds, m)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	stopSource()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// startIngest attaches the configured message source to svc and returns the
// function that detaches it.
func startIngest(ctx context.Context, cfg config.Config, svc *service.Service, m *metrics.Metrics) (func(), error) {
	switch cfg.IngestSource {
	case config.IngestMQTT:
		handler := ingest.NewHandler(config.IngestMQTT, svc.Ingest, m, slog.Default())
		sub := mqtt.NewSubscriber(cfg, slog.Default())
		// Set the handler before Connect: the broker may deliver queued
		// messages right after CONNACK.
		sub.SetMessageHandler(handler.Handle)

		connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
		err := sub.Connect(connectCtx)
		cancel()
		if err != nil {
			// Keep serving the dashboard while the broker is down.
			slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
		return func() {
			slog.Info("mqtt disconnecting")
			sub.Disconnect()
		}, nil

	case config.IngestPubSub:
		handler := ingest.NewHandler(config.IngestPubSub, svc.Ingest, m, slog.Default())
		sub, err := pubsub.NewSubscriber(ctx, cfg.PubSubProjectID, cfg.PubSubSubscription, slog.Default())
		if err != nil {
			return nil, fmt.Errorf("pubsub: %w", err)
		}
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := sub.Run(runCtx, handler.Handle); err != nil {
				slog.Error("pubsub receive stopped", "error", err)
			}
		}()
		return func() {
			slog.Info("pubsub closing")
			cancel()
			<-done
			if err := sub.Close(); err != nil {
				slog.Warn("pubsub close", "error", err)
			}
		}, nil

	default:
		return func() {}, nil
	}
}
