package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"github.com/burenotti/bp_readings/internal/adapter/api"
	"github.com/burenotti/bp_readings/internal/adapter/storage"
	readingstorage "github.com/burenotti/bp_readings/internal/adapter/storage/readings"
	"github.com/burenotti/bp_readings/internal/app/messagebus"
	readingservice "github.com/burenotti/bp_readings/internal/app/reading"
	"github.com/burenotti/bp_readings/internal/config"
	"github.com/burenotti/bp_readings/internal/domain"
	"github.com/burenotti/bp_readings/internal/domain/reading"
	_ "github.com/jackc/pgx/v5/stdlib"
	"log/slog"
	_ "modernc.org/sqlite"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)
	logger := initLogger(cfg)

	bus := messagebus.New(logger)
	defer bus.Close()
	bus.Register(reading.EventCreated, func(event domain.Event) error {
		if e, ok := event.(*reading.CreatedEvent); ok {
			logger.Info("saving reading", "reading_id", e.ReadingID)
		}
		return nil
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	uow, closeDB := initReadingsUoW(ctx, cfg, bus, logger)
	defer closeDB()

	server := api.NewServer(
		api.Addr(cfg.Server.Host, cfg.Server.Port),
		api.Logger(logger),
		api.WithTimeouts(api.Timeouts{
			Read:       cfg.Server.ReadTimeout,
			ReadHeader: cfg.Server.ReadHeaderTimeout,
			Write:      cfg.Server.WriteTimeout,
			Idle:       cfg.Server.IdleTimeout,
		}),
		api.AllowOrigins(cfg.Server.AllowOrigins...),
		api.ReadingService(readingservice.New(logger)),
		api.ReadingsUnitOfWork(uow),
	)

	errCh := make(chan error)

	go func() {
		defer close(errCh)
		logger.Info("starting web host", "host", cfg.Server.Host, "port", cfg.Server.Port, "driver", cfg.DB.Driver)
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server was not shutdown gracefully", "error", err)
		}
	case err := <-errCh:
		if err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server closed with unexpected error", "error", err)
			}
		}
	}
	logger.Info("server shutdown")
}

func initReadingsUoW(
	ctx context.Context,
	cfg *config.Config,
	bus *messagebus.MessageBus,
	logger *slog.Logger,
) (readingservice.UnitOfWork, func()) {
	driverName := string(cfg.DB.Driver)
	if cfg.DB.Driver == config.DriverMemory {
		logger.Warn("using in-memory storage, readings will not survive a restart")
		return readingservice.NewMemoryUnitOfWork(readingstorage.NewMemoryStore(), bus, logger), func() {}
	}

	dialect, err := storage.Dialect(driverName)
	if err != nil {
		panic(err)
	}

	db, err := sql.Open(driverName, cfg.DB.DSN)
	if err != nil {
		panic("failed to connect database: " + err.Error())
	}

	schemaCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := storage.EnsureSchema(schemaCtx, db, driverName); err != nil {
		panic("failed to create schema: " + err.Error())
	}

	wrapped := &storage.DB{
		DB: db,
		Retry: storage.RetryPolicy{
			MaxTries:       cfg.DB.MaxRetries,
			MaxElapsedTime: cfg.DB.RetryMaxElapsed,
		},
		Logger: logger,
	}

	return readingservice.NewSQLUnitOfWork(wrapped, dialect, bus, logger), func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}
}

func initLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler
	switch cfg.App.Env {
	case config.Development:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			AddSource: true,
			Level:     slog.LevelDebug,
		})
	case config.Production:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			AddSource: false,
			Level:     slog.LevelInfo,
		})
	default:
		panic("invalid env")
	}

	return slog.New(handler)
}
