package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/quickcart/order-supervisor/internal/api/handler"
	"github.com/quickcart/order-supervisor/internal/api/router"
	"github.com/quickcart/order-supervisor/internal/config"
	"github.com/quickcart/order-supervisor/internal/configstore"
	"github.com/quickcart/order-supervisor/internal/events"
	"github.com/quickcart/order-supervisor/internal/remote"
	"github.com/quickcart/order-supervisor/internal/storage"
	"github.com/quickcart/order-supervisor/internal/supervisor"
	"github.com/quickcart/order-supervisor/shared/logger"
	"github.com/quickcart/order-supervisor/shared/postgresql"
	"github.com/quickcart/order-supervisor/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("SUPERVISOR_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/supervisor-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger := logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	appLogger.Info("Starting supervisor service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Local persistence
	dbClient, err := postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	store := storage.NewStorage(dbClient)
	if err := store.EnsureSchema(context.Background()); err != nil {
		return fmt.Errorf("failed to prepare schema: %w", err)
	}

	// Event publisher
	publisher, err := rabbitmq.NewPublisher(&rabbitmq.Config{
		Host:          cfg.RabbitMQ.Host,
		Port:          cfg.RabbitMQ.Port,
		User:          cfg.RabbitMQ.User,
		Password:      cfg.RabbitMQ.Password,
		VHost:         cfg.RabbitMQ.VHost,
		ExchangeName:  cfg.RabbitMQ.Exchange,
		ExchangeType:  cfg.RabbitMQ.ExchangeType,
		Durable:       cfg.RabbitMQ.Durable,
		RetryAttempts: cfg.RabbitMQ.RetryAttempts,
		RetryInterval: cfg.RabbitMQ.RetryInterval,
		Heartbeat:     cfg.RabbitMQ.Heartbeat,
	}, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer publisher.Close()

	// Remote automation API
	remoteClient := remote.NewClient(&remote.Config{
		BaseURL:        cfg.Remote.BaseURL,
		APIKey:         cfg.Remote.APIKey,
		RequestTimeout: cfg.Remote.RequestTimeout,
	}, appLogger)

	configStore := configstore.NewStore(remoteClient, store, appLogger)

	sup := supervisor.New(&supervisor.Config{
		Logger:       appLogger,
		Remote:       remoteClient,
		Runs:         store,
		Events:       events.NewEmitter(publisher),
		PollInterval: cfg.Supervisor.PollInterval,
		PollTimeout:  cfg.Supervisor.PollTimeout,
		StartTimeout: cfg.Remote.StartTimeout,
		StopTimeout:  cfg.Remote.StopTimeout,
	})
	defer sup.Shutdown()

	// Adopt a run that survived a restart
	if cfg.Supervisor.ResumeOnStart {
		resumeCfg, err := configStore.Load(context.Background())
		if err != nil {
			appLogger.Warn("failed to load config for resume check", slog.String("error", err.Error()))
			resumeCfg = configstore.Defaults()
		}
		if err := sup.Resume(context.Background(), resumeCfg); err != nil {
			appLogger.Warn("resume check failed", slog.String("error", err.Error()))
		}
	}

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	r := router.SetupRouter(&handler.Dependencies{
		Logger:     appLogger,
		Supervisor: sup,
		Config:     configStore,
		Remote:     remoteClient,
		Storage:    store,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("Supervisor service is running",
		slog.String("address", addr),
		slog.Duration("poll_interval", cfg.Supervisor.PollInterval),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}
