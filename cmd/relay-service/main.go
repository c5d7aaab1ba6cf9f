package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/akira-syou/computeproof/internal/config"
	"github.com/akira-syou/computeproof/internal/event"
	"github.com/akira-syou/computeproof/internal/ledger"
	"github.com/akira-syou/computeproof/internal/lifecycle"
	"github.com/akira-syou/computeproof/internal/relay"
	"github.com/akira-syou/computeproof/shared/logger"
	"github.com/akira-syou/computeproof/shared/rabbitmq"
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

	// Parse command-line flags
	defaultConfigPath := os.Getenv("RELAY_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/relay-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateRelayConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting relay service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.Int("concurrency", cfg.Relay.Concurrency),
	)

	// Initialize anchoring ledger client
	ledgerClient := ledger.NewClient(&ledger.Config{
		APIBase:      cfg.Ledger.APIBase,
		CommitAPI:    cfg.Ledger.CommitAPI,
		Token:        cfg.Ledger.Token,
		ExplorerBase: cfg.Ledger.ExplorerBase,
		Offline:      cfg.Ledger.Offline,
		Timeout:      cfg.Ledger.RequestTimeout,
	}, appLogger.Logger)

	if ledgerClient.Offline() {
		appLogger.Warn("Ledger client running in offline mode, commits are in-memory only")
	}

	// Initialize RabbitMQ client
	rabbitClient, err := rabbitmq.NewClient(&rabbitmq.Config{
		Host:              cfg.RabbitMQ.Host,
		Port:              cfg.RabbitMQ.Port,
		User:              cfg.RabbitMQ.User,
		Password:          cfg.RabbitMQ.Password,
		VHost:             cfg.RabbitMQ.VHost,
		Exchange:          cfg.RabbitMQ.Exchange,
		Queue:             cfg.RabbitMQ.Queue,
		RoutingKey:        cfg.RabbitMQ.RoutingKey,
		RetryAttempts:     cfg.RabbitMQ.RetryAttempts,
		RetryInterval:     cfg.RabbitMQ.RetryInterval,
		Heartbeat:         cfg.RabbitMQ.Heartbeat,
		PublishRetries:    cfg.RabbitMQ.PublishRetries,
		PublishRetryDelay: cfg.RabbitMQ.PublishRetryDelay,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	appLogger.Info("RabbitMQ connection established")

	// Wire the relay against the orchestrator
	builder := event.NewBuilder()
	orchestrator := lifecycle.New(ledgerClient, builder, cfg.Ledger.AssetFileBaseURL, appLogger.Logger)

	rl := relay.NewRelay(&relay.Config{
		Logger:        appLogger.Logger,
		RabbitClient:  rabbitClient,
		Applier:       orchestrator,
		Concurrency:   cfg.Relay.Concurrency,
		PrefetchCount: cfg.RabbitMQ.PrefetchCount,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- rl.Start(ctx)
	}()

	appLogger.Info("Relay service is running")

	// Wait for interrupt signal or relay failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received shutdown signal",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		if err != nil {
			appLogger.Error("Relay stopped with error",
				slog.Any("error", err),
			)
			return err
		}
	}

	// Graceful shutdown with timeout
	cancel()

	done := make(chan struct{})
	go func() {
		rl.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Relay shutdown complete")
	case <-time.After(cfg.Relay.ShutdownTimeout):
		appLogger.Warn("Relay shutdown timed out")
	}

	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}
