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
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/akira-syou/computeproof/internal/api/handler"
	"github.com/akira-syou/computeproof/internal/api/router"
	"github.com/akira-syou/computeproof/internal/config"
	"github.com/akira-syou/computeproof/internal/event"
	"github.com/akira-syou/computeproof/internal/history"
	"github.com/akira-syou/computeproof/internal/ledger"
	"github.com/akira-syou/computeproof/internal/lifecycle"
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
	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.Bool("ledger_offline", cfg.Ledger.Offline),
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
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	// Wire lifecycle and history services
	builder := event.NewBuilder()
	orchestrator := lifecycle.New(ledgerClient, builder, cfg.Ledger.AssetFileBaseURL, appLogger.Logger)
	reconstructor := history.New(ledgerClient, cfg.Ledger.GPUHourRate, appLogger.Logger)

	// Initialize router
	r := initRouter(cfg, appLogger.Logger, orchestrator, reconstructor, rabbitClient)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("API service is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)

	cleanup := func() {
		cancel()
		if rabbitClient != nil {
			rabbitClient.Close()
		}
	}
	defer cleanup()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
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

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:              cfg.Host,
		Port:              cfg.Port,
		User:              cfg.User,
		Password:          cfg.Password,
		VHost:             cfg.VHost,
		Exchange:          cfg.Exchange,
		Queue:             cfg.Queue,
		RoutingKey:        cfg.RoutingKey,
		RetryAttempts:     cfg.RetryAttempts,
		RetryInterval:     cfg.RetryInterval,
		Heartbeat:         cfg.Heartbeat,
		PublishRetries:    cfg.PublishRetries,
		PublishRetryDelay: cfg.PublishRetryDelay,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(cfg *config.Config, logger *slog.Logger, orchestrator *lifecycle.Orchestrator, reconstructor *history.Reconstructor, rabbitClient *rabbitmq.Client) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	handlerDeps := &handler.Dependencies{
		Logger:       logger,
		Orchestrator: orchestrator,
		History:      reconstructor,
		Publisher:    rabbitClient,
		ServiceName:  cfg.App.Name,
		Version:      cfg.App.Version,
	}

	return router.SetupRouter(handlerDeps)
}
