package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/SAP-F-2025/attempt-engine/internal/cache"
	"github.com/SAP-F-2025/attempt-engine/internal/config"
	"github.com/SAP-F-2025/attempt-engine/internal/events"
	"github.com/SAP-F-2025/attempt-engine/internal/handlers"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories/casdoor"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories/memory"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories/postgres"
	"github.com/SAP-F-2025/attempt-engine/internal/services"
	"github.com/SAP-F-2025/attempt-engine/internal/utils"
	"github.com/SAP-F-2025/attempt-engine/internal/validator"
	"github.com/SAP-F-2025/attempt-engine/pkg"
)

const shutdownTimeout = 30 * time.Second

var errHeaderAuthInProduction = errors.New("casdoor must be configured in production: header identity is development only")

// checkAuth refuses to run production on trusted identity headers.
func checkAuth(cfg *config.Config) error {
	if cfg.IsProduction() && !cfg.Casdoor.Enabled() {
		return errHeaderAuthInProduction
	}
	return nil
}

// NewServeCmd builds the CLI subcommand that starts the HTTP server.
func NewServeCmd(port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *port)
		},
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
}

func runServer(ctx context.Context, portFlag string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if portFlag != "" {
		cfg.Port = portFlag
	}
	if err := checkAuth(cfg); err != nil {
		return err
	}

	slogLogger := newLogger(cfg)
	slog.SetDefault(slogLogger)
	logger := utils.NewSlogLogger(slogLogger)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, caching disabled", "error", err)
			redisClient = nil
		}
	}

	var users repositories.UserRepository
	if cfg.Casdoor.Enabled() {
		users = casdoor.NewUserCasdoor(casdoor.CasdoorConfig{
			Endpoint:         cfg.Casdoor.Endpoint,
			ClientID:         cfg.Casdoor.ClientID,
			ClientSecret:     cfg.Casdoor.ClientSecret,
			Certificate:      cfg.Casdoor.Cert,
			OrganizationName: cfg.Casdoor.Organization,
			ApplicationName:  cfg.Casdoor.Application,
		}, redisClient)
	} else {
		logger.Warn("Casdoor is not configured, trusting identity headers", "header", handlers.HeaderUserID)
		users = memory.NewUserDirectory()
	}

	repo, closeRepo, err := openRepository(cfg, redisClient, users, slogLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRepo(); err != nil {
			logger.Error("Failed to close repository", "error", err)
		}
	}()

	publisher, err := openPublisher(cfg, slogLogger)
	if err != nil {
		return err
	}

	v := validator.New()
	serviceManager := services.NewServiceManager(repo, cache.NewCacheManager(redisClient), publisher, slogLogger, v,
		services.ServiceManagerConfig{
			Policy: services.AttemptPolicy{
				HardCutoff: cfg.Attempt.HardCutoff,
				Grace:      cfg.Attempt.Grace,
			},
			SamplerSeed: cfg.Attempt.SamplerSeed,
		})
	if err := serviceManager.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlers.NewHandlerManager(serviceManager, v, logger, cfg.Casdoor, users).SetupRoutes(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if err := serviceManager.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	logger.Info("Server exited")
	return nil
}

// openRepository picks Postgres when DATABASE_URL is set and the in-memory store otherwise.
// The returned func releases the database and Redis connections.
func openRepository(cfg *config.Config, redisClient *redis.Client, users repositories.UserRepository, logger *slog.Logger) (repositories.Repository, func() error, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL is not set, using the in-memory store")
		closeFn := func() error {
			if redisClient != nil {
				return redisClient.Close()
			}
			return nil
		}
		return memory.NewStore(users), closeFn, nil
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := postgres.AutoMigrate(db); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate: %w", err)
	}

	manager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
		UserRepo:    users,
	})
	if err := manager.Initialize(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	closeFn := func() error {
		return manager.Shutdown(context.Background())
	}
	return manager.GetRepository(), closeFn, nil
}

func openPublisher(cfg *config.Config, logger *slog.Logger) (events.EventPublisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("KAFKA_BROKERS is not set, publishing events in process")
		publisher, _ := events.NewGoChannelEventPublisher(cfg.KafkaTopic, logger)
		return publisher, nil
	}

	publisher, err := events.NewKafkaEventPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Publishing events to Kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	return publisher, nil
}
