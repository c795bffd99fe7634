package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/declaro-arts/declaro-engine/pkg/config"
	"github.com/declaro-arts/declaro-engine/pkg/database"
	"github.com/declaro-arts/declaro-engine/pkg/handlers"
	"github.com/declaro-arts/declaro-engine/pkg/logging"
	"github.com/declaro-arts/declaro-engine/pkg/middleware"
	"github.com/declaro-arts/declaro-engine/pkg/repositories"
	"github.com/declaro-arts/declaro-engine/pkg/screening"
	"github.com/declaro-arts/declaro-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck // flush on exit is best-effort

	connStr := cfg.Database.ConnectionString()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("database", logging.SanitizeConnectionString(connStr)),
		zap.String("redis", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	// Run migrations using database/sql (required by golang-migrate)
	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.String("error", logging.SanitizeError(err)))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.String("error", logging.SanitizeError(err)))
	}
	_ = sqlDB.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.String("error", logging.SanitizeError(err)))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Repositories
	workRepo := repositories.NewWorkRepository(db)
	declRepo := repositories.NewDeclarationRepository(db)
	processRepo := repositories.NewProcessRepository(db)
	contributorRepo := repositories.NewContributorRepository(db)

	// Services
	screener := screening.NewScreener(logger)
	ledgerService := services.NewLedgerService(workRepo, declRepo, screener, logger)
	rewardService := services.NewRewardService(processRepo, contributorRepo, screener, logger)
	statsService := services.NewStatsService(contributorRepo, redisClient, logger)

	mux := http.NewServeMux()

	// Register handlers
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewWorksHandler(ledgerService, cfg.Uploads.MaxMemoryBytes, logger).RegisterRoutes(mux)
	handlers.NewIngestHandler(rewardService, statsService, logger).RegisterRoutes(mux)
	handlers.NewContributorsHandler(rewardService, logger).RegisterRoutes(mux)

	// Serve static UI files from ui/dist
	fs := http.FileServer(http.Dir("./ui/dist"))
	mux.Handle("/", fs)

	handler := middleware.RequestLogger(logger)(mux)

	addr := fmt.Sprintf("%s:%s", cfg.BindAddr, cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting declaro-engine",
			zap.String("addr", addr),
			zap.String("version", cfg.Version))
		if cfg.TLSCertPath != "" && cfg.TLSKeyPath != "" {
			errCh <- server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			errCh <- server.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", zap.Error(err))
		}
	}
}
