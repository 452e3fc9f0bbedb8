// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/akash684/bloodbank-be/internal/adapters/db"
	redis_a "github.com/akash684/bloodbank-be/internal/adapters/redis_adapter"
	"github.com/akash684/bloodbank-be/internal/adapters/storage"
	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/core/services"
	"github.com/akash684/bloodbank-be/internal/handlers"
	"github.com/akash684/bloodbank-be/internal/handlers/middleware"
	"github.com/akash684/bloodbank-be/internal/pkg/config"
	"github.com/akash684/bloodbank-be/internal/pkg/logger"
	"github.com/akash684/bloodbank-be/internal/workers"
)

// Build information injected at compile time
var (
	Version   = "dev"
	BuildTime = "unknown"
	GoVersion = "unknown"
)

func main() {
	slogger := logger.SetupLogger("debug", "json")

	slogger.Info("starting blood bank coordination service",
		slog.String("version", Version),
		slog.String("build_time", BuildTime),
		slog.String("go_version", GoVersion),
	)

	cfg, err := config.Load(slogger.Logger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Reconfigure logger with loaded settings
	slogger = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	slogger.Info("configuration loaded",
		slog.String("environment", cfg.App.Environment),
		slog.String("log_level", cfg.App.LogLevel),
	)

	ctx := context.Background()

	deps, err := initializeDependencies(ctx, cfg, slogger.Logger)
	if err != nil {
		slogger.Error("failed to initialize dependencies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer deps.cleanup()

	// Run database migrations outside production; production deploys
	// run them as a release step.
	if cfg.App.Environment != "production" {
		if err := runMigrations(ctx, cfg, slogger.Logger); err != nil {
			slogger.Warn("failed to run migrations", slog.String("error", err.Error()))
		}
	}

	server := setupHTTPServer(cfg, deps, slogger)

	serverErrors := make(chan error, 1)
	go func() {
		slogger.Info("starting HTTP server",
			slog.String("address", cfg.GetServerAddress()),
			slog.Bool("tls", cfg.Server.TLSEnabled),
		)

		if cfg.Server.TLSEnabled {
			serverErrors <- server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			serverErrors <- server.ListenAndServe()
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("server error", slog.String("error", err.Error()))
		}
	case sig := <-shutdown:
		slogger.Info("shutdown signal received",
			slog.String("signal", sig.String()),
		)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slogger.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
			server.Close()
		}

		slogger.Info("server shutdown complete")
	}
}

// dependencies holds all application dependencies
type dependencies struct {
	database       *db.Database
	redisClient    *redis.Client
	asynqClient    *asynq.Client
	asynqInspector *asynq.Inspector

	searchHandler       *handlers.SearchHandler
	requestHandler      *handlers.RequestHandler
	donationHandler     *handlers.DonationHandler
	notificationHandler *handlers.NotificationHandler
	inventoryHandler    *handlers.InventoryHandler
	dashboardHandler    *handlers.DashboardHandler
	importHandler       *handlers.ImportHandler
	exportHandler       *handlers.ExportHandler
	healthHandler       *handlers.HealthHandler
}

func (d *dependencies) cleanup() {
	if d.database != nil {
		d.database.Close()
	}
	if d.redisClient != nil {
		d.redisClient.Close()
	}
	if d.asynqClient != nil {
		d.asynqClient.Close()
	}
}

func initializeDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dependencies, error) {
	deps := &dependencies{}

	logger.Info("connecting to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Name),
	)

	database, err := db.NewDatabase(ctx, &db.Config{
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		User:               cfg.Database.User,
		Password:           cfg.Database.Password,
		Database:           cfg.Database.Name,
		SSLMode:            cfg.Database.SSLMode,
		MaxConnections:     cfg.Database.MaxConnections,
		MinConnections:     cfg.Database.MinConnections,
		MaxConnLifetime:    cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
		ConnectTimeout:     cfg.Database.ConnectTimeout,
		StatementCacheMode: cfg.Database.StatementCacheMode,
		EnableQueryLogging: cfg.Database.EnableQueryLogging,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps.database = database

	logger.Info("connecting to Redis",
		slog.String("host", cfg.Redis.Host),
		slog.String("port", cfg.Redis.Port),
	)

	redisClient := redis.NewClient(&redis.Options{
		Addr:            fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password:        cfg.Redis.Password,
		DB:              cfg.Redis.DB,
		MaxRetries:      cfg.Redis.MaxRetries,
		MinRetryBackoff: cfg.Redis.MinRetryBackoff,
		MaxRetryBackoff: cfg.Redis.MaxRetryBackoff,
		DialTimeout:     cfg.Redis.DialTimeout,
		ReadTimeout:     cfg.Redis.ReadTimeout,
		WriteTimeout:    cfg.Redis.WriteTimeout,
		PoolSize:        cfg.Redis.PoolSize,
		MinIdleConns:    cfg.Redis.MinIdleConns,
		ConnMaxLifetime: cfg.Redis.MaxConnAge,
		PoolTimeout:     cfg.Redis.PoolTimeout,
		ConnMaxIdleTime: cfg.Redis.IdleTimeout,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	deps.redisClient = redisClient

	cache := redis_a.NewCache(redisClient, cfg.Redis.TTL, logger)
	cacheManager := redis_a.NewCacheManager(cache, logger)

	asynqRedisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Asynq.RedisAddr,
		Password: cfg.Asynq.RedisPassword,
		DB:       cfg.Asynq.RedisDB,
	}
	deps.asynqClient = asynq.NewClient(asynqRedisOpt)
	deps.asynqInspector = asynq.NewInspector(asynqRedisOpt)

	// Repositories
	inventoryRepo := db.NewInventoryRepository(database, logger)
	userRepo := db.NewUserRepository(database, logger)
	requestRepo := db.NewRequestRepository(database, logger)
	donationRepo := db.NewDonationRepository(database, logger)
	notificationRepo := db.NewNotificationRepository(database, logger)

	// Notification dispatch stores the row and hands delivery to the
	// worker fleet.
	dispatcher := workers.NewDispatcher(notificationRepo, deps.asynqClient, logger)

	// Services
	availabilityService := services.NewAvailabilityService(userRepo, inventoryRepo, logger)
	requestService := services.NewRequestService(requestRepo, inventoryRepo, userRepo, dispatcher, logger)
	donationService := services.NewDonationService(donationRepo, inventoryRepo, userRepo, dispatcher, logger)
	notificationService := services.NewNotificationService(notificationRepo, logger)
	inventoryService := services.NewInventoryService(inventoryRepo, logger)

	// Report archive is optional; the export endpoint works without it.
	var archive storage.StorageClient
	if cfg.AWS.S3Bucket != "" {
		s3Client, err := storage.NewS3Storage(ctx, &storage.S3Config{
			Region:          cfg.AWS.Region,
			Bucket:          cfg.AWS.S3Bucket,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			Endpoint:        cfg.AWS.S3Endpoint,
			UsePathStyle:    cfg.AWS.UsePathStyle,
		}, logger)
		if err != nil {
			logger.Warn("report archive unavailable", slog.String("error", err.Error()))
		} else {
			archive = s3Client
		}
	}

	// Handlers
	deps.searchHandler = handlers.NewSearchHandler(availabilityService, logger)
	deps.requestHandler = handlers.NewRequestHandler(requestService, logger)
	deps.donationHandler = handlers.NewDonationHandler(donationService, logger)
	deps.notificationHandler = handlers.NewNotificationHandler(notificationService, logger)
	deps.inventoryHandler = handlers.NewInventoryHandler(inventoryService, cacheManager, logger)
	deps.dashboardHandler = handlers.NewDashboardHandler(database, cache, logger)
	deps.exportHandler = handlers.NewExportHandler(requestRepo, cache, archive, logger)

	maxFileSize := int64(cfg.FileProcessing.ExcelMaxSizeMB) * 1024 * 1024
	deps.importHandler = handlers.NewImportHandler(deps.asynqClient, cache, logger, maxFileSize, cfg.FileProcessing.TempDir)

	deps.healthHandler = handlers.NewHealthHandler(
		database,
		redisClient,
		deps.asynqInspector,
		cfg,
		logger,
	)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

func setupHTTPServer(cfg *config.Config, deps *dependencies, slogger *logger.Logger) *http.Server {
	mux := http.NewServeMux()

	registerRoutes(mux, deps, cfg)

	// Apply middleware in reverse order (innermost first)
	var handler http.Handler = mux

	handler = middleware.Metrics(handler)

	if cfg.App.Environment != "test" {
		handler = middleware.RequestID(handler)
		handler = middleware.Logger(slogger)(handler)
		handler = middleware.Recovery(slogger.Logger)(handler)
	}

	if cfg.Security.RateLimitRequests > 0 {
		handler = middleware.RateLimit(cfg.Security.RateLimitRequests, cfg.Security.RateLimitDuration)(handler)
	}

	if len(cfg.Security.AllowedOrigins) > 0 {
		handler = middleware.CORS(cfg.Security.AllowedOrigins)(handler)
	}

	if cfg.Security.SecureHeaders {
		handler = middleware.SecureHeaders(handler)
	}

	return &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(slogger.Handler(), slog.LevelError),
	}
}

func registerRoutes(mux *http.ServeMux, deps *dependencies, cfg *config.Config) {
	apiV1 := "/api/v1"

	auth := middleware.Authenticate(cfg.Security.JWTSecret)
	staff := middleware.RequireRoles(domain.RoleBloodBank, domain.RoleAdmin)
	adminOnly := middleware.RequireRoles(domain.RoleAdmin)

	authed := func(h http.HandlerFunc) http.Handler { return auth(h) }

	// Health and readiness endpoints
	if cfg.Server.EnableHealthCheck {
		mux.HandleFunc("GET /health", deps.healthHandler.Health)
		mux.HandleFunc("GET /ready", deps.healthHandler.Readiness)
		mux.HandleFunc("GET "+apiV1+"/health", deps.healthHandler.Health)
	}

	// Public availability search
	mux.HandleFunc("GET "+apiV1+"/search", deps.searchHandler.Search)

	// Blood request workflow
	mux.Handle("POST "+apiV1+"/requests", authed(deps.requestHandler.Submit))
	mux.Handle("GET "+apiV1+"/requests", authed(deps.requestHandler.List))
	mux.Handle("GET "+apiV1+"/requests/{id}", authed(deps.requestHandler.Get))
	mux.Handle("POST "+apiV1+"/requests/{id}/approve", auth(staff(http.HandlerFunc(deps.requestHandler.Approve))))
	mux.Handle("POST "+apiV1+"/requests/{id}/deny", auth(staff(http.HandlerFunc(deps.requestHandler.Deny))))
	mux.Handle("POST "+apiV1+"/requests/{id}/fulfill", auth(staff(http.HandlerFunc(deps.requestHandler.Fulfill))))

	// Donation scheduling
	mux.Handle("POST "+apiV1+"/donations", authed(deps.donationHandler.Schedule))
	mux.Handle("GET "+apiV1+"/donations", authed(deps.donationHandler.List))
	mux.Handle("POST "+apiV1+"/donations/{id}/complete", auth(staff(http.HandlerFunc(deps.donationHandler.Complete))))
	mux.Handle("POST "+apiV1+"/donations/{id}/cancel", authed(deps.donationHandler.Cancel))

	// Notification feed
	mux.Handle("GET "+apiV1+"/notifications", authed(deps.notificationHandler.List))
	mux.Handle("POST "+apiV1+"/notifications/{id}/read", authed(deps.notificationHandler.MarkRead))
	mux.Handle("POST "+apiV1+"/notifications/read-all", authed(deps.notificationHandler.MarkAllRead))

	// Bank inventory management
	mux.Handle("GET "+apiV1+"/inventory", auth(staff(http.HandlerFunc(deps.inventoryHandler.List))))
	mux.Handle("POST "+apiV1+"/inventory", auth(staff(http.HandlerFunc(deps.inventoryHandler.Add))))

	// Dashboard
	mux.Handle("GET "+apiV1+"/dashboard", authed(deps.dashboardHandler.GetDashboard))

	// Bulk import
	mux.Handle("POST "+apiV1+"/import/inventory", auth(staff(http.HandlerFunc(deps.importHandler.ImportInventory))))
	mux.Handle("GET "+apiV1+"/import/status/{jobId}", auth(staff(http.HandlerFunc(deps.importHandler.ImportStatus))))

	// Report export
	mux.Handle("GET "+apiV1+"/export/requests", auth(adminOnly(http.HandlerFunc(deps.exportHandler.ExportRequests))))

	// Metrics endpoint
	if cfg.Server.EnableMetrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	// pprof endpoints (development only)
	if cfg.Server.EnablePprof && cfg.IsDevelopment() {
		mux.HandleFunc("GET /debug/pprof/", http.HandlerFunc(http.DefaultServeMux.ServeHTTP))
	}
}

func runMigrations(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("running database migrations")

	migrationConfig := &db.MigrationConfig{
		DatabaseURL: cfg.GetDatabaseURL(),
		SourcePath:  cfg.Database.MigrationPath,
		TableName:   "schema_migrations",
		SchemaName:  "public",
	}

	return db.RunMigrationsWithRetry(ctx, migrationConfig, logger, 3)
}
