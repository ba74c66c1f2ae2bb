package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-clinic-queue/config"
	deliveryHttp "go-clinic-queue/internal/delivery/http"
	"go-clinic-queue/internal/delivery/http/handler"
	"go-clinic-queue/internal/delivery/http/middleware"
	domainRepo "go-clinic-queue/internal/domain/repository"
	"go-clinic-queue/internal/infrastructure/cache"
	"go-clinic-queue/internal/infrastructure/database"
	"go-clinic-queue/internal/infrastructure/listener"
	"go-clinic-queue/internal/infrastructure/telemetry"
	"go-clinic-queue/internal/notifier"
	"go-clinic-queue/internal/projection"
	"go-clinic-queue/internal/repository"
	"go-clinic-queue/internal/repository/memory"
	"go-clinic-queue/internal/service"
	"go-clinic-queue/internal/usecase"
	"go-clinic-queue/pkg/jwt"
	"go-clinic-queue/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/gorm"
)

const (
	driverPostgres = "postgres"
	driverMemory   = "memory"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	Server      *http.Server

	log      *logrus.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	workers  []func(context.Context) error
	shutdown func(context.Context) error
}

// storage groups the repositories behind one storage driver
type storage struct {
	txm      domainRepo.Transactor
	services domainRepo.ServiceRepository
	queue    domainRepo.QueueEntryRepository
	products domainRepo.ProductRepository
	clients  domainRepo.ClientRepository
	audit    domainRepo.AuditLogRepository
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Setup logger
	log := setupLogger()
	app.log = log

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg
	if cfg.App.IsDevelopment() {
		log.SetLevel(logrus.DebugLevel)
	}
	log.Info("Configuration loaded successfully")

	loc, err := cfg.App.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", cfg.App.Timezone, err)
	}

	app.shutdown = telemetry.Setup(cfg.Telemetry, log)
	app.ctx, app.cancel = context.WithCancel(context.Background())

	// Initialize storage
	store, err := app.initializeStorage(cfg)
	if err != nil {
		return nil, err
	}

	// Initialize Redis (optional: token revocation and cross-instance relay)
	if cfg.Redis.Host != "" {
		redisClient, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Warnf("Redis unavailable, running without revocation checks or relay: %+v", err)
		} else {
			app.RedisClient = redisClient
			log.Infof("Redis connected at %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	// Initialize all layers
	app.Server = app.initializeServer(cfg, loc, store)

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger() *logrus.Logger {
	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)
	return log
}

func (app *App) initializeStorage(cfg *config.Config) (*storage, error) {
	switch cfg.App.StorageDriver {
	case driverMemory:
		app.log.Warn("Using in-memory storage; data is lost on restart")
		mem := memory.NewStore()
		if cfg.App.IsDevelopment() {
			seedDevelopmentData(mem, app.log)
		}
		return &storage{
			txm:      mem,
			services: mem.Services(),
			queue:    mem.QueueEntries(),
			products: mem.Products(),
			clients:  mem.Clients(),
			audit:    mem.AuditLogs(),
		}, nil

	case driverPostgres, "":
		db, err := database.NewPostgresConnection(cfg.DB, cfg.App.IsDevelopment())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		app.DB = db
		app.log.Info("Database connected successfully")

		if err := database.Migrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		app.log.Info("Database migrations applied")

		return &storage{
			txm:      repository.NewTransactor(db),
			services: repository.NewServiceRepository(db),
			queue:    repository.NewQueueEntryRepository(db),
			products: repository.NewProductRepository(db),
			clients:  repository.NewClientRepository(db),
			audit:    repository.NewAuditLogRepository(db),
		}, nil

	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.App.StorageDriver)
	}
}

// initializeServer creates and configures the HTTP server
func (app *App) initializeServer(cfg *config.Config, loc *time.Location, store *storage) *http.Server {
	log := app.log

	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validator
	customValidator := validator.NewValidator()

	// Change notifier, optionally mirrored across instances
	changes := notifier.New(log, cfg.Notifier.BufferSize)
	app.workers = append(app.workers, changes.Run)

	var publisher notifier.Publisher = changes
	if app.RedisClient != nil && cfg.Redis.RelayEnabled {
		relay := service.NewRedisRelay(app.RedisClient, log, changes, cfg.Redis.RelayChannel)
		publisher = relay
		app.workers = append(app.workers, relay.Run)
	}
	if app.DB != nil && cfg.Notifier.PGListen {
		pgListener := listener.NewPGListener(cfg.DB.DSN(), log, changes)
		app.workers = append(app.workers, pgListener.Run)
	}

	// Initialize services
	clock := service.NewClock(loc)
	auditService := service.NewAuditService(log, store.audit)
	sequencer := service.NewTicketSequencer(log, store.queue)

	// Initialize usecases
	serviceUsecase := usecase.NewServiceUsecase(log, store.txm, clock, store.services, store.queue, store.products, store.clients, auditService, publisher)
	queueUsecase := usecase.NewQueueUsecase(log, store.txm, clock, sequencer, store.queue, store.services, auditService, publisher, cfg.Queue.CollisionRetries)
	auditLogUsecase := usecase.NewAuditLogUsecase(log, store.audit, auditService)

	// Initialize projections
	reception := projection.NewReception(log, changes, clock, store.queue)
	public := projection.NewPublic(log, changes, clock, store.queue)
	medication := projection.NewMedication(log, changes, clock, store.services)
	app.workers = append(app.workers, reception.Run, public.Run, medication.Run)
	newDoctor := func(date *time.Time) *projection.Doctor {
		return projection.NewDoctor(log, changes, clock, store.services, date)
	}

	// Initialize handlers
	serviceHandler := handler.NewServiceHandler(serviceUsecase, customValidator)
	queueHandler := handler.NewQueueHandler(queueUsecase, customValidator)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase)
	feedHandler := handler.NewFeedHandler(app.ctx, log, reception, medication, public, newDoctor)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, app.RedisClient)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.App.CORSOrigins)
	loggingMiddleware := middleware.NewLoggingMiddleware(log)

	// Initialize router
	router := deliveryHttp.NewRouter(serviceHandler, queueHandler, auditLogHandler, feedHandler, authMiddleware, corsMiddleware, loggingMiddleware)
	httpRouter := router.Setup()

	// Create server
	serverAddr := fmt.Sprintf(":%s", cfg.App.Port)
	return &http.Server{
		Addr:              serverAddr,
		Handler:           otelhttp.NewHandler(httpRouter, cfg.Telemetry.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Run starts the background workers and the HTTP server, then handles graceful shutdown
func (app *App) Run() {
	var wg conc.WaitGroup
	for _, worker := range app.workers {
		wg.Go(func() {
			if err := worker(app.ctx); err != nil {
				app.log.Errorf("Background worker stopped: %+v", err)
			}
		})
	}

	// Start server in goroutine
	go func() {
		app.log.Infof("Server starting on port %s", app.Config.App.Port)
		app.log.Infof("Environment: %s, storage: %s", app.Config.App.Env, app.Config.App.StorageDriver)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown(&wg)
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown(wg *conc.WaitGroup) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.log.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop workers first so feed connections close before the server waits on them
	app.cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		app.log.Errorf("Server forced to shutdown: %v", err)
	}

	wg.Wait()

	if err := app.shutdown(ctx); err != nil {
		app.log.Warnf("Failed to flush traces: %+v", err)
	}

	// Close connections
	app.Close()

	app.log.Info("Server shutdown complete")
}

// Close closes all connections (database, redis, etc.)
func (app *App) Close() {
	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
