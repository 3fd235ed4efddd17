package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/utafrali/SocialGo/internal/auth"
	"github.com/utafrali/SocialGo/internal/config"
	"github.com/utafrali/SocialGo/internal/event"
	handler "github.com/utafrali/SocialGo/internal/handler/http"
	"github.com/utafrali/SocialGo/internal/media"
	"github.com/utafrali/SocialGo/internal/migrations"
	"github.com/utafrali/SocialGo/internal/repository"
	"github.com/utafrali/SocialGo/internal/repository/postgres"
	redisrepo "github.com/utafrali/SocialGo/internal/repository/redis"
	"github.com/utafrali/SocialGo/internal/service"
	"github.com/utafrali/SocialGo/pkg/database"
	"github.com/utafrali/SocialGo/pkg/health"
	"github.com/utafrali/SocialGo/pkg/httpclient"
	pkgkafka "github.com/utafrali/SocialGo/pkg/kafka"
	"github.com/utafrali/SocialGo/pkg/middleware"
	"github.com/utafrali/SocialGo/pkg/tracing"
)

const serviceVersion = "0.1.0"

// App wires together all dependencies and runs the social service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    handler.ServiceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTelEndpoint,
		SampleRate:     cfg.OTelSampleRate,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	// Initialize PostgreSQL connection pool.
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, handler.ServiceName); err != nil {
		logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		a.close()
		return nil, err
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.DBSlowQueryMS > 0 {
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)
	}

	// Session slot store.
	sessions, err := a.sessionStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	// Kafka producer. Leaving the publisher nil turns events into no-ops.
	var publisher pkgkafka.Publisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Media host.
	uploader, mediaFiles, err := newUploader(ctx, cfg, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	stager, err := media.NewStager(cfg.MediaTempDir, cfg.MediaMaxUploadBytes)
	if err != nil {
		a.close()
		return nil, err
	}
	logger.Info("media backend initialized",
		slog.String("backend", cfg.MediaBackend),
		slog.String("temp_dir", cfg.MediaTempDir),
	)

	// Build the dependency graph.
	tokens := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.JWTAccessExpiry,
		RefreshTTL:    cfg.JWTRefreshExpiry,
	})
	passwords := auth.NewBcryptHasher(auth.DefaultBcryptCost)
	userRepo := postgres.NewUserRepository(pool)
	tweetRepo := postgres.NewTweetRepository(pool)
	eventProducer := event.NewProducer(publisher, logger)
	mediaService := media.NewService(stager, uploader, logger)

	sessionManager := service.NewSessionManager(userRepo, sessions, tokens, passwords, logger)
	userService := service.NewUserService(userRepo, sessionManager, passwords, mediaService, eventProducer, logger)
	tweetService := service.NewTweetService(tweetRepo, eventProducer, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if a.redis != nil {
		healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return a.producer.Ping(ctx)
		})
	}

	// HTTP router.
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	router := handler.NewRouter(userService, sessionManager, tweetService, healthHandler, logger, handler.RouterConfig{
		CORS:           cors,
		CookieSecure:   cfg.CookieSecure,
		MaxUploadBytes: cfg.MediaMaxUploadBytes,
		MediaFiles:     mediaFiles,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// sessionStore builds the store selected by SESSION_BACKEND.
func (a *App) sessionStore(ctx context.Context) (repository.SessionStore, error) {
	if a.cfg.SessionBackend != config.SessionBackendRedis {
		return postgres.NewSessionStore(a.pool), nil
	}

	client, err := database.NewRedisClient(ctx, a.cfg.Redis(), a.logger)
	if err != nil {
		return nil, err
	}
	a.redis = client
	a.logger.Info("connected to Redis", slog.String("addr", a.cfg.Redis().Addr()))
	return redisrepo.NewSessionStore(client), nil
}

// newUploader builds the media host client selected by MEDIA_BACKEND. The
// second result is non-nil only for the in-memory backend, whose files the
// service serves itself.
func newUploader(ctx context.Context, cfg *config.Config, logger *slog.Logger) (media.Uploader, handler.MediaFileSource, error) {
	switch cfg.MediaBackend {
	case config.MediaBackendCloudinary:
		client := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("cloudinary"),
			logger,
		)
		return media.NewCloudinaryUploader(media.CloudinaryConfig{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			BaseURL:   cfg.CloudinaryBaseURL,
		}, client), nil, nil

	case config.MediaBackendS3:
		s3Cfg := media.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			BaseEndpoint:  cfg.S3BaseEndpoint,
			PublicBaseURL: cfg.S3PublicBaseURL,
		}
		client, err := media.NewS3Client(ctx, s3Cfg)
		if err != nil {
			return nil, nil, err
		}
		return media.NewS3Uploader(client, s3Cfg), nil, nil

	default:
		uploader := media.NewMemoryUploader(cfg.MediaPublicBaseURL)
		return uploader, uploader, nil
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.close()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis client
// 5. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.close(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// close releases everything but the HTTP server, in shutdown order. It is
// also used to unwind a partially built App.
func (a *App) close() error {
	var errs []error

	// Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	return errors.Join(errs...)
}
