package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/labstock/pkg/api"
	"github.com/platinummonkey/labstock/pkg/auth"
	"github.com/platinummonkey/labstock/pkg/config"
	"github.com/platinummonkey/labstock/pkg/dbx"
	"github.com/platinummonkey/labstock/pkg/httputil"
	"github.com/platinummonkey/labstock/pkg/middleware"
	"github.com/platinummonkey/labstock/pkg/observability"
	"github.com/platinummonkey/labstock/pkg/storage"
)

var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout).
		WithField("service", "labstock").
		WithField("version", version)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.WithError(err).Fatalf("labstock stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	tracing, err := observability.StartTracing(ctx, observability.TracingConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    cfg.Observability.OTelSampleRatio,
	}, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	db, dialect, err := storage.Open(ctx, storage.ConnectionConfig{
		Driver:      cfg.Database.Driver,
		URL:         cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
		MaxLifetime: cfg.Database.MaxLifetime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	logger.WithField("driver", cfg.Database.Driver).Info("Database connected")

	if cfg.Database.AutoMigrate {
		if err := storage.RunMigrations(ctx, db, dialect, logger); err != nil {
			return err
		}
		logger.Info("Database migrations applied")
	}

	store := storage.NewStore(dialect)
	if err := bootstrap(ctx, cfg, db, store, logger); err != nil {
		return err
	}

	redisClient := connectRedis(ctx, cfg, logger)
	if redisClient == nil && cfg.Auth.SignInLimit.Enabled && cfg.Auth.SignInLimit.Backend == "redis" {
		return errors.New("redis sign-in limit backend configured but redis is unavailable")
	}

	limiter, err := signInLimiter(ctx, cfg, redisClient)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	server := api.NewServer(api.Options{
		DB:      db,
		Store:   store,
		Config:  cfg,
		Limiter: limiter,
		Metrics: metrics,
		Tracing: tracing,
		Logger:  logger,
	})

	health := observability.NewHealthChecker(db, redisClient, version)
	router := server.Router()
	router.Use(observability.HTTPMetricsMiddleware(metrics))
	router.HandleFunc("/healthz", health.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/readyz", health.Readiness).Methods(http.MethodGet)
	if cfg.Observability.MetricsEnabled {
		router.Handle("/metrics", observability.MetricsHandler(registry)).Methods(http.MethodGet)
	}

	var handler http.Handler = httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware(logger, cfg.Messages.Internal),
		httputil.CORSMiddleware(cfg.Server.CORSOrigins),
		httputil.TimeoutMiddleware(cfg.Server.RequestTimeout),
		httputil.MaxBytesMiddleware(cfg.Server.MaxBodyBytes),
	)(server)
	if tracing.Enabled() {
		handler = otelhttp.NewHandler(handler, "labstock")
	}

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	scheduler := observability.NewScheduler(logger, metrics, 0)
	if err := scheduleJobs(scheduler, cfg, db, store, metrics); err != nil {
		return err
	}
	scheduler.Start()

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc("database", func(context.Context) error { return db.Close() })
	if redisClient != nil {
		shutdown.RegisterShutdownFunc("redis", func(context.Context) error { return redisClient.Close() })
	}
	if tracing.Enabled() {
		shutdown.RegisterShutdownFunc("tracing", tracing.Shutdown)
	}
	shutdown.RegisterShutdownFunc("scheduler", scheduler.Stop)

	serveErr := make(chan error, 1)
	go func() {
		defer observability.RecoverPanic(logger, "http server")
		logger.Infof("Starting labstock on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := <-serveErr; err != nil {
			logger.WithError(err).Error("HTTP server failed")
			cancel()
		}
	}()

	return shutdown.WaitForSignal(ctx)
}

// bootstrap creates the administrator group and principal on an empty
// database.
func bootstrap(ctx context.Context, cfg *config.Config, db *sql.DB, store *storage.Store, logger *observability.Logger) error {
	b := cfg.Auth.Bootstrap
	if !b.Enabled {
		return nil
	}
	hash, err := auth.NewHasher(cfg.Auth.BcryptCost).Hash(b.Credential)
	if err != nil {
		return fmt.Errorf("bootstrap credential: %w", err)
	}

	var created bool
	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err = store.BootstrapAdmin(ctx, tx, b.Group, string(auth.Wildcard), b.User, hash)
		return err
	})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if created {
		logger.WithFields(map[string]interface{}{"group": b.Group, "user": b.User}).Warn("Bootstrapped administrator")
	}
	return nil
}

// connectRedis returns nil when Redis is not configured or unreachable.
func connectRedis(ctx context.Context, cfg *config.Config, logger *observability.Logger) *redis.Client {
	if cfg.Redis.URL == "" {
		return nil
	}
	client, err := storage.NewRedisClient(ctx, storage.RedisConfig{
		URL:        cfg.Redis.URL,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		MaxRetries: cfg.Redis.MaxRetries,
		PoolSize:   cfg.Redis.PoolSize,
	})
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, continuing without it")
		return nil
	}
	logger.Info("Redis connected")
	return client
}

func signInLimiter(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (middleware.Limiter, error) {
	l := cfg.Auth.SignInLimit
	if !l.Enabled {
		return nil, nil
	}
	limiter, err := middleware.LimiterFor(l.Backend, &middleware.RateLimitConfig{
		RequestsPerWindow: l.RequestsPerWindow,
		WindowDuration:    l.Window,
		BurstSize:         l.Burst,
	}, func(c *middleware.RateLimitConfig) middleware.Limiter {
		return middleware.NewDistributedRateLimiter(redisClient, c, "")
	})
	if err != nil {
		return nil, err
	}
	if mem, ok := limiter.(*middleware.RateLimiter); ok {
		mem.StartCleanup(ctx)
	}
	return limiter, nil
}
