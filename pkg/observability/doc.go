// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing, health checks, scheduled jobs and graceful shutdown.
//
// # Structured Logging
//
// Loggers write one JSON object per line through logrus:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("item_id", 12).Info("item disabled")
//
// FromContext returns the request logger with the request id, principal and
// trace ids attached.
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//	router.Handle("/metrics", observability.MetricsHandler(registry))
//
// HTTP metrics are labelled by route template, not raw path.
//
// # Tracing
//
//	tracing, err := observability.StartTracing(ctx, observability.TracingConfig{...}, logger)
//	ctx, span := tracing.Tracer().Start(ctx, "unit_of_work")
//
// A disabled or nil *Tracing hands out the global no-op tracer.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient, version)
//	router.HandleFunc("/healthz", checker.Liveness)
//	router.HandleFunc("/readyz", checker.Readiness)
//
// A database failure makes the service unhealthy. A redis failure only
// degrades it.
//
// # Scheduled Jobs
//
//	sched := observability.NewScheduler(logger, metrics, time.Minute)
//	_ = sched.Add("token-sweep", "@every 1h", sweep)
//	sched.Start()
//
// # Related Packages
//
//   - pkg/config: Observability and job configuration
//   - pkg/httputil: Request logging and recovery middleware
package observability
