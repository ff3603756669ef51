// Package observability provides structured logging, Prometheus metrics,
// health checks and OpenTelemetry setup for masthead.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, nil)
//	logger.WithField("component", "audit_retention").Info("Audit retention pass complete")
//
// FromContext adds the request ID, actor, signal and trace IDs carried by a
// context:
//
//	observability.FromContext(ctx).WithError(err).Error("Audit log query failed")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	handler = observability.HTTPMetricsMiddleware(metrics)(router)
//
// Audit and observer counters live in their own packages and register on the
// same registry.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient, version)
//	observability.RegisterHealthRoutes(healthMux, checker)
//
// # OpenTelemetry
//
//	telemetry, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "masthead",
//	}, logger)
//	defer telemetry.Shutdown(ctx)
//
// # Panics
//
//	defer observability.RecoverPanic(logger, "audit retention")
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/httputil: Request logging middleware
package observability
