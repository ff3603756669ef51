package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/masthead/pkg/audit"
	"github.com/platinummonkey/masthead/pkg/config"
	"github.com/platinummonkey/masthead/pkg/hooks"
	"github.com/platinummonkey/masthead/pkg/httputil"
	"github.com/platinummonkey/masthead/pkg/middleware"
	"github.com/platinummonkey/masthead/pkg/observability"
	"github.com/platinummonkey/masthead/pkg/observers"
	"github.com/platinummonkey/masthead/pkg/site"
)

const maxRequestBytes = 2 << 20

// version is stamped at build time with -ldflags "-X main.version=..."
var version = "dev"

// siteDeps are the site collaborators of the observers and the read path
type siteDeps struct {
	users     site.Users
	terms     site.Terms
	options   site.Options
	directory site.Directory
}

// app holds every wired component of the service
type app struct {
	cfg    *config.Config
	logger *observability.Logger

	db       *sql.DB
	redis    *redis.Client
	registry *prometheus.Registry
	metrics  *observability.Metrics

	store     *audit.DBStore
	retention *audit.RetentionManager

	router *mux.Router
	health *http.ServeMux
}

// newApp connects to the database and redis and wires the audit log.
// Call close to release what it opened.
func newApp(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	if err := a.wire(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	var registerer prometheus.Registerer
	if cfg.Observability.MetricsEnabled {
		registerer = a.registry
	}
	a.metrics = observability.NewMetrics(registerer)

	if err := a.openDatabase(ctx); err != nil {
		return err
	}
	if err := a.openRedis(ctx); err != nil {
		return err
	}

	deps, err := a.loadSite(ctx)
	if err != nil {
		return err
	}

	auditMetrics := audit.NewMetrics(registerer)
	observerMetrics := observers.NewMetrics(registerer)

	if a.retention, err = a.newRetention(ctx, deps.options, auditMetrics); err != nil {
		return err
	}

	recorder, err := audit.NewRecorder(a.store, auditMetrics)
	if err != nil {
		return err
	}
	observer, err := observers.New(recorder, observers.Dependencies{
		Users:     deps.users,
		Terms:     deps.terms,
		Options:   deps.options,
		Retention: a.retention,
		Metrics:   observerMetrics,
		Logger:    logger,
	}, observers.Config{
		DeniedOptionKeys:     cfg.Observers.DeniedOptionKeys,
		DeniedOptionPrefixes: cfg.Observers.DeniedOptionPrefixes,
		TermCacheSize:        cfg.Observers.TermCacheSize,
		TermCacheTTL:         cfg.Observers.TermCacheTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create observers: %w", err)
	}

	bus := hooks.NewBus(logger)
	hooks.Attach(bus, observer)

	var webhookLimiter *hooks.RateLimiter
	if cfg.Security.WebhookRateLimit > 0 {
		webhookLimiter = hooks.NewRateLimiter(cfg.Security.WebhookRateLimit, cfg.Security.WebhookRatePeriod)
	}
	receiver, err := hooks.NewReceiver(bus, hooks.ReceiverOptions{
		Secret:      cfg.Security.WebhookSecret,
		RateLimiter: webhookLimiter,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create hook receiver: %w", err)
	}

	noncer, err := audit.NewNoncer([]byte(cfg.Security.NonceSecret), nil)
	if err != nil {
		return err
	}
	queries, err := audit.NewQueryService(a.store, deps.users, deps.directory, audit.NewPresenter(), audit.QueryOptions{
		ReadCapability: cfg.Security.ReadCapability,
		Metrics:        auditMetrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create query service: %w", err)
	}

	a.router = mux.NewRouter()
	a.router.Use(observability.HTTPMetricsMiddleware(a.metrics))

	receiver.RegisterRoutes(a.router)

	// Anonymous callers pass through and are refused by the handlers
	reads := a.router.NewRoute().Subrouter()
	reads.Use(middleware.NewActorMiddleware(middleware.StaticTokens(cfg.Security.APITokens), true).Handler)
	if a.redis != nil {
		reads.Use(middleware.RateLimit(middleware.NewRateLimiter(a.redis, middleware.DefaultRateLimitConfig(), ""), logger))
	}
	audit.NewHandlers(queries, noncer, logger).RegisterRoutes(reads)

	a.health = http.NewServeMux()
	observability.RegisterHealthRoutes(a.health, observability.NewHealthChecker(a.db, a.redis, version))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(a.health, a.registry)
	}

	return nil
}

// handler is the public HTTP surface, traced when OpenTelemetry is on
func (a *app) handler() http.Handler {
	chain := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(a.logger),
		httputil.RecoveryMiddleware(a.logger),
		httputil.MaxBytesMiddleware(maxRequestBytes),
	)
	return otelhttp.NewHandler(chain(a.router), "masthead")
}

func (a *app) openDatabase(ctx context.Context) error {
	db, err := sql.Open(a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.db = db
	if a.cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(a.cfg.Database.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	var opts []audit.DBStoreOption
	if a.cfg.Database.Table != "" {
		opts = append(opts, audit.WithTableName(a.cfg.Database.Table))
	}
	if a.store, err = audit.NewDBStore(db, audit.Dialect(a.cfg.Database.Driver), opts...); err != nil {
		return err
	}
	if err := a.store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to create audit table: %w", err)
	}

	a.logger.WithField("driver", a.cfg.Database.Driver).Info("Database connected")
	return nil
}

func (a *app) openRedis(ctx context.Context) error {
	if a.cfg.Redis.URL == "" {
		return nil
	}

	opts, err := redis.ParseURL(a.cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("invalid redis URL: %w", err)
	}
	if a.cfg.Redis.Password != "" {
		opts.Password = a.cfg.Redis.Password
	}
	if a.cfg.Redis.DB > 0 {
		opts.DB = a.cfg.Redis.DB
	}

	a.redis = redis.NewClient(opts)
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	a.logger.Info("Redis connected")
	return nil
}

// loadSite builds the site collaborators. Options always live in memory;
// users, posts and terms come from the seed or the CMS database.
func (a *app) loadSite(ctx context.Context) (siteDeps, error) {
	mem := site.NewMemory()
	if err := a.cfg.Site.Apply(ctx, mem); err != nil {
		return siteDeps{}, fmt.Errorf("failed to seed site: %w", err)
	}

	if a.cfg.Database.SiteSource != config.SiteSourceSQL {
		return siteDeps{users: mem, terms: mem, options: mem, directory: mem}, nil
	}

	dir, err := site.NewSQLDirectory(a.db, a.cfg.Database.Driver)
	if err != nil {
		return siteDeps{}, err
	}
	return siteDeps{
		users:     dir,
		terms:     dir,
		options:   mem,
		directory: site.NewCachedDirectory(dir, 0, 0),
	}, nil
}

// newRetention builds the retention manager. A stored retention option
// takes precedence over the configured window.
func (a *app) newRetention(ctx context.Context, options site.Options, metrics *audit.Metrics) (*audit.RetentionManager, error) {
	days := a.cfg.Retention.Days
	if stored, ok, err := options.Get(ctx, site.OptionRetentionDays); err == nil && ok {
		if n, ok := audit.ParseRetentionDays(stored); ok {
			days = n
		}
	}

	opts := audit.RetentionOptions{
		Days:     days,
		Schedule: a.cfg.Retention.Schedule,
		Metrics:  metrics,
		Logger:   a.logger,
	}
	if a.cfg.Retention.Lock && a.redis != nil {
		opts.Locker = audit.NewRedisLocker(a.redis, "masthead:lock", audit.WithLockLogger(a.logger))
	}

	switch a.cfg.Retention.Archive.Kind {
	case config.ArchiveS3:
		client, err := newS3Client(ctx, a.cfg.Retention.Archive)
		if err != nil {
			return nil, err
		}
		opts.Archiver = audit.NewS3Archiver(client, a.cfg.Retention.Archive.S3Bucket, a.cfg.Retention.Archive.S3Prefix)
	case config.ArchiveFile:
		archiver, err := audit.NewFileArchiver(a.cfg.Retention.Archive.Dir)
		if err != nil {
			return nil, err
		}
		opts.Archiver = archiver
	}

	return audit.NewRetentionManager(a.store, opts)
}

// newS3Client builds an S3 client, with static credentials when both keys
// are set and the default chain otherwise
func newS3Client(ctx context.Context, cfg config.ArchiveConfig) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	}), nil
}

// recordDBStats publishes pool statistics until ctx is done
func (a *app) recordDBStats(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.metrics.RecordDBStats(a.db.Stats())
		}
	}
}

// close releases the database and redis connections
func (a *app) close() error {
	var errs []error
	if a.retention != nil {
		a.retention.Stop()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	return errors.Join(errs...)
}
