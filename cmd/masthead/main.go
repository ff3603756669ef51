// Command masthead records the audit log of an editorial CMS.
//
// The CMS delivers lifecycle signals to POST /hooks/{signal}; moderators read
// the log from GET /audit/entries. Health checks and metrics are served on a
// separate port.
//
// Usage:
//
//	masthead                       # serve
//	masthead -run-retention-once   # purge expired entries and exit
//	masthead -uninstall            # drop the audit table and exit
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/masthead/pkg/async"
	"github.com/platinummonkey/masthead/pkg/config"
	"github.com/platinummonkey/masthead/pkg/observability"
)

var (
	runRetentionOnce = flag.Bool("run-retention-once", false, "Run one retention pass and exit")
	uninstall        = flag.Bool("uninstall", false, "Drop the audit log table and exit")
)

func main() {
	flag.Parse()

	bootstrap := logrus.New()
	bootstrap.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		bootstrap.WithError(err).Fatal("Failed to load configuration")
	}
	bootstrap.WithFields(logrus.Fields{
		"driver": cfg.Database.Driver,
		"port":   cfg.Server.Port,
		"file":   cfg.File,
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout).WithField("service", "masthead")

	switch {
	case *runRetentionOnce:
		err = runOnce(ctx, cfg, logger, func(ctx context.Context, a *app) error {
			deleted, err := a.retention.RunNow(ctx)
			if err == nil {
				logger.Infof("Retention removed %d entries", deleted)
			}
			return err
		})
	case *uninstall:
		err = runOnce(ctx, cfg, logger, func(ctx context.Context, a *app) error {
			return a.retention.Uninstall(ctx)
		})
	default:
		err = serve(ctx, cfg, logger)
	}
	if err != nil {
		bootstrap.WithError(err).Fatal("masthead stopped with an error")
	}
}

// runOnce wires the app, runs fn and closes it
func runOnce(ctx context.Context, cfg *config.Config, logger *observability.Logger, fn func(context.Context, *app) error) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

// serve runs the HTTP servers, the retention schedule and the config
// watcher until ctx is canceled, then shuts them down in reverse order
func serve(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	telemetry, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    cfg.Observability.OTelSampleRatio,
	}, logger)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	defer func() { _ = shutdown.Shutdown() }()
	shutdown.Register("opentelemetry", telemetry.Shutdown)
	shutdown.Register("connections", func(ctx context.Context) error {
		return a.close()
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if err := a.retention.Start(gctx); err != nil {
		return err
	}
	shutdown.Register("retention", func(ctx context.Context) error {
		a.retention.Stop()
		return nil
	})

	tasks := async.NewGroup(gctx, logger)
	shutdown.Register("background tasks", tasks.Wait)

	if cfg.File != "" {
		watcher, err := config.NewWatcher(cfg.File, a.retention.RetentionDays(), func(days int) {
			tasks.Go(time.Minute, "retention change", func(ctx context.Context) error {
				_, err := a.retention.SetRetentionDays(ctx, days)
				return err
			})
		}, logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return watcher.Run(gctx) })
	}

	g.Go(func() error {
		a.recordDBStats(gctx, 15*time.Second)
		return nil
	})

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      a.handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           a.health,
		ReadHeaderTimeout: 5 * time.Second,
	}
	shutdown.Register("health server", healthServer.Shutdown)
	shutdown.Register("http server", server.Shutdown)

	g.Go(func() error { return listen(server, logger, "HTTP") })
	g.Go(func() error { return listen(healthServer, logger, "Health") })

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		return shutdown.Shutdown()
	})

	return g.Wait()
}

func listen(server *http.Server, logger *observability.Logger, name string) error {
	logger.Infof("%s server listening on %s", name, server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
