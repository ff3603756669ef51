package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/platinummonkey/masthead/pkg/observability"
)

// Group runs background tasks with panic recovery and a timeout, and lets
// shutdown wait for the ones still running.
//
// Example:
//
//	tasks := async.NewGroup(ctx, logger)
//	tasks.Go(time.Minute, "retention change", func(ctx context.Context) error {
//	    _, err := retention.SetRetentionDays(ctx, days)
//	    return err
//	})
//	defer tasks.Wait(shutdownCtx)
type Group struct {
	ctx    context.Context
	logger *observability.Logger
	wg     sync.WaitGroup
}

// NewGroup creates a group whose tasks are canceled with ctx
func NewGroup(ctx context.Context, logger *observability.Logger) *Group {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Group{
		ctx:    ctx,
		logger: logger.WithField("component", "async"),
	}
}

// Go runs fn in a goroutine. Errors and panics are logged, never returned.
func (g *Group) Go(timeout time.Duration, taskName string, fn func(context.Context) error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := run(g.ctx, timeout, fn); err != nil {
			g.logger.WithError(err).WithField("task", taskName).Error("Background task failed")
		}
	}()
}

// Wait blocks until every task has returned or ctx is done
func (g *Group) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("background tasks still running: %w", ctx.Err())
	}
}

// run calls fn under a timeout, turning a panic into an error
func run(parentCtx context.Context, timeout time.Duration, fn func(context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w\n%s", observability.PanicError(r), debug.Stack())
		}
	}()
	return fn(ctx)
}
