// Package async runs background work with panic recovery and timeouts.
//
// A Group tracks its tasks so that shutdown can wait for them:
//
//	tasks := async.NewGroup(ctx, logger)
//	tasks.Go(time.Minute, "retention change", func(ctx context.Context) error {
//		_, err := retention.SetRetentionDays(ctx, days)
//		return err
//	})
//	tasks.Wait(shutdownCtx)
//
// # Related Packages
//
//   - pkg/config: the watcher whose reloads run as tasks
package async
