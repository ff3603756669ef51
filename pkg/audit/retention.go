package audit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/masthead/pkg/observability"
)

// Retention window bounds, in days
const (
	DefaultRetentionDays = 90
	MinRetentionDays     = 30
	MaxRetentionDays     = 365

	// DefaultRetentionSchedule runs the purge once a day
	DefaultRetentionSchedule = "@daily"

	retentionLockKey = "audit-retention"
	retentionLockTTL = 5 * time.Minute

	defaultLockRetry = time.Second
)

// ClampRetentionDays bounds days to MinRetentionDays..MaxRetentionDays.
// Zero means unset and yields the default.
func ClampRetentionDays(days int) int {
	switch {
	case days == 0:
		return DefaultRetentionDays
	case days < MinRetentionDays:
		return MinRetentionDays
	case days > MaxRetentionDays:
		return MaxRetentionDays
	default:
		return days
	}
}

// ParseRetentionDays reads a stored option value (a number or numeric string)
func ParseRetentionDays(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// RetentionOptions configures a RetentionManager
type RetentionOptions struct {
	Days     int
	Schedule string
	Clock    Clock
	Locker   Locker
	Archiver Archiver
	Metrics  *Metrics
	Logger   *observability.Logger

	// LockRetry is how often a window change polls a lock held elsewhere
	LockRetry time.Duration
}

// RetentionManager deletes entries older than the retention window,
// on a cron schedule and whenever the window changes.
type RetentionManager struct {
	store     Store
	days      atomic.Int64
	schedule  string
	clock     Clock
	locker    Locker
	lockRetry time.Duration
	archiver  Archiver
	metrics   *Metrics
	logger    *observability.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewRetentionManager creates a retention manager. Call Start to schedule it.
func NewRetentionManager(store Store, opts RetentionOptions) (*RetentionManager, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if opts.Schedule == "" {
		opts.Schedule = DefaultRetentionSchedule
	}
	if opts.Clock == nil {
		opts.Clock = UTCNow
	}
	if opts.LockRetry <= 0 {
		opts.LockRetry = defaultLockRetry
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	if _, err := cron.ParseStandard(opts.Schedule); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", opts.Schedule, err)
	}

	m := &RetentionManager{
		store:     store,
		schedule:  opts.Schedule,
		clock:     opts.Clock,
		locker:    opts.Locker,
		lockRetry: opts.LockRetry,
		archiver:  opts.Archiver,
		metrics:   opts.Metrics,
		logger:    opts.Logger.WithField("component", "audit_retention"),
	}
	m.storeDays(opts.Days)
	return m, nil
}

// RetentionDays returns the current window
func (m *RetentionManager) RetentionDays() int {
	return int(m.days.Load())
}

func (m *RetentionManager) storeDays(days int) int {
	days = ClampRetentionDays(days)
	m.days.Store(int64(days))
	if m.metrics != nil {
		m.metrics.RetentionDays.Set(float64(days))
	}
	return days
}

// SetRetentionDays changes the window and immediately runs a pass so that a
// shorter window takes effect right away. When another replica holds the
// lock it waits for it, until ctx ends or the lock would have expired.
func (m *RetentionManager) SetRetentionDays(ctx context.Context, days int) (int64, error) {
	previous := m.RetentionDays()
	current := m.storeDays(days)
	if current != previous {
		m.logger.Infof("Audit retention changed from %d to %d days", previous, current)
	}
	return m.run(ctx, true)
}

// Cutoff returns the instant before which entries are expired
func (m *RetentionManager) Cutoff() time.Time {
	return m.clock().UTC().AddDate(0, 0, -m.RetentionDays())
}

// RunNow deletes every entry older than the window and returns how many were
// removed. Running it again with no new expired entries removes nothing. A
// pass already running elsewhere makes it return 0 without waiting.
func (m *RetentionManager) RunNow(ctx context.Context) (int64, error) {
	return m.run(ctx, false)
}

func (m *RetentionManager) run(ctx context.Context, wait bool) (int64, error) {
	if m.locker != nil {
		release, err := m.acquire(ctx, wait)
		if err != nil {
			m.countRun("error")
			return 0, err
		}
		if release == nil {
			m.logger.Debug("Audit retention already running elsewhere, skipping")
			m.countRun("skipped")
			return 0, nil
		}
		defer release()
	}
	return m.purge(ctx)
}

// acquire takes the retention lock. Without wait a held lock yields a nil
// release.
func (m *RetentionManager) acquire(ctx context.Context, wait bool) (func(), error) {
	var expired <-chan time.Time
	if _, ok := ctx.Deadline(); wait && !ok {
		timer := time.NewTimer(retentionLockTTL)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		release, ok, err := m.locker.TryLock(ctx, retentionLockKey, retentionLockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire retention lock: %w", err)
		}
		if ok {
			return release, nil
		}
		if !wait {
			return nil, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("retention lock still held: %w", ctx.Err())
		case <-expired:
			return nil, fmt.Errorf("retention lock still held after %s", retentionLockTTL)
		case <-time.After(m.lockRetry):
		}
	}
}

func (m *RetentionManager) purge(ctx context.Context) (int64, error) {
	cutoff := m.Cutoff()

	if m.archiver != nil {
		expired, err := m.store.ListBefore(ctx, cutoff)
		if err != nil {
			m.countRun("error")
			return 0, fmt.Errorf("failed to read expired entries: %w", err)
		}
		if len(expired) > 0 {
			if err := m.archiver.Archive(ctx, cutoff, expired); err != nil {
				m.countRun("error")
				return 0, fmt.Errorf("failed to archive expired entries: %w", err)
			}
		}
	}

	deleted, err := m.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		m.countRun("error")
		return 0, err
	}

	m.countRun("ok")
	if m.metrics != nil {
		m.metrics.EntriesPurged.Add(float64(deleted))
	}
	m.logger.WithFields(map[string]interface{}{
		"cutoff":  cutoff.Format(time.RFC3339),
		"deleted": deleted,
		"days":    m.RetentionDays(),
	}).Info("Audit retention pass complete")
	return deleted, nil
}

// Start schedules the recurring pass. The job uses ctx for its store calls.
func (m *RetentionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cron != nil {
		return fmt.Errorf("retention manager already started")
	}

	c := cron.New()
	_, err := c.AddFunc(m.schedule, func() {
		defer observability.RecoverPanic(m.logger, "audit retention")
		if _, err := m.RunNow(ctx); err != nil {
			m.logger.WithError(err).Error("Audit retention pass failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule retention: %w", err)
	}

	c.Start()
	m.cron = c
	m.logger.Infof("Audit retention scheduled (%s, %d days)", m.schedule, m.RetentionDays())
	return nil
}

// Stop unschedules the pass and waits for a running one to finish
func (m *RetentionManager) Stop() {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	m.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

// Uninstall removes the whole log
func (m *RetentionManager) Uninstall(ctx context.Context) error {
	m.Stop()
	return m.store.Drop(ctx)
}

func (m *RetentionManager) countRun(status string) {
	if m.metrics != nil {
		m.metrics.RetentionRuns.WithLabelValues(status).Inc()
	}
}
