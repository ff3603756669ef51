package observers

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/masthead/pkg/audit"
	"github.com/platinummonkey/masthead/pkg/observability"
	"github.com/platinummonkey/masthead/pkg/site"
)

// Recorder is the write side of the audit log
type Recorder interface {
	Append(ctx context.Context, action string, actorID, targetID int64, message audit.Message) error
	AppendWithoutTarget(ctx context.Context, action string, actorID int64, message audit.Message) error
}

// RetentionSetter receives changes of the retention option
type RetentionSetter interface {
	SetRetentionDays(ctx context.Context, days int) (int64, error)
}

// Outcomes counted per signal
const (
	outcomeRecorded   = "recorded"
	outcomeSuppressed = "suppressed"
	outcomeFailed     = "failed"
)

// Dependencies are the collaborators an Observer reads from
type Dependencies struct {
	Users   site.Users
	Terms   site.Terms
	Options site.Options

	// Retention is told about changes of the retention option. Optional.
	Retention RetentionSetter
	Metrics   *Metrics
	Logger    *observability.Logger
}

// Config tunes an Observer
type Config struct {
	// DeniedOptionKeys and DeniedOptionPrefixes extend the built-in deny-list
	DeniedOptionKeys     []string
	DeniedOptionPrefixes []string

	TermCacheSize int
	TermCacheTTL  time.Duration
}

// Observer records audit entries for CMS lifecycle signals
type Observer struct {
	recorder  Recorder
	users     site.Users
	terms     *termCache
	options   site.Options
	retention RetentionSetter
	denied    *denyList
	metrics   *Metrics
	logger    *observability.Logger
}

// New creates an observer writing through recorder
func New(recorder Recorder, deps Dependencies, cfg Config) (*Observer, error) {
	if recorder == nil {
		return nil, fmt.Errorf("recorder is required")
	}
	if deps.Users == nil || deps.Terms == nil || deps.Options == nil {
		return nil, fmt.Errorf("users, terms and options are required")
	}
	if deps.Logger == nil {
		deps.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	return &Observer{
		recorder:  recorder,
		users:     deps.Users,
		terms:     newTermCache(deps.Terms, cfg.TermCacheSize, cfg.TermCacheTTL),
		options:   deps.Options,
		retention: deps.Retention,
		denied:    newDenyList(cfg.DeniedOptionKeys, cfg.DeniedOptionPrefixes),
		metrics:   deps.Metrics,
		logger:    deps.Logger.WithField("component", "audit_observer"),
	}, nil
}

// can answers a capability check, treating lookup errors as "no"
func (o *Observer) can(ctx context.Context, userID int64, capability string) bool {
	if userID == 0 {
		return false
	}
	ok, err := o.users.Can(ctx, userID, capability)
	if err != nil {
		o.logger.WithError(err).WithFields(map[string]interface{}{
			"user_id":    userID,
			"capability": capability,
		}).Warn("Capability check failed")
		return false
	}
	return ok
}

// record writes one entry. A nil target writes an entry without target.
func (o *Observer) record(ctx context.Context, rc *RequestContext, signal, action string, target *int64, message audit.Message) {
	var err error
	if target == nil {
		err = o.recorder.AppendWithoutTarget(ctx, action, rc.ActorID, message)
	} else {
		err = o.recorder.Append(ctx, action, rc.ActorID, *target, message)
	}

	if err != nil {
		o.count(signal, outcomeFailed)
		o.logger.WithError(err).WithFields(map[string]interface{}{
			"signal":   signal,
			"action":   action,
			"actor_id": rc.ActorID,
		}).Error("Failed to record audit entry")
		return
	}

	if target != nil {
		rc.markRecorded(*target)
	}
	o.count(signal, outcomeRecorded)
}

func (o *Observer) suppress(signal, reason string) {
	o.count(signal, outcomeSuppressed)
	o.logger.WithFields(map[string]interface{}{
		"signal": signal,
		"reason": reason,
	}).Debug("Audit entry suppressed")
}

func (o *Observer) count(signal, outcome string) {
	if o.metrics != nil {
		o.metrics.Signals.WithLabelValues(signal, outcome).Inc()
	}
}

func targetOf(id int64) *int64 {
	return &id
}
