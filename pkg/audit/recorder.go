package audit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var recorderTracer = otel.Tracer("masthead/audit/recorder")

// Recorder appends entries to the log. It is the only writer of entries.
type Recorder struct {
	store   Store
	metrics *Metrics
}

// NewRecorder creates a recorder writing to store. metrics may be nil.
func NewRecorder(store Store, metrics *Metrics) (*Recorder, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	return &Recorder{store: store, metrics: metrics}, nil
}

// Append records an action performed by actorID on targetID
func (r *Recorder) Append(ctx context.Context, action string, actorID, targetID int64, message Message) error {
	return r.append(ctx, action, actorID, &targetID, message)
}

// AppendWithoutTarget records an action with no singular target.
// The entry's target is left NULL.
func (r *Recorder) AppendWithoutTarget(ctx context.Context, action string, actorID int64, message Message) error {
	return r.append(ctx, action, actorID, nil, message)
}

func (r *Recorder) append(ctx context.Context, action string, actorID int64, targetID *int64, message Message) error {
	parsed, err := ParseAction(action)
	if err != nil {
		return err
	}

	ctx, span := recorderTracer.Start(ctx, "audit.record",
		trace.WithAttributes(
			attribute.String("audit.action", action),
			attribute.Int64("audit.actor_id", actorID),
		))
	defer span.End()

	if message == nil {
		message = Message{}
	}
	entry := &Entry{
		Action:   action,
		ActorID:  actorID,
		TargetID: targetID,
		Message:  message,
	}

	if err := r.store.Insert(ctx, entry); err != nil {
		span.RecordError(err)
		if r.metrics != nil {
			r.metrics.RecordFailures.WithLabelValues(parsed.Unit).Inc()
		}
		return fmt.Errorf("failed to record %s: %w", action, err)
	}

	if r.metrics != nil {
		r.metrics.EntriesRecorded.WithLabelValues(parsed.Unit).Inc()
	}
	span.SetAttributes(attribute.Int64("audit.entry_id", entry.ID))
	return nil
}
