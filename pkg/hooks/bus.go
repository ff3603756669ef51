package hooks

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/platinummonkey/masthead/pkg/contextkeys"
	"github.com/platinummonkey/masthead/pkg/observability"
	"github.com/platinummonkey/masthead/pkg/observers"
)

// Event is one delivery of a signal
type Event struct {
	Signal  Signal
	Request *observers.RequestContext
	Payload interface{}
}

// Handler reacts to an event
type Handler func(ctx context.Context, ev Event) error

// Bus dispatches events to the handlers registered for their signal
type Bus struct {
	mu       sync.RWMutex
	handlers map[Signal][]Handler
	logger   *observability.Logger
}

// NewBus creates an empty bus
func NewBus(logger *observability.Logger) *Bus {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Bus{
		handlers: make(map[Signal][]Handler),
		logger:   logger.WithField("component", "hooks_bus"),
	}
}

// On appends a handler for signal
func (b *Bus) On(signal Signal, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[signal] = append(b.handlers[signal], h)
}

// Handlers returns how many handlers are registered for signal
func (b *Bus) Handlers(signal Signal) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[signal])
}

// Emit runs every handler of ev.Signal in registration order and returns
// their joined errors
func (b *Bus) Emit(ctx context.Context, ev Event) error {
	if ev.Request == nil {
		ev.Request = observers.NewRequestContext(0)
	}
	ctx = contextkeys.WithSignal(ctx, string(ev.Signal))

	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[ev.Signal]...)
	b.mu.RUnlock()

	var errs []error
	for i, h := range handlers {
		if err := b.run(ctx, h, ev); err != nil {
			b.logger.WithError(err).WithFields(map[string]interface{}{
				"signal":  ev.Signal,
				"handler": i,
			}).Error("Signal handler failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bus) run(ctx context.Context, h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithField("stack", string(debug.Stack())).Debug("Signal handler panic stack")
			err = fmt.Errorf("%s handler: %w", ev.Signal, observability.PanicError(r))
		}
	}()
	return h(ctx, ev)
}
