package hooks

import (
	"context"
	"fmt"

	"github.com/platinummonkey/masthead/pkg/observers"
)

// Attach registers the observer's handler for every signal
func Attach(bus *Bus, o *observers.Observer) {
	bus.On(SignalPostSaved, typed(func(ctx context.Context, rc *observers.RequestContext, p *observers.ContentSave) {
		o.ContentSaved(ctx, rc, *p)
	}))
	bus.On(SignalPostTransition, typed(func(ctx context.Context, rc *observers.RequestContext, p *observers.StatusTransition) {
		o.StatusChanged(ctx, rc, *p)
	}))
	bus.On(SignalPostDeleted, typed(func(ctx context.Context, rc *observers.RequestContext, p *observers.ContentDeletion) {
		o.ContentDeleted(ctx, rc, *p)
	}))
	bus.On(SignalPluginActivated, typed(func(ctx context.Context, rc *observers.RequestContext, p *observers.PluginChange) {
		o.PluginActivated(ctx, rc, *p)
	}))
	bus.On(SignalPluginDeactivated, typed(func(ctx context.Context, rc *observers.RequestContext, p *observers.PluginChange) {
		o.PluginDeactivated(ctx, rc, *p)
	}))
	bus.On(SignalOptionAdded, typed(func(ctx context.Context, rc *observers.RequestContext, p *observers.OptionChange) {
		change := *p
		change.Added = true
		change.OldValue = nil
		o.OptionChanged(ctx, rc, change)
	}))
	bus.On(SignalOptionUpdated, typed(func(ctx context.Context, rc *observers.RequestContext, p *observers.OptionChange) {
		change := *p
		change.Added = false
		o.OptionChanged(ctx, rc, change)
	}))
	bus.On(SignalUserRegistered, typed(func(ctx context.Context, rc *observers.RequestContext, p *observers.UserRegistration) {
		o.UserRegistered(ctx, rc, *p)
	}))
	bus.On(SignalUserDeleted, typed(func(ctx context.Context, rc *observers.RequestContext, p *observers.UserDeletion) {
		o.UserDeleted(ctx, rc, *p)
	}))
	bus.On(SignalUserRoleSet, typed(func(ctx context.Context, rc *observers.RequestContext, p *observers.RoleChange) {
		o.UserRoleSet(ctx, rc, *p)
	}))
	bus.On(SignalPasswordReset, typed(func(ctx context.Context, rc *observers.RequestContext, p *observers.PasswordReset) {
		o.PasswordResetRequested(ctx, rc, *p)
	}))
}

// typed adapts an observer method to a Handler, accepting the payload by
// value or by pointer
func typed[T any](fn func(ctx context.Context, rc *observers.RequestContext, payload *T)) Handler {
	return func(ctx context.Context, ev Event) error {
		switch p := ev.Payload.(type) {
		case *T:
			fn(ctx, ev.Request, p)
		case T:
			fn(ctx, ev.Request, &p)
		default:
			return fmt.Errorf("%s: unexpected payload %T", ev.Signal, ev.Payload)
		}
		return nil
	}
}
