package observers

import (
	"context"

	"github.com/platinummonkey/masthead/pkg/audit"
)

const (
	signalPluginActivated   = "plugin.activated"
	signalPluginDeactivated = "plugin.deactivated"
)

// PluginActivated records a plugin activation
func (o *Observer) PluginActivated(ctx context.Context, rc *RequestContext, p PluginChange) {
	o.record(ctx, rc, signalPluginActivated, audit.ActionPluginCreate, nil, audit.Message{
		"plugin_location": p.Location,
	})
}

// PluginDeactivated records a plugin deactivation
func (o *Observer) PluginDeactivated(ctx context.Context, rc *RequestContext, p PluginChange) {
	o.record(ctx, rc, signalPluginDeactivated, audit.ActionPluginDelete, nil, audit.Message{
		"plugin_location": p.Location,
	})
}
