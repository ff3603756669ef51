package hooks

import (
	"github.com/platinummonkey/masthead/pkg/observers"
)

// Signal names a CMS lifecycle signal
type Signal string

const (
	SignalPostSaved         Signal = "post.saved"
	SignalPostTransition    Signal = "post.transition"
	SignalPostDeleted       Signal = "post.deleted"
	SignalPluginActivated   Signal = "plugin.activated"
	SignalPluginDeactivated Signal = "plugin.deactivated"
	SignalOptionAdded       Signal = "option.added"
	SignalOptionUpdated     Signal = "option.updated"
	SignalUserRegistered    Signal = "user.registered"
	SignalUserDeleted       Signal = "user.deleted"
	SignalUserRoleSet       Signal = "user.role_set"
	SignalPasswordReset     Signal = "user.password_reset"
)

// payloadTypes returns an empty payload to decode each signal's body into
var payloadTypes = map[Signal]func() interface{}{
	SignalPostSaved:         func() interface{} { return &observers.ContentSave{} },
	SignalPostTransition:    func() interface{} { return &observers.StatusTransition{} },
	SignalPostDeleted:       func() interface{} { return &observers.ContentDeletion{} },
	SignalPluginActivated:   func() interface{} { return &observers.PluginChange{} },
	SignalPluginDeactivated: func() interface{} { return &observers.PluginChange{} },
	SignalOptionAdded:       func() interface{} { return &observers.OptionChange{} },
	SignalOptionUpdated:     func() interface{} { return &observers.OptionChange{} },
	SignalUserRegistered:    func() interface{} { return &observers.UserRegistration{} },
	SignalUserDeleted:       func() interface{} { return &observers.UserDeletion{} },
	SignalUserRoleSet:       func() interface{} { return &observers.RoleChange{} },
	SignalPasswordReset:     func() interface{} { return &observers.PasswordReset{} },
}

// Known reports whether s is a signal the bus understands
func (s Signal) Known() bool {
	_, ok := payloadTypes[s]
	return ok
}
