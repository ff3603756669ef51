package observers

import (
	"context"

	"github.com/platinummonkey/masthead/pkg/audit"
)

const (
	signalUserRegistered    = "user.registered"
	signalUserDeleted       = "user.deleted"
	signalUserRoleSet       = "user.role_set"
	signalUserPasswordReset = "user.password_reset"
)

// UserRegistered records a new account
func (o *Observer) UserRegistered(ctx context.Context, rc *RequestContext, r UserRegistration) {
	o.record(ctx, rc, signalUserRegistered, audit.ActionUserCreate, targetOf(r.User.ID), audit.Message{
		"role": r.Role,
	})
}

// UserDeleted records an account deletion. The login is kept in the message
// since the account can no longer be looked up.
func (o *Observer) UserDeleted(ctx context.Context, rc *RequestContext, d UserDeletion) {
	message := audit.Message{"user_login": d.User.Login}
	if d.ReassignTo != 0 {
		message["reassigned_user"] = d.ReassignTo
		if u, err := o.users.User(ctx, d.ReassignTo); err == nil {
			message["reassigned_login"] = u.Login
		}
	}
	o.record(ctx, rc, signalUserDeleted, audit.ActionUserDelete, targetOf(d.User.ID), message)
}

// UserRoleSet records a role change. The role given while creating a user is
// already part of its user.create entry.
func (o *Observer) UserRoleSet(ctx context.Context, rc *RequestContext, c RoleChange) {
	if rc.CreatingUser {
		o.suppress(signalUserRoleSet, "creating user")
		return
	}
	oldRoles := c.OldRoles
	if oldRoles == nil {
		oldRoles = []string{}
	}
	o.record(ctx, rc, signalUserRoleSet, audit.ActionUserRoleUpdate, targetOf(c.UserID), audit.Message{
		"new_role":  c.Role,
		"old_roles": oldRoles,
	})
}

// PasswordResetRequested records a password reset
func (o *Observer) PasswordResetRequested(ctx context.Context, rc *RequestContext, r PasswordReset) {
	o.record(ctx, rc, signalUserPasswordReset, audit.ActionUserPasswordReset, targetOf(r.UserID), audit.Message{})
}
