package observers

import "github.com/platinummonkey/masthead/pkg/site"

// ContentSave is raised before a post or page is written. Previous is nil
// when the content is new.
type ContentSave struct {
	Previous *site.Post `json:"previous,omitempty"`
	Post     site.Post  `json:"post"`
}

// IsNew reports whether the save creates the content
func (c ContentSave) IsNew() bool {
	return c.Previous == nil || c.Previous.Status == site.StatusAutoDraft
}

// StatusTransition is raised when content changes status
type StatusTransition struct {
	Post      site.Post `json:"post"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
}

// ContentDeletion is raised after content was permanently deleted
type ContentDeletion struct {
	Post site.Post `json:"post"`
}

// PluginChange is raised when a plugin is activated or deactivated
type PluginChange struct {
	Location string `json:"plugin"`
}

// OptionChange is raised after a site option was added or updated
type OptionChange struct {
	Key      string      `json:"option"`
	OldValue interface{} `json:"old_value,omitempty"`
	Value    interface{} `json:"value"`
	Added    bool        `json:"added,omitempty"`
}

// UserRegistration is raised after an account was created
type UserRegistration struct {
	User site.User `json:"user"`
	Role string    `json:"role"`
}

// UserDeletion is raised after an account was deleted. ReassignTo is the
// user who inherited the deleted user's content, 0 when it was deleted too.
type UserDeletion struct {
	User       site.User `json:"user"`
	ReassignTo int64     `json:"reassign_to,omitempty"`
}

// RoleChange is raised when a user's role is replaced
type RoleChange struct {
	UserID   int64    `json:"user_id"`
	Role     string   `json:"role"`
	OldRoles []string `json:"old_roles"`
}

// PasswordReset is raised when a password reset is requested for a user
type PasswordReset struct {
	UserID int64 `json:"user_id"`
}
