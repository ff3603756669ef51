package audit

import (
	"fmt"
	"strings"
	"time"
)

const (
	// MaxActionLength is the width of the action column.
	MaxActionLength = 40

	// DefaultPageSize is the number of entries returned by one List call.
	DefaultPageSize = 20
)

// Units an action can apply to
const (
	UnitPost         = "post"
	UnitPage         = "page"
	UnitPlugin       = "plugin"
	UnitSettings     = "settings"
	UnitUser         = "user"
	UnitCurrentIssue = "cur_issue"
)

// Actions written by the observers
const (
	ActionPostCreate   = "post.create"
	ActionPostUpdate   = "post.update"
	ActionPostApprove  = "post.approve"
	ActionPostReject   = "post.reject"
	ActionPostDelete   = "post.delete"
	ActionPageCreate   = "page.create"
	ActionPageUpdate   = "page.update"
	ActionPageDelete   = "page.delete"
	ActionPluginCreate = "plugin.create"
	ActionPluginDelete = "plugin.delete"

	ActionSettingsUpdate     = "settings.update"
	ActionCurrentIssueUpdate = "cur_issue.update"

	ActionUserCreate        = "user.create"
	ActionUserDelete        = "user.delete"
	ActionUserRoleUpdate    = "user.update.role"
	ActionUserPasswordReset = "user.update.reset_password"
)

// Placeholders shown when a joined row no longer exists
const (
	DeletedUserPlaceholder = "[deleted user]"
	DeletedPostPlaceholder = "[deleted post]"
	DeletedPagePlaceholder = "[deleted page]"
	SystemActorPlaceholder = "[system]"
)

// Message is the structured payload of an entry. Its keys depend on the action.
type Message map[string]interface{}

// Entry is one row of the audit log. Entries are never modified once written.
type Entry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	ActorID   int64     `json:"actor_id"`
	TargetID  *int64    `json:"target_id,omitempty"`
	Message   Message   `json:"message"`
}

// HasTarget reports whether the entry refers to a single object
func (e *Entry) HasTarget() bool {
	return e.TargetID != nil
}

// Unit returns the unit segment of the entry's action
func (e *Entry) Unit() string {
	a, err := ParseAction(e.Action)
	if err != nil {
		return ""
	}
	return a.Unit
}

// Action is a parsed action string
type Action struct {
	Unit   string
	Verb   string
	Suffix string
}

// String joins the segments back together
func (a Action) String() string {
	if a.Suffix == "" {
		return a.Unit + "." + a.Verb
	}
	return a.Unit + "." + a.Verb + "." + a.Suffix
}

// ParseAction splits and validates an action of the form unit.verb[.suffix].
// Each segment is lower case letters and underscores.
func ParseAction(s string) (Action, error) {
	if s == "" {
		return Action{}, fmt.Errorf("%w: empty action", ErrMalformedAction)
	}
	if len(s) > MaxActionLength {
		return Action{}, fmt.Errorf("%w: %q is longer than %d characters", ErrMalformedAction, s, MaxActionLength)
	}

	parts := strings.Split(s, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return Action{}, fmt.Errorf("%w: %q is not unit.verb[.suffix]", ErrMalformedAction, s)
	}
	for _, p := range parts {
		if !validSegment(p) {
			return Action{}, fmt.Errorf("%w: %q has an invalid segment %q", ErrMalformedAction, s, p)
		}
	}

	a := Action{Unit: parts[0], Verb: parts[1]}
	if len(parts) == 3 {
		a.Suffix = parts[2]
	}
	return a, nil
}

func validSegment(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && r != '_' {
			return false
		}
	}
	return true
}

// Filter narrows a List call. Zero values mean "no constraint".
type Filter struct {
	ActorID  int64  `json:"actor_id,omitempty"`
	Action   string `json:"action,omitempty"`
	BeforeID int64  `json:"before_id,omitempty"`
	Limit    int    `json:"-"`
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultPageSize
	}
	return f.Limit
}

// Page is one screen of entries, newest first
type Page struct {
	Entries []View `json:"entries"`
	HasMore bool   `json:"hasMore"`
}

// View is an entry joined with the live names of its actor and target
type View struct {
	Entry
	ActorName  string   `json:"actor_name"`
	TargetName string   `json:"target_name,omitempty"`
	Summary    string   `json:"summary"`
	Details    []string `json:"details,omitempty"`
}

// ActionFilter is one option of the action dropdown on the log screen
type ActionFilter struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ExportFormat represents the export format for audit logs
type ExportFormat string

const (
	ExportFormatNDJSON ExportFormat = "ndjson"
	ExportFormatCSV    ExportFormat = "csv"
)
