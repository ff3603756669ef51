package audit

import (
	"fmt"
	"sort"
	"strings"
)

// renderer turns a joined entry into its summary phrase and detail lines.
// The phrase follows the actor's name, e.g. "approved Frosh week recap".
type renderer func(v *View) (phrase string, details []string)

// Presenter renders entries for people. Renderers are looked up by the exact
// action string; actions without one fall back to the raw action.
type Presenter struct {
	renderers map[string]renderer
}

// NewPresenter creates a presenter with the built-in renderers
func NewPresenter() *Presenter {
	return &Presenter{
		renderers: map[string]renderer{
			ActionCurrentIssueUpdate: renderCurrentIssue,
			ActionPostApprove:        withTitle("approved", deltaDetails),
			ActionPostReject:         withTitle("rejected", rejectDetails),
			ActionPostDelete:         withMessageTitle("deleted article"),
			ActionPostCreate:         withTitle("created", deltaDetails),
			ActionPostUpdate:         withTitle("updated", deltaDetails),
			ActionPageCreate:         withTitle("created page", nil),
			ActionPageDelete:         withMessageTitle("deleted page"),
			ActionPageUpdate:         withTitle("updated page", deltaDetails),
			ActionPluginCreate:       withPlugin("activated plugin"),
			ActionPluginDelete:       withPlugin("deactivated plugin"),
			ActionSettingsUpdate:     renderSettings,
			ActionUserCreate:         renderUserCreate,
			ActionUserDelete:         renderUserDelete,
			ActionUserRoleUpdate:     renderRoleUpdate,
			ActionUserPasswordReset:  withTitle("reset password for", nil),
		},
	}
}

// Render fills v.Summary and v.Details
func (p *Presenter) Render(v *View) {
	actor := v.ActorName
	if actor == "" {
		actor = DeletedUserPlaceholder
	}

	render, ok := p.renderers[v.Action]
	if !ok {
		v.Summary = fmt.Sprintf("%s performed %s", actor, v.Action)
		v.Details = nil
		return
	}

	phrase, details := render(v)
	v.Summary = actor + " " + phrase
	v.Details = details
}

// ActionFilters lists the choices of the action filter, in display order
func (p *Presenter) ActionFilters() []ActionFilter {
	return []ActionFilter{
		{Value: ActionCurrentIssueUpdate, Label: "Current Issue - Update"},
		{Value: ActionPostApprove, Label: "Article - Approve"},
		{Value: ActionPostReject, Label: "Article - Reject"},
		{Value: ActionPostCreate, Label: "Article - Create"},
		{Value: ActionPostDelete, Label: "Article - Delete"},
		{Value: ActionPostUpdate, Label: "Article - Update"},
		{Value: ActionPageCreate, Label: "Page - Create"},
		{Value: ActionPageDelete, Label: "Page - Delete"},
		{Value: ActionPageUpdate, Label: "Page - Update"},
		{Value: ActionPluginCreate, Label: "Plugin - Activate"},
		{Value: ActionPluginDelete, Label: "Plugin - Deactivate"},
		{Value: ActionSettingsUpdate, Label: "Settings - Update"},
		{Value: ActionUserCreate, Label: "User - Add New"},
		{Value: ActionUserDelete, Label: "User - Delete"},
		{Value: "user.update", Label: "User - Update"},
	}
}

func withTitle(verb string, details func(*View) []string) renderer {
	return func(v *View) (string, []string) {
		phrase := verb
		if v.TargetName != "" {
			phrase += " " + v.TargetName
		}
		if details == nil {
			return phrase, nil
		}
		return phrase, details(v)
	}
}

func withMessageTitle(verb string) renderer {
	return func(v *View) (string, []string) {
		title := messageString(v.Message, "post_title")
		if title == "" {
			return verb, nil
		}
		return verb + " " + title, nil
	}
}

func withPlugin(verb string) renderer {
	return func(v *View) (string, []string) {
		location := messageString(v.Message, "plugin_location")
		if location == "" {
			return verb, nil
		}
		return verb + " " + location, nil
	}
}

func renderCurrentIssue(v *View) (string, []string) {
	var details []string
	oldTag := messageString(v.Message, "old_tag")
	newTag := messageString(v.Message, "new_tag")
	if oldTag == "" {
		details = append(details, "Set current issue to "+newTag)
	} else {
		details = append(details, fmt.Sprintf("Changed current issue from %s to %s", oldTag, newTag))
	}
	if n := messageInt(v.Message, "num_posts"); n > 0 {
		details = append(details, fmt.Sprintf("Changed status of %d article(s) from pending to draft", n))
	}
	return "updated current issue settings", details
}

func rejectDetails(v *View) []string {
	var details []string
	if rationale := messageString(v.Message, "rationale"); rationale != "" {
		details = append(details, fmt.Sprintf("Gave rationale: %q", rationale))
	}
	if messageBool(v.Message, "notified") {
		details = append(details, "Notified author of rejection")
	}
	if messageBool(v.Message, "returned") {
		details = append(details, "Changed status from pending to draft")
	}
	return append(details, deltaDetails(v)...)
}

// deltaDetails describes the deltas map written by the content observers
func deltaDetails(v *View) []string {
	deltas, ok := v.Message["deltas"].(map[string]interface{})
	if !ok {
		return nil
	}

	var details []string
	for _, field := range []string{"categories", "tags"} {
		set, ok := deltas[field].(map[string]interface{})
		if !ok {
			continue
		}
		if removed := stringList(set["removed"]); len(removed) > 0 {
			details = append(details, fmt.Sprintf("Removed %s %s", field, strings.Join(removed, ", ")))
		}
		if added := stringList(set["added"]); len(added) > 0 {
			details = append(details, fmt.Sprintf("Added %s %s", field, strings.Join(added, ", ")))
		}
	}
	if status, ok := deltas["status"].(map[string]interface{}); ok {
		details = append(details, fmt.Sprintf("Changed status from %v to %v", status["old"], status["new"]))
	}
	if changed, _ := deltas["content"].(bool); changed {
		details = append(details, "Updated content")
	}
	return details
}

func renderSettings(v *View) (string, []string) {
	phrase := "updated setting " + messageString(v.Message, "option")
	newValue := fmt.Sprint(v.Message["new_value"])
	if v.Message["old_value"] == nil {
		return phrase, []string{"Set value to " + newValue}
	}
	return phrase, []string{fmt.Sprintf("Changed value from %v to %s", v.Message["old_value"], newValue)}
}

func renderUserCreate(v *View) (string, []string) {
	phrase := "added new user " + v.TargetName
	if role := messageString(v.Message, "role"); role != "" {
		return phrase, []string{"Assigned role " + role}
	}
	return phrase, nil
}

func renderUserDelete(v *View) (string, []string) {
	phrase := "deleted user " + messageString(v.Message, "user_login")
	if _, ok := v.Message["reassigned_user"]; !ok {
		return phrase, []string{"Deleted all articles"}
	}
	to := messageString(v.Message, "reassigned_login")
	if to == "" {
		to = fmt.Sprintf("user #%d", messageInt(v.Message, "reassigned_user"))
	}
	return phrase, []string{"Reassigned articles to " + to}
}

func renderRoleUpdate(v *View) (string, []string) {
	var details []string
	if old := stringList(v.Message["old_roles"]); len(old) > 0 {
		sort.Strings(old)
		details = append(details, "Removed roles "+strings.Join(old, ", "))
	}
	if role := messageString(v.Message, "new_role"); role != "" {
		details = append(details, "Added role "+role)
	}
	return "updated roles for " + v.TargetName, details
}

func messageString(m Message, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func messageBool(m Message, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func messageInt(m Message, key string) int64 {
	switch n := m[key].(type) {
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	default:
		return 0
	}
}

func stringList(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}
