package observers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/platinummonkey/masthead/pkg/audit"
	"github.com/platinummonkey/masthead/pkg/site"
)

const signalOption = "option.changed"

// Options that change on their own or too often to be worth an entry
var deniedOptionKeys = []string{
	"active_plugins",
	"admin_email_lifespan",
	"akismet_show_user_comments_approved",
	"akismet_spam_count",
	"auto_core_update_notified",
	"auto_plugin_theme_update_emails",
	"cron",
	"jp_cc_reviews_installed_on",
	"mn_core_version",
	"mn_core_db_version",
	"recently_activated",
	"recently_edited",
	"recovery_keys",
	"tuxedo_big_file_uploads_reviews_time",
	"uninstall_plugins",
	"wordpress_api_key",
	"wp_all_export_db_version",
}

var deniedOptionPrefixes = []string{
	"_transient_",
	"_site_transient_",
	"theme_mods_",
	"widget_",
}

// Options whose values must never reach the log
var sensitiveOptionFragments = []string{
	"password",
	"secret",
	"api_key",
}

type denyList struct {
	keys     map[string]bool
	prefixes []string
}

func newDenyList(extraKeys, extraPrefixes []string) *denyList {
	d := &denyList{keys: make(map[string]bool)}
	for _, k := range append(append([]string{}, deniedOptionKeys...), extraKeys...) {
		d.keys[k] = true
	}
	d.prefixes = append(append([]string{}, deniedOptionPrefixes...), extraPrefixes...)
	return d
}

func (d *denyList) denies(key string) bool {
	if d.keys[key] {
		return true
	}
	for _, p := range d.prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	lower := strings.ToLower(key)
	for _, f := range sensitiveOptionFragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

// OptionChanged records a change of a site option. A change of the retention
// option is also handed to the retention manager.
func (o *Observer) OptionChanged(ctx context.Context, rc *RequestContext, change OptionChange) {
	if change.Key == site.OptionRetentionDays {
		o.applyRetention(ctx, change.Value)
	}

	switch {
	case o.denied.denies(change.Key):
		o.suppress(signalOption, "denied option")
		return
	case rc.ActorID == 0:
		o.suppress(signalOption, "no actor")
		return
	case !o.can(ctx, rc.ActorID, site.CapManageOptions):
		o.suppress(signalOption, "not an administrator")
		return
	}

	if change.Key == site.OptionCurrentIssue {
		o.currentIssueChanged(ctx, rc, change)
		return
	}

	var oldValue interface{}
	if !change.Added {
		oldValue = encodeOptionValue(change.OldValue)
	}
	o.record(ctx, rc, signalOption, audit.ActionSettingsUpdate, nil, audit.Message{
		"option":    change.Key,
		"old_value": oldValue,
		"new_value": encodeOptionValue(change.Value),
	})
}

func (o *Observer) currentIssueChanged(ctx context.Context, rc *RequestContext, change OptionChange) {
	var oldTag interface{}
	if !change.Added {
		if issue, ok := site.ParseCurrentIssue(change.OldValue); ok {
			oldTag = issue.Tag()
		}
	}

	newIssue, ok := site.ParseCurrentIssue(change.Value)
	if !ok {
		newIssue = site.DefaultCurrentIssue
	}

	o.record(ctx, rc, signalOption, audit.ActionCurrentIssueUpdate, nil, audit.Message{
		"old_tag":   oldTag,
		"new_tag":   newIssue.Tag(),
		"num_posts": rc.MovedToDraft,
	})
}

func (o *Observer) applyRetention(ctx context.Context, value interface{}) {
	if o.retention == nil {
		return
	}
	days, ok := audit.ParseRetentionDays(value)
	if !ok {
		o.logger.WithField("value", value).Warn("Ignoring unreadable retention option")
		return
	}
	if _, err := o.retention.SetRetentionDays(ctx, days); err != nil {
		o.logger.WithError(err).Error("Failed to apply retention change")
	}
}

// encodeOptionValue stores option values as JSON text
func encodeOptionValue(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
