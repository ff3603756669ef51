package observers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/masthead/pkg/audit"
	"github.com/platinummonkey/masthead/pkg/site"
)

func TestOptionChanged_Recorded(t *testing.T) {
	ctx := context.Background()

	t.Run("update", func(t *testing.T) {
		f := newFixture(t)
		f.observer.OptionChanged(ctx, NewRequestContext(1), OptionChange{Key: "blogname", OldValue: "mathNEWS", Value: "mathNEWS Online"})

		e := f.only(t)
		assert.Equal(t, audit.ActionSettingsUpdate, e.Action)
		assert.Nil(t, e.TargetID)
		assert.Equal(t, "blogname", e.Message["option"])
		assert.Equal(t, `"mathNEWS"`, e.Message["old_value"])
		assert.Equal(t, `"mathNEWS Online"`, e.Message["new_value"])
	})

	t.Run("add has a null old value", func(t *testing.T) {
		f := newFixture(t)
		f.observer.OptionChanged(ctx, NewRequestContext(1), OptionChange{Key: "posts_per_page", Value: 20, Added: true})

		e := f.only(t)
		assert.Contains(t, e.Message, "old_value")
		assert.Nil(t, e.Message["old_value"])
		// numeric text is stored as a number
		assert.Equal(t, float64(20), e.Message["new_value"])
	})
}

func TestOptionChanged_Suppressed(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		actor int64
		key   string
	}{
		{"secret option, even for an editor", 5, "mn_email_smtp_config__password"},
		{"secret option for an administrator", 1, "mn_email_smtp_config__password"},
		{"api key", 1, "MAILGUN_API_KEY"},
		{"transient", 1, "_transient_feed_123"},
		{"site transient", 1, "_site_transient_update_core"},
		{"theme mods", 1, "theme_mods_twentytwenty"},
		{"widget", 1, "widget_recent-posts"},
		{"exact key", 1, "cron"},
		{"another exact key", 1, "recently_edited"},
		{"configured key", 1, "mn_last_digest_sent"},
		{"configured prefix", 1, "jetpack_sync_queue"},
		{"no actor", 0, "blogname"},
		{"not an administrator", 5, "blogname"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.observer.denied = newDenyList([]string{"mn_last_digest_sent"}, []string{"jetpack_"})
			f.observer.OptionChanged(ctx, NewRequestContext(tt.actor), OptionChange{Key: tt.key, OldValue: "a", Value: "b"})
			assert.Empty(t, f.entries(t))
		})
	}
}

func TestOptionChanged_CurrentIssue(t *testing.T) {
	ctx := context.Background()

	t.Run("first time", func(t *testing.T) {
		f := newFixture(t)
		f.observer.OptionChanged(ctx, NewRequestContext(1), OptionChange{
			Key:   site.OptionCurrentIssue,
			Value: []interface{}{"150", "1"},
			Added: true,
		})

		e := f.only(t)
		assert.Equal(t, audit.ActionCurrentIssueUpdate, e.Action)
		assert.Nil(t, e.Message["old_tag"])
		assert.Equal(t, "v150i1", e.Message["new_tag"])
		assert.Equal(t, float64(0), e.Message["num_posts"])
	})

	t.Run("rollover moves pending submissions", func(t *testing.T) {
		f := newFixture(t)
		rc := &RequestContext{ActorID: 1, MovedToDraft: 7}
		f.observer.OptionChanged(ctx, rc, OptionChange{
			Key:      site.OptionCurrentIssue,
			OldValue: `["150","3"]`,
			Value:    []string{"150", "4"},
		})

		e := f.only(t)
		assert.Equal(t, "v150i3", e.Message["old_tag"])
		assert.Equal(t, "v150i4", e.Message["new_tag"])
		assert.Equal(t, float64(7), e.Message["num_posts"])
	})
}

func TestOptionChanged_Retention(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.observer.OptionChanged(ctx, NewRequestContext(1), OptionChange{Key: site.OptionRetentionDays, OldValue: "90", Value: "45"})
	// cron and other actorless writers still move the window
	f.observer.OptionChanged(ctx, NewRequestContext(0), OptionChange{Key: site.OptionRetentionDays, Value: 120, Added: true})
	f.observer.OptionChanged(ctx, NewRequestContext(1), OptionChange{Key: site.OptionRetentionDays, Value: "soon"})

	assert.Equal(t, []int{45, 120}, f.retention.days)

	entries := f.entries(t)
	require.Len(t, entries, 2)
	assert.Equal(t, site.OptionRetentionDays, entries[1].Message["option"])
	assert.Equal(t, `"45"`, entries[1].Message["new_value"])
}

func TestDenyList(t *testing.T) {
	d := newDenyList(nil, nil)
	assert.False(t, d.denies("blogname"))
	assert.False(t, d.denies(site.OptionRetentionDays))
	assert.False(t, d.denies(site.OptionCurrentIssue))
	assert.True(t, d.denies("wordpress_api_key"))
	assert.True(t, d.denies("smtp_Password"))
	assert.True(t, d.denies("oauth_client_secret"))
}
