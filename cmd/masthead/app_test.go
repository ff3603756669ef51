package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/masthead/pkg/audit"
	"github.com/platinummonkey/masthead/pkg/config"
	"github.com/platinummonkey/masthead/pkg/hooks"
	"github.com/platinummonkey/masthead/pkg/observability"
	"github.com/platinummonkey/masthead/pkg/site"
)

const (
	testWebhookSecret = "cms-webhook-secret"
	adminToken        = "admin-token"
	writerToken       = "writer-token"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{Port: "8080", HealthPort: "9090"},
		Database: config.DatabaseConfig{
			Driver:       "sqlite3",
			DSN:          filepath.Join(t.TempDir(), "masthead.db"),
			Table:        audit.DefaultTableName,
			MaxOpenConns: 1,
			SiteSource:   config.SiteSourceMemory,
		},
		Retention: config.RetentionConfig{
			Days:     audit.DefaultRetentionDays,
			Schedule: audit.DefaultRetentionSchedule,
		},
		Security: config.SecurityConfig{
			NonceSecret:   "0123456789abcdef0123",
			WebhookSecret: testWebhookSecret,
			APITokens:     map[string]int64{adminToken: 1, writerToken: 9},
		},
		Site: config.SiteSeed{
			Users: []site.User{
				{ID: 1, Login: "admin", DisplayName: "Ada Admin", Roles: []string{site.RoleAdministrator}},
				{ID: 9, Login: "writer", DisplayName: "Wren Writer", Roles: []string{site.RoleContributor}},
			},
			Options: map[string]interface{}{site.OptionRetentionDays: "45"},
		},
		Observability: config.ObservabilityConfig{MetricsEnabled: true},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *app {
	t.Helper()
	a, err := newApp(context.Background(), cfg, observability.NewLogger(observability.ErrorLevel, io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { a.close() })
	return a
}

func deliver(t *testing.T, h http.Handler, signal string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/hooks/"+signal, strings.NewReader(body))
	req.Header.Set(hooks.SignatureHeader, hooks.Sign([]byte(body), testWebhookSecret))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, path, token, nonce string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if nonce != "" {
		req.Header.Set(audit.NonceHeader, nonce)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAppRecordsAndServesEntries(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	h := a.handler()

	rec := deliver(t, h, "plugin.activated",
		`{"request_id":"r-1","request":{"actor_id":1},"payload":{"plugin":"akismet/akismet.php"}}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = get(h, "/audit/nonce", adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var nonce map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &nonce))

	rec = get(h, "/audit/entries", adminToken, nonce["nonce"])
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var page audit.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Entries, 1)
	assert.False(t, page.HasMore)
	assert.Equal(t, audit.ActionPluginCreate, page.Entries[0].Action)
	assert.Equal(t, "Ada Admin activated plugin akismet/akismet.php", page.Entries[0].Summary)
}

func TestAppRefusesReaders(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	h := a.handler()

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"anonymous", "", http.StatusForbidden},
		{"contributor", writerToken, http.StatusForbidden},
		{"unknown token", "nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(h, "/audit/nonce", tt.token, "")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAppUsesStoredRetention(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	assert.Equal(t, 45, a.retention.RetentionDays())
}

func TestAppRetentionOptionUpdate(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	h := a.handler()

	rec := deliver(t, h, "option.updated",
		`{"request_id":"r-2","request":{"actor_id":1},"payload":{"option":"mn_audit_persist_days","old_value":"45","value":"120"}}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, 120, a.retention.RetentionDays())
}

func TestAppHealthAndMetrics(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.URL = "redis://" + mr.Addr()
	cfg.Retention.Lock = true

	a := newTestApp(t, cfg)

	rec := httptest.NewRecorder()
	a.health.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Reads are rate limited once redis is configured
	rec = get(a.handler(), "/audit/actions", adminToken, "")
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Limit"))

	rec = httptest.NewRecorder()
	a.health.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "masthead_http_requests_total")
}

func TestNewAppFailsOnBadArchiveDir(t *testing.T) {
	cfg := testConfig(t)
	notDir := filepath.Join(t.TempDir(), "archive")
	require.NoError(t, os.WriteFile(notDir, []byte("x"), 0o600))
	cfg.Retention.Archive = config.ArchiveConfig{Kind: config.ArchiveFile, Dir: filepath.Join(notDir, "audit")}

	_, err := newApp(context.Background(), cfg, observability.NewLogger(observability.ErrorLevel, io.Discard))
	assert.Error(t, err)
}
