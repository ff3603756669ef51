// Package config loads masthead configuration from environment variables and
// an optional YAML file.
//
// # Overview
//
// LoadConfig reads MASTHEAD_* variables with defaults for every setting, then
// decodes the file named by MASTHEAD_CONFIG_FILE on top. Keys missing from the
// file keep their environment values.
//
// # Environment
//
// Server settings:
//
//	MASTHEAD_HOST="0.0.0.0"
//	MASTHEAD_PORT="8080"
//	MASTHEAD_HEALTH_PORT="9090"
//
// Database settings:
//
//	MASTHEAD_DB_DRIVER="postgres"  # postgres, sqlite3
//	MASTHEAD_DB_DSN="postgres://localhost/mathnews?sslmode=disable"
//	MASTHEAD_AUDIT_TABLE="mn_audit_log"
//	MASTHEAD_SITE_SOURCE="sql"     # memory, sql
//
// Retention settings:
//
//	MASTHEAD_RETENTION_DAYS="90"
//	MASTHEAD_RETENTION_SCHEDULE="@daily"
//	MASTHEAD_RETENTION_LOCK="true"  # needs MASTHEAD_REDIS_URL
//	MASTHEAD_ARCHIVE="s3"           # s3, file
//	MASTHEAD_S3_BUCKET="mathnews-audit"
//
// Secrets:
//
//	MASTHEAD_NONCE_SECRET="at least sixteen bytes"
//	MASTHEAD_WEBHOOK_SECRET="shared with the CMS"
//
// # File
//
//	retention:
//	  days: 120
//	observers:
//	  denied_option_keys: [mn_banner_seed]
//	site:
//	  users:
//	    - {id: 1, login: admin, display_name: Ada Admin, roles: [administrator]}
//	  categories: {1: Uncategorized}
//	  options: {mn_current_issue: ["150", "3"]}
//
// A Watcher reloads the file and reports changes to retention.days.
//
// # Related Packages
//
//   - pkg/audit: retention bounds
//   - pkg/site: the seeded in-memory site
package config
