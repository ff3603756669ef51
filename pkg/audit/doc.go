// Package audit records and serves the editorial audit log.
//
// # Overview
//
// Every state-changing action an editor or administrator performs on the site
// (approving or rejecting a submission, editing a page, changing a setting,
// managing users or plugins) is written as one immutable Entry. Entries are
// appended through a Recorder, read back through a QueryService, rendered for
// people by a Presenter and purged by a RetentionManager.
//
// # Actions
//
// Action strings have the shape unit.verb[.suffix]:
//
//	post.approve, post.reject, post.update, post.delete
//	page.create, page.update, page.delete
//	plugin.create, plugin.delete
//	settings.update, cur_issue.update
//	user.create, user.delete, user.update.role, user.update.reset_password
//
// # Usage Example
//
// Record a rejection:
//
//	err := recorder.Append(ctx, "post.reject", editorID, postID, audit.Message{
//		"rationale": "too long",
//		"returned":  true,
//		"notified":  true,
//	})
//
// Page backwards through approvals:
//
//	page, err := queries.List(ctx, viewerID, audit.Filter{Action: "post.approve"})
//	next, err := queries.List(ctx, viewerID, audit.Filter{
//		Action:   "post.approve",
//		BeforeID: page.Entries[len(page.Entries)-1].ID,
//	})
//
// # Retention Policy
//
// Default: 90 days, bounded to 30..365
// Trigger: daily cron plus an immediate pass whenever the window changes
// Archiving: optional NDJSON export to S3 or a local file before deletion
package audit
