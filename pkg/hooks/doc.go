// Package hooks delivers CMS lifecycle signals to the audit observers.
//
// # Overview
//
// A Bus holds the handlers registered for each Signal and runs them in
// registration order. A handler that panics is recovered and reported as an
// error; the remaining handlers still run.
//
// The CMS reaches the bus through a signed webhook:
//
//	POST /hooks/post.saved
//	X-Masthead-Signature: sha256=<hex HMAC-SHA256 of the body>
//
//	{
//	  "request": {"actor_id": 5, "reject": true, "reject_rationale": "Too long."},
//	  "payload": {"previous": {...}, "post": {...}}
//	}
//
// Every signal of one CMS request must carry the same request_id so that
// later signals see what earlier ones recorded.
//
// # Signals
//
// post.saved, post.transition, post.deleted
// plugin.activated, plugin.deactivated
// option.added, option.updated
// user.registered, user.deleted, user.role_set, user.password_reset
//
// # Related Packages
//
//   - pkg/observers: the handlers attached with Attach
package hooks
