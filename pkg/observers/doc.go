// Package observers turns CMS lifecycle signals into audit entries.
//
// Each signal family has one method on Observer. The method decides whether
// the signal is worth an entry (suppression rules), builds the message, and
// hands it to the injected Recorder. Recording failures are logged and
// counted but never returned: an audit problem must not fail the editor's
// save.
//
// Per-request state (editorial flags from the submitted form, whether a user
// is being created, which targets already got an entry) travels in a
// RequestContext built once per request by the caller.
//
// Content updates are decided by an ordered rule list evaluated top to
// bottom, first match wins:
//
//  1. content type other than post or page: ignored
//  2. reject flag on an article: post.reject
//  3. approve flag on an article: post.approve
//  4. page: page.create or page.update
//  5. article edited by its own author: suppressed
//  6. article: post.create or post.update
//
// An update whose computed deltas are empty is suppressed afterwards.
package observers
