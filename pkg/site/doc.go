// Package site describes the parts of the CMS that masthead reads from: users
// and their capabilities, posts, category terms and site options.
//
// The CMS owns this data. masthead only looks things up (to decide whether an
// action is worth auditing, and to attach names to entries when they are
// read) and keeps a mirror of the few options it needs.
//
// Memory backs tests and single node setups. SQLDirectory reads the CMS
// database directly and is usually wrapped in a CachedDirectory.
package site
