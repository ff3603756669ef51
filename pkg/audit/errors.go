package audit

import "errors"

var (
	// ErrMalformedAction is returned by the recorder for an action that is empty,
	// too long or not shaped unit.verb[.suffix]. It always indicates a caller bug.
	ErrMalformedAction = errors.New("malformed audit action")

	// ErrUnauthorized is returned when the viewer may not read the audit log
	ErrUnauthorized = errors.New("not allowed to read the audit log")

	// ErrStoreRequired is returned by constructors given a nil store
	ErrStoreRequired = errors.New("audit store is required")
)
