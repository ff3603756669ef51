package observers

import "sync"

// RequestContext carries the validated state of the request that raised a
// signal. A context is not shared between goroutines; signals of the same
// request are linked with Continue.
type RequestContext struct {
	// ActorID is the user performing the request, 0 for cron and other
	// unauthenticated callers
	ActorID int64 `json:"actor_id"`

	// Editorial decision submitted with a content save
	IsApprove           bool   `json:"approve,omitempty"`
	IsReject            bool   `json:"reject,omitempty"`
	RejectRationale     string `json:"reject_rationale,omitempty"`
	RejectReturnToDraft bool   `json:"reject_return_to_draft,omitempty"`
	RejectNotifyAuthor  bool   `json:"reject_notify_author,omitempty"`

	// CreatingUser is set while the add-user form is processed
	CreatingUser bool `json:"creating_user,omitempty"`

	// MovedToDraft is how many pending submissions a current issue change
	// returned to draft
	MovedToDraft int `json:"moved_to_draft,omitempty"`

	targets *recordedTargets
}

// recordedTargets is the set of targets written during one request. Every
// signal of the request shares it.
type recordedTargets struct {
	mu  sync.Mutex
	ids map[int64]bool
}

func newRecordedTargets() *recordedTargets {
	return &recordedTargets{ids: make(map[int64]bool)}
}

// NewRequestContext creates a context for a request made by actorID
func NewRequestContext(actorID int64) *RequestContext {
	return &RequestContext{ActorID: actorID, targets: newRecordedTargets()}
}

// Continue makes rc a later signal of the request prev belongs to. rc keeps
// its own flags and shares the targets prev recorded. A nil prev starts a
// new request. Call it before rc is handed to any observer.
func (rc *RequestContext) Continue(prev *RequestContext) {
	if prev != nil && prev.targets != nil {
		rc.targets = prev.targets
		return
	}
	rc.targets = newRecordedTargets()
}

func (rc *RequestContext) markRecorded(targetID int64) {
	if rc.targets == nil {
		rc.targets = newRecordedTargets()
	}
	rc.targets.mu.Lock()
	defer rc.targets.mu.Unlock()
	rc.targets.ids[targetID] = true
}

// Recorded reports whether an entry targeting targetID was already written
// during this request
func (rc *RequestContext) Recorded(targetID int64) bool {
	if rc.targets == nil {
		return false
	}
	rc.targets.mu.Lock()
	defer rc.targets.mu.Unlock()
	return rc.targets.ids[targetID]
}
