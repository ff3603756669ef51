package site

// Post types masthead knows about
const (
	TypePost = "post"
	TypePage = "page"
)

// Post statuses
const (
	StatusAutoDraft = "auto-draft"
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusPublish   = "publish"
	StatusFuture    = "future"
	StatusPrivate   = "private"
	StatusTrash     = "trash"
)

// Option keys
const (
	OptionCurrentIssue    = "mn_current_issue"
	OptionRetentionDays   = "mn_audit_persist_days"
	OptionDefaultCategory = "default_category"
)

// Post is a snapshot of one piece of content
type Post struct {
	ID         int64    `json:"id" yaml:"id"`
	Type       string   `json:"type" yaml:"type"`
	Status     string   `json:"status" yaml:"status"`
	AuthorID   int64    `json:"author_id" yaml:"author_id"`
	Title      string   `json:"title" yaml:"title"`
	Content    string   `json:"content,omitempty" yaml:"content,omitempty"`
	Categories []int64  `json:"categories,omitempty" yaml:"categories,omitempty"`
	Tags       []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// IsAuditedType reports whether changes to this post type are audited
func (p *Post) IsAuditedType() bool {
	return p.Type == TypePost || p.Type == TypePage
}

// User is a CMS account
type User struct {
	ID          int64    `json:"id" yaml:"id"`
	Login       string   `json:"login" yaml:"login"`
	DisplayName string   `json:"display_name" yaml:"display_name"`
	Roles       []string `json:"roles" yaml:"roles"`
}

// Name returns the display name, falling back to the login
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Login
}
