package observers

import (
	"context"
	"strconv"
	"strings"

	"github.com/platinummonkey/masthead/pkg/audit"
	"github.com/platinummonkey/masthead/pkg/site"
)

// Signal names used in metrics and logs
const (
	signalContentSave      = "post.saved"
	signalStatusTransition = "post.transition"
	signalContentDeletion  = "post.deleted"
)

// contentUpdate is what the content rules look at
type contentUpdate struct {
	rc        *RequestContext
	save      ContentSave
	moderator bool
}

func (c *contentUpdate) isArticle() bool { return c.save.Post.Type == site.TypePost }

// contentRule returns matched=false to fall through to the next rule. A
// matched rule with an empty action suppresses the entry.
type contentRule struct {
	name  string
	apply func(c *contentUpdate) (action string, matched bool)
}

// contentRules are evaluated in order, first match wins
var contentRules = []contentRule{
	{"unaudited type", func(c *contentUpdate) (string, bool) {
		return "", !c.save.Post.IsAuditedType()
	}},
	{"reject", func(c *contentUpdate) (string, bool) {
		return audit.ActionPostReject, c.isArticle() && c.moderator && c.rc.IsReject
	}},
	{"approve", func(c *contentUpdate) (string, bool) {
		return audit.ActionPostApprove, c.isArticle() && c.moderator && c.rc.IsApprove
	}},
	{"page", func(c *contentUpdate) (string, bool) {
		if c.save.Post.Type != site.TypePage {
			return "", false
		}
		if c.save.IsNew() {
			return audit.ActionPageCreate, true
		}
		return audit.ActionPageUpdate, true
	}},
	{"own article", func(c *contentUpdate) (string, bool) {
		return "", c.isArticle() && c.rc.ActorID == c.save.Post.AuthorID
	}},
	{"article", func(c *contentUpdate) (string, bool) {
		if c.save.IsNew() {
			return audit.ActionPostCreate, true
		}
		return audit.ActionPostUpdate, true
	}},
}

// chooseContentAction runs the rule list and names the rule that decided
func chooseContentAction(c *contentUpdate) (action, rule string) {
	for _, r := range contentRules {
		if action, ok := r.apply(c); ok {
			return action, r.name
		}
	}
	return "", "none"
}

// ContentSaved records a create, edit, approval or rejection of a post or page
func (o *Observer) ContentSaved(ctx context.Context, rc *RequestContext, save ContentSave) {
	if rc.ActorID == 0 {
		o.suppress(signalContentSave, "no actor")
		return
	}

	c := &contentUpdate{rc: rc, save: save}
	if rc.IsApprove || rc.IsReject {
		c.moderator = o.can(ctx, rc.ActorID, site.CapEditOthersPosts)
	}

	action, rule := chooseContentAction(c)
	if action == "" {
		o.suppress(signalContentSave, rule)
		return
	}

	deltas := o.contentDeltas(ctx, save)
	if strings.HasSuffix(action, ".update") && len(deltas) == 0 {
		o.suppress(signalContentSave, "no changes")
		return
	}

	message := audit.Message{"deltas": deltas}
	if action == audit.ActionPostReject {
		message["rationale"] = firstSentence(rc.RejectRationale)
		message["returned"] = rc.RejectReturnToDraft
		message["notified"] = rc.RejectNotifyAuthor
	}

	o.record(ctx, rc, signalContentSave, action, targetOf(save.Post.ID), message)
}

// contentDeltas compares the saved content with what was stored. Categories
// and tags are only tracked for articles.
func (o *Observer) contentDeltas(ctx context.Context, save ContentSave) map[string]interface{} {
	prev := site.Post{Status: site.StatusAutoDraft}
	if save.Previous != nil {
		prev = *save.Previous
	}
	next := save.Post
	deltas := map[string]interface{}{}

	if next.Type == site.TypePost {
		categories := next.Categories
		if len(categories) == 0 {
			categories = o.defaultCategory(ctx)
		}
		added, removed := setDiff(prev.Categories, categories)
		if len(added) > 0 || len(removed) > 0 {
			deltas["categories"] = map[string]interface{}{
				"added":   o.terms.names(ctx, added, o.metrics),
				"removed": o.terms.names(ctx, removed, o.metrics),
			}
		}

		tags := next.Tags
		if next.Status == site.StatusPending && len(tags) == 0 {
			tags = []string{site.CurrentIssueFrom(ctx, o.options).Tag()}
		}
		addedTags, removedTags := setDiff(prev.Tags, tags)
		if len(addedTags) > 0 || len(removedTags) > 0 {
			deltas["tags"] = map[string]interface{}{
				"added":   addedTags,
				"removed": removedTags,
			}
		}
	}

	if prev.Status != next.Status {
		deltas["status"] = map[string]interface{}{
			"old": prev.Status,
			"new": next.Status,
		}
	}
	if prev.Content != next.Content {
		deltas["content"] = true
	}
	return deltas
}

// defaultCategory reads the category assigned to articles saved without one
func (o *Observer) defaultCategory(ctx context.Context) []int64 {
	value, ok, err := o.options.Get(ctx, site.OptionDefaultCategory)
	if err != nil || !ok {
		return nil
	}

	var id int64
	switch v := value.(type) {
	case int:
		id = int64(v)
	case int64:
		id = v
	case float64:
		id = int64(v)
	case string:
		id, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil
		}
	default:
		return nil
	}
	if id <= 0 {
		return nil
	}
	return []int64{id}
}

// StatusChanged records a status change not already covered by another entry
// of the same request
func (o *Observer) StatusChanged(ctx context.Context, rc *RequestContext, t StatusTransition) {
	post := t.Post
	switch {
	case !post.IsAuditedType():
		o.suppress(signalStatusTransition, "unaudited type")
		return
	case t.OldStatus == t.NewStatus:
		o.suppress(signalStatusTransition, "same status")
		return
	case rc.ActorID == 0:
		o.suppress(signalStatusTransition, "no actor")
		return
	case post.Type == site.TypePost && rc.ActorID == post.AuthorID:
		o.suppress(signalStatusTransition, "own article")
		return
	case rc.Recorded(post.ID):
		o.suppress(signalStatusTransition, "already recorded")
		return
	}

	o.record(ctx, rc, signalStatusTransition, post.Type+".update", targetOf(post.ID), audit.Message{
		"deltas": map[string]interface{}{
			"status": map[string]interface{}{
				"old": t.OldStatus,
				"new": t.NewStatus,
			},
		},
	})
}

// ContentDeleted records the permanent deletion of a post or page. The
// entry has no target since the content is gone; its title is kept instead.
func (o *Observer) ContentDeleted(ctx context.Context, rc *RequestContext, d ContentDeletion) {
	post := d.Post
	switch {
	case !post.IsAuditedType():
		o.suppress(signalContentDeletion, "unaudited type")
		return
	case rc.ActorID == 0:
		o.suppress(signalContentDeletion, "no actor")
		return
	case !o.can(ctx, rc.ActorID, site.CapDeleteOthersPosts):
		o.suppress(signalContentDeletion, "not a moderator")
		return
	case post.Type == site.TypePost && rc.ActorID == post.AuthorID:
		o.suppress(signalContentDeletion, "own article")
		return
	}

	o.record(ctx, rc, signalContentDeletion, post.Type+".delete", nil, audit.Message{
		"post_title": post.Title,
	})
}
