package audit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var queryTracer = otel.Tracer("masthead/audit/query")

// Default capabilities checked by the query service
const (
	DefaultReadCapability      = "manage_options"
	DefaultModeratorCapability = "edit_others_posts"
)

// Authorizer answers capability questions about users
type Authorizer interface {
	Can(ctx context.Context, userID int64, capability string) (bool, error)
	ListWithCapability(ctx context.Context, capability string) ([]int64, error)
}

// Directory resolves the names shown next to entries. IDs it cannot
// resolve are simply absent from the returned maps.
type Directory interface {
	DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error)
	Logins(ctx context.Context, ids []int64) (map[int64]string, error)
	PostTitles(ctx context.Context, ids []int64) (map[int64]string, error)
}

// QueryOptions configures a QueryService
type QueryOptions struct {
	// ReadCapability is required to read the log
	ReadCapability string
	// ModeratorCapability selects the users offered in the actor filter
	ModeratorCapability string
	Metrics             *Metrics
}

// ActorOption is one choice of the actor filter
type ActorOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// QueryService is the read path over the log
type QueryService struct {
	store     Store
	auth      Authorizer
	directory Directory
	presenter *Presenter
	opts      QueryOptions
}

// NewQueryService creates a query service
func NewQueryService(store Store, auth Authorizer, directory Directory, presenter *Presenter, opts QueryOptions) (*QueryService, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if auth == nil || directory == nil {
		return nil, fmt.Errorf("authorizer and directory are required")
	}
	if presenter == nil {
		presenter = NewPresenter()
	}
	if opts.ReadCapability == "" {
		opts.ReadCapability = DefaultReadCapability
	}
	if opts.ModeratorCapability == "" {
		opts.ModeratorCapability = DefaultModeratorCapability
	}
	return &QueryService{
		store:     store,
		auth:      auth,
		directory: directory,
		presenter: presenter,
		opts:      opts,
	}, nil
}

// Authorize returns ErrUnauthorized unless viewerID may read the log
func (q *QueryService) Authorize(ctx context.Context, viewerID int64) error {
	if viewerID == 0 {
		return ErrUnauthorized
	}
	ok, err := q.auth.Can(ctx, viewerID, q.opts.ReadCapability)
	if err != nil {
		return fmt.Errorf("failed to check capability: %w", err)
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

// List returns one page of entries matching filter, newest first.
// HasMore comes from a separate COUNT under the same filter, so an entry
// written between the two queries can make it briefly inaccurate.
func (q *QueryService) List(ctx context.Context, viewerID int64, filter Filter) (*Page, error) {
	ctx, span := queryTracer.Start(ctx, "audit.query.list",
		trace.WithAttributes(
			attribute.Int64("audit.actor_filter", filter.ActorID),
			attribute.String("audit.action_filter", filter.Action),
			attribute.Int64("audit.before_id", filter.BeforeID),
		))
	defer span.End()

	if err := q.Authorize(ctx, viewerID); err != nil {
		q.countQuery("denied")
		return nil, err
	}

	filter.Limit = filter.limit()
	entries, err := q.store.List(ctx, filter)
	if err != nil {
		q.countQuery("error")
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	total, err := q.store.Count(ctx, filter)
	if err != nil {
		q.countQuery("error")
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count audit entries: %w", err)
	}

	views, err := q.join(ctx, entries)
	if err != nil {
		q.countQuery("error")
		return nil, err
	}

	q.countQuery("ok")
	return &Page{
		Entries: views,
		HasMore: total > int64(filter.Limit),
	}, nil
}

// Entries returns every entry matching filter, newest first, for export.
// filter.Limit is ignored.
func (q *QueryService) Entries(ctx context.Context, viewerID int64, filter Filter) ([]*Entry, error) {
	if err := q.Authorize(ctx, viewerID); err != nil {
		return nil, err
	}

	var all []*Entry
	filter.Limit = 500
	for {
		batch, err := q.store.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list audit entries: %w", err)
		}
		all = append(all, batch...)
		if len(batch) < filter.Limit {
			return all, nil
		}
		filter.BeforeID = batch[len(batch)-1].ID
	}
}

// Actors lists the users offered by the actor filter
func (q *QueryService) Actors(ctx context.Context, viewerID int64) ([]ActorOption, error) {
	if err := q.Authorize(ctx, viewerID); err != nil {
		return nil, err
	}

	ids, err := q.auth.ListWithCapability(ctx, q.opts.ModeratorCapability)
	if err != nil {
		return nil, fmt.Errorf("failed to list moderators: %w", err)
	}
	names, err := q.directory.DisplayNames(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve moderator names: %w", err)
	}

	actors := make([]ActorOption, 0, len(ids))
	for _, id := range ids {
		actors = append(actors, ActorOption{ID: id, Name: names[id]})
	}
	return actors, nil
}

// ActionFilters lists the choices of the action filter
func (q *QueryService) ActionFilters() []ActionFilter {
	return q.presenter.ActionFilters()
}

// join attaches actor and target names and renders each entry
func (q *QueryService) join(ctx context.Context, entries []*Entry) ([]View, error) {
	var actorIDs, postIDs, userIDs []int64
	for _, e := range entries {
		if e.ActorID != 0 {
			actorIDs = append(actorIDs, e.ActorID)
		}
		if e.TargetID == nil {
			continue
		}
		switch e.Unit() {
		case UnitPost, UnitPage:
			postIDs = append(postIDs, *e.TargetID)
		case UnitUser:
			userIDs = append(userIDs, *e.TargetID)
		}
	}

	actors, err := q.directory.DisplayNames(ctx, actorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve actors: %w", err)
	}
	titles, err := q.directory.PostTitles(ctx, postIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve post titles: %w", err)
	}
	logins, err := q.directory.Logins(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user logins: %w", err)
	}

	views := make([]View, 0, len(entries))
	for _, e := range entries {
		v := View{Entry: *e}

		switch name, ok := actors[e.ActorID]; {
		case e.ActorID == 0:
			v.ActorName = SystemActorPlaceholder
		case ok:
			v.ActorName = name
		default:
			v.ActorName = DeletedUserPlaceholder
		}

		if e.TargetID != nil {
			v.TargetName = targetName(e.Unit(), *e.TargetID, titles, logins)
		}

		q.presenter.Render(&v)
		views = append(views, v)
	}
	return views, nil
}

func targetName(unit string, id int64, titles, logins map[int64]string) string {
	switch unit {
	case UnitPost:
		if t, ok := titles[id]; ok {
			return t
		}
		return DeletedPostPlaceholder
	case UnitPage:
		if t, ok := titles[id]; ok {
			return t
		}
		return DeletedPagePlaceholder
	case UnitUser:
		if l, ok := logins[id]; ok {
			return l
		}
		return DeletedUserPlaceholder
	default:
		return ""
	}
}

func (q *QueryService) countQuery(status string) {
	if q.opts.Metrics != nil {
		q.opts.Metrics.QueriesTotal.WithLabelValues(status).Inc()
	}
}
