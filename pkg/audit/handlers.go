package audit

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/masthead/pkg/contextkeys"
	"github.com/platinummonkey/masthead/pkg/httputil"
	"github.com/platinummonkey/masthead/pkg/observability"
)

// Nonce transport
const (
	NonceHeader     = "X-Audit-Nonce"
	NonceQueryParam = "_nonce"
)

// Handlers provides HTTP handlers for the audit log screen
type Handlers struct {
	queries *QueryService
	noncer  *Noncer
	logger  *observability.Logger
}

// NewHandlers creates new audit handlers
func NewHandlers(queries *QueryService, noncer *Noncer, logger *observability.Logger) *Handlers {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Handlers{
		queries: queries,
		noncer:  noncer,
		logger:  logger,
	}
}

// RegisterRoutes registers audit log routes. The router must run
// middleware.ActorMiddleware so the viewer is known.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/audit/nonce", h.issueNonce).Methods("GET")
	router.HandleFunc("/audit/entries", h.listEntries).Methods("GET")
	router.HandleFunc("/audit/actors", h.listActors).Methods("GET")
	router.HandleFunc("/audit/actions", h.listActions).Methods("GET")
	router.HandleFunc("/audit/export", h.exportEntries).Methods("GET")
}

// issueNonce handles GET /audit/nonce
func (h *Handlers) issueNonce(w http.ResponseWriter, r *http.Request) {
	viewer := contextkeys.GetActorID(r.Context())
	if err := h.queries.Authorize(r.Context(), viewer); err != nil {
		h.writeQueryError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"nonce": h.noncer.Issue(viewer, NonceAction),
	})
}

// listEntries handles GET /audit/entries
func (h *Handlers) listEntries(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.verifyNonce(w, r)
	if !ok {
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	page, err := h.queries.List(r.Context(), viewer, filter)
	if err != nil {
		h.writeQueryError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

// listActors handles GET /audit/actors
func (h *Handlers) listActors(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.verifyNonce(w, r)
	if !ok {
		return
	}

	actors, err := h.queries.Actors(r.Context(), viewer)
	if err != nil {
		h.writeQueryError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"actors": actors})
}

// listActions handles GET /audit/actions
func (h *Handlers) listActions(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.verifyNonce(w, r); !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"actions": h.queries.ActionFilters()})
}

// exportEntries handles GET /audit/export
func (h *Handlers) exportEntries(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.verifyNonce(w, r)
	if !ok {
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	format := ExportFormat(httputil.QueryString(r, "format", string(ExportFormatNDJSON)))
	if format != ExportFormatNDJSON && format != ExportFormatCSV {
		httputil.WriteBadRequest(w, fmt.Sprintf("unsupported export format: %s", format))
		return
	}

	entries, err := h.queries.Entries(r.Context(), viewer, filter)
	if err != nil {
		h.writeQueryError(w, r, err)
		return
	}

	switch format {
	case ExportFormatCSV:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=audit-log.csv")
	default:
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Content-Disposition", "attachment; filename=audit-log.ndjson")
	}

	if err := Export(w, entries, format); err != nil {
		h.logger.WithError(err).Error("Failed to write audit export")
	}
}

// verifyNonce checks the request token and returns the viewer
func (h *Handlers) verifyNonce(w http.ResponseWriter, r *http.Request) (int64, bool) {
	viewer := contextkeys.GetActorID(r.Context())

	token := r.Header.Get(NonceHeader)
	if token == "" {
		token = r.URL.Query().Get(NonceQueryParam)
	}
	if err := h.noncer.Verify(token, viewer, NonceAction); err != nil {
		httputil.WriteForbidden(w, err.Error())
		return 0, false
	}
	return viewer, true
}

func (h *Handlers) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrUnauthorized) {
		httputil.WriteForbidden(w, ErrUnauthorized.Error())
		return
	}
	h.logger.WithError(err).
		WithField("request_id", contextkeys.GetRequestID(r.Context())).
		Error("Audit log query failed")
	httputil.WriteInternalError(w)
}

// parseFilter reads actor_id, action and before_id from the query string.
// The action prefix is matched case-insensitively.
func parseFilter(r *http.Request) (Filter, error) {
	var filter Filter
	var err error

	if filter.ActorID, err = httputil.QueryInt64(r, "actor_id"); err != nil {
		return Filter{}, err
	}
	if filter.BeforeID, err = httputil.QueryInt64(r, "before_id"); err != nil {
		return Filter{}, err
	}
	// Actions are lower case; LIKE folds case on sqlite only
	filter.Action = strings.ToLower(httputil.QueryString(r, "action", ""))
	if len(filter.Action) > MaxActionLength {
		return Filter{}, fmt.Errorf("action filter is longer than %d characters", MaxActionLength)
	}
	return filter, nil
}
