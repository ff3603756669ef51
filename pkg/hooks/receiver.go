package hooks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/masthead/pkg/contextkeys"
	"github.com/platinummonkey/masthead/pkg/httputil"
	"github.com/platinummonkey/masthead/pkg/observability"
	"github.com/platinummonkey/masthead/pkg/observers"
)

const (
	maxEnvelopeBytes = 1 << 20

	defaultRequestCacheSize = 1024
	defaultRequestCacheTTL  = 5 * time.Minute
)

// envelope is the body of a signal delivery
type envelope struct {
	RequestID string                    `json:"request_id"`
	Request   *observers.RequestContext `json:"request"`
	Payload   json.RawMessage           `json:"payload"`
}

// ReceiverOptions configures a Receiver
type ReceiverOptions struct {
	Secret      string
	RateLimiter *RateLimiter
	Logger      *observability.Logger
}

// Receiver accepts signed signal deliveries from the CMS and emits them on a bus
type Receiver struct {
	bus     *Bus
	secret  string
	limiter *RateLimiter
	logger  *observability.Logger

	mu       sync.Mutex
	requests *expirable.LRU[string, *observers.RequestContext]
}

// NewReceiver creates a receiver
func NewReceiver(bus *Bus, opts ReceiverOptions) (*Receiver, error) {
	if bus == nil {
		return nil, fmt.Errorf("bus is required")
	}
	if opts.Secret == "" {
		return nil, fmt.Errorf("webhook secret is required")
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Receiver{
		bus:      bus,
		secret:   opts.Secret,
		limiter:  opts.RateLimiter,
		requests: expirable.NewLRU[string, *observers.RequestContext](defaultRequestCacheSize, nil, defaultRequestCacheTTL),
		logger:   opts.Logger.WithField("component", "hooks_receiver"),
	}, nil
}

// RegisterRoutes registers the delivery route
func (rv *Receiver) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/hooks/{signal}", rv.receive).Methods("POST")
}

// receive handles POST /hooks/{signal}
func (rv *Receiver) receive(w http.ResponseWriter, r *http.Request) {
	if rv.limiter != nil && !rv.limiter.Allow(senderOf(r)) {
		httputil.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	name, ok := httputil.PathParam(w, r, "signal")
	if !ok {
		return
	}
	signal := Signal(name)
	if !signal.Known() {
		httputil.WriteBadRequest(w, fmt.Sprintf("unknown signal: %s", name))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxEnvelopeBytes))
	if err != nil {
		httputil.WriteBadRequest(w, "failed to read body")
		return
	}
	if !VerifySignature(body, r.Header.Get(SignatureHeader), rv.secret) {
		httputil.WriteUnauthorized(w, "invalid signature")
		return
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		httputil.WriteBadRequest(w, "invalid envelope")
		return
	}
	payload := payloadTypes[signal]()
	if len(bytes.TrimSpace(env.Payload)) > 0 {
		if err := json.Unmarshal(env.Payload, payload); err != nil {
			httputil.WriteBadRequest(w, fmt.Sprintf("invalid %s payload", signal))
			return
		}
	}

	rc := rv.requestContext(env)
	ctx := contextkeys.WithActorID(r.Context(), rc.ActorID)
	if env.RequestID != "" {
		ctx = contextkeys.WithRequestID(ctx, env.RequestID)
	}

	err = rv.bus.Emit(ctx, Event{Signal: signal, Request: rc, Payload: payload})
	if err != nil {
		rv.logger.WithError(err).WithField("signal", signal).Warn("Signal delivered with handler errors")
	}

	// Auditing never fails the CMS request that raised the signal
	httputil.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"signal":   signal,
		"handlers": rv.bus.Handlers(signal),
	})
}

// requestContext returns the context of one delivery. Deliveries carrying
// the same request_id share the targets already recorded for that request;
// each keeps the flags it was sent with.
func (rv *Receiver) requestContext(env envelope) *observers.RequestContext {
	rc := env.Request
	if rc == nil {
		rc = observers.NewRequestContext(0)
	}
	if env.RequestID == "" {
		rc.Continue(nil)
		return rc
	}

	rv.mu.Lock()
	defer rv.mu.Unlock()
	prev, _ := rv.requests.Get(env.RequestID)
	rc.Continue(prev)
	rv.requests.Add(env.RequestID, rc)
	return rc
}

func senderOf(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
