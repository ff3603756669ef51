package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/platinummonkey/masthead/pkg/contextkeys"
	"github.com/platinummonkey/masthead/pkg/httputil"
)

// TokenSource resolves a bearer token to the CMS user it was issued to
type TokenSource interface {
	Actor(ctx context.Context, token string) (int64, bool, error)
}

// StaticTokens is a fixed token to user ID table
type StaticTokens map[string]int64

// Actor implements TokenSource
func (s StaticTokens) Actor(ctx context.Context, token string) (int64, bool, error) {
	id, ok := s[token]
	return id, ok && id > 0, nil
}

// ActorMiddleware puts the authenticated CMS user into the request context
type ActorMiddleware struct {
	tokens   TokenSource
	optional bool // If true, requests without a token continue as actor 0
}

// NewActorMiddleware creates a new actor middleware
func NewActorMiddleware(tokens TokenSource, optional bool) *ActorMiddleware {
	return &ActorMiddleware{
		tokens:   tokens,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *ActorMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Format: "Bearer <token>"
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		actorID, ok, err := m.tokens.Actor(r.Context(), parts[1])
		if err != nil {
			httputil.WriteInternalError(w)
			return
		}
		if !ok {
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := contextkeys.WithActorID(r.Context(), actorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
