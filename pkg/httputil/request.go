package httputil

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

// PathParam returns a mux path variable. When it is empty a 400 has been
// written and ok is false.
func PathParam(w http.ResponseWriter, r *http.Request, key string) (value string, ok bool) {
	value = mux.Vars(r)[key]
	if value == "" {
		WriteBadRequest(w, "missing path parameter: "+key)
		return "", false
	}
	return value, true
}

// QueryInt64 parses an integer query parameter. Absent or blank yields 0.
func QueryInt64(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("query parameter %s must be an integer, got %q", key, raw)
	}
	return n, nil
}

// QueryString returns a query parameter, or fallback when it is absent
func QueryString(r *http.Request, key, fallback string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return fallback
}
