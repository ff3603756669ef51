// Package httputil provides HTTP utilities shared by the audit read endpoints
// and the hook receiver.
//
// # Response Helpers
//
//	httputil.WriteJSON(w, http.StatusOK, page)
//	httputil.WriteForbidden(w, "not allowed to read the audit log")
//	httputil.WriteBadRequest(w, "action filter is too long")
//
// # Request Parsing
//
//	actorID, err := httputil.QueryInt64(r, "actor_id")
//	signal, ok := httputil.PathParam(w, r, "signal")
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RecoveryMiddleware(logger),
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.MaxBytesMiddleware(1<<20),
//	)
package httputil
