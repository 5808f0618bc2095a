// Package httputil holds the response helpers and middleware of the admin HTTP server.
//
//	httputil.WriteSuccess(w, listing)
//	httputil.WriteNotFoundError(w, "unknown plugin wifi")
//
// Middleware is composed with Chain, outermost first:
//
//	handler := httputil.Chain(
//		httputil.RecoveryMiddleware(log),
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(log),
//	)(router)
package httputil
