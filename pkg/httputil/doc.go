// Package httputil holds the response envelope, request parsing helpers and
// the HTTP middleware shared by labstock handlers.
//
// # Envelope
//
// Every response is an Envelope:
//
//	{"code": 403, "error": "forbidden", "message": "...", "data": {...}}
//
// Successful responses omit error and message. Failed PATCH responses still
// carry the fields applied before the failure in data.
//
// # Middleware
//
//	chain := httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger, msgs.Internal),
//		httputil.CORSMiddleware(cfg.Server.CORSOrigins),
//		httputil.TimeoutMiddleware(cfg.Server.RequestTimeout),
//		httputil.MaxBytesMiddleware(cfg.Server.MaxBodyBytes),
//	)
//
// ClientIP ignores forwarding headers.
package httputil
