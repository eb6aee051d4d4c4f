// Package api implements the labstock REST endpoints.
//
// Every request runs in one database transaction opened by the handler
// wrapper. Session resolution, permission checks, reads, writes and audit
// records share it, and it is committed once after the handler returns.
// Handlers report domain failures as tagged results; those still commit
// whatever was applied before the failure. Database errors roll the request
// back and are answered with the internal tag.
//
// Responses use a uniform envelope:
//
//	{"code": 403, "error": "forbidden", "message": "...", "data": {"password": true}}
//
// Partial updates apply fields in a fixed order and stop at the first
// failing field. The data map lists the fields applied before it.
package api
