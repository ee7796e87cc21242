// Package httpapi exposes the auth endpoints over HTTP: login, refresh, and
// logout with the refresh-token cookie contract, plus role-permission
// administration backed by the catalog.
//
// Responses use the envelope {"code": n, "data": ...} on success and
// {"code": n, "error": {"message", "description"}} on failure. Routing,
// CORS, request logging, and rate limiting are assumed upstream.
package httpapi
