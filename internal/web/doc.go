// Package web serves the proxy's HTTP surface.
//
// # Routes
//
//	GET  /login              → 302 to the Spotify authorization endpoint
//	GET  /callback           → HTML page; success posts {type: "spotify-auth-success"} to window.opener
//	GET  /logout             → destroys the session, {"success": true}
//	GET  /api/auth-status    → {authenticated, mode, expiresAt?, demoAvailable}
//	GET  /api/search-artists → {artists, mode}
//	POST /api/generate       → {url, name, mode, trackCount}
//	GET  /healthz            → {"status": "ok"}
//
// Files under the configured static directory are served for any other path.
//
// # Errors
//
// API errors are JSON [ErrorResponse] bodies. Sentinel errors from the shared package map to statuses in one place:
// validation 400, no credentials 401, no tracks 404, upstream timeout 504, any other upstream failure 500.
// Callback failures render the HTML page with 400 for denial, a missing code or a state mismatch and 500 when the
// code exchange fails.
//
// # Sessions
//
// Every route runs inside the scs LoadAndSave middleware, so handlers read and write token state through
// [session.Handle]. The session token is renewed after a successful login.
package web
