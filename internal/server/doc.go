// Package server provides HTTP routing, middleware, and the one-shot OAuth callback used by the CLI.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [Logging] and [Recover] are the stock middleware used by the web application.
//
// The [BasicRouter] implementation uses gorilla/mux internally with method matching.
//
// # OAuth Callback Handler
//
// [OAuthHandler] drives the operator login behind `vibe auth demo`: a temporary server on the configured address
// handles a single callback, validates the state parameter, exchanges the code and sends the tokens through a
// channel. It only processes one callback to prevent replay.
//
// # Lifecycle
//
// [Run] serves an [http.Server] until its context is cancelled and then shuts it down gracefully.
package server
