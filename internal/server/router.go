package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// BasicRouter is a simple HTTP router implementing the [Router] interface.
//
// Uses [mux.Router] internally for routing; requests with a registered path but another method get a 405, also when
// [BasicRouter.Static] is serving files.
type BasicRouter struct {
	mux         *mux.Router
	middlewares []Middleware
	paths       map[string]bool
}

// NewBasicRouter creates a new [BasicRouter] instance.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{
		mux:         mux.NewRouter(),
		middlewares: []Middleware{},
		paths:       map[string]bool{},
	}
}

// Use adds [Middleware] to the [Router] instance's middleware stack, applied in the order it's added.
//
// Middleware only wraps handlers registered after the call.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers a [Handler] for the specified HTTP method and path.
//
// The handler is wrapped with all registered middleware.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.paths[path] = true
	r.mux.Handle(path, r.Apply(handler)).Methods(method)
}

// Handler registers a custom Handler implementation.
//
// All routes returned by [Handler.Routes] are registered with this handler for every method.
func (r *BasicRouter) Handler(handler Handler) {
	wrapped := r.Apply(handler)

	for _, route := range handler.Routes() {
		r.paths[route] = true
		r.mux.Handle(route, wrapped)
	}
}

// Static serves files from dir to GET and HEAD requests for any path not registered on the router.
//
// Other methods on unregistered paths get a 405.
func (r *BasicRouter) Static(dir string) {
	// the path check runs first so a registered path never matches here and keeps its method mismatch
	r.mux.NewRoute().
		MatcherFunc(func(req *http.Request, _ *mux.RouteMatch) bool { return !r.paths[req.URL.Path] }).
		PathPrefix("/").
		Methods(http.MethodGet, http.MethodHead).
		Handler(r.Apply(http.FileServer(http.Dir(dir))))
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps a handler with all registered middleware.
//
// Middleware is applied in reverse order (last added wraps first).
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	wrapped := handler

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}

	return wrapped
}
