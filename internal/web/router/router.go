// Package router wraps chi and records every route for introspection.
package router

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/conduit-lang/ledgerapi/internal/web/middleware"
	"github.com/conduit-lang/ledgerapi/internal/web/response"
)

// Router manages HTTP routing using chi
type Router struct {
	mux chi.Router

	// For introspection and debugging
	registeredRoutes []*RouteInfo
}

// RouteInfo provides metadata about a route for introspection
type RouteInfo struct {
	Pattern    string   `json:"pattern"`
	Method     string   `json:"method"`
	Name       string   `json:"name,omitempty"`
	Collection string   `json:"collection,omitempty"`
	Middleware []string `json:"middleware,omitempty"`
	Parameters []string `json:"parameters,omitempty"`
}

// RouteOption configures a route at registration
type RouteOption func(*routeConfig)

type routeConfig struct {
	info        *RouteInfo
	middlewares []middleware.Middleware
}

// Named sets the route name
func Named(name string) RouteOption {
	return func(c *routeConfig) { c.info.Name = name }
}

// Collection records the collection the route serves
func Collection(name string) RouteOption {
	return func(c *routeConfig) { c.info.Collection = name }
}

// With applies route-level middleware; name is shown in introspection
func With(name string, m middleware.Middleware) RouteOption {
	return func(c *routeConfig) {
		c.info.Middleware = append(c.info.Middleware, name)
		c.middlewares = append(c.middlewares, m)
	}
}

// NewRouter creates a Router whose 404 and 405 responses are error documents
func NewRouter() *Router {
	mux := chi.NewRouter()
	mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.RenderError(w, r, http.StatusNotFound, "No route matches "+r.URL.Path, "")
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.RenderError(w, r, http.StatusMethodNotAllowed, r.Method+" is not supported", "")
	})

	return &Router{mux: mux}
}

// ServeHTTP implements http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Use adds middleware to every route. It must be called before routes are added.
func (r *Router) Use(middlewares ...middleware.Middleware) {
	for _, m := range middlewares {
		r.mux.Use(m)
	}
}

// Get registers a GET route
func (r *Router) Get(pattern string, handler http.HandlerFunc, opts ...RouteOption) *RouteInfo {
	cfg := &routeConfig{info: &RouteInfo{
		Pattern:    pattern,
		Method:     http.MethodGet,
		Parameters: extractParameters(pattern),
	}}
	for _, opt := range opts {
		opt(cfg)
	}

	h := middleware.NewChain(cfg.middlewares...).Then(handler)
	r.mux.Method(http.MethodGet, pattern, h)

	r.registeredRoutes = append(r.registeredRoutes, cfg.info)
	return cfg.info
}

// Routes returns all registered routes in registration order
func (r *Router) Routes() []*RouteInfo {
	return r.registeredRoutes
}

// extractParameters lists the {name} segments of a pattern
func extractParameters(pattern string) []string {
	var params []string
	for _, part := range strings.Split(pattern, "/") {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			params = append(params, strings.Trim(part, "{}"))
		}
	}
	return params
}

// idPattern accepts uuids and other opaque ids without separators or whitespace
var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]{0,127}$`)

// PathParam returns a path parameter
func PathParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// PathParamID returns an id path parameter and whether it is well formed
func PathParamID(r *http.Request, name string) (string, bool) {
	id := chi.URLParam(r, name)
	return id, idPattern.MatchString(id)
}
