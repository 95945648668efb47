package router

import (
	"sort"
	"strings"
	"sync"

	"github.com/Brownie44l1/webby/internal/request"
	"github.com/Brownie44l1/webby/internal/response"
)

// Handler handles one request by writing its response.
type Handler func(w *response.Response, r *request.Request)

// Route is a single routing table entry.
type Route struct {
	Methods request.Method
	Prefix  string
	Handler Handler
}

// Router dispatches requests by longest matching path prefix.
type Router struct {
	mu           sync.RWMutex
	routes       []*Route // longest prefix first
	errorHandler Handler
}

// New creates a new router
func New() *Router {
	return &Router{
		routes:       make([]*Route, 0),
		errorHandler: NotFound,
	}
}

// Handle registers handler for requests whose method is in methods and whose
// path starts with prefix.
func (r *Router) Handle(methods request.Method, prefix string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes = append(r.routes, &Route{
		Methods: methods,
		Prefix:  prefix,
		Handler: handler,
	})
	sort.SliceStable(r.routes, func(i, j int) bool {
		return len(r.routes[i].Prefix) > len(r.routes[j].Prefix)
	})
}

// Add registers handler for every method, recognized or not.
func (r *Router) Add(prefix string, handler Handler) {
	r.Handle(request.MethodAll, prefix, handler)
}

// GET is a shortcut for Handle(request.MethodGet, ...)
func (r *Router) GET(prefix string, handler Handler) {
	r.Handle(request.MethodGet, prefix, handler)
}

// POST is a shortcut for Handle(request.MethodPost, ...)
func (r *Router) POST(prefix string, handler Handler) {
	r.Handle(request.MethodPost, prefix, handler)
}

// PUT is a shortcut for Handle(request.MethodPut, ...)
func (r *Router) PUT(prefix string, handler Handler) {
	r.Handle(request.MethodPut, prefix, handler)
}

// DELETE is a shortcut for Handle(request.MethodDelete, ...)
func (r *Router) DELETE(prefix string, handler Handler) {
	r.Handle(request.MethodDelete, prefix, handler)
}

// SetErrorHandler replaces the handler used when no route matches.
func (r *Router) SetErrorHandler(handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if handler == nil {
		handler = NotFound
	}
	r.errorHandler = handler
}

// Match finds the route for method and path. The query string is ignored.
func (r *Router) Match(method request.Method, path string) *Route {
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, route := range r.routes {
		if route.Methods.Contains(method) && strings.HasPrefix(path, route.Prefix) {
			return route
		}
	}
	return nil
}

// Route dispatches req, recording the matched prefix on it.
func (r *Router) Route(w *response.Response, req *request.Request) {
	route := r.Match(req.Method, req.Path)
	if route == nil {
		r.mu.RLock()
		h := r.errorHandler
		r.mu.RUnlock()
		h(w, req)
		return
	}

	req.SetRoute(route.Prefix)
	route.Handler(w, req)
}

// NotFound is the default error handler.
func NotFound(w *response.Response, r *request.Request) {
	w.Error(response.StatusNotFound, "")
}
