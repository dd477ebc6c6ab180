package routing

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/navios-org/navios-sub001/framework/injector"
)

// Router wraps chi.Router with framework helpers.
type Router struct {
	mux chi.Router
}

// New creates a Router with sane defaults (RequestID, Logger, Recoverer).
func New() *Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	return &Router{mux: r}
}

// ── HTTP verbs ───────────────────────────────────────────────────────────────

func (r *Router) Get(pattern string, h http.HandlerFunc)    { r.mux.Get(pattern, h) }
func (r *Router) Post(pattern string, h http.HandlerFunc)   { r.mux.Post(pattern, h) }
func (r *Router) Put(pattern string, h http.HandlerFunc)    { r.mux.Put(pattern, h) }
func (r *Router) Patch(pattern string, h http.HandlerFunc)  { r.mux.Patch(pattern, h) }
func (r *Router) Delete(pattern string, h http.HandlerFunc) { r.mux.Delete(pattern, h) }

// Any registers a handler for all common HTTP methods.
func (r *Router) Any(pattern string, h http.HandlerFunc) {
	for _, m := range []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"} {
		r.mux.Method(m, pattern, h)
	}
}

// ── Groups & Prefixes ────────────────────────────────────────────────────────

// Group creates an inline group sharing this router's middleware stack.
func (r *Router) Group(fn func(r *Router)) {
	r.mux.Group(func(mx chi.Router) {
		fn(&Router{mux: mx})
	})
}

// Prefix creates a sub-router mounted under a URL prefix.
func (r *Router) Prefix(pattern string, fn func(r *Router)) {
	r.mux.Route(pattern, func(mx chi.Router) {
		fn(&Router{mux: mx})
	})
}

// ── Middleware ───────────────────────────────────────────────────────────────

// Middleware adds one or more middleware to the router.
func (r *Router) Middleware(mw ...func(http.Handler) http.Handler) {
	r.mux.Use(mw...)
}

var requestSeq atomic.Uint64

// InjectionScope opens a request context on the resolver for every inbound
// request and closes it — cascading destruction of all request-scoped
// instances — once the handler returns. Handlers reach the scope through
// the request's context:
//
//	router.Middleware(routing.InjectionScope(resolver, ""))
//
//	router.Get("/reports", func(w http.ResponseWriter, req *http.Request) {
//	    svc, err := injector.ResolveAs[*ReportService](req.Context(), resolver, ReportToken, nil)
//	    ...
//	})
//
// idHeader optionally names a trusted inbound header for the request id;
// chi's RequestID middleware (or a local counter) is the fallback.
func InjectionScope(r *injector.Resolver, idHeader string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			id := ""
			if idHeader != "" {
				id = req.Header.Get(idHeader)
			}
			if id == "" {
				id = middleware.GetReqID(req.Context())
			}
			if id == "" {
				id = "req-" + strconv.FormatUint(requestSeq.Add(1), 10)
			}

			rc := r.BeginRequest(id)
			ctx := injector.WithRequest(req.Context(), rc)
			defer func() {
				// Teardown must run even when the client went away.
				_ = rc.Close(context.WithoutCancel(ctx))
			}()

			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// ── Params ───────────────────────────────────────────────────────────────────

// Param extracts a URL parameter by name.
func Param(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// ── Serve ────────────────────────────────────────────────────────────────────

// ServeHTTP implements http.Handler so Router can be passed to
// http.ListenAndServe.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Handler returns the underlying http.Handler (for testing etc.).
func (r *Router) Handler() http.Handler {
	return r.mux
}
