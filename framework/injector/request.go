package injector

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// RequestContext owns the lifetime of one request's isolated storage. It is
// created per inbound request and closed when the request ends, tearing
// down every holder it owns in dependency order.
type RequestContext struct {
	id       string
	resolver *Resolver
	storage  Storage

	mu     sync.Mutex
	closed bool
}

// ID returns the opaque request identifier.
func (rc *RequestContext) ID() string { return rc.id }

// Storage returns the request-scoped backend. It is owned exclusively by
// this context; cross-request locking is never needed.
func (rc *RequestContext) Storage() Storage { return rc.storage }

// Closed reports whether Close has begun.
func (rc *RequestContext) Closed() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.closed
}

// Close destroys every holder in the request's storage, dependents before
// their dependencies, and waits for all destroy hooks to finish. In-flight
// creations are not aborted; teardown awaits them, then destroys.
func (rc *RequestContext) Close(ctx context.Context) error {
	rc.mu.Lock()
	if rc.closed {
		rc.mu.Unlock()
		return nil
	}
	rc.closed = true
	rc.mu.Unlock()

	return rc.resolver.drainStorage(ctx, rc.storage)
}

// drainStorage tears a backend down in waves: each wave destroys the
// holders that no remaining holder depends on, in parallel, until the
// backend is empty.
func (r *Resolver) drainStorage(ctx context.Context, st Storage) error {
	var firstErr error
	for {
		var wave []*Holder
		remaining := 0
		st.ForEach(func(h *Holder) bool {
			remaining++
			if len(st.FindDependents(h.Name())) == 0 {
				wave = append(wave, h)
			}
			return true
		})
		if remaining == 0 {
			return firstErr
		}
		if len(wave) == 0 {
			// Mutually-dependent leftovers; construction-time cycle
			// detection makes this unreachable, but never spin.
			st.ForEach(func(h *Holder) bool {
				wave = append(wave, h)
				return true
			})
		}

		// A plain group: a failing destroy hook must not cancel the
		// context handed to its siblings' hooks.
		var g errgroup.Group
		for _, h := range wave {
			h := h
			g.Go(func() error {
				return r.destroyHolder(ctx, st, h)
			})
		}
		if err := g.Wait(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
}

type requestCtxKey struct{}

// WithRequest returns a context carrying the request scope. Handlers and
// factories derive all nested resolutions from it.
func WithRequest(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestCtxKey{}, rc)
}

// RequestFrom extracts the request scope from a context, if present.
func RequestFrom(ctx context.Context) (*RequestContext, bool) {
	rc, ok := ctx.Value(requestCtxKey{}).(*RequestContext)
	return rc, ok
}
