package injector

import (
	"context"
	"errors"
	"fmt"
)

// Resolver turns registry records into live, correctly-scoped instances.
// It owns the process-wide singleton storage; request-scoped storage is
// reached through the context (see WithRequest).
type Resolver struct {
	registry   *Registry
	singletons Storage
}

// New creates a resolver with an empty registry.
func New() *Resolver {
	return &Resolver{
		registry:   NewRegistry(),
		singletons: NewStorage(),
	}
}

// Registry exposes the record store, for the metadata layer that registers
// injectables.
func (r *Resolver) Registry() *Registry { return r.registry }

// Register adds a build record. Shorthand for Registry().Register.
func (r *Resolver) Register(rec Record) error { return r.registry.Register(rec) }

// BeginRequest opens a request scope with fresh, exclusively-owned storage.
// The returned context must be closed when the request ends.
func (r *Resolver) BeginRequest(id string) *RequestContext {
	return &RequestContext{id: id, resolver: r, storage: NewStorage()}
}

// Shutdown tears down every singleton, dependents before their
// dependencies, waiting for all destroy hooks.
func (r *Resolver) Shutdown(ctx context.Context) error {
	return r.drainStorage(ctx, r.singletons)
}

// Resolve returns the instance behind token, building it if needed.
//
// Concurrent calls for the same logical instance are deduplicated: exactly
// one factory invocation runs per instance name at any time, and every
// caller observes the same outcome. Request-scoped tokens require a request
// scope on ctx.
func (r *Resolver) Resolve(ctx context.Context, token *Token, args any) (any, error) {
	if token == nil {
		return nil, ErrNilToken
	}
	real := token.unwrap()

	// Deferred tokens produce their argument value first, at most once.
	effArgs, err := token.arguments(ctx, args)
	if err != nil {
		return nil, r.annotate(ctx, real, err)
	}
	if err := real.validate(effArgs); err != nil {
		return nil, r.annotate(ctx, real, err)
	}

	rec, err := r.registry.Lookup(real)
	if err != nil {
		return nil, r.annotate(ctx, real, err)
	}

	rc, _ := RequestFrom(ctx)
	v, effScope, name, err := r.resolveRecord(ctx, real, rec, effArgs, rc)
	if err != nil {
		return nil, r.annotate(ctx, real, err)
	}

	// Record the dependency edge on whatever construction is in progress,
	// and taint it when the link fixes a request-scoped instance into the
	// dependent's lifetime. Transient links never cache, so they neither
	// form edges nor carry taint.
	if parent := frameFrom(ctx); parent != nil && effScope != Transient && name != "" {
		parent.addDependency(name)
		if effScope == Request {
			parent.taint()
		}
	}
	return v, nil
}

// annotate wraps a nested failure with the identity of the dependent under
// construction; top-level failures surface unmodified.
func (r *Resolver) annotate(ctx context.Context, token *Token, err error) error {
	if parent := frameFrom(ctx); parent != nil {
		return &DependencyResolutionError{Dependent: parent.name, Token: token.Name(), Err: err}
	}
	return err
}

// resolveRecord performs lookup-or-create for one record. It returns the
// instance, the token's effective scope after any upgrade, and the final
// instance name ("" for transients).
//
// Each pass re-reads the token's registered scope, so a concurrent upgrade
// reroutes the lookup to request storage instead of re-running the factory
// against an already-relocated name.
func (r *Resolver) resolveRecord(ctx context.Context, token *Token, rec Record, args any, rc *RequestContext) (any, Scope, string, error) {
	for {
		scope := r.currentScope(token, rec.Scope)
		requestID := ""
		if scope == Request {
			if rc == nil {
				return nil, scope, "", ErrNoRequestContext
			}
			if rc.Closed() {
				return nil, scope, "", ErrRequestClosed
			}
			requestID = rc.id
		}
		name := instanceName(token, args, requestID)

		if cycle := findCycle(frameFrom(ctx), name, token.Name()); cycle != nil {
			return nil, scope, name, &CircularDependencyError{Cycle: cycle}
		}

		if scope == Transient {
			h := newHolder(name, Transient)
			v, _, err := r.build(ctx, nil, h, token, rec, args, rc, name, scope)
			return v, Transient, "", err
		}

		st := r.storageFor(scope, rc)
		h, created := st.GetOrCreate(name, scope)
		if created {
			// An upgrade may have landed between the scope read and the
			// insert, relocating the real holder elsewhere; this fresh
			// holder is then a stale duplicate. Evict it, release any
			// waiter it collected, and look up again under the new scope.
			if r.currentScope(token, scope) != scope {
				st.Delete(name)
				h.markError(errStaleScope)
				continue
			}
			v, effScope, err := r.build(ctx, st, h, token, rec, args, rc, name, scope)
			return v, effScope, h.Name(), err
		}

		status, creation, destruction, inst, herr := h.observe()
		switch status {
		case StatusCreating:
			// Await the in-flight construction; all waiters share one
			// settled outcome.
			v, err := creation.await(ctx)
			if err != nil {
				if errors.Is(err, errStaleScope) {
					continue
				}
				return nil, scope, name, err
			}
			return v, r.currentScope(token, scope), h.Name(), nil
		case StatusCreated:
			return inst, r.currentScope(token, scope), h.Name(), nil
		case StatusError:
			if errors.Is(herr, errStaleScope) {
				continue
			}
			return nil, scope, name, herr
		case StatusDestroying:
			// Wait out the destroy, then retry the lookup. The holder is
			// evicted even when its destroy hook fails, so the retry
			// rebuilds regardless of the hook's outcome.
			if _, err := destruction.await(ctx); err != nil && ctx.Err() != nil {
				return nil, scope, name, err
			}
			continue
		}
	}
}

// build invokes the factory inside a fresh construction frame and settles
// the holder. st is nil for transients, which are never stored. scope is the
// effective scope the holder was placed under, which may differ from the
// record's registered scope after an upgrade.
func (r *Resolver) build(ctx context.Context, st Storage, h *Holder, token *Token, rec Record, args any, rc *RequestContext, name string, scope Scope) (any, Scope, error) {
	f := &frame{
		parent:    frameFrom(ctx),
		holder:    h,
		tokenName: token.Name(),
		name:      name,
		scope:     scope,
	}

	v, err := rec.Factory(withFrame(ctx, f), r, args)
	if err != nil {
		ierr := &InitializationError{Name: name, Err: err}
		h.markError(ierr)
		if st != nil && scope == Singleton {
			// Evict so a later resolution retries from scratch; an Error
			// singleton is not permanently poisoned.
			st.Delete(name)
		}
		return nil, scope, ierr
	}

	effScope := scope
	finalSt := st
	if scope == Singleton && f.isTainted() && rc != nil {
		// The registry rewrite and holder relocation happen before the
		// Created broadcast, so no waiter observes a pre-upgrade view.
		finalSt = r.applyUpgrade(token, h, st, rc, args)
		effScope = Request
	}

	if finalSt != nil {
		r.attachDestroyCascade(h, finalSt, rc)
	}

	h.markCreated(v)
	return v, effScope, nil
}

// attachDestroyCascade subscribes, for every recorded dependency edge, a
// listener that invalidates this holder when the dependency is destroyed.
// The unsubscribe handles are kept on the dependent so both sides are
// cleaned up when either is destroyed.
func (r *Resolver) attachDestroyCascade(h *Holder, st Storage, rc *RequestContext) {
	for _, depName := range h.Dependencies() {
		dep, _ := r.findHolder(depName, rc)
		if dep == nil || dep == h {
			continue
		}
		cancel := dep.subscribe(func(cctx context.Context) {
			_ = r.destroyHolder(cctx, st, h)
		})
		h.addUnsubscribe(cancel)
	}
}

// destroyHolder drives Created|Error → Destroying → removed. Dependents are
// invalidated first (via the holder's listeners), then the instance's own
// destroy hook runs, then the holder is evicted. In-flight creation is
// awaited, never aborted.
func (r *Resolver) destroyHolder(ctx context.Context, st Storage, h *Holder) error {
	d, action := h.beginDestroy()
	switch action {
	case destroyAwaitDestruction:
		_, err := d.await(ctx)
		return err
	case destroyAwaitCreation:
		_, _ = d.await(ctx) // outcome irrelevant; the holder settles either way
		return r.destroyHolder(ctx, st, h)
	}

	listeners, unsubs, instance := h.takeTeardown()
	for _, cancel := range unsubs {
		cancel()
	}
	for _, notify := range listeners {
		notify(ctx)
	}

	var derr error
	if disp, ok := instance.(Disposer); ok {
		derr = disp.Destroy(ctx)
	}
	if st != nil {
		st.Delete(h.Name())
	}
	d.settle(nil, derr)
	return derr
}

// ResolveSync returns the instance only if it is already resolved and
// cached; it never triggers construction. The second return is false when
// the instance is absent, still creating, destroying, or failed.
func (r *Resolver) ResolveSync(ctx context.Context, token *Token, args any) (any, bool) {
	v, err := r.resolveCached(ctx, token, args)
	return v, err == nil
}

func (r *Resolver) resolveCached(ctx context.Context, token *Token, args any) (any, error) {
	if token == nil {
		return nil, ErrNilToken
	}
	real := token.unwrap()
	effArgs, ok := token.cachedArguments(args)
	if !ok {
		return nil, &InstanceNotFoundError{Name: real.Name()}
	}
	if err := real.validate(effArgs); err != nil {
		return nil, err
	}
	rec, err := r.registry.Lookup(real)
	if err != nil {
		return nil, err
	}
	if rec.Scope == Transient {
		return nil, &InstanceNotFoundError{Name: real.Name()}
	}

	rc, _ := RequestFrom(ctx)
	requestID := ""
	if rec.Scope == Request {
		if rc == nil {
			return nil, ErrNoRequestContext
		}
		requestID = rc.id
	}
	name := instanceName(real, effArgs, requestID)
	st := r.storageFor(rec.Scope, rc)
	h, found := st.Get(name)
	if !found {
		return nil, &InstanceNotFoundError{Name: name}
	}
	switch h.Status() {
	case StatusCreated:
		v, _ := h.Instance()
		return v, nil
	case StatusDestroying:
		return nil, &InstanceDestroyingError{Name: name}
	default:
		return nil, &InstanceNotFoundError{Name: name}
	}
}

// Invalidate forces destroy-and-evict of a specific holder, identified by
// instance name or by the instance value itself. The destroy cascades to
// dependents before the holder's own hook runs.
func (r *Resolver) Invalidate(ctx context.Context, target any) error {
	rc, _ := RequestFrom(ctx)

	if name, ok := target.(string); ok {
		h, st := r.findHolder(name, rc)
		if h == nil {
			return &InstanceNotFoundError{Name: name}
		}
		return r.destroyHolder(ctx, st, h)
	}

	if rc != nil {
		if h := rc.storage.FindByInstance(target); h != nil {
			return r.destroyHolder(ctx, rc.storage, h)
		}
	}
	if h := r.singletons.FindByInstance(target); h != nil {
		return r.destroyHolder(ctx, r.singletons, h)
	}
	return &InstanceNotFoundError{Name: fmt.Sprintf("%T", target)}
}

// storageFor selects the backend for a scope: the active request's storage
// for Request scope, the process-wide backend otherwise.
func (r *Resolver) storageFor(scope Scope, rc *RequestContext) Storage {
	if scope == Request && rc != nil {
		return rc.storage
	}
	return r.singletons
}

// findHolder looks an instance name up in the active request's storage
// first, then in singleton storage.
func (r *Resolver) findHolder(name string, rc *RequestContext) (*Holder, Storage) {
	if rc != nil {
		if h, ok := rc.storage.Get(name); ok {
			return h, rc.storage
		}
	}
	if h, ok := r.singletons.Get(name); ok {
		return h, r.singletons
	}
	return nil, nil
}

// currentScope re-reads the registry after an awaited construction, which
// may have upgraded the token mid-flight.
func (r *Resolver) currentScope(t *Token, fallback Scope) Scope {
	if s, ok := r.registry.ScopeOf(t); ok {
		return s
	}
	return fallback
}

// ResolveAs resolves the token and type-asserts the result.
//
//	cfg, err := injector.ResolveAs[*config.Config](ctx, r, ConfigToken, nil)
func ResolveAs[T any](ctx context.Context, r *Resolver, token *Token, args any) (T, error) {
	var zero T
	v, err := r.Resolve(ctx, token, args)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("injector: %s resolved to %T, want %T", token.Name(), v, zero)
	}
	return typed, nil
}

// MustResolve is ResolveAs for bootstrap paths where failure is fatal.
func MustResolve[T any](ctx context.Context, r *Resolver, token *Token, args any) T {
	v, err := ResolveAs[T](ctx, r, token, args)
	if err != nil {
		panic(err)
	}
	return v
}
