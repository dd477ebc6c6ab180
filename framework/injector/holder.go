package injector

import (
	"context"
	"sync"
)

// deferred is a single-producer, multi-consumer, one-shot result slot.
// Settling closes done; every waiter observes the same value or error.
type deferred struct {
	done  chan struct{}
	value any
	err   error
}

func newDeferred() *deferred { return &deferred{done: make(chan struct{})} }

func (d *deferred) settle(v any, err error) {
	d.value = v
	d.err = err
	close(d.done)
}

func (d *deferred) await(ctx context.Context) (any, error) {
	select {
	case <-d.done:
		return d.value, d.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Disposer is implemented by instances that hold resources. Destroy is
// called exactly once when the owning holder is torn down.
type Disposer interface {
	Destroy(ctx context.Context) error
}

// Holder is the stateful wrapper around one logical instance: its
// construction outcome, its dependency set, and the destroy subscriptions
// wired to it. A holder is owned by exactly one storage backend at a time;
// a scope upgrade moves ownership rather than duplicating it.
type Holder struct {
	mu sync.Mutex

	name   string
	scope  Scope
	status Status

	instance any
	err      error

	creation    *deferred
	destruction *deferred

	// deps holds the instance names this holder was built from.
	deps map[string]struct{}

	// listeners are fired when this holder is destroyed (dependents
	// invalidating themselves).
	listeners map[uint64]func(ctx context.Context)
	nextSub   uint64

	// unsubs detach this holder's own subscriptions on its dependencies,
	// run on destroy so neither side leaks.
	unsubs []func()
}

func newHolder(name string, scope Scope) *Holder {
	return &Holder{
		name:     name,
		scope:    scope,
		status:   StatusCreating,
		creation: newDeferred(),
		deps:     make(map[string]struct{}),
	}
}

// Name returns the current storage key of the holder.
func (h *Holder) Name() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.name
}

// Scope returns the lifetime the holder was created under.
func (h *Holder) Scope() Scope {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scope
}

// Status returns the current lifecycle state.
func (h *Holder) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Instance returns the settled outcome. Meaningful once status is
// StatusCreated or StatusError.
func (h *Holder) Instance() (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.instance, h.err
}

// observe snapshots the lookup-relevant state in one critical section.
func (h *Holder) observe() (status Status, creation, destruction *deferred, instance any, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status, h.creation, h.destruction, h.instance, h.err
}

// rename rebinds the storage key during a scope-upgrade relocation.
func (h *Holder) rename(name string, scope Scope) {
	h.mu.Lock()
	h.name = name
	h.scope = scope
	h.mu.Unlock()
}

// markCreated transitions Creating → Created and broadcasts the instance to
// every waiter.
func (h *Holder) markCreated(v any) {
	h.mu.Lock()
	h.status = StatusCreated
	h.instance = v
	h.mu.Unlock()
	h.creation.settle(v, nil)
}

// markError transitions Creating → Error and broadcasts the failure.
func (h *Holder) markError(err error) {
	h.mu.Lock()
	h.status = StatusError
	h.err = err
	h.mu.Unlock()
	h.creation.settle(nil, err)
}

// addDependency records that this holder was built from the named instance.
func (h *Holder) addDependency(name string) {
	h.mu.Lock()
	h.deps[name] = struct{}{}
	h.mu.Unlock()
}

// dependsOn reports whether name is in the holder's dependency set.
func (h *Holder) dependsOn(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.deps[name]
	return ok
}

// Dependencies returns a snapshot of the dependency set.
func (h *Holder) Dependencies() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.deps))
	for name := range h.deps {
		out = append(out, name)
	}
	return out
}

// subscribe registers a destroy listener and returns its unsubscribe handle.
func (h *Holder) subscribe(notify func(ctx context.Context)) (cancel func()) {
	h.mu.Lock()
	if h.listeners == nil {
		h.listeners = make(map[uint64]func(ctx context.Context))
	}
	id := h.nextSub
	h.nextSub++
	h.listeners[id] = notify
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

// addUnsubscribe stores a handle detaching one of this holder's own
// subscriptions on a dependency.
func (h *Holder) addUnsubscribe(cancel func()) {
	h.mu.Lock()
	h.unsubs = append(h.unsubs, cancel)
	h.mu.Unlock()
}

// destroyAction tells a destroyer what to do after beginDestroy.
type destroyAction uint8

const (
	// destroyProceed — the caller owns the teardown.
	destroyProceed destroyAction = iota
	// destroyAwaitDestruction — another teardown is in flight; await it.
	destroyAwaitDestruction
	// destroyAwaitCreation — creation is in flight; await it, then retry.
	destroyAwaitCreation
)

// beginDestroy attempts the transition into Destroying and returns the
// deferred the caller must settle or await, per the returned action.
func (h *Holder) beginDestroy() (*deferred, destroyAction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch h.status {
	case StatusDestroying:
		return h.destruction, destroyAwaitDestruction
	case StatusCreating:
		return h.creation, destroyAwaitCreation
	}
	h.status = StatusDestroying
	h.destruction = newDeferred()
	return h.destruction, destroyProceed
}

// takeTeardown snapshots and clears the listener and unsubscribe sets for a
// teardown in progress.
func (h *Holder) takeTeardown() (listeners []func(ctx context.Context), unsubs []func(), instance any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, fn := range h.listeners {
		listeners = append(listeners, fn)
	}
	h.listeners = nil
	unsubs = h.unsubs
	h.unsubs = nil
	return listeners, unsubs, h.instance
}
