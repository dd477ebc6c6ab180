package injector

import (
	"context"
	"sync"
)

// frame is the explicit "current construction context" threaded through
// every nested resolve. It replaces ambient call-stack state: dependency
// recording, cycle detection, and scope-upgrade taint all hang off it.
type frame struct {
	parent    *frame
	holder    *Holder
	tokenName string
	name      string
	scope     Scope

	mu      sync.Mutex
	tainted bool
}

// taint marks that this construction resolved a request-scoped instance
// through a caching link, fixing it into the dependent's lifetime.
func (f *frame) taint() {
	f.mu.Lock()
	f.tainted = true
	f.mu.Unlock()
}

func (f *frame) isTainted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tainted
}

// addDependency records an edge on the instance under construction.
func (f *frame) addDependency(name string) {
	f.holder.addDependency(name)
}

type frameCtxKey struct{}

func withFrame(ctx context.Context, f *frame) context.Context {
	return context.WithValue(ctx, frameCtxKey{}, f)
}

func frameFrom(ctx context.Context) *frame {
	f, _ := ctx.Value(frameCtxKey{}).(*frame)
	return f
}

// findCycle walks the active construction chain looking for the requested
// instance name. On a hit it returns the full cycle as an ordered list of
// token identities, first and last entries equal.
func findCycle(f *frame, name, tokenName string) []string {
	for cur := f; cur != nil; cur = cur.parent {
		if cur.name != name {
			continue
		}
		cycle := []string{cur.tokenName}
		var inner []string
		for x := f; x != cur; x = x.parent {
			inner = append(inner, x.tokenName)
		}
		for i := len(inner) - 1; i >= 0; i-- {
			cycle = append(cycle, inner[i])
		}
		return append(cycle, tokenName)
	}
	return nil
}

// applyUpgrade promotes a Singleton token to Request scope after its
// construction was found to depend on a request-scoped instance.
//
// The registry records are rewritten first, then the holder is moved out of
// singleton storage into the triggering request's storage under the
// request-qualified name. The promotion is irreversible and process-global:
// every later request builds its own instance. Upgrades reach a fixed point
// within one resolution pass because each promoted link reports Request
// scope to its own consumer, tainting the next frame up.
// The ordering is load-bearing for concurrent resolutions: the holder is
// placed in request storage before the registry rewrite, and only then
// removed from singleton storage. A caller routed by the pre-upgrade scope
// still finds the holder at its old key; a caller routed by the post-upgrade
// scope finds it at the new key; a caller that raced past the singleton-side
// delete is caught by the stale-scope recheck in resolveRecord.
func (r *Resolver) applyUpgrade(token *Token, h *Holder, st Storage, rc *RequestContext, args any) Storage {
	oldName := h.Name()
	newName := instanceName(token, args, rc.id)
	h.rename(newName, Request)
	rc.storage.Set(newName, h)

	r.registry.upgrade(token)
	if st != nil {
		st.Delete(oldName)
	}
	return rc.storage
}
