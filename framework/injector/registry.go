package injector

import (
	"context"
	"sync"
)

// Factory builds one instance. Nested resolutions must go through r with the
// given ctx so the runtime can record dependency edges and detect cycles.
type Factory func(ctx context.Context, r *Resolver, args any) (any, error)

// Record describes how to build the capability behind a token.
//
// Several candidate records may exist for one token; the record with the
// strictly highest priority wins. Two candidates sharing the winning
// priority is a configuration error, surfaced by the first resolution that
// must choose.
type Record struct {
	Token    *Token
	Scope    Scope
	Factory  Factory
	Priority int
}

// Registry stores build records keyed by token identity. It is process-wide
// shared state; every mutation — including the scope-upgrade rewrite — runs
// under a single writer lock so concurrent readers see one view.
type Registry struct {
	mu      sync.RWMutex
	records map[uint64][]Record
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[uint64][]Record)}
}

// Register adds a candidate record. Conflicting priorities are tolerated
// here and rejected at lookup time, so later registrations can still
// disambiguate with a higher priority.
func (g *Registry) Register(rec Record) error {
	if rec.Token == nil {
		return ErrNilToken
	}
	if rec.Factory == nil {
		return ErrNilFactory
	}
	rec.Token = rec.Token.unwrap()
	g.mu.Lock()
	g.records[rec.Token.id] = append(g.records[rec.Token.id], rec)
	g.mu.Unlock()
	return nil
}

// Has reports whether any record exists for the token.
func (g *Registry) Has(t *Token) bool {
	if t == nil {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.records[t.ID()]) > 0
}

// Normalize unwraps bound/deferred tokens to the real identity used for
// registry keys and storage lookups.
func (g *Registry) Normalize(t *Token) *Token { return t.unwrap() }

// Lookup selects the winning record for the token. It fails with
// *FactoryNotFoundError when no record exists and *PriorityConflictError
// when the top priority is shared.
func (g *Registry) Lookup(t *Token) (Record, error) {
	if t == nil {
		return Record{}, ErrNilToken
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	candidates := g.records[t.ID()]
	if len(candidates) == 0 {
		return Record{}, &FactoryNotFoundError{Token: t.Name()}
	}
	best := candidates[0]
	ambiguous := false
	for _, rec := range candidates[1:] {
		switch {
		case rec.Priority > best.Priority:
			best = rec
			ambiguous = false
		case rec.Priority == best.Priority:
			ambiguous = true
		}
	}
	if ambiguous {
		return Record{}, &PriorityConflictError{Token: t.Name(), Priority: best.Priority}
	}
	return best, nil
}

// ScopeOf returns the current scope of the token's winning record.
func (g *Registry) ScopeOf(t *Token) (Scope, bool) {
	rec, err := g.Lookup(t)
	if err != nil {
		return 0, false
	}
	return rec.Scope, true
}

// upgrade rewrites every Singleton record of the token to Request scope.
// The rewrite is irreversible and process-global: it reports whether any
// record changed.
func (g *Registry) upgrade(t *Token) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	changed := false
	recs := g.records[t.ID()]
	for i := range recs {
		if recs[i].Scope == Singleton {
			recs[i].Scope = Request
			changed = true
		}
	}
	return changed
}
