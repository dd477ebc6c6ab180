package injector

import "sync"

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider is the metadata-extraction hook: a provider inspects
// whatever declaration mechanism the application uses and registers build
// records into the resolver. The resolver itself never inspects
// annotations.
//
// Boot() is called after ALL providers have been registered, making it safe
// to resolve other tokens inside Boot().
type ServiceProvider interface {
	// Register adds records to the resolver. Do NOT resolve other tokens
	// here — use Boot() for that.
	Register(r *Resolver)

	// Boot is called after all providers are registered.
	Boot(r *Resolver)

	// Provides returns the tokens this provider registers. Used for
	// deferred (lazy) provider loading. Return nil if always eager.
	Provides() []*Token

	// IsDeferred returns true if this provider should be loaded lazily —
	// only when one of its Provides() tokens is first resolved through
	// the registry wrapper.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct with no-op implementations of
// Boot(), Provides(), and IsDeferred(). Embed it and override what you need.
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Resolver)  {}
func (p *BaseProvider) Provides() []*Token { return nil }
func (p *BaseProvider) IsDeferred() bool   { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry manages registration and booting of ServiceProviders,
// including deferred providers whose records are only registered when one
// of their tokens is first requested via Load.
type ProviderRegistry struct {
	mu         sync.Mutex
	resolver   *Resolver
	eager      []ServiceProvider
	deferred   map[uint64]ServiceProvider // token id → provider
	booted     bool
	registered map[ServiceProvider]bool
}

// NewProviderRegistry creates a registry bound to r.
func NewProviderRegistry(r *Resolver) *ProviderRegistry {
	return &ProviderRegistry{
		resolver:   r,
		deferred:   make(map[uint64]ServiceProvider),
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and calls its Register() method unless it is
// deferred.
func (pr *ProviderRegistry) Register(provider ServiceProvider) {
	pr.mu.Lock()
	if pr.registered[provider] {
		pr.mu.Unlock()
		return
	}
	pr.registered[provider] = true

	if provider.IsDeferred() {
		for _, token := range provider.Provides() {
			pr.deferred[token.ID()] = provider
		}
		pr.mu.Unlock()
		return
	}

	pr.eager = append(pr.eager, provider)
	booted := pr.booted
	pr.mu.Unlock()

	provider.Register(pr.resolver)
	if booted {
		provider.Boot(pr.resolver)
	}
}

// Load forces registration of the deferred provider behind token, if any.
// The application kernel calls this before top-level resolutions.
func (pr *ProviderRegistry) Load(token *Token) {
	if token == nil {
		return
	}
	pr.mu.Lock()
	provider, ok := pr.deferred[token.ID()]
	if ok {
		for _, t := range provider.Provides() {
			delete(pr.deferred, t.ID())
		}
	}
	booted := pr.booted
	pr.mu.Unlock()

	if !ok {
		return
	}
	provider.Register(pr.resolver)
	if booted {
		provider.Boot(pr.resolver)
	}
}

// Boot calls Boot() on all eager providers. Must be called after ALL
// providers have been registered.
func (pr *ProviderRegistry) Boot() {
	pr.mu.Lock()
	if pr.booted {
		pr.mu.Unlock()
		return
	}
	pr.booted = true
	providers := append([]ServiceProvider(nil), pr.eager...)
	pr.mu.Unlock()

	for _, provider := range providers {
		provider.Boot(pr.resolver)
	}
}

// Booted returns true if Boot() has been called.
func (pr *ProviderRegistry) Booted() bool {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return pr.booted
}

// Providers returns all registered eager providers.
func (pr *ProviderRegistry) Providers() []ServiceProvider {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return append([]ServiceProvider(nil), pr.eager...)
}
