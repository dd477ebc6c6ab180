package providers

import (
	"context"

	"github.com/navios-org/navios-sub001/framework/config"
	"github.com/navios-org/navios-sub001/framework/injector"
	"github.com/navios-org/navios-sub001/routing"
)

// Framework-level tokens. User code resolves against these; providers
// below register the records behind them.
var (
	// ConfigToken → *config.Config
	ConfigToken = injector.NewToken("config")

	// RouterToken → *routing.Router
	RouterToken = injector.NewToken("router")

	// RequestInfoToken → *RequestInfo, one per inbound request.
	RequestInfoToken = injector.NewToken("request.info")
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider loads the application configuration from .env and
// registers it behind ConfigToken as a process-wide singleton.
type ConfigServiceProvider struct {
	injector.BaseProvider
	EnvFiles []string
}

func (p *ConfigServiceProvider) Register(r *injector.Resolver) {
	envFiles := p.EnvFiles
	_ = r.Register(injector.Record{
		Token: ConfigToken,
		Scope: injector.Singleton,
		Factory: func(ctx context.Context, r *injector.Resolver, args any) (any, error) {
			return config.Load(envFiles...), nil
		},
	})
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router, wired with the
// injection-scope middleware so every request gets isolated storage.
type RoutingServiceProvider struct {
	injector.BaseProvider
}

func (p *RoutingServiceProvider) Register(r *injector.Resolver) {
	_ = r.Register(injector.Record{
		Token: RouterToken,
		Scope: injector.Singleton,
		Factory: func(ctx context.Context, r *injector.Resolver, args any) (any, error) {
			cfg, err := injector.ResolveAs[*config.Config](ctx, r, ConfigToken, nil)
			if err != nil {
				return nil, err
			}
			router := routing.New()
			router.Middleware(routing.InjectionScope(r, cfg.Injector.RequestIDHeader))
			return router, nil
		},
	})
}

// ── RequestInfoServiceProvider ────────────────────────────────────────────────

// RequestInfo captures the identity of the request a resolution ran under.
type RequestInfo struct {
	ID string
}

// RequestInfoServiceProvider registers a request-scoped RequestInfo. Any
// singleton that ends up depending on it is promoted to request scope.
type RequestInfoServiceProvider struct {
	injector.BaseProvider
}

func (p *RequestInfoServiceProvider) Register(r *injector.Resolver) {
	_ = r.Register(injector.Record{
		Token: RequestInfoToken,
		Scope: injector.Request,
		Factory: func(ctx context.Context, r *injector.Resolver, args any) (any, error) {
			rc, ok := injector.RequestFrom(ctx)
			if !ok {
				return nil, injector.ErrNoRequestContext
			}
			return &RequestInfo{ID: rc.ID()}, nil
		},
	})
}
