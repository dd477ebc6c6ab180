package app

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/navios-org/navios-sub001/framework/config"
	"github.com/navios-org/navios-sub001/framework/injector"
	"github.com/navios-org/navios-sub001/framework/providers"
	"github.com/navios-org/navios-sub001/routing"
)

// Application is the top-level kernel. It embeds the Resolver so user code
// can call app.Register() and app.Resolve() directly.
type Application struct {
	*injector.Resolver
	Providers *injector.ProviderRegistry
}

// New creates and bootstraps the application.
func New(envFiles ...string) *Application {
	r := injector.New()
	registry := injector.NewProviderRegistry(r)

	app := &Application{
		Resolver:  r,
		Providers: registry,
	}

	// Framework core providers, config first.
	registry.Register(&providers.ConfigServiceProvider{EnvFiles: envFiles})
	registry.Register(&providers.RoutingServiceProvider{})
	registry.Register(&providers.RequestInfoServiceProvider{})

	return app
}

// RegisterProvider adds a ServiceProvider to the application.
func (a *Application) RegisterProvider(provider injector.ServiceProvider) {
	a.Providers.Register(provider)
}

// Boot runs the Boot() phase on all providers.
func (a *Application) Boot() {
	a.Providers.Boot()
}

// Make resolves a token at the application top level, loading any deferred
// provider that declares it first.
func (a *Application) Make(ctx context.Context, token *injector.Token, args any) (any, error) {
	a.Providers.Load(token)
	return a.Resolve(ctx, token, args)
}

// Config resolves *config.Config.
func (a *Application) Config() *config.Config {
	return injector.MustResolve[*config.Config](context.Background(), a.Resolver, providers.ConfigToken, nil)
}

// Router resolves *routing.Router.
func (a *Application) Router() *routing.Router {
	return injector.MustResolve[*routing.Router](context.Background(), a.Resolver, providers.RouterToken, nil)
}

// Run boots the application (if needed) and starts the HTTP server.
func (a *Application) Run() {
	if !a.Providers.Booted() {
		a.Boot()
	}
	cfg := a.Config()
	router := a.Router()
	addr := ":" + cfg.App.Port
	fmt.Printf("%s running on http://localhost%s  [%s]\n",
		cfg.App.Name, addr, cfg.App.Env)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// Close tears down all singletons, bounded by the configured shutdown
// timeout, waiting for their destroy hooks.
func (a *Application) Close() error {
	cfg := a.Config()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Injector.ShutdownTimeout)
	defer cancel()
	return a.Shutdown(ctx)
}

// Environment returns the APP_ENV value.
func (a *Application) Environment() string { return a.Config().App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.Config().App.Debug }
