package main

import (
	"context"
	"net/http"
	"time"

	"github.com/navios-org/navios-sub001/framework/app"
	"github.com/navios-org/navios-sub001/framework/injector"
	"github.com/navios-org/navios-sub001/framework/providers"
	gohttp "github.com/navios-org/navios-sub001/http"
	"github.com/navios-org/navios-sub001/routing"
)

// Demo services showing the three lifetimes and the scope-upgrade rule.

// Clock is a process-wide singleton.
type Clock struct{}

func (c *Clock) Now() time.Time { return time.Now() }

// Tracer is registered as a singleton but depends on the request-scoped
// RequestInfo, so its first in-request resolution promotes it to request
// scope: every request gets its own Tracer.
type Tracer struct {
	RequestID string
	StartedAt time.Time
}

var (
	ClockToken  = injector.NewToken("clock")
	TracerToken = injector.NewToken("tracer")
)

// AppServiceProvider registers the demo services.
type AppServiceProvider struct {
	injector.BaseProvider
}

func (p *AppServiceProvider) Register(r *injector.Resolver) {
	_ = r.Register(injector.Record{
		Token: ClockToken,
		Scope: injector.Singleton,
		Factory: func(ctx context.Context, r *injector.Resolver, args any) (any, error) {
			return &Clock{}, nil
		},
	})
	_ = r.Register(injector.Record{
		Token: TracerToken,
		Scope: injector.Singleton,
		Factory: func(ctx context.Context, r *injector.Resolver, args any) (any, error) {
			info, err := injector.ResolveAs[*providers.RequestInfo](ctx, r, providers.RequestInfoToken, nil)
			if err != nil {
				return nil, err
			}
			clock, err := injector.ResolveAs[*Clock](ctx, r, ClockToken, nil)
			if err != nil {
				return nil, err
			}
			return &Tracer{RequestID: info.ID, StartedAt: clock.Now()}, nil
		},
	})
}

func main() {
	application := app.New() // loads .env automatically
	application.RegisterProvider(&AppServiceProvider{})
	application.Boot()

	r := application.Router()

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		res := gohttp.NewResponse(w)
		res.Success(map[string]any{"message": "Welcome to Navios!"})
	})

	r.Prefix("/api/v1", func(api *routing.Router) {
		api.Get("/trace", func(w http.ResponseWriter, req *http.Request) {
			res := gohttp.NewResponse(w)

			tracer, err := injector.ResolveAs[*Tracer](req.Context(), application.Resolver, TracerToken, nil)
			if err != nil {
				res.ServerError(err.Error())
				return
			}
			res.Success(map[string]any{
				"request_id": tracer.RequestID,
				"started":    tracer.StartedAt,
			})
		})
	})

	application.Run()
}
