// Package injector is the dependency-injection resolution runtime: it
// turns a declarative registry of injectable capabilities into live,
// correctly-scoped instances, deduplicates their concurrent construction,
// and tears them down in dependency order.
//
// # Tokens and records
//
//	var DBToken = injector.NewToken("db")
//
//	r := injector.New()
//	r.Register(injector.Record{
//	    Token: DBToken,
//	    Scope: injector.Singleton,
//	    Factory: func(ctx context.Context, r *injector.Resolver, args any) (any, error) {
//	        return openDB()
//	    },
//	})
//
// Several records may target one token; the strictly highest priority wins
// and ties fail with *PriorityConflictError. Tokens can carry fixed
// arguments (Bind) or a lazy argument producer (Deferred), and an optional
// argument validator.
//
// # Scopes
//
// Singleton instances live for the process, Request instances for one
// inbound request, Transient instances for one call. A Singleton whose
// construction turns out to depend — through caching links only — on a
// Request-scoped instance is promoted to Request scope, permanently and
// process-wide; a Transient link breaks that propagation.
//
// # Resolving
//
//	db, err := injector.ResolveAs[*DB](ctx, r, DBToken, nil)
//
// Factories receive the resolution context and must thread it into nested
// Resolve calls; that is how dependency edges are recorded and cycles
// detected. At most one factory runs per instance name at any time;
// concurrent callers share the one outcome.
//
// # Request scopes
//
//	rc := r.BeginRequest(requestID)
//	ctx = injector.WithRequest(ctx, rc)
//	defer rc.Close(ctx)
//
// Closing the request destroys its holders dependents-first and waits for
// every Destroy hook (see Disposer). Destroying an instance — via Close or
// Invalidate — cascades to everything built from it.
package injector
