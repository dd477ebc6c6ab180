package injector

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"
	"sync/atomic"
)

var tokenIDs atomic.Uint64

// Token is the identity of a requestable capability.
//
// Tokens are immutable after creation and compared by identity, never
// structurally: two tokens created with the same name are distinct.
// Bound and deferred tokens wrap a real token and share its identity for
// registry and storage purposes.
type Token struct {
	id   uint64
	name string

	// validator checks resolution arguments, when set.
	validator func(args any) error

	// real points at the underlying token for bound/deferred wrappers.
	real *Token

	// bound argument value (bound tokens only).
	boundArgs any
	bound     bool

	// lazy argument producer (deferred tokens only), run at most once.
	producer    func(ctx context.Context) (any, error)
	produceOnce sync.Once
	producedSet atomic.Bool
	produced    any
	produceErr  error
}

// TokenOption configures a Token at creation time.
type TokenOption func(*Token)

// WithValidator attaches an argument validator. Resolution arguments are
// checked before any storage lookup; a failure surfaces as
// *TokenValidationError.
func WithValidator(fn func(args any) error) TokenOption {
	return func(t *Token) { t.validator = fn }
}

// NewToken creates a token with a process-unique identity.
//
//	var DBToken = injector.NewToken("db")
func NewToken(name string, opts ...TokenOption) *Token {
	t := &Token{id: tokenIDs.Add(1), name: name}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the display name the token was created with.
func (t *Token) Name() string { return t.unwrap().name }

// ID returns the process-unique identity of the underlying real token.
func (t *Token) ID() uint64 { return t.unwrap().id }

// Bind returns a token that carries a fixed argument value. The result
// shares the receiver's identity.
//
//	report := ReportToken.Bind(ReportArgs{Month: "2026-08"})
func (t *Token) Bind(args any) *Token {
	real := t.unwrap()
	return &Token{id: real.id, name: real.name, real: real, boundArgs: args, bound: true}
}

// Deferred returns a token whose argument value is produced lazily by fn.
// The producer runs at most once; its outcome is cached on the returned
// token and shared by all concurrent resolvers.
func (t *Token) Deferred(fn func(ctx context.Context) (any, error)) *Token {
	real := t.unwrap()
	return &Token{id: real.id, name: real.name, real: real, producer: fn}
}

// unwrap returns the real token behind bound/deferred wrappers.
func (t *Token) unwrap() *Token {
	if t.real != nil {
		return t.real
	}
	return t
}

// arguments materializes the effective argument value for a resolution.
// Explicit args win; otherwise bound or lazily produced args apply.
func (t *Token) arguments(ctx context.Context, explicit any) (any, error) {
	if explicit != nil {
		return explicit, nil
	}
	if t.bound {
		return t.boundArgs, nil
	}
	if t.producer != nil {
		t.produceOnce.Do(func() {
			t.produced, t.produceErr = t.producer(ctx)
			t.producedSet.Store(true)
		})
		return t.produced, t.produceErr
	}
	return nil, nil
}

// cachedArguments returns the argument value without running a producer.
// ok is false when a deferred token has not been produced yet, or produced
// an error.
func (t *Token) cachedArguments(explicit any) (any, bool) {
	if explicit != nil {
		return explicit, true
	}
	if t.bound {
		return t.boundArgs, true
	}
	if t.producer != nil {
		if !t.producedSet.Load() || t.produceErr != nil {
			return nil, false
		}
		return t.produced, true
	}
	return nil, true
}

// validate runs the real token's validator, if any.
func (t *Token) validate(args any) error {
	real := t.unwrap()
	if real.validator == nil {
		return nil
	}
	if err := real.validator(args); err != nil {
		return &TokenValidationError{Token: real.name, Reason: err}
	}
	return nil
}

// InstanceNameOf derives the storage key a resolution of token would use,
// for cache-busting by name (see Resolver.Invalidate). requestID is empty
// for non-request placements.
func InstanceNameOf(token *Token, args any, requestID string) string {
	return instanceName(token, args, requestID)
}

// instanceName derives the deterministic storage key for one logical
// instance: token identity, argument fingerprint, and the owning request id
// for request-scoped placements. Same token + same args + same request is
// always the same name.
func instanceName(t *Token, args any, requestID string) string {
	real := t.unwrap()
	name := real.name + "#" + strconv.FormatUint(real.id, 10)
	if args != nil {
		name += "?" + fingerprint(args)
	}
	if requestID != "" {
		name += "@" + requestID
	}
	return name
}

// fingerprint reduces an argument value to a stable short hash. JSON is the
// canonical form; values that cannot marshal fall back to their Go
// representation.
func fingerprint(args any) string {
	data, err := json.Marshal(args)
	if err != nil {
		data = []byte(fmt.Sprintf("%#v", args))
	}
	h := fnv.New64a()
	_, _ = h.Write(data)
	return strconv.FormatUint(h.Sum64(), 36)
}
