package injector_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navios-org/navios-sub001/framework/injector"
)

func TestToken_IdentityNotStructure(t *testing.T) {
	t.Parallel()

	a := injector.NewToken("db")
	b := injector.NewToken("db")
	assert.NotEqual(t, a.ID(), b.ID(), "same name, distinct identity")
	assert.Equal(t, "db", a.Name())
}

func TestToken_WrappersShareIdentity(t *testing.T) {
	t.Parallel()

	tok := injector.NewToken("report")
	bound := tok.Bind("july")
	rebound := bound.Bind("august")
	lazy := bound.Deferred(func(ctx context.Context) (any, error) { return "sept", nil })

	assert.Equal(t, tok.ID(), bound.ID())
	assert.Equal(t, tok.ID(), rebound.ID(), "rebinding wraps the real token, not the wrapper")
	assert.Equal(t, tok.ID(), lazy.ID())
}

func TestInstanceNameOf_Deterministic(t *testing.T) {
	t.Parallel()

	tok := injector.NewToken("report")

	tests := []struct {
		name      string
		argsA     any
		argsB     any
		requestA  string
		requestB  string
		wantEqual bool
	}{
		{"no args, no request", nil, nil, "", "", true},
		{"equal args", map[string]any{"m": 1}, map[string]any{"m": 1}, "", "", true},
		{"different args", map[string]any{"m": 1}, map[string]any{"m": 2}, "", "", false},
		{"same args, different request", "x", "x", "r1", "r2", false},
		{"same args, same request", "x", "x", "r1", "r1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := injector.InstanceNameOf(tok, tt.argsA, tt.requestA)
			b := injector.InstanceNameOf(tok, tt.argsB, tt.requestB)
			if tt.wantEqual {
				assert.Equal(t, a, b)
			} else {
				assert.NotEqual(t, a, b)
			}
		})
	}
}

func TestToken_DeferredProducerFailureSurfaces(t *testing.T) {
	t.Parallel()

	r := injector.New()
	tok := injector.NewToken("report")
	register(t, r, tok, injector.Singleton, func(ctx context.Context, r *injector.Resolver, args any) (any, error) {
		return &Service{Name: "report"}, nil
	})

	lazy := tok.Deferred(func(ctx context.Context) (any, error) {
		return nil, errors.New("producer down")
	})
	_, err := r.Resolve(context.Background(), lazy, nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "producer down")
}
