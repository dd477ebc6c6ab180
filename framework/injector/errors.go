package injector

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrNilToken is returned when a nil token is presented for resolution
	// or registration.
	ErrNilToken = errors.New("injector: nil token")

	// ErrNilFactory is returned when a record is registered without a factory.
	ErrNilFactory = errors.New("injector: nil factory")

	// ErrNoRequestContext is returned when a request-scoped token is resolved
	// outside request-scoped execution.
	ErrNoRequestContext = errors.New("injector: no active request context")

	// ErrRequestClosed is returned when a resolution targets a request
	// context that has already been closed.
	ErrRequestClosed = errors.New("injector: request context closed")
)

// errStaleScope settles a holder that was inserted under a scope the registry
// no longer holds. It never escapes the resolver; every observer retries the
// lookup under the current scope.
var errStaleScope = errors.New("injector: placement scope superseded")

// FactoryNotFoundError is returned when a token has no registry record.
type FactoryNotFoundError struct{ Token string }

func (e *FactoryNotFoundError) Error() string {
	// Example: injector: no provider registered for "db"
	return "injector: no provider registered for " + strconv.Quote(e.Token)
}

// PriorityConflictError is returned when two candidate records for the same
// token share the winning priority, making the choice ambiguous.
type PriorityConflictError struct {
	Token    string
	Priority int
}

func (e *PriorityConflictError) Error() string {
	return "injector: ambiguous providers for " + strconv.Quote(e.Token) +
		" at priority " + strconv.Itoa(e.Priority)
}

// TokenValidationError is returned when resolution arguments fail the
// token's validator. The inner reason is preserved via Unwrap.
type TokenValidationError struct {
	Token  string
	Reason error
}

func (e *TokenValidationError) Error() string {
	return "injector: invalid arguments for " + strconv.Quote(e.Token) + ": " + e.Reason.Error()
}

func (e *TokenValidationError) Unwrap() error { return e.Reason }

// CircularDependencyError is returned when the resolution call chain revisits
// an identity already under construction. Cycle holds the ordered identities,
// first and last entries equal.
type CircularDependencyError struct{ Cycle []string }

func (e *CircularDependencyError) Error() string {
	return "injector: circular dependency: " + strings.Join(e.Cycle, " -> ")
}

// InitializationError is returned when a factory fails. It is also the value
// broadcast to every caller that awaited the same in-flight construction.
type InitializationError struct {
	Name string
	Err  error
}

func (e *InitializationError) Error() string {
	return "injector: initialization of " + strconv.Quote(e.Name) + " failed: " + e.Err.Error()
}

func (e *InitializationError) Unwrap() error { return e.Err }

// DependencyResolutionError wraps a failure of a nested resolve with the
// identity of the dependent under construction, for traceability.
type DependencyResolutionError struct {
	Dependent string
	Token     string
	Err       error
}

func (e *DependencyResolutionError) Error() string {
	return "injector: " + strconv.Quote(e.Dependent) + " could not resolve " +
		strconv.Quote(e.Token) + ": " + e.Err.Error()
}

func (e *DependencyResolutionError) Unwrap() error { return e.Err }

// InstanceDestroyingError reports a lookup that raced an in-progress destroy.
// The resolver recovers from it internally by awaiting the destroy and
// retrying; it surfaces only from cache-only lookups.
type InstanceDestroyingError struct{ Name string }

func (e *InstanceDestroyingError) Error() string {
	return "injector: instance " + strconv.Quote(e.Name) + " is being destroyed"
}

// InstanceNotFoundError reports a lookup for an instance that is not stored.
type InstanceNotFoundError struct{ Name string }

func (e *InstanceNotFoundError) Error() string {
	return "injector: instance " + strconv.Quote(e.Name) + " not found"
}
