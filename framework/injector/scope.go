package injector

// Scope is the lifetime policy of an injectable capability.
type Scope uint8

const (
	// Singleton — one instance for the whole process.
	Singleton Scope = iota

	// Request — one instance per inbound request, torn down with it.
	Request

	// Transient — a fresh instance on every resolution, never cached.
	Transient
)

func (s Scope) String() string {
	switch s {
	case Singleton:
		return "singleton"
	case Request:
		return "request"
	case Transient:
		return "transient"
	}
	return "unknown"
}

// Status tracks a holder through its lifecycle.
//
// Valid transitions:
//
//	Creating → Created
//	Creating → Error
//	Created  → Destroying → (removed)
//	Error    → Destroying → (removed)
type Status uint8

const (
	StatusCreating Status = iota
	StatusCreated
	StatusDestroying
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusCreating:
		return "creating"
	case StatusCreated:
		return "created"
	case StatusDestroying:
		return "destroying"
	case StatusError:
		return "error"
	}
	return "unknown"
}
