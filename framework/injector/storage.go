package injector

import (
	"reflect"
	"sync"
)

// Storage is a key→holder map owning the instances of exactly one scope.
// Resolution logic selects a backend by scope and stays otherwise
// scope-agnostic.
type Storage interface {
	// Get returns the holder stored under name.
	Get(name string) (*Holder, bool)

	// Set stores a holder under name, replacing any previous entry.
	Set(name string, h *Holder)

	// Delete removes the entry and reports whether it existed.
	Delete(name string) bool

	// GetOrCreate returns the existing holder, or registers and stores a
	// fresh Creating holder. The check-then-insert is indivisible: of any
	// number of concurrent callers for one name, exactly one observes
	// created == true.
	GetOrCreate(name string, scope Scope) (h *Holder, created bool)

	// ForEach visits every holder until fn returns false.
	ForEach(fn func(h *Holder) bool)

	// FindByInstance reverse-looks-up the holder owning value, used during
	// invalidation when only the instance is known.
	FindByInstance(value any) *Holder

	// FindDependents returns the holders in this backend whose dependency
	// set contains name.
	FindDependents(name string) []*Holder

	// Len returns the number of stored holders.
	Len() int
}

// NewStorage returns an empty mutex-guarded map backend.
func NewStorage() Storage {
	return &mapStorage{holders: make(map[string]*Holder)}
}

type mapStorage struct {
	mu      sync.RWMutex
	holders map[string]*Holder
}

func (s *mapStorage) Get(name string) (*Holder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.holders[name]
	return h, ok
}

func (s *mapStorage) Set(name string, h *Holder) {
	s.mu.Lock()
	s.holders[name] = h
	s.mu.Unlock()
}

func (s *mapStorage) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.holders[name]; !ok {
		return false
	}
	delete(s.holders, name)
	return true
}

func (s *mapStorage) GetOrCreate(name string, scope Scope) (*Holder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.holders[name]; ok {
		return h, false
	}
	h := newHolder(name, scope)
	s.holders[name] = h
	return h, true
}

func (s *mapStorage) ForEach(fn func(h *Holder) bool) {
	for _, h := range s.snapshot() {
		if !fn(h) {
			return
		}
	}
}

func (s *mapStorage) FindByInstance(value any) *Holder {
	for _, h := range s.snapshot() {
		inst, _ := h.Instance()
		if sameInstance(inst, value) {
			return h
		}
	}
	return nil
}

func (s *mapStorage) FindDependents(name string) []*Holder {
	var out []*Holder
	for _, h := range s.snapshot() {
		if h.dependsOn(name) {
			out = append(out, h)
		}
	}
	return out
}

func (s *mapStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.holders)
}

// snapshot copies the holder set so visits run without the map lock,
// letting callbacks touch storage.
func (s *mapStorage) snapshot() []*Holder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Holder, 0, len(s.holders))
	for _, h := range s.holders {
		out = append(out, h)
	}
	return out
}

// sameInstance compares by identity, guarding against uncomparable types.
func sameInstance(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
