package injector

// Test hooks for the external test package.

func (h *Holder) MarkCreatedForTest(v any) { h.markCreated(v) }

func (h *Holder) AddDependencyForTest(name string) { h.addDependency(name) }
