package widgets

import (
	"fmt"
	"sync"

	"github.com/goliatone/go-localhtml/pkg/errdefs"
)

// Registration binds a kind to its constructor.
type Registration struct {
	Kind        string
	DisplayName string
	New         Constructor
}

// Registry maps kind names to constructors. Kinds keep registration order.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Registration
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: map[string]Registration{}}
}

// Register adds kind. Empty kinds, nil constructors and duplicates fail.
func (r *Registry) Register(kind, displayName string, ctor Constructor) error {
	if kind == "" {
		return &errdefs.MissingRequiredFieldError{Op: "widgets", Field: "kind"}
	}
	if ctor == nil {
		return &errdefs.MissingRequiredFieldError{Op: "widgets", Field: "constructor"}
	}
	if displayName == "" {
		displayName = kind
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[kind]; exists {
		return fmt.Errorf("widgets: kind %q already registered", kind)
	}
	r.kinds[kind] = Registration{Kind: kind, DisplayName: displayName, New: ctor}
	r.order = append(r.order, kind)
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(kind, displayName string, ctor Constructor) {
	if err := r.Register(kind, displayName, ctor); err != nil {
		panic(err)
	}
}

// Lookup returns the registration for kind.
func (r *Registry) Lookup(kind string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.kinds[kind]
	return reg, ok
}

// Kinds lists registered kinds in registration order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
