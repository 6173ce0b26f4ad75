package handler

import (
	"fmt"
	"strings"

	"github.com/hookgate/hookgate/internal/hook"
	"github.com/hookgate/hookgate/internal/state"
)

// Registry holds handlers in registration order. Order is the dispatch
// and audit order, so it must stay deterministic.
type Registry struct {
	ordered []Handler
	byName  map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Handler)}
}

// Register adds a handler. Names must be unique, non-reserved, and a
// handler must subscribe to at least one lifecycle point.
func (r *Registry) Register(h Handler) error {
	name := strings.TrimSpace(h.Name())
	if name == "" {
		return fmt.Errorf("handler name is required")
	}
	if state.IsReserved(name) {
		return fmt.Errorf("handler name %q is reserved", name)
	}
	if len(h.Points()) == 0 {
		return fmt.Errorf("handler %q subscribes to no lifecycle points", name)
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("handler already registered: %s", name)
	}

	r.ordered = append(r.ordered, h)
	r.byName[name] = h
	return nil
}

// Get retrieves a handler by name.
func (r *Registry) Get(name string) (Handler, bool) {
	h, ok := r.byName[strings.TrimSpace(name)]
	return h, ok
}

// List returns all handlers in registration order.
func (r *Registry) List() []Handler {
	result := make([]Handler, len(r.ordered))
	copy(result, r.ordered)
	return result
}

// ForPoint returns the handlers subscribed to a lifecycle point, in
// registration order.
func (r *Registry) ForPoint(point hook.Point) []Handler {
	var result []Handler
	for _, h := range r.ordered {
		for _, p := range h.Points() {
			if p == point {
				result = append(result, h)
				break
			}
		}
	}
	return result
}

// DefaultRegistry returns the builtin handler set in its canonical
// registration order.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, h := range []Handler{
		NewDangerousCommands(),
		NewProtectedFiles(),
		NewSecretScan(),
		NewActivityLog(),
		NewSubagentUsage(),
		NewCompactMarker(),
	} {
		if err := r.Register(h); err != nil {
			// Builtin registration only fails on a programming
			// error (duplicate or reserved name).
			panic(err)
		}
	}
	return r
}
