// Package tools maps tool names to inventory operations and runs them.
package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/xiaot623/librarydesk/internal/domain"
	"github.com/xiaot623/librarydesk/internal/toolargs"
)

// HandlerFunc runs a tool with normalized arguments.
type HandlerFunc func(ctx context.Context, args toolargs.Args) (interface{}, error)

type entry struct {
	def     Definition
	handler HandlerFunc
}

// Registry stores tool handlers keyed by tool name.
type Registry struct {
	mu      sync.RWMutex
	entries map[domain.ToolName]entry
	order   []domain.ToolName
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[domain.ToolName]entry),
	}
}

// Register adds a handler for a tool.
func (r *Registry) Register(def Definition, handler HandlerFunc) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if handler == nil {
		return fmt.Errorf("handler is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[def.Name]; exists {
		return fmt.Errorf("handler already registered for %s", def.Name)
	}
	r.entries[def.Name] = entry{def: def, handler: handler}
	r.order = append(r.order, def.Name)
	return nil
}

// MustRegister adds a handler or panics.
func (r *Registry) MustRegister(def Definition, handler HandlerFunc) {
	if err := r.Register(def, handler); err != nil {
		panic(err)
	}
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name domain.ToolName) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Definitions returns the registered tools in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.entries[name].def)
	}
	return defs
}

// Execute runs the handler for the tool.
func (r *Registry) Execute(ctx context.Context, name domain.ToolName, args toolargs.Args) (interface{}, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no handler registered for %s", name)
	}
	return e.handler(ctx, args)
}
