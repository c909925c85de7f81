package command

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Registry is an immutable collection of named command handlers.
// Once created via NewRegistry, handlers cannot be added or removed.
// This ensures thread safety and lock-free lookups during dispatch.
type Registry struct {
	handlers   map[string]Handler
	names      []string // sorted for consistent iteration
	middleware []Middleware
}

// registryBuilder accumulates configuration during registry construction.
type registryBuilder struct {
	handlers   map[string]Handler
	middleware []Middleware
	errors     []error
}

// RegistryOption is a functional option for configuring a Registry.
type RegistryOption func(*registryBuilder)

// NewRegistry creates an immutable Registry with the given options.
// Returns an error if any command name is registered twice.
//
// Example usage:
//
//	registry, err := command.NewRegistry(
//	    command.WithMiddleware(command.PanicRecovery()),
//	    command.WithHandler("ping", pingHandler),
//	)
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	b := &registryBuilder{
		handlers: make(map[string]Handler),
	}

	for _, opt := range opts {
		opt(b)
	}

	if len(b.errors) > 0 {
		return nil, b.errors[0] // Return first error
	}

	// Build sorted name list for consistent iteration
	names := make([]string, 0, len(b.handlers))
	for name := range b.handlers {
		names = append(names, name)
	}
	sort.Strings(names)

	// Apply middleware chain to all handlers (FIFO order)
	wrappedHandlers := make(map[string]Handler, len(b.handlers))
	for name, handler := range b.handlers {
		wrapped := handler
		// Apply middleware in reverse order so first middleware wraps outermost
		for i := len(b.middleware) - 1; i >= 0; i-- {
			wrapped = b.middleware[i](wrapped)
		}
		wrappedHandlers[name] = wrapped
	}

	return &Registry{
		handlers:   wrappedHandlers,
		names:      names,
		middleware: b.middleware,
	}, nil
}

// Lookup resolves a command name to its handler.
// Returns a *NotFoundError if no handler is registered under the name.
func (r *Registry) Lookup(name string) (Handler, error) {
	handler, ok := r.handlers[name]
	if !ok {
		return nil, &NotFoundError{Cmd: name}
	}
	return handler, nil
}

// Invoke dispatches a command call by name on the calling goroutine.
// The context is wrapped with the command name for middleware access.
func (r *Registry) Invoke(ctx context.Context, name, requestID string, args json.RawMessage) (json.RawMessage, error) {
	handler, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return handler(InvokeContextFrom(ctx, name, requestID), args)
}

// Has returns true if a handler with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Names returns a sorted list of all registered command names.
func (r *Registry) Names() []string {
	result := make([]string, len(r.names))
	copy(result, r.names)
	return result
}

// addHandler registers a handler with the given name.
// Returns an error if the name is already registered.
func (b *registryBuilder) addHandler(name string, handler Handler) error {
	if name == "" {
		return fmt.Errorf("command name cannot be empty")
	}
	if _, exists := b.handlers[name]; exists {
		return fmt.Errorf("duplicate command name: %q", name)
	}
	b.handlers[name] = handler
	return nil
}

// WithHandler registers a raw Handler with the given name.
// Use WithFunc for type-safe registration with automatic JSON handling.
func WithHandler(name string, handler Handler) RegistryOption {
	return func(b *registryBuilder) {
		if err := b.addHandler(name, handler); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}

// WithFunc registers a typed command function with the given name.
// The request and response are marshalled through JSON automatically.
func WithFunc[Req any, Resp any](name string, fn Func[Req, Resp]) RegistryOption {
	return WithHandler(name, NewJSONHandler(fn))
}

// WithMiddleware appends middleware to the chain applied to every
// handler at construction time.
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}
