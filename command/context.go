package command

import (
	"context"
)

// InvokeContext wraps a standard context.Context with invocation-scoped
// helpers. It gives middleware access to the invoked command name and
// request ID without polluting the standard context.
type InvokeContext interface {
	context.Context

	// Command returns the name of the command being invoked.
	Command() string

	// RequestID returns the host-assigned identifier for this invocation.
	RequestID() string
}

// invokeContext is the concrete implementation of InvokeContext.
type invokeContext struct {
	context.Context
	cmd       string
	requestID string
}

// NewInvokeContext creates a new InvokeContext wrapping the given context.
func NewInvokeContext(ctx context.Context, cmd, requestID string) InvokeContext {
	return &invokeContext{
		Context:   ctx,
		cmd:       cmd,
		requestID: requestID,
	}
}

func (c *invokeContext) Command() string {
	return c.cmd
}

func (c *invokeContext) RequestID() string {
	return c.requestID
}

// InvokeContextFrom extracts an InvokeContext from a context.Context.
// If the context is already an InvokeContext, it is returned directly.
// Otherwise a new one is created wrapping the given context.
func InvokeContextFrom(ctx context.Context, cmd, requestID string) InvokeContext {
	if ic, ok := ctx.(InvokeContext); ok {
		return ic
	}
	return NewInvokeContext(ctx, cmd, requestID)
}
