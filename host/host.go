package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hostlink-dev/hostlink/command"
	"github.com/hostlink-dev/hostlink/wireformat"
)

// ErrHostClosed is returned by Submit after the host has been closed.
var ErrHostClosed = errors.New("host is closed")

// Host dispatches invocations to registered commands and delivers each
// terminal response through the installed Responder.
type Host struct {
	id        string
	cfg       Config
	commands  *command.Registry
	catalog   *Catalog
	responder Responder
	assets    AssetProvider
	logger    *zap.Logger

	state   sync.Map // reflect.Type -> any
	sem     chan struct{}
	onClose []func() error
	closed  atomic.Bool
}

// ID returns the host's unique instance identifier.
func (h *Host) ID() string {
	return h.id
}

// Config returns the host's effective configuration.
func (h *Host) Config() Config {
	return h.cfg
}

// Commands returns the host's command registry.
func (h *Host) Commands() *command.Registry {
	return h.commands
}

// Catalog returns the host's command catalog, or nil if none is set.
func (h *Host) Catalog() *Catalog {
	return h.catalog
}

// Assets returns the host's asset provider.
func (h *Host) Assets() AssetProvider {
	return h.assets
}

// Manage attaches a value as host-wide state, keyed by its dynamic
// type. Managing a second value of the same type replaces the first.
// The value is reachable from any client created under this host.
func (h *Host) Manage(value any) {
	h.state.Store(reflect.TypeOf(value), value)
}

// StateOf retrieves a managed value of type T from the host.
func StateOf[T any](h *Host) (T, bool) {
	var zero T
	v, ok := h.state.Load(reflect.TypeOf((*T)(nil)).Elem())
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// Client creates an execution-context handle bound to this host.
// Command code cannot distinguish clients of a reduced test host from
// clients of a production host.
func (h *Host) Client(name string) *Client {
	return &Client{host: h, name: name}
}

// Close releases resources held by the host. Pending invocations may
// still finish, but new submissions are rejected.
func (h *Host) Close(ctx context.Context) error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	var firstErr error
	for _, fn := range h.onClose {
		if err := fn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	h.logger.Debug("host closed", zap.String("host_id", h.id))
	return firstErr
}

// submit validates and accepts an invocation on behalf of a client,
// then executes it asynchronously. Structural failures (malformed
// payload, unknown command, invalid args) surface immediately; nothing
// about the command's eventual outcome does.
func (h *Host) submit(ctx context.Context, client *Client, payload wireformat.InvokePayload) error {
	if h.closed.Load() {
		return ErrHostClosed
	}

	if err := wireformat.ValidatePayload(&payload); err != nil {
		return err
	}

	handler, err := h.commands.Lookup(payload.Cmd)
	if err != nil {
		return err
	}

	if h.catalog != nil {
		if err := h.catalog.CheckArgs(&payload); err != nil {
			return err
		}
	}

	requestID := uuid.NewString()
	h.logger.Debug("invocation accepted",
		zap.String("cmd", payload.Cmd),
		zap.String("request_id", requestID),
		zap.Uint32("callback", uint32(payload.Callback)),
		zap.Uint32("errback", uint32(payload.Error)),
	)

	go h.run(ctx, client, handler, payload, requestID)
	return nil
}

// run executes one accepted invocation and delivers its terminal
// response. It is the only producer of responses for the invocation.
func (h *Host) run(ctx context.Context, client *Client, handler command.Handler, payload wireformat.InvokePayload, requestID string) {
	if h.sem != nil {
		h.sem <- struct{}{}
		defer func() { <-h.sem }()
	}

	ictx := command.InvokeContextFrom(ctx, payload.Cmd, requestID)
	value, err := handler(ictx, payload.Args)

	var resp wireformat.Response
	if err != nil {
		resp = wireformat.ErrRaw(failureValue(err))
	} else {
		if value == nil {
			value = json.RawMessage("null")
		}
		resp = wireformat.OkRaw(value)
	}

	h.logger.Debug("invocation finished",
		zap.String("cmd", payload.Cmd),
		zap.String("request_id", requestID),
		zap.Bool("ok", resp.IsOk()),
	)

	h.responder(client, resp, payload.Callback, payload.Error)
}

// failureValue converts a handler error into the failure payload.
// Structured ErrorDetail errors serialize as-is; plain errors become
// their message as a JSON string.
func failureValue(err error) json.RawMessage {
	var detail *wireformat.ErrorDetail
	if errors.As(err, &detail) {
		if raw, merr := json.Marshal(detail); merr == nil {
			return raw
		}
	}
	raw, merr := json.Marshal(err.Error())
	if merr != nil {
		return json.RawMessage(`"internal error"`)
	}
	return raw
}

// Client is an execution-context handle created from a Host. Commands
// submitted through a client carry it to the responder so the delivery
// path knows where the response belongs.
type Client struct {
	host *Host
	name string

	mu       sync.Mutex
	listener Listener
}

// Name returns the client's label.
func (c *Client) Name() string {
	return c.name
}

// Host returns the host this client was created from.
func (c *Client) Host() *Host {
	return c.host
}

// SetListener installs the client's default delivery target.
func (c *Client) SetListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = l
}

// Listener returns the currently installed listener, or nil.
func (c *Client) Listener() Listener {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listener
}

// Submit validates and accepts an invocation for asynchronous
// execution. A nil error means the invocation was accepted and exactly
// one terminal response will eventually reach the responder; it says
// nothing about the command's outcome.
func (c *Client) Submit(ctx context.Context, payload wireformat.InvokePayload) error {
	if err := c.host.submit(ctx, c, payload); err != nil {
		return fmt.Errorf("submit %q: %w", payload.Cmd, err)
	}
	return nil
}
