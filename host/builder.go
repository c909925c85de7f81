package host

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hostlink-dev/hostlink/command"
)

// Option defines a functional option for configuring a Host.
type Option func(*builder)

// SetupHook runs during Build, after the host is assembled but before
// it accepts invocations. A failing hook aborts construction.
type SetupHook func(h *Host) error

type builder struct {
	cfg       *Config
	commands  *command.Registry
	catalog   *Catalog
	responder Responder
	assets    AssetProvider
	logger    *zap.Logger
	manage    []any
	setup     []SetupHook
	onClose   []func() error
}

// WithConfig overrides the environment-derived configuration.
func WithConfig(cfg Config) Option {
	return func(b *builder) {
		b.cfg = &cfg
	}
}

// WithCommands sets the host's command registry.
func WithCommands(reg *command.Registry) Option {
	return func(b *builder) {
		b.commands = reg
	}
}

// WithCatalog attaches a command catalog used to describe and check
// command arguments at submission time.
func WithCatalog(c *Catalog) Option {
	return func(b *builder) {
		b.catalog = c
	}
}

// WithResponder overrides how terminal responses reach their callers.
// The responder is installed before Build returns, so no invocation can
// ever be dispatched without it.
func WithResponder(r Responder) Option {
	return func(b *builder) {
		b.responder = r
	}
}

// WithAssets sets the host's asset provider.
func WithAssets(p AssetProvider) Option {
	return func(b *builder) {
		b.assets = p
	}
}

// WithLogger sets the host's logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *builder) {
		b.logger = logger
	}
}

// WithManagedState attaches values as host-wide state during Build.
func WithManagedState(values ...any) Option {
	return func(b *builder) {
		b.manage = append(b.manage, values...)
	}
}

// WithSetup appends a setup hook.
func WithSetup(hook SetupHook) Option {
	return func(b *builder) {
		b.setup = append(b.setup, hook)
	}
}

// WithOnClose appends a function to run when the host closes.
func WithOnClose(fn func() error) Option {
	return func(b *builder) {
		b.onClose = append(b.onClose, fn)
	}
}

// New builds a Host from the given options. Configuration defaults come
// from the environment, the command registry defaults to empty, and the
// responder defaults to DeliverToListener.
func New(ctx context.Context, opts ...Option) (*Host, error) {
	b := &builder{}
	for _, opt := range opts {
		opt(b)
	}

	cfg := Config{}
	if b.cfg != nil {
		cfg = *b.cfg
	} else {
		parsed, err := ConfigFromEnv()
		if err != nil {
			return nil, err
		}
		cfg = parsed
	}

	if b.commands == nil {
		reg, err := command.NewRegistry()
		if err != nil {
			return nil, fmt.Errorf("failed to create default registry: %w", err)
		}
		b.commands = reg
	}
	if b.responder == nil {
		b.responder = DeliverToListener
	}
	if b.assets == nil {
		b.assets = NoopAssets()
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}

	h := &Host{
		id:        uuid.NewString(),
		cfg:       cfg,
		commands:  b.commands,
		catalog:   b.catalog,
		responder: b.responder,
		assets:    b.assets,
		logger:    b.logger,
		onClose:   b.onClose,
	}
	if cfg.MaxInFlight > 0 {
		h.sem = make(chan struct{}, cfg.MaxInFlight)
	}

	for _, v := range b.manage {
		h.Manage(v)
	}

	for _, hook := range b.setup {
		if err := hook(h); err != nil {
			return nil, fmt.Errorf("setup hook failed: %w", err)
		}
	}

	h.logger.Debug("host built", zap.String("host_id", h.id))
	return h, nil
}
