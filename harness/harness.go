package harness

import (
	"context"

	"github.com/hostlink-dev/hostlink/host"
)

// NewHost builds a reduced-capability host for testing: empty asset
// provider, no-op logger, and the response interceptor installed around
// the default delivery path before the host can dispatch anything.
// A fresh pending registry is managed on the host, so each harness host
// correlates only its own invocations.
//
// Additional host options are applied after the harness defaults, so
// tests can attach their command registry, a logger, or managed state
// of their own. Overriding the responder is not supported; wrap
// behavior into the client's listener instead.
func NewHost(ctx context.Context, opts ...host.Option) (*host.Host, error) {
	pending := NewPending()

	base := []host.Option{
		host.WithAssets(host.NoopAssets()),
		host.WithManagedState(pending),
		host.WithOnClose(pending.Close),
	}
	base = append(base, opts...)
	// Installed last so no option can displace the interceptor.
	base = append(base, host.WithResponder(Intercept(host.DeliverToListener)))

	return host.New(ctx, base...)
}
