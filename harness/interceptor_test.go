package harness

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostlink-dev/hostlink/host"
	"github.com/hostlink-dev/hostlink/wireformat"
)

func interceptorFixture(t *testing.T) (*host.Host, *Pending) {
	t.Helper()

	h, err := NewHost(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close(context.Background()) })

	pending, ok := host.StateOf[*Pending](h)
	require.True(t, ok, "harness host must manage a pending registry")
	return h, pending
}

func TestIntercept_HitDeliversToWaiter(t *testing.T) {
	h, pending := interceptorFixture(t)
	client := h.Client("main")

	key := Key{Callback: 1, Error: 2}
	recv := pending.Register(key)

	fellThrough := false
	responder := Intercept(func(client *host.Client, resp wireformat.Response, callback, errback wireformat.CallbackID) {
		fellThrough = true
	})

	want := wireformat.OkRaw([]byte(`"pong"`))
	responder(client, want, 1, 2)

	assert.Equal(t, want, <-recv, "the exact response must reach the waiter")
	assert.False(t, fellThrough)
	assert.Equal(t, 0, pending.Len(), "delivery must pop the registry entry")
}

func TestIntercept_MissFallsThrough(t *testing.T) {
	h, pending := interceptorFixture(t)
	client := h.Client("main")

	pending.Register(Key{Callback: 1, Error: 2})

	var fallthroughResp *wireformat.Response
	responder := Intercept(func(client *host.Client, resp wireformat.Response, callback, errback wireformat.CallbackID) {
		fallthroughResp = &resp
	})

	// Tokens (5, 6) match no registered key.
	want := wireformat.ErrRaw([]byte(`"nope"`))
	responder(client, want, 5, 6)

	require.NotNil(t, fallthroughResp, "unmatched responses take the default path")
	assert.Equal(t, want, *fallthroughResp)
	assert.Equal(t, 1, pending.Len(), "the registry must be unchanged on a miss")
}

func TestIntercept_NoRegistryManagedFallsThrough(t *testing.T) {
	// A plain production host has no pending registry.
	h, err := host.New(context.Background(), host.WithConfig(host.Config{}))
	require.NoError(t, err)
	defer h.Close(context.Background())

	delivered := false
	responder := Intercept(func(client *host.Client, resp wireformat.Response, callback, errback wireformat.CallbackID) {
		delivered = true
	})

	responder(h.Client("main"), wireformat.OkRaw([]byte(`null`)), 1, 2)
	assert.True(t, delivered)
}

func TestIntercept_AbandonedWaiterDoesNotBlock(t *testing.T) {
	h, pending := interceptorFixture(t)
	client := h.Client("main")

	key := Key{Callback: 1, Error: 2}
	pending.Register(key) // receiver discarded: waiter gave up

	responder := Intercept(host.DeliverToListener)

	done := make(chan struct{})
	go func() {
		responder(client, wireformat.OkRaw([]byte(`true`)), 1, 2)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("interceptor blocked delivering to an abandoned waiter")
	}
}
