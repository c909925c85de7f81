package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hostlink-dev/hostlink/host"
	"github.com/hostlink-dev/hostlink/wireformat"
)

var (
	// ErrTimeout reports that no response arrived within the bounded
	// wait. The stale registry entry is removed before it is returned.
	ErrTimeout = errors.New("timed out awaiting response")

	// ErrChannelClosed reports that the response channel was closed
	// without a delivery, e.g. because the host was torn down. This is
	// a harness-level defect, distinct from a delivered failure
	// payload.
	ErrChannelClosed = errors.New("response channel closed without delivery")

	// ErrNoPending reports that the client's host carries no
	// pending-response registry. Build harness hosts with NewHost.
	ErrNoPending = errors.New("host has no pending-response registry")
)

// Expectation describes the terminal response a test expects: a tagged
// success or failure around any value that serializes to JSON.
type Expectation struct {
	status wireformat.ResponseStatus
	value  any
}

// Ok expects a success response carrying the given value.
func Ok(value any) Expectation {
	return Expectation{status: wireformat.ResponseStatusOk, value: value}
}

// Err expects a failure response carrying the given value.
func Err(value any) Expectation {
	return Expectation{status: wireformat.ResponseStatusErr, value: value}
}

// waitConfig carries per-call overrides for WaitResponse.
type waitConfig struct {
	timeout time.Duration
}

// WaitOption configures a single wait.
type WaitOption func(*waitConfig)

// WithTimeout overrides the host's default response timeout for one
// call.
func WithTimeout(d time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.timeout = d
	}
}

// WaitResponse submits an invocation and blocks until its terminal
// response arrives, the bounded wait expires, or the context is
// canceled.
//
// The pending slot is registered before the invocation is submitted,
// closing the race against a response that arrives first. Structural
// submission failures surface immediately; ErrTimeout and
// ErrChannelClosed are distinguishable with errors.Is.
func WaitResponse(ctx context.Context, client *host.Client, payload wireformat.InvokePayload, opts ...WaitOption) (wireformat.Response, error) {
	h := client.Host()
	pending, ok := host.StateOf[*Pending](h)
	if !ok {
		return wireformat.Response{}, ErrNoPending
	}

	cfg := waitConfig{timeout: h.Config().ResponseTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	key := KeyFor(payload)
	ch := pending.Register(key)

	if err := client.Submit(ctx, payload); err != nil {
		pending.Remove(key)
		return wireformat.Response{}, err
	}

	timer := time.NewTimer(cfg.timeout)
	defer timer.Stop()

	select {
	case resp, delivered := <-ch:
		if !delivered {
			return wireformat.Response{}, fmt.Errorf("awaiting (%d, %d): %w", payload.Callback, payload.Error, ErrChannelClosed)
		}
		return resp, nil
	case <-timer.C:
		pending.Remove(key)
		return wireformat.Response{}, fmt.Errorf("awaiting (%d, %d) after %s: %w", payload.Callback, payload.Error, cfg.timeout, ErrTimeout)
	case <-ctx.Done():
		pending.Remove(key)
		return wireformat.Response{}, ctx.Err()
	}
}

// outcome is the JSON-normalized form both sides of an assertion are
// reduced to before comparison.
type outcome struct {
	Status wireformat.ResponseStatus
	Value  any
}

// AssertResponse submits an invocation and requires that its terminal
// response equals the expectation. Both sides are normalized through
// JSON, so a native Go value and a value that serializes identically
// compare equal. Mismatches report both outcomes.
func AssertResponse(t testing.TB, client *host.Client, payload wireformat.InvokePayload, expected Expectation, opts ...WaitOption) {
	t.Helper()

	resp, err := WaitResponse(context.Background(), client, payload, opts...)
	require.NoError(t, err, "no response for command %q", payload.Cmd)

	want, err := normalizeValue(expected.value)
	require.NoError(t, err, "expected value does not serialize")
	got, err := normalizeRaw(resp.Value)
	require.NoError(t, err, "received value does not parse")

	require.Equal(t,
		outcome{Status: expected.status, Value: want},
		outcome{Status: resp.Status, Value: got},
		"response mismatch for command %q", payload.Cmd,
	)
}

func normalizeValue(v any) (any, error) {
	raw, err := wireformat.MarshalValue(v)
	if err != nil {
		return nil, err
	}
	return normalizeRaw(raw)
}

func normalizeRaw(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
