package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostlink-dev/hostlink/command"
	"github.com/hostlink-dev/hostlink/host"
	"github.com/hostlink-dev/hostlink/internal/testutil"
	"github.com/hostlink-dev/hostlink/wireformat"
)

// testHost builds a harness host serving the commands the scenarios
// exercise. The gate channel holds gated commands until the test
// releases them.
func testHost(t *testing.T) (*host.Host, chan struct{}) {
	t.Helper()

	gate := make(chan struct{})

	reg, err := command.NewRegistry(
		command.WithMiddleware(command.PanicRecovery()),
		command.WithFunc("ping", func(ctx context.Context, _ struct{}) (string, error) {
			return "pong", nil
		}),
		command.WithHandler("fail_cmd", func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			return nil, errors.New("bad input")
		}),
		command.WithHandler("echo", func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			return args, nil
		}),
		command.WithHandler("gated_echo", func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			<-gate
			return args, nil
		}),
	)
	require.NoError(t, err)

	h, err := NewHost(context.Background(), host.WithCommands(reg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close(context.Background()) })

	return h, gate
}

func TestAssertResponse_PingPong(t *testing.T) {
	h, _ := testHost(t)
	client := h.Client("main")

	AssertResponse(t, client, wireformat.InvokePayload{
		Cmd:      "ping",
		Callback: 1,
		Error:    2,
	}, Ok("pong"))
}

func TestAssertResponse_DeliveredFailurePayload(t *testing.T) {
	h, _ := testHost(t)
	client := h.Client("main")

	AssertResponse(t, client, wireformat.InvokePayload{
		Cmd:      "fail_cmd",
		Callback: 1,
		Error:    2,
	}, Err("bad input"))
}

func TestAssertResponse_NormalizesThroughJSON(t *testing.T) {
	h, _ := testHost(t)
	client := h.Client("main")

	type point struct {
		X int `json:"x"`
		Y int `json:"y"`
	}

	// A native struct and the raw JSON it serializes to compare equal.
	AssertResponse(t, client, wireformat.InvokePayload{
		Cmd:      "echo",
		Callback: 1,
		Error:    2,
		Args:     testutil.MustMarshal(t, point{X: 1, Y: 2}),
	}, Ok(point{X: 1, Y: 2}))
}

func TestAssertResponse_MismatchFails(t *testing.T) {
	h, _ := testHost(t)
	client := h.Client("main")

	rec := &recordingT{TB: t}
	done := make(chan struct{})
	go func() {
		defer close(done)
		// The real outcome is Err("bad input"); expecting Ok must fail.
		AssertResponse(rec, client, wireformat.InvokePayload{
			Cmd:      "fail_cmd",
			Callback: 1,
			Error:    2,
		}, Ok("bad input"))
	}()
	<-done

	assert.True(t, rec.failed, "mismatched expectation must fail the test")
	assert.Contains(t, rec.log(), "response mismatch")
}

func TestAssertResponse_InterleavedInvocations(t *testing.T) {
	h, gate := testHost(t)
	client := h.Client("main")

	type result struct {
		resp wireformat.Response
		err  error
	}

	// Submit both before either can resolve; the gate holds them.
	first := make(chan result, 1)
	second := make(chan result, 1)
	go func() {
		resp, err := WaitResponse(context.Background(), client, wireformat.InvokePayload{
			Cmd:      "gated_echo",
			Callback: 1,
			Error:    2,
			Args:     json.RawMessage(`"alpha"`),
		})
		first <- result{resp, err}
	}()
	go func() {
		resp, err := WaitResponse(context.Background(), client, wireformat.InvokePayload{
			Cmd:      "gated_echo",
			Callback: 3,
			Error:    4,
			Args:     json.RawMessage(`"beta"`),
		})
		second <- result{resp, err}
	}()

	pending, ok := host.StateOf[*Pending](h)
	require.True(t, ok)
	require.Eventually(t, func() bool { return pending.Len() == 2 },
		5*time.Second, time.Millisecond, "both invocations should be pending")

	close(gate)

	r1 := <-first
	require.NoError(t, r1.err)
	assert.JSONEq(t, `"alpha"`, string(r1.resp.Value), "results must not cross")

	r2 := <-second
	require.NoError(t, r2.err)
	assert.JSONEq(t, `"beta"`, string(r2.resp.Value), "results must not cross")
}

func TestWaitResponse_UnknownCommand(t *testing.T) {
	h, _ := testHost(t)
	client := h.Client("main")

	_, err := WaitResponse(context.Background(), client, wireformat.InvokePayload{
		Cmd:      "does_not_exist",
		Callback: 1,
		Error:    2,
	})
	require.Error(t, err, "an unknown command must fail submission, not hang")

	var notFound *command.NotFoundError
	assert.True(t, errors.As(err, &notFound))

	pending, ok := host.StateOf[*Pending](h)
	require.True(t, ok)
	assert.Equal(t, 0, pending.Len(), "failed submission must not leak a pending entry")
}

func TestWaitResponse_Timeout(t *testing.T) {
	h, gate := testHost(t)
	t.Cleanup(func() { close(gate) })
	client := h.Client("main")

	_, err := WaitResponse(context.Background(), client, wireformat.InvokePayload{
		Cmd:      "gated_echo",
		Callback: 1,
		Error:    2,
	}, WithTimeout(50*time.Millisecond))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.False(t, errors.Is(err, ErrChannelClosed))

	pending, ok := host.StateOf[*Pending](h)
	require.True(t, ok)
	assert.Equal(t, 0, pending.Len(), "timeout must clean up the stale entry")
}

func TestWaitResponse_ChannelClosedOnTeardown(t *testing.T) {
	h, gate := testHost(t)
	t.Cleanup(func() { close(gate) })
	client := h.Client("main")

	pending, ok := host.StateOf[*Pending](h)
	require.True(t, ok)

	got := make(chan error, 1)
	go func() {
		_, err := WaitResponse(context.Background(), client, wireformat.InvokePayload{
			Cmd:      "gated_echo",
			Callback: 1,
			Error:    2,
		})
		got <- err
	}()

	require.Eventually(t, func() bool { return pending.Len() == 1 },
		5*time.Second, time.Millisecond)
	require.NoError(t, h.Close(context.Background()))

	select {
	case err := <-got:
		assert.True(t, errors.Is(err, ErrChannelClosed),
			"teardown must surface as a closed channel, not a timeout or failure payload")
	case <-time.After(5 * time.Second):
		t.Fatal("waiter never unblocked after teardown")
	}
}

func TestWaitResponse_ContextCanceled(t *testing.T) {
	h, gate := testHost(t)
	t.Cleanup(func() { close(gate) })
	client := h.Client("main")

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan error, 1)
	go func() {
		_, err := WaitResponse(ctx, client, wireformat.InvokePayload{
			Cmd:      "gated_echo",
			Callback: 1,
			Error:    2,
		})
		got <- err
	}()

	pending, ok := host.StateOf[*Pending](h)
	require.True(t, ok)
	require.Eventually(t, func() bool { return pending.Len() == 1 },
		5*time.Second, time.Millisecond)

	cancel()
	err := <-got
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, pending.Len())
}

func TestWaitResponse_NoPendingRegistry(t *testing.T) {
	// A host built directly, not via harness.NewHost, has no registry.
	h, err := host.New(context.Background(), host.WithConfig(host.Config{}))
	require.NoError(t, err)
	defer h.Close(context.Background())

	_, err = WaitResponse(context.Background(), h.Client("main"), wireformat.InvokePayload{
		Cmd: "ping", Callback: 1, Error: 2,
	})
	assert.True(t, errors.Is(err, ErrNoPending))
}

// recordingT captures test failures so assertions about AssertResponse
// itself can run without failing the real test.
type recordingT struct {
	testing.TB
	failed bool
	msgs   []string
}

func (r *recordingT) Helper() {}

func (r *recordingT) Errorf(format string, args ...any) {
	r.failed = true
	r.msgs = append(r.msgs, fmt.Sprintf(format, args...))
}

func (r *recordingT) FailNow() {
	r.failed = true
	runtime.Goexit()
}

func (r *recordingT) log() string {
	out := ""
	for _, m := range r.msgs {
		out += m + "\n"
	}
	return out
}
