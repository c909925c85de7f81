// Package harness provides deterministic request/response correlation
// for testing commands served by a Hostlink host.
//
// A harness host is a reduced-capability host (no real asset bundle, no
// outward delivery surface) that is otherwise indistinguishable to
// command code from a production instance. Its responder is wrapped by
// an interceptor that resolves each terminal response against a
// registry of pending assertions: on a hit the response is delivered to
// the blocked test, on a miss it falls through to the host's default
// delivery path.
//
// Typical usage:
//
//	h, _ := harness.NewHost(ctx, host.WithCommands(reg))
//	defer h.Close(ctx)
//	client := h.Client("main")
//
//	harness.AssertResponse(t, client, wireformat.InvokePayload{
//	    Cmd:      "ping",
//	    Callback: 1,
//	    Error:    2,
//	}, harness.Ok("pong"))
package harness
