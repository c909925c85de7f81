package host

import (
	"github.com/hostlink-dev/hostlink/wireformat"
)

// Responder is the single override point for how a terminal response
// reaches its caller. The host calls the installed Responder exactly
// once per accepted invocation, on whatever goroutine the command
// finished on, with the caller-supplied callback tokens alongside the
// response.
//
// Production hosts use DeliverToListener; the test harness installs an
// interceptor that correlates responses back to blocked assertions and
// falls through to the default for everything else.
type Responder func(client *Client, resp wireformat.Response, callback, errback wireformat.CallbackID)

// Listener receives responses on the default delivery path of a client.
// It models the outward-facing surface (e.g. a UI bridge) that terminal
// responses land on when nothing intercepts them.
type Listener func(resp wireformat.Response, callback, errback wireformat.CallbackID)

// DeliverToListener is the default Responder: it forwards the response
// to the client's listener, dropping it silently when none is set.
func DeliverToListener(client *Client, resp wireformat.Response, callback, errback wireformat.CallbackID) {
	if l := client.Listener(); l != nil {
		l(resp, callback, errback)
	}
}
