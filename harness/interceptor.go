package harness

import (
	"github.com/hostlink-dev/hostlink/host"
	"github.com/hostlink-dev/hostlink/wireformat"
)

// Intercept wraps a Responder so that terminal responses whose tokens
// match a pending assertion are delivered to the waiting test instead
// of the default path. Responses matching no pending key fall through
// to next unchanged, which is exactly what production delivery looks
// like when the harness is not actively asserting.
//
// The pending registry is looked up in the host's managed state, so
// multiple harness hosts in one process never cross-talk.
func Intercept(next host.Responder) host.Responder {
	return func(client *host.Client, resp wireformat.Response, callback, errback wireformat.CallbackID) {
		pending, ok := host.StateOf[*Pending](client.Host())
		if !ok {
			next(client, resp, callback, errback)
			return
		}
		if ch, ok := pending.Take(Key{Callback: callback, Error: errback}); ok {
			// Buffered one-shot channel: the send cannot block, and a
			// receiver that already gave up simply never drains it.
			ch <- resp
			return
		}
		next(client, resp, callback, errback)
	}
}
