package command

import (
	"context"
	"encoding/json"
	"fmt"
)

// Handler executes one command invocation. It accepts the raw JSON
// argument value and returns the raw JSON success value, or an error
// that becomes the invocation's failure payload.
type Handler func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// Func is a generic typed command signature. It accepts a context and
// a typed request, and returns a typed response or an error.
type Func[Req any, Resp any] func(context.Context, Req) (Resp, error)

// NewJSONHandler wraps a typed Func into a Handler.
// It handles the JSON unmarshalling of the request and marshalling of
// the response. Empty or null args decode into the zero request.
//
// Usage:
//
//	pingHandler := command.NewJSONHandler(func(ctx context.Context, req PingRequest) (PingResponse, error) {
//	    return PingResponse{Reply: "pong"}, nil
//	})
func NewJSONHandler[Req any, Resp any](fn Func[Req, Resp]) Handler {
	return func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var req Req
		if len(args) > 0 && string(args) != "null" {
			if err := json.Unmarshal(args, &req); err != nil {
				return nil, &ArgsError{Err: err}
			}
		}

		resp, err := fn(ctx, req)
		if err != nil {
			return nil, err
		}

		respBytes, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}

		return respBytes, nil
	}
}
