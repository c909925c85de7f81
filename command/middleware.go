package command

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Middleware is a function that wraps a Handler to add cross-cutting
// behavior. Middleware executes in FIFO order (first registered wraps
// outermost, onion model).
type Middleware func(next Handler) Handler

// PanicRecovery returns a middleware that catches panics and converts
// them to a *PanicError instead of crashing the host.
func PanicRecovery() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, args json.RawMessage) (resp json.RawMessage, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp = nil
					err = &PanicError{Value: r}
				}
			}()
			return next(ctx, args)
		}
	}
}

// Logging returns a middleware that logs command invocations with
// their duration and outcome.
func Logging(logger *zap.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			cmd := "unknown"
			requestID := ""
			if ic, ok := ctx.(InvokeContext); ok {
				cmd = ic.Command()
				requestID = ic.RequestID()
			}

			start := time.Now()
			resp, err := next(ctx, args)
			fields := []zap.Field{
				zap.String("cmd", cmd),
				zap.String("request_id", requestID),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				logger.Warn("command failed", append(fields, zap.Error(err))...)
			} else {
				logger.Debug("command completed", fields...)
			}
			return resp, err
		}
	}
}
