package command

import (
	"fmt"

	"github.com/hostlink-dev/hostlink/wireformat"
)

// NotFoundError is returned when an invocation names a command that is
// not registered. It surfaces synchronously at submission time, before
// any asynchronous execution starts.
type NotFoundError struct {
	Cmd string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown command: %q", e.Cmd)
}

// ArgsError is returned when an invocation's argument value cannot be
// decoded by the handler.
type ArgsError struct {
	Err error
}

func (e *ArgsError) Error() string {
	return fmt.Sprintf("malformed args: %v", e.Err)
}

func (e *ArgsError) Unwrap() error {
	return e.Err
}

// PanicError wraps a panic recovered from a command handler.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	switch v := e.Value.(type) {
	case error:
		return "panic: " + v.Error()
	case string:
		return "panic: " + v
	default:
		return fmt.Sprintf("panic: %v", v)
	}
}

// ToErrorDetail converts a handler error into the structured failure
// payload the host reports for its own errors.
func ToErrorDetail(err error) *wireformat.ErrorDetail {
	if err == nil {
		return nil
	}
	switch e := err.(type) {
	case *wireformat.ErrorDetail:
		return e
	case *NotFoundError:
		return &wireformat.ErrorDetail{Type: "not_found", Message: e.Error()}
	case *ArgsError:
		return &wireformat.ErrorDetail{Type: "args", Message: e.Error()}
	case *PanicError:
		return &wireformat.ErrorDetail{Type: "panic", Message: e.Error()}
	default:
		return &wireformat.ErrorDetail{Type: "internal", Message: err.Error()}
	}
}
