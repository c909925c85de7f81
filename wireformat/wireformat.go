// Package wireformat defines the JSON wire format structures exchanged
// between callers and a Hostlink host. These types must remain stable
// and backward compatible as they define the invocation contract.
package wireformat

import (
	"encoding/json"
	"fmt"
)

// CallbackID is an opaque numeric handle chosen by the caller to
// identify one side (success or failure) of an invocation's response.
// Any value is legal, including zero; the host performs no validation.
type CallbackID uint32

// InvokePayload is the wire shape of one inbound invocation.
type InvokePayload struct {
	// Cmd names the command to execute.
	Cmd string `json:"cmd" validate:"required"`

	// Callback receives the response when the command succeeds.
	Callback CallbackID `json:"callback"`

	// Error receives the response when the command fails.
	Error CallbackID `json:"error"`

	// Args is the structured argument value, may be empty or null.
	Args json.RawMessage `json:"args,omitempty"`
}

// ResponseStatus tags a terminal response as success or failure.
type ResponseStatus string

const (
	// ResponseStatusOk indicates the command produced a success payload.
	ResponseStatusOk ResponseStatus = "ok"

	// ResponseStatusErr indicates the command produced a failure payload.
	ResponseStatusErr ResponseStatus = "err"
)

// Response is the terminal result of executing one invocation: a tagged
// success or failure carrying one structured value. It carries no token
// information; tokens travel alongside it on the delivery path.
type Response struct {
	Status ResponseStatus  `json:"status"`
	Value  json.RawMessage `json:"value,omitempty"`
}

// IsOk reports whether the response is a success.
func (r Response) IsOk() bool {
	return r.Status == ResponseStatusOk
}

// OkRaw builds a success response from an already-serialized value.
func OkRaw(value json.RawMessage) Response {
	return Response{Status: ResponseStatusOk, Value: value}
}

// ErrRaw builds a failure response from an already-serialized value.
func ErrRaw(value json.RawMessage) Response {
	return Response{Status: ResponseStatusErr, Value: value}
}

// Ok builds a success response, serializing the given value.
func Ok(value any) (Response, error) {
	raw, err := MarshalValue(value)
	if err != nil {
		return Response{}, err
	}
	return OkRaw(raw), nil
}

// Err builds a failure response, serializing the given value.
func Err(value any) (Response, error) {
	raw, err := MarshalValue(value)
	if err != nil {
		return Response{}, err
	}
	return ErrRaw(raw), nil
}

// MarshalValue serializes a structured value for the wire. Values that
// are already raw JSON pass through untouched.
func MarshalValue(value any) (json.RawMessage, error) {
	if raw, ok := value.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}
	return data, nil
}

// ErrorDetail is the structured failure payload produced by the host
// itself, as opposed to a failure value returned by a command.
// Error Types: "not_found", "args", "panic", "internal"
type ErrorDetail struct {
	Details map[string]any `json:"details,omitempty"`
	Message string         `json:"message"`
	Type    string         `json:"type"`
	Code    string         `json:"code,omitempty"`
}

// Error implements the error interface for ErrorDetail.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != "internal" {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	return msg
}
