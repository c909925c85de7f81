package wireformat

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is a package-level singleton for better performance.
// Creating a new validator on each call is expensive; reusing is recommended.
var validate = validator.New()

// ValidatePayload checks the structural validity of an invocation
// payload before it is submitted for dispatch. A payload that fails
// here is malformed and must never reach a command handler.
func ValidatePayload(payload *InvokePayload) error {
	if err := validate.Struct(payload); err != nil {
		return fmt.Errorf("invalid invoke payload: %w", err)
	}
	return nil
}

// ValidateArgs unmarshals an invocation's argument value into the given
// model struct and validates it against the struct's validation tags.
func ValidateArgs(payload *InvokePayload, model any) error {
	if len(payload.Args) > 0 {
		if err := unmarshalArgs(payload.Args, model); err != nil {
			return err
		}
	}
	if err := validate.Struct(model); err != nil {
		return fmt.Errorf("args validation failed for %q: %w", payload.Cmd, err)
	}
	return nil
}

func unmarshalArgs(args json.RawMessage, model any) error {
	if err := json.Unmarshal(args, model); err != nil {
		return fmt.Errorf("failed to unmarshal args: %w", err)
	}
	return nil
}
