package cast

import (
	"errors"
	"fmt"
)

// Domain errors for the cast bridge package.
var (
	// ErrInvalidPayload matches every DecodeError via errors.Is.
	ErrInvalidPayload = errors.New("cast: invalid command payload")

	// ErrUnsupportedValue is returned when a command val has a JSON type
	// that cannot be turned into a vendor call (object or array).
	ErrUnsupportedValue = errors.New("cast: unsupported command value")
)

// DecodeError reports an inbound command whose payload could not be used.
type DecodeError struct {
	Topic  string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cast: decode %s: %s: %v", e.Topic, e.Reason, e.Err)
	}
	return fmt.Sprintf("cast: decode %s: %s", e.Topic, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is reports DecodeError as an ErrInvalidPayload.
func (e *DecodeError) Is(target error) bool { return target == ErrInvalidPayload }
