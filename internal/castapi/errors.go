package castapi

import (
	"errors"
	"fmt"
)

// Sentinel errors for the cast HTTP API.
var (
	// ErrRequestFailed matches every FetchError and CommandError via errors.Is.
	ErrRequestFailed = errors.New("castapi: request failed")

	// ErrInvalidURL is returned by New when the base URL is unusable.
	ErrInvalidURL = errors.New("castapi: invalid base url")
)

// FetchError reports a failed device list fetch.
//
// Status and Body are set when the service answered with a non-2xx status.
// Err is set for transport and decoding failures.
type FetchError struct {
	Status int
	Body   string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("castapi: fetch devices: %v", e.Err)
	}
	return fmt.Sprintf("castapi: fetch devices: status %d: %s", e.Status, e.Body)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is reports FetchError as an ErrRequestFailed.
func (e *FetchError) Is(target error) bool { return target == ErrRequestFailed }

// CommandError reports a failed device or assistant command.
type CommandError struct {
	// Op is the vendor operation, e.g. "stop", "playMedia", "volume".
	Op string

	// DeviceID is empty for assistant commands.
	DeviceID string

	Status int
	Body   string
	Err    error
}

func (e *CommandError) Error() string {
	target := e.DeviceID
	if target == "" {
		target = "assistant"
	}
	if e.Err != nil {
		return fmt.Sprintf("castapi: %s %s: %v", e.Op, target, e.Err)
	}
	return fmt.Sprintf("castapi: %s %s: status %d: %s", e.Op, target, e.Status, e.Body)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Is reports CommandError as an ErrRequestFailed.
func (e *CommandError) Is(target error) bool { return target == ErrRequestFailed }
