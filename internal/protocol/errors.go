package protocol

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownCommand    = errors.New("protocol: unknown command")
	ErrMalformedResponse = errors.New("protocol: malformed response")
	ErrIDMismatch        = errors.New("protocol: response id mismatch")
	ErrShape             = errors.New("protocol: channel value shape mismatch")
	ErrTokenRange        = errors.New("protocol: value does not fit field width")
	ErrCurve             = errors.New("protocol: invalid calibration curve")
	ErrDevice            = errors.New("protocol: device reported channel errors")
)

// DeviceError is one failing channel from a response's error field.
// Channel is 1-based; Code is the raw two-digit firmware code.
type DeviceError struct {
	Channel int
	Code    string
}

func (e DeviceError) Error() string {
	return fmt.Sprintf("channel %d: code %s", e.Channel, e.Code)
}

// CommandError aggregates every failing active channel of one response,
// so the caller sees the complete per-channel picture of a partially
// failed operation instead of just the first failure.
type CommandError struct {
	Module   string
	Code     string
	ID       int
	Channels []DeviceError
}

func (e *CommandError) Error() string {
	parts := make([]string, len(e.Channels))
	for i, ch := range e.Channels {
		parts[i] = ch.Error()
	}
	return fmt.Sprintf("%v: %s%s id %04d: %s",
		ErrDevice, e.Module, e.Code, e.ID, strings.Join(parts, "; "))
}

func (e *CommandError) Unwrap() error { return ErrDevice }

// Failed reports whether the given 1-based channel is in the error set.
func (e *CommandError) Failed(channel int) bool {
	for _, ch := range e.Channels {
		if ch.Channel == channel {
			return true
		}
	}
	return false
}
