// Package frame owns message framing over the raw byte stream.
//
// The instrument link is a stream of single-line ASCII messages, each
// terminated by a carriage return. Framing is the only structure the
// transport layer adds; everything inside a frame belongs to protocol.
package frame

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

const Terminator = '\r'

var (
	ErrFrameTooLarge = errors.New("frame: frame exceeds size limit")
	ErrShortFrame    = errors.New("frame: stream ended mid-frame")
	ErrEmptyFrame    = errors.New("frame: empty frame")
)

// Limits constrains frame read memory use.
type Limits struct {
	MaxFrameBytes int
}

func DefaultLimits() Limits {
	return Limits{MaxFrameBytes: 4096}
}

// ReadFrame reads one CR-terminated frame, returning it without the
// terminator. A trailing LF after the CR is tolerated and consumed.
func ReadFrame(r *bufio.Reader, limits Limits) (string, error) {
	var b strings.Builder
	for {
		c, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && b.Len() > 0 {
				return "", ErrShortFrame
			}
			return "", err
		}
		if c == Terminator {
			break
		}
		if b.Len() >= limits.MaxFrameBytes {
			return "", fmt.Errorf("%w: over %d bytes", ErrFrameTooLarge, limits.MaxFrameBytes)
		}
		b.WriteByte(c)
	}
	if next, err := r.Peek(1); err == nil && next[0] == '\n' {
		_, _ = r.ReadByte()
	}
	if b.Len() == 0 {
		return "", ErrEmptyFrame
	}
	return b.String(), nil
}

// WriteFrame writes one frame with its terminator.
func WriteFrame(w io.Writer, payload string) error {
	if payload == "" {
		return ErrEmptyFrame
	}
	if strings.ContainsRune(payload, Terminator) {
		return fmt.Errorf("frame: payload contains terminator")
	}
	_, err := io.WriteString(w, payload+string(Terminator))
	return err
}
