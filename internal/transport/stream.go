package transport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/openlh/star/internal/protocol/frame"
)

var ErrClosed = errors.New("transport: closed")

// Stream adapts any io.ReadWriteCloser carrying CR-terminated frames to
// the session Transport contract. A reader goroutine owns the read side
// so Receive can honor context cancellation.
type Stream struct {
	rwc    io.ReadWriteCloser
	limits frame.Limits

	frames chan string
	errs   chan error
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// NewStream wraps rwc and starts the read loop.
func NewStream(rwc io.ReadWriteCloser, limits frame.Limits) *Stream {
	s := &Stream{
		rwc:    rwc,
		limits: limits,
		frames: make(chan string, 8),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *Stream) readLoop() {
	r := bufio.NewReader(s.rwc)
	for {
		payload, err := frame.ReadFrame(r, s.limits)
		if err != nil {
			if errors.Is(err, frame.ErrEmptyFrame) {
				continue
			}
			select {
			case s.errs <- err:
			case <-s.done:
			}
			return
		}
		select {
		case s.frames <- payload:
		case <-s.done:
			return
		}
	}
}

func (s *Stream) Send(ctx context.Context, payload string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return frame.WriteFrame(s.rwc, payload)
}

func (s *Stream) Receive(ctx context.Context) (string, error) {
	select {
	case payload := <-s.frames:
		return payload, nil
	case err := <-s.errs:
		return "", err
	case <-s.done:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.rwc.Close()
	})
	return err
}
