package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/openlh/star/internal/observability"
	"github.com/openlh/star/internal/protocol"
)

var (
	ErrTimeout = errors.New("session: device did not respond in time")
)

// Transport is the byte-stream collaborator under the session. Send may
// block until the underlying link accepts the frame. Receive returns
// the next complete frame; frames may arrive in any order as long as
// ids are intact, the session does the correlation.
type Transport interface {
	Send(ctx context.Context, frame string) error
	Receive(ctx context.Context) (string, error)
	Close() error
}

// Config tunes session behavior.
type Config struct {
	// Timeout bounds one full command round trip.
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{Timeout: 30 * time.Second}
}

// Session serializes command round trips over one transport.
type Session struct {
	mu      sync.Mutex
	tr      Transport
	timeout time.Duration
	seq     int
	log     zerolog.Logger
}

func New(tr Transport, cfg Config, log zerolog.Logger) *Session {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	return &Session{tr: tr, timeout: timeout, log: log}
}

// Execute encodes one command with a fresh sequence id, sends it, and
// waits for the matching response. At most one command is outstanding;
// concurrent callers serialize here.
//
// On ErrTimeout the physical outcome is ambiguous: the caller must
// treat the affected channel state as unknown, not as unchanged.
func (s *Session) Execute(ctx context.Context, module, code string, p protocol.Params) (*protocol.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.seq
	s.seq = (s.seq + 1) % 10000

	line, err := protocol.EncodeCommand(module, code, id, p)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.roundTrip(ctx, line, module, code, id)
	status := "ok"
	if err != nil {
		status = statusLabel(err)
	}
	observability.RecordCommand(module, code, status, time.Since(start))
	return resp, err
}

func (s *Session) roundTrip(ctx context.Context, line, module, code string, id int) (*protocol.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.log.Debug().Str("command", line).Msg("send")
	if err := s.tr.Send(ctx, line); err != nil {
		return nil, fmt.Errorf("session: send %s%s id %04d: %w", module, code, id, err)
	}

	sawFrame := false
	for {
		raw, err := s.tr.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				if sawFrame {
					return nil, fmt.Errorf("%w: no response for %s%s id %04d within %s",
						protocol.ErrIDMismatch, module, code, id, s.timeout)
				}
				return nil, fmt.Errorf("%w: %s%s id %04d after %s", ErrTimeout, module, code, id, s.timeout)
			}
			return nil, fmt.Errorf("session: receive: %w", err)
		}
		sawFrame = true
		s.log.Debug().Str("response", raw).Msg("receive")

		resp, err := protocol.DecodeResponse(raw)
		if err != nil {
			return nil, err
		}
		if !resp.Matches(module, code, id) {
			// Stale or out-of-order echo; keep draining until the
			// deadline, the matching id may still be in flight.
			s.log.Warn().
				Str("expected", fmt.Sprintf("%s%s id %04d", module, code, id)).
				Str("got", raw).
				Msg("uncorrelated response")
			continue
		}
		return resp, nil
	}
}

// Close releases the underlying transport.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tr.Close()
}

func statusLabel(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, protocol.ErrIDMismatch):
		return "id_mismatch"
	case errors.Is(err, protocol.ErrMalformedResponse):
		return "malformed"
	default:
		return "error"
	}
}
