package transport

import (
	"context"
	"sync"
)

// Loopback is one end of an in-memory transport pair. Frames written on
// one end come out of the other, preserving message boundaries.
type Loopback struct {
	out chan<- string
	in  <-chan string

	done      chan struct{}
	closeOnce *sync.Once
}

// Pair creates two connected loopback ends. Closing either end shuts
// down both.
func Pair() (*Loopback, *Loopback) {
	ab := make(chan string, 32)
	ba := make(chan string, 32)
	done := make(chan struct{})
	once := new(sync.Once)
	a := &Loopback{out: ab, in: ba, done: done, closeOnce: once}
	b := &Loopback{out: ba, in: ab, done: done, closeOnce: once}
	return a, b
}

func (l *Loopback) Send(ctx context.Context, payload string) error {
	select {
	case l.out <- payload:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loopback) Receive(ctx context.Context) (string, error) {
	select {
	case payload := <-l.in:
		return payload, nil
	case <-l.done:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close shuts down both ends of the pair.
func (l *Loopback) Close() error {
	l.closeOnce.Do(func() { close(l.done) })
	return nil
}
