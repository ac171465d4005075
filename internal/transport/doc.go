// Package transport provides byte-stream transports under the session.
//
// Ownership boundary:
// - serial link (USB CDC) via go.bug.st/serial
// - TCP link for simulated instruments
// - in-memory loopback pair for tests
//
// Transports move CR-terminated frames; they never interpret them.
package transport
