// Package channels owns the in-memory pipetting channel state machine.
//
// Ownership boundary:
// - per-channel tip and held-volume state
// - operation precondition checks before any bytes are sent
// - channel participation masks for the codec
// - per-channel commit/rollback from decoded responses
//
// The package performs no I/O. A timeout after send leaves a channel in
// StateUnknown; only an explicit resync recovers from it.
package channels
