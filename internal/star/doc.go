// Package star is the high-level client surface of the instrument core.
//
// Ownership boundary:
// - logical operations: pick up, aspirate, dispense, drop, resync
// - orchestration of deck resolution, channel planning and the codec
// - per-channel commit/rollback from device responses
// - the diagnostic HTTP monitor
//
// One Service owns one instrument session; callers are serialized, so
// at most one command is in flight per physical robot.
package star
