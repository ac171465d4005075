// Package session owns the command/response round trip with the device.
//
// Ownership boundary:
// - monotonically increasing 4-digit sequence ids (wrap mod 10000)
// - single-outstanding-command serialization
// - response correlation by echoed id
// - timeout surfacing; the caller decides how to resynchronize
//
// One Session owns one physical instrument link. Channel state depends
// on the prior command's acknowledged outcome, so there is no
// pipelining: a command is sent only after the previous one resolved.
package session
