// Package protocol owns the device wire contract and parsing primitives.
//
// Ownership boundary:
// - command encoding into the field-tagged text grammar
// - response decoding: echo header, per-channel error codes, sensor arrays
// - unit conversion between logical mm/µL and device integer sub-units
// - volume calibration curves
//
// A command line is `<module:2><cmd:2>id<seq:4>` followed by ordered
// fields. Commands carrying per-channel arrays join fields with '&' and
// separate tokens with spaces; all-scalar commands concatenate fields:
//
//	C0TTid0004tt01tf1tl0871tv12500tg3tu0
//	C0ASid0006at0&tm1 1 1 0&xp01072 ...&av01072 00551 02110 00000&...
//
// Responses echo the header and carry "er" with one two-digit code per
// channel slot ("00" = ok), optionally followed by sensor arrays:
//
//	C0ASid0006er00/00
//	C0TRid0010er00/00kz381 356 365 000 000 000 000 000vz303 ...
package protocol
