// Package deck owns the declarative deck layout and coordinate resolution.
//
// Ownership boundary:
// - positioned resource tree (carriers, labware, trash)
// - rail index to x-coordinate mapping
// - well/tip site addressing and range expansion
// - absolute coordinate derivation per addressed site
//
// The package performs no I/O and knows nothing about the wire grammar;
// it only turns names and site labels into millimeter coordinates.
package deck
