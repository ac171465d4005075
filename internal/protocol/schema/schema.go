// Package schema declares the field grammar of each device command.
//
// Ownership boundary:
// - (module, command) registry
// - ordered field specs: tag, token width, value source, scalar default
//
// The firmware grammar grew as per-module positional field lists; new
// commands are added here as data, not as new encoder code paths.
package schema

// Source selects where a field's tokens come from during encoding.
type Source int

const (
	// SrcScalar is a single-token field taken from the command's scalar
	// parameters, falling back to the spec default.
	SrcScalar Source = iota
	// SrcMask is the per-slot channel participation pattern (tm).
	SrcMask
	// SrcX, SrcY and SrcZ are per-slot coordinates in mm, encoded as
	// zero-padded tenths.
	SrcX
	SrcY
	SrcZ
	// SrcVolume is the per-slot volume in µL, calibration-corrected and
	// encoded as zero-padded tenths.
	SrcVolume
)

// FieldSpec is one positional field of a command.
type FieldSpec struct {
	Tag     string
	Width   int
	Source  Source
	Default int
}

// CommandSpec is the full ordered grammar of one command.
type CommandSpec struct {
	Module string
	Code   string
	Fields []FieldSpec
}

// PerChannel reports whether any field carries one token per slot.
// Per-channel commands join fields with '&'; all-scalar commands
// concatenate fields directly.
func (c CommandSpec) PerChannel() bool {
	for _, f := range c.Fields {
		switch f.Source {
		case SrcMask, SrcX, SrcY, SrcZ, SrcVolume:
			return true
		}
	}
	return false
}

// Pipetting module commands.
const (
	ModulePip = "C0"

	CmdTipDefine  = "TT"
	CmdTipPickUp  = "TP"
	CmdTipDiscard = "TR"
	CmdAspirate   = "AS"
	CmdDispense   = "DS"
	CmdTipQuery   = "RT"
)

// Response field tags.
const (
	TagError       = "er"
	TagTipSensor   = "kz"
	TagLevelSensor = "vz"
	TagTipPresence = "rt"
)

var registry = map[string]CommandSpec{
	ModulePip + CmdTipDefine: {
		Module: ModulePip, Code: CmdTipDefine,
		Fields: []FieldSpec{
			{Tag: "tt", Width: 2, Source: SrcScalar},
			{Tag: "tf", Width: 1, Source: SrcScalar, Default: 1},
			{Tag: "tl", Width: 4, Source: SrcScalar},
			{Tag: "tv", Width: 5, Source: SrcScalar},
			{Tag: "tg", Width: 1, Source: SrcScalar, Default: 3},
			{Tag: "tu", Width: 1, Source: SrcScalar},
		},
	},
	ModulePip + CmdTipPickUp: {
		Module: ModulePip, Code: CmdTipPickUp,
		Fields: []FieldSpec{
			{Tag: "xp", Width: 5, Source: SrcX},
			{Tag: "yp", Width: 4, Source: SrcY},
			{Tag: "tm", Width: 1, Source: SrcMask},
			{Tag: "tt", Width: 2, Source: SrcScalar},
			{Tag: "tp", Width: 4, Source: SrcScalar, Default: 2266},
			{Tag: "tz", Width: 4, Source: SrcScalar, Default: 2166},
			{Tag: "th", Width: 4, Source: SrcScalar, Default: 2450},
			{Tag: "td", Width: 1, Source: SrcScalar},
		},
	},
	ModulePip + CmdTipDiscard: {
		Module: ModulePip, Code: CmdTipDiscard,
		Fields: []FieldSpec{
			{Tag: "xp", Width: 5, Source: SrcX},
			{Tag: "yp", Width: 4, Source: SrcY},
			{Tag: "tm", Width: 1, Source: SrcMask},
			{Tag: "tp", Width: 4, Source: SrcScalar, Default: 2244},
			{Tag: "tz", Width: 4, Source: SrcScalar, Default: 2164},
			{Tag: "th", Width: 4, Source: SrcScalar, Default: 2450},
			{Tag: "ti", Width: 1, Source: SrcScalar, Default: 1},
		},
	},
	ModulePip + CmdAspirate: {
		Module: ModulePip, Code: CmdAspirate,
		Fields: []FieldSpec{
			{Tag: "at", Width: 1, Source: SrcScalar},
			{Tag: "tm", Width: 1, Source: SrcMask},
			{Tag: "xp", Width: 5, Source: SrcX},
			{Tag: "yp", Width: 4, Source: SrcY},
			{Tag: "th", Width: 4, Source: SrcScalar, Default: 2450},
			{Tag: "te", Width: 4, Source: SrcScalar, Default: 2450},
			{Tag: "lp", Width: 4, Source: SrcScalar, Default: 1934},
			{Tag: "zl", Width: 4, Source: SrcZ},
			{Tag: "av", Width: 5, Source: SrcVolume},
			{Tag: "as", Width: 4, Source: SrcScalar, Default: 1000},
			{Tag: "lm", Width: 1, Source: SrcScalar},
		},
	},
	ModulePip + CmdDispense: {
		Module: ModulePip, Code: CmdDispense,
		Fields: []FieldSpec{
			{Tag: "dm", Width: 1, Source: SrcScalar, Default: 2},
			{Tag: "tm", Width: 1, Source: SrcMask},
			{Tag: "xp", Width: 5, Source: SrcX},
			{Tag: "yp", Width: 4, Source: SrcY},
			{Tag: "th", Width: 4, Source: SrcScalar, Default: 2450},
			{Tag: "te", Width: 4, Source: SrcScalar, Default: 2450},
			{Tag: "lp", Width: 4, Source: SrcScalar, Default: 1934},
			{Tag: "zl", Width: 4, Source: SrcZ},
			{Tag: "dv", Width: 5, Source: SrcVolume},
			{Tag: "ds", Width: 4, Source: SrcScalar, Default: 1200},
			{Tag: "lm", Width: 1, Source: SrcScalar},
		},
	},
	ModulePip + CmdTipQuery: {
		Module: ModulePip, Code: CmdTipQuery,
	},
}

// Lookup finds the spec for a (module, command) pair.
func Lookup(module, code string) (CommandSpec, bool) {
	spec, ok := registry[module+code]
	return spec, ok
}
