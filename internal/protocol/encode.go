package protocol

import (
	"fmt"
	"strings"

	"github.com/openlh/star/internal/protocol/schema"
)

// Params carries the logical inputs of one command. Per-channel slices
// (X, Y, Z, VolumesUL) hold one entry per active channel in mask order;
// the encoder scatters them into the fixed slot frame and pads inactive
// slots with zero sentinels.
type Params struct {
	Mask      []bool
	X         []float64
	Y         []float64
	Z         []float64
	VolumesUL []float64
	Curve     *CalibrationCurve
	Scalars   map[string]int
}

func (p Params) active() int {
	n := 0
	for _, on := range p.Mask {
		if on {
			n++
		}
	}
	return n
}

// EncodeCommand serializes one command. id is the session sequence
// number; it is taken modulo 10000 to fit the 4-digit wire field.
func EncodeCommand(module, code string, id int, p Params) (string, error) {
	spec, ok := schema.Lookup(module, code)
	if !ok {
		return "", fmt.Errorf("%w: %s%s", ErrUnknownCommand, module, code)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s%sid%04d", spec.Module, spec.Code, ((id%10000)+10000)%10000)

	perChannel := spec.PerChannel()
	if perChannel && len(p.Mask) == 0 {
		return "", fmt.Errorf("%w: %s%s requires a channel mask", ErrShape, module, code)
	}

	for i, field := range spec.Fields {
		text, err := encodeField(field, p)
		if err != nil {
			return "", fmt.Errorf("field %s of %s%s: %w", field.Tag, module, code, err)
		}
		if perChannel && i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

func encodeField(field schema.FieldSpec, p Params) (string, error) {
	switch field.Source {
	case schema.SrcScalar:
		v := field.Default
		if override, ok := p.Scalars[field.Tag]; ok {
			v = override
		}
		token, err := formatToken(v, field.Width)
		if err != nil {
			return "", err
		}
		return field.Tag + token, nil

	case schema.SrcMask:
		tokens := make([]string, len(p.Mask))
		for i, on := range p.Mask {
			if on {
				tokens[i] = "1"
			} else {
				tokens[i] = "0"
			}
		}
		return field.Tag + strings.Join(tokens, " "), nil

	default:
		values, err := channelValues(field.Source, p)
		if err != nil {
			return "", err
		}
		tokens := make([]string, len(p.Mask))
		next := 0
		for i, on := range p.Mask {
			if !on {
				tokens[i], _ = formatToken(0, field.Width)
				continue
			}
			v := values[next]
			next++
			if field.Source == schema.SrcVolume && p.Curve != nil {
				v = p.Curve.Correct(v)
			}
			token, err := formatToken(Tenths(v), field.Width)
			if err != nil {
				return "", err
			}
			tokens[i] = token
		}
		return field.Tag + strings.Join(tokens, " "), nil
	}
}

func channelValues(src schema.Source, p Params) ([]float64, error) {
	var values []float64
	switch src {
	case schema.SrcX:
		values = p.X
	case schema.SrcY:
		values = p.Y
	case schema.SrcZ:
		values = p.Z
	case schema.SrcVolume:
		values = p.VolumesUL
	}
	if len(values) != p.active() {
		return nil, fmt.Errorf("%w: %d values for %d active channels", ErrShape, len(values), p.active())
	}
	return values, nil
}
