package deck

import "fmt"

// Minimal built-in labware shapes. The catalog is deliberately small;
// unusual labware is declared inline in the layout file instead.

const wellPitch = 9.0

func grid96(offset Coord) Grid {
	return Grid{Rows: 8, Cols: 12, Offset: offset, Pitch: wellPitch}
}

// carrierSlots returns n vertically stacked slots at a fixed pitch.
func carrierSlots(n int, pitch float64) []Coord {
	offsets := make([]Coord, n)
	for i := range offsets {
		offsets[i] = Coord{X: 4.0, Y: 8.5 + float64(i)*pitch, Z: 100.0}
	}
	return offsets
}

// NewStandardResource builds a resource from a catalog preset name.
func NewStandardResource(preset, name string) (*Resource, error) {
	switch preset {
	case "tip_carrier_4":
		return NewCarrier(name, carrierSlots(4, 96.0)), nil
	case "plate_carrier_5":
		return NewCarrier(name, carrierSlots(5, 96.0)), nil
	case "tip_rack_300ul":
		return NewTipRack(name, grid96(Coord{X: 7.2, Y: 5.3, Z: 14.8}), 300.0, 59.9, 1), nil
	case "tip_rack_1000ul":
		return NewTipRack(name, grid96(Coord{X: 7.2, Y: 5.3, Z: 32.1}), 1000.0, 87.1, 4), nil
	case "plate_96":
		return NewPlate(name, grid96(Coord{X: 9.5, Y: 7.0, Z: 10.2})), nil
	case "trash":
		return NewTrash(name), nil
	default:
		return nil, fmt.Errorf("%w: unknown preset %q", ErrNotFound, preset)
	}
}
