package deck

import (
	"fmt"
)

// Kind classifies a positioned resource.
type Kind string

const (
	KindCarrier Kind = "carrier"
	KindTipRack Kind = "tip_rack"
	KindPlate   Kind = "plate"
	KindTrash   Kind = "trash"
)

// Coord is an absolute or relative position in device millimeters.
type Coord struct {
	X float64
	Y float64
	Z float64
}

func (c Coord) Add(o Coord) Coord {
	return Coord{X: c.X + o.X, Y: c.Y + o.Y, Z: c.Z + o.Z}
}

func (c Coord) String() string {
	return fmt.Sprintf("(%.1f, %.1f, %.1f)", c.X, c.Y, c.Z)
}

// Rail geometry for the STAR-class deck. Rail indices are 1-based and
// map linearly onto the x axis: rail 3 sits at x = 145.0 mm.
const (
	RailPitch   = 22.5
	railOriginX = 100.0
)

// RailX returns the x-coordinate of a rail index.
func RailX(rail int) float64 {
	return railOriginX + float64(rail-1)*RailPitch
}

// Grid describes the addressable sites of a piece of labware: Rows x Cols
// positions at a fixed pitch, offset from the labware origin. Row A is
// the rear-most row (highest y).
type Grid struct {
	Rows   int
	Cols   int
	Offset Coord
	Pitch  float64
}

func (g Grid) sitePosition(row, col int) Coord {
	return Coord{
		X: g.Offset.X + float64(col-1)*g.Pitch,
		Y: g.Offset.Y + float64(g.Rows-row)*g.Pitch,
		Z: g.Offset.Z,
	}
}

// Resource is one node of the deck layout tree.
type Resource struct {
	name        string
	kind        Kind
	offset      Coord
	grid        *Grid
	tipVolumeUL float64
	tipLengthMM float64
	tipTypeID   int

	parent      *Resource
	slots       []*Resource
	slotOffsets []Coord
	rail        int
}

// NewCarrier creates a carrier with one fixed slot per offset. Slot
// offsets are relative to the carrier origin.
func NewCarrier(name string, slotOffsets []Coord) *Resource {
	offsets := make([]Coord, len(slotOffsets))
	copy(offsets, slotOffsets)
	return &Resource{
		name:        name,
		kind:        KindCarrier,
		slots:       make([]*Resource, len(offsets)),
		slotOffsets: offsets,
	}
}

// NewTipRack creates a tip rack whose tips hold at most tipVolumeUL and
// are tipLengthMM long. tipTypeID selects the firmware tip type used in
// tip definitions.
func NewTipRack(name string, grid Grid, tipVolumeUL, tipLengthMM float64, tipTypeID int) *Resource {
	g := grid
	return &Resource{
		name:        name,
		kind:        KindTipRack,
		grid:        &g,
		tipVolumeUL: tipVolumeUL,
		tipLengthMM: tipLengthMM,
		tipTypeID:   tipTypeID,
	}
}

// NewPlate creates a well plate.
func NewPlate(name string, grid Grid) *Resource {
	g := grid
	return &Resource{name: name, kind: KindPlate, grid: &g}
}

// NewTrash creates the tip waste. It has a single site at its origin.
func NewTrash(name string) *Resource {
	return &Resource{name: name, kind: KindTrash}
}

func (r *Resource) Name() string { return r.name }

func (r *Resource) ResourceKind() Kind { return r.kind }

// Rail returns the rail the resource (or its owning carrier) is mounted
// on, or 0 when unattached.
func (r *Resource) Rail() int {
	for node := r; node != nil; node = node.parent {
		if node.rail != 0 {
			return node.rail
		}
	}
	return 0
}

// TipVolumeUL is the rated tip capacity for tip racks, 0 otherwise.
func (r *Resource) TipVolumeUL() float64 { return r.tipVolumeUL }

// TipLengthMM is the physical tip length for tip racks, 0 otherwise.
func (r *Resource) TipLengthMM() float64 { return r.tipLengthMM }

// TipTypeID is the firmware tip type for tip racks, 0 otherwise.
func (r *Resource) TipTypeID() int { return r.tipTypeID }

// SlotCount returns the number of carrier slots, 0 for non-carriers.
func (r *Resource) SlotCount() int { return len(r.slots) }

// Deck is the root of the layout tree. It owns the name registry, so
// resource names are unique across the whole tree.
type Deck struct {
	rails  int
	byRail map[int]*Resource
	byName map[string]*Resource
}

// New creates an empty deck with the given number of rails.
func New(rails int) *Deck {
	return &Deck{
		rails:  rails,
		byRail: make(map[int]*Resource),
		byName: make(map[string]*Resource),
	}
}

func (d *Deck) Rails() int { return d.rails }

// Assign mounts a top-level resource (carrier or trash) at a rail.
func (d *Deck) Assign(r *Resource, rail int) error {
	if rail < 1 || rail > d.rails {
		return fmt.Errorf("%w: %d", ErrRailRange, rail)
	}
	if occupant, ok := d.byRail[rail]; ok {
		return fmt.Errorf("%w: rail %d holds %q", ErrRailOccupied, rail, occupant.name)
	}
	if err := d.register(r); err != nil {
		return err
	}
	r.rail = rail
	r.offset = Coord{X: RailX(rail)}
	d.byRail[rail] = r
	return nil
}

// AssignToSlot places labware into a carrier slot.
func (d *Deck) AssignToSlot(carrierName string, child *Resource, slot int) error {
	carrier, err := d.Lookup(carrierName)
	if err != nil {
		return err
	}
	if slot < 0 || slot >= len(carrier.slots) {
		return fmt.Errorf("%w: slot %d of %q", ErrSlotRange, slot, carrierName)
	}
	if occupant := carrier.slots[slot]; occupant != nil {
		return fmt.Errorf("%w: slot %d of %q holds %q", ErrSlotOccupied, slot, carrierName, occupant.name)
	}
	if err := d.register(child); err != nil {
		return err
	}
	child.parent = carrier
	child.offset = carrier.slotOffsets[slot]
	carrier.slots[slot] = child
	return nil
}

// Unassign removes a resource and its subtree from the deck.
func (d *Deck) Unassign(name string) error {
	r, err := d.Lookup(name)
	if err != nil {
		return err
	}
	if r.rail != 0 {
		delete(d.byRail, r.rail)
		r.rail = 0
	}
	if r.parent != nil {
		for i, child := range r.parent.slots {
			if child == r {
				r.parent.slots[i] = nil
			}
		}
		r.parent = nil
	}
	d.unregister(r)
	return nil
}

// Lookup finds a resource by name anywhere in the tree.
func (d *Deck) Lookup(name string) (*Resource, error) {
	r, ok := d.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return r, nil
}

// Position returns the absolute origin coordinate of a named resource.
func (d *Deck) Position(name string) (Coord, error) {
	r, err := d.Lookup(name)
	if err != nil {
		return Coord{}, err
	}
	return d.absolute(r)
}

func (d *Deck) absolute(r *Resource) (Coord, error) {
	var sum Coord
	node := r
	for ; node.parent != nil; node = node.parent {
		sum = sum.Add(node.offset)
	}
	if node.rail == 0 {
		return Coord{}, fmt.Errorf("%w: %q", ErrUnassigned, r.name)
	}
	return sum.Add(node.offset), nil
}

func (d *Deck) register(r *Resource) error {
	if _, exists := d.byName[r.name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateName, r.name)
	}
	for _, child := range r.slots {
		if child != nil {
			if err := d.register(child); err != nil {
				return err
			}
		}
	}
	d.byName[r.name] = r
	return nil
}

func (d *Deck) unregister(r *Resource) {
	delete(d.byName, r.name)
	for _, child := range r.slots {
		if child != nil {
			d.unregister(child)
		}
	}
}
