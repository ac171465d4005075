package channels

import (
	"errors"
	"fmt"
)

var (
	ErrChannelIndex       = errors.New("channels: channel index out of range")
	ErrChannelConflict    = errors.New("channels: channel state conflicts with operation")
	ErrCapacity           = errors.New("channels: volume exceeds tip capacity")
	ErrInsufficientVolume = errors.New("channels: dispense exceeds held volume")
	ErrStateUnknown       = errors.New("channels: channel state unknown, resync required")
	ErrShape              = errors.New("channels: channel/volume list shape mismatch")
)

// State is the lifecycle state of one physical channel.
type State int

const (
	StateEmpty State = iota
	StateTipAttached
	StateTipWithLiquid
	// StateUnknown is entered when a command times out after send: the
	// physical outcome is ambiguous, so the logical state is neither
	// reverted nor advanced until an explicit resync.
	StateUnknown
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateTipAttached:
		return "tip_attached"
	case StateTipWithLiquid:
		return "tip_with_liquid"
	case StateUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Channel is a snapshot of one channel's state.
type Channel struct {
	State      State
	VolumeUL   float64
	CapacityUL float64
}

// Tracker owns the state of the fixed channel bank. It must be owned by
// exactly one session; it is not safe for concurrent use.
type Tracker struct {
	channels []Channel
}

// NewTracker creates a tracker with count empty channels.
func NewTracker(count int) *Tracker {
	return &Tracker{channels: make([]Channel, count)}
}

func (t *Tracker) Count() int { return len(t.channels) }

// Snapshot returns a copy of all channel states, index 0 = channel 1.
func (t *Tracker) Snapshot() []Channel {
	out := make([]Channel, len(t.channels))
	copy(out, t.channels)
	return out
}

// Mask returns the participation pattern for the codec's tm field:
// one boolean per channel slot, true where the channel takes part.
func (t *Tracker) Mask(chans []int) ([]bool, error) {
	mask := make([]bool, len(t.channels))
	for _, ch := range chans {
		if ch < 1 || ch > len(t.channels) {
			return nil, fmt.Errorf("%w: %d", ErrChannelIndex, ch)
		}
		mask[ch-1] = true
	}
	return mask, nil
}

// PlanPickUp validates that every requested channel may pick up a tip.
// Pure validation: no state changes.
func (t *Tracker) PlanPickUp(chans []int) error {
	for _, ch := range chans {
		c, err := t.channel(ch)
		if err != nil {
			return err
		}
		if c.State == StateUnknown {
			return fmt.Errorf("%w: channel %d", ErrStateUnknown, ch)
		}
		if c.State != StateEmpty {
			return fmt.Errorf("%w: channel %d already holds a tip", ErrChannelConflict, ch)
		}
	}
	return nil
}

// PlanAspirate validates volumes against tip capacity. Volumes pair
// with chans by index.
func (t *Tracker) PlanAspirate(chans []int, volumes []float64) error {
	if len(chans) != len(volumes) {
		return fmt.Errorf("%w: %d channels, %d volumes", ErrShape, len(chans), len(volumes))
	}
	for i, ch := range chans {
		c, err := t.channel(ch)
		if err != nil {
			return err
		}
		if c.State == StateUnknown {
			return fmt.Errorf("%w: channel %d", ErrStateUnknown, ch)
		}
		if c.State == StateEmpty {
			return fmt.Errorf("%w: channel %d has no tip", ErrChannelConflict, ch)
		}
		v := volumes[i]
		if v < 0 || c.VolumeUL+v > c.CapacityUL {
			return fmt.Errorf("%w: channel %d holds %.1f, requested %.1f of %.1f µL",
				ErrCapacity, ch, c.VolumeUL, v, c.CapacityUL)
		}
	}
	return nil
}

// PlanDispense validates that each channel holds at least the requested
// volume.
func (t *Tracker) PlanDispense(chans []int, volumes []float64) error {
	if len(chans) != len(volumes) {
		return fmt.Errorf("%w: %d channels, %d volumes", ErrShape, len(chans), len(volumes))
	}
	for i, ch := range chans {
		c, err := t.channel(ch)
		if err != nil {
			return err
		}
		if c.State == StateUnknown {
			return fmt.Errorf("%w: channel %d", ErrStateUnknown, ch)
		}
		if c.State != StateTipWithLiquid {
			return fmt.Errorf("%w: channel %d holds no liquid", ErrChannelConflict, ch)
		}
		if volumes[i] < 0 || volumes[i] > c.VolumeUL {
			return fmt.Errorf("%w: channel %d holds %.1f µL, requested %.1f",
				ErrInsufficientVolume, ch, c.VolumeUL, volumes[i])
		}
	}
	return nil
}

// PlanDrop validates that every requested channel carries a tip.
func (t *Tracker) PlanDrop(chans []int) error {
	for _, ch := range chans {
		c, err := t.channel(ch)
		if err != nil {
			return err
		}
		if c.State == StateUnknown {
			return fmt.Errorf("%w: channel %d", ErrStateUnknown, ch)
		}
		if c.State == StateEmpty {
			return fmt.Errorf("%w: channel %d has no tip to drop", ErrChannelConflict, ch)
		}
	}
	return nil
}

// CommitPickUp applies a pick-up outcome. ok pairs with chans by index;
// a failed channel keeps its previous state.
func (t *Tracker) CommitPickUp(chans []int, ok []bool, capacityUL float64) {
	for i, ch := range chans {
		if !ok[i] {
			continue
		}
		c := &t.channels[ch-1]
		c.State = StateTipAttached
		c.VolumeUL = 0
		c.CapacityUL = capacityUL
	}
}

// CommitAspirate applies an aspirate outcome per channel.
func (t *Tracker) CommitAspirate(chans []int, volumes []float64, ok []bool) {
	for i, ch := range chans {
		if !ok[i] {
			continue
		}
		c := &t.channels[ch-1]
		c.State = StateTipWithLiquid
		c.VolumeUL += volumes[i]
	}
}

// CommitDispense applies a dispense outcome per channel. A partial
// dispense retains the exact residual volume; the channel only returns
// to StateTipAttached when the held volume reaches zero.
func (t *Tracker) CommitDispense(chans []int, volumes []float64, ok []bool) {
	for i, ch := range chans {
		if !ok[i] {
			continue
		}
		c := &t.channels[ch-1]
		c.VolumeUL -= volumes[i]
		if c.VolumeUL <= 0 {
			c.VolumeUL = 0
			c.State = StateTipAttached
		}
	}
}

// CommitDrop applies a drop outcome per channel. Any tracked liquid is
// discarded with the tip.
func (t *Tracker) CommitDrop(chans []int, ok []bool) {
	for i, ch := range chans {
		if !ok[i] {
			continue
		}
		c := &t.channels[ch-1]
		c.State = StateEmpty
		c.VolumeUL = 0
		c.CapacityUL = 0
	}
}

// MarkUnknown forces the given channels into StateUnknown after an
// ambiguous wire failure.
func (t *Tracker) MarkUnknown(chans []int) {
	for _, ch := range chans {
		if ch < 1 || ch > len(t.channels) {
			continue
		}
		c := &t.channels[ch-1]
		c.State = StateUnknown
		c.VolumeUL = 0
	}
}

// Resync re-establishes tip presence from a device query. Channels with
// a tip come back as StateTipAttached with unknown-zero volume; liquid
// held across a resync cannot be recovered and is treated as gone.
func (t *Tracker) Resync(present []bool, capacityUL float64) error {
	if len(present) < len(t.channels) {
		return fmt.Errorf("%w: %d readings for %d channels", ErrShape, len(present), len(t.channels))
	}
	for i := range t.channels {
		c := &t.channels[i]
		c.VolumeUL = 0
		if present[i] {
			c.State = StateTipAttached
			if c.CapacityUL == 0 {
				c.CapacityUL = capacityUL
			}
		} else {
			c.State = StateEmpty
			c.CapacityUL = 0
		}
	}
	return nil
}

func (t *Tracker) channel(ch int) (Channel, error) {
	if ch < 1 || ch > len(t.channels) {
		return Channel{}, fmt.Errorf("%w: %d", ErrChannelIndex, ch)
	}
	return t.channels[ch-1], nil
}
