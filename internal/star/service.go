package star

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/openlh/star/internal/channels"
	"github.com/openlh/star/internal/deck"
	"github.com/openlh/star/internal/observability"
	"github.com/openlh/star/internal/protocol"
	"github.com/openlh/star/internal/protocol/schema"
	"github.com/openlh/star/internal/protocol/session"
)

var (
	ErrResourceKind = errors.New("star: operation not valid for this resource kind")
	ErrNoTips       = errors.New("star: no channels hold tips")
)

// channelPitchMM is the y spacing of adjacent pipetting channels.
const channelPitchMM = 9.0

// Service drives one STAR-class instrument. It owns the deck layout,
// the channel state and the session exclusively; callers serialize
// through its mutex.
type Service struct {
	mu sync.Mutex

	log     zerolog.Logger
	layout  *deck.Deck
	tracker *channels.Tracker
	sess    *session.Session
	curve   protocol.CalibrationCurve

	definedTipTypes map[int]bool
}

// NewService assembles a service around an open session.
func NewService(layout *deck.Deck, sess *session.Session, channelCount int, log zerolog.Logger) *Service {
	return &Service{
		log:             log,
		layout:          layout,
		tracker:         channels.NewTracker(channelCount),
		sess:            sess,
		curve:           protocol.DefaultWaterCurve(),
		definedTipTypes: make(map[int]bool),
	}
}

// SetCalibrationCurve replaces the volume correction curve.
func (s *Service) SetCalibrationCurve(curve protocol.CalibrationCurve) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.curve = curve
}

// Deck exposes the layout for diagnostics and setup.
func (s *Service) Deck() *deck.Deck { return s.layout }

// ChannelStates returns a snapshot of the channel bank.
func (s *Service) ChannelStates() []channels.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Snapshot()
}

// DeckSummary renders the operator-facing deck tree.
func (s *Service) DeckSummary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout.Summary()
}

// Resolve expands a site spec into ordered sites (the channel
// assignment order) without touching the device.
func (s *Service) Resolve(resource, sites string) ([]deck.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resolved, _, err := s.layout.Resolve(resource, sites)
	return resolved, err
}

// PickUpTips picks up one tip per site, assigning channels 1..n in site
// order.
func (s *Service) PickUpTips(ctx context.Context, resource, sites string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rack, err := s.layout.Lookup(resource)
	if err != nil {
		return err
	}
	if rack.ResourceKind() != deck.KindTipRack {
		return fmt.Errorf("%w: pick up from %q (%s)", ErrResourceKind, resource, rack.ResourceKind())
	}
	_, coords, err := s.layout.Resolve(resource, sites)
	if err != nil {
		return err
	}
	chans := sequentialChannels(len(coords))
	if err := s.tracker.PlanPickUp(chans); err != nil {
		return err
	}
	mask, err := s.tracker.Mask(chans)
	if err != nil {
		return err
	}

	if err := s.defineTipType(ctx, rack); err != nil {
		return err
	}

	resp, err := s.sess.Execute(ctx, schema.ModulePip, schema.CmdTipPickUp, protocol.Params{
		Mask:    mask,
		X:       xs(coords),
		Y:       ys(coords),
		Scalars: map[string]int{"tt": rack.TipTypeID()},
	})
	if err != nil {
		return s.afterWireFailure(err, chans)
	}
	ok, err := resp.ChannelOK(mask)
	if err != nil {
		return err
	}
	s.tracker.CommitPickUp(chans, ok, rack.TipVolumeUL())
	return s.deviceOutcome(resp, mask, schema.CmdTipPickUp)
}

// Aspirate draws volumes (µL) from the sites, one channel per site in
// site order. Volumes pair with sites by index.
func (s *Service) Aspirate(ctx context.Context, resource, sites string, volumes []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transfer(ctx, resource, sites, volumes, schema.CmdAspirate)
}

// Dispense delivers volumes (µL) into the sites.
func (s *Service) Dispense(ctx context.Context, resource, sites string, volumes []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transfer(ctx, resource, sites, volumes, schema.CmdDispense)
}

func (s *Service) transfer(ctx context.Context, resource, sites string, volumes []float64, code string) error {
	resolved, coords, err := s.layout.Resolve(resource, sites)
	if err != nil {
		return err
	}
	if len(volumes) != len(resolved) {
		return fmt.Errorf("%w: %d volumes for %d sites", channels.ErrShape, len(volumes), len(resolved))
	}
	chans := sequentialChannels(len(resolved))
	if code == schema.CmdAspirate {
		err = s.tracker.PlanAspirate(chans, volumes)
	} else {
		err = s.tracker.PlanDispense(chans, volumes)
	}
	if err != nil {
		return err
	}
	mask, err := s.tracker.Mask(chans)
	if err != nil {
		return err
	}

	resp, err := s.sess.Execute(ctx, schema.ModulePip, code, protocol.Params{
		Mask:      mask,
		X:         xs(coords),
		Y:         ys(coords),
		Z:         zs(coords),
		VolumesUL: volumes,
		Curve:     &s.curve,
	})
	if err != nil {
		return s.afterWireFailure(err, chans)
	}
	ok, err := resp.ChannelOK(mask)
	if err != nil {
		return err
	}
	if code == schema.CmdAspirate {
		s.tracker.CommitAspirate(chans, volumes, ok)
	} else {
		s.tracker.CommitDispense(chans, volumes, ok)
	}
	return s.deviceOutcome(resp, mask, code)
}

// DropTips discards tips. With a sited resource (tip rack) the spec
// addresses one position per tip; with the trash, sites must be empty
// and every tip-carrying channel drops at the waste chute.
func (s *Service) DropTips(ctx context.Context, resource, sites string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := s.layout.Lookup(resource)
	if err != nil {
		return err
	}

	var chans []int
	var coords []deck.Coord
	if target.ResourceKind() == deck.KindTrash {
		chans = s.tipCarryingChannels()
		if len(chans) == 0 {
			return ErrNoTips
		}
		_, base, err := s.layout.Resolve(resource, sites)
		if err != nil {
			return err
		}
		// All channels drop over the chute, spread in +y at the
		// channel pitch so the encoded positions stay non-negative
		// whatever rail the trash sits on.
		coords = make([]deck.Coord, len(chans))
		for i := range chans {
			coords[i] = base[0].Add(deck.Coord{Y: channelPitchMM * float64(i)})
		}
	} else {
		var resolved []deck.Site
		resolved, coords, err = s.layout.Resolve(resource, sites)
		if err != nil {
			return err
		}
		chans = sequentialChannels(len(resolved))
	}

	if err := s.tracker.PlanDrop(chans); err != nil {
		return err
	}
	mask, err := s.tracker.Mask(chans)
	if err != nil {
		return err
	}

	resp, err := s.sess.Execute(ctx, schema.ModulePip, schema.CmdTipDiscard, protocol.Params{
		Mask: mask,
		X:    xs(coords),
		Y:    ys(coords),
	})
	if err != nil {
		return s.afterWireFailure(err, chans)
	}
	if kz := resp.Sensors[schema.TagTipSensor]; kz != nil {
		s.log.Debug().Ints("kz", kz).Ints("vz", resp.Sensors[schema.TagLevelSensor]).Msg("drop sensors")
	}
	ok, err := resp.ChannelOK(mask)
	if err != nil {
		return err
	}
	s.tracker.CommitDrop(chans, ok)
	return s.deviceOutcome(resp, mask, schema.CmdTipDiscard)
}

// Resync queries tip presence and rebuilds channel state from it. This
// is the only way out of the unknown state a timeout leaves behind.
func (s *Service) Resync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := s.sess.Execute(ctx, schema.ModulePip, schema.CmdTipQuery, protocol.Params{})
	if err != nil {
		return err
	}
	present := resp.SensorBools(schema.TagTipPresence)
	if present == nil {
		return fmt.Errorf("%w: tip query response lacks %s field", protocol.ErrMalformedResponse, schema.TagTipPresence)
	}
	if n := s.tracker.Count(); len(present) > n {
		present = present[:n]
	}
	// Recovered tips have unknown remaining capacity; force a drop
	// before the next aspirate rather than guess a volume.
	return s.tracker.Resync(present, 0)
}

func (s *Service) defineTipType(ctx context.Context, rack *deck.Resource) error {
	id := rack.TipTypeID()
	if s.definedTipTypes[id] {
		return nil
	}
	resp, err := s.sess.Execute(ctx, schema.ModulePip, schema.CmdTipDefine, protocol.Params{
		Scalars: map[string]int{
			"tt": id,
			"tl": protocol.Tenths(rack.TipLengthMM()),
			"tv": protocol.Tenths(rack.TipVolumeUL()),
		},
	})
	if err != nil {
		return err
	}
	if len(resp.ErrorCodes) > 0 && resp.ErrorCodes[0] != "00" {
		return fmt.Errorf("%w: define tip type %d failed with code %s", protocol.ErrDevice, id, resp.ErrorCodes[0])
	}
	s.definedTipTypes[id] = true
	return nil
}

// afterWireFailure handles errors from the round trip itself. After a
// timeout the physical outcome is ambiguous: the affected channels go
// to unknown instead of being reverted.
func (s *Service) afterWireFailure(err error, chans []int) error {
	if errors.Is(err, session.ErrTimeout) {
		s.tracker.MarkUnknown(chans)
		s.log.Error().Ints("channels", chans).Msg("command timed out, channel state unknown until resync")
	}
	return err
}

func (s *Service) deviceOutcome(resp *protocol.Response, mask []bool, code string) error {
	failures := resp.Failures(mask)
	if len(failures) == 0 {
		return nil
	}
	for _, f := range failures {
		observability.RecordChannelError(f.Channel, f.Code)
	}
	return &protocol.CommandError{
		Module:   resp.Module,
		Code:     code,
		ID:       resp.ID,
		Channels: failures,
	}
}

func (s *Service) tipCarryingChannels() []int {
	var chans []int
	for i, c := range s.tracker.Snapshot() {
		if c.State == channels.StateTipAttached || c.State == channels.StateTipWithLiquid {
			chans = append(chans, i+1)
		}
	}
	return chans
}

func sequentialChannels(n int) []int {
	chans := make([]int, n)
	for i := range chans {
		chans[i] = i + 1
	}
	return chans
}

func xs(coords []deck.Coord) []float64 {
	out := make([]float64, len(coords))
	for i, c := range coords {
		out[i] = c.X
	}
	return out
}

func ys(coords []deck.Coord) []float64 {
	out := make([]float64, len(coords))
	for i, c := range coords {
		out[i] = c.Y
	}
	return out
}

func zs(coords []deck.Coord) []float64 {
	out := make([]float64, len(coords))
	for i, c := range coords {
		out[i] = c.Z
	}
	return out
}
