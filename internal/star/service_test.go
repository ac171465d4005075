package star

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/openlh/star/internal/channels"
	"github.com/openlh/star/internal/deck"
	"github.com/openlh/star/internal/protocol"
	"github.com/openlh/star/internal/protocol/session"
	"github.com/openlh/star/internal/testutil/testlog"
	"github.com/openlh/star/internal/transport"
)

const testChannels = 8

// scriptedDevice answers every command the service sends. The reply
// function sees the full command string and returns the response body
// (everything after the echoed header).
type scriptedDevice struct {
	dev *transport.Loopback

	mu   sync.Mutex
	sent []string
}

func allOK() string {
	codes := make([]string, testChannels)
	for i := range codes {
		codes[i] = "00"
	}
	return "er" + strings.Join(codes, "/")
}

func startDevice(t *testing.T, dev *transport.Loopback, reply func(cmd string) string) *scriptedDevice {
	t.Helper()
	d := &scriptedDevice{dev: dev}
	go func() {
		ctx := context.Background()
		for {
			cmd, err := dev.Receive(ctx)
			if err != nil {
				return
			}
			d.mu.Lock()
			d.sent = append(d.sent, cmd)
			d.mu.Unlock()
			body := reply(cmd)
			if body == "" {
				continue // simulate silence
			}
			if err := dev.Send(ctx, cmd[:10]+body); err != nil {
				return
			}
		}
	}()
	return d
}

func (d *scriptedDevice) commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.sent))
	copy(out, d.sent)
	return out
}

func testDeck(t *testing.T) *deck.Deck {
	t.Helper()
	d := deck.New(30)

	tipCarrier, err := deck.NewStandardResource("tip_carrier_4", "tips_carrier")
	if err != nil {
		t.Fatalf("carrier preset: %v", err)
	}
	if err := d.Assign(tipCarrier, 3); err != nil {
		t.Fatalf("assign carrier: %v", err)
	}
	rack, err := deck.NewStandardResource("tip_rack_300ul", "tips300")
	if err != nil {
		t.Fatalf("rack preset: %v", err)
	}
	if err := d.AssignToSlot("tips_carrier", rack, 1); err != nil {
		t.Fatalf("assign rack: %v", err)
	}

	plateCarrier, err := deck.NewStandardResource("plate_carrier_5", "plates_carrier")
	if err != nil {
		t.Fatalf("carrier preset: %v", err)
	}
	if err := d.Assign(plateCarrier, 9); err != nil {
		t.Fatalf("assign carrier: %v", err)
	}
	plate, err := deck.NewStandardResource("plate_96", "plate1")
	if err != nil {
		t.Fatalf("plate preset: %v", err)
	}
	if err := d.AssignToSlot("plates_carrier", plate, 1); err != nil {
		t.Fatalf("assign plate: %v", err)
	}

	trash, err := deck.NewStandardResource("trash", "waste")
	if err != nil {
		t.Fatalf("trash preset: %v", err)
	}
	if err := d.Assign(trash, 28); err != nil {
		t.Fatalf("assign trash: %v", err)
	}
	return d
}

func newTestService(t *testing.T, reply func(cmd string) string) (*Service, *scriptedDevice) {
	t.Helper()
	host, devEnd := transport.Pair()
	sess := session.New(host, session.Config{Timeout: 2 * time.Second}, zerolog.Nop())
	t.Cleanup(func() { _ = sess.Close() })
	dev := startDevice(t, devEnd, reply)
	svc := NewService(testDeck(t), sess, testChannels, zerolog.Nop())
	return svc, dev
}

func okReply(cmd string) string {
	if cmd[2:4] == "RT" {
		return "rt0 0 0 0 0 0 0 0"
	}
	return allOK()
}

func TestPickUpTipsDefinesTypeOnce(t *testing.T) {
	testlog.Start(t)
	svc, dev := newTestService(t, okReply)
	ctx := context.Background()

	if err := svc.PickUpTips(ctx, "tips300", "A1:C1"); err != nil {
		t.Fatalf("pick up: %v", err)
	}

	cmds := dev.commands()
	if len(cmds) != 2 {
		t.Fatalf("got %d commands, want TT then TP: %v", len(cmds), cmds)
	}
	if cmds[0][2:4] != "TT" {
		t.Fatalf("first command = %q, want tip define", cmds[0])
	}
	for _, want := range []string{"tt01", "tl0599", "tv03000"} {
		if !strings.Contains(cmds[0], want) {
			t.Fatalf("tip define %q missing %q", cmds[0], want)
		}
	}
	if cmds[1][2:4] != "TP" {
		t.Fatalf("second command = %q, want tip pick up", cmds[1])
	}
	if !strings.Contains(cmds[1], "tm1 1 1 0 0 0 0 0") {
		t.Fatalf("pick up mask wrong in %q", cmds[1])
	}

	// Same tip type again: no second define.
	if err := svc.DropTips(ctx, "waste", ""); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if err := svc.PickUpTips(ctx, "tips300", "D1:F1"); err != nil {
		t.Fatalf("second pick up: %v", err)
	}
	for _, cmd := range dev.commands()[2:] {
		if cmd[2:4] == "TT" {
			t.Fatalf("tip type defined twice: %v", dev.commands())
		}
	}
}

func TestPickUpTipsUpdatesChannels(t *testing.T) {
	testlog.Start(t)
	svc, _ := newTestService(t, okReply)

	if err := svc.PickUpTips(context.Background(), "tips300", "A1:C1"); err != nil {
		t.Fatalf("pick up: %v", err)
	}
	states := svc.ChannelStates()
	for ch := 0; ch < 3; ch++ {
		if states[ch].State != channels.StateTipAttached {
			t.Fatalf("channel %d state = %v", ch+1, states[ch].State)
		}
		if states[ch].CapacityUL != 300.0 {
			t.Fatalf("channel %d capacity = %v", ch+1, states[ch].CapacityUL)
		}
	}
	if states[3].State != channels.StateEmpty {
		t.Fatalf("channel 4 state = %v", states[3].State)
	}
}

func TestAspirateEncodesCorrectedVolumes(t *testing.T) {
	testlog.Start(t)
	svc, dev := newTestService(t, okReply)
	ctx := context.Background()

	if err := svc.PickUpTips(ctx, "tips300", "A1:C1"); err != nil {
		t.Fatalf("pick up: %v", err)
	}
	if err := svc.Aspirate(ctx, "plate1", "A1:C1", []float64{100, 50, 200}); err != nil {
		t.Fatalf("aspirate: %v", err)
	}

	cmds := dev.commands()
	as := cmds[len(cmds)-1]
	if as[2:4] != "AS" {
		t.Fatalf("last command = %q, want aspirate", as)
	}
	if !strings.Contains(as, "av01072 00551 02110 00000") {
		t.Fatalf("aspirate volumes wrong in %q", as)
	}

	states := svc.ChannelStates()
	wantVol := []float64{100, 50, 200}
	for i, want := range wantVol {
		if states[i].State != channels.StateTipWithLiquid || states[i].VolumeUL != want {
			t.Fatalf("channel %d = %+v, want %v ul of liquid", i+1, states[i], want)
		}
	}
}

func TestDispenseBackToEmptyTips(t *testing.T) {
	testlog.Start(t)
	svc, _ := newTestService(t, okReply)
	ctx := context.Background()
	volumes := []float64{100, 50, 200}

	if err := svc.PickUpTips(ctx, "tips300", "A1:C1"); err != nil {
		t.Fatalf("pick up: %v", err)
	}
	if err := svc.Aspirate(ctx, "plate1", "A1:C1", volumes); err != nil {
		t.Fatalf("aspirate: %v", err)
	}
	if err := svc.Dispense(ctx, "plate1", "A4:C4", volumes); err != nil {
		t.Fatalf("dispense: %v", err)
	}

	for i, ch := range svc.ChannelStates()[:3] {
		if ch.State != channels.StateTipAttached || ch.VolumeUL != 0 {
			t.Fatalf("channel %d = %+v, want attached and empty", i+1, ch)
		}
	}
}

func TestVolumeCountMustMatchSites(t *testing.T) {
	testlog.Start(t)
	svc, _ := newTestService(t, okReply)
	ctx := context.Background()

	if err := svc.PickUpTips(ctx, "tips300", "A1:C1"); err != nil {
		t.Fatalf("pick up: %v", err)
	}
	err := svc.Aspirate(ctx, "plate1", "A1:C1", []float64{100, 50})
	if !errors.Is(err, channels.ErrShape) {
		t.Fatalf("err = %v, want shape error", err)
	}
}

func TestPartialFailureRollsBackFailedChannel(t *testing.T) {
	testlog.Start(t)
	reply := func(cmd string) string {
		if cmd[2:4] == "AS" {
			return "er00/52/00/00/00/00/00/00"
		}
		return okReply(cmd)
	}
	svc, _ := newTestService(t, reply)
	ctx := context.Background()

	if err := svc.PickUpTips(ctx, "tips300", "A1:C1"); err != nil {
		t.Fatalf("pick up: %v", err)
	}
	err := svc.Aspirate(ctx, "plate1", "A1:C1", []float64{100, 50, 200})
	if !errors.Is(err, protocol.ErrDevice) {
		t.Fatalf("err = %v, want device error", err)
	}
	var cmdErr *protocol.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("err = %T, want *CommandError", err)
	}
	if len(cmdErr.Channels) != 1 || cmdErr.Channels[0].Channel != 2 || cmdErr.Channels[0].Code != "52" {
		t.Fatalf("failures = %+v", cmdErr.Channels)
	}

	states := svc.ChannelStates()
	if states[0].State != channels.StateTipWithLiquid || states[0].VolumeUL != 100 {
		t.Fatalf("channel 1 = %+v, want committed aspirate", states[0])
	}
	if states[1].State != channels.StateTipAttached || states[1].VolumeUL != 0 {
		t.Fatalf("channel 2 = %+v, want rolled back", states[1])
	}
	if states[2].State != channels.StateTipWithLiquid || states[2].VolumeUL != 200 {
		t.Fatalf("channel 3 = %+v, want committed aspirate", states[2])
	}
}

func TestTimeoutLeavesChannelsUnknownUntilResync(t *testing.T) {
	testlog.Start(t)
	var silent bool
	var mu sync.Mutex
	reply := func(cmd string) string {
		mu.Lock()
		defer mu.Unlock()
		if cmd[2:4] == "AS" && silent {
			return ""
		}
		if cmd[2:4] == "RT" {
			return "rt1 1 1 0 0 0 0 0"
		}
		return okReply(cmd)
	}
	host, devEnd := transport.Pair()
	sess := session.New(host, session.Config{Timeout: 50 * time.Millisecond}, zerolog.Nop())
	t.Cleanup(func() { _ = sess.Close() })
	startDevice(t, devEnd, reply)
	svc := NewService(testDeck(t), sess, testChannels, zerolog.Nop())
	ctx := context.Background()

	if err := svc.PickUpTips(ctx, "tips300", "A1:C1"); err != nil {
		t.Fatalf("pick up: %v", err)
	}
	mu.Lock()
	silent = true
	mu.Unlock()

	err := svc.Aspirate(ctx, "plate1", "A1:C1", []float64{100, 50, 200})
	if !errors.Is(err, session.ErrTimeout) {
		t.Fatalf("err = %v, want timeout", err)
	}
	for i, ch := range svc.ChannelStates()[:3] {
		if ch.State != channels.StateUnknown {
			t.Fatalf("channel %d state = %v, want unknown", i+1, ch.State)
		}
	}

	// Everything except resync is refused while unknown.
	if err := svc.Aspirate(ctx, "plate1", "A1:C1", []float64{10, 10, 10}); !errors.Is(err, channels.ErrStateUnknown) {
		t.Fatalf("err = %v, want state unknown", err)
	}

	if err := svc.Resync(ctx); err != nil {
		t.Fatalf("resync: %v", err)
	}
	states := svc.ChannelStates()
	for i := 0; i < 3; i++ {
		if states[i].State != channels.StateTipAttached {
			t.Fatalf("channel %d state = %v after resync", i+1, states[i].State)
		}
	}
	for i := 3; i < testChannels; i++ {
		if states[i].State != channels.StateEmpty {
			t.Fatalf("channel %d state = %v after resync", i+1, states[i].State)
		}
	}
}

func TestDropTipsAtTrashTakesAllTips(t *testing.T) {
	testlog.Start(t)
	svc, dev := newTestService(t, okReply)
	ctx := context.Background()

	if err := svc.DropTips(ctx, "waste", ""); !errors.Is(err, ErrNoTips) {
		t.Fatalf("err = %v, want no tips", err)
	}

	if err := svc.PickUpTips(ctx, "tips300", "A1:C1"); err != nil {
		t.Fatalf("pick up: %v", err)
	}
	if err := svc.DropTips(ctx, "waste", ""); err != nil {
		t.Fatalf("drop: %v", err)
	}
	cmds := dev.commands()
	tr := cmds[len(cmds)-1]
	if tr[2:4] != "TR" {
		t.Fatalf("last command = %q, want tip discard", tr)
	}
	if !strings.Contains(tr, "tm1 1 1 0 0 0 0 0") {
		t.Fatalf("discard mask wrong in %q", tr)
	}
	// Channels fan out from the chute origin at the 9 mm channel
	// pitch; a rail-mounted trash starts at y = 0, so the spread must
	// go in +y to stay encodable.
	if !strings.Contains(tr, "yp0000 0090 0180 0000 0000 0000 0000 0000") {
		t.Fatalf("discard positions wrong in %q", tr)
	}
	for i, ch := range svc.ChannelStates()[:3] {
		if ch.State != channels.StateEmpty {
			t.Fatalf("channel %d state = %v after drop", i+1, ch.State)
		}
	}
}

func TestPickUpRejectsNonTipRack(t *testing.T) {
	testlog.Start(t)
	svc, _ := newTestService(t, okReply)
	err := svc.PickUpTips(context.Background(), "plate1", "A1")
	if !errors.Is(err, ErrResourceKind) {
		t.Fatalf("err = %v, want resource kind error", err)
	}
}
