package channels

import (
	"errors"
	"testing"
)

func allOK(n int) []bool {
	ok := make([]bool, n)
	for i := range ok {
		ok[i] = true
	}
	return ok
}

func TestPickUpThenDropRoundTrip(t *testing.T) {
	tr := NewTracker(8)
	chans := []int{1, 2, 3}

	if err := tr.PlanPickUp(chans); err != nil {
		t.Fatalf("plan pick up: %v", err)
	}
	tr.CommitPickUp(chans, allOK(3), 300.0)
	for _, ch := range chans {
		if got := tr.Snapshot()[ch-1].State; got != StateTipAttached {
			t.Fatalf("channel %d = %v, want tip_attached", ch, got)
		}
	}

	if err := tr.PlanDrop(chans); err != nil {
		t.Fatalf("plan drop: %v", err)
	}
	tr.CommitDrop(chans, allOK(3))
	for _, ch := range chans {
		if got := tr.Snapshot()[ch-1]; got.State != StateEmpty || got.VolumeUL != 0 {
			t.Fatalf("channel %d = %+v, want empty", ch, got)
		}
	}
}

func TestPickUpConflict(t *testing.T) {
	tr := NewTracker(8)
	tr.CommitPickUp([]int{2}, allOK(1), 300.0)
	err := tr.PlanPickUp([]int{1, 2})
	if !errors.Is(err, ErrChannelConflict) {
		t.Fatalf("expected ErrChannelConflict, got %v", err)
	}
}

func TestAspirateDispenseExactRoundTrip(t *testing.T) {
	tr := NewTracker(8)
	tr.CommitPickUp([]int{1}, allOK(1), 300.0)

	if err := tr.PlanAspirate([]int{1}, []float64{100.0}); err != nil {
		t.Fatalf("plan aspirate: %v", err)
	}
	tr.CommitAspirate([]int{1}, []float64{100.0}, allOK(1))
	if got := tr.Snapshot()[0]; got.State != StateTipWithLiquid || got.VolumeUL != 100.0 {
		t.Fatalf("after aspirate: %+v", got)
	}

	if err := tr.PlanDispense([]int{1}, []float64{100.0}); err != nil {
		t.Fatalf("plan dispense: %v", err)
	}
	tr.CommitDispense([]int{1}, []float64{100.0}, allOK(1))
	if got := tr.Snapshot()[0]; got.State != StateTipAttached || got.VolumeUL != 0 {
		t.Fatalf("after dispense: %+v, want zero residual", got)
	}
}

func TestPartialDispenseRetainsResidual(t *testing.T) {
	tr := NewTracker(8)
	tr.CommitPickUp([]int{1}, allOK(1), 300.0)
	tr.CommitAspirate([]int{1}, []float64{200.0}, allOK(1))

	tr.CommitDispense([]int{1}, []float64{50.0}, allOK(1))
	got := tr.Snapshot()[0]
	if got.State != StateTipWithLiquid || got.VolumeUL != 150.0 {
		t.Fatalf("after partial dispense: %+v, want 150.0 retained", got)
	}
}

func TestAspirateOverCapacity(t *testing.T) {
	tr := NewTracker(8)
	tr.CommitPickUp([]int{1}, allOK(1), 300.0)
	before := tr.Snapshot()[0]

	err := tr.PlanAspirate([]int{1}, []float64{350.0})
	if !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected ErrCapacity, got %v", err)
	}
	if after := tr.Snapshot()[0]; after != before {
		t.Fatalf("failed plan mutated state: %+v vs %+v", after, before)
	}

	// Cumulative volume counts against capacity too.
	tr.CommitAspirate([]int{1}, []float64{250.0}, allOK(1))
	if err := tr.PlanAspirate([]int{1}, []float64{100.0}); !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected cumulative ErrCapacity, got %v", err)
	}
}

func TestAspirateWithoutTip(t *testing.T) {
	tr := NewTracker(8)
	err := tr.PlanAspirate([]int{1}, []float64{10.0})
	if !errors.Is(err, ErrChannelConflict) {
		t.Fatalf("expected ErrChannelConflict, got %v", err)
	}
}

func TestDispenseMoreThanHeld(t *testing.T) {
	tr := NewTracker(8)
	tr.CommitPickUp([]int{1}, allOK(1), 300.0)
	tr.CommitAspirate([]int{1}, []float64{50.0}, allOK(1))
	err := tr.PlanDispense([]int{1}, []float64{60.0})
	if !errors.Is(err, ErrInsufficientVolume) {
		t.Fatalf("expected ErrInsufficientVolume, got %v", err)
	}
}

func TestUnknownBlocksEverything(t *testing.T) {
	tr := NewTracker(8)
	tr.CommitPickUp([]int{1}, allOK(1), 300.0)
	tr.MarkUnknown([]int{1})

	if err := tr.PlanPickUp([]int{1}); !errors.Is(err, ErrStateUnknown) {
		t.Fatalf("pick up: expected ErrStateUnknown, got %v", err)
	}
	if err := tr.PlanAspirate([]int{1}, []float64{10}); !errors.Is(err, ErrStateUnknown) {
		t.Fatalf("aspirate: expected ErrStateUnknown, got %v", err)
	}
	if err := tr.PlanDrop([]int{1}); !errors.Is(err, ErrStateUnknown) {
		t.Fatalf("drop: expected ErrStateUnknown, got %v", err)
	}
}

func TestResyncRecoversUnknown(t *testing.T) {
	tr := NewTracker(4)
	tr.MarkUnknown([]int{1, 2, 3, 4})

	present := []bool{true, false, true, false}
	if err := tr.Resync(present, 300.0); err != nil {
		t.Fatalf("resync: %v", err)
	}
	snap := tr.Snapshot()
	for i, want := range present {
		wantState := StateEmpty
		if want {
			wantState = StateTipAttached
		}
		if snap[i].State != wantState {
			t.Fatalf("channel %d = %v, want %v", i+1, snap[i].State, wantState)
		}
	}
	if err := tr.PlanDrop([]int{1}); err != nil {
		t.Fatalf("drop after resync should be valid: %v", err)
	}
}

func TestPerChannelCommitSkipsFailures(t *testing.T) {
	tr := NewTracker(8)
	chans := []int{1, 2}
	tr.CommitPickUp(chans, []bool{true, false}, 300.0)
	snap := tr.Snapshot()
	if snap[0].State != StateTipAttached {
		t.Fatalf("channel 1 should have committed: %+v", snap[0])
	}
	if snap[1].State != StateEmpty {
		t.Fatalf("channel 2 should have rolled back: %+v", snap[1])
	}
}

func TestMaskShape(t *testing.T) {
	tr := NewTracker(4)
	mask, err := tr.Mask([]int{1, 3})
	if err != nil {
		t.Fatalf("mask: %v", err)
	}
	want := []bool{true, false, true, false}
	for i := range want {
		if mask[i] != want[i] {
			t.Fatalf("mask = %v, want %v", mask, want)
		}
	}
	if _, err := tr.Mask([]int{5}); !errors.Is(err, ErrChannelIndex) {
		t.Fatalf("expected ErrChannelIndex, got %v", err)
	}
}
