package deck

import (
	"errors"
	"math"
	"testing"
)

func buildDeck(t *testing.T, rail int) *Deck {
	t.Helper()
	d := New(30)
	carrier, err := NewStandardResource("tip_carrier_4", "tip_car_01")
	if err != nil {
		t.Fatalf("carrier preset: %v", err)
	}
	if err := d.Assign(carrier, rail); err != nil {
		t.Fatalf("assign carrier: %v", err)
	}
	rack, err := NewStandardResource("tip_rack_300ul", "tips_01")
	if err != nil {
		t.Fatalf("rack preset: %v", err)
	}
	if err := d.AssignToSlot("tip_car_01", rack, 0); err != nil {
		t.Fatalf("assign rack: %v", err)
	}
	return d
}

func TestRailXReferenceMapping(t *testing.T) {
	if got := RailX(3); got != 145.0 {
		t.Fatalf("RailX(3) = %v, want 145.0", got)
	}
	if got := RailX(1); got != 100.0 {
		t.Fatalf("RailX(1) = %v, want 100.0", got)
	}
}

func TestResolveDeterministic(t *testing.T) {
	d := buildDeck(t, 3)
	_, first, err := d.Resolve("tips_01", "A1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	_, second, err := d.Resolve("tips_01", "A1")
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if first[0] != second[0] {
		t.Fatalf("resolution not deterministic: %v vs %v", first[0], second[0])
	}
}

func TestRailShiftTranslatesXOnly(t *testing.T) {
	near := buildDeck(t, 3)
	far := buildDeck(t, 7)

	_, nearCoords, err := near.Resolve("tips_01", "A1:H1")
	if err != nil {
		t.Fatalf("resolve near: %v", err)
	}
	_, farCoords, err := far.Resolve("tips_01", "A1:H1")
	if err != nil {
		t.Fatalf("resolve far: %v", err)
	}

	wantShift := 4 * RailPitch
	for i := range nearCoords {
		dx := farCoords[i].X - nearCoords[i].X
		if math.Abs(dx-wantShift) > 1e-9 {
			t.Fatalf("site %d x shift = %v, want %v", i, dx, wantShift)
		}
		if nearCoords[i].Y != farCoords[i].Y || nearCoords[i].Z != farCoords[i].Z {
			t.Fatalf("site %d y/z moved: %v vs %v", i, nearCoords[i], farCoords[i])
		}
	}
}

func TestUnassignedResource(t *testing.T) {
	d := New(30)
	carrier, _ := NewStandardResource("tip_carrier_4", "floating")
	if err := d.register(carrier); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := d.Position("floating")
	if !errors.Is(err, ErrUnassigned) {
		t.Fatalf("expected ErrUnassigned, got %v", err)
	}
}

func TestLookupUnknownName(t *testing.T) {
	d := buildDeck(t, 3)
	_, _, err := d.Resolve("no_such_rack", "A1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDuplicateNamesRejected(t *testing.T) {
	d := buildDeck(t, 3)
	dupe, _ := NewStandardResource("plate_96", "tips_01")
	err := d.AssignToSlot("tip_car_01", dupe, 1)
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestSlotConflictRejected(t *testing.T) {
	d := buildDeck(t, 3)
	second, _ := NewStandardResource("tip_rack_300ul", "tips_02")
	err := d.AssignToSlot("tip_car_01", second, 0)
	if !errors.Is(err, ErrSlotOccupied) {
		t.Fatalf("expected ErrSlotOccupied, got %v", err)
	}
}

func TestRailConflictRejected(t *testing.T) {
	d := buildDeck(t, 3)
	other, _ := NewStandardResource("plate_carrier_5", "plt_car_01")
	err := d.Assign(other, 3)
	if !errors.Is(err, ErrRailOccupied) {
		t.Fatalf("expected ErrRailOccupied, got %v", err)
	}
}

func TestUnassignRemovesSubtree(t *testing.T) {
	d := buildDeck(t, 3)
	if err := d.Unassign("tip_car_01"); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if _, err := d.Lookup("tips_01"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected child gone, got %v", err)
	}
	carrier, _ := NewStandardResource("tip_carrier_4", "tip_car_01")
	if err := d.Assign(carrier, 3); err != nil {
		t.Fatalf("rail should be free after unassign: %v", err)
	}
}
