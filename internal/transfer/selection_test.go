package transfer

import (
	"testing"
	"time"

	"github.com/stackpark/stackpark-core/internal/lift"
)

// positionLift drives a controller to the given level so selection tests
// can place cars at known positions.
func positionLift(t *testing.T, l *lift.Controller, level int) {
	t.Helper()
	now := time.Now()
	if err := l.MoveTo(level, now); err != nil {
		t.Fatalf("MoveTo(%d): %v", level, err)
	}
	for i := 0; i < 5000; i++ {
		if l.Done() {
			return
		}
		now = now.Add(period)
		l.Step(now, period, true)
	}
	t.Fatalf("lift did not reach level %d", level)
}

func TestSelectLiftPrefersNearest(t *testing.T) {
	cfg := testConfig()
	lifts := newTestLifts(cfg)
	positionLift(t, lifts[1], 10)

	// Target near level 10: the repositioned lift 2 wins.
	got := SelectLift(lifts, cfg.Facility.LevelPositionMm(10))
	if got == nil || got.ID() != 2 {
		t.Fatalf("SelectLift = %v, want lift 2", got)
	}

	// Target at ground: lifts 1 and 3 tie at position 0; lowest id wins.
	got = SelectLift(lifts, 0)
	if got == nil || got.ID() != 1 {
		t.Fatalf("SelectLift = %v, want lift 1 on tie", got)
	}
}

func TestSelectLiftSkipsUnavailable(t *testing.T) {
	cfg := testConfig()
	lifts := newTestLifts(cfg)

	// Manual mode makes a lift unavailable for dispatch.
	if err := lifts[0].Jog(lift.JogUp, 100); err != nil {
		t.Fatalf("Jog: %v", err)
	}
	got := SelectLift(lifts, 0)
	if got == nil || got.ID() != 2 {
		t.Fatalf("SelectLift = %v, want lift 2 with lift 1 in manual", got)
	}
}

func TestSelectLiftNoneAvailable(t *testing.T) {
	cfg := testConfig()
	lifts := newTestLifts(cfg)
	for _, l := range lifts {
		if err := l.Jog(lift.JogUp, 100); err != nil {
			t.Fatalf("Jog: %v", err)
		}
	}
	if got := SelectLift(lifts, 0); got != nil {
		t.Fatalf("SelectLift = lift %d, want nil", got.ID())
	}
}
