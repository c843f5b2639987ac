package transfer

import (
	"errors"
	"testing"
	"time"

	"github.com/stackpark/stackpark-core/internal/facility"
	"github.com/stackpark/stackpark-core/internal/infrastructure/config"
	"github.com/stackpark/stackpark-core/internal/lift"
	"github.com/stackpark/stackpark-core/internal/safety"
	"github.com/stackpark/stackpark-core/internal/signals"
)

const period = 100 * time.Millisecond

// maxSteps bounds every simulated operation; a full park across the
// corridor takes on the order of 1,000 control periods.
const maxSteps = 20000

func testConfig() *config.Config {
	return config.Default()
}

func newTestLifts(cfg *config.Config) []*lift.Controller {
	lifts := make([]*lift.Controller, cfg.Lifts.Count)
	for i := range lifts {
		lifts[i] = lift.NewController(i+1, cfg.Lifts, cfg.Facility)
	}
	return lifts
}

// harness steps a sequencer, its lifts, and a simulated load cell
// through control periods. The load cell follows the choreography: a
// vehicle appears on the platform while securing or picking up and
// leaves it on deposit or delivery.
type harness struct {
	cfg   *config.Config
	grid  *facility.Grid
	lifts []*lift.Controller
	seq   *Sequencer
	now   time.Time
	in    signals.Inputs
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	grid, err := facility.NewGrid(cfg.Facility.Levels, cfg.Facility.Positions)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	lifts := newTestLifts(cfg)
	h := &harness{
		cfg:   cfg,
		grid:  grid,
		lifts: lifts,
		seq:   NewSequencer(cfg, grid, lifts),
		now:   time.Now(),
	}
	h.in.MeasuredLengthMm = 4000
	h.in.MeasuredWidthMm = 1700
	h.in.MeasuredHeightMm = 1500
	h.in.MeasuredWeightKg = 1200
	return h
}

func (h *harness) step(ok bool) {
	h.now = h.now.Add(period)

	switch h.seq.Phase() {
	case PhaseSecuring, PhasePickup:
		h.in.PlatformLoadKg = 1200
	case PhaseDeposit, PhaseDeliver:
		h.in.PlatformLoadKg = 0
	}

	verdict := safety.Verdict{OK: ok, State: safety.StateNormal}
	if !ok {
		verdict.State = safety.StateEmergency
	}
	h.seq.Step(h.now, period, h.in, verdict)
	for _, l := range h.lifts {
		l.Step(h.now, period, ok)
	}
}

func (h *harness) runUntilFinished(t *testing.T) Result {
	t.Helper()
	for i := 0; i < maxSteps; i++ {
		if h.seq.Finished() {
			return h.seq.Result()
		}
		h.step(true)
	}
	t.Fatalf("operation did not finish (phase %s)", h.seq.Phase())
	return Result{}
}

func TestParkEmptyFacility(t *testing.T) {
	h := newHarness(t, testConfig())

	if err := h.seq.Park("veh-1", h.now); err != nil {
		t.Fatalf("Park: %v", err)
	}
	if err := h.seq.Park("veh-2", h.now); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Park = %v, want ErrBusy", err)
	}

	before := h.grid.Snapshot()
	res := h.runUntilFinished(t)

	if !res.Success {
		t.Fatalf("park failed: %d %s", res.Code, res.CodeText)
	}
	// Lowest-cost free slot on an empty 15×20 grid is L1/P10.
	if res.Slot != "L1/P10" {
		t.Fatalf("assigned slot = %s, want L1/P10", res.Slot)
	}
	if got := h.grid.OccupiedCount(); got != 1 {
		t.Fatalf("occupancy = %d, want 1", got)
	}

	// Exactly one slot flipped, and no other slot changed.
	after := h.grid.Snapshot()
	flips := 0
	for i := range before {
		if before[i].Occupied != after[i].Occupied {
			flips++
			if after[i].ID != (facility.SlotID{Level: 1, Position: 10}) {
				t.Fatalf("unexpected slot flipped: %s", after[i].ID)
			}
			if after[i].VehicleID != "veh-1" || after[i].VehicleClass != facility.ClassCompact {
				t.Fatalf("flipped slot = %+v", after[i])
			}
		}
	}
	if flips != 1 {
		t.Fatalf("%d slots flipped, want exactly 1", flips)
	}
}

func TestParkFullFacilityIssuesNoCommands(t *testing.T) {
	h := newHarness(t, testConfig())
	for level := 1; level <= h.cfg.Facility.Levels; level++ {
		for position := 1; position <= h.cfg.Facility.Positions; position++ {
			id := facility.SlotID{Level: level, Position: position}
			if err := h.grid.Occupy(id, id.String(), facility.ClassStandard, h.now); err != nil {
				t.Fatalf("Occupy %s: %v", id, err)
			}
		}
	}

	if err := h.seq.Park("veh-1", h.now); err != nil {
		t.Fatalf("Park: %v", err)
	}
	res := h.runUntilFinished(t)

	if res.Success || res.Code != CodeNoSpace {
		t.Fatalf("result = %+v, want CodeNoSpace failure", res)
	}
	// No lift or platform command was issued.
	for _, l := range h.lifts {
		if l.Busy() || l.SpeedMms() != 0 {
			t.Fatalf("lift %d was commanded", l.ID())
		}
	}
	if p := h.seq.Platform(); p.Mode != PlatformIdle || p.XMm != 0 || p.YMm != 0 {
		t.Fatalf("platform was commanded: %+v", p)
	}
}

func TestParkRejectsOversizedVehicle(t *testing.T) {
	h := newHarness(t, testConfig())
	h.in.MeasuredHeightMm = 2200

	if err := h.seq.Park("veh-1", h.now); err != nil {
		t.Fatalf("Park: %v", err)
	}
	res := h.runUntilFinished(t)
	if res.Success || res.Code != CodeVehicleTooLarge {
		t.Fatalf("result = %+v, want CodeVehicleTooLarge failure", res)
	}
	if h.grid.OccupiedCount() != 0 {
		t.Fatal("oversized vehicle changed the slot table")
	}
}

func TestParkRejectsOverweightVehicle(t *testing.T) {
	h := newHarness(t, testConfig())
	h.in.MeasuredWeightKg = 3500

	if err := h.seq.Park("veh-1", h.now); err != nil {
		t.Fatalf("Park: %v", err)
	}
	res := h.runUntilFinished(t)
	if res.Success || res.Code != CodeVehicleTooHeavy {
		t.Fatalf("result = %+v, want CodeVehicleTooHeavy failure", res)
	}
}

func TestRetrieveUnknownVehicle(t *testing.T) {
	h := newHarness(t, testConfig())

	if err := h.seq.Retrieve("ghost", h.now); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	res := h.runUntilFinished(t)
	if res.Success || res.Code != CodeVehicleNotFound {
		t.Fatalf("result = %+v, want CodeVehicleNotFound failure", res)
	}
	if h.grid.OccupiedCount() != 0 {
		t.Fatal("failed retrieve changed the slot table")
	}
}

func TestParkThenRetrieveRoundTrip(t *testing.T) {
	h := newHarness(t, testConfig())

	var persisted []facility.Slot
	h.seq.SetOnSlotChange(func(s facility.Slot) {
		persisted = append(persisted, s)
	})

	if err := h.seq.Park("veh-1", h.now); err != nil {
		t.Fatalf("Park: %v", err)
	}
	res := h.runUntilFinished(t)
	if !res.Success {
		t.Fatalf("park failed: %s", res.CodeText)
	}
	slot := res.Slot

	if err := h.seq.Retrieve("veh-1", h.now); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	res = h.runUntilFinished(t)
	if !res.Success {
		t.Fatalf("retrieve failed: %d %s", res.Code, res.CodeText)
	}
	if res.Slot != slot {
		t.Fatalf("retrieve slot = %s, want %s", res.Slot, slot)
	}

	// Round trip restores the pre-park state.
	if got := h.grid.OccupiedCount(); got != 0 {
		t.Fatalf("occupancy after round trip = %d, want 0", got)
	}
	if _, err := h.grid.FindVehicle("veh-1"); !errors.Is(err, facility.ErrVehicleNotFound) {
		t.Fatalf("FindVehicle after retrieve = %v, want ErrVehicleNotFound", err)
	}

	// Both occupancy flips were pushed to the persistence callback.
	if len(persisted) != 2 {
		t.Fatalf("%d slots persisted, want 2", len(persisted))
	}
	if !persisted[0].Occupied || persisted[1].Occupied {
		t.Fatalf("persisted sequence = %+v", persisted)
	}
}

func TestEmergencyStopZeroesMotionAndHolds(t *testing.T) {
	h := newHarness(t, testConfig())

	if err := h.seq.Park("veh-1", h.now); err != nil {
		t.Fatalf("Park: %v", err)
	}
	// Run into the platform travel phase so motion is in progress.
	for i := 0; i < maxSteps && h.seq.Phase() != PhaseToLiftBay; i++ {
		h.step(true)
	}
	if h.seq.Phase() != PhaseToLiftBay {
		t.Fatalf("never reached travel phase (phase %s)", h.seq.Phase())
	}

	// One period with a failed verdict: all motion zeroed, still busy.
	posBefore := h.seq.Platform().XMm
	h.step(false)
	if got := h.seq.Platform().XMm; got != posBefore {
		t.Fatalf("platform moved during safety hold: %.1f -> %.1f", posBefore, got)
	}
	for _, l := range h.lifts {
		if l.SpeedMms() != 0 {
			t.Fatalf("lift %d speed %.1f during safety hold", l.ID(), l.SpeedMms())
		}
	}
	if !h.seq.Busy() {
		t.Fatal("operation must stay busy during a safety hold")
	}
	if h.grid.OccupiedCount() != 0 {
		t.Fatal("safety hold changed the slot table")
	}
}

func TestTravelTimeoutExhaustsRetriesAndAbandons(t *testing.T) {
	cfg := testConfig()
	cfg.Platform.SpeedMms = 1 // crawl: every travel phase times out
	cfg.Control.TravelTimeoutSeconds = 1
	cfg.Control.RetryDelaySeconds = 0
	h := newHarness(t, cfg)

	if err := h.seq.Park("veh-1", h.now); err != nil {
		t.Fatalf("Park: %v", err)
	}
	res := h.runUntilFinished(t)

	if res.Success {
		t.Fatal("park succeeded despite travel timeouts")
	}
	if res.Code != CodeTravelTimeout {
		t.Fatalf("code = %d, want CodeTravelTimeout", res.Code)
	}
	if res.Retries != cfg.Control.MaxRetries {
		t.Fatalf("retries = %d, want full budget %d", res.Retries, cfg.Control.MaxRetries)
	}
	if h.grid.OccupiedCount() != 0 {
		t.Fatal("abandoned park marked a slot occupied")
	}
	if h.seq.Busy() {
		t.Fatal("sequencer still busy after abandoning")
	}
}

func TestHandoffTimeoutAbandons(t *testing.T) {
	cfg := testConfig()
	cfg.Control.HandoffTimeoutSeconds = 6 // past the actuation dwell
	cfg.Control.MaxRetries = 0
	h := newHarness(t, cfg)

	if err := h.seq.Park("veh-1", h.now); err != nil {
		t.Fatalf("Park: %v", err)
	}
	for i := 0; i < maxSteps && h.seq.Phase() != PhaseLoadLift; i++ {
		h.step(true)
	}
	if h.seq.Phase() != PhaseLoadLift {
		t.Fatalf("never reached the handoff (phase %s)", h.seq.Phase())
	}

	// Take the assigned lift out of automatic service so the handoff
	// can never complete.
	if err := h.lifts[0].Jog(lift.JogUp, 100); err != nil {
		t.Fatalf("Jog: %v", err)
	}

	res := h.runUntilFinished(t)
	if res.Success {
		t.Fatal("park succeeded without a serviceable lift")
	}
	if res.Code != CodeHandoffTimeout {
		t.Fatalf("code = %d, want CodeHandoffTimeout", res.Code)
	}
	if res.Retries != 0 {
		t.Fatalf("retries = %d, want 0", res.Retries)
	}
	if h.grid.OccupiedCount() != 0 {
		t.Fatal("abandoned park marked a slot occupied")
	}
}

func TestRejectsEmptyVehicleID(t *testing.T) {
	h := newHarness(t, testConfig())
	if err := h.seq.Park("", h.now); !errors.Is(err, ErrEmptyVehicleID) {
		t.Fatalf("Park(\"\") = %v, want ErrEmptyVehicleID", err)
	}
	if err := h.seq.Retrieve("", h.now); !errors.Is(err, ErrEmptyVehicleID) {
		t.Fatalf("Retrieve(\"\") = %v, want ErrEmptyVehicleID", err)
	}
}

func TestAbortReturnsToIdle(t *testing.T) {
	h := newHarness(t, testConfig())

	if err := h.seq.Park("veh-1", h.now); err != nil {
		t.Fatalf("Park: %v", err)
	}
	for i := 0; i < 100; i++ {
		h.step(true)
	}
	h.seq.Abort()
	if h.seq.Busy() {
		t.Fatal("busy after Abort")
	}
	if h.seq.Phase() != PhaseIdle {
		t.Fatalf("phase = %s, want idle after Abort", h.seq.Phase())
	}

	// A new operation is accepted after the abort.
	if err := h.seq.Park("veh-2", h.now); err != nil {
		t.Fatalf("Park after Abort: %v", err)
	}
}
