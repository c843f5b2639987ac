package core

import (
	"context"
	"testing"
	"time"

	"github.com/stackpark/stackpark-core/internal/facility"
	"github.com/stackpark/stackpark-core/internal/infrastructure/config"
	"github.com/stackpark/stackpark-core/internal/infrastructure/logging"
	"github.com/stackpark/stackpark-core/internal/lift"
	"github.com/stackpark/stackpark-core/internal/safety"
	"github.com/stackpark/stackpark-core/internal/session"
	"github.com/stackpark/stackpark-core/internal/signals"
	"github.com/stackpark/stackpark-core/internal/transfer"
)

const (
	period   = 100 * time.Millisecond
	maxSteps = 30000
)

type harness struct {
	cfg   *config.Config
	store *signals.Store
	repo  *facility.MockRepository
	core  *Core
	now   time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Session.InitSeconds = 1
	cfg.Session.ParkedDwellSeconds = 1
	cfg.Session.ResetConfirmSeconds = 1
	cfg.Safety.EvacuationDwellSeconds = 1

	repo := facility.NewMockRepository()
	grid, err := facility.LoadGrid(context.Background(), repo,
		cfg.Facility.Levels, cfg.Facility.Positions)
	if err != nil {
		t.Fatalf("LoadGrid: %v", err)
	}

	store := signals.NewStore()
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text"}, "test")

	h := &harness{
		cfg:   cfg,
		store: store,
		repo:  repo,
		core:  New(cfg, log, store, grid, repo, facility.Stats{}),
		now:   time.Now(),
	}
	store.Update(func(in *signals.Inputs) {
		in.MeasuredLengthMm = 4000
		in.MeasuredWidthMm = 1700
		in.MeasuredHeightMm = 1500
		in.MeasuredWeightKg = 1200
	})
	return h
}

// step advances the core one period, simulating the load cell from the
// sequencer phase.
func (h *harness) step() {
	h.now = h.now.Add(period)

	switch h.core.Sequencer().Phase() {
	case transfer.PhaseSecuring, transfer.PhasePickup:
		h.store.Update(func(in *signals.Inputs) { in.PlatformLoadKg = 1200 })
	case transfer.PhaseDeposit, transfer.PhaseDeliver:
		h.store.Update(func(in *signals.Inputs) { in.PlatformLoadKg = 0 })
	}

	h.core.Step(h.now, period)
}

func (h *harness) stepUntilSession(t *testing.T, want session.State) {
	t.Helper()
	for i := 0; i < maxSteps; i++ {
		if h.core.Orchestrator().State() == want {
			return
		}
		h.step()
	}
	t.Fatalf("session state %s not reached (state %s)",
		want, h.core.Orchestrator().State())
}

func (h *harness) stepUntilPhase(t *testing.T, want transfer.Phase) {
	t.Helper()
	for i := 0; i < maxSteps; i++ {
		if h.core.Sequencer().Phase() == want {
			return
		}
		h.step()
	}
	t.Fatalf("transfer phase %v not reached (phase %v)",
		want, h.core.Sequencer().Phase())
}

func (h *harness) stepUntilSafety(t *testing.T, want safety.State) {
	t.Helper()
	for i := 0; i < maxSteps; i++ {
		if h.core.Supervisor().State() == want {
			return
		}
		h.step()
	}
	t.Fatalf("safety state %s not reached (state %s)",
		want, h.core.Supervisor().State())
}

// busyLift returns the lift currently executing a move, if any.
func (h *harness) busyLift() *lift.Controller {
	for i := 1; i <= h.cfg.Lifts.Count; i++ {
		if h.core.Lift(i).Busy() {
			return h.core.Lift(i)
		}
	}
	return nil
}

func TestSnapshotShape(t *testing.T) {
	h := newHarness(t)
	h.step()

	snap := h.core.Snapshot(h.now)
	if snap.Capacity != 300 {
		t.Fatalf("capacity = %d, want 300", snap.Capacity)
	}
	if len(snap.Slots) != 300 {
		t.Fatalf("snapshot has %d slots, want 300", len(snap.Slots))
	}
	if len(snap.Lifts) != 3 {
		t.Fatalf("snapshot has %d lifts, want 3", len(snap.Lifts))
	}
	if snap.Session != session.StateInit {
		t.Fatalf("session = %s, want init", snap.Session)
	}
	if !snap.Safety.OK {
		t.Fatalf("safety verdict = %+v, want OK with healthy defaults", snap.Safety)
	}
}

func TestParkThroughCommandSurface(t *testing.T) {
	h := newHarness(t)
	h.stepUntilSession(t, session.StateIdle)

	if err := h.core.Submit(Command{Action: ActionRequestPark, VehicleID: "veh-1"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	h.store.Update(func(in *signals.Inputs) {
		in.VehiclePresent = true
		in.PaymentConfirmed = true
		in.VehicleInBay = true
	})
	h.stepUntilSession(t, session.StateParking)
	h.store.Update(func(in *signals.Inputs) {
		in.VehiclePresent = false
		in.PaymentConfirmed = false
		in.VehicleInBay = false
	})

	h.stepUntilSession(t, session.StateParked)
	h.stepUntilSession(t, session.StateIdle)

	if got := h.core.Grid().OccupiedCount(); got != 1 {
		t.Fatalf("occupancy = %d, want 1", got)
	}
	if stats := h.core.Orchestrator().Stats(); stats.TotalParked != 1 {
		t.Fatalf("stats = %+v, want one parked", stats)
	}

	// The occupancy flip and the stats update were persisted.
	if h.repo.SaveSlotCalls == 0 {
		t.Fatal("slot change was not persisted")
	}
	stats, err := h.repo.LoadStats(context.Background())
	if err != nil {
		t.Fatalf("LoadStats: %v", err)
	}
	if stats.TotalParked != 1 {
		t.Fatalf("persisted stats = %+v", stats)
	}
}

func TestEmergencyStopCommand(t *testing.T) {
	h := newHarness(t)
	h.stepUntilSession(t, session.StateIdle)

	if err := h.core.Submit(Command{Action: ActionEmergencyStop}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	h.step()

	snap := h.core.Snapshot(h.now)
	if snap.Safety.State != safety.StateEmergency || snap.Safety.OK {
		t.Fatalf("safety = %+v, want Emergency", snap.Safety)
	}
	if snap.Session != session.StateEmergency {
		t.Fatalf("session = %s, want emergency", snap.Session)
	}

	// Acknowledge shows up in the snapshot without changing state.
	if err := h.core.Submit(Command{Action: ActionAckEmergency}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	h.step()
	snap = h.core.Snapshot(h.now)
	if !snap.EmergencyAcknowledged {
		t.Fatal("acknowledge not reflected in snapshot")
	}
	if snap.Session != session.StateEmergency {
		t.Fatalf("session = %s, acknowledge must not change state", snap.Session)
	}

	// Reset clears the latch; the supervisor confirms over several clean
	// cycles, then the session reinitialises.
	if err := h.core.Submit(Command{Action: ActionReset}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	h.stepUntilSession(t, session.StateIdle)
	snap = h.core.Snapshot(h.now)
	if !snap.Safety.OK {
		t.Fatalf("safety = %+v after reset, want OK", snap.Safety)
	}
}

func TestStopAndStartCommands(t *testing.T) {
	h := newHarness(t)
	h.stepUntilSession(t, session.StateIdle)

	// Jog a lift so there is motion to stop.
	if err := h.core.Submit(Command{Action: ActionJogLift, LiftID: 1, Direction: "up", SpeedMms: 200}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	for i := 0; i < 10; i++ {
		h.step()
	}
	if h.core.Lift(1).SpeedMms() == 0 {
		t.Fatal("jog produced no motion")
	}

	if err := h.core.Submit(Command{Action: ActionStop}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	h.step()
	if got := h.core.Lift(1).SpeedMms(); got != 0 {
		t.Fatalf("lift speed %.1f after stop, want 0", got)
	}
	if !h.core.Snapshot(h.now).Stopped {
		t.Fatal("stopped latch not reflected in snapshot")
	}

	if err := h.core.Submit(Command{Action: ActionStart}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	h.step()
	if h.core.Snapshot(h.now).Stopped {
		t.Fatal("stopped latch survived start")
	}
}

func TestSlotMaintenanceLockCommands(t *testing.T) {
	h := newHarness(t)
	h.stepUntilSession(t, session.StateIdle)

	if err := h.core.Submit(Command{Action: ActionLockSlot, Level: 1, Position: 10}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	h.step()

	s, err := h.core.Grid().Slot(facility.SlotID{Level: 1, Position: 10})
	if err != nil {
		t.Fatalf("Slot: %v", err)
	}
	if !s.MaintenanceLocked {
		t.Fatal("slot not locked")
	}
	if h.repo.SaveSlotCalls == 0 {
		t.Fatal("lock not persisted")
	}

	if err := h.core.Submit(Command{Action: ActionUnlockSlot, Level: 1, Position: 10}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	h.step()
	s, _ = h.core.Grid().Slot(facility.SlotID{Level: 1, Position: 10})
	if s.MaintenanceLocked {
		t.Fatal("slot still locked")
	}
}

func TestRestoreLiftCounters(t *testing.T) {
	h := newHarness(t)
	h.core.RestoreLiftCounters([]facility.LiftCounters{
		{LiftID: 2, OperatingSeconds: 7200, FaultCount: 4},
		{LiftID: 9, OperatingSeconds: 1, FaultCount: 1}, // unknown id ignored
	})
	h.step()

	snap := h.core.Snapshot(h.now)
	if snap.Lifts[1].OperatingS != 7200 || snap.Lifts[1].FaultCount != 4 {
		t.Fatalf("lift 2 status = %+v", snap.Lifts[1])
	}
}

func TestStopDuringTransferResumesOnStart(t *testing.T) {
	h := newHarness(t)

	// Lock out level 1 so the selected slot forces real lift travel.
	for p := 1; p <= h.cfg.Facility.Positions; p++ {
		if err := h.core.Grid().SetMaintenanceLock(facility.SlotID{Level: 1, Position: p}, true); err != nil {
			t.Fatalf("SetMaintenanceLock: %v", err)
		}
	}
	h.stepUntilSession(t, session.StateIdle)

	if err := h.core.Submit(Command{Action: ActionRequestPark, VehicleID: "veh-2"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	h.store.Update(func(in *signals.Inputs) {
		in.VehiclePresent = true
		in.PaymentConfirmed = true
		in.VehicleInBay = true
	})
	h.stepUntilPhase(t, transfer.PhaseLiftTravel)
	h.store.Update(func(in *signals.Inputs) {
		in.VehiclePresent = false
		in.PaymentConfirmed = false
		in.VehicleInBay = false
	})

	l := h.busyLift()
	if l == nil {
		t.Fatal("no lift busy during lift travel")
	}

	if err := h.core.Submit(Command{Action: ActionStop}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// Hold past the lift move timeout but inside the hard parking
	// budget. The in-flight move must stay in flight at zero speed,
	// not abort or fault.
	for i := 0; i < 700; i++ {
		h.step()
		if got := l.SpeedMms(); got != 0 {
			t.Fatalf("step %d: lift speed %.1f while stopped, want 0", i, got)
		}
	}
	if !l.Busy() || l.Faulted() {
		t.Fatalf("Busy=%v Faulted=%v while stopped, want held move", l.Busy(), l.Faulted())
	}
	if got := h.core.Sequencer().Phase(); got != transfer.PhaseLiftTravel {
		t.Fatalf("sequencer phase %v while stopped, want lift travel", got)
	}

	// Start releases the hold and the transfer runs to completion.
	if err := h.core.Submit(Command{Action: ActionStart}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	h.stepUntilSession(t, session.StateParked)
	h.stepUntilSession(t, session.StateIdle)

	if got := h.core.Grid().OccupiedCount(); got != 1 {
		t.Fatalf("occupancy = %d, want 1", got)
	}
	if _, faults := l.Counters(); faults != 0 {
		t.Fatalf("lift fault count = %d, want 0", faults)
	}
}

func TestFireEvacuationRecoversToService(t *testing.T) {
	h := newHarness(t)
	h.stepUntilSession(t, session.StateIdle)

	h.store.Update(func(in *signals.Inputs) { in.FireAlarm = true })
	h.step()
	snap := h.core.Snapshot(h.now)
	if snap.Safety.State != safety.StateEvacuation || !snap.Safety.EvacuationRequired {
		t.Fatalf("safety = %+v, want Evacuation", snap.Safety)
	}
	if snap.Session != session.StateEmergency {
		t.Fatalf("session = %s, want emergency", snap.Session)
	}

	// Clearing the alarm alone does not release Evacuation.
	h.store.Update(func(in *signals.Inputs) { in.FireAlarm = false })
	for i := 0; i < 5; i++ {
		h.step()
	}
	if got := h.core.Supervisor().State(); got != safety.StateEvacuation {
		t.Fatalf("safety state %s after alarm cleared, want Evacuation until reset", got)
	}

	// Reset after the dwell parks the supervisor in Maintenance.
	if err := h.core.Submit(Command{Action: ActionReset}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	h.stepUntilSafety(t, safety.StateMaintenance)
	if h.core.Snapshot(h.now).Safety.OK {
		t.Fatal("verdict OK in Maintenance, motion must stay inhibited")
	}

	// Explicit maintenance exit restores the verdict and the session
	// re-enters service through its emergency recovery path.
	if err := h.core.Submit(Command{Action: ActionExitMaintenance}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	h.stepUntilSafety(t, safety.StateNormal)
	h.stepUntilSession(t, session.StateIdle)
	snap = h.core.Snapshot(h.now)
	if !snap.Safety.OK {
		t.Fatalf("safety = %+v after recovery, want OK", snap.Safety)
	}

	// The facility accepts work again.
	if err := h.core.Submit(Command{Action: ActionRequestPark, VehicleID: "veh-3"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	h.store.Update(func(in *signals.Inputs) {
		in.VehiclePresent = true
		in.PaymentConfirmed = true
		in.VehicleInBay = true
	})
	h.stepUntilSession(t, session.StateParking)
}

func TestUnknownActionIsRejected(t *testing.T) {
	h := newHarness(t)
	res := h.core.apply(Command{Action: "selfDestruct"}, h.store.Snapshot())
	if res.OK {
		t.Fatal("unknown action accepted")
	}
}

func TestCommandQueueOverflow(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < commandQueueSize; i++ {
		if err := h.core.Submit(Command{Action: ActionStart}); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}
	if err := h.core.Submit(Command{Action: ActionStart}); err != ErrQueueFull {
		t.Fatalf("Submit over capacity = %v, want ErrQueueFull", err)
	}
}
