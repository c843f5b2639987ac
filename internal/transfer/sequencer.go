package transfer

import (
	"errors"
	"time"

	"github.com/stackpark/stackpark-core/internal/facility"
	"github.com/stackpark/stackpark-core/internal/infrastructure/config"
	"github.com/stackpark/stackpark-core/internal/lift"
	"github.com/stackpark/stackpark-core/internal/safety"
	"github.com/stackpark/stackpark-core/internal/signals"
)

// handoffDwell is the fixed actuation time for moving the platform into
// or out of a lift car.
const handoffDwell = 4 * time.Second

// Logger is the logging interface used for operation events.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Sequencer owns the shared transfer platform and executes the
// multi-phase park and retrieve choreography. It is the only component
// that commands platform motion and the only writer of the slot grid.
//
// One operation at a time: a Park or Retrieve issued while Busy is
// rejected with ErrBusy, never queued. Each phase carries an explicit
// deadline; a phase failure consumes one retry (up to the configured
// budget) and restarts the operation from classification, after which
// the operation is abandoned for operator reconciliation.
type Sequencer struct {
	geom     config.FacilityConfig
	platCfg  config.PlatformConfig
	ctrl     config.ControlConfig
	log      Logger
	grid     *facility.Grid
	lifts    []*lift.Controller
	platform *Platform

	kind      Kind
	phase     Phase
	vehicleID string
	profile   facility.VehicleProfile
	slot      facility.SlotID
	sel       *lift.Controller

	busy       bool
	startedAt  time.Time
	deadline   time.Time
	dwellUntil time.Time
	retryAt    time.Time
	retries    int

	result Result

	// onSlotChange is invoked after a slot flips occupancy, so the
	// caller can persist it. May be nil.
	onSlotChange func(facility.Slot)
}

// NewSequencer creates an idle sequencer over the given grid and lifts.
func NewSequencer(cfg *config.Config, grid *facility.Grid, lifts []*lift.Controller) *Sequencer {
	return &Sequencer{
		geom:     cfg.Facility,
		platCfg:  cfg.Platform,
		ctrl:     cfg.Control,
		log:      noopLogger{},
		grid:     grid,
		lifts:    lifts,
		platform: NewPlatform(cfg.Platform),
		phase:    PhaseIdle,
	}
}

// SetLogger sets the logger for operation events.
func (s *Sequencer) SetLogger(log Logger) {
	if log != nil {
		s.log = log
	}
}

// SetOnSlotChange registers the persistence callback invoked whenever a
// slot flips occupancy.
func (s *Sequencer) SetOnSlotChange(fn func(facility.Slot)) {
	s.onSlotChange = fn
}

// Park accepts a park operation for the vehicle waiting at the entry
// bay. Classification and slot selection happen on the next Step so the
// measurements come from the same cycle's inputs.
func (s *Sequencer) Park(vehicleID string, now time.Time) error {
	return s.accept(KindPark, vehicleID, now)
}

// Retrieve accepts a retrieve operation for a stored vehicle.
func (s *Sequencer) Retrieve(vehicleID string, now time.Time) error {
	return s.accept(KindRetrieve, vehicleID, now)
}

func (s *Sequencer) accept(kind Kind, vehicleID string, now time.Time) error {
	if vehicleID == "" {
		return ErrEmptyVehicleID
	}
	if s.busy {
		return ErrBusy
	}
	s.kind = kind
	s.vehicleID = vehicleID
	s.profile = facility.VehicleProfile{}
	s.slot = facility.SlotID{}
	s.sel = nil
	s.busy = true
	s.retries = 0
	s.startedAt = now
	s.result = Result{}
	s.phase = PhaseClassify
	s.log.Info("operation accepted", "kind", string(kind), "vehicle_id", vehicleID)
	return nil
}

// Busy reports whether an operation is in progress.
func (s *Sequencer) Busy() bool { return s.busy }

// Phase returns the current choreography phase.
func (s *Sequencer) Phase() Phase { return s.phase }

// Finished reports whether the last operation has concluded, in either
// direction, and its Result is available.
func (s *Sequencer) Finished() bool {
	return s.phase == PhaseDone || s.phase == PhaseFailed
}

// Result returns the outcome of the last finished operation.
func (s *Sequencer) Result() Result { return s.result }

// Platform returns the snapshot view of the shared platform.
func (s *Sequencer) Platform() PlatformState { return s.platform.State() }

// Abort abandons the current operation and stops all commanded motion.
// The slot table is left as-is; physical reconciliation is on the
// operator.
func (s *Sequencer) Abort() {
	if !s.busy {
		return
	}
	s.platform.Stop()
	if s.sel != nil {
		s.sel.Stop()
	}
	s.log.Warn("operation aborted", "kind", string(s.kind),
		"vehicle_id", s.vehicleID, "phase", string(s.phase))
	s.busy = false
	s.phase = PhaseIdle
}

// Step advances the choreography by one control period. A false safety
// verdict freezes platform motion and every phase deadline in place; the
// operation stays Busy until the verdict recovers or an Abort.
func (s *Sequencer) Step(now time.Time, dt time.Duration, in signals.Inputs, verdict safety.Verdict) {
	s.platform.SetLoad(in.PlatformLoadKg)

	if !verdict.OK {
		s.platform.Halt()
		if s.busy {
			s.deadline = s.deadline.Add(dt)
			s.dwellUntil = s.dwellUntil.Add(dt)
			s.retryAt = s.retryAt.Add(dt)
		}
		s.platform.Step(dt.Seconds())
		return
	}

	if s.busy {
		s.stepPhase(now, in)
	}
	s.platform.Step(dt.Seconds())
}

func (s *Sequencer) stepPhase(now time.Time, in signals.Inputs) {
	switch s.phase {
	case PhaseClassify:
		s.stepClassify(now, in)

	case PhaseSecuring:
		if s.platform.AtTarget() && in.PlatformLoadKg >= s.platCfg.MinLoadKg {
			s.platform.SetSecured(true)
			s.toPhase(PhaseToLiftBay, now, s.ctrl.TravelTimeoutSeconds)
			s.platform.MoveTo(s.liftBayXMm(), 0, 0)
			return
		}
		s.checkDeadline(now, CodeSecureTimeout)

	case PhaseToLiftBay:
		if s.platform.AtTarget() {
			s.toPhase(PhaseLoadLift, now, s.ctrl.HandoffTimeoutSeconds)
			s.dwellUntil = now.Add(handoffDwell)
			return
		}
		s.checkDeadline(now, CodeTravelTimeout)

	case PhaseLoadLift:
		// The handoff completes once the actuation dwell has elapsed
		// and the car is ready to accept the move.
		if !now.Before(s.dwellUntil) && s.sel.Available() {
			if s.kind == KindPark {
				s.sel.SetLoad(in.PlatformLoadKg)
			}
			if err := s.sel.MoveTo(s.slot.Level, now); err != nil {
				s.fail(CodeLiftFault, now)
				return
			}
			s.toPhase(PhaseLiftTravel, now, s.ctrl.TravelTimeoutSeconds)
			return
		}
		s.checkDeadline(now, CodeHandoffTimeout)

	case PhaseLiftTravel:
		if s.sel.RecoveryExhausted() {
			s.fail(CodeLiftFault, now)
			return
		}
		if s.sel.Done() {
			s.toPhase(PhaseUnloadLift, now, s.ctrl.HandoffTimeoutSeconds)
			s.dwellUntil = now.Add(handoffDwell)
			return
		}
		s.checkDeadline(now, CodeTravelTimeout)

	case PhaseUnloadLift:
		if !now.Before(s.dwellUntil) {
			s.sel.SetLoad(0)
			s.toPhase(PhaseToSlot, now, s.ctrl.TravelTimeoutSeconds)
			s.platform.MoveTo(s.liftBayXMm(), s.slotYMm(), 0)
			return
		}
		s.checkDeadline(now, CodeHandoffTimeout)

	case PhaseToSlot:
		if s.platform.AtTarget() {
			if s.kind == KindPark {
				s.toPhase(PhaseDeposit, now, s.ctrl.DepositTimeoutSeconds)
			} else {
				s.toPhase(PhasePickup, now, s.ctrl.SecureTimeoutSeconds)
			}
			s.platform.MoveTo(s.liftBayXMm(), s.slotYMm(), depositLowerMm)
			return
		}
		s.checkDeadline(now, CodeTravelTimeout)

	case PhaseDeposit:
		if s.platform.AtTarget() && in.PlatformLoadKg <= s.platCfg.EmptyLoadKg {
			s.platform.SetSecured(false)
			s.completeDeposit(now)
			return
		}
		s.checkDeadline(now, CodeDepositTimeout)

	case PhasePickup:
		if s.platform.AtTarget() && in.PlatformLoadKg >= s.platCfg.MinLoadKg {
			s.platform.SetSecured(true)
			s.toPhase(PhaseToExitBay, now, s.ctrl.TravelTimeoutSeconds)
			s.platform.MoveTo(s.liftBayXMm(), 0, 0)
			s.sel.SetLoad(in.PlatformLoadKg)
			if err := s.sel.MoveTo(1, now); err != nil {
				s.fail(CodeLiftFault, now)
			}
			return
		}
		s.checkDeadline(now, CodeSecureTimeout)

	case PhaseToExitBay:
		if s.sel.RecoveryExhausted() {
			s.fail(CodeLiftFault, now)
			return
		}
		if s.platform.AtTarget() && s.sel.Done() {
			s.sel.SetLoad(0)
			s.toPhase(PhaseDeliver, now, s.ctrl.DepositTimeoutSeconds)
			s.platform.MoveTo(float64(s.platCfg.ExitBayXMm), 0, 0)
			return
		}
		s.checkDeadline(now, CodeTravelTimeout)

	case PhaseDeliver:
		if s.platform.AtTarget() && in.PlatformLoadKg <= s.platCfg.EmptyLoadKg {
			s.platform.SetSecured(false)
			s.completeDelivery(now)
			return
		}
		s.checkDeadline(now, CodeDepositTimeout)

	case PhaseReturnHome:
		if s.platform.AtTarget() && (s.sel == nil || s.sel.Done() || s.sel.Available()) {
			s.busy = false
			s.phase = PhaseDone
			return
		}
		if now.After(s.deadline) {
			// The operation outcome is already recorded; a stuck
			// homing run only costs availability, not correctness.
			s.log.Warn("return home timed out", "kind", string(s.kind))
			s.platform.Stop()
			s.busy = false
			s.phase = PhaseDone
		}

	case PhaseRetryWait:
		if !now.Before(s.retryAt) {
			s.log.Info("retrying operation", "kind", string(s.kind),
				"vehicle_id", s.vehicleID, "attempt", s.retries)
			s.phase = PhaseClassify
		}
	}
}

// stepClassify runs phase (1): classification and resource selection.
// Validation and resource failures here are terminal and leave all state
// untouched.
func (s *Sequencer) stepClassify(now time.Time, in signals.Inputs) {
	if s.kind == KindPark {
		profile, err := facility.Classify(
			in.MeasuredLengthMm, in.MeasuredWidthMm, in.MeasuredHeightMm,
			in.MeasuredWeightKg, s.geom)
		if err != nil {
			code := CodeVehicleTooLarge
			if errors.Is(err, facility.ErrVehicleTooHeavy) {
				code = CodeVehicleTooHeavy
			}
			s.fail(code, now)
			return
		}
		s.profile = profile

		slot, err := s.grid.SelectSlot()
		if err != nil {
			s.fail(CodeNoSpace, now)
			return
		}
		s.slot = slot
	} else {
		slot, err := s.grid.FindVehicle(s.vehicleID)
		if err != nil {
			s.fail(CodeVehicleNotFound, now)
			return
		}
		s.slot = slot
	}

	target := s.geom.LevelPositionMm(s.slot.Level)
	s.sel = SelectLift(s.lifts, target)
	if s.sel == nil {
		s.fail(CodeNoLift, now)
		return
	}

	s.log.Info("resources selected", "kind", string(s.kind),
		"vehicle_id", s.vehicleID, "slot", s.slot.String(),
		"lift_id", s.sel.ID(), "class", string(s.profile.Class))

	if s.kind == KindPark {
		s.toPhase(PhaseSecuring, now, s.ctrl.SecureTimeoutSeconds)
		s.platform.MoveTo(float64(s.platCfg.EntryBayXMm), 0, 0)
	} else {
		s.toPhase(PhaseToLiftBay, now, s.ctrl.TravelTimeoutSeconds)
		s.platform.MoveTo(s.liftBayXMm(), 0, 0)
	}
}

// completeDeposit flips the slot free→occupied, reports success, and
// starts the homing run.
func (s *Sequencer) completeDeposit(now time.Time) {
	if err := s.grid.Occupy(s.slot, s.vehicleID, s.profile.Class, now); err != nil {
		// Selection reads the live table and only this component
		// writes it, so this cannot happen in normal operation.
		s.log.Error("deposit bookkeeping failed", "slot", s.slot.String(), "error", err)
		s.fail(CodeNoSpace, now)
		return
	}
	s.persistSlot()
	s.result = Result{
		Kind:      KindPark,
		VehicleID: s.vehicleID,
		Slot:      s.slot.String(),
		LiftID:    s.sel.ID(),
		Success:   true,
		Seconds:   now.Sub(s.startedAt).Seconds(),
		Retries:   s.retries,
	}
	s.log.Info("vehicle parked", "vehicle_id", s.vehicleID,
		"slot", s.slot.String(), "seconds", s.result.Seconds)
	s.goHome(now)
}

// completeDelivery flips the slot occupied→free at the exit bay and
// starts the homing run.
func (s *Sequencer) completeDelivery(now time.Time) {
	if err := s.grid.Vacate(s.slot); err != nil {
		s.log.Error("delivery bookkeeping failed", "slot", s.slot.String(), "error", err)
		s.fail(CodeVehicleNotFound, now)
		return
	}
	s.persistSlot()
	s.result = Result{
		Kind:      KindRetrieve,
		VehicleID: s.vehicleID,
		Slot:      s.slot.String(),
		LiftID:    s.sel.ID(),
		Success:   true,
		Seconds:   now.Sub(s.startedAt).Seconds(),
		Retries:   s.retries,
	}
	s.log.Info("vehicle retrieved", "vehicle_id", s.vehicleID,
		"slot", s.slot.String(), "seconds", s.result.Seconds)
	s.goHome(now)
}

func (s *Sequencer) goHome(now time.Time) {
	s.toPhase(PhaseReturnHome, now, s.ctrl.TravelTimeoutSeconds)
	s.platform.MoveTo(float64(s.platCfg.EntryBayXMm), 0, 0)
	if s.sel != nil && s.kind == KindPark {
		// Best effort; a busy or faulted lift recovers on its own.
		_ = s.sel.MoveTo(1, now)
	}
}

func (s *Sequencer) persistSlot() {
	if s.onSlotChange == nil {
		return
	}
	slot, err := s.grid.Slot(s.slot)
	if err != nil {
		return
	}
	s.onSlotChange(slot)
}

// fail records a phase failure. Timeout and equipment codes consume one
// retry and restart from classification after a fixed delay; validation
// and resource codes, or an exhausted budget, abandon the operation.
func (s *Sequencer) fail(code Code, now time.Time) {
	s.platform.Stop()
	if s.sel != nil && code != CodeLiftFault {
		s.sel.Stop()
	}

	if code.Retryable() && s.retries < s.ctrl.MaxRetries {
		s.retries++
		s.retryAt = now.Add(time.Duration(s.ctrl.RetryDelaySeconds) * time.Second)
		s.phase = PhaseRetryWait
		s.log.Warn("phase failed, will retry", "kind", string(s.kind),
			"vehicle_id", s.vehicleID, "code", int(code),
			"reason", code.String(), "attempt", s.retries)
		return
	}

	s.result = Result{
		Kind:      s.kind,
		VehicleID: s.vehicleID,
		Slot:      s.slot.String(),
		Success:   false,
		Code:      code,
		CodeText:  code.String(),
		Seconds:   now.Sub(s.startedAt).Seconds(),
		Retries:   s.retries,
	}
	if s.slot == (facility.SlotID{}) {
		s.result.Slot = ""
	}
	s.busy = false
	s.phase = PhaseFailed
	s.log.Error("operation failed", "kind", string(s.kind),
		"vehicle_id", s.vehicleID, "code", int(code), "reason", code.String())
}

func (s *Sequencer) toPhase(p Phase, now time.Time, timeoutSeconds int) {
	s.phase = p
	s.deadline = now.Add(time.Duration(timeoutSeconds) * time.Second)
}

func (s *Sequencer) checkDeadline(now time.Time, code Code) {
	if now.After(s.deadline) {
		s.fail(code, now)
	}
}

// liftBayXMm returns the platform X coordinate of the selected lift's
// loading bay.
func (s *Sequencer) liftBayXMm() float64 {
	return float64(s.sel.ID() * s.platCfg.LiftBaySpacingMm)
}

// slotYMm returns the platform Y coordinate of the target slot along the
// level corridor.
func (s *Sequencer) slotYMm() float64 {
	return float64((s.slot.Position - 1) * s.geom.SlotPitchMm)
}
