package lift

import (
	"math"
	"time"

	"github.com/stackpark/stackpark-core/internal/infrastructure/config"
)

// stopDwell is the settle time between reaching the coarse stop window
// and evaluating the residual error for fine positioning.
const stopDwell = 500 * time.Millisecond

// Logger is the logging interface used for motion events.
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

// Controller drives one vertical lift axis from its current position to
// a requested level using a bounded-acceleration trapezoidal profile.
//
// The controller is stepped once per control period from the control
// loop and never from another goroutine, so it carries no locks. Every
// wait is a state held across periods and checked against an explicit
// deadline; nothing blocks.
type Controller struct {
	id   int
	cfg  config.LiftConfig
	geom config.FacilityConfig
	log  Logger

	phase       Phase
	positionMm  float64
	speedMms    float64 // signed, positive = up
	targetMm    float64
	targetLevel int
	cruiseMms   float64
	loadKg      float64

	busy bool
	done bool

	fault   FaultCode
	retries int

	moveDeadline  time.Time
	phaseDeadline time.Time
	retryAt       time.Time

	manualDir   JogDirection
	manualSpeed float64

	// Diagnostics, persisted via facility.LiftCounters.
	faultCount     int64
	operatingAccum float64 // seconds with nonzero speed
}

// NewController creates an idle controller for lift id, parked at the
// ground datum.
func NewController(id int, cfg config.LiftConfig, geom config.FacilityConfig) *Controller {
	return &Controller{
		id:    id,
		cfg:   cfg,
		geom:  geom,
		log:   noopLogger{},
		phase: PhaseIdle,
	}
}

// SetLogger sets the logger for motion events.
func (c *Controller) SetLogger(log Logger) {
	if log != nil {
		c.log = log
	}
}

// RestoreCounters seeds the diagnostic counters from persisted state.
func (c *Controller) RestoreCounters(operatingSeconds, faultCount int64) {
	c.operatingAccum = float64(operatingSeconds)
	c.faultCount = faultCount
}

// MoveTo accepts a movement command to the given storage level.
//
// Returns ErrInvalidLevel for a level outside [1, L], ErrBusy while a
// move is in flight, and ErrFaulted when the recovery budget is spent.
// If the car is already within position tolerance of the target the
// command completes immediately (Done reports true, no motion).
func (c *Controller) MoveTo(level int, now time.Time) error {
	if level < 1 || level > c.geom.Levels {
		return ErrInvalidLevel
	}
	if c.busy {
		return ErrBusy
	}
	if c.phase == PhaseFault {
		return ErrFaulted
	}
	if c.phase == PhaseManual {
		return ErrNotIdle
	}

	target := c.geom.LevelPositionMm(level)
	c.targetLevel = level
	c.targetMm = target
	c.done = false

	if math.Abs(target-c.positionMm) <= c.cfg.PositionToleranceMm {
		c.done = true
		c.log.Debug("move within tolerance, no-op", "lift_id", c.id, "level", level)
		return nil
	}

	c.retries = 0
	c.beginMove(now)
	c.log.Info("move accepted", "lift_id", c.id, "level", level, "target_mm", target)
	return nil
}

// beginMove (re)starts the motion sequence toward the current target.
func (c *Controller) beginMove(now time.Time) {
	distance := math.Abs(c.targetMm - c.positionMm)
	c.cruiseMms = c.cfg.MaxSpeedMms
	if distance <= c.cfg.LongTravelMm {
		c.cruiseMms = c.cfg.MaxSpeedMms / 2
	}
	c.busy = true
	c.done = false
	c.fault = FaultNone
	c.phase = PhasePreparingDoors
	c.moveDeadline = now.Add(time.Duration(c.cfg.MoveTimeoutSeconds) * time.Second)
	c.phaseDeadline = now.Add(time.Duration(c.cfg.DoorCycleSeconds) * time.Second)
}

// Stop aborts any in-progress motion and returns to Idle. A faulted lift
// stays faulted; use Reset.
func (c *Controller) Stop() {
	c.speedMms = 0
	if c.phase != PhaseFault {
		c.phase = PhaseIdle
	}
	c.busy = false
	c.manualDir = JogStop
}

// Hold freezes the controller for one held control period: the speed
// output is zeroed and every pending deadline shifts forward by dt, so
// an in-flight move resumes where it left off once stepping continues.
// Used by the operator halt; contrast Stop, which aborts the move.
func (c *Controller) Hold(dt time.Duration) {
	c.speedMms = 0
	if c.busy || c.phase == PhaseFault {
		c.moveDeadline = c.moveDeadline.Add(dt)
		c.phaseDeadline = c.phaseDeadline.Add(dt)
		c.retryAt = c.retryAt.Add(dt)
	}
}

// Reset clears a fault and the retry budget, returning the lift to
// service.
func (c *Controller) Reset() {
	c.speedMms = 0
	c.phase = PhaseIdle
	c.fault = FaultNone
	c.retries = 0
	c.busy = false
	c.done = false
	c.log.Info("lift reset", "lift_id", c.id)
}

// Jog enters manual mode and applies an operator-commanded direction and
// speed, bypassing target-seeking. End-of-travel limits still apply.
// Jog(JogStop, 0) leaves manual mode.
func (c *Controller) Jog(dir JogDirection, speedMms float64) error {
	if dir == JogStop {
		if c.phase == PhaseManual {
			c.phase = PhaseIdle
			c.speedMms = 0
			c.manualDir = JogStop
		}
		return nil
	}
	if c.phase != PhaseIdle && c.phase != PhaseManual && c.phase != PhaseDone {
		if c.phase == PhaseFault {
			return ErrFaulted
		}
		return ErrNotIdle
	}
	if speedMms <= 0 {
		return ErrInvalidSpeed
	}
	if speedMms > c.cfg.MaxSpeedMms {
		speedMms = c.cfg.MaxSpeedMms
	}
	c.phase = PhaseManual
	c.manualDir = dir
	c.manualSpeed = speedMms
	c.busy = false
	return nil
}

// SetLoad updates the measured car load. Loads above the rated maximum
// fault the lift on the next Step.
func (c *Controller) SetLoad(kg float64) {
	c.loadKg = kg
}

// Step advances the controller by one control period.
//
// A false safetyOK zeroes the speed output in this same period,
// whatever the current phase, and latches a safety fault until the
// verdict recovers and the retry budget allows a re-attempt.
func (c *Controller) Step(now time.Time, dt time.Duration, safetyOK bool) {
	if !safetyOK {
		c.speedMms = 0
		if c.busy || c.phase == PhaseManual {
			c.enterFault(FaultSafety, now)
		}
		return
	}

	if c.loadKg > c.cfg.RatedLoadKg && (c.busy || c.phase == PhaseManual) {
		c.enterFault(FaultOverload, now)
		return
	}

	switch c.phase {
	case PhaseIdle:
		c.speedMms = 0

	case PhaseManual:
		c.stepManual(dt)

	case PhaseFault:
		c.stepFaultRecovery(now)

	case PhaseDone:
		c.speedMms = 0
		c.phase = PhaseIdle

	default:
		c.stepMotion(now, dt)
	}

	c.integrate(dt)
}

// stepManual applies the operator-commanded speed subject to
// end-of-travel limits.
func (c *Controller) stepManual(dt time.Duration) {
	_ = dt
	speed := float64(c.manualDir) * c.manualSpeed
	if (c.positionMm <= 0 && speed < 0) ||
		(c.positionMm >= c.geom.TravelMm() && speed > 0) {
		speed = 0
	}
	c.speedMms = speed
}

// stepFaultRecovery re-attempts the failed move after the backoff delay,
// up to the automatic recovery budget. Beyond that an external Reset is
// required.
func (c *Controller) stepFaultRecovery(now time.Time) {
	c.speedMms = 0
	if c.retries >= c.cfg.MaxAutoRecoveryCycles {
		return
	}
	if c.targetLevel == 0 || now.Before(c.retryAt) {
		return
	}
	c.retries++
	retries := c.retries
	c.beginMove(now)
	c.retries = retries
	c.log.Warn("fault auto-recovery", "lift_id", c.id, "attempt", c.retries, "level", c.targetLevel)
}

// stepMotion runs the trapezoidal profile phases.
func (c *Controller) stepMotion(now time.Time, dt time.Duration) {
	if now.After(c.moveDeadline) {
		c.enterFault(FaultMoveTimeout, now)
		return
	}

	dts := dt.Seconds()
	err := c.targetMm - c.positionMm
	remaining := math.Abs(err)
	dir := 1.0
	if err < 0 {
		dir = -1
	}

	switch c.phase {
	case PhasePreparingDoors:
		c.speedMms = 0
		if now.After(c.phaseDeadline.Add(time.Duration(c.cfg.DoorTimeoutSeconds) * time.Second)) {
			c.enterFault(FaultDoorTimeout, now)
			return
		}
		if !now.Before(c.phaseDeadline) {
			c.phase = PhaseAccelerating
		}

	case PhaseAccelerating, PhaseCruising, PhaseDecelerating:
		if remaining <= c.cfg.PositionToleranceMm {
			c.speedMms = 0
			c.phase = PhaseStopping
			c.phaseDeadline = now.Add(stopDwell)
			return
		}

		mag := math.Abs(c.speedMms)
		stopping := mag * mag / (2 * c.cfg.DecelMms2)

		switch {
		case remaining <= stopping:
			c.phase = PhaseDecelerating
			mag -= c.cfg.DecelMms2 * dts
			if mag < c.cfg.MinSpeedMms {
				mag = c.cfg.MinSpeedMms
			}
		case c.phase == PhaseDecelerating:
			// Past the braking point once; keep decelerating to the
			// floor rather than oscillating back to cruise.
			mag -= c.cfg.DecelMms2 * dts
			if mag < c.cfg.MinSpeedMms {
				mag = c.cfg.MinSpeedMms
			}
		case mag < c.cruiseMms:
			c.phase = PhaseAccelerating
			mag += c.cfg.AccelMms2 * dts
			if mag >= c.cruiseMms {
				mag = c.cruiseMms
				c.phase = PhaseCruising
			}
		default:
			c.phase = PhaseCruising
			mag = c.cruiseMms
		}
		c.speedMms = dir * mag

	case PhaseStopping:
		c.speedMms = 0
		if now.Before(c.phaseDeadline) {
			return
		}
		if remaining > c.cfg.FineToleranceMm {
			c.phase = PhaseFinePositioning
			c.phaseDeadline = now.Add(time.Duration(c.cfg.FineTimeoutSeconds) * time.Second)
			return
		}
		c.beginDoorCycle(now)

	case PhaseFinePositioning:
		if remaining <= c.cfg.FineToleranceMm || now.After(c.phaseDeadline) {
			// Accept the position unconditionally after the fine
			// timeout; the residual is within the coarse window.
			c.speedMms = 0
			c.beginDoorCycle(now)
			return
		}
		c.speedMms = dir * c.cfg.FineSpeedMms

	case PhaseDoorCycle:
		c.speedMms = 0
		if now.After(c.phaseDeadline.Add(time.Duration(c.cfg.DoorTimeoutSeconds) * time.Second)) {
			c.enterFault(FaultDoorTimeout, now)
			return
		}
		if !now.Before(c.phaseDeadline) {
			c.phase = PhaseDone
			c.busy = false
			c.done = true
			c.retries = 0
			c.log.Info("move complete", "lift_id", c.id, "level", c.targetLevel,
				"position_mm", c.positionMm)
		}
	}
}

func (c *Controller) beginDoorCycle(now time.Time) {
	c.phase = PhaseDoorCycle
	c.phaseDeadline = now.Add(time.Duration(c.cfg.DoorCycleSeconds) * time.Second)
}

// enterFault records the fault, zeroes motion, and schedules an
// automatic recovery attempt if budget remains.
func (c *Controller) enterFault(code FaultCode, now time.Time) {
	if c.phase == PhaseFault && c.fault == code {
		return
	}
	c.speedMms = 0
	c.phase = PhaseFault
	c.fault = code
	c.busy = false
	c.faultCount++
	c.retryAt = now.Add(time.Duration(c.cfg.RetryBackoffSeconds) * time.Second)
	c.log.Error("lift fault", "lift_id", c.id, "fault", code.String(), "retries", c.retries)
}

// integrate advances the simulated/encoder position by the commanded
// speed and enforces the travel envelope invariant
// 0 ≤ position ≤ (L−1)·levelHeight.
func (c *Controller) integrate(dt time.Duration) {
	if c.speedMms != 0 {
		c.operatingAccum += dt.Seconds()
	}
	c.positionMm += c.speedMms * dt.Seconds()
	if c.positionMm < 0 {
		c.positionMm = 0
		if c.speedMms < 0 {
			c.speedMms = 0
		}
	}
	if limit := c.geom.TravelMm(); c.positionMm > limit {
		c.positionMm = limit
		if c.speedMms > 0 {
			c.speedMms = 0
		}
	}
}

// ID returns the lift's identifier.
func (c *Controller) ID() int { return c.id }

// Busy reports whether a MoveTo is in flight (accept until Done or
// Fault).
func (c *Controller) Busy() bool { return c.busy }

// Done reports whether the last accepted MoveTo completed. Cleared by
// the next MoveTo.
func (c *Controller) Done() bool { return c.done }

// Faulted reports whether the lift is in the Fault phase.
func (c *Controller) Faulted() bool { return c.phase == PhaseFault }

// RecoveryExhausted reports whether the automatic recovery budget is
// spent and an external Reset is required.
func (c *Controller) RecoveryExhausted() bool {
	return c.phase == PhaseFault && c.retries >= c.cfg.MaxAutoRecoveryCycles
}

// Available reports whether the lift can accept a new movement command.
func (c *Controller) Available() bool {
	return !c.busy && c.phase != PhaseFault && c.phase != PhaseManual
}

// PositionMm returns the current shaft position.
func (c *Controller) PositionMm() float64 { return c.positionMm }

// SpeedMms returns the current commanded speed.
func (c *Controller) SpeedMms() float64 { return c.speedMms }

// Level returns the storage level nearest the current position.
func (c *Controller) Level() int {
	return int(math.Round(c.positionMm/float64(c.geom.LevelHeightMm))) + 1
}

// Counters returns the persistable diagnostic counters.
func (c *Controller) Counters() (operatingSeconds, faultCount int64) {
	return int64(c.operatingAccum), c.faultCount
}

// Status returns the snapshot view of this lift.
func (c *Controller) Status() Status {
	opSeconds, faults := c.Counters()
	return Status{
		ID:          c.id,
		Level:       c.Level(),
		PositionMm:  c.positionMm,
		TargetMm:    c.targetMm,
		SpeedMms:    c.speedMms,
		LoadKg:      c.loadKg,
		Mode:        c.phase.Mode(),
		Phase:       c.phase,
		Fault:       c.fault,
		FaultText:   c.fault.String(),
		Busy:        c.busy,
		Available:   c.Available(),
		FaultCount:  faults,
		OperatingS:  opSeconds,
		RetriesUsed: c.retries,
	}
}
