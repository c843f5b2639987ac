package safety

import (
	"time"

	"github.com/stackpark/stackpark-core/internal/infrastructure/config"
	"github.com/stackpark/stackpark-core/internal/signals"
)

// Logger is the logging interface the supervisor uses for state changes.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Supervisor aggregates interlock, fire, and personnel-zone signals into
// one safety verdict per control cycle and owns the safety state machine.
//
// It is stepped exclusively from the control loop and carries no locks;
// the verdict for period t is always computed before any actuator command
// for period t is emitted.
type Supervisor struct {
	cfg config.SafetyConfig
	log Logger

	state    State
	enabled  bool
	testMode bool

	// Reset handling: a requested reset must observe confirmCycles
	// consecutive clean cycles before it is honoured.
	resetRequested bool
	cleanCycles    int

	// Evacuation dwell bookkeeping.
	evacuationSince time.Time

	// Edge detection for counters.
	firePrev      bool
	violationPrev bool
	emergencyPrev bool

	counters Counters
	verdict  Verdict
}

// NewSupervisor creates a Supervisor in the Normal state.
func NewSupervisor(cfg config.SafetyConfig) *Supervisor {
	return &Supervisor{
		cfg:     cfg,
		log:     noopLogger{},
		state:   StateNormal,
		enabled: true,
	}
}

// SetLogger sets the logger for state transitions.
func (s *Supervisor) SetLogger(log Logger) {
	if log != nil {
		s.log = log
	}
}

// Evaluate recomputes the safety verdict from the raw inputs for this
// control period. It must be called exactly once per period, before any
// component emits an actuator command.
func (s *Supervisor) Evaluate(now time.Time, in signals.Inputs) Verdict {
	s.countEdges(in)

	prev := s.state
	s.state = s.nextState(now, in)
	if s.state != prev {
		s.log.Info("safety state changed", "from", string(prev), "to", string(s.state))
	}

	s.verdict = Verdict{
		OK:                 s.state == StateNormal && in.SubsystemsHealthy(),
		State:              s.state,
		EvacuationRequired: s.state == StateEvacuation,
	}
	return s.verdict
}

// nextState computes the state transition for one cycle.
func (s *Supervisor) nextState(now time.Time, in signals.Inputs) State {
	// Supervisor disabled: everything locks down until explicit
	// re-enable plus Reset.
	if !s.enabled {
		s.cleanCycles = 0
		return StateLockdown
	}

	// Fire escalates over everything, including an active Emergency.
	if in.FireActive() {
		if s.state != StateEvacuation {
			s.evacuationSince = now
		}
		s.cleanCycles = 0
		return StateEvacuation
	}

	// A broken stop chain forces Emergency, except while evacuating.
	if !in.StopChainIntact && s.state != StateEvacuation {
		s.cleanCycles = 0
		return StateEmergency
	}

	switch s.state {
	case StateEvacuation:
		// Evacuation holds for a minimum dwell and then requires an
		// explicit Reset; it exits to Maintenance, never to Normal.
		if s.resetRequested && now.Sub(s.evacuationSince) >= s.evacuationDwell() {
			s.resetRequested = false
			return StateMaintenance
		}
		return StateEvacuation

	case StateEmergency, StateAlarm:
		// Reset advances only after the mandatory confirmation delay,
		// and only while the stop chain is intact and no fire is active.
		if s.resetRequested && in.StopChainIntact && !in.FireActive() {
			s.cleanCycles++
			if s.cleanCycles >= s.cfg.ResetConfirmCycles {
				s.resetRequested = false
				s.cleanCycles = 0
				return StateNormal
			}
		} else {
			s.cleanCycles = 0
		}
		return s.state

	case StateLockdown:
		// Reached here only when re-enabled (the disabled branch above
		// returns early). Reset completes the exit.
		if s.resetRequested {
			s.resetRequested = false
			return StateNormal
		}
		return StateLockdown

	case StateMaintenance:
		// Exited only by explicit operator action (ExitMaintenance).
		return StateMaintenance

	case StateTest:
		if !s.testMode {
			return StateNormal
		}
		return StateTest

	default: // Normal, Warning
		if s.testMode {
			return StateTest
		}
		if !in.SubsystemsHealthy() {
			return StateAlarm
		}
		if in.ZoneViolation {
			// Zone violation with an intact stop chain is a warning.
			return StateWarning
		}
		return StateNormal
	}
}

// countEdges increments diagnostic counters on rising edges.
func (s *Supervisor) countEdges(in signals.Inputs) {
	fire := in.FireActive()
	if fire && !s.firePrev {
		s.counters.FireEvents++
	}
	s.firePrev = fire

	if in.ZoneViolation && !s.violationPrev {
		s.counters.ZoneViolations++
	}
	s.violationPrev = in.ZoneViolation

	emergency := !in.StopChainIntact || fire
	if emergency && !s.emergencyPrev {
		s.counters.Emergencies++
	}
	s.emergencyPrev = emergency
}

// Reset requests a transition out of Alarm, Emergency, Evacuation, or
// Lockdown. The transition happens only once the state machine's own
// conditions (confirmation delay, dwell time, intact interlocks) hold.
func (s *Supervisor) Reset() {
	s.resetRequested = true
	s.cleanCycles = 0
	s.log.Info("safety reset requested", "state", string(s.state))
}

// Disable takes the supervisor out of service; the next Evaluate enters
// Lockdown. Used for commissioning only.
func (s *Supervisor) Disable() {
	s.enabled = false
	s.log.Warn("safety supervisor disabled")
}

// Enable returns the supervisor to service. Exit from Lockdown still
// requires a Reset.
func (s *Supervisor) Enable() {
	s.enabled = true
	s.log.Info("safety supervisor enabled")
}

// SetTestMode toggles the Test state used during commissioning. Motion
// remains inhibited while testing (the verdict is never OK outside
// Normal).
func (s *Supervisor) SetTestMode(on bool) {
	s.testMode = on
}

// ExitMaintenance returns from Maintenance to Normal. Explicit operator
// action, honoured only when the stop chain is intact.
func (s *Supervisor) ExitMaintenance(in signals.Inputs) bool {
	if s.state != StateMaintenance || !in.StopChainIntact || in.FireActive() {
		return false
	}
	s.state = StateNormal
	s.log.Info("maintenance complete, returning to normal")
	return true
}

// State returns the current safety state.
func (s *Supervisor) State() State {
	return s.state
}

// Verdict returns the verdict computed by the most recent Evaluate.
func (s *Supervisor) Verdict() Verdict {
	return s.verdict
}

// Counters returns the diagnostic counters.
func (s *Supervisor) Counters() Counters {
	return s.counters
}

func (s *Supervisor) evacuationDwell() time.Duration {
	return time.Duration(s.cfg.EvacuationDwellSeconds) * time.Second
}
