package safety

// State is the safety supervisor's operating state.
type State string

const (
	StateNormal      State = "normal"
	StateWarning     State = "warning"
	StateAlarm       State = "alarm"
	StateEmergency   State = "emergency"
	StateEvacuation  State = "evacuation"
	StateLockdown    State = "lockdown"
	StateTest        State = "test"
	StateMaintenance State = "maintenance"
)

// EmergencyActive reports whether the state forbids all actuator motion.
func (s State) EmergencyActive() bool {
	switch s {
	case StateEmergency, StateEvacuation, StateLockdown:
		return true
	default:
		return false
	}
}

// Verdict is the per-cycle safety summary consulted by every
// actuator-commanding component. It is recomputed from raw interlock
// inputs at the start of each control period and never persisted.
type Verdict struct {
	// OK is true iff the state is Normal and every monitored subsystem
	// reports healthy. A false OK means: force all motion outputs to
	// zero/safe now, regardless of component state.
	OK bool `json:"ok"`

	State State `json:"state"`

	// EvacuationRequired gates personnel-facing signalling.
	EvacuationRequired bool `json:"evacuation_required"`
}

// Counters are the supervisor's diagnostic counters. They are the only
// state the supervisor retains beyond its state machine.
type Counters struct {
	Emergencies    int64 `json:"emergencies"`
	FireEvents     int64 `json:"fire_events"`
	ZoneViolations int64 `json:"zone_violations"`
}
