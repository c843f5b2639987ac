package lift

// Phase is the internal motion phase of one lift.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhasePreparingDoors  Phase = "preparing_doors"
	PhaseAccelerating    Phase = "accelerating"
	PhaseCruising        Phase = "cruising"
	PhaseDecelerating    Phase = "decelerating"
	PhaseStopping        Phase = "stopping"
	PhaseFinePositioning Phase = "fine_positioning"
	PhaseDoorCycle       Phase = "door_cycle"
	PhaseDone            Phase = "done"
	PhaseManual          Phase = "manual"
	PhaseFault           Phase = "fault"
)

// Mode is the coarse operating mode surfaced in the state snapshot.
type Mode string

const (
	ModeIdle            Mode = "idle"
	ModeMoving          Mode = "moving"
	ModeFinePositioning Mode = "fine_positioning"
	ModeManual          Mode = "manual"
	ModeFault           Mode = "fault"
)

// Mode maps the internal phase onto the snapshot-level mode.
func (p Phase) Mode() Mode {
	switch p {
	case PhaseManual:
		return ModeManual
	case PhaseFault:
		return ModeFault
	case PhaseFinePositioning:
		return ModeFinePositioning
	case PhaseIdle, PhaseDone:
		return ModeIdle
	default:
		return ModeMoving
	}
}

// FaultCode identifies why a lift entered the Fault phase. Codes are
// stable; the dashboard keys messages off them.
type FaultCode int

const (
	FaultNone FaultCode = iota
	FaultMoveTimeout
	FaultDoorTimeout
	FaultOverload
	FaultSafety
)

// String returns the symbolic name for the fault code.
func (f FaultCode) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultMoveTimeout:
		return "move_timeout"
	case FaultDoorTimeout:
		return "door_timeout"
	case FaultOverload:
		return "overload"
	case FaultSafety:
		return "safety"
	default:
		return "unknown"
	}
}

// JogDirection is the operator-commanded direction in manual mode.
type JogDirection int

const (
	JogDown JogDirection = -1
	JogStop JogDirection = 0
	JogUp   JogDirection = 1
)

// Status is the per-lift view exposed in the read-only state snapshot.
type Status struct {
	ID          int       `json:"id"`
	Level       int       `json:"level"`
	PositionMm  float64   `json:"position_mm"`
	TargetMm    float64   `json:"target_mm"`
	SpeedMms    float64   `json:"speed_mms"`
	LoadKg      float64   `json:"load_kg"`
	Mode        Mode      `json:"mode"`
	Phase       Phase     `json:"phase"`
	Fault       FaultCode `json:"fault"`
	FaultText   string    `json:"fault_text"`
	Busy        bool      `json:"busy"`
	Available   bool      `json:"available"`
	FaultCount  int64     `json:"fault_count"`
	OperatingS  int64     `json:"operating_seconds"`
	RetriesUsed int       `json:"retries_used"`
}
