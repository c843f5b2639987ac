package transfer

// Kind identifies the direction of the active operation.
type Kind string

const (
	KindPark     Kind = "park"
	KindRetrieve Kind = "retrieve"
)

// Phase is the step of the transfer choreography currently executing.
// Park runs the phases top to bottom; Retrieve runs the structural
// mirror (pickup at the slot, deliver at the exit bay).
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseClassify   Phase = "classify"
	PhaseSecuring   Phase = "securing"
	PhaseToLiftBay  Phase = "to_lift_bay"
	PhaseLoadLift   Phase = "load_lift"
	PhaseLiftTravel Phase = "lift_travel"
	PhaseUnloadLift Phase = "unload_lift"
	PhaseToSlot     Phase = "to_slot"
	PhaseDeposit    Phase = "deposit"
	PhasePickup     Phase = "pickup"
	PhaseToExitBay  Phase = "to_exit_bay"
	PhaseDeliver    Phase = "deliver"
	PhaseReturnHome Phase = "return_home"
	PhaseRetryWait  Phase = "retry_wait"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// PlatformMode is the coarse platform state exposed in the snapshot.
type PlatformMode string

const (
	PlatformIdle   PlatformMode = "idle"
	PlatformMoving PlatformMode = "moving"
	PlatformHeld   PlatformMode = "held"
)

// PlatformState is the snapshot view of the shared transfer platform.
type PlatformState struct {
	XMm            float64      `json:"x_mm"`
	YMm            float64      `json:"y_mm"`
	ZMm            float64      `json:"z_mm"`
	TargetXMm      float64      `json:"target_x_mm"`
	TargetYMm      float64      `json:"target_y_mm"`
	TargetZMm      float64      `json:"target_z_mm"`
	Mode           PlatformMode `json:"mode"`
	LoadKg         float64      `json:"load_kg"`
	VehicleSecured bool         `json:"vehicle_secured"`
}

// Result is the outcome of a finished operation, kept until the next
// Park or Retrieve is accepted.
type Result struct {
	Kind      Kind   `json:"kind"`
	VehicleID string `json:"vehicle_id"`
	Slot      string `json:"slot,omitempty"`
	LiftID    int    `json:"lift_id,omitempty"`
	Success   bool   `json:"success"`
	Code      Code   `json:"code,omitempty"`
	CodeText  string `json:"code_text,omitempty"`
	Seconds   float64 `json:"seconds"`
	Retries   int    `json:"retries"`
}
