package session

import "time"

// State is the top-level session state driving one customer transaction.
type State string

const (
	StateInit         State = "init"
	StateIdle         State = "idle"
	StatePayment      State = "payment"
	StateEntry        State = "entry"
	StateParking      State = "parking"
	StateParked       State = "parked"
	StateRetrieval    State = "retrieval"
	StateExitSequence State = "exit_sequence"
	StateMaintenance  State = "maintenance"
	StateEmergency    State = "emergency"
)

// TxStatus is the lifecycle status of one transaction.
type TxStatus string

const (
	TxPending    TxStatus = "pending"
	TxParking    TxStatus = "parking"
	TxParked     TxStatus = "parked"
	TxRetrieving TxStatus = "retrieving"
	TxComplete   TxStatus = "complete"
	TxFailed     TxStatus = "failed"
)

// Transaction tracks one customer park-or-retrieve request from
// acceptance to completion. Only the active transaction is held; history
// lives in the telemetry sink.
type Transaction struct {
	ID           string    `json:"id"`
	VehicleID    string    `json:"vehicle_id"`
	AssignedSlot string    `json:"assigned_slot,omitempty"`
	Status       TxStatus  `json:"status"`
	FailCode     int       `json:"fail_code,omitempty"`
	FailText     string    `json:"fail_text,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at,omitempty"`
}
