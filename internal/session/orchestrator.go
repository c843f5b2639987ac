package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/stackpark/stackpark-core/internal/facility"
	"github.com/stackpark/stackpark-core/internal/infrastructure/config"
	"github.com/stackpark/stackpark-core/internal/safety"
	"github.com/stackpark/stackpark-core/internal/signals"
	"github.com/stackpark/stackpark-core/internal/transfer"
)

// Logger is the logging interface used for session events.
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

// Orchestrator is the root state machine driving one customer
// transaction at a time: intake, payment, storage, and later retrieval
// and exit. It is the only component allowed to start a sequencer
// operation, and only when none is in progress, which is the system's
// sole mutual-exclusion discipline over the platform and the slot table.
type Orchestrator struct {
	cfg     config.SessionConfig
	log     Logger
	seq     *transfer.Sequencer
	stats   facility.Stats

	state    State
	deadline time.Time

	tx            *Transaction
	parkVehicleID string
	retrieveID    string

	resetRequested bool
	safeSince      time.Time
	emergencyAcked bool

	// onStatsChange is invoked after a completed transaction updates
	// the aggregate statistics, so the caller can persist them. May be
	// nil.
	onStatsChange func(facility.Stats)
}

// NewOrchestrator creates an orchestrator in Init; the fixed-duration
// startup health check begins on the first Step.
func NewOrchestrator(cfg config.SessionConfig, seq *transfer.Sequencer, stats facility.Stats) *Orchestrator {
	return &Orchestrator{
		cfg:   cfg,
		log:   noopLogger{},
		seq:   seq,
		stats: stats,
		state: StateInit,
	}
}

// SetLogger sets the logger for session events.
func (o *Orchestrator) SetLogger(log Logger) {
	if log != nil {
		o.log = log
	}
}

// SetOnStatsChange registers the persistence callback invoked whenever
// the aggregate statistics change.
func (o *Orchestrator) SetOnStatsChange(fn func(facility.Stats)) {
	o.onStatsChange = fn
}

// State returns the current session state.
func (o *Orchestrator) State() State { return o.state }

// Stats returns the aggregate statistics.
func (o *Orchestrator) Stats() facility.Stats { return o.stats }

// Transaction returns a copy of the active transaction, or nil.
func (o *Orchestrator) Transaction() *Transaction {
	if o.tx == nil {
		return nil
	}
	cp := *o.tx
	return &cp
}

// RequestPark names the vehicle for the next intake flow. Accepted
// during Idle, Payment, and Entry; without it the transaction gets a
// generated vehicle id when parking starts.
func (o *Orchestrator) RequestPark(vehicleID string) error {
	switch o.state {
	case StateIdle, StatePayment, StateEntry:
		o.parkVehicleID = vehicleID
		return nil
	case StateInit, StateMaintenance, StateEmergency:
		return ErrNotReady
	default:
		return ErrNotIdle
	}
}

// RequestRetrieve starts a retrieval for a stored vehicle. Accepted only
// while Idle; concurrent requests are rejected, never queued.
func (o *Orchestrator) RequestRetrieve(vehicleID string) error {
	if vehicleID == "" {
		return ErrEmptyVehicleID
	}
	switch o.state {
	case StateIdle:
	case StateInit, StateMaintenance, StateEmergency:
		return ErrNotReady
	default:
		return ErrNotIdle
	}
	o.retrieveID = vehicleID
	return nil
}

// Reset requests recovery out of Emergency. It takes effect only once
// the safety verdict has held OK for the confirmation delay.
func (o *Orchestrator) Reset() {
	o.resetRequested = true
}

// AcknowledgeEmergency marks the blocking emergency notice as seen by
// the operator. It does not change state.
func (o *Orchestrator) AcknowledgeEmergency() {
	o.emergencyAcked = true
}

// EmergencyAcknowledged reports whether the active emergency has been
// acknowledged.
func (o *Orchestrator) EmergencyAcknowledged() bool { return o.emergencyAcked }

// EnterMaintenance moves the system to Maintenance. All motion outputs
// stay disabled until ExitMaintenance. Rejected while a transaction is
// in flight.
func (o *Orchestrator) EnterMaintenance() error {
	if o.state != StateIdle {
		return ErrNotIdle
	}
	o.state = StateMaintenance
	o.log.Info("maintenance entered")
	return nil
}

// ExitMaintenance returns to Idle.
func (o *Orchestrator) ExitMaintenance() {
	if o.state == StateMaintenance {
		o.state = StateIdle
		o.log.Info("maintenance exited")
	}
}

// Step advances the session state machine by one control period.
func (o *Orchestrator) Step(now time.Time, in signals.Inputs, verdict safety.Verdict) {
	// A false verdict preempts every state except Maintenance, where
	// motion is already disabled.
	if !verdict.OK && o.state != StateEmergency && o.state != StateMaintenance && o.state != StateInit {
		o.enterEmergency()
		return
	}

	switch o.state {
	case StateInit:
		if o.deadline.IsZero() {
			o.deadline = now.Add(time.Duration(o.cfg.InitSeconds) * time.Second)
			o.log.Info("startup health check running")
		}
		if verdict.OK && now.After(o.deadline) {
			o.deadline = time.Time{}
			o.state = StateIdle
			o.log.Info("system ready")
		}

	case StateIdle:
		if o.retrieveID != "" {
			o.beginRetrieval(now)
			return
		}
		if in.VehiclePresent {
			o.state = StatePayment
			o.deadline = now.Add(time.Duration(o.cfg.PaymentTimeoutSeconds) * time.Second)
			o.log.Info("vehicle detected, awaiting payment")
		}

	case StatePayment:
		if in.PaymentConfirmed {
			o.state = StateEntry
			o.deadline = now.Add(time.Duration(o.cfg.EntryTimeoutSeconds) * time.Second)
			o.log.Info("payment confirmed, awaiting bay entry")
			return
		}
		if now.After(o.deadline) {
			o.log.Warn("payment timeout, returning to idle")
			o.toIdle()
		}

	case StateEntry:
		if in.VehicleInBay {
			o.beginParking(now)
			return
		}
		if now.After(o.deadline) {
			o.log.Warn("entry timeout, returning to idle")
			o.toIdle()
		}

	case StateParking:
		if o.seq.Finished() {
			o.finishOperation(now, o.seq.Result())
			return
		}
		if now.After(o.deadline) {
			// The whole park exceeded the hard safety budget; treat it
			// as a safety event rather than an ordinary failure.
			o.log.Error("parking exceeded hard timeout", "tx_id", o.txID())
			o.seq.Abort()
			o.failTransaction(now, 0, "hard timeout")
			o.enterEmergency()
		}

	case StateParked:
		if now.After(o.deadline) {
			o.toIdle()
		}

	case StateRetrieval:
		if o.seq.Finished() {
			o.finishOperation(now, o.seq.Result())
			return
		}
		if now.After(o.deadline) {
			o.log.Error("retrieval exceeded hard timeout", "tx_id", o.txID())
			o.seq.Abort()
			o.failTransaction(now, 0, "hard timeout")
			o.enterEmergency()
		}

	case StateExitSequence:
		if !in.ExitBayOccupied {
			o.log.Info("vehicle departed", "tx_id", o.txID())
			o.toIdle()
			return
		}
		if now.After(o.deadline) {
			o.log.Warn("exit timeout, returning to idle")
			o.toIdle()
		}

	case StateEmergency:
		o.stepEmergency(now, verdict)

	case StateMaintenance:
		// Exit only by explicit operator action.
	}
}

// beginParking opens a transaction and hands the vehicle to the
// sequencer. The hard timeout covers the entire park operation.
func (o *Orchestrator) beginParking(now time.Time) {
	vehicleID := o.parkVehicleID
	if vehicleID == "" {
		vehicleID = uuid.New().String()
	}
	o.tx = &Transaction{
		ID:        uuid.New().String(),
		VehicleID: vehicleID,
		Status:    TxPending,
		StartedAt: now,
	}
	if err := o.seq.Park(vehicleID, now); err != nil {
		o.log.Error("park rejected", "vehicle_id", vehicleID, "error", err)
		o.failTransaction(now, 0, err.Error())
		o.toIdle()
		return
	}
	o.tx.Status = TxParking
	o.state = StateParking
	o.deadline = now.Add(time.Duration(o.cfg.ParkingHardSeconds) * time.Second)
	o.log.Info("parking started", "tx_id", o.tx.ID, "vehicle_id", vehicleID)
}

func (o *Orchestrator) beginRetrieval(now time.Time) {
	vehicleID := o.retrieveID
	o.retrieveID = ""
	o.tx = &Transaction{
		ID:        uuid.New().String(),
		VehicleID: vehicleID,
		Status:    TxPending,
		StartedAt: now,
	}
	if err := o.seq.Retrieve(vehicleID, now); err != nil {
		o.log.Error("retrieve rejected", "vehicle_id", vehicleID, "error", err)
		o.failTransaction(now, 0, err.Error())
		o.toIdle()
		return
	}
	o.tx.Status = TxRetrieving
	o.state = StateRetrieval
	o.deadline = now.Add(time.Duration(o.cfg.ParkingHardSeconds) * time.Second)
	o.log.Info("retrieval started", "tx_id", o.tx.ID, "vehicle_id", vehicleID)
}

// finishOperation closes the transaction from the sequencer result and
// updates the statistics exactly once.
func (o *Orchestrator) finishOperation(now time.Time, res transfer.Result) {
	if o.tx != nil {
		o.tx.FinishedAt = now
		o.tx.AssignedSlot = res.Slot
	}

	if !res.Success {
		o.failTransaction(now, int(res.Code), res.CodeText)
		o.toIdle()
		return
	}

	switch res.Kind {
	case transfer.KindPark:
		o.stats.TotalParked++
		o.stats.ParkCycleSum += res.Seconds
		if o.tx != nil {
			o.tx.Status = TxParked
		}
		o.state = StateParked
		o.deadline = now.Add(time.Duration(o.cfg.ParkedDwellSeconds) * time.Second)
	case transfer.KindRetrieve:
		o.stats.TotalRetrieved++
		o.stats.RetrieveSum += res.Seconds
		if o.tx != nil {
			o.tx.Status = TxComplete
		}
		o.state = StateExitSequence
		o.deadline = now.Add(time.Duration(o.cfg.ExitTimeoutSeconds) * time.Second)
	}
	if o.onStatsChange != nil {
		o.onStatsChange(o.stats)
	}
}

func (o *Orchestrator) failTransaction(now time.Time, code int, text string) {
	if o.tx != nil {
		o.tx.Status = TxFailed
		o.tx.FailCode = code
		o.tx.FailText = text
		o.tx.FinishedAt = now
	}
	o.stats.TotalFailed++
	if o.onStatsChange != nil {
		o.onStatsChange(o.stats)
	}
}

func (o *Orchestrator) enterEmergency() {
	if o.state == StateEmergency {
		return
	}
	o.state = StateEmergency
	o.emergencyAcked = false
	o.resetRequested = false
	o.safeSince = time.Time{}
	o.log.Error("session forced to emergency")
}

// stepEmergency recovers to Init once Reset has been requested and the
// verdict has held OK for the confirmation delay.
func (o *Orchestrator) stepEmergency(now time.Time, verdict safety.Verdict) {
	if !verdict.OK {
		o.safeSince = time.Time{}
		return
	}
	if o.safeSince.IsZero() {
		o.safeSince = now
	}
	if !o.resetRequested {
		return
	}
	confirm := time.Duration(o.cfg.ResetConfirmSeconds) * time.Second
	if now.Sub(o.safeSince) >= confirm {
		o.resetRequested = false
		o.tx = nil
		o.parkVehicleID = ""
		o.retrieveID = ""
		o.deadline = time.Time{}
		o.state = StateInit
		o.log.Info("emergency cleared, reinitialising")
	}
}

// toIdle clears per-transaction flags and returns to Idle. The closed
// transaction stays visible in the snapshot until the next one opens.
func (o *Orchestrator) toIdle() {
	o.state = StateIdle
	o.parkVehicleID = ""
	o.deadline = time.Time{}
}

func (o *Orchestrator) txID() string {
	if o.tx == nil {
		return ""
	}
	return o.tx.ID
}
