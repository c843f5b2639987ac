package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stackpark/stackpark-core/internal/facility"
	"github.com/stackpark/stackpark-core/internal/infrastructure/config"
	"github.com/stackpark/stackpark-core/internal/infrastructure/influxdb"
	"github.com/stackpark/stackpark-core/internal/infrastructure/logging"
	"github.com/stackpark/stackpark-core/internal/infrastructure/mqtt"
	"github.com/stackpark/stackpark-core/internal/lift"
	"github.com/stackpark/stackpark-core/internal/safety"
	"github.com/stackpark/stackpark-core/internal/session"
	"github.com/stackpark/stackpark-core/internal/signals"
	"github.com/stackpark/stackpark-core/internal/transfer"
)

const (
	// snapshotEveryCycles is the snapshot publish interval, in control
	// cycles (5 × 100 ms = 2 Hz).
	snapshotEveryCycles = 5

	// persistEveryCycles is the counter persistence interval, in control
	// cycles (600 × 100 ms = 1 min).
	persistEveryCycles = 600

	// persistTimeout bounds each persistence write issued from the
	// control loop.
	persistTimeout = 2 * time.Second
)

// Core wires the four control components together and runs them on a
// single fixed-period loop.
//
// Evaluation order within a cycle is fixed: commands are drained, inputs
// are sampled once, the safety verdict is computed, then session,
// transfer, and lifts step in that order. The verdict for period t is
// therefore always computed before any actuator command for period t is
// emitted, and no component ever acts on a verdict older than one
// period. All mutable core state is touched only on the loop goroutine.
type Core struct {
	cfg   *config.Config
	log   *logging.Logger
	store *signals.Store
	grid  *facility.Grid
	repo  facility.Repository

	sup   *safety.Supervisor
	lifts []*lift.Controller
	seq   *transfer.Sequencer
	orch  *session.Orchestrator

	mqttClient *mqtt.Client
	influx     *influxdb.Client
	topics     mqtt.Topics

	commands chan Command

	stopped bool
	estop   bool

	sequence        uint64
	lastVerdict     safety.Verdict
	lastSafetyState safety.State
	resultSeen      bool
}

// New assembles the control core over a loaded grid and repository.
func New(cfg *config.Config, log *logging.Logger, store *signals.Store,
	grid *facility.Grid, repo facility.Repository, stats facility.Stats) *Core {

	lifts := make([]*lift.Controller, cfg.Lifts.Count)
	for i := range lifts {
		id := i + 1
		lifts[i] = lift.NewController(id, cfg.Lifts, cfg.Facility)
		lifts[i].SetLogger(log.With("component", "lift", "lift_id", id))
	}

	sup := safety.NewSupervisor(cfg.Safety)
	sup.SetLogger(log.With("component", "safety"))

	seq := transfer.NewSequencer(cfg, grid, lifts)
	seq.SetLogger(log.With("component", "transfer"))

	orch := session.NewOrchestrator(cfg.Session, seq, stats)
	orch.SetLogger(log.With("component", "session"))

	c := &Core{
		cfg:             cfg,
		log:             log.With("component", "core"),
		store:           store,
		grid:            grid,
		repo:            repo,
		sup:             sup,
		lifts:           lifts,
		seq:             seq,
		orch:            orch,
		commands:        make(chan Command, commandQueueSize),
		lastSafetyState: safety.StateNormal,
	}

	seq.SetOnSlotChange(c.persistSlot)
	orch.SetOnStatsChange(c.persistStats)
	return c
}

// RestoreLiftCounters seeds the per-lift diagnostics from persisted
// state. Called once before Run.
func (c *Core) RestoreLiftCounters(counters []facility.LiftCounters) {
	for _, rec := range counters {
		if rec.LiftID >= 1 && rec.LiftID <= len(c.lifts) {
			c.lifts[rec.LiftID-1].RestoreCounters(rec.OperatingSeconds, rec.FaultCount)
		}
	}
}

// AttachMQTT connects the command and field-input topics to the core.
func (c *Core) AttachMQTT(client *mqtt.Client) error {
	c.mqttClient = client

	qos := byte(c.cfg.MQTT.QoS)
	if err := client.Subscribe(c.topics.CoreCommand(), qos, c.handleCommandMessage); err != nil {
		return err
	}
	if err := client.Subscribe(c.topics.AllFieldInputs(), qos, c.handleFieldInputs); err != nil {
		return err
	}

	// Re-subscription after reconnect is handled by the client; refresh
	// the retained snapshot so late subscribers see current state.
	client.SetOnConnect(func() {
		c.log.Info("mqtt connected, snapshot refresh on next cycle")
	})
	return nil
}

// AttachInflux enables the optional telemetry sink.
func (c *Core) AttachInflux(client *influxdb.Client) {
	c.influx = client
}

// handleCommandMessage decodes an operator command and queues it for the
// next cycle. Runs on a paho goroutine.
func (c *Core) handleCommandMessage(_ string, payload []byte) error {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return err
	}
	return c.Submit(cmd)
}

// handleFieldInputs merges a partial field-input update into the store.
// Runs on a paho goroutine; the loop samples the store once per cycle.
func (c *Core) handleFieldInputs(_ string, payload []byte) error {
	return c.store.ApplyJSON(payload)
}

// Lift returns the controller for a 1-based lift id, or nil.
func (c *Core) Lift(id int) *lift.Controller {
	if id < 1 || id > len(c.lifts) {
		return nil
	}
	return c.lifts[id-1]
}

// Grid returns the slot grid.
func (c *Core) Grid() *facility.Grid { return c.grid }

// Sequencer returns the transfer sequencer.
func (c *Core) Sequencer() *transfer.Sequencer { return c.seq }

// Orchestrator returns the session orchestrator.
func (c *Core) Orchestrator() *session.Orchestrator { return c.orch }

// Supervisor returns the safety supervisor.
func (c *Core) Supervisor() *safety.Supervisor { return c.sup }

// Step advances the whole core by one control period.
func (c *Core) Step(now time.Time, dt time.Duration) {
	c.sequence++

	in := c.store.Snapshot()
	c.drainCommands(in)
	if c.estop {
		// The latched operator e-stop is indistinguishable from a
		// physical stop chain break until Reset.
		in.StopChainIntact = false
	}

	verdict := c.sup.Evaluate(now, in)
	c.lastVerdict = verdict
	c.alertOnStateChange(verdict)

	if c.stopped {
		// Halted by the stop command: zero all motion without faulting
		// and shift every pending deadline, so held operations resume
		// where they left off on start.
		held := verdict
		held.OK = false
		c.seq.Step(now, dt, in, held)
		for _, l := range c.lifts {
			l.Hold(dt)
		}
		return
	}

	c.orch.Step(now, in, verdict)
	c.seq.Step(now, dt, in, verdict)
	for _, l := range c.lifts {
		l.Step(now, dt, verdict.OK)
	}

	c.recordResult()
}

// alertOnStateChange publishes a safety alert whenever the supervisor
// changes state.
func (c *Core) alertOnStateChange(verdict safety.Verdict) {
	if verdict.State == c.lastSafetyState {
		return
	}
	c.lastSafetyState = verdict.State
	c.log.Warn("safety state changed", "state", string(verdict.State))
	if c.mqttClient == nil {
		return
	}
	payload, err := json.Marshal(verdict)
	if err != nil {
		return
	}
	topic := c.topics.CoreAlert(string(verdict.State))
	if err := c.mqttClient.Publish(topic, payload, byte(c.cfg.MQTT.QoS), false); err != nil {
		c.log.Warn("publishing safety alert", "error", err)
	}
}

// recordResult emits telemetry and the transaction event once per
// finished operation.
func (c *Core) recordResult() {
	if c.seq.Busy() {
		c.resultSeen = false
		return
	}
	if !c.seq.Finished() || c.resultSeen {
		return
	}
	c.resultSeen = true
	res := c.seq.Result()

	if c.influx != nil {
		c.influx.WriteTransactionMetric(string(res.Kind), res.Success, res.Seconds)
	}
	if c.mqttClient == nil {
		return
	}
	tx := c.orch.Transaction()
	if tx == nil {
		return
	}
	event := "completed"
	if !res.Success {
		event = "failed"
	}
	payload, err := json.Marshal(tx)
	if err != nil {
		return
	}
	topic := c.topics.CoreTransaction(tx.ID, event)
	if err := c.mqttClient.Publish(topic, payload, byte(c.cfg.MQTT.QoS), false); err != nil {
		c.log.Warn("publishing transaction event", "error", err)
	}
}

// Run executes the fixed-period control loop until the context is
// cancelled, then persists the durable counters.
func (c *Core) Run(ctx context.Context) error {
	period := c.cfg.Period()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	c.log.Info("control loop started",
		"period_ms", c.cfg.Control.PeriodMs,
		"levels", c.cfg.Facility.Levels,
		"positions", c.cfg.Facility.Positions,
		"lifts", c.cfg.Lifts.Count)

	for {
		select {
		case <-ctx.Done():
			c.log.Info("control loop stopping")
			c.persistCounters()
			return nil

		case now := <-ticker.C:
			start := time.Now()
			c.Step(now, period)

			if c.influx != nil {
				c.influx.WriteCycleMetric(c.sequence, time.Since(start).Microseconds())
				for _, l := range c.lifts {
					st := l.Status()
					c.influx.WriteLiftMetric(st.ID, st.PositionMm, st.SpeedMms, st.LoadKg)
				}
			}
			if c.sequence%snapshotEveryCycles == 0 {
				c.publishSnapshot(now)
			}
			if c.sequence%persistEveryCycles == 0 {
				c.persistCounters()
			}
		}
	}
}

// persistSlot writes one slot's occupancy change through the repository.
// Invoked from the loop goroutine via the sequencer callback.
func (c *Core) persistSlot(s facility.Slot) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := c.repo.SaveSlot(ctx, s); err != nil {
		c.log.Error("persisting slot", "slot", s.ID.String(), "error", err)
	}
}

// persistStats writes the aggregate statistics after each completed
// transaction.
func (c *Core) persistStats(stats facility.Stats) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := c.repo.SaveStats(ctx, stats); err != nil {
		c.log.Error("persisting stats", "error", err)
	}
}

// persistCounters writes every lift's operating-hour and fault counters.
func (c *Core) persistCounters() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	for _, l := range c.lifts {
		opSeconds, faults := l.Counters()
		rec := facility.LiftCounters{
			LiftID:           l.ID(),
			OperatingSeconds: opSeconds,
			FaultCount:       faults,
		}
		if err := c.repo.SaveLiftCounters(ctx, rec); err != nil {
			c.log.Error("persisting lift counters", "lift_id", l.ID(), "error", err)
		}
	}
}
