package core

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stackpark/stackpark-core/internal/facility"
	"github.com/stackpark/stackpark-core/internal/lift"
	"github.com/stackpark/stackpark-core/internal/safety"
	"github.com/stackpark/stackpark-core/internal/signals"
)

// commandQueueSize bounds the number of operator commands waiting for
// the next control cycle.
const commandQueueSize = 32

// ErrQueueFull is returned when the command queue cannot accept another
// command before the next cycle drains it.
var ErrQueueFull = errors.New("core: command queue full")

// Command actions accepted on the command surface.
const (
	ActionStart            = "start"
	ActionStop             = "stop"
	ActionEmergencyStop    = "emergencyStop"
	ActionReset            = "reset"
	ActionJogLift          = "jogLift"
	ActionRequestPark      = "requestPark"
	ActionRequestRetrieve  = "requestRetrieve"
	ActionAckEmergency     = "acknowledgeEmergency"
	ActionEnterMaintenance = "enterMaintenance"
	ActionExitMaintenance  = "exitMaintenance"
	ActionTestMode         = "testMode"
	ActionLockSlot         = "lockSlot"
	ActionUnlockSlot       = "unlockSlot"
)

// Command is one discrete operator command. Commands are queued and
// applied at the start of the next control cycle, on the loop goroutine,
// which preserves the single-writer discipline over all core state.
type Command struct {
	RequestID string  `json:"request_id,omitempty"`
	Action    string  `json:"action"`
	LiftID    int     `json:"lift_id,omitempty"`
	Direction string  `json:"direction,omitempty"`
	SpeedMms  float64 `json:"speed_mms,omitempty"`
	VehicleID string  `json:"vehicle_id,omitempty"`
	Level     int     `json:"level,omitempty"`
	Position  int     `json:"position,omitempty"`
	Enable    bool    `json:"enable,omitempty"`
}

// CommandResult is the acknowledgement published for each applied
// command.
type CommandResult struct {
	RequestID string `json:"request_id,omitempty"`
	Action    string `json:"action"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

// Submit queues a command for the next control cycle. Safe for
// concurrent use; never blocks the caller.
func (c *Core) Submit(cmd Command) error {
	select {
	case c.commands <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// drainCommands applies every queued command, in arrival order, before
// the cycle's state machines run. Commands that gate on interlocks see
// this cycle's sampled inputs.
func (c *Core) drainCommands(in signals.Inputs) {
	for {
		select {
		case cmd := <-c.commands:
			res := c.apply(cmd, in)
			if !res.OK {
				c.log.Warn("command rejected", "action", cmd.Action, "error", res.Error)
			} else {
				c.log.Info("command applied", "action", cmd.Action)
			}
			c.publishCommandResult(res)
		default:
			return
		}
	}
}

func (c *Core) apply(cmd Command, in signals.Inputs) CommandResult {
	res := CommandResult{RequestID: cmd.RequestID, Action: cmd.Action, OK: true}
	fail := func(err error) CommandResult {
		res.OK = false
		res.Error = err.Error()
		return res
	}

	switch cmd.Action {
	case ActionStart:
		c.stopped = false

	case ActionStop:
		c.stopped = true

	case ActionEmergencyStop:
		c.estop = true

	case ActionReset:
		c.estop = false
		c.sup.Reset()
		c.orch.Reset()
		for _, l := range c.lifts {
			if l.Faulted() {
				l.Reset()
			}
		}

	case ActionJogLift:
		l, err := c.liftByID(cmd.LiftID)
		if err != nil {
			return fail(err)
		}
		dir, err := parseJogDirection(cmd.Direction)
		if err != nil {
			return fail(err)
		}
		speed := cmd.SpeedMms
		if speed == 0 && dir != lift.JogStop {
			speed = c.cfg.Lifts.MinSpeedMms
		}
		if err := l.Jog(dir, speed); err != nil {
			return fail(err)
		}

	case ActionRequestPark:
		if err := c.orch.RequestPark(cmd.VehicleID); err != nil {
			return fail(err)
		}

	case ActionRequestRetrieve:
		if err := c.orch.RequestRetrieve(cmd.VehicleID); err != nil {
			return fail(err)
		}

	case ActionAckEmergency:
		c.orch.AcknowledgeEmergency()

	case ActionEnterMaintenance:
		if err := c.orch.EnterMaintenance(); err != nil {
			return fail(err)
		}

	case ActionExitMaintenance:
		// After an evacuation the supervisor parks in Maintenance; this
		// command is the only way back to Normal, and it is honoured
		// only with clear interlocks.
		if c.sup.State() == safety.StateMaintenance && !c.sup.ExitMaintenance(in) {
			return fail(errors.New("core: safety interlocks not clear"))
		}
		c.orch.ExitMaintenance()

	case ActionTestMode:
		c.sup.SetTestMode(cmd.Enable)

	case ActionLockSlot, ActionUnlockSlot:
		id := facility.SlotID{Level: cmd.Level, Position: cmd.Position}
		if err := c.grid.SetMaintenanceLock(id, cmd.Action == ActionLockSlot); err != nil {
			return fail(err)
		}
		if slot, err := c.grid.Slot(id); err == nil {
			c.persistSlot(slot)
		}

	default:
		return fail(fmt.Errorf("core: unknown action %q", cmd.Action))
	}
	return res
}

func (c *Core) liftByID(id int) (*lift.Controller, error) {
	if id < 1 || id > len(c.lifts) {
		return nil, fmt.Errorf("core: invalid lift id %d", id)
	}
	return c.lifts[id-1], nil
}

func parseJogDirection(s string) (lift.JogDirection, error) {
	switch s {
	case "up":
		return lift.JogUp, nil
	case "down":
		return lift.JogDown, nil
	case "stop", "":
		return lift.JogStop, nil
	default:
		return lift.JogStop, fmt.Errorf("core: invalid jog direction %q", s)
	}
}

// publishCommandResult sends the acknowledgement to the dashboard, when
// a transport is attached.
func (c *Core) publishCommandResult(res CommandResult) {
	if c.mqttClient == nil {
		return
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return
	}
	topic := c.topics.CoreCommandResult()
	if err := c.mqttClient.Publish(topic, payload, 1, false); err != nil {
		c.log.Warn("publishing command result", "error", err)
	}
}
