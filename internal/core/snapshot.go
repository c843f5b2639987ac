package core

import (
	"encoding/json"
	"time"

	"github.com/stackpark/stackpark-core/internal/facility"
	"github.com/stackpark/stackpark-core/internal/lift"
	"github.com/stackpark/stackpark-core/internal/safety"
	"github.com/stackpark/stackpark-core/internal/session"
	"github.com/stackpark/stackpark-core/internal/transfer"
)

// Snapshot is the read-only state view published for the dashboard and
// transport collaborators. Built once per publish interval on the loop
// goroutine, so every field is consistent within one control period.
type Snapshot struct {
	Time     time.Time `json:"time"`
	Sequence uint64    `json:"sequence"`

	Session     session.State        `json:"session"`
	Transaction *session.Transaction `json:"transaction,omitempty"`

	Safety                safety.Verdict  `json:"safety"`
	SafetyCounters        safety.Counters `json:"safety_counters"`
	EmergencyAcknowledged bool            `json:"emergency_acknowledged"`
	Stopped               bool            `json:"stopped"`

	Lifts    []lift.Status          `json:"lifts"`
	Platform transfer.PlatformState `json:"platform"`

	Occupied int             `json:"occupied"`
	Capacity int             `json:"capacity"`
	Slots    []facility.Slot `json:"slots"`

	Stats facility.Stats `json:"stats"`
}

// Snapshot builds the current read-only state view.
func (c *Core) Snapshot(now time.Time) Snapshot {
	lifts := make([]lift.Status, len(c.lifts))
	for i, l := range c.lifts {
		lifts[i] = l.Status()
	}
	return Snapshot{
		Time:                  now,
		Sequence:              c.sequence,
		Session:               c.orch.State(),
		Transaction:           c.orch.Transaction(),
		Safety:                c.lastVerdict,
		SafetyCounters:        c.sup.Counters(),
		EmergencyAcknowledged: c.orch.EmergencyAcknowledged(),
		Stopped:               c.stopped,
		Lifts:                 lifts,
		Platform:              c.seq.Platform(),
		Occupied:              c.grid.OccupiedCount(),
		Capacity:              c.grid.Levels() * c.grid.Positions(),
		Slots:                 c.grid.Snapshot(),
		Stats:                 c.orch.Stats(),
	}
}

// publishSnapshot sends the retained snapshot to the dashboard topic.
func (c *Core) publishSnapshot(now time.Time) {
	if c.mqttClient == nil {
		return
	}
	payload, err := json.Marshal(c.Snapshot(now))
	if err != nil {
		c.log.Error("marshalling snapshot", "error", err)
		return
	}
	if err := c.mqttClient.PublishRetained(c.topics.CoreSnapshot(), payload); err != nil {
		c.log.Warn("publishing snapshot", "error", err)
	}
}
