package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteLiftMetric records one lift's position, speed, and load for a
// control cycle. Non-blocking; data is batched and sent asynchronously.
func (c *Client) WriteLiftMetric(liftID int, positionMm, speedMms, loadKg float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"lift",
		map[string]string{
			"lift_id": strconv.Itoa(liftID),
		},
		map[string]interface{}{
			"position_mm": positionMm,
			"speed_mms":   speedMms,
			"load_kg":     loadKg,
		},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}

// WriteCycleMetric records control loop timing for one period.
func (c *Client) WriteCycleMetric(sequence uint64, durationUs int64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"control_cycle",
		nil,
		map[string]interface{}{
			"sequence":    int64(sequence), // #nosec G115 -- wraps after ~58 billion years at 100ms
			"duration_us": durationUs,
		},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}

// WriteTransactionMetric records a completed park or retrieve transaction.
func (c *Client) WriteTransactionMetric(kind string, success bool, cycleSeconds float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"transaction",
		map[string]string{
			"kind": kind,
		},
		map[string]interface{}{
			"success":       success,
			"cycle_seconds": cycleSeconds,
		},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}
