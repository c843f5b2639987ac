package facility

import (
	"fmt"
	"time"
)

// SlotID identifies one storage location by (level, position), both
// 1-based. The zero value is invalid.
type SlotID struct {
	Level    int `json:"level"`
	Position int `json:"position"`
}

// String formats the slot as "L3/P12".
func (id SlotID) String() string {
	return fmt.Sprintf("L%d/P%d", id.Level, id.Position)
}

// Slot is one fixed storage location. Slots are created at system
// initialisation and mutated only by the transfer sequencer on a
// successful deposit or pickup.
type Slot struct {
	ID                SlotID       `json:"id"`
	Occupied          bool         `json:"occupied"`
	VehicleID         string       `json:"vehicle_id,omitempty"`
	VehicleClass      VehicleClass `json:"vehicle_class,omitempty"`
	ParkedAt          time.Time    `json:"parked_at,omitempty"`
	MaintenanceLocked bool         `json:"maintenance_locked"`
}

// Retrievable reports whether the slot is a valid retrieval target.
func (s Slot) Retrievable() bool {
	return s.Occupied && !s.MaintenanceLocked
}

// VehicleClass is the size classification derived from measured
// dimensions, fixed for the lifetime of an operation.
type VehicleClass string

const (
	ClassMotorcycle VehicleClass = "motorcycle"
	ClassCompact    VehicleClass = "compact"
	ClassStandard   VehicleClass = "standard"
	ClassSUV        VehicleClass = "suv"
)

// VehicleProfile holds the measured envelope of one vehicle and its
// classification. Immutable after classification.
type VehicleProfile struct {
	LengthMm int          `json:"length_mm"`
	WidthMm  int          `json:"width_mm"`
	HeightMm int          `json:"height_mm"`
	WeightKg float64      `json:"weight_kg"`
	Class    VehicleClass `json:"class"`
}

// Stats are the aggregate facility statistics persisted across restarts.
type Stats struct {
	TotalParked    int64   `json:"total_parked"`
	TotalRetrieved int64   `json:"total_retrieved"`
	TotalFailed    int64   `json:"total_failed"`
	ParkCycleSum   float64 `json:"park_cycle_seconds_sum"`
	RetrieveSum    float64 `json:"retrieve_cycle_seconds_sum"`
}

// AvgParkSeconds returns the mean park cycle time, or 0 with no data.
func (s Stats) AvgParkSeconds() float64 {
	if s.TotalParked == 0 {
		return 0
	}
	return s.ParkCycleSum / float64(s.TotalParked)
}

// AvgRetrieveSeconds returns the mean retrieve cycle time, or 0 with no
// data.
func (s Stats) AvgRetrieveSeconds() float64 {
	if s.TotalRetrieved == 0 {
		return 0
	}
	return s.RetrieveSum / float64(s.TotalRetrieved)
}

// LiftCounters are the per-lift diagnostics persisted across restarts.
type LiftCounters struct {
	LiftID           int   `json:"lift_id"`
	OperatingSeconds int64 `json:"operating_seconds"`
	FaultCount       int64 `json:"fault_count"`
}
