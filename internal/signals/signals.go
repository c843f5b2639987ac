package signals

// Inputs is the immutable set of field inputs sampled once per control
// cycle. Every component receives the same Inputs value for a given
// period, so decisions within one cycle are consistent.
type Inputs struct {
	// Safety interlocks.
	StopChainIntact bool `json:"stop_chain_intact"`
	FireAlarm       bool `json:"fire_alarm"`
	SmokeDetected   bool `json:"smoke_detected"`
	ZoneViolation   bool `json:"zone_violation"`

	// Monitored subsystem health.
	MotorHealthy       bool `json:"motor_healthy"`
	HydraulicHealthy   bool `json:"hydraulic_healthy"`
	VentilationHealthy bool `json:"ventilation_healthy"`
	COHealthy          bool `json:"co_healthy"`
	TemperatureHealthy bool `json:"temperature_healthy"`
	HeartbeatOK        bool `json:"heartbeat_ok"`

	// Entry/exit bay detection.
	VehiclePresent   bool `json:"vehicle_present"`
	VehicleInBay     bool `json:"vehicle_in_bay"`
	ExitBayOccupied  bool `json:"exit_bay_occupied"`
	PaymentConfirmed bool `json:"payment_confirmed"`

	// Platform load cell.
	PlatformLoadKg float64 `json:"platform_load_kg"`

	// Vehicle measurement gantry readings at the entry bay.
	MeasuredLengthMm int     `json:"measured_length_mm"`
	MeasuredWidthMm  int     `json:"measured_width_mm"`
	MeasuredHeightMm int     `json:"measured_height_mm"`
	MeasuredWeightKg float64 `json:"measured_weight_kg"`
}

// SubsystemsHealthy reports whether every monitored subsystem is healthy.
func (in Inputs) SubsystemsHealthy() bool {
	return in.MotorHealthy &&
		in.HydraulicHealthy &&
		in.VentilationHealthy &&
		in.COHealthy &&
		in.TemperatureHealthy &&
		in.HeartbeatOK
}

// FireActive reports whether any fire or smoke signal is asserted.
func (in Inputs) FireActive() bool {
	return in.FireAlarm || in.SmokeDetected
}
