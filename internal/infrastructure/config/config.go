package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for StackPark Core.
// All configuration is loaded from YAML and can be overridden by
// environment variables (STACKPARK_* prefix).
type Config struct {
	Facility FacilityConfig `yaml:"facility"`
	Lifts    LiftConfig     `yaml:"lifts"`
	Platform PlatformConfig `yaml:"platform"`
	Control  ControlConfig  `yaml:"control"`
	Safety   SafetyConfig   `yaml:"safety"`
	Session  SessionConfig  `yaml:"session"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// FacilityConfig describes the physical storage geometry.
type FacilityConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// Levels is the number of storage levels (L).
	Levels int `yaml:"levels"`

	// Positions is the number of slots per level (P).
	Positions int `yaml:"positions"`

	// LevelHeightMm is the vertical distance between adjacent levels.
	LevelHeightMm int `yaml:"level_height_mm"`

	// SlotPitchMm is the horizontal distance between adjacent positions.
	SlotPitchMm int `yaml:"slot_pitch_mm"`

	// Vehicle envelope maxima. Requests exceeding any of these are
	// rejected before a slot is assigned.
	MaxVehicleLengthMm int     `yaml:"max_vehicle_length_mm"`
	MaxVehicleWidthMm  int     `yaml:"max_vehicle_width_mm"`
	MaxVehicleHeightMm int     `yaml:"max_vehicle_height_mm"`
	MaxVehicleWeightKg float64 `yaml:"max_vehicle_weight_kg"`
}

// LiftConfig contains motion parameters shared by all lifts.
type LiftConfig struct {
	// Count is the number of vertical lift units (N).
	Count int `yaml:"count"`

	// MaxSpeedMms is the cruise speed for long travels, in mm/s.
	MaxSpeedMms float64 `yaml:"max_speed_mms"`

	// AccelMms2 and DecelMms2 are the fixed acceleration and
	// deceleration rates, in mm/s².
	AccelMms2 float64 `yaml:"accel_mms2"`
	DecelMms2 float64 `yaml:"decel_mms2"`

	// MinSpeedMms is the floor applied to the commanded speed while
	// target-seeking, in mm/s.
	MinSpeedMms float64 `yaml:"min_speed_mms"`

	// FineSpeedMms is the creep speed used during fine positioning.
	FineSpeedMms float64 `yaml:"fine_speed_mms"`

	// LongTravelMm is the distance above which full cruise speed is
	// selected; shorter moves cruise at half speed.
	LongTravelMm float64 `yaml:"long_travel_mm"`

	// PositionToleranceMm is the coarse stop window around the target.
	PositionToleranceMm float64 `yaml:"position_tolerance_mm"`

	// FineToleranceMm is the fine-positioning acceptance window.
	FineToleranceMm float64 `yaml:"fine_tolerance_mm"`

	// RatedLoadKg is the maximum car load before an overload fault.
	RatedLoadKg float64 `yaml:"rated_load_kg"`

	DoorCycleSeconds      int `yaml:"door_cycle_seconds"`
	DoorTimeoutSeconds    int `yaml:"door_timeout_seconds"`
	MoveTimeoutSeconds    int `yaml:"move_timeout_seconds"`
	FineTimeoutSeconds    int `yaml:"fine_timeout_seconds"`
	RetryBackoffSeconds   int `yaml:"retry_backoff_seconds"`
	MaxAutoRecoveryCycles int `yaml:"max_auto_recovery_cycles"`
}

// PlatformConfig contains transfer platform parameters.
type PlatformConfig struct {
	// SpeedMms is the per-axis travel speed, in mm/s.
	SpeedMms float64 `yaml:"speed_mms"`

	// MinLoadKg is the load threshold confirming a vehicle is on the
	// platform; EmptyLoadKg is the threshold confirming it has left.
	MinLoadKg   float64 `yaml:"min_load_kg"`
	EmptyLoadKg float64 `yaml:"empty_load_kg"`

	// Bay coordinates, in mm from the platform origin.
	EntryBayXMm int `yaml:"entry_bay_x_mm"`
	ExitBayXMm  int `yaml:"exit_bay_x_mm"`

	// LiftBaySpacingMm is the X distance between adjacent lift
	// loading bays; bay i sits at i·spacing.
	LiftBaySpacingMm int `yaml:"lift_bay_spacing_mm"`
}

// ControlConfig contains control loop and transfer sequencing settings.
type ControlConfig struct {
	// PeriodMs is the fixed control loop period, in milliseconds.
	PeriodMs int `yaml:"period_ms"`

	// MaxRetries is the bounded retry budget for failed transfer
	// operations before they are abandoned.
	MaxRetries int `yaml:"max_retries"`

	// RetryDelaySeconds is the wait before a transfer retry restarts
	// from classification.
	RetryDelaySeconds int `yaml:"retry_delay_seconds"`

	// Transfer phase deadlines, in seconds.
	SecureTimeoutSeconds  int `yaml:"secure_timeout_seconds"`
	TravelTimeoutSeconds  int `yaml:"travel_timeout_seconds"`
	HandoffTimeoutSeconds int `yaml:"handoff_timeout_seconds"`
	DepositTimeoutSeconds int `yaml:"deposit_timeout_seconds"`
}

// SafetyConfig contains safety supervisor settings.
type SafetyConfig struct {
	// ResetConfirmCycles is the number of clean control cycles a Reset
	// must hold before Alarm/Emergency returns to Normal.
	ResetConfirmCycles int `yaml:"reset_confirm_cycles"`

	// EvacuationDwellSeconds is the minimum time spent in Evacuation
	// before a Reset is honoured.
	EvacuationDwellSeconds int `yaml:"evacuation_dwell_seconds"`
}

// SessionConfig contains session orchestration settings.
type SessionConfig struct {
	InitSeconds           int `yaml:"init_seconds"`
	PaymentTimeoutSeconds int `yaml:"payment_timeout_seconds"`
	EntryTimeoutSeconds   int `yaml:"entry_timeout_seconds"`
	ParkingHardSeconds    int `yaml:"parking_hard_seconds"`
	ParkedDwellSeconds    int `yaml:"parked_dwell_seconds"`
	ExitTimeoutSeconds    int `yaml:"exit_timeout_seconds"`
	ResetConfirmSeconds   int `yaml:"reset_confirm_seconds"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains optional telemetry sink settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment
// variable overrides.
//
// The loading order is: hardcoded defaults, then YAML file values, then
// environment variables. Environment variables follow the pattern
// STACKPARK_SECTION_KEY, e.g. STACKPARK_DATABASE_PATH, STACKPARK_MQTT_HOST.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config populated with the reference facility
// parameters: 15 levels × 20 positions, 3 lifts, 100 ms control period.
func Default() *Config {
	return &Config{
		Facility: FacilityConfig{
			ID:                 "facility-001",
			Name:               "StackPark",
			Levels:             15,
			Positions:          20,
			LevelHeightMm:      3000,
			SlotPitchMm:        2800,
			MaxVehicleLengthMm: 5300,
			MaxVehicleWidthMm:  2200,
			MaxVehicleHeightMm: 2100,
			MaxVehicleWeightKg: 3000,
		},
		Lifts: LiftConfig{
			Count:                 3,
			MaxSpeedMms:           1500,
			AccelMms2:             800,
			DecelMms2:             800,
			MinSpeedMms:           50,
			FineSpeedMms:          20,
			LongTravelMm:          6000,
			PositionToleranceMm:   20,
			FineToleranceMm:       5,
			RatedLoadKg:           3200,
			DoorCycleSeconds:      3,
			DoorTimeoutSeconds:    10,
			MoveTimeoutSeconds:    60,
			FineTimeoutSeconds:    10,
			RetryBackoffSeconds:   5,
			MaxAutoRecoveryCycles: 3,
		},
		Platform: PlatformConfig{
			SpeedMms:         800,
			MinLoadKg:        80,
			EmptyLoadKg:      20,
			EntryBayXMm:      0,
			ExitBayXMm:       0,
			LiftBaySpacingMm: 4000,
		},
		Control: ControlConfig{
			PeriodMs:              100,
			MaxRetries:            3,
			RetryDelaySeconds:     5,
			SecureTimeoutSeconds:  60,
			TravelTimeoutSeconds:  180,
			HandoffTimeoutSeconds: 60,
			DepositTimeoutSeconds: 60,
		},
		Safety: SafetyConfig{
			ResetConfirmCycles:     8,
			EvacuationDwellSeconds: 30,
		},
		Session: SessionConfig{
			InitSeconds:           3,
			PaymentTimeoutSeconds: 120,
			EntryTimeoutSeconds:   45,
			ParkingHardSeconds:    300,
			ParkedDwellSeconds:    5,
			ExitTimeoutSeconds:    120,
			ResetConfirmSeconds:   3,
		},
		Database: DatabaseConfig{
			Path:        "data/stackpark.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "stackpark-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		InfluxDB: InfluxDBConfig{
			Enabled:       false,
			URL:           "http://localhost:8086",
			Org:           "stackpark",
			Bucket:        "telemetry",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies STACKPARK_* environment variables on top of
// file values. Only operationally sensitive keys are exposed this way.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STACKPARK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("STACKPARK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("STACKPARK_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("STACKPARK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("STACKPARK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("STACKPARK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("STACKPARK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Facility.ID == "" {
		errs = append(errs, "facility.id is required")
	}
	if c.Facility.Levels < 2 {
		errs = append(errs, "facility.levels must be at least 2")
	}
	if c.Facility.Positions < 1 {
		errs = append(errs, "facility.positions must be at least 1")
	}
	if c.Facility.LevelHeightMm <= 0 {
		errs = append(errs, "facility.level_height_mm must be positive")
	}

	if c.Lifts.Count < 1 {
		errs = append(errs, "lifts.count must be at least 1")
	}
	if c.Lifts.MaxSpeedMms <= 0 || c.Lifts.AccelMms2 <= 0 || c.Lifts.DecelMms2 <= 0 {
		errs = append(errs, "lifts motion parameters must be positive")
	}
	if c.Lifts.FineToleranceMm > c.Lifts.PositionToleranceMm {
		errs = append(errs, "lifts.fine_tolerance_mm must not exceed lifts.position_tolerance_mm")
	}

	if c.Platform.SpeedMms <= 0 {
		errs = append(errs, "platform.speed_mms must be positive")
	}
	if c.Platform.EmptyLoadKg >= c.Platform.MinLoadKg {
		errs = append(errs, "platform.empty_load_kg must be below platform.min_load_kg")
	}

	if c.Control.PeriodMs <= 0 {
		errs = append(errs, "control.period_ms must be positive")
	}
	if c.Control.MaxRetries < 0 {
		errs = append(errs, "control.max_retries must not be negative")
	}

	if c.Safety.ResetConfirmCycles < 5 || c.Safety.ResetConfirmCycles > 10 {
		errs = append(errs, "safety.reset_confirm_cycles must be between 5 and 10")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Period returns the control loop period as a Duration.
func (c *Config) Period() time.Duration {
	return time.Duration(c.Control.PeriodMs) * time.Millisecond
}

// TravelMm returns the total vertical travel, in mm, from level 1 to the
// top level: (L-1)·levelHeight.
func (f FacilityConfig) TravelMm() float64 {
	return float64((f.Levels - 1) * f.LevelHeightMm)
}

// LevelPositionMm returns the lift shaft position, in mm, for a storage
// level. Level 1 is the ground datum at 0 mm.
func (f FacilityConfig) LevelPositionMm(level int) float64 {
	return float64((level - 1) * f.LevelHeightMm)
}
