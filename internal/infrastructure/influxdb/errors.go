package influxdb

import "errors"

// Sentinel errors for InfluxDB operations, checkable with errors.Is.
var (
	// ErrNotConnected indicates the client is not connected.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial connection failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled indicates telemetry is disabled in configuration.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
