// Package influxdb provides optional time-series telemetry for StackPark
// Core: per-cycle lift kinematics, control loop timing, and transaction
// cycle times. Writes are batched and non-blocking so telemetry can never
// stall the control loop. The whole subsystem is disabled by default.
package influxdb
