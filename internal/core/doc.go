// Package core assembles the safety supervisor, lift controllers,
// transfer sequencer, and session orchestrator and runs them on a single
// fixed-period control loop.
//
// The loop is the only goroutine that touches core state. Operator
// commands arriving over MQTT are queued and drained at the start of the
// next cycle; field input updates are merged into the signal store and
// sampled once per cycle. Each cycle evaluates safety first, so every
// actuator command is gated by a verdict from the same period. The
// retained state snapshot, safety alerts, and transaction events go back
// out over MQTT; per-cycle telemetry goes to the optional InfluxDB sink.
package core
