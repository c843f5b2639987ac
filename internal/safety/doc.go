// Package safety implements the safety supervisor for StackPark Core.
//
// The supervisor aggregates the stop chain, fire and smoke zones,
// personnel-zone occupancy, and subsystem health into a single Verdict
// each control cycle. Every actuator-commanding component treats a false
// Verdict.OK as "force all motion outputs to zero now", overriding its
// own state — the verdict for a period is always computed before any
// command for that period is emitted.
//
// State machine: Normal → Warning → Alarm → Emergency → Evacuation →
// Lockdown → Test → Maintenance. Fire escalates over Emergency; reset out
// of Alarm/Emergency needs a confirmation delay with clean interlocks;
// Evacuation exits only to Maintenance after a minimum dwell plus Reset.
package safety
