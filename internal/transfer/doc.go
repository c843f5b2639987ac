// Package transfer implements the park/retrieve sequencer and the shared
// transfer platform.
//
// The Sequencer is the single owner of the platform and the only writer
// of the slot grid; the session orchestrator gates it to one operation
// at a time, so no locking is needed anywhere in the data path. A park
// runs classify → secure → travel to the chosen lift → lift ascent →
// corridor travel → deposit → home; retrieve is the structural mirror
// ending at the exit bay. Slot and lift selection are deterministic
// minimal-cost searches over the live tables.
//
// Every phase has an explicit deadline. A timeout or equipment failure
// consumes one retry from a bounded budget and restarts the operation
// from classification; validation and resource failures are reported
// immediately and never retried.
package transfer
