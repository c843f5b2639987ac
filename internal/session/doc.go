// Package session implements the top-level session orchestrator.
//
// One customer transaction is in flight at any time: intake is driven by
// the bay sensors (vehicle present → payment → bay entry), storage and
// retrieval are delegated to the transfer sequencer, and statistics are
// updated exactly once per completed transaction. A false safety verdict
// forces Emergency from any operational state; recovery requires an
// explicit Reset plus a confirmation delay with the verdict holding OK,
// and always passes back through the startup health check.
package session
