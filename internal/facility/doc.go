// Package facility models the storage geometry of a StackPark
// installation: the bounds-checked L×P slot grid, vehicle classification
// against the facility envelope, and the persistence of slot occupancy,
// lift counters, and aggregate statistics across warm restarts.
//
// # Ownership
//
// The Grid is exclusively owned and mutated by the transfer sequencer,
// which the session orchestrator gates to a single active operation.
// That single-writer discipline is the system's mutual exclusion; the
// Grid itself carries no locks.
//
// # Slot selection
//
// SelectSlot performs a deterministic minimal-cost search over all free,
// unlocked slots with cost level·100 + |position − centre|·10 and
// scan-order tie breaking, so the same occupancy always yields the same
// assignment.
package facility
