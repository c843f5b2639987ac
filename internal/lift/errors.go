package lift

import "errors"

// Domain errors for the lift package, checkable with errors.Is.
var (
	// ErrInvalidLevel is returned for a MoveTo target outside [1, L].
	ErrInvalidLevel = errors.New("lift: invalid target level")

	// ErrBusy is returned when a MoveTo is already in flight.
	ErrBusy = errors.New("lift: movement in progress")

	// ErrFaulted is returned for commands issued to a faulted lift
	// that has exhausted its automatic recovery budget.
	ErrFaulted = errors.New("lift: faulted, reset required")

	// ErrNotIdle is returned when manual jog is requested while the
	// lift is target-seeking.
	ErrNotIdle = errors.New("lift: not idle")

	// ErrInvalidSpeed is returned for a non-positive jog speed.
	ErrInvalidSpeed = errors.New("lift: invalid jog speed")
)
