package session

import "errors"

// Domain errors for the session package, checkable with errors.Is.
var (
	// ErrNotIdle is returned for a park or retrieve request while a
	// transaction is already in flight.
	ErrNotIdle = errors.New("session: transaction in progress")

	// ErrNotReady is returned for requests during Init, Maintenance, or
	// Emergency.
	ErrNotReady = errors.New("session: system not ready")

	// ErrEmptyVehicleID is returned for a retrieve without a vehicle id.
	ErrEmptyVehicleID = errors.New("session: empty vehicle id")
)
