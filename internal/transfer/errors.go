package transfer

import "errors"

// Synchronous rejection errors, checkable with errors.Is.
var (
	// ErrBusy is returned when an operation is already in progress.
	// Requests are rejected, never queued.
	ErrBusy = errors.New("transfer: operation in progress")

	// ErrEmptyVehicleID is returned for a request without a vehicle id.
	ErrEmptyVehicleID = errors.New("transfer: empty vehicle id")
)

// Code is the stable numeric error code attached to a failed operation.
// Validation codes are 1xx, resource exhaustion 2xx, phase timeouts and
// equipment faults 3xx. The dashboard keys its messages off these.
type Code int

const (
	CodeNone Code = 0

	CodeVehicleTooLarge  Code = 101
	CodeVehicleTooHeavy  Code = 102
	CodeVehicleNotFound  Code = 103

	CodeNoSpace Code = 201
	CodeNoLift  Code = 202

	CodeSecureTimeout  Code = 301
	CodeTravelTimeout  Code = 302
	CodeHandoffTimeout Code = 303
	CodeDepositTimeout Code = 304
	CodeLiftFault      Code = 305
)

// String returns the human-readable phase description for the code.
func (c Code) String() string {
	switch c {
	case CodeNone:
		return "ok"
	case CodeVehicleTooLarge:
		return "vehicle exceeds facility dimensions"
	case CodeVehicleTooHeavy:
		return "vehicle exceeds facility weight limit"
	case CodeVehicleNotFound:
		return "vehicle not found"
	case CodeNoSpace:
		return "no available storage space"
	case CodeNoLift:
		return "no lift available"
	case CodeSecureTimeout:
		return "timeout securing vehicle on platform"
	case CodeTravelTimeout:
		return "timeout during platform travel"
	case CodeHandoffTimeout:
		return "timeout during lift handoff"
	case CodeDepositTimeout:
		return "timeout during deposit/delivery"
	case CodeLiftFault:
		return "lift fault during transfer"
	default:
		return "unknown error"
	}
}

// Retryable reports whether the bounded retry policy applies to the
// code. Validation and resource errors are reported immediately and
// never retried.
func (c Code) Retryable() bool {
	return c >= 300
}
