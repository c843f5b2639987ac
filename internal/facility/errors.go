package facility

import "errors"

// Domain errors for the facility package, checkable with errors.Is.
var (
	// ErrInvalidSlot is returned for a (level, position) outside the grid.
	ErrInvalidSlot = errors.New("facility: slot out of range")

	// ErrSlotOccupied is returned when depositing into an occupied slot.
	ErrSlotOccupied = errors.New("facility: slot already occupied")

	// ErrSlotEmpty is returned when vacating an unoccupied slot.
	ErrSlotEmpty = errors.New("facility: slot not occupied")

	// ErrNoSpace is returned when no free, unlocked slot exists.
	ErrNoSpace = errors.New("facility: no available space")

	// ErrVehicleNotFound is returned when no slot holds the vehicle.
	ErrVehicleNotFound = errors.New("facility: vehicle not found")

	// ErrVehicleTooLarge is returned when a measured dimension exceeds
	// the facility envelope maxima.
	ErrVehicleTooLarge = errors.New("facility: vehicle exceeds dimension limits")

	// ErrVehicleTooHeavy is returned when the measured weight exceeds
	// the facility maximum.
	ErrVehicleTooHeavy = errors.New("facility: vehicle exceeds weight limit")

	// ErrInvalidGrid is returned when grid dimensions are not positive.
	ErrInvalidGrid = errors.New("facility: invalid grid dimensions")
)
