package facility

import (
	"fmt"

	"github.com/stackpark/stackpark-core/internal/infrastructure/config"
)

// Classification thresholds, in mm and kg. A vehicle is classified by
// the first matching rule in order: motorcycle, compact, SUV, standard.
const (
	motorcycleMaxWidthMm = 1100

	compactMaxLengthMm = 4300
	compactMaxHeightMm = 1600

	suvMinHeightMm = 1750
	suvMinWeightKg = 2200
)

// Classify derives a VehicleProfile from the measured envelope, rejecting
// vehicles that exceed the facility maxima. The classification is fixed
// for the remainder of the operation.
func Classify(lengthMm, widthMm, heightMm int, weightKg float64, limits config.FacilityConfig) (VehicleProfile, error) {
	if lengthMm <= 0 || widthMm <= 0 || heightMm <= 0 || weightKg <= 0 {
		return VehicleProfile{}, fmt.Errorf("%w: missing measurement", ErrVehicleTooLarge)
	}
	if lengthMm > limits.MaxVehicleLengthMm ||
		widthMm > limits.MaxVehicleWidthMm ||
		heightMm > limits.MaxVehicleHeightMm {
		return VehicleProfile{}, fmt.Errorf("%w: %dx%dx%d mm", ErrVehicleTooLarge, lengthMm, widthMm, heightMm)
	}
	if weightKg > limits.MaxVehicleWeightKg {
		return VehicleProfile{}, fmt.Errorf("%w: %.0f kg", ErrVehicleTooHeavy, weightKg)
	}

	p := VehicleProfile{
		LengthMm: lengthMm,
		WidthMm:  widthMm,
		HeightMm: heightMm,
		WeightKg: weightKg,
	}
	switch {
	case widthMm <= motorcycleMaxWidthMm:
		p.Class = ClassMotorcycle
	case lengthMm <= compactMaxLengthMm && heightMm <= compactMaxHeightMm:
		p.Class = ClassCompact
	case heightMm >= suvMinHeightMm || weightKg >= suvMinWeightKg:
		p.Class = ClassSUV
	default:
		p.Class = ClassStandard
	}
	return p, nil
}
