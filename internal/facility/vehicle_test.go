package facility

import (
	"errors"
	"testing"

	"github.com/stackpark/stackpark-core/internal/infrastructure/config"
)

func testLimits() config.FacilityConfig {
	return config.FacilityConfig{
		MaxVehicleLengthMm: 5300,
		MaxVehicleWidthMm:  2200,
		MaxVehicleHeightMm: 2100,
		MaxVehicleWeightKg: 3000,
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		length   int
		width    int
		height   int
		weight   float64
		want     VehicleClass
	}{
		{"reference compact", 4000, 1700, 1500, 1200, ClassCompact},
		{"motorcycle by width", 2100, 800, 1200, 220, ClassMotorcycle},
		{"standard sedan", 4800, 1850, 1450, 1600, ClassStandard},
		{"suv by height", 4900, 1950, 1800, 2000, ClassSUV},
		{"suv by weight", 5000, 1900, 1700, 2400, ClassSUV},
		{"compact at thresholds", 4300, 2000, 1600, 1000, ClassCompact},
		{"tall but short is not compact", 4200, 1800, 1700, 1500, ClassStandard},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Classify(tc.length, tc.width, tc.height, tc.weight, testLimits())
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if p.Class != tc.want {
				t.Fatalf("Classify = %s, want %s", p.Class, tc.want)
			}
		})
	}
}

func TestClassifyRejectsOversize(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		width   int
		height  int
		weight  float64
		wantErr error
	}{
		{"too long", 5400, 1800, 1500, 1500, ErrVehicleTooLarge},
		{"too wide", 4500, 2300, 1500, 1500, ErrVehicleTooLarge},
		{"too tall", 4500, 1800, 2200, 1500, ErrVehicleTooLarge},
		{"too heavy", 4500, 1800, 1500, 3100, ErrVehicleTooHeavy},
		{"missing measurement", 0, 1800, 1500, 1500, ErrVehicleTooLarge},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Classify(tc.length, tc.width, tc.height, tc.weight, testLimits())
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Classify = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestStatsAverages(t *testing.T) {
	var s Stats
	if s.AvgParkSeconds() != 0 || s.AvgRetrieveSeconds() != 0 {
		t.Fatal("averages over no data must be 0")
	}

	s.TotalParked = 4
	s.ParkCycleSum = 480
	s.TotalRetrieved = 2
	s.RetrieveSum = 180
	if got := s.AvgParkSeconds(); got != 120 {
		t.Fatalf("AvgParkSeconds = %v, want 120", got)
	}
	if got := s.AvgRetrieveSeconds(); got != 90 {
		t.Fatalf("AvgRetrieveSeconds = %v, want 90", got)
	}
}
