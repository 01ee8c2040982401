package robot

import (
	"math"
	"testing"
)

func TestMotorCalibration_Normalize(t *testing.T) {
	cal := MotorCalibration{
		RangeMin: 1000,
		RangeMax: 3000,
	}

	tests := []struct {
		raw      int
		expected float64
	}{
		{1000, 0.0},   // closed
		{3000, 100.0}, // open
		{2000, 50.0},  // half
		{1500, 25.0},
		{2500, 75.0},
	}

	for _, tt := range tests {
		got := cal.Normalize(tt.raw)
		if math.Abs(got-tt.expected) > 0.001 {
			t.Errorf("Normalize(%d) = %f, want %f", tt.raw, got, tt.expected)
		}
	}
}

func TestMotorCalibration_Denormalize(t *testing.T) {
	cal := MotorCalibration{
		RangeMin: 1000,
		RangeMax: 3000,
	}

	tests := []struct {
		pct      float64
		expected int
	}{
		{0, 1000},
		{100, 3000},
		{50, 2000},
		{25, 1500},
		{-20, 1000}, // clamped
		{140, 3000}, // clamped
	}

	for _, tt := range tests {
		got := cal.Denormalize(tt.pct)
		if got != tt.expected {
			t.Errorf("Denormalize(%f) = %d, want %d", tt.pct, got, tt.expected)
		}
	}
}

func TestMotorCalibration_Inverted(t *testing.T) {
	cal := CalibrationFrom(6, 1200, 2800)
	if cal.DriveMode != 1 {
		t.Fatalf("DriveMode = %d, want 1", cal.DriveMode)
	}
	if got := cal.Denormalize(100); got != 1200 {
		t.Errorf("Denormalize(open) = %d, want 1200", got)
	}
	if got := cal.Denormalize(0); got != 2800 {
		t.Errorf("Denormalize(closed) = %d, want 2800", got)
	}
	if got := cal.Normalize(1200); math.Abs(got-100) > 0.001 {
		t.Errorf("Normalize(1200) = %f, want 100", got)
	}
}

func TestMotorCalibration_RoundTrip(t *testing.T) {
	for _, cal := range []MotorCalibration{
		{RangeMin: 823, RangeMax: 3540},
		{RangeMin: 823, RangeMax: 3540, DriveMode: 1},
	} {
		for raw := cal.RangeMin; raw <= cal.RangeMax; raw += 100 {
			pct := cal.Normalize(raw)
			back := cal.Denormalize(pct)
			if math.Abs(float64(back-raw)) > 1 {
				t.Errorf("Round-trip failed: %d -> %f -> %d", raw, pct, back)
			}
		}
	}
}

func TestMotorCalibration_Validate(t *testing.T) {
	tests := []struct {
		cal     MotorCalibration
		wantErr bool
	}{
		{MotorCalibration{ID: 6, RangeMin: 100, RangeMax: 200}, false},
		{MotorCalibration{ID: 0, RangeMin: 100, RangeMax: 200}, true},
		{MotorCalibration{ID: 6, RangeMin: 200, RangeMax: 200}, true},
	}
	for _, tt := range tests {
		err := tt.cal.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) error = %v, wantErr %v", tt.cal, err, tt.wantErr)
		}
	}
}
