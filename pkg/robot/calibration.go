package robot

import (
	"fmt"
)

// MotorCalibration holds the travel of a single gripper servo.
type MotorCalibration struct {
	ID int `json:"id"`
	// DriveMode 1 means the closed position has the larger raw value.
	DriveMode int `json:"drive_mode"`
	RangeMin  int `json:"range_min"`
	RangeMax  int `json:"range_max"`
}

// Validate checks that the calibration describes a usable range.
func (c MotorCalibration) Validate() error {
	if c.ID < 1 || c.ID > 253 {
		return fmt.Errorf("servo id %d out of range", c.ID)
	}
	if c.RangeMax <= c.RangeMin {
		return fmt.Errorf("servo %d: range_max %d must exceed range_min %d", c.ID, c.RangeMax, c.RangeMin)
	}
	return nil
}

// Normalize converts a raw servo position to percent open in [0, 100].
func (c MotorCalibration) Normalize(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	pct := float64(raw-c.RangeMin) / rangeSize * 100
	if c.DriveMode == 1 {
		pct = 100 - pct
	}
	return pct
}

// Denormalize converts percent open to a raw servo position, clamped to
// the calibrated range.
func (c MotorCalibration) Denormalize(pct float64) int {
	pct = max(0, min(100, pct))
	if c.DriveMode == 1 {
		pct = 100 - pct
	}
	rangeSize := float64(c.RangeMax - c.RangeMin)
	return int(pct/100*rangeSize+0.5) + c.RangeMin
}

// CalibrationFrom builds a calibration from positions read with the
// gripper held fully open and fully closed.
func CalibrationFrom(id, open, closed int) MotorCalibration {
	if closed > open {
		return MotorCalibration{ID: id, DriveMode: 1, RangeMin: open, RangeMax: closed}
	}
	return MotorCalibration{ID: id, RangeMin: closed, RangeMax: open}
}
