package teleop

import (
	"context"
	"time"

	"github.com/golang/geo/r3"

	"github.com/gwillem/armctl/pkg/arm"
	"github.com/gwillem/armctl/pkg/input"
)

const (
	// DefaultMultiplier scales normalized input to mm/s and deg/s.
	DefaultMultiplier = 100.0
	// VelocityDuration is how long the arm keeps a velocity before decaying
	// to zero when no newer command arrives.
	VelocityDuration = 500 * time.Millisecond
	rotationDivisor  = 1.5
)

// Mapper turns continuous input samples into cartesian velocity commands.
type Mapper struct {
	Multiplier float64
	last       arm.Velocity
}

// NewMapper returns a mapper with the given multiplier; zero or negative
// selects DefaultMultiplier.
func NewMapper(multiplier float64) *Mapper {
	if multiplier <= 0 {
		multiplier = DefaultMultiplier
	}
	return &Mapper{Multiplier: multiplier}
}

// Map converts s into the arm frame. Input y drives arm x, input x drives
// arm -y, rotations are scaled down and yaw is inverted.
func (m *Mapper) Map(s input.Sample) arm.Velocity {
	k := m.Multiplier
	r := k / rotationDivisor
	return arm.Velocity{
		Linear:  r3.Vector{X: s.Y * k, Y: -s.X * k, Z: s.Z * k},
		Angular: r3.Vector{X: s.Roll * r, Y: s.Pitch * r, Z: -s.Yaw * r},
	}
}

// Step maps s and sends the result unless both it and the previously sent
// velocity are zero. A return to rest therefore sends exactly one zero
// command. It reports the velocity and whether it was sent.
func (m *Mapper) Step(ctx context.Context, a arm.Motion, s input.Sample) (arm.Velocity, bool, error) {
	v := m.Map(s)
	if v.L1() == 0 && m.last.L1() == 0 {
		return v, false, nil
	}
	if err := a.SetCartesianVelocity(ctx, v, VelocityDuration); err != nil {
		return v, false, err
	}
	m.last = v
	return v, true, nil
}

// Last returns the most recently sent velocity.
func (m *Mapper) Last() arm.Velocity { return m.last }

// Reset forgets the last sent velocity. Used after the arm left velocity
// mode, where any motion was stopped by the mode change.
func (m *Mapper) Reset() { m.last = arm.Velocity{} }
