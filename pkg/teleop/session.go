package teleop

import (
	"github.com/gwillem/armctl/pkg/sequence"
)

// Speed and blend radius limits for recorded moves.
const (
	DefaultSpeed  = 100.0
	MinSpeed      = 10.0
	MaxSpeed      = 200.0
	SpeedStep     = 10.0
	DefaultRadius = 10.0
	MinRadius     = 1.0
	MaxRadius     = 50.0
	RadiusStep    = 1.0
)

// Session is the operator's authoring state: the sequence being recorded
// and the speed and radius stamped onto newly recorded moves.
type Session struct {
	Sequence *sequence.Sequence
	Speed    float64
	Radius   float64
}

// NewSession returns an empty session. Out of range speed or radius values
// are clamped; zero selects the default.
func NewSession(speed, radius float64) *Session {
	if speed == 0 {
		speed = DefaultSpeed
	}
	if radius == 0 {
		radius = DefaultRadius
	}
	return &Session{
		Sequence: sequence.New(),
		Speed:    clamp(speed, MinSpeed, MaxSpeed),
		Radius:   clamp(radius, MinRadius, MaxRadius),
	}
}

// AdjustSpeed moves the speed by steps increments and returns the result.
func (s *Session) AdjustSpeed(steps int) float64 {
	s.Speed = clamp(s.Speed+float64(steps)*SpeedStep, MinSpeed, MaxSpeed)
	return s.Speed
}

// AdjustRadius moves the blend radius by steps increments and returns the result.
func (s *Session) AdjustRadius(steps int) float64 {
	s.Radius = clamp(s.Radius+float64(steps)*RadiusStep, MinRadius, MaxRadius)
	return s.Radius
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
