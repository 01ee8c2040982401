// Package arm defines the capability surface the controller needs from a
// robot arm. The arm itself (kinematics, fault detection, transport) lives
// behind these interfaces; see the sim and bridge subpackages for
// implementations.
package arm

import (
	"context"
	"strconv"
	"time"

	"github.com/golang/geo/r3"
)

// Mode is the arm's operating mode.
type Mode int

const (
	// ModePosition accepts queued discrete motion commands.
	ModePosition Mode = 0
	// ModeCartesianVelocity accepts continuous Cartesian velocity commands.
	ModeCartesianVelocity Mode = 5
)

func (m Mode) String() string {
	switch m {
	case ModePosition:
		return "position"
	case ModeCartesianVelocity:
		return "cartesian-velocity"
	default:
		return "mode-" + strconv.Itoa(int(m))
	}
}

// State is the arm's motion state. StateStart is written to make the arm
// accept motion; StateSettled is what it reports once queued motion has
// finished and it is commandable again.
type State int

const (
	StateStart   State = 0
	StateMoving  State = 1
	StateSettled State = 2
	StatePaused  State = 3
	StateStopped State = 4
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateMoving:
		return "moving"
	case StateSettled:
		return "settled"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "state-" + strconv.Itoa(int(s))
	}
}

// Pose is a Cartesian pose. Lengths are millimetres, angles degrees.
type Pose struct {
	X, Y, Z          float64
	Roll, Pitch, Yaw float64
}

// Translation returns the positional part of the pose.
func (p Pose) Translation() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}

// Values returns the pose as x, y, z, roll, pitch, yaw.
func (p Pose) Values() [6]float64 {
	return [6]float64{p.X, p.Y, p.Z, p.Roll, p.Pitch, p.Yaw}
}

// PoseFromValues builds a pose from x, y, z, roll, pitch, yaw.
func PoseFromValues(v [6]float64) Pose {
	return Pose{X: v[0], Y: v[1], Z: v[2], Roll: v[3], Pitch: v[4], Yaw: v[5]}
}

// Velocity is a Cartesian velocity: mm/s for Linear, deg/s for Angular.
type Velocity struct {
	Linear  r3.Vector
	Angular r3.Vector
}

// Values returns vx, vy, vz, vroll, vpitch, vyaw.
func (v Velocity) Values() [6]float64 {
	return [6]float64{v.Linear.X, v.Linear.Y, v.Linear.Z, v.Angular.X, v.Angular.Y, v.Angular.Z}
}

// L1 returns the sum of the absolute values of all six components.
func (v Velocity) L1() float64 {
	l, a := v.Linear.Abs(), v.Angular.Abs()
	return l.X + l.Y + l.Z + a.X + a.Y + a.Z
}

// IsZero reports whether every component is zero.
func (v Velocity) IsZero() bool {
	return v.L1() == 0
}

// Payload describes the mass carried by the tool.
type Payload struct {
	Mass            float64   // kg
	CenterOfGravity r3.Vector // mm, tool frame
}

// Link manages the connection to the arm controller.
type Link interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Connected() bool
}

// Health reports and clears faults.
type Health interface {
	// MotionReady reports whether the arm is enabled and free of faults.
	MotionReady(ctx context.Context) (bool, error)
	HasErrorOrWarning(ctx context.Context) (bool, error)
	CleanError(ctx context.Context) error
	CleanWarn(ctx context.Context) error
	MotionEnable(ctx context.Context, enable bool) error
}

// Modes reads and switches operating mode and motion state.
type Modes interface {
	Mode(ctx context.Context) (Mode, error)
	SetMode(ctx context.Context, m Mode) error
	State(ctx context.Context) (State, error)
	SetState(ctx context.Context, s State) error
}

// Tool applies end-effector calibration.
type Tool interface {
	SetToolOffset(ctx context.Context, offset Pose) error
	SetToolPayload(ctx context.Context, p Payload) error
}

// Gripper actuates the end-effector gripper.
type Gripper interface {
	OpenGripper(ctx context.Context) error
	CloseGripper(ctx context.Context) error
	StopGripper(ctx context.Context) error
}

// Motion issues and observes motion.
type Motion interface {
	// SetPosition queues an absolute move and returns without waiting for it.
	SetPosition(ctx context.Context, p Pose, radius, speed float64) error
	// SetCartesianVelocity commands a velocity that decays to zero if no
	// successor arrives within duration.
	SetCartesianVelocity(ctx context.Context, v Velocity, duration time.Duration) error
	// SetPauseTime sets the pause inserted before the next queued command.
	SetPauseTime(ctx context.Context, d time.Duration) error
	Position(ctx context.Context) (Pose, error)
	// CommandCount returns the number of commands still queued on the arm.
	CommandCount(ctx context.Context) (int, error)
}

// Arm is the full collaborator used by the controller.
type Arm interface {
	Link
	Health
	Modes
	Tool
	Gripper
	Motion
}
