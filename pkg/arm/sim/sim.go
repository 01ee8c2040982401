// Package sim is an in-process arm for dry runs. Motion commands queue up
// and complete as the injected clock advances; velocity commands integrate
// the pose until their duration runs out.
package sim

import (
	"context"
	"sync"
	"time"

	"github.com/gwillem/armctl/pkg/arm"
	"github.com/gwillem/armctl/pkg/clock"
)

// Fault codes raised by the simulator.
const (
	CodeUnreachable arm.Code = 31
	CodeWrongMode   arm.Code = 9
	CodeNotReady    arm.Code = 1
)

// DefaultReach is the distance from the base the simulated arm can reach, in mm.
const DefaultReach = 440.0

type job struct {
	duration time.Duration
	target   *arm.Pose
}

// Arm is a simulated arm.
type Arm struct {
	mu    sync.Mutex
	clock clock.Clock
	reach float64

	connected bool
	ready     bool
	fault     arm.Code
	mode      arm.Mode
	stopped   bool

	pose    arm.Pose
	offset  arm.Pose
	payload arm.Payload

	queue    []job
	jobStart time.Time

	velocity    arm.Velocity
	velocityEnd time.Time
	lastUpdate  time.Time
}

// New returns a disconnected simulator at the home pose.
func New(c clock.Clock) *Arm {
	if c == nil {
		c = clock.Real{}
	}
	return &Arm{
		clock:   c,
		reach:   DefaultReach,
		mode:    arm.ModePosition,
		stopped: true,
		pose:    arm.Pose{X: 200, Z: 200, Roll: 180},
	}
}

// InjectFault raises a controller error; motion stops and the arm stays
// unusable until the error is cleaned and motion re-enabled.
func (a *Arm) InjectFault(code arm.Code) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.raise(code)
}

// Tool returns the last tool offset and payload applied.
func (a *Arm) Tool() (arm.Pose, arm.Payload) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.offset, a.payload
}

func (a *Arm) raise(code arm.Code) {
	a.fault = code
	a.ready = false
	a.queue = nil
	a.velocity = arm.Velocity{}
}

// update advances the simulation to the current clock reading. Callers hold mu.
func (a *Arm) update() {
	now := a.clock.Now()
	if a.lastUpdate.IsZero() {
		a.lastUpdate = now
	}

	if !a.velocity.IsZero() {
		end := now
		if a.velocityEnd.Before(now) {
			end = a.velocityEnd
		}
		if dt := end.Sub(a.lastUpdate).Seconds(); dt > 0 {
			a.integrate(dt)
		}
		if !a.velocityEnd.After(now) {
			a.velocity = arm.Velocity{}
		}
	}
	a.lastUpdate = now

	for len(a.queue) > 0 {
		j := a.queue[0]
		done := a.jobStart.Add(j.duration)
		if done.After(now) {
			break
		}
		if j.target != nil {
			a.pose = *j.target
		}
		a.queue = a.queue[1:]
		a.jobStart = done
	}
}

func (a *Arm) integrate(dt float64) {
	t := a.pose.Translation().Add(a.velocity.Linear.Mul(dt))
	if t.Norm() > a.reach {
		a.raise(CodeUnreachable)
		return
	}
	a.pose.X, a.pose.Y, a.pose.Z = t.X, t.Y, t.Z
	a.pose.Roll += a.velocity.Angular.X * dt
	a.pose.Pitch += a.velocity.Angular.Y * dt
	a.pose.Yaw += a.velocity.Angular.Z * dt
}

func (a *Arm) enqueue(j job) {
	if len(a.queue) == 0 {
		a.jobStart = a.clock.Now()
	}
	a.queue = append(a.queue, j)
}

// endPose is where the arm will be once the queue is empty.
func (a *Arm) endPose() arm.Pose {
	p := a.pose
	for _, j := range a.queue {
		if j.target != nil {
			p = *j.target
		}
	}
	return p
}

// lock takes mu and advances the simulation. On a dropped link it
// releases mu again and returns ErrNotConnected.
func (a *Arm) lock() error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return arm.ErrNotConnected
	}
	a.update()
	return nil
}

// accepting reports an error when the arm cannot take queued commands.
func (a *Arm) accepting(op string) error {
	if a.fault != 0 || !a.ready || a.stopped {
		return arm.Check(op, CodeNotReady)
	}
	return nil
}

// usable is accepting plus a mode requirement.
func (a *Arm) usable(op string, mode arm.Mode) error {
	if err := a.accepting(op); err != nil {
		return err
	}
	if a.mode != mode {
		return arm.Check(op, CodeWrongMode)
	}
	return nil
}

func (a *Arm) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = true
	a.lastUpdate = a.clock.Now()
	return nil
}

func (a *Arm) Disconnect() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = false
	a.queue = nil
	a.velocity = arm.Velocity{}
	return nil
}

func (a *Arm) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

func (a *Arm) MotionReady(ctx context.Context) (bool, error) {
	if err := a.lock(); err != nil {
		return false, err
	}
	defer a.mu.Unlock()
	return a.ready && a.fault == 0, nil
}

func (a *Arm) HasErrorOrWarning(ctx context.Context) (bool, error) {
	if err := a.lock(); err != nil {
		return false, err
	}
	defer a.mu.Unlock()
	return a.fault != 0, nil
}

func (a *Arm) CleanError(ctx context.Context) error {
	if err := a.lock(); err != nil {
		return err
	}
	defer a.mu.Unlock()
	a.fault = 0
	return nil
}

func (a *Arm) CleanWarn(ctx context.Context) error {
	if err := a.lock(); err != nil {
		return err
	}
	a.mu.Unlock()
	return nil
}

func (a *Arm) MotionEnable(ctx context.Context, enable bool) error {
	if err := a.lock(); err != nil {
		return err
	}
	defer a.mu.Unlock()
	if enable && a.fault != 0 {
		return arm.Check("motion_enable", a.fault)
	}
	a.ready = enable
	return nil
}

func (a *Arm) Mode(ctx context.Context) (arm.Mode, error) {
	if err := a.lock(); err != nil {
		return 0, err
	}
	defer a.mu.Unlock()
	return a.mode, nil
}

// SetMode changes mode and stops the arm; SetState(StateStart) resumes it.
func (a *Arm) SetMode(ctx context.Context, m arm.Mode) error {
	if err := a.lock(); err != nil {
		return err
	}
	defer a.mu.Unlock()
	if m != arm.ModePosition && m != arm.ModeCartesianVelocity {
		return arm.Check("set_mode", CodeWrongMode)
	}
	a.mode = m
	a.stopped = true
	a.queue = nil
	a.velocity = arm.Velocity{}
	return nil
}

func (a *Arm) State(ctx context.Context) (arm.State, error) {
	if err := a.lock(); err != nil {
		return 0, err
	}
	defer a.mu.Unlock()
	switch {
	case a.stopped || a.fault != 0:
		return arm.StateStopped, nil
	case len(a.queue) > 0 || !a.velocity.IsZero():
		return arm.StateMoving, nil
	default:
		return arm.StateSettled, nil
	}
}

func (a *Arm) SetState(ctx context.Context, s arm.State) error {
	if err := a.lock(); err != nil {
		return err
	}
	defer a.mu.Unlock()
	switch s {
	case arm.StateStart:
		a.stopped = false
	case arm.StateStopped:
		a.stopped = true
		a.queue = nil
		a.velocity = arm.Velocity{}
	}
	return nil
}

func (a *Arm) SetToolOffset(ctx context.Context, offset arm.Pose) error {
	if err := a.lock(); err != nil {
		return err
	}
	defer a.mu.Unlock()
	a.offset = offset
	return nil
}

func (a *Arm) SetToolPayload(ctx context.Context, p arm.Payload) error {
	if err := a.lock(); err != nil {
		return err
	}
	defer a.mu.Unlock()
	a.payload = p
	return nil
}

// Gripper commands act immediately.
func (a *Arm) OpenGripper(ctx context.Context) error  { return a.gripper() }
func (a *Arm) CloseGripper(ctx context.Context) error { return a.gripper() }
func (a *Arm) StopGripper(ctx context.Context) error  { return a.gripper() }

func (a *Arm) gripper() error {
	if err := a.lock(); err != nil {
		return err
	}
	a.mu.Unlock()
	return nil
}

// SetPosition queues a linear move. The move takes distance/speed seconds.
func (a *Arm) SetPosition(ctx context.Context, p arm.Pose, radius, speed float64) error {
	if err := a.lock(); err != nil {
		return err
	}
	defer a.mu.Unlock()
	if err := a.usable("set_position", arm.ModePosition); err != nil {
		return err
	}
	if p.Translation().Norm() > a.reach {
		a.raise(CodeUnreachable)
		return arm.Check("set_position", CodeUnreachable)
	}
	if speed <= 0 {
		speed = 100
	}
	dist := a.endPose().Translation().Distance(p.Translation())
	target := p
	a.enqueue(job{duration: time.Duration(dist / speed * float64(time.Second)), target: &target})
	return nil
}

// SetPauseTime queues a pause in any mode.
func (a *Arm) SetPauseTime(ctx context.Context, d time.Duration) error {
	if err := a.lock(); err != nil {
		return err
	}
	defer a.mu.Unlock()
	if err := a.accepting("set_pause_time"); err != nil {
		return err
	}
	a.enqueue(job{duration: d})
	return nil
}

func (a *Arm) SetCartesianVelocity(ctx context.Context, v arm.Velocity, d time.Duration) error {
	if err := a.lock(); err != nil {
		return err
	}
	defer a.mu.Unlock()
	if err := a.usable("vc_set_cartesian_velocity", arm.ModeCartesianVelocity); err != nil {
		return err
	}
	a.velocity = v
	a.velocityEnd = a.clock.Now().Add(d)
	return nil
}

func (a *Arm) Position(ctx context.Context) (arm.Pose, error) {
	if err := a.lock(); err != nil {
		return arm.Pose{}, err
	}
	defer a.mu.Unlock()
	return a.pose, nil
}

func (a *Arm) CommandCount(ctx context.Context) (int, error) {
	if err := a.lock(); err != nil {
		return 0, err
	}
	defer a.mu.Unlock()
	return len(a.queue), nil
}

var _ arm.Arm = (*Arm)(nil)

