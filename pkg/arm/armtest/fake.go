// Package armtest provides a scriptable, call-recording arm for tests.
package armtest

import (
	"context"
	"sync"
	"time"

	"github.com/gwillem/armctl/pkg/arm"
)

// Call is one recorded method invocation.
type Call struct {
	Method string
	Args   []any
}

// Fake implements arm.Arm in memory. Zero value is a disconnected arm;
// use New for a connected, healthy one.
type Fake struct {
	mu sync.Mutex

	calls []Call

	connected bool
	mode      arm.Mode
	state     arm.State
	ready     bool
	fault     bool
	pose      arm.Pose

	// Scripted replies, consumed front to back; the last entry repeats.
	queueDepths []int
	states      []arm.State
	faults      []bool

	errs map[string]error

	// OnCall runs after every recorded call, without the lock held.
	OnCall func(method string)
}

// New returns a connected, motion-ready fake in position mode.
func New() *Fake {
	return &Fake{
		connected: true,
		ready:     true,
		mode:      arm.ModePosition,
		state:     arm.StateSettled,
	}
}

// SetConnected sets the link state.
func (f *Fake) SetConnected(v bool) { f.mu.Lock(); f.connected = v; f.mu.Unlock() }

// SetReady sets the motion-ready flag.
func (f *Fake) SetReady(v bool) { f.mu.Lock(); f.ready = v; f.mu.Unlock() }

// SetFault sets the error/warning flag returned once the fault script is exhausted.
func (f *Fake) SetFault(v bool) { f.mu.Lock(); f.fault = v; f.faults = nil; f.mu.Unlock() }

// SetModeValue sets the reported mode without recording a call.
func (f *Fake) SetModeValue(m arm.Mode) { f.mu.Lock(); f.mode = m; f.mu.Unlock() }

// SetPose sets the pose returned by Position.
func (f *Fake) SetPose(p arm.Pose) { f.mu.Lock(); f.pose = p; f.mu.Unlock() }

// ScriptQueueDepths sets successive CommandCount replies.
func (f *Fake) ScriptQueueDepths(d ...int) { f.mu.Lock(); f.queueDepths = d; f.mu.Unlock() }

// ScriptStates sets successive State replies.
func (f *Fake) ScriptStates(s ...arm.State) { f.mu.Lock(); f.states = s; f.mu.Unlock() }

// ScriptFaults sets successive HasErrorOrWarning replies.
func (f *Fake) ScriptFaults(v ...bool) { f.mu.Lock(); f.faults = v; f.mu.Unlock() }

// FailOn makes method return err until cleared with a nil err.
func (f *Fake) FailOn(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errs == nil {
		f.errs = make(map[string]error)
	}
	if err == nil {
		delete(f.errs, method)
		return
	}
	f.errs[method] = err
}

// Calls returns a copy of every recorded call.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Methods returns the recorded method names in order.
func (f *Fake) Methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Method
	}
	return out
}

// Count returns how many times method was called.
func (f *Fake) Count(method string) int {
	n := 0
	for _, m := range f.Methods() {
		if m == method {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls.
func (f *Fake) Reset() { f.mu.Lock(); f.calls = nil; f.mu.Unlock() }

func (f *Fake) record(method string, args ...any) error {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: method, Args: args})
	err := f.errs[method]
	hook := f.OnCall
	f.mu.Unlock()
	if hook != nil {
		hook(method)
	}
	return err
}

func (f *Fake) Connect(ctx context.Context) error {
	if err := f.record("connect"); err != nil {
		return err
	}
	f.SetConnected(true)
	return nil
}

func (f *Fake) Disconnect() error {
	if err := f.record("disconnect"); err != nil {
		return err
	}
	f.SetConnected(false)
	return nil
}

func (f *Fake) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *Fake) MotionReady(ctx context.Context) (bool, error) {
	if err := f.record("motion_ready"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready, nil
}

func (f *Fake) HasErrorOrWarning(ctx context.Context) (bool, error) {
	if err := f.record("has_error_or_warning"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.faults) > 0 {
		v := f.faults[0]
		if len(f.faults) > 1 {
			f.faults = f.faults[1:]
		}
		return v, nil
	}
	return f.fault, nil
}

func (f *Fake) CleanError(ctx context.Context) error {
	if err := f.record("clean_error"); err != nil {
		return err
	}
	f.mu.Lock()
	f.fault = false
	f.faults = nil
	f.mu.Unlock()
	return nil
}

func (f *Fake) CleanWarn(ctx context.Context) error { return f.record("clean_warn") }

func (f *Fake) MotionEnable(ctx context.Context, enable bool) error {
	if err := f.record("motion_enable", enable); err != nil {
		return err
	}
	f.SetReady(enable)
	return nil
}

func (f *Fake) Mode(ctx context.Context) (arm.Mode, error) {
	if err := f.record("mode"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode, nil
}

func (f *Fake) SetMode(ctx context.Context, m arm.Mode) error {
	if err := f.record("set_mode", m); err != nil {
		return err
	}
	f.SetModeValue(m)
	return nil
}

func (f *Fake) State(ctx context.Context) (arm.State, error) {
	if err := f.record("state"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.states) > 0 {
		s := f.states[0]
		if len(f.states) > 1 {
			f.states = f.states[1:]
		}
		return s, nil
	}
	return f.state, nil
}

func (f *Fake) SetState(ctx context.Context, s arm.State) error {
	return f.record("set_state", s)
}

func (f *Fake) SetToolOffset(ctx context.Context, offset arm.Pose) error {
	return f.record("set_tool_offset", offset)
}

func (f *Fake) SetToolPayload(ctx context.Context, p arm.Payload) error {
	return f.record("set_tool_payload", p)
}

func (f *Fake) OpenGripper(ctx context.Context) error  { return f.record("open_gripper") }
func (f *Fake) CloseGripper(ctx context.Context) error { return f.record("close_gripper") }
func (f *Fake) StopGripper(ctx context.Context) error  { return f.record("stop_gripper") }

func (f *Fake) SetPosition(ctx context.Context, p arm.Pose, radius, speed float64) error {
	return f.record("set_position", p, radius, speed)
}

func (f *Fake) SetCartesianVelocity(ctx context.Context, v arm.Velocity, duration time.Duration) error {
	return f.record("set_cartesian_velocity", v, duration)
}

func (f *Fake) SetPauseTime(ctx context.Context, d time.Duration) error {
	return f.record("set_pause_time", d)
}

func (f *Fake) Position(ctx context.Context) (arm.Pose, error) {
	if err := f.record("position"); err != nil {
		return arm.Pose{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pose, nil
}

func (f *Fake) CommandCount(ctx context.Context) (int, error) {
	if err := f.record("command_count"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queueDepths) > 0 {
		d := f.queueDepths[0]
		if len(f.queueDepths) > 1 {
			f.queueDepths = f.queueDepths[1:]
		}
		return d, nil
	}
	return 0, nil
}

var _ arm.Arm = (*Fake)(nil)
