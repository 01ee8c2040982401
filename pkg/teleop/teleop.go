// Package teleop runs the operator session: a fixed-period loop that keeps
// the arm connected and healthy, executes operator actions, and otherwise
// streams 6-axis input to the arm as cartesian velocity.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gwillem/armctl/pkg/arm"
	"github.com/gwillem/armctl/pkg/clock"
	"github.com/gwillem/armctl/pkg/input"
	"github.com/gwillem/armctl/pkg/program"
	"github.com/gwillem/armctl/pkg/sequence"
)

// ErrQuit is returned by Run when the operator ends the session.
var ErrQuit = errors.New("session ended by operator")

const (
	// DefaultPeriod is the control loop cycle time.
	DefaultPeriod = 50 * time.Millisecond
	// DiscardWindow is how long input is read and thrown away after the arm
	// changes mode, so buffered motion is not replayed.
	DiscardWindow = 1 * time.Second
	drainTick     = 5 * time.Millisecond
)

// State is a snapshot published once per cycle.
type State struct {
	Timestamp time.Time
	Arm       arm.RuntimeState
	Velocity  arm.Velocity
	Speed     float64
	Radius    float64
	Steps     int
	Gripper   program.GripperState
	Phase     program.Phase
	Playing   bool
	Error     error
}

// Config holds the collaborators and settings of a Controller.
type Config struct {
	Arm arm.Arm
	// Motion is the 6-axis source; nil disables teleoperation.
	Motion   input.Continuous
	Actions  input.Discrete
	Prompter input.Prompter
	Store    sequence.Store

	ToolOffset  arm.Pose
	ToolPayload arm.Payload

	Multiplier      float64
	Speed           float64
	Radius          float64
	MaxIncludeDepth int
	Period          time.Duration

	Clock  clock.Clock
	Logger logrus.FieldLogger
}

// Controller manages the operator session loop.
type Controller struct {
	arm      arm.Arm
	motion   input.Continuous
	actions  input.Discrete
	prompter input.Prompter
	store    sequence.Store
	offset   arm.Pose
	payload  arm.Payload
	period   time.Duration
	clock    clock.Clock
	log      logrus.FieldLogger

	session *Session
	mapper  *Mapper
	gripper *program.GripperCache
	player  *program.Player

	runtime arm.RuntimeState
	phase   program.Phase
	playing bool

	mu      sync.Mutex
	running bool
	stateCh chan State
}

// NewController wires a controller. Arm and Actions are required.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Arm == nil {
		return nil, errors.New("no arm configured")
	}
	if cfg.Actions == nil {
		return nil, errors.New("no discrete input configured")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}

	c := &Controller{
		arm:      cfg.Arm,
		motion:   cfg.Motion,
		actions:  cfg.Actions,
		prompter: cfg.Prompter,
		store:    cfg.Store,
		offset:   cfg.ToolOffset,
		payload:  cfg.ToolPayload,
		period:   cfg.Period,
		clock:    cfg.Clock,
		log:      cfg.Logger,
		session:  NewSession(cfg.Speed, cfg.Radius),
		mapper:   NewMapper(cfg.Multiplier),
		gripper:  &program.GripperCache{},
		phase:    program.PhaseDone,
		stateCh:  make(chan State, 1),
	}
	c.player = program.New(cfg.Arm, program.Options{
		Clock:           cfg.Clock,
		Logger:          cfg.Logger,
		Library:         cfg.Store,
		Gripper:         c.gripper,
		MaxIncludeDepth: cfg.MaxIncludeDepth,
		Observer:        c.observe,
	})
	return c, nil
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Session returns the authoring state. It must only be touched from the
// goroutine running the loop, or after Run returned.
func (c *Controller) Session() *Session {
	return c.session
}

// Gripper returns the gripper cache shared with playback.
func (c *Controller) Gripper() *program.GripperCache {
	return c.gripper
}

// Period returns the cycle time.
func (c *Controller) Period() time.Duration {
	return c.period
}

// Run executes cycles until ctx is cancelled or the operator quits, then
// disconnects the arm. It returns ctx.Err() or ErrQuit.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()
	defer c.shutdown()

	c.log.WithField("period", c.period).Info("Session started")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.Cycle(ctx); err != nil {
			return err
		}
	}
}

// Cycle runs one iteration: exactly one of reconnect, recover, operator
// action or teleoperation, followed by pacing to the cycle period. Only
// ErrQuit and context errors are returned; everything else is logged.
func (c *Controller) Cycle(ctx context.Context) error {
	start := c.clock.Now()
	err := c.branch(ctx)
	c.sendState(State{Error: err})
	if err != nil {
		return err
	}
	c.pace(start)
	return nil
}

func (c *Controller) branch(ctx context.Context) error {
	if !c.arm.Connected() {
		c.runtime = arm.RuntimeState{}
		c.log.Warn("Arm not connected, connecting")
		c.gripper.Reset()
		c.mapper.Reset()
		if err := c.arm.Connect(ctx); err != nil {
			c.log.WithError(err).Error("Connect failed")
		}
		return ctx.Err()
	}

	st, err := arm.ReadState(ctx, c.arm)
	c.runtime = st
	if err != nil || !st.MotionReady || st.FaultPresent {
		if err != nil {
			c.log.WithError(err).Warn("Reading arm state failed")
		}
		c.reset(ctx)
		return ctx.Err()
	}

	if a, ok := c.actions.Poll(); ok {
		return c.dispatch(ctx, a)
	}

	if c.motion != nil {
		c.teleoperate(ctx, st)
	}
	return nil
}

// reset clears faults, re-arms motion and puts the arm back into
// velocity mode with the configured tool. Every step runs even when an
// earlier one fails.
func (c *Controller) reset(ctx context.Context) {
	c.log.Warn("Arm not ready, resetting")
	steps := []struct {
		name string
		fn   func() error
	}{
		{"clean error", func() error { return c.arm.CleanError(ctx) }},
		{"clean warning", func() error { return c.arm.CleanWarn(ctx) }},
		{"enable motion", func() error { return c.arm.MotionEnable(ctx, true) }},
		{"discard input", func() error { c.drain(DiscardWindow); return nil }},
		{"set tool offset", func() error { return c.arm.SetToolOffset(ctx, c.offset) }},
		{"set tool payload", func() error { return c.arm.SetToolPayload(ctx, c.payload) }},
		{"set velocity mode", func() error { return c.arm.SetMode(ctx, arm.ModeCartesianVelocity) }},
		{"set state", func() error { return c.arm.SetState(ctx, arm.StateStart) }},
	}
	failed := 0
	for _, s := range steps {
		if err := s.fn(); err != nil {
			c.log.WithError(err).Errorf("Reset step failed: %s", s.name)
			failed++
		}
	}
	c.mapper.Reset()
	if failed > 0 {
		c.log.WithField("failed", failed).Warn("Reset incomplete, retrying next cycle")
		return
	}
	c.log.Info("Done resetting")
}

func (c *Controller) teleoperate(ctx context.Context, st arm.RuntimeState) {
	if st.Mode != arm.ModeCartesianVelocity {
		c.log.WithField("mode", st.Mode).Info("Switching to velocity mode")
		if err := c.arm.SetMode(ctx, arm.ModeCartesianVelocity); err != nil {
			c.log.WithError(err).Error("Set velocity mode failed")
			return
		}
		if err := c.arm.SetState(ctx, arm.StateStart); err != nil {
			c.log.WithError(err).Error("Set state failed")
			return
		}
		c.drain(DiscardWindow)
		c.mapper.Reset()
		return
	}

	s, err := c.motion.Read()
	if err != nil {
		c.log.WithError(err).Warn("Reading motion input failed")
		return
	}
	v, sent, err := c.mapper.Step(ctx, c.arm, s)
	if err != nil {
		c.log.WithError(err).Error("Set velocity failed")
		return
	}
	if sent {
		c.log.Debugf("Setting velocity: %v", v.Values())
	}
}

// drain reads and discards motion input for d.
func (c *Controller) drain(d time.Duration) {
	start := c.clock.Now()
	for {
		c.discard()
		left := d - clock.Since(c.clock, start)
		if left <= 0 {
			return
		}
		c.clock.Sleep(min(left, drainTick))
	}
}

// pace waits out the rest of the cycle while draining input.
func (c *Controller) pace(start time.Time) {
	c.drain(c.period - clock.Since(c.clock, start))
}

func (c *Controller) discard() {
	if c.motion != nil {
		_, _ = c.motion.Read()
	}
}

func (c *Controller) observe(t program.Transition) {
	if t.Depth == 0 {
		c.phase = t.Phase
	}
	c.sendState(State{})
}

func (c *Controller) sendState(s State) {
	s.Timestamp = c.clock.Now()
	s.Arm = c.runtime
	s.Velocity = c.mapper.Last()
	s.Speed = c.session.Speed
	s.Radius = c.session.Radius
	s.Steps = c.session.Sequence.Len()
	s.Gripper = c.gripper.State()
	s.Phase = c.phase
	s.Playing = c.playing

	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	if err := c.arm.Disconnect(); err != nil {
		c.log.WithError(err).Warn("Disconnect failed")
	} else {
		c.log.Info("Arm disconnected")
	}
	c.log.Info("Session stopped")
}
