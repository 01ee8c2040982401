// Package program executes recorded sequences against an arm.
//
// The Interpreter runs one command at a time. The Player drives a whole
// sequence: it dispatches every command back to back, waits for the arm's
// command queue to drain, then waits for the arm to settle.
package program

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gwillem/armctl/pkg/arm"
	"github.com/gwillem/armctl/pkg/clock"
	"github.com/gwillem/armctl/pkg/sequence"
)

// Default timings.
const (
	DefaultSettleDelay     = 1 * time.Second
	DefaultGripperPause    = 1 * time.Second
	DefaultPollInterval    = 500 * time.Millisecond
	DefaultMaxIncludeDepth = 16
)

// Library resolves include names to sequences.
type Library interface {
	Load(name string) (*sequence.Sequence, error)
}

// Options configures a Player and its Interpreter. Zero durations take the
// defaults above. MaxIncludeDepth zero means unlimited nesting.
type Options struct {
	Clock           clock.Clock
	Logger          logrus.FieldLogger
	Library         Library
	Gripper         *GripperCache
	SettleDelay     time.Duration
	GripperPause    time.Duration
	PollInterval    time.Duration
	MaxIncludeDepth int
	// Observer, if set, is called on every playback phase change.
	Observer func(Transition)
}

// Interpreter executes single commands.
type Interpreter struct {
	arm          arm.Arm
	clock        clock.Clock
	log          logrus.FieldLogger
	library      Library
	gripper      *GripperCache
	settleDelay  time.Duration
	gripperPause time.Duration
	maxDepth     int
	player       *Player
}

// Execute runs cmd. It returns once the action has been issued; motion is
// not awaited. Errors from the arm are returned as is.
func (in *Interpreter) Execute(ctx context.Context, cmd sequence.Command) error {
	return in.execute(ctx, cmd, 0)
}

// Gripper returns the gripper cache the interpreter consults.
func (in *Interpreter) Gripper() *GripperCache {
	return in.gripper
}

func (in *Interpreter) execute(ctx context.Context, cmd sequence.Command, depth int) error {
	switch cmd.(type) {
	case sequence.MoveTo, sequence.Gripper, sequence.Pause, sequence.Include:
	default:
		return fmt.Errorf("%w: %T", sequence.ErrUnknownCommand, cmd)
	}

	in.log.WithField("depth", depth).Infof("Executing: %s", cmd)

	g, isGripper := cmd.(sequence.Gripper)
	if !isGripper {
		if err := in.ensurePositionMode(ctx); err != nil {
			return err
		}
	}

	switch c := cmd.(type) {
	case sequence.Gripper:
		return in.actuate(ctx, g.Action)
	case sequence.Pause:
		return in.arm.SetPauseTime(ctx, c.Duration())
	case sequence.Include:
		return in.include(ctx, c, depth)
	case sequence.MoveTo:
		return in.arm.SetPosition(ctx, c.Pose, c.Radius, c.Speed)
	}
	return nil
}

// ensurePositionMode switches the arm into position mode when it is in any
// other mode, then lets the transition settle.
func (in *Interpreter) ensurePositionMode(ctx context.Context) error {
	mode, err := in.arm.Mode(ctx)
	if err != nil {
		return fmt.Errorf("read mode: %w", err)
	}
	if mode == arm.ModePosition {
		return nil
	}
	in.log.WithField("mode", mode).Debug("Switching to position mode")
	if err := in.arm.SetMode(ctx, arm.ModePosition); err != nil {
		return fmt.Errorf("set position mode: %w", err)
	}
	if err := in.arm.SetState(ctx, arm.StateStart); err != nil {
		return fmt.Errorf("set state: %w", err)
	}
	in.clock.Sleep(in.settleDelay)
	return nil
}

func (in *Interpreter) actuate(ctx context.Context, action sequence.GripperAction) error {
	want := gripperStateFor(action)
	if want == GripperUnknown {
		return fmt.Errorf("%w: gripper action %q", sequence.ErrUnknownCommand, action)
	}
	if in.gripper.State() == want {
		in.log.WithField("gripper", want).Debug("Gripper already in requested state")
		return nil
	}

	var err error
	switch action {
	case sequence.GripperOpen:
		err = in.arm.OpenGripper(ctx)
	case sequence.GripperClose:
		err = in.arm.CloseGripper(ctx)
	case sequence.GripperStop:
		err = in.arm.StopGripper(ctx)
	}
	if err != nil {
		return fmt.Errorf("gripper %s: %w", action, err)
	}
	in.gripper.Set(want)

	if err := in.arm.SetPauseTime(ctx, in.gripperPause); err != nil {
		return fmt.Errorf("gripper pause: %w", err)
	}
	return nil
}

func (in *Interpreter) include(ctx context.Context, inc sequence.Include, depth int) error {
	if in.maxDepth > 0 && depth >= in.maxDepth {
		return fmt.Errorf("%w: %q would nest %d levels (limit %d)", ErrIncludeDepth, inc.Name, depth+1, in.maxDepth)
	}
	if in.library == nil {
		return fmt.Errorf("include %q: %w", inc.Name, ErrNoLibrary)
	}
	sub, err := in.library.Load(inc.Name)
	if err != nil {
		return fmt.Errorf("include %q: %w", inc.Name, err)
	}
	return in.player.play(ctx, sub, depth+1)
}
