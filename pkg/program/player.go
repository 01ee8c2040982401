package program

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gwillem/armctl/pkg/arm"
	"github.com/gwillem/armctl/pkg/clock"
	"github.com/gwillem/armctl/pkg/sequence"
)

// Phase is a playback state.
type Phase int

const (
	PhaseDispatching Phase = iota
	PhaseDraining
	PhaseAwaitingReady
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseDispatching:
		return "DISPATCHING"
	case PhaseDraining:
		return "DRAINING"
	case PhaseAwaitingReady:
		return "AWAITING_READY"
	case PhaseDone:
		return "DONE"
	case PhaseFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

func (p Phase) verb() string {
	switch p {
	case PhaseDispatching:
		return "dispatching"
	case PhaseDraining:
		return "draining the command queue"
	case PhaseAwaitingReady:
		return "waiting for the arm to settle"
	default:
		return p.String()
	}
}

// Terminal reports whether p ends playback.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Transition is a phase change observed during playback. Depth is 0 for the
// top-level sequence and grows by one per include.
type Transition struct {
	Phase Phase
	Depth int
	Err   error
}

// Player is the playback supervisor.
type Player struct {
	arm      arm.Arm
	clock    clock.Clock
	log      logrus.FieldLogger
	interval time.Duration
	observer func(Transition)
	interp   *Interpreter
}

// New wires a Player and its Interpreter around a.
func New(a arm.Arm, opts Options) *Player {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Gripper == nil {
		opts.Gripper = &GripperCache{}
	}
	if opts.SettleDelay == 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.GripperPause == 0 {
		opts.GripperPause = DefaultGripperPause
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = DefaultPollInterval
	}

	p := &Player{
		arm:      a,
		clock:    opts.Clock,
		log:      opts.Logger,
		interval: opts.PollInterval,
		observer: opts.Observer,
	}
	p.interp = &Interpreter{
		arm:          a,
		clock:        opts.Clock,
		log:          opts.Logger,
		library:      opts.Library,
		gripper:      opts.Gripper,
		settleDelay:  opts.SettleDelay,
		gripperPause: opts.GripperPause,
		maxDepth:     opts.MaxIncludeDepth,
		player:       p,
	}
	return p
}

// Interpreter returns the interpreter the player dispatches through.
func (p *Player) Interpreter() *Interpreter {
	return p.interp
}

// Play runs seq to completion and blocks until the arm has drained its
// queue and settled. A nil error means DONE; otherwise the error is an
// *AbortError. Commands after a failure are not attempted.
//
// seq is read once up front; the caller may modify it afterwards.
func (p *Player) Play(ctx context.Context, seq *sequence.Sequence) error {
	return p.play(ctx, seq, 0)
}

func (p *Player) play(ctx context.Context, seq *sequence.Sequence, depth int) error {
	var cmds []sequence.Command
	if seq != nil {
		cmds = seq.Commands()
	}

	p.enter(PhaseDispatching, depth, nil)
	for i, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			return p.fail(PhaseDispatching, depth, err)
		}
		if err := p.interp.execute(ctx, cmd, depth); err != nil {
			var nested *AbortError
			if errors.As(err, &nested) {
				p.enter(PhaseFailed, depth, err)
				return err
			}
			return p.fail(PhaseDispatching, depth, fmt.Errorf("command %d (%s): %w", i+1, cmd, err))
		}
	}

	p.enter(PhaseDraining, depth, nil)
	for {
		n, err := p.arm.CommandCount(ctx)
		if err != nil {
			return p.fail(PhaseDraining, depth, fmt.Errorf("read command count: %w", err))
		}
		if err := p.checkFault(ctx); err != nil {
			return p.fail(PhaseDraining, depth, err)
		}
		if n == 0 {
			break
		}
		p.log.WithField("queued", n).Debug("Waiting for command queue to drain")
		if err := p.wait(ctx); err != nil {
			return p.fail(PhaseDraining, depth, err)
		}
	}

	p.log.WithField("depth", depth).Info("Waiting for arm to be ready")
	p.enter(PhaseAwaitingReady, depth, nil)
	for {
		st, err := p.arm.State(ctx)
		if err != nil {
			return p.fail(PhaseAwaitingReady, depth, fmt.Errorf("read state: %w", err))
		}
		if err := p.checkFault(ctx); err != nil {
			return p.fail(PhaseAwaitingReady, depth, err)
		}
		if st == arm.StateSettled {
			break
		}
		if err := p.wait(ctx); err != nil {
			return p.fail(PhaseAwaitingReady, depth, err)
		}
	}

	p.log.WithField("depth", depth).Info("Playback finished")
	p.enter(PhaseDone, depth, nil)
	return nil
}

func (p *Player) checkFault(ctx context.Context) error {
	fault, err := p.arm.HasErrorOrWarning(ctx)
	if err != nil {
		return fmt.Errorf("read fault state: %w", err)
	}
	if fault {
		return ErrArmFault
	}
	return nil
}

func (p *Player) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.clock.Sleep(p.interval)
	return ctx.Err()
}

func (p *Player) fail(phase Phase, depth int, err error) error {
	abort := &AbortError{Phase: phase, Depth: depth, Err: err}
	p.log.WithField("depth", depth).WithError(err).Error("Playback error, stopping playback")
	p.enter(PhaseFailed, depth, abort)
	return abort
}

func (p *Player) enter(phase Phase, depth int, err error) {
	p.log.WithFields(logrus.Fields{"phase": phase, "depth": depth}).Debug("Playback phase")
	if p.observer != nil {
		p.observer(Transition{Phase: phase, Depth: depth, Err: err})
	}
}
