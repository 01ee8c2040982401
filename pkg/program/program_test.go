package program

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/armctl/pkg/arm"
	"github.com/gwillem/armctl/pkg/arm/armtest"
	"github.com/gwillem/armctl/pkg/clock"
	"github.com/gwillem/armctl/pkg/sequence"
)

type mapLibrary map[string]*sequence.Sequence

func (m mapLibrary) Load(name string) (*sequence.Sequence, error) {
	s, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("no sequence %q", name)
	}
	return s, nil
}

func newPlayer(t *testing.T, a arm.Arm, opts Options) (*Player, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake()
	logger, _ := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	opts.Clock = clk
	opts.Logger = logger
	return New(a, opts), clk
}

var home = sequence.MoveTo{Pose: arm.Pose{X: 300, Z: 200, Roll: 180}, Radius: 10, Speed: 100}

func TestExecute_GripperIsIdempotent(t *testing.T) {
	a := armtest.New()
	p, clk := newPlayer(t, a, Options{})
	in := p.Interpreter()
	ctx := context.Background()

	closeCmd := sequence.Gripper{Action: sequence.GripperClose}
	require.NoError(t, in.Execute(ctx, closeCmd))
	require.NoError(t, in.Execute(ctx, closeCmd))

	assert.Equal(t, []string{"close_gripper", "set_pause_time"}, a.Methods())
	assert.Equal(t, GripperClosed, in.Gripper().State())
	assert.Empty(t, clk.Sleeps())

	require.NoError(t, in.Execute(ctx, sequence.Gripper{Action: sequence.GripperOpen}))
	assert.Equal(t, 1, a.Count("open_gripper"))
	assert.Equal(t, GripperOpen, in.Gripper().State())
}

func TestExecute_GripperSkipsModeCheck(t *testing.T) {
	a := armtest.New()
	a.SetModeValue(arm.ModeCartesianVelocity)
	p, _ := newPlayer(t, a, Options{})

	require.NoError(t, p.Interpreter().Execute(context.Background(), sequence.Gripper{Action: sequence.GripperStop}))

	assert.Zero(t, a.Count("mode"))
	assert.Zero(t, a.Count("set_mode"))
	assert.Equal(t, 1, a.Count("stop_gripper"))
	calls := a.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []any{DefaultGripperPause}, calls[1].Args)
}

func TestExecute_GripperResetForgetsState(t *testing.T) {
	a := armtest.New()
	p, _ := newPlayer(t, a, Options{})
	in := p.Interpreter()
	ctx := context.Background()

	openCmd := sequence.Gripper{Action: sequence.GripperOpen}
	require.NoError(t, in.Execute(ctx, openCmd))
	in.Gripper().Reset()
	require.NoError(t, in.Execute(ctx, openCmd))

	assert.Equal(t, 2, a.Count("open_gripper"))
}

func TestExecute_GripperFailureLeavesCache(t *testing.T) {
	a := armtest.New()
	a.FailOn("close_gripper", &arm.CodeError{Op: "close_gripper", Code: 3})
	p, _ := newPlayer(t, a, Options{})
	in := p.Interpreter()

	err := in.Execute(context.Background(), sequence.Gripper{Action: sequence.GripperClose})
	require.Error(t, err)
	assert.Equal(t, arm.Code(3), arm.StatusCode(err))
	assert.Equal(t, GripperUnknown, in.Gripper().State())
}

func TestExecute_ModePrecondition(t *testing.T) {
	tests := []struct {
		name      string
		mode      arm.Mode
		cmd       sequence.Command
		wantCalls []string
		wantSleep []time.Duration
	}{
		{
			name:      "move in position mode",
			mode:      arm.ModePosition,
			cmd:       home,
			wantCalls: []string{"mode", "set_position"},
		},
		{
			name:      "move in velocity mode",
			mode:      arm.ModeCartesianVelocity,
			cmd:       home,
			wantCalls: []string{"mode", "set_mode", "set_state", "set_position"},
			wantSleep: []time.Duration{DefaultSettleDelay},
		},
		{
			name:      "pause in velocity mode",
			mode:      arm.ModeCartesianVelocity,
			cmd:       sequence.Pause{Seconds: 2.5},
			wantCalls: []string{"mode", "set_mode", "set_state", "set_pause_time"},
			wantSleep: []time.Duration{DefaultSettleDelay},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := armtest.New()
			a.SetModeValue(tt.mode)
			p, clk := newPlayer(t, a, Options{})

			require.NoError(t, p.Interpreter().Execute(context.Background(), tt.cmd))
			assert.Equal(t, tt.wantCalls, a.Methods())
			if tt.wantSleep == nil {
				assert.Empty(t, clk.Sleeps())
			} else {
				assert.Equal(t, tt.wantSleep, clk.Sleeps())
			}
		})
	}
}

func TestExecute_ModeCheckedEveryCall(t *testing.T) {
	a := armtest.New()
	p, clk := newPlayer(t, a, Options{})
	in := p.Interpreter()
	ctx := context.Background()

	require.NoError(t, in.Execute(ctx, home))
	a.SetModeValue(arm.ModeCartesianVelocity)
	require.NoError(t, in.Execute(ctx, home))

	assert.Equal(t, 2, a.Count("mode"))
	assert.Equal(t, 1, a.Count("set_mode"))
	assert.Len(t, clk.Sleeps(), 1)
}

func TestExecute_MoveAndPauseArgs(t *testing.T) {
	a := armtest.New()
	p, clk := newPlayer(t, a, Options{})
	in := p.Interpreter()
	ctx := context.Background()

	require.NoError(t, in.Execute(ctx, home))
	require.NoError(t, in.Execute(ctx, sequence.Pause{Seconds: 1.5}))

	calls := a.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, []any{home.Pose, 10.0, 100.0}, calls[1].Args)
	assert.Equal(t, []any{1500 * time.Millisecond}, calls[3].Args)
	// Pause is queued on the arm, never slept locally.
	assert.Empty(t, clk.Sleeps())
}

func TestExecute_NilCommand(t *testing.T) {
	a := armtest.New()
	p, _ := newPlayer(t, a, Options{})

	err := p.Interpreter().Execute(context.Background(), nil)
	require.ErrorIs(t, err, sequence.ErrUnknownCommand)
	assert.Empty(t, a.Calls())
}

func TestExecute_IncludeWithoutLibrary(t *testing.T) {
	a := armtest.New()
	p, _ := newPlayer(t, a, Options{})

	err := p.Interpreter().Execute(context.Background(), sequence.Include{Name: "wave"})
	require.ErrorIs(t, err, ErrNoLibrary)
}

func TestPlay_DispatchesBeforeDraining(t *testing.T) {
	a := armtest.New()
	a.ScriptQueueDepths(2, 1, 0)
	a.ScriptStates(arm.StateMoving, arm.StateSettled)
	p, clk := newPlayer(t, a, Options{})

	seq := sequence.New(
		home,
		sequence.Gripper{Action: sequence.GripperClose},
		sequence.Pause{Seconds: 1},
	)
	require.NoError(t, p.Play(context.Background(), seq))

	methods := a.Methods()
	firstCount := indexOf(methods, "command_count")
	require.GreaterOrEqual(t, firstCount, 0)
	for _, m := range methods[firstCount:] {
		assert.NotContains(t, []string{"set_position", "close_gripper", "set_pause_time"}, m)
	}
	assert.Equal(t, 3, a.Count("command_count"))
	assert.Equal(t, 2, a.Count("state"))
	// two drain polls and one ready poll
	assert.Equal(t, []time.Duration{DefaultPollInterval, DefaultPollInterval, DefaultPollInterval}, clk.Sleeps())
}

func TestPlay_EmptySequence(t *testing.T) {
	a := armtest.New()
	var phases []Phase
	p, _ := newPlayer(t, a, Options{Observer: func(tr Transition) { phases = append(phases, tr.Phase) }})

	require.NoError(t, p.Play(context.Background(), sequence.New()))
	assert.Equal(t, []Phase{PhaseDispatching, PhaseDraining, PhaseAwaitingReady, PhaseDone}, phases)
	assert.Equal(t, []string{"command_count", "has_error_or_warning", "state", "has_error_or_warning"}, a.Methods())
}

func TestPlay_FaultWhileDraining(t *testing.T) {
	a := armtest.New()
	a.ScriptQueueDepths(3)
	a.ScriptFaults(false, true)
	var phases []Phase
	p, _ := newPlayer(t, a, Options{Observer: func(tr Transition) { phases = append(phases, tr.Phase) }})

	err := p.Play(context.Background(), sequence.New(home))
	require.ErrorIs(t, err, ErrPlaybackAborted)
	require.ErrorIs(t, err, ErrArmFault)

	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, PhaseDraining, abort.Phase)
	assert.Zero(t, a.Count("state"), "must not wait for ready after a fault")
	assert.Equal(t, PhaseFailed, phases[len(phases)-1])
}

func TestPlay_FaultWhileAwaitingReady(t *testing.T) {
	a := armtest.New()
	a.ScriptStates(arm.StateMoving)
	a.ScriptFaults(false, false, true)
	p, _ := newPlayer(t, a, Options{})

	err := p.Play(context.Background(), sequence.New(home))
	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, PhaseAwaitingReady, abort.Phase)
	assert.ErrorIs(t, err, ErrArmFault)
}

func TestPlay_CommandCountError(t *testing.T) {
	a := armtest.New()
	a.FailOn("command_count", &arm.CodeError{Op: "command_count", Code: 9})
	p, _ := newPlayer(t, a, Options{})

	err := p.Play(context.Background(), sequence.New(home))
	require.ErrorIs(t, err, ErrPlaybackAborted)
	assert.Equal(t, arm.Code(9), arm.StatusCode(err))
}

func TestPlay_DispatchErrorStopsRemaining(t *testing.T) {
	a := armtest.New()
	a.FailOn("close_gripper", errors.New("bus timeout"))
	p, _ := newPlayer(t, a, Options{})

	seq := sequence.New(
		sequence.Gripper{Action: sequence.GripperClose},
		home,
	)
	err := p.Play(context.Background(), seq)

	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, PhaseDispatching, abort.Phase)
	assert.Zero(t, a.Count("set_position"))
	assert.Zero(t, a.Count("command_count"))
}

func TestPlay_SnapshotsSequence(t *testing.T) {
	a := armtest.New()
	seq := sequence.New(home)
	a.OnCall = func(method string) {
		if method == "set_position" {
			seq.Append(home)
		}
	}
	p, _ := newPlayer(t, a, Options{})

	require.NoError(t, p.Play(context.Background(), seq))
	assert.Equal(t, 1, a.Count("set_position"))
	assert.Equal(t, 2, seq.Len())
}

func TestPlay_Include(t *testing.T) {
	a := armtest.New()
	lib := mapLibrary{
		"grab": sequence.New(
			sequence.Gripper{Action: sequence.GripperOpen},
			home,
			sequence.Gripper{Action: sequence.GripperClose},
		),
	}
	var transitions []Transition
	p, _ := newPlayer(t, a, Options{
		Library:  lib,
		Observer: func(tr Transition) { transitions = append(transitions, tr) },
	})

	seq := sequence.New(sequence.Include{Name: "grab"}, home)
	require.NoError(t, p.Play(context.Background(), seq))

	assert.Equal(t, 2, a.Count("set_position"))
	assert.Equal(t, 1, a.Count("open_gripper"))
	assert.Equal(t, 1, a.Count("close_gripper"))
	// the nested sequence drains and settles before the outer one continues
	assert.Equal(t, 2, a.Count("state"))

	var nestedDone bool
	for _, tr := range transitions {
		if tr.Depth == 1 && tr.Phase == PhaseDone {
			nestedDone = true
		}
	}
	assert.True(t, nestedDone)
	assert.Equal(t, Transition{Phase: PhaseDone}, transitions[len(transitions)-1])
}

func TestPlay_IncludeMissing(t *testing.T) {
	a := armtest.New()
	p, _ := newPlayer(t, a, Options{Library: mapLibrary{}})

	err := p.Play(context.Background(), sequence.New(sequence.Include{Name: "nope"}, home))
	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, PhaseDispatching, abort.Phase)
	assert.Contains(t, err.Error(), "nope")
	assert.Zero(t, a.Count("set_position"))
}

func TestPlay_SelfIncludeHitsDepthLimit(t *testing.T) {
	a := armtest.New()
	lib := mapLibrary{}
	lib["loop"] = sequence.New(sequence.Include{Name: "loop"})
	p, _ := newPlayer(t, a, Options{Library: lib, MaxIncludeDepth: 4})

	err := p.Play(context.Background(), lib["loop"])
	require.ErrorIs(t, err, ErrIncludeDepth)
	require.ErrorIs(t, err, ErrPlaybackAborted)

	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, 4, abort.Depth)
}

type countingLibrary struct {
	seq    *sequence.Sequence
	loads  int
	limit  int
	cancel context.CancelFunc
}

func (c *countingLibrary) Load(string) (*sequence.Sequence, error) {
	c.loads++
	if c.loads == c.limit {
		c.cancel()
	}
	return c.seq, nil
}

func TestPlay_UnlimitedIncludeRunsUntilCancelled(t *testing.T) {
	a := armtest.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lib := &countingLibrary{seq: sequence.New(sequence.Include{Name: "self"}), limit: 50, cancel: cancel}
	p, _ := newPlayer(t, a, Options{Library: lib})

	err := p.Play(ctx, lib.seq)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 50, lib.loads)
}

func TestPlay_CancelledWhileDraining(t *testing.T) {
	a := armtest.New()
	a.ScriptQueueDepths(1)
	ctx, cancel := context.WithCancel(context.Background())
	a.OnCall = func(method string) {
		if method == "command_count" {
			cancel()
		}
	}
	p, _ := newPlayer(t, a, Options{})

	err := p.Play(ctx, sequence.New(home))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, a.Count("command_count"))
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "AWAITING_READY", PhaseAwaitingReady.String())
	assert.Equal(t, "Phase(42)", Phase(42).String())
	assert.True(t, PhaseFailed.Terminal())
	assert.False(t, PhaseDraining.Terminal())
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
