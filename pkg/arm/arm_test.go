package arm_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/armctl/pkg/arm"
	"github.com/gwillem/armctl/pkg/arm/armtest"
)

func TestPose(t *testing.T) {
	p := arm.Pose{X: 1, Y: 2, Z: 3, Roll: 4, Pitch: 5, Yaw: 6}
	assert.Equal(t, [6]float64{1, 2, 3, 4, 5, 6}, p.Values())
	assert.Equal(t, p, arm.PoseFromValues(p.Values()))
	assert.Equal(t, r3.Vector{X: 1, Y: 2, Z: 3}, p.Translation())
}

func TestVelocity(t *testing.T) {
	v := arm.Velocity{Linear: r3.Vector{X: -1, Y: 2}, Angular: r3.Vector{Z: -3}}
	assert.Equal(t, 6.0, v.L1())
	assert.False(t, v.IsZero())
	assert.True(t, arm.Velocity{}.IsZero())
	assert.Equal(t, [6]float64{-1, 2, 0, 0, 0, -3}, v.Values())
}

func TestModeAndStateNames(t *testing.T) {
	assert.Equal(t, "position", arm.ModePosition.String())
	assert.Equal(t, "cartesian-velocity", arm.ModeCartesianVelocity.String())
	assert.Equal(t, "mode-7", arm.Mode(7).String())
	assert.Equal(t, "settled", arm.StateSettled.String())
	assert.Equal(t, "state-9", arm.State(9).String())
}

func TestStatusCodes(t *testing.T) {
	assert.NoError(t, arm.Check("set_mode", 0))

	err := arm.Check("set_mode", 3)
	require.Error(t, err)
	assert.Equal(t, "arm set_mode: status code 3", err.Error())

	tests := []struct {
		err  error
		want arm.Code
	}{
		{nil, 0},
		{err, 3},
		{fmt.Errorf("wrapped: %w", err), 3},
		{errors.New("plain"), -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, arm.StatusCode(tt.err))
	}
}

func TestReadState(t *testing.T) {
	ctx := context.Background()
	f := armtest.New()
	f.SetModeValue(arm.ModeCartesianVelocity)
	f.ScriptQueueDepths(4)

	st, err := arm.ReadState(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, arm.RuntimeState{
		Connected:   true,
		Mode:        arm.ModeCartesianVelocity,
		MotionReady: true,
		QueueDepth:  4,
	}, st)
	assert.True(t, st.Healthy())

	f.SetFault(true)
	st, err = arm.ReadState(ctx, f)
	require.NoError(t, err)
	assert.False(t, st.Healthy())
}

func TestReadState_Disconnected(t *testing.T) {
	f := armtest.New()
	f.SetConnected(false)

	st, err := arm.ReadState(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, arm.RuntimeState{}, st)
	assert.Empty(t, f.Calls())
}

func TestReadState_Error(t *testing.T) {
	f := armtest.New()
	f.FailOn("motion_ready", &arm.CodeError{Op: "motion_ready", Code: 1})

	_, err := arm.ReadState(context.Background(), f)
	require.Error(t, err)
	assert.Equal(t, arm.Code(1), arm.StatusCode(err))
	assert.Zero(t, f.Count("has_error_or_warning"))
}

type countingGripper struct{ opens, closes, stops int }

func (g *countingGripper) OpenGripper(context.Context) error  { g.opens++; return nil }
func (g *countingGripper) CloseGripper(context.Context) error { g.closes++; return nil }
func (g *countingGripper) StopGripper(context.Context) error  { g.stops++; return nil }

func TestWithGripper(t *testing.T) {
	ctx := context.Background()
	f := armtest.New()
	g := &countingGripper{}
	a := arm.WithGripper(f, g)

	require.NoError(t, a.OpenGripper(ctx))
	require.NoError(t, a.CloseGripper(ctx))
	require.NoError(t, a.StopGripper(ctx))
	require.NoError(t, a.SetMode(ctx, arm.ModePosition))

	assert.Equal(t, countingGripper{1, 1, 1}, *g)
	assert.Equal(t, []string{"set_mode"}, f.Methods())
	assert.Same(t, f, arm.WithGripper(f, nil))
}
