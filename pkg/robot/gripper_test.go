package robot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServo struct {
	pos      int
	writes   []int
	enabled  bool
	writeErr error
}

func (s *fakeServo) Position(context.Context) (int, error) { return s.pos, nil }

func (s *fakeServo) SetPosition(_ context.Context, raw int) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes = append(s.writes, raw)
	s.pos = raw
	return nil
}

func (s *fakeServo) Enable(context.Context) error  { s.enabled = true; return nil }
func (s *fakeServo) Disable(context.Context) error { s.enabled = false; return nil }

func TestServoGripper(t *testing.T) {
	s := &fakeServo{pos: 1700, enabled: true}
	g := newServoGripper(s, MotorCalibration{ID: 6, RangeMin: 1000, RangeMax: 3000})
	ctx := context.Background()

	require.NoError(t, g.OpenGripper(ctx))
	require.NoError(t, g.CloseGripper(ctx))
	s.pos = 1700
	require.NoError(t, g.StopGripper(ctx))
	assert.Equal(t, []int{3000, 1000, 1700}, s.writes)

	pct, err := g.Opening(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 35, pct, 1e-9)

	require.NoError(t, g.Close())
	assert.False(t, s.enabled)
}

func TestServoGripper_WriteError(t *testing.T) {
	s := &fakeServo{writeErr: errors.New("no status packet")}
	g := newServoGripper(s, MotorCalibration{ID: 6, RangeMin: 1000, RangeMax: 3000})

	err := g.OpenGripper(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no status packet")
}
