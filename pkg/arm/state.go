package arm

import (
	"context"
	"fmt"
)

// RuntimeState is a snapshot of the arm as the controller sees it at the
// start of a cycle.
type RuntimeState struct {
	Connected    bool
	Mode         Mode
	MotionReady  bool
	FaultPresent bool
	QueueDepth   int
}

// Healthy reports whether the arm can take commands this cycle.
func (s RuntimeState) Healthy() bool {
	return s.Connected && s.MotionReady && !s.FaultPresent
}

// ReadState queries a full runtime snapshot. A disconnected arm yields a
// snapshot with only Connected set and no error.
func ReadState(ctx context.Context, a Arm) (RuntimeState, error) {
	s := RuntimeState{Connected: a.Connected()}
	if !s.Connected {
		return s, nil
	}
	var err error
	if s.Mode, err = a.Mode(ctx); err != nil {
		return s, fmt.Errorf("read mode: %w", err)
	}
	if s.MotionReady, err = a.MotionReady(ctx); err != nil {
		return s, fmt.Errorf("read motion ready: %w", err)
	}
	if s.FaultPresent, err = a.HasErrorOrWarning(ctx); err != nil {
		return s, fmt.Errorf("read fault: %w", err)
	}
	if s.QueueDepth, err = a.CommandCount(ctx); err != nil {
		return s, fmt.Errorf("read command count: %w", err)
	}
	return s, nil
}
