package arm

import "context"

// WithGripper returns an Arm whose gripper calls go to g instead of a.
// Everything else is forwarded to a unchanged.
func WithGripper(a Arm, g Gripper) Arm {
	if g == nil {
		return a
	}
	return &gripperOverride{Arm: a, gripper: g}
}

type gripperOverride struct {
	Arm
	gripper Gripper
}

func (o *gripperOverride) OpenGripper(ctx context.Context) error  { return o.gripper.OpenGripper(ctx) }
func (o *gripperOverride) CloseGripper(ctx context.Context) error { return o.gripper.CloseGripper(ctx) }
func (o *gripperOverride) StopGripper(ctx context.Context) error  { return o.gripper.StopGripper(ctx) }
