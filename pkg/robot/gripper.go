package robot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/armctl/pkg/arm"
)

// servo is the part of *feetech.Servo the gripper drives.
type servo interface {
	Position(ctx context.Context) (int, error)
	SetPosition(ctx context.Context, raw int) error
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}

// ServoGripper drives a gripper on a feetech serial bus. It implements
// arm.Gripper so it can stand in for the arm's own gripper outputs.
type ServoGripper struct {
	mu    sync.Mutex
	bus   *feetech.Bus
	servo servo
	cal   MotorCalibration
}

// OpenServoGripper opens the serial bus, finds the configured servo and
// enables its torque.
func OpenServoGripper(ctx context.Context, cfg GripperConfig) (*ServoGripper, error) {
	if err := cfg.Calibration.Validate(); err != nil {
		return nil, fmt.Errorf("gripper calibration: %w", err)
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  500 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	id := cfg.Calibration.ID
	found, err := bus.Scan(ctx, id, id)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("scan for servo %d: %w", id, err)
	}
	if len(found) == 0 {
		bus.Close()
		return nil, fmt.Errorf("servo %d not found on %s", id, cfg.Port)
	}

	g := newServoGripper(feetech.NewServo(bus, found[0].ID, found[0].Model), cfg.Calibration)
	g.bus = bus
	if err := g.servo.Enable(ctx); err != nil {
		bus.Close()
		return nil, fmt.Errorf("enable servo %d: %w", id, err)
	}
	return g, nil
}

func newServoGripper(s servo, cal MotorCalibration) *ServoGripper {
	return &ServoGripper{servo: s, cal: cal}
}

// Close releases torque and closes the bus.
func (g *ServoGripper) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	err := g.servo.Disable(context.Background())
	if g.bus != nil {
		if cerr := g.bus.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (g *ServoGripper) OpenGripper(ctx context.Context) error {
	return g.moveTo(ctx, 100)
}

func (g *ServoGripper) CloseGripper(ctx context.Context) error {
	return g.moveTo(ctx, 0)
}

// StopGripper holds the jaws where they are.
func (g *ServoGripper) StopGripper(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	raw, err := g.servo.Position(ctx)
	if err != nil {
		return fmt.Errorf("read gripper position: %w", err)
	}
	if err := g.servo.SetPosition(ctx, raw); err != nil {
		return fmt.Errorf("hold gripper: %w", err)
	}
	return nil
}

// Opening returns how far open the gripper is, in percent.
func (g *ServoGripper) Opening(ctx context.Context) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	raw, err := g.servo.Position(ctx)
	if err != nil {
		return 0, fmt.Errorf("read gripper position: %w", err)
	}
	return g.cal.Normalize(raw), nil
}

func (g *ServoGripper) moveTo(ctx context.Context, pct float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.servo.SetPosition(ctx, g.cal.Denormalize(pct)); err != nil {
		return fmt.Errorf("move gripper to %.0f%%: %w", pct, err)
	}
	return nil
}

var _ arm.Gripper = (*ServoGripper)(nil)
