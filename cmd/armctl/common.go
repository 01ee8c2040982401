package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/gwillem/armctl/pkg/arm"
	"github.com/gwillem/armctl/pkg/arm/bridge"
	"github.com/gwillem/armctl/pkg/arm/sim"
	"github.com/gwillem/armctl/pkg/clock"
	"github.com/gwillem/armctl/pkg/logging"
	"github.com/gwillem/armctl/pkg/robot"
	"github.com/gwillem/armctl/pkg/sequence"
)

func loadConfig() (*robot.Config, error) {
	cfg, err := robot.Resolve(opts.Config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *robot.Config, out io.Writer) *logrus.Logger {
	return logging.New(cfg.LogLevel, out)
}

func sequenceStore(cfg *robot.Config) (sequence.Store, error) {
	policy, err := sequence.ParsePolicy(cfg.LoadPolicy)
	if err != nil {
		return sequence.Store{}, err
	}
	return sequence.Store{Dir: cfg.SequenceDir, Policy: policy}, nil
}

// station is the arm plus everything configured around it.
type station struct {
	arm     arm.Arm
	offset  arm.Pose
	payload arm.Payload
	closers []func() error
}

func (s *station) Close() {
	for _, c := range s.closers {
		_ = c()
	}
}

// openStation builds the arm described by cfg. forceSim selects the
// simulator whatever the config says.
func openStation(ctx context.Context, cfg *robot.Config, forceSim bool, log logrus.FieldLogger) (*station, error) {
	offset, err := cfg.ToolOffset()
	if err != nil {
		return nil, err
	}
	payload, err := cfg.ToolPayload()
	if err != nil {
		return nil, err
	}

	s := &station{offset: offset.Pose(), payload: payload.Payload()}
	if forceSim || cfg.Arm == robot.SimAddress || cfg.Arm == "" {
		log.Info("Using simulated arm")
		s.arm = sim.New(clock.Real{})
	} else {
		log.WithField("address", cfg.Arm).Info("Using arm bridge")
		s.arm = bridge.New(cfg.Arm)
	}

	if cfg.Gripper != nil && cfg.Gripper.Port != "" {
		g, err := robot.OpenServoGripper(ctx, *cfg.Gripper)
		if err != nil {
			return nil, fmt.Errorf("open gripper: %w", err)
		}
		entry := log.WithField("port", cfg.Gripper.Port)
		if pct, err := g.Opening(ctx); err == nil {
			entry = entry.WithField("opening", fmt.Sprintf("%.0f%%", pct))
		}
		entry.Info("Using serial-bus gripper")
		s.arm = arm.WithGripper(s.arm, g)
		s.closers = append(s.closers, g.Close)
	}
	return s, nil
}
