package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/gwillem/armctl/pkg/arm"
	"github.com/gwillem/armctl/pkg/clock"
	"github.com/gwillem/armctl/pkg/program"
	"github.com/gwillem/armctl/pkg/sequence"
)

type PlayCommand struct {
	Sim     bool `long:"sim" description:"Play on the simulated arm"`
	Lenient bool `long:"lenient" description:"Skip malformed lines instead of refusing the file"`
	Args    struct {
		Name string `positional-arg-name:"sequence" description:"Sequence name or path"`
	} `positional-args:"yes" required:"yes"`
}

func (c *PlayCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stderr)

	store, err := sequenceStore(cfg)
	if err != nil {
		return err
	}
	if c.Lenient {
		store.Policy = sequence.Lenient
	}

	seq, err := store.Load(c.Args.Name)
	if seq == nil {
		return err
	}
	if err != nil {
		logger.WithError(err).Warn("Skipped malformed lines")
	}
	logger.WithField("steps", seq.Len()).Infof("Loaded %s", store.Path(c.Args.Name))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStation(ctx, cfg, c.Sim, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.arm.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer st.arm.Disconnect()

	if err := prepare(ctx, st, logger); err != nil {
		return err
	}

	player := program.New(st.arm, program.Options{
		Clock:           clock.Real{},
		Logger:          logger,
		Library:         store,
		MaxIncludeDepth: cfg.IncludeDepth(),
		Observer: func(t program.Transition) {
			logger.WithField("depth", t.Depth).Debugf("Playback %s", t.Phase)
		},
	})

	err = player.Play(ctx, seq)
	switch {
	case err == nil:
		logger.Info("Playback complete")
		return nil
	case errors.Is(err, context.Canceled):
		logger.Info("Playback interrupted")
		return nil
	default:
		logger.WithError(err).Error("Playback failed")
		return err
	}
}

// prepare clears faults, enables motion, applies the configured tool and
// leaves the arm started in position mode.
func prepare(ctx context.Context, st *station, log logrus.FieldLogger) error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"clean error", func() error { return st.arm.CleanError(ctx) }},
		{"clean warning", func() error { return st.arm.CleanWarn(ctx) }},
		{"enable motion", func() error { return st.arm.MotionEnable(ctx, true) }},
		{"set tool offset", func() error { return st.arm.SetToolOffset(ctx, st.offset) }},
		{"set tool payload", func() error { return st.arm.SetToolPayload(ctx, st.payload) }},
		{"set position mode", func() error { return st.arm.SetMode(ctx, arm.ModePosition) }},
		{"set state", func() error { return st.arm.SetState(ctx, arm.StateStart) }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}

	state, err := arm.ReadState(ctx, st.arm)
	if err != nil {
		return err
	}
	if !state.Healthy() {
		return fmt.Errorf("arm not ready after reset (motion ready %v, fault %v)", state.MotionReady, state.FaultPresent)
	}
	motion, err := st.arm.State(ctx)
	if err != nil {
		return fmt.Errorf("read state: %w", err)
	}
	if motion == arm.StateStopped {
		return errors.New("arm still stopped after reset")
	}
	log.WithField("mode", state.Mode).Info("Arm ready")
	return nil
}
