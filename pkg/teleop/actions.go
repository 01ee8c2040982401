package teleop

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gwillem/armctl/pkg/input"
	"github.com/gwillem/armctl/pkg/sequence"
)

var gripperActions = map[input.Action]sequence.GripperAction{
	input.ActionGripperOpen:  sequence.GripperOpen,
	input.ActionGripperClose: sequence.GripperClose,
	input.ActionGripperStop:  sequence.GripperStop,
}

// dispatch runs one operator action. Failures are logged and the session
// carries on; only ErrQuit and context errors are returned.
func (c *Controller) dispatch(ctx context.Context, a input.Action) error {
	log := c.log.WithField("action", a)
	log.Debug("Operator action")

	switch a {
	case input.ActionRecordPose:
		pose, err := c.arm.Position(ctx)
		if err != nil {
			log.WithError(err).Error("Reading position failed, nothing recorded")
			return nil
		}
		cmd := sequence.MoveTo{Pose: pose, Radius: c.session.Radius, Speed: c.session.Speed}
		c.session.Sequence.Append(cmd)
		log.Infof("Recorded %s", cmd)

	case input.ActionSave:
		name, err := c.prompt(ctx, "Save sequence as: ")
		if err != nil {
			return c.promptFailed(ctx, err)
		}
		if err := c.store.Save(name, c.session.Sequence); err != nil {
			log.WithError(err).Error("Save failed")
			return nil
		}
		log.Infof("Saved as %s", name)

	case input.ActionLoad:
		name, err := c.prompt(ctx, "Load sequence from: ")
		if err != nil {
			return c.promptFailed(ctx, err)
		}
		seq, err := c.store.Load(name)
		if seq == nil {
			log.WithError(err).Error("Load failed, keeping current sequence")
			return nil
		}
		if err != nil {
			log.WithError(err).Warn("Skipped malformed lines")
		}
		c.session.Sequence = seq
		log.Infof("Loaded %d commands from %s", seq.Len(), name)

	case input.ActionPlay:
		c.playing = true
		err := c.player.Play(ctx, c.session.Sequence)
		c.playing = false
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithError(err).Error("Playback aborted")
		}

	case input.ActionClear:
		c.session.Sequence.Clear()
		log.Info("Cleared sequence")

	case input.ActionGripperOpen, input.ActionGripperClose, input.ActionGripperStop:
		cmd := sequence.Gripper{Action: gripperActions[a]}
		if err := c.player.Interpreter().Execute(ctx, cmd); err != nil {
			log.WithError(err).Error("Gripper command failed")
		}
		c.session.Sequence.Append(cmd)

	case input.ActionAppendPause:
		answer, err := c.prompt(ctx, "Pause length: ")
		if err != nil {
			return c.promptFailed(ctx, err)
		}
		secs, err := strconv.ParseFloat(answer, 64)
		if err != nil || secs < 0 {
			log.WithField("answer", answer).Error("Pause length must be a non-negative number")
			return nil
		}
		c.session.Sequence.Append(sequence.Pause{Seconds: secs})

	case input.ActionSpeedDown, input.ActionSpeedUp:
		steps := 1
		if a == input.ActionSpeedDown {
			steps = -1
		}
		log.Infof("Speed: %g", c.session.AdjustSpeed(steps))

	case input.ActionRadiusDown, input.ActionRadiusUp:
		steps := 1
		if a == input.ActionRadiusDown {
			steps = -1
		}
		log.Infof("Radius: %g", c.session.AdjustRadius(steps))

	case input.ActionPrint:
		for _, line := range c.session.Sequence.Lines() {
			c.log.Info(line)
		}

	case input.ActionAppendInclude:
		name, err := c.prompt(ctx, "Include subsequence: ")
		if err != nil {
			return c.promptFailed(ctx, err)
		}
		if name == "" {
			log.Error("Include needs a file name")
			return nil
		}
		c.session.Sequence.Append(sequence.Include{Name: name})

	case input.ActionQuit:
		log.Info("Quit requested")
		return ErrQuit

	default:
		log.Warn("Unhandled action")
	}
	return nil
}

func (c *Controller) prompt(ctx context.Context, question string) (string, error) {
	if c.prompter == nil {
		return "", errors.New("no prompter configured")
	}
	answer, err := c.prompter.Prompt(ctx, question)
	return strings.TrimSpace(answer), err
}

func (c *Controller) promptFailed(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, input.ErrClosed) {
		c.log.Info("Prompt cancelled")
		return nil
	}
	c.log.WithError(err).Warn("Prompt failed")
	return nil
}
