// Package input defines the operator-facing collaborators of the control
// loop: a 6-axis continuous source, a discrete action source and a
// prompter for free-text answers.
package input

import (
	"context"
	"errors"
)

// ErrClosed is returned by a prompter when the operator dismisses the
// question or the source behind it went away.
var ErrClosed = errors.New("input closed")

// Sample is one reading of a 6-axis controller. Each axis is normalized to
// [-1, 1].
type Sample struct {
	X, Y, Z          float64
	Roll, Pitch, Yaw float64
}

// IsZero reports whether every axis is at rest.
func (s Sample) IsZero() bool {
	return s == Sample{}
}

// Continuous is a 6-axis source. Read consumes everything buffered since
// the previous call and returns the current state; it never blocks.
type Continuous interface {
	Read() (Sample, error)
}

// Discrete yields operator actions. Poll never blocks; ok is false when
// nothing is pending.
type Discrete interface {
	Poll() (a Action, ok bool)
}

// Prompter asks the operator for one line of text.
type Prompter interface {
	Prompt(ctx context.Context, question string) (string, error)
}
