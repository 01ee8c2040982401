// Package sequence holds the command model used for recorded arm programs:
// the command variants, the ordered sequence buffer, and the line-oriented
// JSON file format.
//
// One command per line, each line a single JSON value:
//
//	"open" | "close" | "stop"         gripper actions
//	[x, y, z, roll, pitch, yaw, r, s] absolute move with blend radius and speed
//	["pause", seconds]                pause before the next command
//	["include", "name"]               play another sequence file in place
package sequence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gwillem/armctl/pkg/arm"
)

// Kind identifies a command variant.
type Kind int

const (
	KindMoveTo Kind = iota
	KindGripper
	KindPause
	KindInclude
)

func (k Kind) String() string {
	switch k {
	case KindMoveTo:
		return "move"
	case KindGripper:
		return "gripper"
	case KindPause:
		return "pause"
	case KindInclude:
		return "include"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Command is one step of a sequence. The set of implementations is closed.
type Command interface {
	Kind() Kind
	fmt.Stringer
	command()
}

// MoveTo is an absolute Cartesian move.
type MoveTo struct {
	Pose   arm.Pose
	Radius float64 // blend radius, mm
	Speed  float64 // mm/s
}

// GripperAction is a discrete gripper request. Its value is also its
// on-disk form.
type GripperAction string

const (
	GripperOpen  GripperAction = "open"
	GripperClose GripperAction = "close"
	GripperStop  GripperAction = "stop"
)

// Gripper actuates the gripper.
type Gripper struct {
	Action GripperAction
}

// Pause sets the pause the arm inserts before its next queued command.
type Pause struct {
	Seconds float64
}

// Duration returns the pause as a time.Duration.
func (p Pause) Duration() time.Duration {
	return time.Duration(p.Seconds * float64(time.Second))
}

// Include plays the named sequence in place when reached.
type Include struct {
	Name string
}

func (MoveTo) Kind() Kind  { return KindMoveTo }
func (Gripper) Kind() Kind { return KindGripper }
func (Pause) Kind() Kind   { return KindPause }
func (Include) Kind() Kind { return KindInclude }

func (MoveTo) command()  {}
func (Gripper) command() {}
func (Pause) command()   {}
func (Include) command() {}

// Values returns the eight numbers of the on-disk form.
func (m MoveTo) Values() [8]float64 {
	p := m.Pose.Values()
	return [8]float64{p[0], p[1], p[2], p[3], p[4], p[5], m.Radius, m.Speed}
}

func (m MoveTo) String() string  { return Format(m) }
func (g Gripper) String() string { return Format(g) }
func (p Pause) String() string   { return Format(p) }
func (i Include) String() string { return Format(i) }

// Format renders c in the sequence line grammar, without a newline.
func Format(c Command) string {
	var v any
	switch c := c.(type) {
	case MoveTo:
		vals := c.Values()
		v = vals[:]
	case Gripper:
		v = string(c.Action)
	case Pause:
		v = []any{tagPause, c.Seconds}
	case Include:
		v = []any{tagInclude, c.Name}
	default:
		return fmt.Sprintf("%v", c)
	}
	b, err := json.Marshal(v)
	if err != nil {
		// Only non-finite floats fail here; Parse never produces them.
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
