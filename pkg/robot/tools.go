// Package robot holds the station configuration: arm address, tool and
// payload profiles, and the optional serial-bus gripper.
package robot

import (
	"fmt"
	"sort"

	"github.com/golang/geo/r3"

	"github.com/gwillem/armctl/pkg/arm"
)

// ToolOffset is a TCP offset in mm and degrees: x, y, z, roll, pitch, yaw.
type ToolOffset [6]float64

// Pose returns the offset as an arm pose.
func (t ToolOffset) Pose() arm.Pose { return arm.PoseFromValues(t) }

// ToolPayload is a mass in kg with its centre of gravity in mm.
type ToolPayload struct {
	Mass            float64    `json:"mass"`
	CenterOfGravity [3]float64 `json:"cog"`
}

// Payload converts to the arm's representation.
func (p ToolPayload) Payload() arm.Payload {
	c := p.CenterOfGravity
	return arm.Payload{Mass: p.Mass, CenterOfGravity: r3.Vector{X: c[0], Y: c[1], Z: c[2]}}
}

const (
	DefaultTool    = "gripper_tip"
	DefaultPayload = "gripper"
)

// Built-in tool profiles.
var (
	BuiltinOffsets = map[string]ToolOffset{
		"gripper_tip":  {0, 0, 80, 0, 0, 0},
		"ladle_lip":    {0, 70, 250, 0, 9, -90},
		"brush_tip":    {0, 0, 230, 0, 0, -90},
		"spatula_edge": {0, -40, 250, 0, -56, -90},
	}
	BuiltinPayloads = map[string]ToolPayload{
		"gripper": {Mass: 0.277, CenterOfGravity: [3]float64{0, 0, 30}},
		"brush":   {Mass: 0.377, CenterOfGravity: [3]float64{0, 0, 65}},
		"ladle":   {Mass: 0.4, CenterOfGravity: [3]float64{0, 2.5, 90}},
		"spatula": {Mass: 0.3, CenterOfGravity: [3]float64{0, 1, 80}},
	}
)

// ToolProfiles holds user-defined profiles that extend or replace the
// built-in ones.
type ToolProfiles struct {
	Offsets  map[string]ToolOffset  `json:"offsets,omitempty"`
	Payloads map[string]ToolPayload `json:"payloads,omitempty"`
}

// Offset looks up an offset profile by name.
func (p ToolProfiles) Offset(name string) (ToolOffset, error) {
	if o, ok := p.Offsets[name]; ok {
		return o, nil
	}
	if o, ok := BuiltinOffsets[name]; ok {
		return o, nil
	}
	return ToolOffset{}, fmt.Errorf("unknown tool offset %q", name)
}

// Payload looks up a payload profile by name.
func (p ToolProfiles) Payload(name string) (ToolPayload, error) {
	if pl, ok := p.Payloads[name]; ok {
		return pl, nil
	}
	if pl, ok := BuiltinPayloads[name]; ok {
		return pl, nil
	}
	return ToolPayload{}, fmt.Errorf("unknown payload %q", name)
}

// OffsetNames lists every known offset profile, sorted.
func (p ToolProfiles) OffsetNames() []string {
	return mergedNames(BuiltinOffsets, p.Offsets)
}

// PayloadNames lists every known payload profile, sorted.
func (p ToolProfiles) PayloadNames() []string {
	return mergedNames(BuiltinPayloads, p.Payloads)
}

func mergedNames[V any](a, b map[string]V) []string {
	seen := make(map[string]bool, len(a)+len(b))
	for k := range a {
		seen[k] = true
	}
	for k := range b {
		seen[k] = true
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
