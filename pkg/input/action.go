package input

import (
	"fmt"
	"sort"
	"strings"
)

// Action is a discrete operator command.
type Action int

const (
	ActionNone Action = iota
	ActionRecordPose
	ActionSave
	ActionLoad
	ActionPlay
	ActionClear
	ActionGripperOpen
	ActionGripperClose
	ActionGripperStop
	ActionAppendPause
	ActionSpeedDown
	ActionSpeedUp
	ActionRadiusDown
	ActionRadiusUp
	ActionPrint
	ActionAppendInclude
	ActionQuit
)

var actionNames = map[Action]string{
	ActionRecordPose:    "record",
	ActionSave:          "save",
	ActionLoad:          "load",
	ActionPlay:          "play",
	ActionClear:         "clear",
	ActionGripperOpen:   "gripper-open",
	ActionGripperClose:  "gripper-close",
	ActionGripperStop:   "gripper-stop",
	ActionAppendPause:   "pause",
	ActionSpeedDown:     "speed-down",
	ActionSpeedUp:       "speed-up",
	ActionRadiusDown:    "radius-down",
	ActionRadiusUp:      "radius-up",
	ActionPrint:         "print",
	ActionAppendInclude: "include",
	ActionQuit:          "quit",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return "none"
}

// ParseAction returns the action with the given name.
func ParseAction(name string) (Action, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for a, n := range actionNames {
		if n == name {
			return a, nil
		}
	}
	return ActionNone, fmt.Errorf("unknown action %q", name)
}

// KeyMap binds single keys to actions.
type KeyMap map[string]Action

// DefaultKeyMap returns the stock bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		"r": ActionRecordPose,
		"s": ActionSave,
		"l": ActionLoad,
		"p": ActionPlay,
		"c": ActionClear,
		"1": ActionGripperOpen,
		"2": ActionGripperClose,
		"3": ActionGripperStop,
		"4": ActionAppendPause,
		"[": ActionSpeedDown,
		"]": ActionSpeedUp,
		";": ActionRadiusDown,
		"'": ActionRadiusUp,
		"o": ActionPrint,
		"i": ActionAppendInclude,
		"x": ActionQuit,
	}
}

// Lookup returns the action bound to key.
func (m KeyMap) Lookup(key string) (Action, bool) {
	a, ok := m[key]
	return a, ok && a != ActionNone
}

// Rebind applies overrides of the form key -> action name. A key already
// bound to the same action elsewhere keeps its old binding as well.
func (m KeyMap) Rebind(overrides map[string]string) error {
	for key, name := range overrides {
		if len([]rune(key)) != 1 {
			return fmt.Errorf("key %q: must be a single character", key)
		}
		a, err := ParseAction(name)
		if err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		m[key] = a
	}
	return nil
}

// Help lists the bindings as "key action" pairs sorted by key.
func (m KeyMap) Help() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s %s", k, m[k]))
	}
	return out
}
