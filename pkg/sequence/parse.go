package sequence

import (
	"encoding/json"
	"strings"

	"github.com/gwillem/armctl/pkg/arm"
)

const (
	tagPause   = "pause"
	tagInclude = "include"
	moveArity  = 8
)

// Parse decodes one line of the sequence grammar. Surrounding whitespace is
// ignored. Errors are *ParseError.
func Parse(line string) (Command, error) {
	text := strings.TrimSpace(line)
	if text == "" {
		return nil, malformed(text, "empty line")
	}

	var raw any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, malformed(text, "invalid JSON: %v", err)
	}

	switch v := raw.(type) {
	case string:
		return parseGripper(text, v)
	case []any:
		return parseArray(text, v)
	default:
		return nil, malformed(text, "expected string or array, got %s", jsonType(raw))
	}
}

func parseGripper(text, s string) (Command, error) {
	switch a := GripperAction(s); a {
	case GripperOpen, GripperClose, GripperStop:
		return Gripper{Action: a}, nil
	default:
		return nil, unknown(text, s)
	}
}

func parseArray(text string, v []any) (Command, error) {
	if len(v) == 0 {
		return nil, malformed(text, "empty array")
	}

	tag, tagged := v[0].(string)
	if !tagged {
		return parseMove(text, v)
	}

	switch tag {
	case tagPause:
		if len(v) != 2 {
			return nil, malformed(text, "pause takes 1 argument, got %d", len(v)-1)
		}
		secs, ok := v[1].(float64)
		if !ok {
			return nil, malformed(text, "pause duration must be a number, got %s", jsonType(v[1]))
		}
		if secs < 0 {
			return nil, malformed(text, "pause duration must not be negative")
		}
		return Pause{Seconds: secs}, nil

	case tagInclude:
		if len(v) != 2 {
			return nil, malformed(text, "include takes 1 argument, got %d", len(v)-1)
		}
		name, ok := v[1].(string)
		if !ok || name == "" {
			return nil, malformed(text, "include needs a non-empty file name")
		}
		return Include{Name: name}, nil

	case string(GripperOpen), string(GripperClose), string(GripperStop):
		return nil, malformed(text, "gripper command %q must be a bare string, not an array", tag)

	default:
		return nil, unknown(text, tag)
	}
}

func parseMove(text string, v []any) (Command, error) {
	if len(v) != moveArity {
		return nil, malformed(text, "move takes %d numbers, got %d", moveArity, len(v))
	}
	var nums [moveArity]float64
	for i, e := range v {
		f, ok := e.(float64)
		if !ok {
			return nil, malformed(text, "move field %d must be a number, got %s", i+1, jsonType(e))
		}
		nums[i] = f
	}
	return MoveTo{
		Pose:   arm.PoseFromValues([6]float64{nums[0], nums[1], nums[2], nums[3], nums[4], nums[5]}),
		Radius: nums[6],
		Speed:  nums[7],
	}, nil
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}
