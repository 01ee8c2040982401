package program

import (
	"sync"

	"github.com/gwillem/armctl/pkg/sequence"
)

// GripperState is the last gripper action this process issued.
type GripperState int

const (
	GripperUnknown GripperState = iota
	GripperOpen
	GripperClosed
	GripperStopped
)

func (s GripperState) String() string {
	switch s {
	case GripperOpen:
		return "open"
	case GripperClosed:
		return "closed"
	case GripperStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

func gripperStateFor(a sequence.GripperAction) GripperState {
	switch a {
	case sequence.GripperOpen:
		return GripperOpen
	case sequence.GripperClose:
		return GripperClosed
	case sequence.GripperStop:
		return GripperStopped
	default:
		return GripperUnknown
	}
}

// GripperCache remembers the last gripper command sent. It is never filled
// from hardware feedback.
type GripperCache struct {
	mu    sync.Mutex
	state GripperState
}

func (c *GripperCache) State() GripperState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *GripperCache) Set(s GripperState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Reset forgets the cached state.
func (c *GripperCache) Reset() {
	c.Set(GripperUnknown)
}
