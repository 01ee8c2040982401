package program

import (
	"errors"
	"fmt"
)

var (
	// ErrPlaybackAborted is wrapped by every playback failure.
	ErrPlaybackAborted = errors.New("playback aborted")

	// ErrArmFault is reported when the arm raises an error or warning
	// while playback waits on it.
	ErrArmFault = errors.New("arm reported an error or warning")

	// ErrIncludeDepth is reported when includes nest deeper than allowed.
	ErrIncludeDepth = errors.New("include depth limit exceeded")

	// ErrNoLibrary is reported when an include is played without a sequence library.
	ErrNoLibrary = errors.New("no sequence library configured")
)

// AbortError is returned when playback reaches the failed state.
type AbortError struct {
	Phase Phase // phase in which the failure was observed
	Depth int
	Err   error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("playback aborted while %s: %v", e.Phase.verb(), e.Err)
}

func (e *AbortError) Unwrap() []error {
	return []error{ErrPlaybackAborted, e.Err}
}
