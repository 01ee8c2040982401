package arm

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned by calls made while the link is down.
var ErrNotConnected = errors.New("arm not connected")

// Code is a status code returned by the arm controller. Zero is success.
type Code int

// CodeError reports a nonzero status code from an arm call.
type CodeError struct {
	Op   string
	Code Code
}

func (e *CodeError) Error() string {
	return fmt.Sprintf("arm %s: status code %d", e.Op, e.Code)
}

// Check converts a status code into an error; zero yields nil.
func Check(op string, code Code) error {
	if code == 0 {
		return nil
	}
	return &CodeError{Op: op, Code: code}
}

// StatusCode extracts the controller status code from err. It returns 0 for
// nil and -1 for errors that did not come from a status code.
func StatusCode(err error) Code {
	if err == nil {
		return 0
	}
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return -1
}
