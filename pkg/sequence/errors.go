package sequence

import (
	"errors"
	"fmt"
)

var (
	// ErrParse marks a line that is not valid sequence grammar.
	ErrParse = errors.New("malformed command")

	// ErrUnknownCommand marks a well-formed line whose tag is not a known command.
	ErrUnknownCommand = errors.New("unknown command")
)

// ParseError describes a rejected line. Err wraps ErrParse or ErrUnknownCommand.
type ParseError struct {
	Line int // 1-based; 0 when parsing a lone line
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
	}
	return fmt.Sprintf("%v: %q", e.Err, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

func malformed(text, format string, args ...any) error {
	return &ParseError{Text: text, Err: fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))}
}

func unknown(text, tag string) error {
	return &ParseError{Text: text, Err: fmt.Errorf("%w %q", ErrUnknownCommand, tag)}
}

// ParseErrors returns every *ParseError inside err, including those joined
// by a lenient read.
func ParseErrors(err error) []*ParseError {
	switch e := err.(type) {
	case nil:
		return nil
	case *ParseError:
		return []*ParseError{e}
	case interface{ Unwrap() []error }:
		var out []*ParseError
		for _, inner := range e.Unwrap() {
			out = append(out, ParseErrors(inner)...)
		}
		return out
	case interface{ Unwrap() error }:
		return ParseErrors(e.Unwrap())
	}
	return nil
}
