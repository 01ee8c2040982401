package sequence

import "iter"

// Sequence is an ordered list of commands; order is playback order.
// It is not safe for concurrent use.
type Sequence struct {
	commands []Command
}

// New returns a sequence holding cmds.
func New(cmds ...Command) *Sequence {
	s := &Sequence{}
	s.Append(cmds...)
	return s
}

// Append adds commands to the end.
func (s *Sequence) Append(cmds ...Command) {
	s.commands = append(s.commands, cmds...)
}

// Clear drops all commands and releases the backing storage.
func (s *Sequence) Clear() {
	s.commands = nil
}

// Truncate empties the sequence but keeps its capacity for re-recording.
func (s *Sequence) Truncate() {
	clear(s.commands)
	s.commands = s.commands[:0]
}

// Len returns the number of commands.
func (s *Sequence) Len() int {
	return len(s.commands)
}

// Commands returns a copy of the commands. Later changes to s do not affect it.
func (s *Sequence) Commands() []Command {
	out := make([]Command, len(s.commands))
	copy(out, s.commands)
	return out
}

// All iterates over the commands in order.
func (s *Sequence) All() iter.Seq2[int, Command] {
	return func(yield func(int, Command) bool) {
		for i, c := range s.commands {
			if !yield(i, c) {
				return
			}
		}
	}
}

// Lines returns each command in the file grammar.
func (s *Sequence) Lines() []string {
	out := make([]string, len(s.commands))
	for i, c := range s.commands {
		out[i] = Format(c)
	}
	return out
}
