package sequence

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Policy decides what happens to a file with malformed lines.
type Policy int

const (
	// Strict rejects the whole file on the first bad line.
	Strict Policy = iota
	// Lenient keeps every valid line and reports the bad ones.
	Lenient
)

func (p Policy) String() string {
	if p == Lenient {
		return "lenient"
	}
	return "strict"
}

// ParsePolicy accepts "strict" or "lenient"; empty means strict.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return Strict, nil
	case "lenient":
		return Lenient, nil
	default:
		return Strict, fmt.Errorf("unknown load policy %q (want strict or lenient)", s)
	}
}

// Read decodes a whole sequence from r. Blank lines are skipped.
//
// Under Strict the first bad line aborts the read and the returned sequence
// is nil. Under Lenient the sequence holds every valid line and the error,
// if any, joins one *ParseError per rejected line.
func Read(r io.Reader, policy Policy) (*Sequence, error) {
	seq := New()
	var errs []error

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		cmd, err := Parse(line)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Line = lineNo
			}
			if policy == Strict {
				return nil, err
			}
			errs = append(errs, err)
			continue
		}
		seq.Append(cmd)
	}
	if err := sc.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, "read sequence")
	}
	return seq, errors.Join(errs...)
}

// Write encodes s to w, one command per line, each newline-terminated.
func Write(w io.Writer, s *Sequence) error {
	bw := bufio.NewWriter(w)
	for _, line := range s.Lines() {
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return pkgerrors.Wrap(err, "write sequence")
		}
	}
	return pkgerrors.Wrap(bw.Flush(), "write sequence")
}

// Store loads and saves named sequence files under Dir. Absolute names are
// used as given.
type Store struct {
	Dir    string
	Policy Policy
}

// Path resolves name to a file path.
func (st Store) Path(name string) string {
	if filepath.IsAbs(name) || st.Dir == "" {
		return name
	}
	return filepath.Join(st.Dir, name)
}

// Load reads the named file completely and decodes it under the store's policy.
func (st Store) Load(name string) (*Sequence, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("empty sequence name")
	}
	data, err := os.ReadFile(st.Path(name))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "load sequence %s", name)
	}
	seq, err := Read(bytes.NewReader(data), st.Policy)
	if err != nil {
		return seq, pkgerrors.WithMessagef(err, "load sequence %s", name)
	}
	return seq, nil
}

// Save writes s to the named file, replacing it.
func (st Store) Save(name string, s *Sequence) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("empty sequence name")
	}
	var buf bytes.Buffer
	if err := Write(&buf, s); err != nil {
		return err
	}
	path := st.Path(name)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return pkgerrors.Wrapf(err, "save sequence %s", name)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return pkgerrors.Wrapf(err, "save sequence %s", name)
	}
	return nil
}
