package sequence

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/armctl/pkg/arm"
)

func TestParse_Variants(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{`"open"`, Gripper{Action: GripperOpen}},
		{`"close"`, Gripper{Action: GripperClose}},
		{` "stop" `, Gripper{Action: GripperStop}},
		{`[100, 0, 50, 0, 0, 0, 10, 100]`, MoveTo{Pose: arm.Pose{X: 100, Z: 50}, Radius: 10, Speed: 100}},
		{`[1.5,-2.25,3,180,-0.5,90,1,200]`, MoveTo{Pose: arm.Pose{X: 1.5, Y: -2.25, Z: 3, Roll: 180, Pitch: -0.5, Yaw: 90}, Radius: 1, Speed: 200}},
		{`["pause", 2.5]`, Pause{Seconds: 2.5}},
		{`["pause", 0]`, Pause{Seconds: 0}},
		{`["include", "sub.seq"]`, Include{Name: "sub.seq"}},
	}

	for _, tt := range tests {
		got, err := Parse(tt.line)
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	lines := []string{
		`"open"`,
		`"close"`,
		`"stop"`,
		`[206.3, -0.1, 112.8, 179.99, 0.01, 0.3, 10, 100]`,
		`[1e-7, 123456.789, -0, 0.1, 0.2, 0.3, 50, 10]`,
		`["pause", 2.5]`,
		`["pause", 0.333333333333]`,
		`["include", "nested/dir/x.seq"]`,
		`["include", "a <b> & c.seq"]`,
	}

	for _, line := range lines {
		first, err := Parse(line)
		require.NoError(t, err, line)

		second, err := Parse(Format(first))
		require.NoError(t, err, Format(first))
		assert.Equal(t, first, second, line)

		// Formatting is stable after one pass.
		assert.Equal(t, Format(first), Format(second))
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		unknown bool
	}{
		{"gripper as array", `["open"]`, false},
		{"gripper array with args", `["close", 1]`, false},
		{"seven numbers", `[1, 2, 3, 4, 5, 6, 7]`, false},
		{"nine numbers", `[1, 2, 3, 4, 5, 6, 7, 8, 9]`, false},
		{"non-numeric field", `[1, 2, 3, 4, 5, 6, 7, "8"]`, false},
		{"null field", `[1, 2, 3, 4, 5, null, 7, 8]`, false},
		{"pause object", `"pause":[2.5]`, false},
		{"pause as object", `{"pause": 2.5}`, false},
		{"pause wrong arity", `["pause"]`, false},
		{"pause negative", `["pause", -1]`, false},
		{"pause string", `["pause", "2"]`, false},
		{"include number", `["include", 3]`, false},
		{"include empty", `["include", ""]`, false},
		{"empty array", `[]`, false},
		{"number", `42`, false},
		{"empty", ``, false},
		{"trailing garbage", `"open" "close"`, false},
		{"bad json", `[1, 2,`, false},
		{"unknown bare tag", `"jump"`, true},
		{"unknown array tag", `["wave", 3]`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.line)
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
			if tt.unknown {
				assert.ErrorIs(t, err, ErrUnknownCommand)
				assert.NotErrorIs(t, err, ErrParse)
			} else {
				assert.ErrorIs(t, err, ErrParse)
			}
		})
	}
}

// Scenario from the sequence format notes: one malformed "pause" line among
// valid lines.
const mixedFile = `"open"
[100,0,50,0,0,0,10,100]
"pause":[2.5]
`

func TestRead_StrictRejectsWholeFile(t *testing.T) {
	seq, err := Read(strings.NewReader(mixedFile), Strict)
	require.Error(t, err)
	assert.Nil(t, seq)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.Line)
	assert.ErrorIs(t, err, ErrParse)
}

func TestRead_LenientKeepsValidLines(t *testing.T) {
	seq, err := Read(strings.NewReader(mixedFile), Lenient)
	require.Error(t, err)
	require.NotNil(t, seq)

	assert.Equal(t, []Command{
		Gripper{Action: GripperOpen},
		MoveTo{Pose: arm.Pose{X: 100, Z: 50}, Radius: 10, Speed: 100},
	}, seq.Commands())

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.Line)
}

func TestRead_PoliciesAgreeOnValidFiles(t *testing.T) {
	const valid = "\"open\"\n\n[1,2,3,4,5,6,7,8]\n[\"pause\",1]\n[\"include\",\"x.seq\"]\n"

	strict, err := Read(strings.NewReader(valid), Strict)
	require.NoError(t, err)
	lenient, err := Read(strings.NewReader(valid), Lenient)
	require.NoError(t, err)

	assert.Equal(t, strict.Commands(), lenient.Commands())
	assert.Equal(t, 4, strict.Len())
}

func TestSequence_ClearAndTruncate(t *testing.T) {
	s := New(Gripper{Action: GripperOpen}, Pause{Seconds: 1})
	snapshot := s.Commands()

	s.Truncate()
	assert.Equal(t, 0, s.Len())
	assert.Len(t, snapshot, 2, "snapshot must not change when the sequence is truncated")

	s.Append(Include{Name: "a"})
	assert.Equal(t, []Command{Include{Name: "a"}}, s.Commands())
	assert.Len(t, snapshot, 2)
	assert.Equal(t, Gripper{Action: GripperOpen}, snapshot[0])

	s.Clear()
	assert.Equal(t, 0, s.Len())
}

func TestSequence_All(t *testing.T) {
	s := New(Gripper{Action: GripperOpen}, Gripper{Action: GripperClose}, Gripper{Action: GripperStop})

	var seen []Command
	for i, c := range s.All() {
		assert.Equal(t, len(seen), i)
		seen = append(seen, c)
		if i == 1 {
			break
		}
	}
	assert.Len(t, seen, 2)
}

func TestStore_SaveLoad(t *testing.T) {
	st := Store{Dir: t.TempDir()}
	want := New(
		Gripper{Action: GripperOpen},
		MoveTo{Pose: arm.Pose{X: 206.5, Y: -3, Z: 120, Roll: 180, Yaw: 0.5}, Radius: 10, Speed: 100},
		Pause{Seconds: 2.5},
		Include{Name: "pick.seq"},
		Gripper{Action: GripperClose},
	)

	require.NoError(t, st.Save("sub/demo.seq", want))

	data, err := os.ReadFile(filepath.Join(st.Dir, "sub", "demo.seq"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	assert.Len(t, lines, 5)
	assert.Equal(t, `"open"`, lines[0])
	assert.Equal(t, `["pause",2.5]`, lines[2])

	got, err := st.Load("sub/demo.seq")
	require.NoError(t, err)
	assert.Equal(t, want.Commands(), got.Commands())
}

func TestStore_LoadErrors(t *testing.T) {
	st := Store{Dir: t.TempDir()}

	_, err := st.Load("missing.seq")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = st.Load("  ")
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(st.Dir, "bad.seq"), []byte(mixedFile), 0o644))
	_, err = st.Load("bad.seq")
	assert.ErrorIs(t, err, ErrParse)

	st.Policy = Lenient
	seq, err := st.Load("bad.seq")
	assert.ErrorIs(t, err, ErrParse)
	require.NotNil(t, seq)
	assert.Equal(t, 2, seq.Len())
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, Strict, p)

	p, err = ParsePolicy("Lenient")
	require.NoError(t, err)
	assert.Equal(t, Lenient, p)

	_, err = ParsePolicy("loose")
	assert.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	const file = "\"open\"\n[1,2]\n\n\"wave\"\n[1,2,3,4,5,6,7,8]\n"

	st := Store{Dir: t.TempDir(), Policy: Lenient}
	require.NoError(t, os.WriteFile(filepath.Join(st.Dir, "two.seq"), []byte(file), 0o644))

	seq, err := st.Load("two.seq")
	require.NotNil(t, seq)
	assert.Equal(t, 2, seq.Len())

	errs := ParseErrors(err)
	require.Len(t, errs, 2)
	assert.Equal(t, 2, errs[0].Line)
	assert.ErrorIs(t, errs[0], ErrParse)
	assert.Equal(t, 4, errs[1].Line)
	assert.ErrorIs(t, errs[1], ErrUnknownCommand)

	assert.Nil(t, ParseErrors(nil))
	assert.Nil(t, ParseErrors(errors.New("disk on fire")))

	_, single := Parse("[1]")
	assert.Len(t, ParseErrors(single), 1)
}
