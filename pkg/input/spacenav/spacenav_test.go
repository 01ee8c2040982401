package spacenav

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/armctl/pkg/input"
)

func event(words ...int32) []byte {
	b := make([]byte, eventSize)
	for i, w := range words {
		binary.NativeEndian.PutUint32(b[i*4:], uint32(w))
	}
	return b
}

func TestDevice_Motion(t *testing.T) {
	server, client := net.Pipe()
	d := New(client, Options{})
	defer d.Close()

	_, err := server.Write(event(eventMotion, 175, 350, -700, 0, 35, 0, 16))
	require.NoError(t, err)

	want := input.Sample{X: 0.5, Y: 1, Z: 1, Yaw: 0.1}
	require.Eventually(t, func() bool {
		s, err := d.Read()
		return err == nil && s == want
	}, time.Second, time.Millisecond)

	_, err = server.Write(event(eventMotion))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		s, _ := d.Read()
		return s.IsZero()
	}, time.Second, time.Millisecond)
}

func TestDevice_Buttons(t *testing.T) {
	server, client := net.Pipe()
	q := input.NewQueue(4)
	d := New(client, Options{
		Buttons: map[int]input.Action{0: input.ActionGripperOpen, 1: input.ActionGripperClose},
		Actions: q,
	})
	defer d.Close()

	for _, ev := range [][]byte{
		event(eventPress, 1),
		event(eventRelease, 1),
		event(eventPress, 7),
		event(eventPress, 0),
	} {
		_, err := server.Write(ev)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return q.Pending() == 2 }, time.Second, time.Millisecond)
	a, _ := q.Poll()
	assert.Equal(t, input.ActionGripperClose, a)
	a, _ = q.Poll()
	assert.Equal(t, input.ActionGripperOpen, a)
}

func TestDevice_ReadErrorAfterHangup(t *testing.T) {
	server, client := net.Pipe()
	d := New(client, Options{})

	require.NoError(t, server.Close())
	require.Eventually(t, func() bool {
		_, err := d.Read()
		return err != nil
	}, time.Second, time.Millisecond)
	d.Close()
}
