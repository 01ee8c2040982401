// Package spacenav reads 6-axis motion from the spacenavd daemon over its
// unix socket.
//
// The daemon sends fixed 32 byte events: eight native-endian int32 words.
// Word 0 is the event type (0 motion, 1 button press, 2 button release).
// Motion events carry x, y, z, rx, ry, rz and the period in words 1-7;
// button events carry the button number in word 1.
package spacenav

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"

	"github.com/pkg/errors"

	"github.com/gwillem/armctl/pkg/input"
)

// DefaultSocket is where spacenavd listens.
const DefaultSocket = "/var/run/spnav.sock"

// FullScale is the raw axis value mapped to 1.0.
const FullScale = 350.0

const eventSize = 32

const (
	eventMotion  = 0
	eventPress   = 1
	eventRelease = 2
)

// Options configures a Device.
type Options struct {
	// FullScale overrides the raw value treated as full deflection.
	FullScale float64
	// Buttons maps button numbers to actions pushed onto Actions on press.
	Buttons map[int]input.Action
	Actions *input.Queue
}

// Device is an input.Continuous backed by spacenavd.
type Device struct {
	conn  net.Conn
	opts  Options
	mu    sync.Mutex
	state input.Sample
	err   error
	done  chan struct{}
}

// Dial connects to the daemon at path.
func Dial(ctx context.Context, path string, opts Options) (*Device, error) {
	if path == "" {
		path = DefaultSocket
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to spacenavd at %s", path)
	}
	return New(conn, opts), nil
}

// New starts reading events from conn.
func New(conn net.Conn, opts Options) *Device {
	if opts.FullScale <= 0 {
		opts.FullScale = FullScale
	}
	d := &Device{conn: conn, opts: opts, done: make(chan struct{})}
	go d.run()
	return d
}

// Read returns the latest motion state.
func (d *Device) Read() (input.Sample, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state, d.err
}

// Close stops the reader and closes the socket.
func (d *Device) Close() error {
	err := d.conn.Close()
	<-d.done
	return err
}

func (d *Device) run() {
	defer close(d.done)
	buf := make([]byte, eventSize)
	for {
		if _, err := io.ReadFull(d.conn, buf); err != nil {
			d.mu.Lock()
			d.state = input.Sample{}
			d.err = errors.Wrap(err, "read spacenav event")
			d.mu.Unlock()
			return
		}
		var w [8]int32
		for i := range w {
			w[i] = int32(binary.NativeEndian.Uint32(buf[i*4:]))
		}
		d.handle(w)
	}
}

func (d *Device) handle(w [8]int32) {
	switch w[0] {
	case eventMotion:
		s := d.sample(w[1], w[2], w[3], w[4], w[5], w[6])
		d.mu.Lock()
		d.state = s
		d.mu.Unlock()
	case eventPress:
		if a, ok := d.opts.Buttons[int(w[1])]; ok && d.opts.Actions != nil {
			d.opts.Actions.Push(a)
		}
	case eventRelease:
	}
}

// sample converts daemon axes (x right, y up, z toward the user) into the
// arm-facing frame (x right, y forward, z up).
func (d *Device) sample(x, y, z, rx, ry, rz int32) input.Sample {
	return input.Sample{
		X:     d.norm(x),
		Y:     d.norm(-z),
		Z:     d.norm(y),
		Roll:  d.norm(-rz),
		Pitch: d.norm(rx),
		Yaw:   d.norm(ry),
	}
}

func (d *Device) norm(v int32) float64 {
	f := float64(v) / d.opts.FullScale
	return max(-1, min(1, f))
}
