// Package bridge talks to an arm through a bridge process that hosts the
// vendor SDK and exposes it over a websocket.
//
// Every call is one JSON request answered by one JSON response carrying the
// same id:
//
//	-> {"id":"<uuid>","method":"set_position","params":{"pose":[...],"radius":10,"speed":100}}
//	<- {"id":"<uuid>","code":0,"result":null}
//
// A nonzero code is the controller's status code and surfaces as
// *arm.CodeError.
package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/gwillem/armctl/pkg/arm"
)

// DefaultTimeout bounds each request when ctx has no earlier deadline.
const DefaultTimeout = 5 * time.Second

type request struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type response struct {
	ID     string          `json:"id"`
	Code   arm.Code        `json:"code"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Client is an arm.Arm backed by a bridge connection.
type Client struct {
	url     string
	timeout time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

// New returns a client for the bridge at url. No connection is made until
// Connect.
func New(url string) *Client {
	return &Client{url: url, timeout: DefaultTimeout}
}

func (c *Client) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.timeout}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return errors.Wrapf(err, "dial arm bridge %s", c.url)
	}
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
	c.mu.Unlock()

	// Velocity commands must replace each other rather than queue.
	return c.call(ctx, "set_cartesian_velo_continuous", map[string]bool{"on": true}, nil)
}

func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// call performs one round trip. A transport failure drops the connection
// so the next Connected reports false.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return arm.ErrNotConnected
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	id := uuid.NewString()

	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteJSON(request{ID: id, Method: method, Params: params}); err != nil {
		return c.drop(errors.Wrapf(err, "send %s", method))
	}

	_ = c.conn.SetReadDeadline(deadline)
	for {
		var resp response
		if err := c.conn.ReadJSON(&resp); err != nil {
			return c.drop(errors.Wrapf(err, "receive %s", method))
		}
		if resp.ID != id {
			continue
		}
		if err := arm.Check(method, resp.Code); err != nil {
			return err
		}
		if out != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return errors.Wrapf(err, "decode %s result", method)
			}
		}
		return nil
	}
}

func (c *Client) drop(err error) error {
	c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) MotionReady(ctx context.Context) (bool, error) {
	var ok bool
	err := c.call(ctx, "motion_ready", nil, &ok)
	return ok, err
}

func (c *Client) HasErrorOrWarning(ctx context.Context) (bool, error) {
	var v bool
	err := c.call(ctx, "has_err_warn", nil, &v)
	return v, err
}

func (c *Client) CleanError(ctx context.Context) error {
	return c.call(ctx, "clean_error", nil, nil)
}

func (c *Client) CleanWarn(ctx context.Context) error {
	return c.call(ctx, "clean_warn", nil, nil)
}

func (c *Client) MotionEnable(ctx context.Context, enable bool) error {
	return c.call(ctx, "motion_enable", map[string]bool{"enable": enable}, nil)
}

func (c *Client) Mode(ctx context.Context) (arm.Mode, error) {
	var m arm.Mode
	err := c.call(ctx, "get_mode", nil, &m)
	return m, err
}

func (c *Client) SetMode(ctx context.Context, m arm.Mode) error {
	return c.call(ctx, "set_mode", map[string]arm.Mode{"mode": m}, nil)
}

func (c *Client) State(ctx context.Context) (arm.State, error) {
	var s arm.State
	err := c.call(ctx, "get_state", nil, &s)
	return s, err
}

func (c *Client) SetState(ctx context.Context, s arm.State) error {
	return c.call(ctx, "set_state", map[string]arm.State{"state": s}, nil)
}

func (c *Client) SetToolOffset(ctx context.Context, offset arm.Pose) error {
	return c.call(ctx, "set_tcp_offset", map[string][6]float64{"offset": offset.Values()}, nil)
}

func (c *Client) SetToolPayload(ctx context.Context, p arm.Payload) error {
	cog := p.CenterOfGravity
	return c.call(ctx, "set_tcp_load", map[string]any{
		"weight":            p.Mass,
		"center_of_gravity": [3]float64{cog.X, cog.Y, cog.Z},
	}, nil)
}

func (c *Client) OpenGripper(ctx context.Context) error {
	return c.call(ctx, "open_lite6_gripper", nil, nil)
}

func (c *Client) CloseGripper(ctx context.Context) error {
	return c.call(ctx, "close_lite6_gripper", nil, nil)
}

func (c *Client) StopGripper(ctx context.Context) error {
	return c.call(ctx, "stop_lite6_gripper", nil, nil)
}

// SetPosition queues a move and returns without waiting for it.
func (c *Client) SetPosition(ctx context.Context, p arm.Pose, radius, speed float64) error {
	return c.call(ctx, "set_position", map[string]any{
		"pose":   p.Values(),
		"radius": radius,
		"speed":  speed,
		"wait":   false,
	}, nil)
}

func (c *Client) SetCartesianVelocity(ctx context.Context, v arm.Velocity, d time.Duration) error {
	return c.call(ctx, "vc_set_cartesian_velocity", map[string]any{
		"speeds":   v.Values(),
		"duration": d.Seconds(),
	}, nil)
}

func (c *Client) SetPauseTime(ctx context.Context, d time.Duration) error {
	return c.call(ctx, "set_pause_time", map[string]float64{"seconds": d.Seconds()}, nil)
}

func (c *Client) Position(ctx context.Context) (arm.Pose, error) {
	var v [6]float64
	if err := c.call(ctx, "get_position", nil, &v); err != nil {
		return arm.Pose{}, err
	}
	return arm.PoseFromValues(v), nil
}

func (c *Client) CommandCount(ctx context.Context) (int, error) {
	var n int
	err := c.call(ctx, "get_cmdnum", nil, &n)
	return n, err
}

var _ arm.Arm = (*Client)(nil)
