// Package client implements the controller side of the relay
// protocol: a single outbound connection that registers itself, pushes
// a full state snapshot on every (re)connect, coalesces rapid state
// mutations into debounced pushes, and reconnects with capped
// geometric backoff. The relay keeps no state, so a fresh snapshot
// after reconnecting is the only recovery mechanism a display needs.
package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/overlay-relay/internal/types"
)

// Command names a controller typically emits. Payloads stay opaque to
// the relay; displays interpret them.
const (
	CmdNext       = "next"
	CmdPrev       = "prev"
	CmdGoto       = "goto"
	CmdToggleDone = "toggleDone"
	CmdSpin       = "spin"
	CmdStop       = "stop"
	CmdSlotSpin   = "slotSpin"
	CmdSlotStop   = "slotStop"
)

const (
	defaultDebounce    = 60 * time.Millisecond
	defaultBackoffBase = 800 * time.Millisecond
	defaultBackoffCap  = 5 * time.Second
	backoffFactor      = 1.6
	writeTimeout       = 3 * time.Second
)

// conn is the slice of *websocket.Conn the controller uses; a seam for
// tests.
type conn interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Close(code websocket.StatusCode, reason string) error
}

type Config struct {
	URL     string // ws:// endpoint of the relay
	Channel string
	Logger  *zap.Logger

	Debounce    time.Duration // quiet interval before a state push; default 60ms
	BackoffBase time.Duration // first reconnect delay; default 800ms
	BackoffCap  time.Duration // ceiling for reconnect delays; default 5s
}

// Controller maintains one relay connection for its lifetime. Local
// mutations always land in the in-memory snapshot; whether a push goes
// out now, debounced, or on the next successful connect depends on
// connection state. No per-message queue exists.
type Controller struct {
	cfg Config
	log *zap.Logger

	mu    sync.Mutex
	state json.RawMessage
	timer *time.Timer
	conn  conn

	dial func(ctx context.Context) (conn, error)
}

func New(cfg Config) *Controller {
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = defaultBackoffCap
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	c := &Controller{cfg: cfg, log: cfg.Logger}
	c.dial = func(ctx context.Context) (conn, error) {
		wc, _, err := websocket.Dial(ctx, cfg.URL, nil)
		if err != nil {
			return nil, err
		}
		return wc, nil
	}
	return c
}

// Run connects and keeps reconnecting until ctx is canceled. Each
// successful open resets the backoff to its base, registers, and
// pushes the current snapshot immediately.
func (c *Controller) Run(ctx context.Context) {
	backoff := c.cfg.BackoffBase
	for {
		wc, err := c.dial(ctx)
		if err != nil {
			c.log.Warn("dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, c.cfg.BackoffCap)
			continue
		}
		backoff = c.cfg.BackoffBase

		c.mu.Lock()
		c.conn = wc
		c.mu.Unlock()

		c.session(ctx, wc)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = wc.Close(websocket.StatusNormalClosure, "bye")

		if ctx.Err() != nil {
			return
		}
		c.log.Info("disconnected", zap.Duration("retry_in", backoff))
		if !sleep(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff, c.cfg.BackoffCap)
	}
}

// session registers, pushes state, and reads until the connection
// dies. Displays that join later ask for state via request-state,
// answered with an immediate push.
func (c *Controller) session(ctx context.Context, wc conn) {
	c.write(wc, types.Envelope{
		Type:    types.TypeRegister,
		Role:    string(types.RoleController),
		Channel: c.cfg.Channel,
	})
	c.PushNow()

	for {
		_, data, err := wc.Read(ctx)
		if err != nil {
			return
		}
		var env types.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		if env.Type == types.TypeRequestState {
			c.PushNow()
		}
	}
}

// SetState replaces the local snapshot and arms the debounce deadline
// if it is not already armed; rapid successive calls coalesce into one
// push after the quiet interval.
func (c *Controller) SetState(state any) error {
	buf, err := json.Marshal(state)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.state = buf
	if c.timer == nil {
		c.timer = time.AfterFunc(c.cfg.Debounce, c.flush)
	}
	c.mu.Unlock()
	return nil
}

// PushNow sends the current snapshot immediately, bypassing the
// debounce. Used right after (re)connecting and for request-state.
func (c *Controller) PushNow() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	c.flush()
}

// SendCommand emits a fire-and-forget command to the channel's
// displays. Dropped silently while disconnected.
func (c *Controller) SendCommand(cmd string, payload any) error {
	var raw json.RawMessage
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		raw = buf
	}
	c.mu.Lock()
	wc := c.conn
	c.mu.Unlock()
	if wc == nil {
		return nil
	}
	c.write(wc, types.Envelope{
		Type:    types.TypeCmd,
		Channel: c.cfg.Channel,
		Cmd:     cmd,
		Payload: raw,
	})
	return nil
}

// Connected reports whether a session is currently open.
func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// flush snapshots under the lock, then sends outside it. With no open
// connection the push is skipped; the next successful connect pushes a
// fresh snapshot anyway.
func (c *Controller) flush() {
	c.mu.Lock()
	c.timer = nil
	buf := c.state
	wc := c.conn
	c.mu.Unlock()

	if wc == nil || buf == nil {
		return
	}
	c.write(wc, types.Envelope{
		Type:    types.TypeState,
		Channel: c.cfg.Channel,
		Payload: buf,
	})
}

func (c *Controller) write(wc conn, env types.Envelope) {
	frame, err := json.Marshal(env)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := wc.Write(ctx, websocket.MessageText, frame); err != nil {
		c.log.Debug("write failed", zap.Error(err))
	}
}

func nextBackoff(cur, ceiling time.Duration) time.Duration {
	next := time.Duration(float64(cur) * backoffFactor)
	if next > ceiling {
		return ceiling
	}
	return next
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
