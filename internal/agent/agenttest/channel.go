package agenttest

import (
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"
)

// ErrNotOpen is returned by SendText on a channel that is not open.
var ErrNotOpen = errors.New("channel not open")

// Channel is an in-memory agent.Channel whose state tests drive directly.
type Channel struct {
	label string

	mu      sync.Mutex
	state   webrtc.DataChannelState
	sent    []string
	closes  int
	onOpen  func()
	onClose func()
	onError func(error)
	onMsg   func([]byte)
}

func NewChannel(label string) *Channel {
	return &Channel{label: label, state: webrtc.DataChannelStateConnecting}
}

func (c *Channel) Label() string { return c.label }

func (c *Channel) ReadyState() webrtc.DataChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) SendText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != webrtc.DataChannelStateOpen {
		return ErrNotOpen
	}
	c.sent = append(c.sent, text)
	return nil
}

func (c *Channel) OnOpen(fn func())       { c.mu.Lock(); c.onOpen = fn; c.mu.Unlock() }
func (c *Channel) OnClose(fn func())      { c.mu.Lock(); c.onClose = fn; c.mu.Unlock() }
func (c *Channel) OnError(fn func(error)) { c.mu.Lock(); c.onError = fn; c.mu.Unlock() }
func (c *Channel) OnMessage(fn func([]byte)) {
	c.mu.Lock()
	c.onMsg = fn
	c.mu.Unlock()
}

// Close moves the channel to closed and fires the close handler once.
func (c *Channel) Close() error {
	c.mu.Lock()
	c.closes++
	already := c.state == webrtc.DataChannelStateClosed
	c.state = webrtc.DataChannelStateClosed
	fn := c.onClose
	c.mu.Unlock()

	if fn != nil && !already {
		fn()
	}
	return nil
}

// Open moves the channel to open and fires the open handler.
func (c *Channel) Open() {
	c.mu.Lock()
	c.state = webrtc.DataChannelStateOpen
	fn := c.onOpen
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Fail fires the error handler with err and moves the channel to closing.
func (c *Channel) Fail(err error) {
	c.mu.Lock()
	c.state = webrtc.DataChannelStateClosing
	fn := c.onError
	c.mu.Unlock()

	if fn != nil {
		fn(err)
	}
}

// Deliver fires the message handler as if data arrived from the peer.
func (c *Channel) Deliver(data []byte) {
	c.mu.Lock()
	fn := c.onMsg
	c.mu.Unlock()

	if fn != nil {
		fn(data)
	}
}

// Sent returns the texts written with SendText.
func (c *Channel) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func (c *Channel) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}
