package agent

import "github.com/pion/webrtc/v4"

// DataChannel adapts a pion DataChannel to Channel.
type DataChannel struct {
	raw *webrtc.DataChannel
}

// NewDataChannel wraps a pion DC.
func NewDataChannel(raw *webrtc.DataChannel) *DataChannel {
	return &DataChannel{raw: raw}
}

// OnMessage delivers the payload of every inbound message.
func (c *DataChannel) OnMessage(fn func([]byte)) {
	c.raw.OnMessage(func(msg webrtc.DataChannelMessage) {
		fn(msg.Data)
	})
}

// The rest proxies the underlying methods directly.
func (c *DataChannel) Label() string                       { return c.raw.Label() }
func (c *DataChannel) ReadyState() webrtc.DataChannelState { return c.raw.ReadyState() }
func (c *DataChannel) SendText(text string) error          { return c.raw.SendText(text) }
func (c *DataChannel) OnOpen(fn func())                    { c.raw.OnOpen(fn) }
func (c *DataChannel) OnClose(fn func())                   { c.raw.OnClose(fn) }
func (c *DataChannel) OnError(fn func(error))              { c.raw.OnError(fn) }
func (c *DataChannel) Close() error                        { return c.raw.Close() }
func (c *DataChannel) Raw() *webrtc.DataChannel            { return c.raw }
