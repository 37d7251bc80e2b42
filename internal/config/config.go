// Package config holds the runtime configuration types.
package config

import (
	"errors"
	"time"
)

// Mode selects how the operator drives the negotiation.
type Mode string

const (
	ModeInteractive Mode = "interactive"
	ModeControl     Mode = "control"
)

// OfferOptions asks the initiator to offer to receive media it does not send.
type OfferOptions struct {
	ReceiveAudio bool
	ReceiveVideo bool
}

// Config stores all parameters gathered from CLI flags.
type Config struct {
	Mode              Mode
	ICEServers        []string      // STUN URLs; empty means host candidates only
	HeartbeatInterval time.Duration // period of the data channel counter
	ChannelLabel      string        // label of the initiator's data channel
	Offer             OfferOptions
	StrictValidation  bool   // parse edited text before applying it
	ListenAddr        string // control mode: address of the WebSocket surface
	Debug             bool
}

// STUN servers for ICE candidate gathering. No TURN: both agents live in the
// same process.
var defaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// Default returns the configuration used when no flags are given.
func Default() Config {
	return Config{
		Mode:              ModeInteractive,
		ICEServers:        append([]string(nil), defaultSTUNServers...),
		HeartbeatInterval: time.Second,
		ChannelLabel:      "sendDataChannel",
		Offer:             OfferOptions{ReceiveAudio: true, ReceiveVideo: true},
		ListenAddr:        "127.0.0.1:8080",
	}
}

// Validate rejects configurations the coordinator cannot run with.
func (c Config) Validate() error {
	if c.HeartbeatInterval <= 0 {
		return errors.New("heartbeat interval must be positive")
	}
	if c.ChannelLabel == "" {
		return errors.New("channel label must not be empty")
	}
	switch c.Mode {
	case ModeInteractive:
	case ModeControl:
		if c.ListenAddr == "" {
			return errors.New("control mode requires a listen address")
		}
	default:
		return errors.New("unknown mode: " + string(c.Mode))
	}
	return nil
}
