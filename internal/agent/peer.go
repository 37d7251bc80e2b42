package agent

import (
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/mungesdp/internal/config"
	"github.com/1ureka/mungesdp/internal/util"
)

// NewPionFactory returns a Factory producing pion-backed agents that share a
// single API instance configured from cfg.
func NewPionFactory(cfg config.Config) (Factory, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}

	s := webrtc.SettingEngine{}
	s.LoggerFactory = util.PionLoggerFactory{}

	api := webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithSettingEngine(s))

	var servers []webrtc.ICEServer
	if len(cfg.ICEServers) > 0 {
		servers = []webrtc.ICEServer{{URLs: cfg.ICEServers}}
	}

	return func(role Role) (Agent, error) {
		pc, err := api.NewPeerConnection(webrtc.Configuration{ICEServers: servers})
		if err != nil {
			return nil, err
		}
		return newPeer(role, pc), nil
	}, nil
}
