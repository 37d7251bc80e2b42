package negotiation

import "github.com/1ureka/mungesdp/internal/agent"

// Region is the view of one editable description text.
type Region struct {
	Text    string `json:"text"`
	Enabled bool   `json:"enabled"`
}

// Snapshot is what the UI collaborator renders.
type Snapshot struct {
	State              State    `json:"state"`
	Offer              Region   `json:"offer"`
	Answer             Region   `json:"answer"`
	InitiatorHasRemote bool     `json:"initiatorHasRemote"`
	ResponderHasRemote bool     `json:"responderHasRemote"`
	RemoteStreams      []string `json:"remoteStreams,omitempty"`
	HeartbeatSent      int64    `json:"heartbeatSent"`
	HeartbeatLatest    int64    `json:"heartbeatLatest"`
	HeartbeatReceived  bool     `json:"heartbeatReceived"`
}

func (c *Coordinator) snapshot() Snapshot {
	s := Snapshot{
		State:         c.state,
		Offer:         Region{Text: c.offer.Text(), Enabled: c.offer.Enabled()},
		Answer:        Region{Text: c.answer.Text(), Enabled: c.answer.Enabled()},
		RemoteStreams: append([]string(nil), c.remoteStreams...),
	}

	if c.pair.Initiator != nil {
		s.InitiatorHasRemote = hasRemote(c.pair.Initiator)
		s.ResponderHasRemote = hasRemote(c.pair.Responder)
	}
	if c.sender != nil {
		s.HeartbeatSent = c.sender.Sent()
	}
	if c.receiver != nil {
		s.HeartbeatLatest, s.HeartbeatReceived = c.receiver.Latest()
	}

	return s
}

func hasRemote(a agent.Agent) bool {
	_, ok := a.RemoteDescription()
	return ok
}
