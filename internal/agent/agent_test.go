package agent_test

import (
	"testing"

	"github.com/1ureka/mungesdp/internal/agent"
	"github.com/1ureka/mungesdp/internal/agent/agenttest"
)

func TestRole(t *testing.T) {
	if agent.RoleInitiator.Opposite() != agent.RoleResponder {
		t.Error("initiator opposite is not responder")
	}
	if agent.RoleResponder.Opposite() != agent.RoleInitiator {
		t.Error("responder opposite is not initiator")
	}
	if agent.RoleInitiator.String() != "initiator" || agent.RoleResponder.String() != "responder" {
		t.Errorf("unexpected role names %q %q", agent.RoleInitiator, agent.RoleResponder)
	}
}

func TestPairOther(t *testing.T) {
	ini := agenttest.NewAgent(agent.RoleInitiator)
	res := agenttest.NewAgent(agent.RoleResponder)
	pair := agent.Pair{Initiator: ini, Responder: res}

	if pair.Other(ini) != res {
		t.Error("Other(initiator) is not responder")
	}
	if pair.Other(res) != ini {
		t.Error("Other(responder) is not initiator")
	}
	if pair.Other(agenttest.NewAgent(agent.RoleInitiator)) != nil {
		t.Error("Other(stranger) must be nil")
	}
	if pair.Of(agent.RoleResponder) != res || pair.Of(agent.RoleInitiator) != ini {
		t.Error("Of returned the wrong agent")
	}
}
