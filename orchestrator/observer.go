package orchestrator

import (
	"github.com/hupe1980/agentrouter/bus"
	"github.com/hupe1980/agentrouter/core"
)

// TurnObserver receives progress callbacks during one turn. The streaming
// pipeline uses it to emit events while the turn is still running. Callbacks
// fire from the turn's goroutine in a fixed order: OnIntent once, OnAgents
// once, then OnAgentResult once per dispatched agent in launch order.
type TurnObserver interface {
	OnIntent(intent core.Intent)
	OnAgents(agentIDs []string)
	OnAgentResult(res *bus.Result)
}

// nopObserver is substituted when the caller passes nil.
type nopObserver struct{}

func (nopObserver) OnIntent(core.Intent)      {}
func (nopObserver) OnAgents([]string)         {}
func (nopObserver) OnAgentResult(*bus.Result) {}
