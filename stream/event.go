package stream

import (
	"time"

	"github.com/hupe1980/agentrouter/core"
)

// EventType tags one streaming event.
type EventType string

// Event types in guaranteed emission order. agent_error replaces the content
// chunks of a failed agent; error is terminal and exclusive with complete.
const (
	EventStart          EventType = "start"
	EventStatus         EventType = "status"
	EventIntentAnalysis EventType = "intent_analysis"
	EventAgentsSelected EventType = "agents_selected"
	EventAgentStart     EventType = "agent_start"
	EventContent        EventType = "content"
	EventArtifacts      EventType = "artifacts"
	EventAgentError     EventType = "agent_error"
	EventComplete       EventType = "complete"
	EventError          EventType = "error"
)

// Event is the tagged union emitted by the pipeline. Only the fields
// relevant to its Type are populated.
type Event struct {
	Type           EventType       `json:"type"`
	SessionID      string          `json:"session_id,omitempty"`
	Status         string          `json:"status,omitempty"`
	Message        string          `json:"message,omitempty"`
	Intent         string          `json:"intent,omitempty"`
	Confidence     float64         `json:"confidence,omitempty"`
	Agents         []string        `json:"agents,omitempty"`
	AgentID        string          `json:"agent_id,omitempty"`
	Content        string          `json:"content,omitempty"`
	ChunkIndex     int             `json:"chunk_index,omitempty"`
	IsFinal        bool            `json:"is_final,omitempty"`
	Artifacts      []core.Artifact `json:"artifacts,omitempty"`
	Error          string          `json:"error,omitempty"`
	ProcessingTime time.Duration   `json:"processing_time,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

func newEvent(t EventType) Event {
	return Event{Type: t, Timestamp: time.Now().UTC()}
}

// Terminal reports whether no further events follow this one.
func (e Event) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}
