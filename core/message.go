package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Priority is advisory metadata carried on the wire envelope. The bus does
// not implement priority-ordered delivery; the enum exists because the
// boundary contract requires it.
type Priority int

const (
	// PriorityLow marks background traffic.
	PriorityLow Priority = iota
	// PriorityNormal is the default for interactive turns.
	PriorityNormal
	// PriorityHigh marks latency-sensitive traffic.
	PriorityHigh
	// PriorityCritical marks traffic that must not be shed.
	PriorityCritical
)

// String returns the wire representation of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityHigh:
		return "HIGH"
	case PriorityCritical:
		return "CRITICAL"
	default:
		return "NORMAL"
	}
}

// MarshalJSON encodes the priority as its wire string.
func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes the wire string form; unknown values are rejected.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "LOW":
		*p = PriorityLow
	case "NORMAL":
		*p = PriorityNormal
	case "HIGH":
		*p = PriorityHigh
	case "CRITICAL":
		*p = PriorityCritical
	default:
		return fmt.Errorf("unknown priority %q", s)
	}
	return nil
}

// Message is the transient envelope exchanged between agents during one call.
// It lives only for the duration of the call and is never persisted;
// conversation messages are a separate concept (ConversationMessage).
type Message struct {
	ID         string    `json:"message_id"`
	From       string    `json:"from_agent_id"`
	To         string    `json:"to_agent_id"`
	Content    any       `json:"content"`
	ResponseTo string    `json:"response_to,omitempty"`
	Priority   Priority  `json:"priority"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewMessage constructs an envelope with a fresh id and timestamp.
func NewMessage(from, to string, content any) *Message {
	return &Message{
		ID:        NewID(),
		From:      from,
		To:        to,
		Content:   content,
		Priority:  PriorityNormal,
		Timestamp: time.Now().UTC(),
	}
}

// QueryPayload is the conventional request content of an agent call.
type QueryPayload struct {
	Query        string               `json:"query"`
	Conversation *ConversationContext `json:"context,omitempty"`
}

// ReplyPayload is the conventional response content of an agent call.
type ReplyPayload struct {
	Text      string     `json:"response"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// Reply builds the response envelope for a received message, wiring the
// ResponseTo correlation field to the original message id.
func (m *Message) Reply(from string, content any) *Message {
	r := NewMessage(from, m.From, content)
	r.ResponseTo = m.ID
	r.Priority = m.Priority
	return r
}

// Handler is an agent's inbound message processor. Returning a nil response
// with a nil error means the agent deliberately produced no reply.
type Handler func(ctx context.Context, msg *Message) (*Message, error)

// AgentDescriptor identifies a registered agent and its inbound handler.
// Descriptors are owned exclusively by the bus registry and never persisted.
type AgentDescriptor struct {
	ID          string
	Name        string
	Description string
	Handler     Handler
}
