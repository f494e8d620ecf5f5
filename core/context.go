package core

import (
	"slices"
	"sync"
	"time"
)

// ConversationMessage is one persisted message in a conversation's history.
// Messages are append-only; insertion order is significant.
type ConversationMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	AgentID   string    `json:"agent_id,omitempty"`
	Turn      int       `json:"turn,omitempty"`
}

// IntentRecord is the persisted trace of one classified user turn: the intent
// tag, the classifier's confidence and the agents that contributed to the
// answer.
type IntentRecord struct {
	Type       string         `json:"intent_type"`
	Confidence float64        `json:"confidence"`
	Agents     []string       `json:"agents,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ConversationContext is the persisted per-session state of one conversation.
// It is safe for concurrent access.
//
// Contract:
//   - ID is immutable once created
//   - Messages only grows; insertion order is preserved
//   - AgentsInvolved is union-only and always a superset of the agent ids
//     appearing in Messages
//   - Metadata always carries created_at and updated_at
//   - Clone performs deep copies of maps/slices for safe divergence.
type ConversationContext struct {
	ID             string                `json:"conversation_id"`
	UserID         string                `json:"user_id"`
	SessionID      string                `json:"session_id,omitempty"`
	Metadata       map[string]any        `json:"metadata"`
	Messages       []ConversationMessage `json:"messages"`
	Intents        []IntentRecord        `json:"intents"`
	AgentsInvolved []string              `json:"agents_involved"`
	Artifacts      []Artifact            `json:"artifacts"`
	Variables      map[string]any        `json:"variables"`
	mu             sync.RWMutex
}

// NewConversationContext allocates a fresh conversation for the given user.
// Metadata may be nil; created_at/updated_at are always set.
func NewConversationContext(userID string, metadata map[string]any) *ConversationContext {
	now := time.Now().UTC()
	md := make(map[string]any, len(metadata)+2)
	for k, v := range metadata {
		md[k] = v
	}
	md["created_at"] = now
	md["updated_at"] = now
	return &ConversationContext{
		ID:       NewID(),
		UserID:   userID,
		Metadata: md,
	}
}

// touch refreshes updated_at. Caller must hold the write lock.
func (c *ConversationContext) touch() {
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	c.Metadata["updated_at"] = time.Now().UTC()
}

// AddMessage appends a message and unions its agent id into AgentsInvolved.
// A zero Timestamp is filled in; Turn is assigned from the current history
// length when left at zero.
func (c *ConversationContext) AddMessage(msg ConversationMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if msg.Turn == 0 {
		msg.Turn = len(c.Messages)
	}
	c.Messages = append(c.Messages, msg)
	if msg.AgentID != "" {
		c.unionAgentLocked(msg.AgentID)
	}
	c.touch()
}

// AddIntent appends an intent record and unions its contributing agents into
// AgentsInvolved.
func (c *ConversationContext) AddIntent(rec IntentRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Intents = append(c.Intents, rec)
	for _, a := range rec.Agents {
		c.unionAgentLocked(a)
	}
	c.touch()
}

// AddArtifact appends an artifact produced by an agent.
func (c *ConversationContext) AddArtifact(a Artifact) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Artifacts = append(c.Artifacts, a)
	if a.Source != "" {
		c.unionAgentLocked(a.Source)
	}
	c.touch()
}

func (c *ConversationContext) unionAgentLocked(agentID string) {
	if !slices.Contains(c.AgentsInvolved, agentID) {
		c.AgentsInvolved = append(c.AgentsInvolved, agentID)
	}
}

// SetVariable stores session-scoped key/value state.
func (c *ConversationContext) SetVariable(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Variables == nil {
		c.Variables = map[string]any{}
	}
	c.Variables[key] = value
	c.touch()
}

// GetVariable returns the value and existence flag for a variable key.
func (c *ConversationContext) GetVariable(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.Variables[key]
	return v, ok
}

// BumpAgentUsage increments the per-conversation usage counter for an agent.
// Counters live under the "agent_usage" variable as a map[string]int.
func (c *ConversationContext) BumpAgentUsage(agentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Variables == nil {
		c.Variables = map[string]any{}
	}
	usage, _ := c.Variables["agent_usage"].(map[string]int)
	if usage == nil {
		usage = map[string]int{}
	}
	usage[agentID]++
	c.Variables["agent_usage"] = usage
	c.touch()
}

// AgentUsage returns a copy of the per-conversation agent usage counters.
func (c *ConversationContext) AgentUsage() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	usage, _ := c.Variables["agent_usage"].(map[string]int)
	out := make(map[string]int, len(usage))
	for k, v := range usage {
		out[k] = v
	}
	return out
}

// History returns a defensive copy of the last n messages (all when n <= 0).
func (c *ConversationContext) History(n int) []ConversationMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	start := 0
	if n > 0 && len(c.Messages) > n {
		start = len(c.Messages) - n
	}
	out := make([]ConversationMessage, len(c.Messages)-start)
	copy(out, c.Messages[start:])
	return out
}

// MessageCount returns the current history length.
func (c *ConversationContext) MessageCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.Messages)
}

// Involved reports whether the agent id is already part of AgentsInvolved.
func (c *ConversationContext) Involved(agentID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Contains(c.AgentsInvolved, agentID)
}

// InvolvedAgents returns a defensive copy of AgentsInvolved.
func (c *ConversationContext) InvolvedAgents() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.AgentsInvolved)
}

// Clone returns a deep copy of the conversation safe for independent mutation.
func (c *ConversationContext) Clone() *ConversationContext {
	c.mu.RLock()
	defer c.mu.RUnlock()
	clone := &ConversationContext{
		ID:             c.ID,
		UserID:         c.UserID,
		SessionID:      c.SessionID,
		Metadata:       make(map[string]any, len(c.Metadata)),
		Messages:       make([]ConversationMessage, len(c.Messages)),
		Intents:        make([]IntentRecord, len(c.Intents)),
		AgentsInvolved: slices.Clone(c.AgentsInvolved),
		Artifacts:      make([]Artifact, len(c.Artifacts)),
		Variables:      make(map[string]any, len(c.Variables)),
	}
	for k, v := range c.Metadata {
		clone.Metadata[k] = v
	}
	copy(clone.Messages, c.Messages)
	for i, rec := range c.Intents {
		cp := rec
		cp.Agents = slices.Clone(rec.Agents)
		if rec.Metadata != nil {
			cp.Metadata = make(map[string]any, len(rec.Metadata))
			for k, v := range rec.Metadata {
				cp.Metadata[k] = v
			}
		}
		clone.Intents[i] = cp
	}
	for i, a := range c.Artifacts {
		clone.Artifacts[i] = a.Clone()
	}
	for k, v := range c.Variables {
		if usage, ok := v.(map[string]int); ok {
			cp := make(map[string]int, len(usage))
			for uk, uv := range usage {
				cp[uk] = uv
			}
			clone.Variables[k] = cp
			continue
		}
		clone.Variables[k] = v
	}
	return clone
}
