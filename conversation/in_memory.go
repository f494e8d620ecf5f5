package conversation

import (
	"context"
	"sync"

	"github.com/hupe1980/agentrouter/core"
)

// InMemoryBackend is a volatile core.ConversationBackend storing
// conversations in a process local map. It is safe for concurrent access and
// best suited for tests or ephemeral demo servers. Each conversation is
// cloned on save and load to prevent external mutation of internal state.
type InMemoryBackend struct {
	mu            sync.RWMutex
	conversations map[string]*core.ConversationContext
}

// NewInMemoryBackend constructs an empty in-memory backend.
func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{conversations: make(map[string]*core.ConversationContext)}
}

// Save stores a clone of the conversation snapshot.
func (b *InMemoryBackend) Save(_ context.Context, conv *core.ConversationContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[conv.ID] = conv.Clone()
	return nil
}

// Load returns a clone of the stored conversation or core.ErrNotFound.
func (b *InMemoryBackend) Load(_ context.Context, id string) (*core.ConversationContext, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	conv, ok := b.conversations[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return conv.Clone(), nil
}

// Delete removes the conversation or returns core.ErrNotFound.
func (b *InMemoryBackend) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.conversations[id]; !ok {
		return core.ErrNotFound
	}
	delete(b.conversations, id)
	return nil
}

// List returns clones of every stored conversation in unspecified order.
func (b *InMemoryBackend) List(_ context.Context) ([]*core.ConversationContext, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*core.ConversationContext, 0, len(b.conversations))
	for _, conv := range b.conversations {
		out = append(out, conv.Clone())
	}
	return out, nil
}
