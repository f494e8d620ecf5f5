package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrouter/core"
)

// failingBackend errors on every operation.
type failingBackend struct{}

func (failingBackend) Save(context.Context, *core.ConversationContext) error { return errors.New("down") }
func (failingBackend) Load(context.Context, string) (*core.ConversationContext, error) {
	return nil, errors.New("down")
}
func (failingBackend) Delete(context.Context, string) error { return errors.New("down") }
func (failingBackend) List(context.Context) ([]*core.ConversationContext, error) {
	return nil, errors.New("down")
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := New()

	conv := store.Create(ctx, "u1", map[string]any{"channel": "web"})
	require.NotNil(t, conv)

	loaded := store.Get(ctx, conv.ID)
	require.NotNil(t, loaded)
	assert.Equal(t, conv.ID, loaded.ID)
	assert.Equal(t, "u1", loaded.UserID)
	assert.Equal(t, "web", loaded.Metadata["channel"])
}

func TestStore_Get_Unknown(t *testing.T) {
	store := New()
	assert.Nil(t, store.Get(context.Background(), "nope"))
}

func TestStore_Get_ReadThrough(t *testing.T) {
	ctx := context.Background()
	backend := NewInMemoryBackend()

	// Seed the backend directly so the store's cache is cold.
	seeded := core.NewConversationContext("u1", nil)
	require.NoError(t, backend.Save(ctx, seeded))

	store := New(func(o *Options) { o.Backend = backend })
	loaded := store.Get(ctx, seeded.ID)
	require.NotNil(t, loaded)
	assert.Equal(t, seeded.ID, loaded.ID)

	stats := store.Stats()
	assert.Equal(t, 1, stats.CacheSize)
}

func TestStore_AddMessage_Growth(t *testing.T) {
	ctx := context.Background()
	store := New()
	conv := store.Create(ctx, "u1", nil)

	updated := store.AddMessage(ctx, conv.ID, core.ConversationMessage{Role: "user", Content: "hi"})
	require.NotNil(t, updated)
	assert.Equal(t, 1, updated.MessageCount())
	assert.Equal(t, "hi", updated.Messages[0].Content)

	updated = store.AddMessage(ctx, conv.ID, core.ConversationMessage{Role: "assistant", Content: "hello"})
	require.NotNil(t, updated)
	assert.Equal(t, 2, updated.MessageCount())

	// Unknown conversation degrades to nil.
	assert.Nil(t, store.AddMessage(ctx, "nope", core.ConversationMessage{Role: "user", Content: "x"}))
}

func TestStore_AddIntent_UnionsAgents(t *testing.T) {
	ctx := context.Background()
	store := New()
	conv := store.Create(ctx, "u1", nil)

	updated := store.AddIntent(ctx, conv.ID, core.IntentRecord{Type: "training", Confidence: 0.8, Agents: []string{"a"}})
	require.NotNil(t, updated)
	before := updated.InvolvedAgents()

	updated = store.AddIntent(ctx, conv.ID, core.IntentRecord{Type: "nutrition", Confidence: 0.6, Agents: []string{"b"}})
	require.NotNil(t, updated)
	for _, id := range before {
		assert.Contains(t, updated.InvolvedAgents(), id)
	}
	assert.Contains(t, updated.InvolvedAgents(), "b")
}

func TestStore_Save_Snapshot(t *testing.T) {
	ctx := context.Background()
	store := New()
	conv := store.Create(ctx, "u1", nil)

	conv.AddMessage(core.ConversationMessage{Role: "user", Content: "hi"})
	assert.True(t, store.Save(ctx, conv))

	// Mutating the caller's copy after Save must not leak into the store.
	conv.AddMessage(core.ConversationMessage{Role: "user", Content: "later"})
	loaded := store.Get(ctx, conv.ID)
	require.NotNil(t, loaded)
	assert.Equal(t, 1, loaded.MessageCount())
}

func TestStore_Save_Invalid(t *testing.T) {
	store := New()
	assert.False(t, store.Save(context.Background(), nil))
	assert.False(t, store.Save(context.Background(), &core.ConversationContext{}))
	assert.Equal(t, int64(2), store.Stats().Errors)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := New()
	conv := store.Create(ctx, "u1", nil)

	assert.True(t, store.Delete(ctx, conv.ID))
	assert.Nil(t, store.Get(ctx, conv.ID))
	assert.False(t, store.Delete(ctx, conv.ID))
}

func TestStore_FailingBackend_Degrades(t *testing.T) {
	ctx := context.Background()
	store := New(func(o *Options) { o.Backend = failingBackend{} })

	// Create still hands back a usable conversation.
	conv := store.Create(ctx, "u1", nil)
	require.NotNil(t, conv)

	assert.False(t, store.Save(ctx, conv))
	assert.Nil(t, store.Get(ctx, "cold-id"))
	assert.False(t, store.Delete(ctx, "cold-id"))
	assert.Empty(t, store.ListByUser(ctx, "u1", 0))

	stats := store.Stats()
	assert.GreaterOrEqual(t, stats.Errors, int64(4))
	assert.Equal(t, int64(1), stats.Operations["create"])
	assert.Equal(t, int64(1), stats.Operations["save"])
}

func TestStore_ListByUser(t *testing.T) {
	ctx := context.Background()
	store := New()

	for i := 0; i < 3; i++ {
		store.Create(ctx, "u1", nil)
	}
	store.Create(ctx, "u2", nil)

	assert.Len(t, store.ListByUser(ctx, "u1", 0), 3)
	assert.Len(t, store.ListByUser(ctx, "u1", 2), 2)
	assert.Len(t, store.ListByUser(ctx, "u3", 0), 0)
}

func TestStore_Stats(t *testing.T) {
	ctx := context.Background()
	store := New()
	store.Create(ctx, "u1", nil)
	store.Get(ctx, "nope")

	stats := store.Stats()
	assert.Equal(t, 1, stats.TotalConversations)
	assert.Equal(t, int64(1), stats.Operations["create"])
	assert.Equal(t, int64(1), stats.Operations["get"])
	assert.Zero(t, stats.Errors)
}
