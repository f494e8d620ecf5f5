package conversation

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/logging"
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Backend is the durable conversation collaborator. Defaults to an
	// in-memory backend.
	Backend core.ConversationBackend
	// Logger receives degraded-operation diagnostics.
	Logger logging.Logger
}

// Stats is a snapshot of store health counters.
type Stats struct {
	TotalConversations int              `json:"total_conversations"`
	CacheSize          int              `json:"cache_size"`
	Operations         map[string]int64 `json:"operations"`
	Errors             int64            `json:"errors"`
}

// Store owns conversation state: a checked read-through cache over the
// backing collaborator. Operations never propagate backend failures; they
// return nil/false, bump the error counter and log. Public methods are safe
// for concurrent use.
type Store struct {
	backend core.ConversationBackend
	logger  logging.Logger

	mu    sync.RWMutex
	cache map[string]*core.ConversationContext

	statsMu    sync.Mutex
	operations map[string]int64
	errorCount int64
}

// New constructs a Store with optional overrides.
func New(optFns ...func(o *Options)) *Store {
	opts := Options{
		Backend: NewInMemoryBackend(),
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{
		backend:    opts.Backend,
		logger:     opts.Logger,
		cache:      make(map[string]*core.ConversationContext),
		operations: make(map[string]int64),
	}
}

func (s *Store) count(op string) {
	s.statsMu.Lock()
	s.operations[op]++
	s.statsMu.Unlock()
}

func (s *Store) fail(op string, err error) {
	s.statsMu.Lock()
	s.errorCount++
	s.statsMu.Unlock()
	s.logger.Error("conversation store %s failed: %v", op, err)
}

// Create allocates a fresh conversation for the user, persists it and returns
// it. The conversation is returned even when persistence fails; the failure
// is counted and logged.
func (s *Store) Create(ctx context.Context, userID string, metadata map[string]any) *core.ConversationContext {
	s.count("create")
	conv := core.NewConversationContext(userID, metadata)

	s.mu.Lock()
	s.cache[conv.ID] = conv
	s.mu.Unlock()

	if err := s.backend.Save(ctx, conv); err != nil {
		s.fail("create", err)
	}
	return conv.Clone()
}

// Get performs a checked read-through: cache hit wins, otherwise the backend
// is consulted and the cache populated. Absent in both means nil.
func (s *Store) Get(ctx context.Context, id string) *core.ConversationContext {
	s.count("get")

	s.mu.RLock()
	conv, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		return conv.Clone()
	}

	loaded, err := s.backend.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			s.fail("get", err)
		}
		return nil
	}

	s.mu.Lock()
	s.cache[id] = loaded
	s.mu.Unlock()
	return loaded.Clone()
}

// Save is an idempotent full upsert into cache and backend. A backend failure
// surfaces as false, never as an error.
func (s *Store) Save(ctx context.Context, conv *core.ConversationContext) bool {
	s.count("save")
	if conv == nil || conv.ID == "" {
		s.fail("save", errors.New("nil or unidentified conversation"))
		return false
	}

	snapshot := conv.Clone()
	s.mu.Lock()
	s.cache[snapshot.ID] = snapshot
	s.mu.Unlock()

	if err := s.backend.Save(ctx, snapshot); err != nil {
		s.fail("save", err)
		return false
	}
	return true
}

// Delete removes the conversation from cache and backend. Returns false when
// the conversation is absent everywhere or the backend delete fails.
func (s *Store) Delete(ctx context.Context, id string) bool {
	s.count("delete")

	s.mu.Lock()
	_, cached := s.cache[id]
	delete(s.cache, id)
	s.mu.Unlock()

	err := s.backend.Delete(ctx, id)
	switch {
	case err == nil:
		return true
	case errors.Is(err, core.ErrNotFound):
		return cached
	default:
		s.fail("delete", err)
		return false
	}
}

// AddMessage appends a message via read-modify-write and persists the result.
// Returns the updated conversation or nil when the id is unknown.
func (s *Store) AddMessage(ctx context.Context, id string, msg core.ConversationMessage) *core.ConversationContext {
	s.count("add_message")
	return s.mutate(ctx, id, func(conv *core.ConversationContext) {
		conv.AddMessage(msg)
	})
}

// AddIntent appends an intent record, unioning its agents into
// AgentsInvolved, and persists the result. Returns the updated conversation
// or nil when the id is unknown.
func (s *Store) AddIntent(ctx context.Context, id string, rec core.IntentRecord) *core.ConversationContext {
	s.count("add_intent")
	return s.mutate(ctx, id, func(conv *core.ConversationContext) {
		conv.AddIntent(rec)
	})
}

// mutate applies fn to the canonical cached conversation (loading it on a
// cache miss) and persists the mutation.
func (s *Store) mutate(ctx context.Context, id string, fn func(*core.ConversationContext)) *core.ConversationContext {
	s.mu.Lock()
	conv, ok := s.cache[id]
	s.mu.Unlock()

	if !ok {
		loaded, err := s.backend.Load(ctx, id)
		if err != nil {
			if !errors.Is(err, core.ErrNotFound) {
				s.fail("mutate", err)
			}
			return nil
		}
		s.mu.Lock()
		// Another goroutine may have populated the cache meanwhile.
		if existing, ok := s.cache[id]; ok {
			conv = existing
		} else {
			conv = loaded
			s.cache[id] = conv
		}
		s.mu.Unlock()
	}

	fn(conv)
	if err := s.backend.Save(ctx, conv.Clone()); err != nil {
		s.fail("mutate", err)
	}
	return conv.Clone()
}

// ListByUser linearly scans all stored conversations, filters by user id and
// truncates to limit (no pagination cursor; intended volume is per-process
// scale). A backend failure degrades to an empty slice.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int) []*core.ConversationContext {
	s.count("list_by_user")
	all, err := s.backend.List(ctx)
	if err != nil {
		s.fail("list_by_user", err)
		return nil
	}
	var out []*core.ConversationContext
	for _, conv := range all {
		if conv.UserID != userID {
			continue
		}
		out = append(out, conv)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Stats returns a snapshot of operation and error counters.
func (s *Store) Stats() Stats {
	total := 0
	if all, err := s.backend.List(context.Background()); err == nil {
		total = len(all)
	}

	s.mu.RLock()
	cacheSize := len(s.cache)
	s.mu.RUnlock()

	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	ops := make(map[string]int64, len(s.operations))
	for k, v := range s.operations {
		ops[k] = v
	}
	return Stats{
		TotalConversations: total,
		CacheSize:          cacheSize,
		Operations:         ops,
		Errors:             s.errorCount,
	}
}
