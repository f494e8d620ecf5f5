package bus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/logging"
)

// DefaultCallTimeout bounds a synchronous agent call when no override is given.
const DefaultCallTimeout = 60 * time.Second

// CallerID is the From field stamped on envelopes originated by the bus's
// request/response helpers.
const CallerID = "orchestrator"

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// CallTimeout bounds each synchronous Call.
	CallTimeout time.Duration
	// Logger receives dispatch diagnostics.
	Logger logging.Logger
}

// Bus maintains the agent registry and performs message dispatch. Public
// methods are safe for concurrent use. The registry is an explicit field of
// this instance; there is no ambient module-level state.
type Bus struct {
	callTimeout time.Duration
	logger      logging.Logger

	mu     sync.RWMutex
	agents map[string]*core.AgentDescriptor
	closed bool
}

// New constructs a Bus with optional overrides.
func New(optFns ...func(o *Options)) *Bus {
	opts := Options{
		CallTimeout: DefaultCallTimeout,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Bus{
		callTimeout: opts.CallTimeout,
		logger:      opts.Logger,
		agents:      make(map[string]*core.AgentDescriptor),
	}
}

// Register inserts or overwrites an agent descriptor. No handshake required.
func (b *Bus) Register(desc *core.AgentDescriptor) error {
	if desc == nil || desc.ID == "" {
		return errors.New("descriptor must carry an agent id")
	}
	if desc.Handler == nil {
		return fmt.Errorf("agent %s has no handler", desc.ID)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("bus is stopped")
	}
	b.agents[desc.ID] = desc
	return nil
}

// Unregister removes the agent; no-op if absent.
func (b *Bus) Unregister(agentID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.agents, agentID)
}

// Registered reports whether the agent id is currently in the registry.
func (b *Bus) Registered(agentID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.agents[agentID]
	return ok
}

// Agents returns a sorted snapshot of registered agent ids.
func (b *Bus) Agents() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.agents))
	for id := range b.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stop closes the bus. Subsequent sends return false and calls degrade to
// bus_closed error results; agents already executing are unaffected.
func (b *Bus) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

func (b *Bus) lookup(agentID string) (*core.AgentDescriptor, bool, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	desc, ok := b.agents[agentID]
	return desc, ok, b.closed
}

// Send dispatches a fire-and-forget message: the handler runs asynchronously
// and Send returns true as soon as dispatch is accepted. Returns false when
// the target is unregistered or the bus is stopped. The handler's reply, if
// any, is discarded.
func (b *Bus) Send(from, to string, content any) bool {
	desc, ok, closed := b.lookup(to)
	if closed || !ok {
		return false
	}

	msg := core.NewMessage(from, to, content)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("agent %s handler panic: %v", to, r)
			}
		}()
		if _, err := desc.Handler(context.Background(), msg); err != nil {
			b.logger.Warn("agent %s handler error on send: %v", to, err)
		}
	}()
	return true
}

// callOutcome pairs a handler reply with its error for oneshot delivery.
type callOutcome struct {
	reply *core.Message
	err   error
}

// Call performs a synchronous request/response against one agent. The
// request envelope carries a unique message id; the handler runs in its own
// goroutine and delivers its reply over a dedicated oneshot channel which the
// call races against the timeout and caller cancellation. A handler still
// running after the deadline has its result discarded; its context is
// cancelled so it can stop early (best-effort).
func (b *Bus) Call(ctx context.Context, agentID, query string, conv *core.ConversationContext) *Result {
	start := time.Now()

	desc, ok, closed := b.lookup(agentID)
	if closed {
		return errorResult(agentID, CodeBusClosed, "bus is stopped", time.Since(start))
	}
	if !ok {
		return errorResult(agentID, CodeAgentNotFound, fmt.Sprintf("agent %s is not registered", agentID), time.Since(start))
	}

	msg := core.NewMessage(CallerID, agentID, core.QueryPayload{Query: query, Conversation: conv})

	hctx, cancel := context.WithTimeout(ctx, b.callTimeout)
	defer cancel()

	replyCh := make(chan callOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				replyCh <- callOutcome{err: fmt.Errorf("handler panic: %v", r)}
			}
		}()
		reply, err := desc.Handler(hctx, msg)
		replyCh <- callOutcome{reply: reply, err: err}
	}()

	select {
	case out := <-replyCh:
		elapsed := time.Since(start)
		if out.err != nil {
			b.logger.Warn("agent %s call failed after %s: %v", agentID, elapsed, out.err)
			return errorResult(agentID, CodeHandlerError, out.err.Error(), elapsed)
		}
		return successResult(agentID, out.reply, elapsed)
	case <-hctx.Done():
		elapsed := time.Since(start)
		if errors.Is(hctx.Err(), context.DeadlineExceeded) {
			b.logger.Warn("agent %s call timed out after %s", agentID, elapsed)
			return errorResult(agentID, CodeTimeout, fmt.Sprintf("agent %s did not respond within %s", agentID, b.callTimeout), elapsed)
		}
		return errorResult(agentID, CodeCanceled, "call canceled by caller", elapsed)
	}
}

func successResult(agentID string, reply *core.Message, elapsed time.Duration) *Result {
	res := &Result{AgentID: agentID, Status: StatusSuccess, Elapsed: elapsed}
	if reply == nil {
		return res
	}
	switch payload := reply.Content.(type) {
	case core.ReplyPayload:
		res.Response = payload.Text
		res.Artifacts = payload.Artifacts
	case *core.ReplyPayload:
		if payload != nil {
			res.Response = payload.Text
			res.Artifacts = payload.Artifacts
		}
	case string:
		res.Response = payload
	default:
		res.Response = fmt.Sprintf("%v", payload)
	}
	return res
}

// CallMultiple launches one Call per agent id concurrently and waits for all
// of them regardless of individual failure. The returned slice preserves
// launch order and always has exactly len(agentIDs) entries; one agent's
// failure never affects another's slot.
func (b *Bus) CallMultiple(ctx context.Context, query string, agentIDs []string, conv *core.ConversationContext) []*Result {
	results := make([]*Result, len(agentIDs))
	var wg sync.WaitGroup
	for i, id := range agentIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i] = b.Call(ctx, id, query, conv)
		}(i, id)
	}
	wg.Wait()
	return results
}

// ResultMap indexes fan-out results by agent id. With duplicate ids the last
// launched entry wins.
func ResultMap(results []*Result) map[string]*Result {
	out := make(map[string]*Result, len(results))
	for _, r := range results {
		out[r.AgentID] = r
	}
	return out
}
