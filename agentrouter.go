// Package agentrouter provides a high-level façade over the orchestrator and
// its collaborators (conversation store, message bus, intent routing and
// streaming) for building intent-routed multi-agent assistants. Most
// applications interact with this package by:
//  1. Creating an AgentRouter via New() with a model.Generator (optionally
//     overriding the default in-memory collaborators)
//  2. Registering one or more skills (generative or custom)
//  3. Processing user turns synchronously (Process) or as an event stream
//     (ProcessStream)
//
// The façade delegates turn execution to orchestrator.Orchestrator while
// keeping setup ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply a durable
// conversation backend and a structured logger.
package agentrouter

import (
	"context"
	"time"

	"github.com/hupe1980/agentrouter/bus"
	"github.com/hupe1980/agentrouter/conversation"
	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/intent"
	"github.com/hupe1980/agentrouter/logging"
	"github.com/hupe1980/agentrouter/model"
	"github.com/hupe1980/agentrouter/orchestrator"
	"github.com/hupe1980/agentrouter/skill"
	"github.com/hupe1980/agentrouter/stream"
)

// Options configures the AgentRouter instance.
type Options struct {
	// Backend persists conversations (defaults to in-memory).
	Backend core.ConversationBackend

	// Classifier produces intent verdicts (defaults to the keyword
	// classifier; use intent.NewModelClassifier for LLM-backed verdicts).
	Classifier intent.Classifier

	// Router maps intents to agent ids (defaults to the built-in table).
	Router *intent.Router

	// CallTimeout bounds each agent call on the bus.
	CallTimeout time.Duration

	// ChunkSize is the target streaming chunk length in bytes.
	ChunkSize int

	// ChunkDelay paces streamed content chunks.
	ChunkDelay time.Duration

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// AgentRouter is the high-level façade aggregating the orchestrator, the bus
// and the streaming pipeline.
type AgentRouter struct {
	orch     *orchestrator.Orchestrator
	pipeline *stream.Pipeline
}

// New creates a new AgentRouter around the given generator with optional
// overrides. Any unset collaborator is initialized with an in-memory
// implementation.
func New(gen model.Generator, optFns ...func(o *Options)) *AgentRouter {
	opts := Options{
		Classifier:  intent.NewKeywordClassifier(),
		Router:      intent.NewRouter(),
		CallTimeout: bus.DefaultCallTimeout,
		ChunkSize:   200,
		ChunkDelay:  30 * time.Millisecond,
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	store := conversation.New(func(o *conversation.Options) {
		if opts.Backend != nil {
			o.Backend = opts.Backend
		}
		o.Logger = opts.Logger
	})

	b := bus.New(func(o *bus.Options) {
		o.CallTimeout = opts.CallTimeout
		o.Logger = opts.Logger
	})

	orch := orchestrator.New(gen, func(o *orchestrator.Options) {
		o.Store = store
		o.Bus = b
		o.Classifier = opts.Classifier
		o.Router = opts.Router
		o.Logger = opts.Logger
	})

	pipeline := stream.New(orch, func(o *stream.Options) {
		o.ChunkSize = opts.ChunkSize
		o.ChunkDelay = opts.ChunkDelay
		o.Logger = opts.Logger
	})

	return &AgentRouter{orch: orch, pipeline: pipeline}
}

// RegisterSkill registers a skill as an addressable agent on the bus.
func (r *AgentRouter) RegisterSkill(s skill.Skill) error {
	return skill.Register(r.orch.Bus(), s)
}

// Process runs one user turn to completion and returns the final result.
func (r *AgentRouter) Process(ctx context.Context, req orchestrator.TurnRequest) *orchestrator.TurnResult {
	return r.orch.Process(ctx, req)
}

// ProcessStream runs one user turn as an ordered event stream. The channel
// closes after the terminal complete or error event.
func (r *AgentRouter) ProcessStream(ctx context.Context, req orchestrator.TurnRequest) <-chan stream.Event {
	return r.pipeline.Run(ctx, req)
}

// UsageStats aggregates per-agent usage counters across the user's
// conversations.
func (r *AgentRouter) UsageStats(ctx context.Context, userID string) map[string]int {
	return r.orch.UsageStats(ctx, userID)
}

// Orchestrator exposes the underlying orchestrator for advanced wiring.
func (r *AgentRouter) Orchestrator() *orchestrator.Orchestrator { return r.orch }

// Stop closes the bus; pending calls finish, new registrations fail.
func (r *AgentRouter) Stop() { r.orch.Bus().Stop() }
