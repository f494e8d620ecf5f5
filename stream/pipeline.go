package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentrouter/bus"
	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/logging"
	"github.com/hupe1980/agentrouter/orchestrator"
)

// Options holds configuration overrides passed to New().
type Options struct {
	// ChunkSize is the target chunk length in bytes.
	ChunkSize int
	// ChunkDelay paces content chunk emission. Purely cosmetic.
	ChunkDelay time.Duration
	// BufferSize sets channel buffering for emitted events.
	BufferSize int
	// Logger receives pipeline diagnostics.
	Logger logging.Logger
}

// Pipeline wraps one orchestrator turn as an ordered event stream instead of
// a single return value.
type Pipeline struct {
	orch       *orchestrator.Orchestrator
	chunkSize  int
	chunkDelay time.Duration
	bufferSize int
	logger     logging.Logger
}

// New constructs a Pipeline over the orchestrator.
func New(orch *orchestrator.Orchestrator, optFns ...func(o *Options)) *Pipeline {
	opts := Options{
		ChunkSize:  200,
		ChunkDelay: 30 * time.Millisecond,
		BufferSize: 64,
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Pipeline{
		orch:       orch,
		chunkSize:  opts.ChunkSize,
		chunkDelay: opts.ChunkDelay,
		bufferSize: opts.BufferSize,
		logger:     opts.Logger,
	}
}

// emitter serializes event delivery and honors caller cancellation. Once the
// stream is dead (terminal event sent or context done) every further emit is
// a no-op.
type emitter struct {
	ctx  context.Context
	ch   chan<- Event
	dead bool
}

func (e *emitter) emit(ev Event) {
	if e.dead {
		return
	}
	select {
	case e.ch <- ev:
		if ev.Terminal() {
			e.dead = true
		}
	case <-e.ctx.Done():
		e.dead = true
	}
}

// streamObserver bridges orchestrator progress callbacks into events.
type streamObserver struct {
	em *emitter
}

func (s *streamObserver) OnIntent(verdict core.Intent) {
	ev := newEvent(EventIntentAnalysis)
	ev.Intent = verdict.Primary
	ev.Confidence = verdict.Confidence
	ev.Message = fmt.Sprintf("Detected intent: %s", verdict.Primary)
	s.em.emit(ev)
}

func (s *streamObserver) OnAgents(agentIDs []string) {
	ev := newEvent(EventAgentsSelected)
	ev.Agents = agentIDs
	ev.Message = fmt.Sprintf("Consulting %d agent(s)", len(agentIDs))
	s.em.emit(ev)
}

func (s *streamObserver) OnAgentResult(*bus.Result) {}

// Run executes one turn and returns the event stream. The channel is closed
// after the terminal event (complete or error); cancellation of ctx ends the
// stream early without a terminal event.
func (p *Pipeline) Run(ctx context.Context, req orchestrator.TurnRequest) <-chan Event {
	if req.SessionID == "" {
		req.SessionID = core.NewID()
	}

	events := make(chan Event, p.bufferSize)
	go func() {
		defer close(events)
		em := &emitter{ctx: ctx, ch: events}

		start := newEvent(EventStart)
		start.SessionID = req.SessionID
		em.emit(start)

		status := newEvent(EventStatus)
		status.Status = "analyzing_intent"
		status.Message = "Analyzing your request"
		em.emit(status)

		result := p.orch.ProcessObserved(ctx, req, &streamObserver{em: em})

		for _, res := range result.AgentResults {
			p.emitAgentBlock(em, res)
		}

		if leftover := unattributed(result.Artifacts, result.AgentResults); len(leftover) > 0 {
			ev := newEvent(EventArtifacts)
			ev.AgentID = bus.CallerID
			ev.Artifacts = leftover
			em.emit(ev)
		}

		if result.Metadata.Error != "" {
			p.logger.Warn("streamed turn degraded: %s", result.Metadata.Error)
			ev := newEvent(EventError)
			ev.Error = result.Metadata.Error
			ev.Message = result.Response
			em.emit(ev)
			return
		}

		complete := newEvent(EventComplete)
		complete.SessionID = result.SessionID
		complete.ProcessingTime = result.Metadata.ProcessingTime
		complete.Message = result.Response
		em.emit(complete)
	}()
	return events
}

// emitAgentBlock emits the per-agent sequence: agent_start, then either
// paced content chunks plus artifacts, or a single agent_error.
func (p *Pipeline) emitAgentBlock(em *emitter, res *bus.Result) {
	startEv := newEvent(EventAgentStart)
	startEv.AgentID = res.AgentID
	startEv.Message = fmt.Sprintf("Agent %s responding", res.AgentID)
	em.emit(startEv)

	if !res.OK() {
		ev := newEvent(EventAgentError)
		ev.AgentID = res.AgentID
		ev.Error = res.Error
		em.emit(ev)
		return
	}

	chunks := SplitIntoChunks(res.Response, p.chunkSize)
	for i, chunk := range chunks {
		if i > 0 && p.chunkDelay > 0 {
			select {
			case <-time.After(p.chunkDelay):
			case <-em.ctx.Done():
				em.dead = true
				return
			}
		}
		ev := newEvent(EventContent)
		ev.AgentID = res.AgentID
		ev.Content = chunk
		ev.ChunkIndex = i
		ev.IsFinal = i == len(chunks)-1
		em.emit(ev)
	}

	if len(res.Artifacts) > 0 {
		ev := newEvent(EventArtifacts)
		ev.AgentID = res.AgentID
		ev.Artifacts = res.Artifacts
		em.emit(ev)
	}
}

// unattributed returns turn artifacts that did not come from a fan-out
// result (e.g. the synthesis artifact).
func unattributed(all []core.Artifact, results []*bus.Result) []core.Artifact {
	fromAgents := map[string]bool{}
	for _, res := range results {
		for _, a := range res.Artifacts {
			fromAgents[a.ID] = true
		}
	}
	var out []core.Artifact
	for _, a := range all {
		if !fromAgents[a.ID] {
			out = append(out, a)
		}
	}
	return out
}
