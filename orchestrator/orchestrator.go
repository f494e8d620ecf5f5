package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/agentrouter/bus"
	"github.com/hupe1980/agentrouter/conversation"
	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/intent"
	"github.com/hupe1980/agentrouter/logging"
	"github.com/hupe1980/agentrouter/model"
)

const apologyText = "I'm sorry, I ran into a problem putting an answer together. Please try again."

const synthesisSystem = "You are the coordinator of a team of specialist assistants. " +
	"Combine the specialist answers below into one coherent, helpful reply to the user. " +
	"Do not mention the specialists or the coordination process."

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Store persists conversation state. Defaults to an in-memory store.
	Store *conversation.Store
	// Bus dispatches agent calls. Defaults to a fresh bus.
	Bus *bus.Bus
	// Classifier produces intent verdicts. Defaults to the keyword classifier.
	Classifier intent.Classifier
	// Router maps intents to agent ids. Defaults to the built-in table.
	Router *intent.Router
	// Logger receives turn diagnostics.
	Logger logging.Logger
	// HistoryWindow is how many recent messages feed the synthesis prompt.
	HistoryWindow int
	// SynthesisTemperature for the final generation call.
	SynthesisTemperature float64
}

// TurnRequest describes one incoming user turn.
type TurnRequest struct {
	UserID    string
	SessionID string
	Query     string
}

// TurnMetadata is the diagnostic envelope attached to every TurnResult.
type TurnMetadata struct {
	Intent          string        `json:"intent"`
	Confidence      float64       `json:"confidence"`
	AgentsConsulted []string      `json:"agents_consulted"`
	ProcessingTime  time.Duration `json:"processing_time"`
	Error           string        `json:"error,omitempty"`
}

// TurnResult is the terminal outcome of one turn. It is always well-formed:
// internal failures degrade to apology text plus Metadata.Error instead of
// propagating.
type TurnResult struct {
	Response       string          `json:"response"`
	SessionID      string          `json:"session_id"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Artifacts      []core.Artifact `json:"artifacts,omitempty"`
	AgentResults   []*bus.Result   `json:"agent_results,omitempty"`
	Metadata       TurnMetadata    `json:"metadata"`
}

// Orchestrator drives the per-turn state machine. All collaborators are
// explicit fields injected at construction; the session index is the only
// state it owns. Public methods are safe for concurrent use.
type Orchestrator struct {
	store      *conversation.Store
	bus        *bus.Bus
	classifier intent.Classifier
	router     *intent.Router
	gen        model.Generator
	logger     logging.Logger

	historyWindow int
	synthesisTemp float64

	mu       sync.Mutex
	sessions map[string]string // session id -> conversation id
}

// New constructs an Orchestrator around the given generator with optional
// overrides for every collaborator.
func New(gen model.Generator, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Store:                conversation.New(),
		Bus:                  bus.New(),
		Classifier:           intent.NewKeywordClassifier(),
		Router:               intent.NewRouter(),
		Logger:               logging.NoOpLogger{},
		HistoryWindow:        6,
		SynthesisTemperature: 0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Orchestrator{
		store:         opts.Store,
		bus:           opts.Bus,
		classifier:    opts.Classifier,
		router:        opts.Router,
		gen:           gen,
		logger:        opts.Logger,
		historyWindow: opts.HistoryWindow,
		synthesisTemp: opts.SynthesisTemperature,
		sessions:      make(map[string]string),
	}
}

// Bus returns the bus agents register against.
func (o *Orchestrator) Bus() *bus.Bus { return o.bus }

// Store returns the conversation store.
func (o *Orchestrator) Store() *conversation.Store { return o.store }

// Process runs one user turn to completion. See ProcessObserved.
func (o *Orchestrator) Process(ctx context.Context, req TurnRequest) *TurnResult {
	return o.ProcessObserved(ctx, req, nil)
}

// ProcessObserved runs one user turn, invoking the observer at each stage.
// It never returns a Go error: any internal failure degrades to apology text
// plus Metadata.Error so the caller always receives a well-formed result.
func (o *Orchestrator) ProcessObserved(ctx context.Context, req TurnRequest, obs TurnObserver) *TurnResult {
	start := time.Now()
	if obs == nil {
		obs = nopObserver{}
	}

	// RESOLVE_SESSION
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = core.NewID()
	}

	// LOAD_CONTEXT
	conv := o.loadOrCreate(ctx, sessionID, req.UserID)

	// CLASSIFY: failure degrades to a low-confidence general intent.
	verdict, err := o.classifier.Classify(ctx, req.Query, conv)
	if err != nil {
		o.logger.Warn("classification failed, using general intent: %v", err)
		verdict = core.Intent{Primary: intent.IntentGeneral, Confidence: 0.5}
	}
	obs.OnIntent(verdict)

	// ROUTE: guaranteed non-empty.
	agentIDs := o.router.Route(verdict.Primary, verdict.Secondary)
	obs.OnAgents(agentIDs)

	// DISPATCH
	results := o.bus.CallMultiple(ctx, req.Query, agentIDs, conv)
	for _, res := range results {
		obs.OnAgentResult(res)
	}

	// SYNTHESIZE
	response, artifacts, synthErr := o.synthesize(ctx, conv, req.Query, results)

	// PERSIST: a failure here is logged and counted by the store; the reply
	// is still delivered.
	o.persist(ctx, conv, req.Query, response, verdict, artifacts, results)

	result := &TurnResult{
		Response:       response,
		SessionID:      sessionID,
		ConversationID: conv.ID,
		Artifacts:      artifacts,
		AgentResults:   results,
		Metadata: TurnMetadata{
			Intent:          verdict.Primary,
			Confidence:      verdict.Confidence,
			AgentsConsulted: agentIDs,
			ProcessingTime:  time.Since(start),
		},
	}
	if synthErr != nil {
		result.Metadata.Error = synthErr.Error()
	}
	o.logger.Info("turn completed session_id=%s intent=%s agents=%d duration=%s", sessionID, verdict.Primary, len(agentIDs), result.Metadata.ProcessingTime)
	return result
}

// loadOrCreate resolves the conversation bound to the session, creating one
// on first contact. The session index is the orchestrator's own state so the
// store's contract (opaque fresh ids on create) stays intact.
func (o *Orchestrator) loadOrCreate(ctx context.Context, sessionID, userID string) *core.ConversationContext {
	o.mu.Lock()
	convID, ok := o.sessions[sessionID]
	o.mu.Unlock()

	if ok {
		if conv := o.store.Get(ctx, convID); conv != nil {
			return conv
		}
	}

	conv := o.store.Create(ctx, userID, map[string]any{"session_id": sessionID})
	conv.SessionID = sessionID
	o.store.Save(ctx, conv)

	o.mu.Lock()
	o.sessions[sessionID] = conv.ID
	o.mu.Unlock()
	return conv
}

// synthesize builds one prompt embedding every successful agent output plus
// recent history and asks the generator for a single coherent answer. All
// agent artifacts are collected and tagged with their source; a synthesis
// artifact records the consulted agents when more than one replied.
func (o *Orchestrator) synthesize(ctx context.Context, conv *core.ConversationContext, query string, results []*bus.Result) (string, []core.Artifact, error) {
	var artifacts []core.Artifact
	var succeeded []string
	var b strings.Builder

	if history := conv.History(o.historyWindow); len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "User request: %s\n\nSpecialist answers:\n", query)

	for _, res := range results {
		if !res.OK() {
			continue
		}
		succeeded = append(succeeded, res.AgentID)
		fmt.Fprintf(&b, "\n[%s]\n%s\n", res.AgentID, res.Response)
		for _, a := range res.Artifacts {
			tagged := a.Clone()
			if tagged.Source == "" {
				tagged.Source = res.AgentID
			}
			artifacts = append(artifacts, tagged)
		}
	}

	if len(succeeded) == 0 {
		return apologyText, artifacts, fmt.Errorf("no agent produced a response")
	}

	if len(succeeded) > 1 {
		artifacts = append(artifacts, core.NewArtifact("synthesis", bus.CallerID, map[string]any{
			"agents_consulted": succeeded,
		}))
	}

	resp, err := o.gen.Generate(ctx, model.Request{
		System:      synthesisSystem,
		Prompt:      b.String(),
		Temperature: o.synthesisTemp,
	})
	if err != nil {
		o.logger.Error("synthesis failed: %v", err)
		return apologyText, artifacts, fmt.Errorf("synthesis: %w", err)
	}
	return resp.Text, artifacts, nil
}

// persist appends the user and assistant messages, the intent record with
// the agents that actually replied, the collected artifacts and the per-user
// agent-usage counters, then saves the conversation.
func (o *Orchestrator) persist(ctx context.Context, conv *core.ConversationContext, query, response string, verdict core.Intent, artifacts []core.Artifact, results []*bus.Result) {
	conv.AddMessage(core.ConversationMessage{Role: "user", Content: query})
	conv.AddMessage(core.ConversationMessage{Role: "assistant", Content: response, AgentID: bus.CallerID})

	var replied []string
	for _, res := range results {
		if res.OK() {
			replied = append(replied, res.AgentID)
			conv.BumpAgentUsage(res.AgentID)
		}
	}
	conv.AddIntent(verdict.Record(replied))

	for _, a := range artifacts {
		conv.AddArtifact(a)
	}

	if !o.store.Save(ctx, conv) {
		o.logger.Warn("conversation %s not persisted; reply delivered anyway", conv.ID)
	}
}

// UsageStats aggregates per-agent usage counters across every conversation
// of the user.
func (o *Orchestrator) UsageStats(ctx context.Context, userID string) map[string]int {
	out := map[string]int{}
	for _, conv := range o.store.ListByUser(ctx, userID, 0) {
		for agent, n := range conv.AgentUsage() {
			out[agent] += n
		}
	}
	return out
}
