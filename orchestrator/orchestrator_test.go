package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrouter/bus"
	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/intent"
	"github.com/hupe1980/agentrouter/model"
	"github.com/hupe1980/agentrouter/skill"
)

// failingClassifier always errors to exercise classification degradation.
type failingClassifier struct{}

func (failingClassifier) Classify(context.Context, string, *core.ConversationContext) (core.Intent, error) {
	return core.Intent{}, errors.New("classifier down")
}

func registerFunc(t *testing.T, o *Orchestrator, id, text string, artifacts ...core.Artifact) {
	t.Helper()
	s := skill.NewFunc(id, "", func(context.Context, skill.Input) (*skill.Output, error) {
		return &skill.Output{Text: text, Artifacts: artifacts}, nil
	})
	require.NoError(t, skill.Register(o.Bus(), s))
}

func TestOrchestrator_Process_FullTurn(t *testing.T) {
	gen := model.NewMock()
	o := New(gen)
	registerFunc(t, o, "training-strategist", "Squat three times a week.")

	result := o.Process(context.Background(), TurnRequest{UserID: "u1", Query: "I need a training plan"})

	require.NotNil(t, result)
	assert.NotEmpty(t, result.Response)
	assert.NotEmpty(t, result.SessionID)
	assert.NotEmpty(t, result.ConversationID)
	assert.Equal(t, "training", result.Metadata.Intent)
	assert.Equal(t, []string{"training-strategist"}, result.Metadata.AgentsConsulted)
	assert.Empty(t, result.Metadata.Error)
	assert.Greater(t, result.Metadata.ProcessingTime.Nanoseconds(), int64(0))

	// The synthesis prompt embeds the specialist's answer.
	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "Squat three times a week.")
	assert.Contains(t, calls[0].Prompt, "I need a training plan")
}

func TestOrchestrator_Process_PersistsConversation(t *testing.T) {
	o := New(model.NewMock())
	registerFunc(t, o, "wellness-advisor", "Hi!")

	result := o.Process(context.Background(), TurnRequest{UserID: "u1", Query: "hello"})

	conv := o.Store().Get(context.Background(), result.ConversationID)
	require.NotNil(t, conv)
	assert.Equal(t, 2, conv.MessageCount())
	assert.Equal(t, "user", conv.Messages[0].Role)
	assert.Equal(t, "assistant", conv.Messages[1].Role)
	require.Len(t, conv.Intents, 1)
	assert.Equal(t, []string{"wellness-advisor"}, conv.Intents[0].Agents)
	assert.Equal(t, 1, conv.AgentUsage()["wellness-advisor"])
}

func TestOrchestrator_Process_SessionContinuity(t *testing.T) {
	o := New(model.NewMock())
	registerFunc(t, o, "wellness-advisor", "Hi!")

	first := o.Process(context.Background(), TurnRequest{UserID: "u1", Query: "hello"})
	second := o.Process(context.Background(), TurnRequest{
		UserID:    "u1",
		SessionID: first.SessionID,
		Query:     "hello again",
	})

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	conv := o.Store().Get(context.Background(), first.ConversationID)
	require.NotNil(t, conv)
	assert.Equal(t, 4, conv.MessageCount())
}

func TestOrchestrator_Process_FreshSessionsDiverge(t *testing.T) {
	o := New(model.NewMock())
	registerFunc(t, o, "wellness-advisor", "Hi!")

	first := o.Process(context.Background(), TurnRequest{UserID: "u1", Query: "hello"})
	second := o.Process(context.Background(), TurnRequest{UserID: "u1", Query: "hello"})

	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.NotEqual(t, first.ConversationID, second.ConversationID)
}

func TestOrchestrator_Process_DegradedClassification(t *testing.T) {
	o := New(model.NewMock(), func(opts *Options) {
		opts.Classifier = failingClassifier{}
	})
	registerFunc(t, o, "wellness-advisor", "Hi!")

	result := o.Process(context.Background(), TurnRequest{UserID: "u1", Query: "anything"})

	assert.Equal(t, intent.IntentGeneral, result.Metadata.Intent)
	assert.Equal(t, 0.5, result.Metadata.Confidence)
	assert.Equal(t, []string{"wellness-advisor"}, result.Metadata.AgentsConsulted)
	assert.Empty(t, result.Metadata.Error)
}

func TestOrchestrator_Process_NoAgentSucceeds(t *testing.T) {
	// Nothing registered on the bus: the fan-out produces only error slots.
	o := New(model.NewMock())

	result := o.Process(context.Background(), TurnRequest{UserID: "u1", Query: "hello"})

	assert.Equal(t, apologyText, result.Response)
	assert.NotEmpty(t, result.Metadata.Error)
	assert.NotEmpty(t, result.SessionID)
	require.Len(t, result.AgentResults, 1)
	assert.Equal(t, bus.CodeAgentNotFound, result.AgentResults[0].Code)
}

func TestOrchestrator_Process_SynthesisFailure(t *testing.T) {
	gen := model.NewMock()
	gen.FailWith(errors.New("model down"))
	o := New(gen)
	registerFunc(t, o, "wellness-advisor", "Hi!")

	result := o.Process(context.Background(), TurnRequest{UserID: "u1", Query: "hello"})

	assert.Equal(t, apologyText, result.Response)
	assert.Contains(t, result.Metadata.Error, "model down")
}

func TestOrchestrator_Process_PartialFailureStillSynthesizes(t *testing.T) {
	o := New(model.NewMock(), func(opts *Options) {
		opts.Classifier = intent.NewKeywordClassifier()
	})
	registerFunc(t, o, "training-strategist", "Lift heavy.")
	broken := skill.NewFunc("nutrition-specialist", "", func(context.Context, skill.Input) (*skill.Output, error) {
		return nil, errors.New("boom")
	})
	require.NoError(t, skill.Register(o.Bus(), broken))

	result := o.Process(context.Background(), TurnRequest{
		UserID: "u1",
		Query:  "workout plan and meal protein advice",
	})

	assert.Empty(t, result.Metadata.Error)
	assert.NotEqual(t, apologyText, result.Response)
	require.Len(t, result.AgentResults, 2)

	byID := bus.ResultMap(result.AgentResults)
	assert.True(t, byID["training-strategist"].OK())
	assert.False(t, byID["nutrition-specialist"].OK())

	// Only the replying agent is credited.
	conv := o.Store().Get(context.Background(), result.ConversationID)
	require.NotNil(t, conv)
	assert.Equal(t, 1, conv.AgentUsage()["training-strategist"])
	assert.Zero(t, conv.AgentUsage()["nutrition-specialist"])
}

func TestOrchestrator_Process_CollectsArtifacts(t *testing.T) {
	o := New(model.NewMock())
	plan := core.NewArtifact("plan", "", map[string]any{"weeks": 4})
	registerFunc(t, o, "wellness-advisor", "Here is your plan.", plan)

	result := o.Process(context.Background(), TurnRequest{UserID: "u1", Query: "hello"})

	require.Len(t, result.Artifacts, 1)
	assert.Equal(t, "plan", result.Artifacts[0].Type)
	assert.Equal(t, "wellness-advisor", result.Artifacts[0].Source)

	conv := o.Store().Get(context.Background(), result.ConversationID)
	require.NotNil(t, conv)
	assert.Len(t, conv.Artifacts, 1)
}

func TestOrchestrator_Process_SynthesisArtifactOnMultiAgent(t *testing.T) {
	o := New(model.NewMock())
	registerFunc(t, o, "training-strategist", "Lift.")
	registerFunc(t, o, "nutrition-specialist", "Eat.")

	result := o.Process(context.Background(), TurnRequest{
		UserID: "u1",
		Query:  "workout plan and meal protein advice",
	})

	var synthesis *core.Artifact
	for i := range result.Artifacts {
		if result.Artifacts[i].Type == "synthesis" {
			synthesis = &result.Artifacts[i]
		}
	}
	require.NotNil(t, synthesis)
	assert.Equal(t, bus.CallerID, synthesis.Source)
}

func TestOrchestrator_ProcessObserved_Hooks(t *testing.T) {
	o := New(model.NewMock())
	registerFunc(t, o, "wellness-advisor", "Hi!")

	obs := &recordingObserver{}
	o.ProcessObserved(context.Background(), TurnRequest{UserID: "u1", Query: "hello"}, obs)

	assert.Equal(t, intent.IntentGeneral, obs.intent.Primary)
	assert.Equal(t, []string{"wellness-advisor"}, obs.agents)
	require.Len(t, obs.results, 1)
	assert.True(t, obs.results[0].OK())
}

type recordingObserver struct {
	intent  core.Intent
	agents  []string
	results []*bus.Result
}

func (r *recordingObserver) OnIntent(v core.Intent)        { r.intent = v }
func (r *recordingObserver) OnAgents(ids []string)         { r.agents = ids }
func (r *recordingObserver) OnAgentResult(res *bus.Result) { r.results = append(r.results, res) }

func TestOrchestrator_UsageStats(t *testing.T) {
	o := New(model.NewMock())
	registerFunc(t, o, "wellness-advisor", "Hi!")
	registerFunc(t, o, "training-strategist", "Lift.")

	o.Process(context.Background(), TurnRequest{UserID: "u1", Query: "hello"})
	o.Process(context.Background(), TurnRequest{UserID: "u1", Query: "I need a training plan"})
	o.Process(context.Background(), TurnRequest{UserID: "u2", Query: "hello"})

	stats := o.UsageStats(context.Background(), "u1")
	assert.Equal(t, 1, stats["wellness-advisor"])
	assert.Equal(t, 1, stats["training-strategist"])
	assert.NotContains(t, o.UsageStats(context.Background(), "u2"), "training-strategist")
}
