package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/model"
)

const classifySystem = "You classify user requests for a multi-agent assistant. " +
	"Answer with a single JSON object and nothing else."

const classifyPromptFmt = `Classify the following user request.

Request: %q

Known intents: %s.

Respond with JSON: {"primary_intent": "...", "secondary_intents": [], "confidence": 0.0}`

// ModelOptions configures the model-backed classifier.
type ModelOptions struct {
	// Temperature for the classification call; low by default so verdicts
	// stay stable.
	Temperature float64
	// Fallback handles generation or parse failures. Defaults to the
	// keyword classifier.
	Fallback Classifier
	// Intents advertised to the model. Defaults to the keyword rule table's
	// intents plus general.
	Intents []string
}

// ModelClassifier asks a model.Generator for a JSON classification verdict
// and falls back to a heuristic classifier when the model misbehaves.
type ModelClassifier struct {
	gen         model.Generator
	temperature float64
	fallback    Classifier
	intents     []string
}

// NewModelClassifier constructs a model-backed classifier.
func NewModelClassifier(gen model.Generator, optFns ...func(o *ModelOptions)) *ModelClassifier {
	opts := ModelOptions{
		Temperature: 0.1,
		Fallback:    NewKeywordClassifier(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if len(opts.Intents) == 0 {
		for _, rule := range DefaultRules() {
			opts.Intents = append(opts.Intents, rule.Intent)
		}
		opts.Intents = append(opts.Intents, IntentGeneral)
	}
	return &ModelClassifier{
		gen:         gen,
		temperature: opts.Temperature,
		fallback:    opts.Fallback,
		intents:     opts.Intents,
	}
}

type verdict struct {
	Primary    string   `json:"primary_intent"`
	Secondary  []string `json:"secondary_intents"`
	Confidence float64  `json:"confidence"`
}

// Classify implements Classifier.
func (c *ModelClassifier) Classify(ctx context.Context, query string, conv *core.ConversationContext) (core.Intent, error) {
	prompt := fmt.Sprintf(classifyPromptFmt, query, strings.Join(c.intents, ", "))
	resp, err := c.gen.Generate(ctx, model.Request{
		System:      classifySystem,
		Prompt:      prompt,
		Temperature: c.temperature,
	})
	if err != nil {
		return c.degrade(ctx, query, conv, err)
	}

	var v verdict
	if err := json.Unmarshal([]byte(extractJSON(resp.Text)), &v); err != nil || v.Primary == "" {
		return c.degrade(ctx, query, conv, fmt.Errorf("unparseable verdict: %q", resp.Text))
	}

	confidence := v.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return core.Intent{
		Primary:    v.Primary,
		Secondary:  v.Secondary,
		Confidence: confidence,
		Metadata:   map[string]any{"classifier": c.gen.Info().Name},
	}, nil
}

func (c *ModelClassifier) degrade(ctx context.Context, query string, conv *core.ConversationContext, cause error) (core.Intent, error) {
	if c.fallback == nil {
		return core.Intent{}, fmt.Errorf("model classification failed: %w", cause)
	}
	return c.fallback.Classify(ctx, query, conv)
}

// extractJSON pulls the outermost JSON object from model output that may be
// wrapped in prose or code fences.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return text
	}
	return text[start : end+1]
}
