package skill

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/agentrouter/model"
)

// GenerativeOptions configures a model-backed skill.
type GenerativeOptions struct {
	// System is the skill's instruction prompt.
	System string
	// Temperature for generation.
	Temperature float64
	// HistoryWindow is how many recent conversation messages are embedded
	// into the prompt. Zero disables history.
	HistoryWindow int
}

// Generative is the common shape of a specialist agent: an instruction
// prompt over a model.Generator with optional conversation history. The
// instruction content itself belongs to the skill author.
type Generative struct {
	name        string
	description string
	gen         model.Generator
	opts        GenerativeOptions
}

// NewGenerative constructs a model-backed skill.
func NewGenerative(name, description string, gen model.Generator, optFns ...func(o *GenerativeOptions)) *Generative {
	opts := GenerativeOptions{
		Temperature:   0.7,
		HistoryWindow: 6,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Generative{name: name, description: description, gen: gen, opts: opts}
}

// Name returns the skill's agent id.
func (g *Generative) Name() string { return g.name }

// Description returns the skill's purpose.
func (g *Generative) Description() string { return g.description }

// Execute implements Skill.
func (g *Generative) Execute(ctx context.Context, in Input) (*Output, error) {
	var b strings.Builder
	if in.Conversation != nil && g.opts.HistoryWindow > 0 {
		history := in.Conversation.History(g.opts.HistoryWindow)
		if len(history) > 0 {
			b.WriteString("Conversation so far:\n")
			for _, m := range history {
				fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
			}
			b.WriteString("\n")
		}
	}
	fmt.Fprintf(&b, "User request: %s", in.Query)

	resp, err := g.gen.Generate(ctx, model.Request{
		System:      g.opts.System,
		Prompt:      b.String(),
		Temperature: g.opts.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	return &Output{Text: resp.Text}, nil
}

var _ Skill = (*Generative)(nil)
var _ Skill = (*Func)(nil)
