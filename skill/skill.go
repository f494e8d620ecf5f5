package skill

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentrouter/bus"
	"github.com/hupe1980/agentrouter/core"
)

// Input carries the query and the conversation snapshot for one execution.
type Input struct {
	Query        string
	Conversation *core.ConversationContext
}

// Output is a skill's reply: response text plus any produced artifacts.
type Output struct {
	Text      string
	Artifacts []core.Artifact
}

// Skill is the uniform interface every specialist agent implements. It
// replaces attribute-probed skill objects with an explicit, registered
// contract.
type Skill interface {
	Name() string
	Description() string
	Execute(ctx context.Context, in Input) (*Output, error)
}

// Func adapts an ordinary function into a Skill.
type Func struct {
	name        string
	description string
	fn          func(ctx context.Context, in Input) (*Output, error)
}

// NewFunc constructs a function-backed skill.
func NewFunc(name, description string, fn func(ctx context.Context, in Input) (*Output, error)) *Func {
	return &Func{name: name, description: description, fn: fn}
}

// Name returns the skill's agent id.
func (f *Func) Name() string { return f.name }

// Description returns the skill's purpose.
func (f *Func) Description() string { return f.description }

// Execute implements Skill.
func (f *Func) Execute(ctx context.Context, in Input) (*Output, error) {
	return f.fn(ctx, in)
}

// Descriptor builds the bus registration for a skill: the handler unpacks the
// query payload, runs Execute and wraps the output into a correlated reply
// envelope.
func Descriptor(s Skill) *core.AgentDescriptor {
	return &core.AgentDescriptor{
		ID:          s.Name(),
		Name:        s.Name(),
		Description: s.Description(),
		Handler: func(ctx context.Context, msg *core.Message) (*core.Message, error) {
			in, err := inputFrom(msg)
			if err != nil {
				return nil, err
			}
			out, err := s.Execute(ctx, in)
			if err != nil {
				return nil, fmt.Errorf("skill %s: %w", s.Name(), err)
			}
			if out == nil {
				return nil, nil
			}
			for i := range out.Artifacts {
				if out.Artifacts[i].Source == "" {
					out.Artifacts[i].Source = s.Name()
				}
			}
			return msg.Reply(s.Name(), core.ReplyPayload{Text: out.Text, Artifacts: out.Artifacts}), nil
		},
	}
}

func inputFrom(msg *core.Message) (Input, error) {
	switch payload := msg.Content.(type) {
	case core.QueryPayload:
		return Input{Query: payload.Query, Conversation: payload.Conversation}, nil
	case *core.QueryPayload:
		if payload != nil {
			return Input{Query: payload.Query, Conversation: payload.Conversation}, nil
		}
	case string:
		return Input{Query: payload}, nil
	}
	return Input{}, fmt.Errorf("unsupported message content %T", msg.Content)
}

// Register registers the skill's descriptor on the bus.
func Register(b *bus.Bus, s Skill) error {
	return b.Register(Descriptor(s))
}
