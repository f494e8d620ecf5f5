package intent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_Route(t *testing.T) {
	r := NewRouter()

	tests := []struct {
		name      string
		primary   string
		secondary []string
		want      []string
	}{
		{"training", "training", nil, []string{"training-strategist"}},
		{"with secondary", "training", []string{"nutrition"}, []string{"training-strategist", "nutrition-specialist"}},
		{"general", "general", nil, []string{"wellness-advisor"}},
		{"unknown falls back to general", "astrology", nil, []string{"wellness-advisor"}},
		{"duplicates collapse", "training", []string{"training"}, []string{"training-strategist"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Route(tt.primary, tt.secondary))
		})
	}
}

func TestRouter_Route_NeverEmpty(t *testing.T) {
	// Even a table without a general entry must fall back to the default id.
	r := NewRouter(func(o *RouterOptions) {
		o.Table = map[string][]string{"training": {"training-strategist"}}
	})

	for _, primary := range []string{"training", "nutrition", "general", "", "???"} {
		agents := r.Route(primary, []string{"also-unknown"})
		assert.NotEmpty(t, agents, "primary=%q", primary)
	}
	assert.Equal(t, []string{DefaultAgentID}, r.Route("unknown", nil))
}

func TestClassifyThenRoute_TrainingPlan(t *testing.T) {
	c := NewKeywordClassifier()
	r := NewRouter()

	verdict, err := c.Classify(context.Background(), "I need a training plan", nil)
	require.NoError(t, err)

	agents := r.Route(verdict.Primary, verdict.Secondary)
	assert.Contains(t, agents, "training-strategist")
}
