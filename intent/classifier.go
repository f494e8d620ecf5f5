package intent

import (
	"context"
	"sort"
	"strings"

	"github.com/hupe1980/agentrouter/core"
)

// IntentGeneral is the fallback intent when no signal is found in a query.
const IntentGeneral = "general"

// Classifier classifies one user query, optionally informed by the
// conversation so far. Implementations must treat the result as immutable
// once returned.
type Classifier interface {
	Classify(ctx context.Context, query string, conv *core.ConversationContext) (core.Intent, error)
}

// Rule maps an intent tag to the keywords that indicate it.
type Rule struct {
	Intent   string
	Keywords []string
}

// DefaultRules returns the built-in keyword table. Callers may replace it
// wholesale via KeywordOptions.
func DefaultRules() []Rule {
	return []Rule{
		{Intent: "training", Keywords: []string{"training", "workout", "exercise", "strength", "cardio", "run", "plan"}},
		{Intent: "nutrition", Keywords: []string{"nutrition", "diet", "meal", "calorie", "protein", "eat", "food"}},
		{Intent: "biometrics", Keywords: []string{"heart rate", "sleep", "hrv", "weight", "recovery", "biometric", "steps"}},
		{Intent: "motivation", Keywords: []string{"motivation", "motivated", "habit", "goal", "discipline", "stuck"}},
	}
}

// KeywordOptions configures the keyword classifier.
type KeywordOptions struct {
	Rules []Rule
}

// KeywordClassifier scores intents by counting keyword hits in the query.
// The best-scoring intent becomes primary, any other matched intents become
// secondary in descending score order. No match degrades to general/0.5 so
// ambiguous queries are still routed rather than rejected.
type KeywordClassifier struct {
	rules []Rule
}

// NewKeywordClassifier constructs a classifier with the default rule table
// unless overridden.
func NewKeywordClassifier(optFns ...func(o *KeywordOptions)) *KeywordClassifier {
	opts := KeywordOptions{Rules: DefaultRules()}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &KeywordClassifier{rules: opts.Rules}
}

// Classify implements Classifier. It never returns an error; the degraded
// general intent covers the no-signal case.
func (c *KeywordClassifier) Classify(_ context.Context, query string, _ *core.ConversationContext) (core.Intent, error) {
	lowered := strings.ToLower(query)

	type scored struct {
		intent  string
		hits    int
		matched []string
	}
	var matches []scored
	for _, rule := range c.rules {
		s := scored{intent: rule.Intent}
		for _, kw := range rule.Keywords {
			if strings.Contains(lowered, kw) {
				s.hits++
				s.matched = append(s.matched, kw)
			}
		}
		if s.hits > 0 {
			matches = append(matches, s)
		}
	}

	if len(matches) == 0 {
		return core.Intent{Primary: IntentGeneral, Confidence: 0.5}, nil
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].hits > matches[j].hits })

	primary := matches[0]
	secondary := make([]string, 0, len(matches)-1)
	keywords := append([]string(nil), primary.matched...)
	for _, m := range matches[1:] {
		secondary = append(secondary, m.intent)
		keywords = append(keywords, m.matched...)
	}

	confidence := 0.4 + 0.15*float64(primary.hits)
	if confidence > 0.95 {
		confidence = 0.95
	}

	return core.Intent{
		Primary:    primary.intent,
		Secondary:  secondary,
		Confidence: confidence,
		Metadata:   map[string]any{"matched_keywords": keywords},
	}, nil
}
