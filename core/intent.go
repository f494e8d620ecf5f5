package core

// Intent is the immutable result of classifying one user query: a primary
// intent tag, optional secondary intents in descending relevance order and a
// confidence in [0,1]. Entities and Metadata pass through to downstream
// logging untouched; they never filter routing candidates.
type Intent struct {
	Primary    string         `json:"primary_intent"`
	Secondary  []string       `json:"secondary_intents,omitempty"`
	Confidence float64        `json:"confidence"`
	Entities   map[string]any `json:"entities,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Record converts the classification into the persisted IntentRecord form,
// attaching the agents that handled the turn.
func (i Intent) Record(agents []string) IntentRecord {
	return IntentRecord{
		Type:       i.Primary,
		Confidence: i.Confidence,
		Agents:     agents,
		Metadata:   i.Metadata,
	}
}
