package intent

import "slices"

// DefaultAgentID is the hard-coded last-resort agent when even the general
// table entry is empty.
const DefaultAgentID = "wellness-advisor"

// DefaultRoutingTable returns the built-in intent to agent-id mapping.
func DefaultRoutingTable() map[string][]string {
	return map[string][]string{
		"training":    {"training-strategist"},
		"nutrition":   {"nutrition-specialist"},
		"biometrics":  {"biometrics-analyst"},
		"motivation":  {"motivation-coach"},
		IntentGeneral: {DefaultAgentID},
	}
}

// RouterOptions configures the routing table.
type RouterOptions struct {
	Table          map[string][]string
	DefaultAgentID string
}

// Router maps classified intents to agent ids via a static table. The table
// is fixed at construction; Route is safe for concurrent use.
type Router struct {
	table        map[string][]string
	defaultAgent string
}

// NewRouter constructs a Router with the default table unless overridden.
func NewRouter(optFns ...func(o *RouterOptions)) *Router {
	opts := RouterOptions{
		Table:          DefaultRoutingTable(),
		DefaultAgentID: DefaultAgentID,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Router{table: opts.Table, defaultAgent: opts.DefaultAgentID}
}

// Route unions the agent ids mapped from the primary intent and every
// secondary intent, preserving first-seen order with the primary's agents
// first. An empty union falls back to the table's general entry, then to the
// hard-coded default agent id, so the result is never empty.
func (r *Router) Route(primary string, secondary []string) []string {
	var agents []string
	add := func(intent string) {
		for _, id := range r.table[intent] {
			if !slices.Contains(agents, id) {
				agents = append(agents, id)
			}
		}
	}

	add(primary)
	for _, s := range secondary {
		add(s)
	}
	if len(agents) == 0 {
		add(IntentGeneral)
	}
	if len(agents) == 0 {
		agents = []string{r.defaultAgent}
	}
	return agents
}
