// Package intent classifies free-text user queries into intents and maps
// intents to the agent ids that should handle them. Classification strategy
// is pluggable (keyword heuristic or model-backed); the routing table lookup
// that follows classification guarantees a non-empty agent set for every
// possible input.
package intent
