// Package orchestrator composes the conversation store, intent layer, bus
// and model collaborator into the per-turn state machine: resolve session,
// load context, classify, route, fan out, synthesize, persist. Every failure
// along the way degrades to a well-formed TurnResult; Process never returns
// a Go error to its caller.
package orchestrator
