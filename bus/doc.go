// Package bus implements the agent-to-agent message layer: an in-process
// registry of agent handlers with fire-and-forget sends, synchronous
// request/response calls bounded by a timeout, and parallel multi-agent
// fan-out with per-agent failure isolation.
//
// Every failure mode (unknown agent, timeout, handler error or panic,
// cancelled caller, stopped bus) surfaces as a uniform error Result rather
// than a Go error, so orchestration code branches on Result.Status and never
// needs error handling around bus calls.
package bus
