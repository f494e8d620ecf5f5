// Package a2a defines the serialized task and result envelopes used when a
// turn crosses a process boundary. Inside the process the bus passes typed
// messages directly; these envelopes exist for external callers that speak
// JSON.
package a2a
