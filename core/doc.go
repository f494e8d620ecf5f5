// Package core defines the shared value types of agentrouter: conversation
// contexts with their grow-only message and intent history, the transient
// message envelope exchanged between agents, intent classification results,
// artifacts and the narrow collaborator interfaces implemented by the
// conversation and model packages. Higher layers (bus, intent, orchestrator,
// stream) depend on core and never on each other's internals.
package core
