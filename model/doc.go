// Package model defines the text-generation collaborator consumed by the
// intent classifier and the orchestrator's synthesis step. The Generator
// interface is deliberately narrow (one prompt in, one text out); provider
// adapters live in the anthropic and openai subpackages and a deterministic
// Mock supports tests and examples.
package model
