// Package conversation implements the conversation state store: a checked
// read-through cache in front of a durable core.ConversationBackend
// collaborator. Every operation degrades to a safe default (nil/false) on
// internal failure while counting and logging the error; the store never
// propagates a backend failure to its caller.
package conversation
