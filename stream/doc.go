// Package stream turns one orchestrated turn into an ordered sequence of
// typed events: start, intent analysis, agent selection, per-agent content
// chunks and artifacts, then a single terminal complete or error event.
// Chunking splits text on sentence boundaries with a configurable pacing
// delay between chunks.
package stream
