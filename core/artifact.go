package core

import "time"

// Artifact is a structured (non-text) payload produced by an agent, e.g. a
// generated plan document. Source identifies the producing agent.
type Artifact struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Source    string         `json:"source,omitempty"`
	Title     string         `json:"title,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewArtifact constructs an artifact with a fresh id and timestamp.
func NewArtifact(artifactType, source string, data map[string]any) Artifact {
	return Artifact{
		ID:        NewID(),
		Type:      artifactType,
		Source:    source,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
}

// Clone returns a copy with its own Data map.
func (a Artifact) Clone() Artifact {
	cp := a
	if a.Data != nil {
		cp.Data = make(map[string]any, len(a.Data))
		for k, v := range a.Data {
			cp.Data[k] = v
		}
	}
	return cp
}
