package bus

import (
	"time"

	"github.com/hupe1980/agentrouter/core"
)

// Status is the outcome classification of one agent call.
type Status string

const (
	// StatusSuccess marks a call whose handler produced a reply (possibly empty).
	StatusSuccess Status = "success"
	// StatusError marks a call that failed; Code carries the failure class.
	StatusError Status = "error"
)

// Failure codes carried on error results.
const (
	CodeAgentNotFound = "agent_not_found"
	CodeTimeout       = "timeout"
	CodeHandlerError  = "handler_error"
	CodeCanceled      = "canceled"
	CodeBusClosed     = "bus_closed"
)

// Result is the uniform outcome of one agent call. Failures are values, not
// errors: Status/Code/Error describe what went wrong for exactly one agent.
type Result struct {
	AgentID   string          `json:"agent_id"`
	Status    Status          `json:"status"`
	Response  string          `json:"response,omitempty"`
	Artifacts []core.Artifact `json:"artifacts,omitempty"`
	Code      string          `json:"code,omitempty"`
	Error     string          `json:"error,omitempty"`
	Elapsed   time.Duration   `json:"elapsed"`
}

// OK reports whether the call succeeded.
func (r *Result) OK() bool { return r.Status == StatusSuccess }

func errorResult(agentID, code, msg string, elapsed time.Duration) *Result {
	return &Result{
		AgentID: agentID,
		Status:  StatusError,
		Code:    code,
		Error:   msg,
		Elapsed: elapsed,
	}
}
