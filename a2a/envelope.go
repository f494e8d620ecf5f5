package a2a

import (
	"fmt"
	"time"

	"github.com/hupe1980/agentrouter/bus"
	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/orchestrator"
)

// Result statuses on the wire.
const (
	StatusSuccess    = "success"
	StatusError      = "error"
	StatusInProgress = "in_progress"
)

// TaskData carries the payload of a task.
type TaskData struct {
	InputText  string         `json:"input_text"`
	Context    map[string]any `json:"context,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Task is the inbound boundary envelope. Validation checks required-field
// presence only; payload semantics are left to the receiving action.
type Task struct {
	TaskID        string         `json:"task_id"`
	AgentID       string         `json:"agent_id"`
	Action        string         `json:"action"`
	Data          TaskData       `json:"data"`
	TargetAgentID string         `json:"target_agent_id,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// NewTask constructs a task with a fresh id and timestamp.
func NewTask(agentID, action string, data TaskData) *Task {
	return &Task{
		TaskID:    core.NewID(),
		AgentID:   agentID,
		Action:    action,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// Validate checks that the required envelope fields are present.
func (t *Task) Validate() error {
	switch {
	case t.TaskID == "":
		return fmt.Errorf("task: missing task_id")
	case t.AgentID == "":
		return fmt.Errorf("task: missing agent_id")
	case t.Action == "":
		return fmt.Errorf("task: missing action")
	case t.Data.InputText == "":
		return fmt.Errorf("task: missing data.input_text")
	}
	return nil
}

// TurnRequest maps the task onto an orchestrator turn. user_id and
// session_id ride in the context map by convention.
func (t *Task) TurnRequest() orchestrator.TurnRequest {
	req := orchestrator.TurnRequest{Query: t.Data.InputText}
	if v, ok := t.Data.Context["user_id"].(string); ok {
		req.UserID = v
	}
	if v, ok := t.Data.Context["session_id"].(string); ok {
		req.SessionID = v
	}
	return req
}

// ErrorDetail describes a failed task.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResultData carries the payload of a result.
type ResultData struct {
	Response string         `json:"response,omitempty"`
	Result   map[string]any `json:"result,omitempty"`
}

// Result is the outbound boundary envelope.
type Result struct {
	TaskID    string         `json:"task_id"`
	AgentID   string         `json:"agent_id"`
	Status    string         `json:"status"`
	Data      ResultData     `json:"data"`
	Error     *ErrorDetail   `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Validate checks that the required envelope fields are present and the
// status tag is one of the known values.
func (r *Result) Validate() error {
	switch {
	case r.TaskID == "":
		return fmt.Errorf("result: missing task_id")
	case r.AgentID == "":
		return fmt.Errorf("result: missing agent_id")
	}
	switch r.Status {
	case StatusSuccess, StatusError, StatusInProgress:
		return nil
	default:
		return fmt.Errorf("result: unknown status %q", r.Status)
	}
}

// ResultFor wraps a completed turn into the result envelope for the task.
// A turn that degraded internally (Metadata.Error set) becomes an error
// result that still carries the apologetic response text.
func ResultFor(task *Task, turn *orchestrator.TurnResult) *Result {
	res := &Result{
		TaskID:  task.TaskID,
		AgentID: bus.CallerID,
		Status:  StatusSuccess,
		Data:    ResultData{Response: turn.Response},
		Metadata: map[string]any{
			"session_id":       turn.SessionID,
			"intent":           turn.Metadata.Intent,
			"agents_consulted": turn.Metadata.AgentsConsulted,
			"processing_time":  turn.Metadata.ProcessingTime.String(),
		},
		Timestamp: time.Now().UTC(),
	}
	if turn.Metadata.Error != "" {
		res.Status = StatusError
		res.Error = &ErrorDetail{Code: "turn_failed", Message: turn.Metadata.Error}
	}
	return res
}
