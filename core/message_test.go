package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriority_JSON(t *testing.T) {
	tests := []struct {
		priority Priority
		wire     string
	}{
		{PriorityLow, `"LOW"`},
		{PriorityNormal, `"NORMAL"`},
		{PriorityHigh, `"HIGH"`},
		{PriorityCritical, `"CRITICAL"`},
	}
	for _, tt := range tests {
		data, err := json.Marshal(tt.priority)
		assert.NoError(t, err)
		assert.Equal(t, tt.wire, string(data))

		var decoded Priority
		assert.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, tt.priority, decoded)
	}

	var p Priority
	assert.Error(t, json.Unmarshal([]byte(`"URGENT"`), &p))
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("orchestrator", "advisor", "hello")

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "orchestrator", msg.From)
	assert.Equal(t, "advisor", msg.To)
	assert.Equal(t, PriorityNormal, msg.Priority)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestMessage_Reply(t *testing.T) {
	req := NewMessage("orchestrator", "advisor", QueryPayload{Query: "hi"})
	req.Priority = PriorityHigh

	reply := req.Reply("advisor", ReplyPayload{Text: "hello"})

	assert.Equal(t, "advisor", reply.From)
	assert.Equal(t, "orchestrator", reply.To)
	assert.Equal(t, req.ID, reply.ResponseTo)
	assert.Equal(t, PriorityHigh, reply.Priority)
	assert.NotEqual(t, req.ID, reply.ID)
}
