package bus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrouter/core"
)

func echoDescriptor(id string) *core.AgentDescriptor {
	return &core.AgentDescriptor{
		ID:   id,
		Name: id,
		Handler: func(_ context.Context, msg *core.Message) (*core.Message, error) {
			payload := msg.Content.(core.QueryPayload)
			return msg.Reply(id, core.ReplyPayload{Text: "echo: " + payload.Query}), nil
		},
	}
}

func TestBus_Register_Validation(t *testing.T) {
	b := New()

	assert.Error(t, b.Register(nil))
	assert.Error(t, b.Register(&core.AgentDescriptor{ID: "x"}))
	assert.Error(t, b.Register(&core.AgentDescriptor{Handler: func(context.Context, *core.Message) (*core.Message, error) { return nil, nil }}))

	require.NoError(t, b.Register(echoDescriptor("echo")))
	assert.True(t, b.Registered("echo"))

	// Re-registration overwrites silently.
	require.NoError(t, b.Register(echoDescriptor("echo")))
	assert.Equal(t, []string{"echo"}, b.Agents())
}

func TestBus_Unregister(t *testing.T) {
	b := New()
	require.NoError(t, b.Register(echoDescriptor("echo")))

	b.Unregister("echo")
	assert.False(t, b.Registered("echo"))

	// No-op when absent.
	b.Unregister("echo")
}

func TestBus_Send(t *testing.T) {
	b := New()
	received := make(chan string, 1)
	require.NoError(t, b.Register(&core.AgentDescriptor{
		ID: "sink",
		Handler: func(_ context.Context, msg *core.Message) (*core.Message, error) {
			received <- msg.Content.(string)
			return nil, nil
		},
	}))

	assert.True(t, b.Send("tester", "sink", "ping"))
	select {
	case got := <-received:
		assert.Equal(t, "ping", got)
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}

	assert.False(t, b.Send("tester", "nobody", "ping"))
}

func TestBus_Call_Success(t *testing.T) {
	b := New()
	require.NoError(t, b.Register(echoDescriptor("echo")))

	res := b.Call(context.Background(), "echo", "hi", nil)
	assert.True(t, res.OK())
	assert.Equal(t, "echo", res.AgentID)
	assert.Equal(t, "echo: hi", res.Response)
	assert.Empty(t, res.Code)
}

func TestBus_Call_AgentNotFound(t *testing.T) {
	b := New()
	res := b.Call(context.Background(), "ghost", "hi", nil)

	assert.False(t, res.OK())
	assert.Equal(t, CodeAgentNotFound, res.Code)
	assert.Equal(t, "ghost", res.AgentID)
}

func TestBus_Call_HandlerError(t *testing.T) {
	b := New()
	require.NoError(t, b.Register(&core.AgentDescriptor{
		ID: "broken",
		Handler: func(context.Context, *core.Message) (*core.Message, error) {
			return nil, errors.New("boom")
		},
	}))

	res := b.Call(context.Background(), "broken", "hi", nil)
	assert.False(t, res.OK())
	assert.Equal(t, CodeHandlerError, res.Code)
	assert.Contains(t, res.Error, "boom")
}

func TestBus_Call_HandlerPanic(t *testing.T) {
	b := New()
	require.NoError(t, b.Register(&core.AgentDescriptor{
		ID:      "panicky",
		Handler: func(context.Context, *core.Message) (*core.Message, error) { panic("kaboom") },
	}))

	res := b.Call(context.Background(), "panicky", "hi", nil)
	assert.False(t, res.OK())
	assert.Equal(t, CodeHandlerError, res.Code)
	assert.Contains(t, res.Error, "kaboom")
}

func TestBus_Call_TimeoutBound(t *testing.T) {
	b := New(func(o *Options) { o.CallTimeout = 50 * time.Millisecond })
	require.NoError(t, b.Register(&core.AgentDescriptor{
		ID: "slow",
		Handler: func(context.Context, *core.Message) (*core.Message, error) {
			time.Sleep(5 * time.Second)
			return nil, nil
		},
	}))

	start := time.Now()
	res := b.Call(context.Background(), "slow", "hi", nil)
	elapsed := time.Since(start)

	assert.False(t, res.OK())
	assert.Equal(t, CodeTimeout, res.Code)
	assert.Less(t, elapsed, time.Second)

	// The registry afterwards holds only the real agent, nothing temporary.
	assert.Equal(t, []string{"slow"}, b.Agents())
}

func TestBus_Call_CallerCancellation(t *testing.T) {
	b := New()
	require.NoError(t, b.Register(&core.AgentDescriptor{
		ID: "slow",
		Handler: func(context.Context, *core.Message) (*core.Message, error) {
			time.Sleep(5 * time.Second)
			return nil, nil
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res := b.Call(ctx, "slow", "hi", nil)
	assert.False(t, res.OK())
	assert.Equal(t, CodeCanceled, res.Code)
}

func TestBus_CallMultiple_FanOutIsolation(t *testing.T) {
	b := New()
	require.NoError(t, b.Register(echoDescriptor("a")))
	require.NoError(t, b.Register(&core.AgentDescriptor{
		ID: "b",
		Handler: func(context.Context, *core.Message) (*core.Message, error) {
			return nil, errors.New("b is broken")
		},
	}))
	require.NoError(t, b.Register(echoDescriptor("c")))

	results := b.CallMultiple(context.Background(), "hi", []string{"a", "b", "c"}, nil)
	require.Len(t, results, 3)

	// Launch order is preserved; only b's slot carries the failure.
	assert.Equal(t, "a", results[0].AgentID)
	assert.True(t, results[0].OK())
	assert.Equal(t, "b", results[1].AgentID)
	assert.False(t, results[1].OK())
	assert.Equal(t, "c", results[2].AgentID)
	assert.True(t, results[2].OK())

	byID := ResultMap(results)
	assert.Equal(t, StatusError, byID["b"].Status)
	assert.Equal(t, StatusSuccess, byID["a"].Status)
}

func TestBus_CallMultiple_RunsConcurrently(t *testing.T) {
	b := New()
	var inFlight, peak atomic.Int32
	handler := func(ctx context.Context, msg *core.Message) (*core.Message, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		inFlight.Add(-1)
		return msg.Reply(msg.To, "done"), nil
	}
	for _, id := range []string{"x", "y", "z"} {
		require.NoError(t, b.Register(&core.AgentDescriptor{ID: id, Handler: handler}))
	}

	results := b.CallMultiple(context.Background(), "hi", []string{"x", "y", "z"}, nil)
	require.Len(t, results, 3)
	assert.Greater(t, peak.Load(), int32(1))
}

func TestBus_Stop(t *testing.T) {
	b := New()
	require.NoError(t, b.Register(echoDescriptor("echo")))

	b.Stop()

	assert.False(t, b.Send("tester", "echo", "ping"))
	res := b.Call(context.Background(), "echo", "hi", nil)
	assert.Equal(t, CodeBusClosed, res.Code)
	assert.Error(t, b.Register(echoDescriptor("late")))
}
