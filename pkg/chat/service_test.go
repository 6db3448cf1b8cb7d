package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navicore/searchtools/pkg/backend"
	"github.com/navicore/searchtools/pkg/tools"
	"github.com/navicore/searchtools/pkg/tools/core"
)

// countTool reports how many times it ran
type countTool struct {
	core.BaseToolImpl
	calls int
}

func (t *countTool) Execute(_ context.Context, input json.RawMessage) (interface{}, error) {
	t.calls++
	return map[string]interface{}{"calls": t.calls, "input": input}, nil
}

func newTestService(t *testing.T, b backend.Backend, opts ChatOptions) (*Service, *countTool) {
	t.Helper()
	tool := &countTool{BaseToolImpl: *core.NewBaseTool("count", "counts", "test", map[string]interface{}{"type": "object"})}

	tm := tools.NewToolManager(nil)
	require.NoError(t, tm.Registry().RegisterCategory(&tools.Category{ID: "test", Enabled: true}))
	require.NoError(t, tm.RegisterTool("test", tool))

	opts.EnabledToolCategories = []string{"test"}
	s, err := NewChatServiceWith(b, tm, opts)
	require.NoError(t, err)
	return s, tool
}

func toolUse(name string) backend.ToolUse {
	return backend.ToolUse{Name: name, Input: json.RawMessage(`{"q":1}`)}
}

func TestAsk_PlainAnswer(t *testing.T) {
	b := backend.NewScriptedBackend(backend.ChatResponse{Content: "42", Usage: map[string]int{"total_tokens": 7}})
	s, tool := newTestService(t, b, DefaultChatOptions())

	answer, err := s.Ask(context.Background(), "what is the answer?")
	require.NoError(t, err)

	assert.Equal(t, "42", answer.Content)
	assert.Equal(t, backend.FinishStop, answer.FinishReason)
	assert.Equal(t, 1, answer.Rounds)
	assert.Equal(t, 7, answer.Usage["total_tokens"])
	assert.Empty(t, answer.ToolCalls)
	assert.Zero(t, tool.calls)

	reqs := b.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, backend.RoleSystem, reqs[0].Messages[0].Role)
	assert.Equal(t, DefaultSystemPrompt, reqs[0].Messages[0].Content)
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, "count", reqs[0].Tools[0].Name)

	history := s.GetHistory()
	require.Len(t, history, 2)
	assert.Equal(t, backend.RoleUser, history[0].Role)
	assert.Equal(t, backend.RoleAssistant, history[1].Role)
}

func TestAsk_ToolRounds(t *testing.T) {
	b := backend.NewScriptedBackend(
		backend.ChatResponse{Content: "checking", ToolUses: []backend.ToolUse{toolUse("count"), toolUse("missing")}},
		backend.ChatResponse{ToolUses: []backend.ToolUse{toolUse("count")}},
		backend.ChatResponse{Content: "done"},
	)
	s, tool := newTestService(t, b, DefaultChatOptions())

	answer, err := s.Ask(context.Background(), "count twice")
	require.NoError(t, err)

	assert.Equal(t, "done", answer.Content)
	assert.Equal(t, 3, answer.Rounds)
	assert.Equal(t, 2, tool.calls)
	require.Len(t, answer.ToolCalls, 3)
	assert.False(t, answer.ToolCalls[0].IsError)
	assert.True(t, answer.ToolCalls[1].IsError, "unknown tools come back as error results")
	assert.JSONEq(t, `{"q":1}`, string(answer.ToolCalls[2].Input))

	// user, assistant+tools, results, assistant+tools, results, assistant
	history := s.GetHistory()
	require.Len(t, history, 6)
	assert.Len(t, history[1].ToolUses, 2)
	require.Len(t, history[2].ToolResults, 2)
	assert.Equal(t, history[1].ToolUses[0].ID, history[2].ToolResults[0].ToolUseID)

	// The last request carried the tool results back to the model
	reqs := b.Requests()
	require.Len(t, reqs, 3)
	last := reqs[2].Messages
	assert.Len(t, last[len(last)-1].ToolResults, 1)
}

func TestAsk_MaxToolRounds(t *testing.T) {
	b := backend.NewScriptedBackend(
		backend.ChatResponse{ToolUses: []backend.ToolUse{toolUse("count")}},
		backend.ChatResponse{ToolUses: []backend.ToolUse{toolUse("count")}},
	)
	opts := DefaultChatOptions()
	opts.MaxToolRounds = 2
	s, tool := newTestService(t, b, opts)

	answer, err := s.Ask(context.Background(), "loop")
	assert.ErrorIs(t, err, ErrMaxToolRounds)
	assert.Equal(t, 2, answer.Rounds)
	assert.Equal(t, 2, tool.calls)
	assert.Contains(t, answer.Content, "Stopped after 2 tool rounds")

	history := s.GetHistory()
	assert.Equal(t, backend.RoleAssistant, history[len(history)-1].Role)
}

func TestAsk_BackendErrorRollsBack(t *testing.T) {
	b := backend.NewScriptedBackend(
		backend.ChatResponse{Content: "first"},
		backend.ChatResponse{ToolUses: []backend.ToolUse{toolUse("count")}},
		backend.ChatResponse{Error: errors.New("boom")},
	)
	s, _ := newTestService(t, b, DefaultChatOptions())

	_, err := s.Ask(context.Background(), "one")
	require.NoError(t, err)

	_, err = s.Ask(context.Background(), "two")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Len(t, s.GetHistory(), 2)
}

func TestAsk_ToolsDisabled(t *testing.T) {
	b := backend.NewScriptedBackend(backend.ChatResponse{Content: "no tools", ToolUses: []backend.ToolUse{toolUse("count")}})
	opts := DefaultChatOptions()
	opts.EnableTools = false
	s, tool := newTestService(t, b, opts)

	answer, err := s.Ask(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "no tools", answer.Content)
	assert.Zero(t, tool.calls)
	assert.Empty(t, b.Requests()[0].Tools)
	assert.False(t, s.IsToolsEnabled())
}

func TestAsk_MockBackendEndToEnd(t *testing.T) {
	b, err := backend.NewMockBackend(backend.Config{})
	require.NoError(t, err)

	tm := tools.NewToolManager(nil)
	require.NoError(t, tm.Registry().RegisterCategory(&tools.Category{ID: "test", Enabled: true}))
	require.NoError(t, tm.RegisterTool("test", &countTool{BaseToolImpl: *core.NewBaseTool("find_files", "stub", "test", nil)}))

	opts := DefaultChatOptions()
	opts.EnabledToolCategories = []string{"test"}
	s, err := NewChatServiceWith(b, tm, opts)
	require.NoError(t, err)

	answer, err := s.Ask(context.Background(), "find *.go")
	require.NoError(t, err)
	assert.Equal(t, 2, answer.Rounds)
	require.Len(t, answer.ToolCalls, 1)
	assert.Contains(t, answer.Content, "`find_files` returned")
}

func TestWindowStart(t *testing.T) {
	prompt := func(i int) backend.Message {
		return backend.Message{Role: backend.RoleUser, Content: fmt.Sprint(i)}
	}
	reply := backend.Message{Role: backend.RoleAssistant, Content: "ok"}
	uses := backend.Message{Role: backend.RoleAssistant, ToolUses: []backend.ToolUse{{ID: "1"}}}
	results := backend.Message{Role: backend.RoleUser, ToolResults: []backend.ToolResult{{ToolUseID: "1"}}}

	msgs := []backend.Message{prompt(0), reply, prompt(1), uses, results, reply}

	assert.Equal(t, 0, windowStart(msgs, 20))
	assert.Equal(t, 2, windowStart(msgs, 4))
	// Window of 3 would open on the tool results; the whole exchange is kept
	assert.Equal(t, 2, windowStart(msgs, 3))
	assert.Equal(t, 2, windowStart(msgs, 1))
	assert.Equal(t, 0, windowStart(nil, 5))
}

func TestClearAndSystemPrompt(t *testing.T) {
	b := backend.NewScriptedBackend(backend.ChatResponse{Content: "a"}, backend.ChatResponse{Content: "b"})
	s, _ := newTestService(t, b, DefaultChatOptions())

	_, err := s.Ask(context.Background(), "x")
	require.NoError(t, err)
	require.NoError(t, s.Clear())
	assert.Empty(t, s.GetHistory())

	s.UpdateSystemPrompt("custom")
	_, err = s.Ask(context.Background(), "y")
	require.NoError(t, err)
	assert.Equal(t, "custom", b.Requests()[1].Messages[0].Content)
	assert.Len(t, b.Requests()[1].Messages, 2)

	name, model := s.GetBackendInfo()
	assert.Equal(t, "Mock Backend", name)
	assert.Equal(t, "mock-scripted", model)
	assert.NoError(t, s.Close())
}

func TestNewChatService_UnknownBackend(t *testing.T) {
	opts := DefaultChatOptions()
	opts.BackendType = "nope"
	_, err := NewChatService(opts)
	assert.Error(t, err)
}
