package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func init() {
	RegisterBackend(BackendMock, NewMockBackend)
}

// MockBackend is an offline implementation of the Backend interface.
// By default it answers from keywords and asks for the search tools when
// the prompt starts with "search" or "find". A scripted mock replays
// fixed responses instead.
type MockBackend struct {
	config  Config
	modelID string
	delay   time.Duration
	logger  *zap.Logger

	mu       sync.Mutex
	script   []ChatResponse
	scripted bool
	requests []ChatRequest
}

// NewMockBackend creates a new mock backend. Options["delay"] may hold a
// duration string simulating network latency.
func NewMockBackend(config Config) (Backend, error) {
	b := &MockBackend{
		config:  config,
		modelID: config.ModelID,
		logger:  config.Logger,
	}
	if b.modelID == "" {
		b.modelID = "mock-model"
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	b.logger = b.logger.Named("mock")

	if raw, ok := config.Options["delay"].(string); ok && raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, NewBackendError(ErrCodeInvalidConfiguration, "invalid mock delay "+raw, err)
		}
		b.delay = d
	}
	return b, nil
}

// NewScriptedBackend creates a mock that returns responses in order.
// Tool uses without an ID get a generated one.
func NewScriptedBackend(responses ...ChatResponse) *MockBackend {
	script := make([]ChatResponse, len(responses))
	copy(script, responses)
	return &MockBackend{
		modelID:  "mock-scripted",
		logger:   zap.NewNop(),
		script:   script,
		scripted: true,
	}
}

// Name returns the name of the backend
func (b *MockBackend) Name() string {
	return "Mock Backend"
}

// Type returns the type of the backend
func (b *MockBackend) Type() BackendType {
	return BackendMock
}

// ModelID returns the model identifier
func (b *MockBackend) ModelID() string {
	return b.modelID
}

// Requests returns copies of every request received so far
func (b *MockBackend) Requests() []ChatRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ChatRequest, len(b.requests))
	copy(out, b.requests)
	return out
}

// SendMessage simulates sending a message in the mock backend
func (b *MockBackend) SendMessage(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if b.delay > 0 {
		select {
		case <-ctx.Done():
			return ChatResponse{}, ctx.Err()
		case <-time.After(b.delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return ChatResponse{}, err
	}

	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()

	if b.scripted {
		return b.nextScripted()
	}

	last := lastMessage(req.Messages)
	var resp ChatResponse
	if len(last.ToolResults) > 0 {
		resp = ChatResponse{Content: summarizeToolResults(last.ToolResults), FinishReason: FinishStop}
	} else if use, ok := mockToolUse(last.Content, req.Tools); ok {
		resp = ChatResponse{
			Content:      fmt.Sprintf("Let me use %s for that.", use.Name),
			FinishReason: FinishToolUse,
			ToolUses:     []ToolUse{use},
		}
	} else {
		resp = ChatResponse{Content: generateMockResponse(last.Content), FinishReason: FinishStop}
	}

	resp.Usage = mockUsage(last.Content, resp.Content)
	b.logger.Debug("mock response",
		zap.String("finish_reason", resp.FinishReason),
		zap.Int("tool_uses", len(resp.ToolUses)))
	return resp, nil
}

// Close closes any resources held by the backend
func (b *MockBackend) Close() error {
	return nil
}

func (b *MockBackend) nextScripted() (ChatResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.script) == 0 {
		return ChatResponse{}, NewBackendError(ErrCodeScriptExhausted, "no scripted responses left", nil)
	}
	resp := b.script[0]
	b.script = b.script[1:]

	if len(resp.ToolUses) > 0 {
		uses := make([]ToolUse, len(resp.ToolUses))
		copy(uses, resp.ToolUses)
		for i := range uses {
			if uses[i].ID == "" {
				uses[i].ID = newToolUseID()
			}
		}
		resp.ToolUses = uses
		if resp.FinishReason == "" {
			resp.FinishReason = FinishToolUse
		}
	}
	if resp.FinishReason == "" {
		resp.FinishReason = FinishStop
	}
	return resp, resp.Error
}

func newToolUseID() string {
	return "toolu_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func lastMessage(msgs []Message) Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i]
		}
	}
	return Message{}
}

func offered(tools []ClaudeTool, name string) bool {
	for _, t := range tools {
		if t.Name == name {
			return true
		}
	}
	return false
}

// mockToolUse turns "search <regex>" and "find <glob>" prompts into tool calls
func mockToolUse(prompt string, tools []ClaudeTool) (ToolUse, bool) {
	fields := strings.Fields(prompt)
	if len(fields) < 2 {
		return ToolUse{}, false
	}
	verb := strings.ToLower(fields[0])
	arg := strings.Join(fields[1:], " ")

	var name string
	var input map[string]string
	switch verb {
	case "search", "grep":
		name, input = "search_in_files", map[string]string{"pattern": arg}
	case "find":
		name, input = "find_files", map[string]string{"name": arg}
	default:
		return ToolUse{}, false
	}
	if !offered(tools, name) {
		return ToolUse{}, false
	}

	raw, _ := json.Marshal(input)
	return ToolUse{ID: newToolUseID(), Name: name, Input: raw}, true
}

func summarizeToolResults(results []ToolResult) string {
	var sb strings.Builder
	sb.WriteString("## Tool results\n")
	for _, r := range results {
		status := "returned"
		if r.IsError {
			status = "failed with"
		}
		fmt.Fprintf(&sb, "\n`%s` %s:\n\n```json\n%s\n```\n", r.Name, status, string(r.Result))
	}
	return sb.String()
}

func mockUsage(prompt, response string) map[string]int {
	usage := make(map[string]int)
	usage["prompt_tokens"] = len(strings.Fields(prompt))
	usage["completion_tokens"] = len(strings.Fields(response))
	usage["total_tokens"] = usage["prompt_tokens"] + usage["completion_tokens"]
	return usage
}

// generateMockResponse generates a mock response based on the user's message
func generateMockResponse(userMessage string) string {
	lowerMessage := strings.ToLower(userMessage)

	switch {
	case strings.Contains(lowerMessage, "hello"):
		return "# Hello there!\n\nI'm a mock assistant. I can't answer questions, but I can call the search tools. Try `search <regex>` or `find <glob>`."

	case strings.Contains(lowerMessage, "help"):
		return "## Help\n\nThe mock backend understands two commands:\n\n- **search <regex>**: calls `search_in_files`\n- **find <glob>**: calls `find_files`\n\nAnything else gets this canned reply."

	default:
		return fmt.Sprintf("I'm a mock assistant, so I don't understand your message: \"%s\". Try 'help'.", userMessage)
	}
}
