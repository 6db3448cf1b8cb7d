package backend

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a conversation message
type Message struct {
	Role        string       `json:"role"`                   // "user", "assistant" or "system"
	Content     string       `json:"content,omitempty"`      // Message text
	ToolUses    []ToolUse    `json:"tool_uses,omitempty"`    // Tools requested by an assistant message
	ToolResults []ToolResult `json:"tool_results,omitempty"` // Tool output carried by a user message
}

// ClaudeTool describes a tool offered to the model
type ClaudeTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// ChatRequest contains the parameters for a chat completion request
type ChatRequest struct {
	Messages    []Message      // The conversation history
	Tools       []ClaudeTool   // Tools the model may call
	MaxTokens   int            // Maximum tokens to generate
	Temperature float64        // Temperature for sampling (0.0-1.0)
	TopP        float64        // Top-p sampling parameter
	Options     map[string]any // Backend-specific options
}

// ToolUse represents a tool call from the model
type ToolUse struct {
	ID    string          `json:"id"`    // Identifier echoed back in the matching ToolResult
	Name  string          `json:"name"`  // Name of the tool to use
	Input json.RawMessage `json:"input"` // Raw JSON input to the tool
}

// ToolResult represents the result of a tool execution
type ToolResult struct {
	ToolUseID string          `json:"tool_use_id"`
	Name      string          `json:"name"`               // Name of the tool that was used
	Result    json.RawMessage `json:"result"`             // Raw JSON result from the tool
	IsError   bool            `json:"is_error,omitempty"` // The tool failed; Result describes why
}

// Finish reasons
const (
	FinishStop      = "stop"
	FinishLength    = "length"
	FinishToolUse   = "tool_use"
	FinishFiltered  = "content_filtered"
	FinishUnhandled = "unknown"
)

// ChatResponse contains the response from a chat completion
type ChatResponse struct {
	Content      string         // The generated text
	FinishReason string         // Reason why generation stopped ("stop", "length", "tool_use", etc.)
	Usage        map[string]int // Token usage statistics
	Error        error          // Any error that occurred
	ToolUses     []ToolUse      // Tool use requests from the model, if any
}

// BackendType represents the type of chat backend
type BackendType string

const (
	BackendAWSBedrock BackendType = "aws-bedrock"
	BackendMock       BackendType = "mock"
)

// Backend is the interface that all chat backends must implement
type Backend interface {
	// Name returns the name of the backend
	Name() string

	// Type returns the type of the backend
	Type() BackendType

	// ModelID returns the model identifier
	ModelID() string

	// SendMessage sends a message to the backend and returns the response
	SendMessage(ctx context.Context, req ChatRequest) (ChatResponse, error)

	// Close closes any resources held by the backend
	Close() error
}

// Config represents the configuration for a chat backend
type Config struct {
	Type        BackendType    // The backend type
	ModelID     string         // The model ID/Name
	MaxTokens   int            // Default max tokens
	Temperature float64        // Default temperature
	Options     map[string]any // Backend-specific options
	Logger      *zap.Logger    // Request logging; nil disables it
}

// Factory creates a new backend based on the provided configuration
type Factory func(config Config) (Backend, error)

var (
	factoriesMu      sync.RWMutex
	backendFactories = make(map[BackendType]Factory)
)

// RegisterBackend registers a backend factory for a specific backend type
func RegisterBackend(backendType BackendType, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	backendFactories[backendType] = factory
}

// AvailableBackends lists the registered backend types, sorted
func AvailableBackends() []BackendType {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	types := make([]BackendType, 0, len(backendFactories))
	for t := range backendFactories {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// NewBackend creates a new backend based on the provided configuration
func NewBackend(config Config) (Backend, error) {
	factoriesMu.RLock()
	factory, ok := backendFactories[config.Type]
	factoriesMu.RUnlock()
	if !ok {
		return nil, &BackendError{
			Code:    ErrCodeUnsupportedBackend,
			Message: "unsupported backend type: " + string(config.Type),
		}
	}

	return factory(config)
}
