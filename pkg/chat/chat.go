package chat

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/navicore/searchtools/pkg/backend"
)

// ErrMaxToolRounds is returned when the model keeps asking for tools past
// the configured number of rounds
var ErrMaxToolRounds = errors.New("exceeded maximum number of tool rounds")

// ToolCall records one tool execution made while answering a prompt
type ToolCall struct {
	Name    string          `json:"name"`
	Input   json.RawMessage `json:"input"`
	Result  json.RawMessage `json:"result"`
	IsError bool            `json:"is_error,omitempty"`
}

// Answer is the outcome of one prompt
type Answer struct {
	Content      string         `json:"content"`
	FinishReason string         `json:"finish_reason"`
	ToolCalls    []ToolCall     `json:"tool_calls,omitempty"`
	Rounds       int            `json:"rounds"` // Backend round trips used
	Usage        map[string]int `json:"usage,omitempty"`
}

// ChatService defines the interface for chat functionality
type ChatService interface {
	Ask(ctx context.Context, prompt string) (Answer, error)
	GetHistory() []backend.Message
	Clear() error
}
