package chat

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/navicore/searchtools/pkg/backend"
	"github.com/navicore/searchtools/pkg/tools"
	"github.com/navicore/searchtools/pkg/tools/categories/search"
)

// ChatOptions contains options for the chat service
type ChatOptions struct {
	InitialSystemPrompt   string
	BackendType           backend.BackendType
	ModelID               string
	ContextWindowSize     int // Messages of history sent with each request
	MaxTokens             int
	Temperature           float64
	TopP                  float64
	BackendOptions        map[string]any
	EnableTools           bool     // Whether to enable tool support
	EnabledToolCategories []string // List of enabled tool categories
	MaxToolRounds         int      // Backend round trips allowed per prompt
	MaxToolsPerMessage    int      // Tool calls executed per model message
	Logger                *zap.Logger
}

// DefaultChatOptions returns the default chat options
func DefaultChatOptions() ChatOptions {
	return ChatOptions{
		InitialSystemPrompt:   GetDefaultSystemPrompt(),
		BackendType:           backend.BackendMock,
		ModelID:               "mock",
		ContextWindowSize:     20,
		MaxTokens:             1000,
		Temperature:           0.7,
		BackendOptions:        make(map[string]any),
		EnableTools:           true,
		EnabledToolCategories: []string{search.CategoryID},
		MaxToolRounds:         10,
		MaxToolsPerMessage:    10,
	}
}

// Service runs prompts against a backend, executing requested tools
// between rounds. It implements ChatService.
type Service struct {
	backend      backend.Backend
	toolManager  *tools.ToolManager
	options      ChatOptions
	systemPrompt string
	logger       *zap.Logger

	conversationMu sync.Mutex
	messages       []backend.Message
}

// NewChatService creates a backend and tool manager from opts
func NewChatService(opts ChatOptions) (*Service, error) {
	b, err := backend.NewBackend(backend.Config{
		Type:        opts.BackendType,
		ModelID:     opts.ModelID,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Options:     opts.BackendOptions,
		Logger:      opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat backend: %w", err)
	}

	toolManager, err := tools.Initialize(opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tool manager: %w", err)
	}

	return NewChatServiceWith(b, toolManager, opts)
}

// NewChatServiceWith wires an existing backend and tool manager
func NewChatServiceWith(b backend.Backend, toolManager *tools.ToolManager, opts ChatOptions) (*Service, error) {
	toolManager.EnableTools(opts.EnableTools)
	if opts.MaxToolsPerMessage > 0 {
		toolManager.SetMaxToolsPerMsg(opts.MaxToolsPerMessage)
	}
	if len(opts.EnabledToolCategories) > 0 {
		if err := toolManager.EnableCategoriesByIDs(opts.EnabledToolCategories); err != nil {
			return nil, fmt.Errorf("failed to enable tool categories: %w", err)
		}
	}

	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = 10
	}
	if opts.ContextWindowSize <= 0 {
		opts.ContextWindowSize = 20
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		backend:      b,
		toolManager:  toolManager,
		options:      opts,
		systemPrompt: opts.InitialSystemPrompt,
		logger:       logger.Named("chat"),
	}, nil
}

// Ask sends prompt and keeps going while the model asks for tools, up to
// MaxToolRounds round trips. On a backend or tool failure the history is
// rolled back to before the prompt.
func (s *Service) Ask(ctx context.Context, prompt string) (Answer, error) {
	s.conversationMu.Lock()
	defer s.conversationMu.Unlock()

	start := len(s.messages)
	s.messages = append(s.messages, backend.Message{Role: backend.RoleUser, Content: prompt})

	answer := Answer{Usage: map[string]int{}}
	for round := 1; round <= s.options.MaxToolRounds; round++ {
		answer.Rounds = round

		req := backend.ChatRequest{
			Messages:    s.prepareBackendMessages(),
			MaxTokens:   s.options.MaxTokens,
			Temperature: s.options.Temperature,
			TopP:        s.options.TopP,
		}
		if s.toolManager.IsToolsEnabled() {
			req.Tools = s.toolManager.GetTools()
		}

		resp, err := s.backend.SendMessage(ctx, req)
		if err != nil {
			s.messages = s.messages[:start]
			return Answer{}, fmt.Errorf("backend error: %w", err)
		}
		for k, v := range resp.Usage {
			answer.Usage[k] += v
		}
		s.logger.Debug("backend round",
			zap.Int("round", round),
			zap.String("finish_reason", resp.FinishReason),
			zap.Int("tool_uses", len(resp.ToolUses)))

		if len(resp.ToolUses) == 0 || !s.toolManager.IsToolsEnabled() {
			s.messages = append(s.messages, backend.Message{Role: backend.RoleAssistant, Content: resp.Content})
			answer.Content = resp.Content
			answer.FinishReason = resp.FinishReason
			return answer, nil
		}

		s.messages = append(s.messages, backend.Message{
			Role:     backend.RoleAssistant,
			Content:  resp.Content,
			ToolUses: resp.ToolUses,
		})

		results, err := s.toolManager.HandleToolUses(ctx, resp.ToolUses)
		if err != nil {
			s.messages = s.messages[:start]
			return Answer{}, fmt.Errorf("tool execution failed: %w", err)
		}
		for i, r := range results {
			answer.ToolCalls = append(answer.ToolCalls, ToolCall{
				Name:    r.Name,
				Input:   resp.ToolUses[i].Input,
				Result:  r.Result,
				IsError: r.IsError,
			})
		}
		s.messages = append(s.messages, backend.Message{Role: backend.RoleUser, ToolResults: results})
	}

	// Close the exchange so the next prompt starts from an assistant turn
	note := fmt.Sprintf("Stopped after %d tool rounds without a final answer.", s.options.MaxToolRounds)
	s.messages = append(s.messages, backend.Message{Role: backend.RoleAssistant, Content: note})
	answer.Content = note
	answer.FinishReason = backend.FinishToolUse
	return answer, ErrMaxToolRounds
}

// GetHistory returns the chat history
func (s *Service) GetHistory() []backend.Message {
	s.conversationMu.Lock()
	defer s.conversationMu.Unlock()

	// Return a copy of the messages to prevent race conditions
	history := make([]backend.Message, len(s.messages))
	copy(history, s.messages)

	return history
}

// Clear clears the chat history
func (s *Service) Clear() error {
	s.conversationMu.Lock()
	defer s.conversationMu.Unlock()

	s.messages = nil
	return nil
}

// UpdateSystemPrompt updates the system prompt
func (s *Service) UpdateSystemPrompt(prompt string) {
	s.conversationMu.Lock()
	defer s.conversationMu.Unlock()

	s.systemPrompt = prompt
}

// prepareBackendMessages prepares the messages for the backend.
// Caller holds conversationMu.
func (s *Service) prepareBackendMessages() []backend.Message {
	result := []backend.Message{
		{
			Role:    backend.RoleSystem,
			Content: s.systemPrompt,
		},
	}

	return append(result, s.messages[windowStart(s.messages, s.options.ContextWindowSize):]...)
}

// windowStart picks where the history sent to the backend begins: the
// first plain user prompt among the last limit messages. When the current
// exchange is longer than limit it is kept whole, since a window must not
// open on a tool result or an assistant turn.
func windowStart(msgs []backend.Message, limit int) int {
	start := 0
	if len(msgs) > limit {
		start = len(msgs) - limit
	}
	for i := start; i < len(msgs); i++ {
		if isPrompt(msgs[i]) {
			return i
		}
	}
	for i := start - 1; i >= 0; i-- {
		if isPrompt(msgs[i]) {
			return i
		}
	}
	return 0
}

func isPrompt(m backend.Message) bool {
	return m.Role == backend.RoleUser && len(m.ToolResults) == 0
}

// GetBackendInfo returns information about the backend
func (s *Service) GetBackendInfo() (string, string) {
	return s.backend.Name(), s.backend.ModelID()
}

// ToolManager returns the manager executing tool requests
func (s *Service) ToolManager() *tools.ToolManager {
	return s.toolManager
}

// EnableTools enables or disables the use of tools
func (s *Service) EnableTools(enabled bool) {
	s.toolManager.EnableTools(enabled)
}

// IsToolsEnabled returns whether tools are enabled
func (s *Service) IsToolsEnabled() bool {
	return s.toolManager.IsToolsEnabled()
}

// Close closes the chat service and releases resources
func (s *Service) Close() error {
	if s.backend != nil {
		return s.backend.Close()
	}
	return nil
}
