package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/navicore/searchtools/pkg/backend"
	"github.com/navicore/searchtools/pkg/tools/core"
)

// ToolInfo describes a registered tool for listings
type ToolInfo struct {
	Category    string                 `json:"category"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Enabled     bool                   `json:"enabled"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// ToolManager handles tool execution and permissions
type ToolManager struct {
	mu             sync.RWMutex
	registry       *Registry
	toolsEnabled   bool
	maxToolsPerMsg int
	logger         *zap.Logger
}

// NewToolManager creates a new tool manager with default settings.
// A nil logger discards log output.
func NewToolManager(logger *zap.Logger) *ToolManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToolManager{
		registry:       NewRegistry(),
		toolsEnabled:   true, // Enabled by default
		maxToolsPerMsg: 10,   // Default limit
		logger:         logger.Named("tools"),
	}
}

// Registry returns the underlying category registry
func (tm *ToolManager) Registry() *Registry {
	return tm.registry
}

// EnableTools enables or disables all tools
func (tm *ToolManager) EnableTools(enabled bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.toolsEnabled = enabled
}

// IsToolsEnabled returns whether tools are enabled
func (tm *ToolManager) IsToolsEnabled() bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	return tm.toolsEnabled
}

// EnableCategory enables a specific tool category
func (tm *ToolManager) EnableCategory(categoryID string, enabled bool) error {
	return tm.registry.SetCategoryEnabled(categoryID, enabled)
}

// EnableCategoriesByIDs enables exactly the given categories
func (tm *ToolManager) EnableCategoriesByIDs(categoryIDs []string) error {
	// Validate first so a typo leaves the current state alone
	known := make(map[string]bool)
	for _, cat := range tm.registry.Categories() {
		known[cat.ID] = true
	}
	for _, id := range categoryIDs {
		if !known[id] {
			return fmt.Errorf("category %s: %w", id, ErrCategoryNotFound)
		}
	}

	tm.registry.SetAllCategoriesEnabled(false)
	for _, id := range categoryIDs {
		if err := tm.EnableCategory(id, true); err != nil {
			return err
		}
	}
	return nil
}

// EnableCategories parses a comma-separated list of category IDs and enables them
func (tm *ToolManager) EnableCategories(categoriesStr string) error {
	if strings.TrimSpace(categoriesStr) == "" {
		return nil
	}

	var ids []string
	for _, id := range strings.Split(categoriesStr, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return tm.EnableCategoriesByIDs(ids)
}

// EnableAllCategories enables or disables all tool categories
func (tm *ToolManager) EnableAllCategories(enabled bool) {
	tm.registry.SetAllCategoriesEnabled(enabled)
}

// GetTools returns tool definitions for all enabled tools
func (tm *ToolManager) GetTools() []backend.ClaudeTool {
	if !tm.IsToolsEnabled() {
		return nil
	}
	return tm.registry.GetEnabledTools()
}

// Descriptors lists every registered tool, enabled or not
func (tm *ToolManager) Descriptors() []ToolInfo {
	var out []ToolInfo
	for _, cat := range tm.registry.Categories() {
		for _, tool := range cat.Tools {
			out = append(out, ToolInfo{
				Category:    cat.ID,
				Name:        tool.Name(),
				Description: tool.Description(),
				Enabled:     cat.Enabled && tm.IsToolsEnabled(),
				InputSchema: tool.InputSchema(),
			})
		}
	}
	return out
}

// HandleToolUse runs one tool request. Failures the model can act on
// (unknown tool, bad input, tool errors) come back as a result with
// IsError set; the error return is reserved for disabled tools,
// cancellation and encoding failures.
func (tm *ToolManager) HandleToolUse(ctx context.Context, toolUse *core.ToolUse) (*core.ToolResult, error) {
	if !tm.IsToolsEnabled() {
		return nil, ErrToolsDisabled
	}

	if toolUse == nil {
		return nil, fmt.Errorf("no tool use request provided")
	}

	tool, err := tm.registry.GetTool(toolUse.Name)
	if err != nil {
		tm.logger.Warn("unknown tool requested", zap.String("tool", toolUse.Name))
		return errorResult(toolUse, err)
	}

	input := toolUse.Input
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}

	start := time.Now()
	result, err := tool.Execute(ctx, input)
	tm.logger.Debug("tool executed",
		zap.String("tool", toolUse.Name),
		zap.String("tool_use_id", toolUse.ID),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err))

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("error executing tool %s: %w", toolUse.Name, err)
		}
		if result == nil {
			return errorResult(toolUse, err)
		}
	}

	// Convert result to JSON
	resultJSON, merr := json.Marshal(result)
	if merr != nil {
		return nil, fmt.Errorf("error marshaling tool result: %w", merr)
	}

	return &core.ToolResult{
		ToolUseID: toolUse.ID,
		Name:      toolUse.Name,
		Result:    resultJSON,
		IsError:   err != nil,
	}, nil
}

// HandleToolUses runs requests in order. Requests beyond the per-message
// limit are answered with an error result instead of being executed.
func (tm *ToolManager) HandleToolUses(ctx context.Context, uses []core.ToolUse) ([]core.ToolResult, error) {
	limit := tm.GetMaxToolsPerMsg()
	results := make([]core.ToolResult, 0, len(uses))
	for i := range uses {
		if i >= limit {
			res, _ := errorResult(&uses[i], fmt.Errorf("too many tool calls in one message (limit %d)", limit))
			results = append(results, *res)
			continue
		}
		res, err := tm.HandleToolUse(ctx, &uses[i])
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}
	return results, nil
}

func errorResult(toolUse *core.ToolUse, err error) (*core.ToolResult, error) {
	payload, merr := json.Marshal(map[string]string{"error": err.Error()})
	if merr != nil {
		return nil, fmt.Errorf("error marshaling tool result: %w", merr)
	}
	return &core.ToolResult{
		ToolUseID: toolUse.ID,
		Name:      toolUse.Name,
		Result:    payload,
		IsError:   true,
	}, nil
}

// SetMaxToolsPerMsg sets the maximum number of tool calls allowed per message
func (tm *ToolManager) SetMaxToolsPerMsg(max int) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if max > 0 {
		tm.maxToolsPerMsg = max
	}
}

// GetMaxToolsPerMsg gets the maximum number of tool calls allowed per message
func (tm *ToolManager) GetMaxToolsPerMsg() int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	return tm.maxToolsPerMsg
}

// RegisterTool registers a new tool with the manager
func (tm *ToolManager) RegisterTool(categoryID string, tool core.Tool) error {
	return tm.registry.RegisterTool(categoryID, tool)
}
