package core

import (
	"context"
	"encoding/json"

	"github.com/navicore/searchtools/pkg/backend"
)

// PermissionLevel defines access rights for a tool category
type PermissionLevel string

// PermissionReadOnly is the only level offered; no tool writes or executes
const PermissionReadOnly PermissionLevel = "read-only"

// Tool represents a capability that can be offered to the model
type Tool interface {
	// Name returns the name of the tool as seen by the model
	Name() string

	// Description returns the description of the tool as seen by the model
	Description() string

	// Category returns the category this tool belongs to
	Category() string

	// InputSchema returns the JSON schema for the tool's input
	InputSchema() map[string]interface{}

	// Execute performs the tool operation with given input.
	// Implementations must be safe for concurrent use.
	Execute(ctx context.Context, input json.RawMessage) (interface{}, error)
}

// ToolFactory constructs a fresh Tool. Factories take no arguments and
// share no mutable state between the instances they return.
type ToolFactory func() Tool

// BaseToolImpl provides common functionality for tool implementations
type BaseToolImpl struct {
	name        string
	description string
	category    string
	inputSchema map[string]interface{}
}

// Name returns the name of the tool
func (t *BaseToolImpl) Name() string { return t.name }

// Description returns the description of the tool
func (t *BaseToolImpl) Description() string { return t.description }

// Category returns the category this tool belongs to
func (t *BaseToolImpl) Category() string { return t.category }

// InputSchema returns the JSON schema for the tool's input
func (t *BaseToolImpl) InputSchema() map[string]interface{} { return t.inputSchema }

// NewBaseTool creates a new basic tool implementation
func NewBaseTool(name, description, category string, schema map[string]interface{}) *BaseToolImpl {
	return &BaseToolImpl{
		name:        name,
		description: description,
		category:    category,
		inputSchema: schema,
	}
}

// Describe converts a tool into the descriptor sent to a backend
func Describe(tool Tool) ClaudeTool {
	return ClaudeTool{
		Name:        tool.Name(),
		Description: tool.Description(),
		InputSchema: tool.InputSchema(),
	}
}

// ToolResult represents the result of a tool execution
type ToolResult = backend.ToolResult

// ToolUse represents a tool use request from the LLM
type ToolUse = backend.ToolUse

// ClaudeTool represents a tool definition for Claude models
type ClaudeTool = backend.ClaudeTool
