package tools

import (
	"fmt"

	"go.uber.org/zap"
)

// InitializeTools registers all tools with the registry
func InitializeTools(registry *Registry) error {
	if err := registerSearchTools(registry); err != nil {
		return fmt.Errorf("failed to register search tools: %w", err)
	}

	return nil
}

// Initialize creates a fully initialized tool manager with all tools registered
func Initialize(logger *zap.Logger) (*ToolManager, error) {
	manager := NewToolManager(logger)

	if err := InitializeTools(manager.registry); err != nil {
		return nil, fmt.Errorf("failed to initialize tools: %w", err)
	}

	return manager, nil
}
