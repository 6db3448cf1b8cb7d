package tools

import (
	"errors"
	"fmt"
	"sync"

	"github.com/navicore/searchtools/pkg/backend"
	"github.com/navicore/searchtools/pkg/tools/categories/search"
	"github.com/navicore/searchtools/pkg/tools/core"
)

// Registry and manager errors
var (
	ErrToolNotFound      = errors.New("tool not found")
	ErrToolsDisabled     = errors.New("tool use is disabled")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrDuplicateCategory = errors.New("category already exists")
	ErrDuplicateTool     = errors.New("tool already registered")
)

// Category represents a group of related tools
type Category struct {
	ID          string
	Name        string
	Description string
	Enabled     bool
	Permission  core.PermissionLevel
	Tools       []core.Tool
}

// Registry manages all tool categories and their tools.
// Categories and tools keep their registration order.
// It implements the core.ToolRegistrar interface
type Registry struct {
	mu         sync.RWMutex
	categories map[string]*Category
	order      []string
	byName     map[string]string // tool name -> category ID
}

// NewRegistry creates a new tool registry holding the default categories
func NewRegistry() *Registry {
	r := &Registry{
		categories: make(map[string]*Category),
		byName:     make(map[string]string),
	}

	// Register default categories
	_ = r.RegisterCategory(&Category{
		ID:          search.CategoryID,
		Name:        "Search Tools",
		Description: "Tools for searching file names and contents in the workspace",
		Enabled:     true,
		Permission:  core.PermissionReadOnly,
	})

	return r
}

// RegisterCategory adds a new category to the registry. Tools supplied in
// cat.Tools go through the same name check as RegisterTool; on any error
// the registry is left unchanged.
func (r *Registry) RegisterCategory(cat *Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.categories[cat.ID]; exists {
		return fmt.Errorf("category %s: %w", cat.ID, ErrDuplicateCategory)
	}

	seen := make(map[string]bool, len(cat.Tools))
	for _, tool := range cat.Tools {
		name := tool.Name()
		if owner, exists := r.byName[name]; exists {
			return fmt.Errorf("tool %s in category %s: %w", name, owner, ErrDuplicateTool)
		}
		if seen[name] {
			return fmt.Errorf("tool %s in category %s: %w", name, cat.ID, ErrDuplicateTool)
		}
		seen[name] = true
	}

	tools := cat.Tools
	cat.Tools = nil
	r.categories[cat.ID] = cat
	r.order = append(r.order, cat.ID)
	for _, tool := range tools {
		cat.Tools = append(cat.Tools, tool)
		r.byName[tool.Name()] = cat.ID
	}
	return nil
}

// RegisterTool adds a tool to a specific category. Tool names are unique
// across the whole registry.
func (r *Registry) RegisterTool(categoryID string, tool core.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cat, exists := r.categories[categoryID]
	if !exists {
		return fmt.Errorf("category %s: %w", categoryID, ErrCategoryNotFound)
	}
	return r.addToolLocked(cat, tool)
}

func (r *Registry) addToolLocked(cat *Category, tool core.Tool) error {
	if owner, exists := r.byName[tool.Name()]; exists {
		return fmt.Errorf("tool %s in category %s: %w", tool.Name(), owner, ErrDuplicateTool)
	}
	cat.Tools = append(cat.Tools, tool)
	r.byName[tool.Name()] = cat.ID
	return nil
}

// GetEnabledTools returns descriptors for all tools in enabled categories
func (r *Registry) GetEnabledTools() []backend.ClaudeTool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []backend.ClaudeTool
	for _, id := range r.order {
		cat := r.categories[id]
		if !cat.Enabled {
			continue
		}
		for _, tool := range cat.Tools {
			result = append(result, core.Describe(tool))
		}
	}
	return result
}

// GetTool finds a tool by name among enabled categories
func (r *Registry) GetTool(name string) (core.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id, ok := r.byName[name]; ok {
		cat := r.categories[id]
		if cat.Enabled {
			for _, tool := range cat.Tools {
				if tool.Name() == name {
					return tool, nil
				}
			}
		}
	}
	return nil, fmt.Errorf("tool %s not found or not enabled: %w", name, ErrToolNotFound)
}

// SetCategoryEnabled enables or disables an entire category
func (r *Registry) SetCategoryEnabled(categoryID string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cat, exists := r.categories[categoryID]
	if !exists {
		return fmt.Errorf("category %s: %w", categoryID, ErrCategoryNotFound)
	}

	cat.Enabled = enabled
	return nil
}

// SetAllCategoriesEnabled enables or disables all categories
func (r *Registry) SetAllCategoriesEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cat := range r.categories {
		cat.Enabled = enabled
	}
}

// Categories returns a snapshot of every category in registration order
func (r *Registry) Categories() []Category {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Category, 0, len(r.order))
	for _, id := range r.order {
		cat := *r.categories[id]
		cat.Tools = append([]core.Tool(nil), cat.Tools...)
		out = append(out, cat)
	}
	return out
}
