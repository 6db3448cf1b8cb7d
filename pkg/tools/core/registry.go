package core

// ToolRegistrar defines the interface for registering tools
type ToolRegistrar interface {
	// RegisterTool adds a tool to a specific category
	RegisterTool(categoryID string, tool Tool) error
}

// ToolSet is an ordered, fixed list of tool factories.
//
// The list is set at construction and never reordered. Tools() builds
// new instances on every call, so callers own what they get back.
// A ToolSet is safe for concurrent use.
type ToolSet struct {
	factories []ToolFactory
}

// NewToolSet creates a set from factories, in the order given
func NewToolSet(factories ...ToolFactory) *ToolSet {
	fs := make([]ToolFactory, len(factories))
	copy(fs, factories)
	return &ToolSet{factories: fs}
}

// Tools invokes every factory once, in declaration order
func (s *ToolSet) Tools() []Tool {
	tools := make([]Tool, 0, len(s.factories))
	for _, factory := range s.factories {
		tools = append(tools, factory())
	}
	return tools
}

// Factories returns the factories themselves without invoking them
func (s *ToolSet) Factories() []ToolFactory {
	fs := make([]ToolFactory, len(s.factories))
	copy(fs, s.factories)
	return fs
}

// With returns a new set holding s's factories followed by the given ones.
// s is left unchanged.
func (s *ToolSet) With(factories ...ToolFactory) *ToolSet {
	fs := make([]ToolFactory, 0, len(s.factories)+len(factories))
	fs = append(fs, s.factories...)
	fs = append(fs, factories...)
	return &ToolSet{factories: fs}
}

// Len returns the number of factories in the set
func (s *ToolSet) Len() int { return len(s.factories) }
