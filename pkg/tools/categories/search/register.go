// Package search provides the file search tools offered to the model:
// search_in_files (content search) and find_files (name/path search).
package search

import (
	"github.com/navicore/searchtools/pkg/tools/core"
)

// CategoryID is the registry category the search tools belong to
const CategoryID = "search"

// toolset lists the search tool constructors in the order they are offered.
var toolset = core.NewToolSet(
	NewSearchInFilesTool,
	NewFindFilesTool,
)

// AllTools returns a fresh instance of every search tool
func AllTools() []core.Tool {
	return toolset.Tools()
}

// Registrations returns the search tool factories without invoking them,
// for callers that construct tools lazily
func Registrations() []core.ToolFactory {
	return toolset.Factories()
}

// Register registers all search tools with the registry
func Register(registry core.ToolRegistrar) error {
	for _, tool := range toolset.Tools() {
		if err := registry.RegisterTool(CategoryID, tool); err != nil {
			return err
		}
	}
	return nil
}
