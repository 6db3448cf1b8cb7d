package tools

import (
	"github.com/navicore/searchtools/pkg/tools/categories/search"
)

// registerSearchTools registers search_in_files and find_files
func registerSearchTools(registry *Registry) error {
	return search.Register(registry)
}
