package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/navicore/searchtools/pkg/tools/core"
	"github.com/navicore/searchtools/pkg/workspace"
)

const defaultFindMaxResults = 500

// FindFilesInput represents parameters for the find_files tool
type FindFilesInput struct {
	Path          string `json:"path,omitempty"`           // Directory to search in (defaults to workspace root)
	Name          string `json:"name,omitempty"`           // Glob on the base name (e.g., "*.go")
	Pattern       string `json:"pattern,omitempty"`        // Glob on the relative path, "**" allowed
	Type          string `json:"type,omitempty"`           // "f" for files, "d" for directories
	MaxDepth      int    `json:"max_depth,omitempty"`      // Maximum depth below path, 0 for unlimited
	Size          string `json:"size,omitempty"`           // Size (e.g., "+1k" for > 1KiB)
	Mtime         string `json:"mtime,omitempty"`          // Modified time in days (e.g., "-1" for the last day)
	IncludeHidden bool   `json:"include_hidden,omitempty"` // Descend into dot files and directories
	MaxResults    int    `json:"max_results,omitempty"`    // Maximum number of entries to return
}

// FileMatch describes one entry found by find_files
type FileMatch struct {
	Path    string    `json:"path"` // Path relative to the workspace root
	IsDir   bool      `json:"is_dir"`
	Size    int64     `json:"size,omitempty"`
	ModTime time.Time `json:"mod_time"`
}

// FindFilesResult represents the complete find_files output
type FindFilesResult struct {
	Directory string      `json:"directory"`
	Total     int         `json:"total"` // Entries matched, including any beyond max_results
	Truncated bool        `json:"truncated,omitempty"`
	Files     []FileMatch `json:"files"`
	Error     string      `json:"error,omitempty"`
}

// FindFilesTool finds files and directories by name, path glob, type,
// size and modification time
type FindFilesTool struct {
	core.BaseToolImpl
	now func() time.Time
}

// NewFindFilesTool creates a new find_files tool
func NewFindFilesTool() core.Tool {
	tool := &FindFilesTool{now: time.Now}
	tool.BaseToolImpl = *core.NewBaseTool(
		"find_files",
		"Find files and directories in the workspace by name, path glob, type, size or modification time",
		CategoryID,
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Directory to search in, relative to the workspace root (defaults to the root)",
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "File name pattern to match against the base name (e.g., '*.go')",
				},
				"pattern": map[string]interface{}{
					"type":        "string",
					"description": "Glob matched against the path relative to the search directory; '**' matches any number of directories (e.g., 'src/**/*_test.go')",
				},
				"type": map[string]interface{}{
					"type":        "string",
					"description": "Type of entry to find ('f' for regular files, 'd' for directories)",
					"enum":        []string{"f", "d"},
				},
				"max_depth": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum depth to descend below path (0 for unlimited)",
				},
				"size": map[string]interface{}{
					"type":        "string",
					"description": "File size filter: '+1k' larger than 1KiB, '-10M' smaller than 10MiB, '100' exactly 100 bytes",
				},
				"mtime": map[string]interface{}{
					"type":        "string",
					"description": "Modification time in days: '-7' within the last 7 days, '+30' more than 30 days ago",
				},
				"include_hidden": map[string]interface{}{
					"type":        "boolean",
					"description": "Include hidden files and directories (names starting with '.')",
				},
				"max_results": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of entries to return (default 500)",
				},
			},
		},
	)
	return tool
}

// Execute implements the Tool interface
func (t *FindFilesTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params FindFilesInput
	if err := json.Unmarshal(input, &params); err != nil {
		return FindFilesResult{
			Error: fmt.Sprintf("Invalid input: %v", err),
		}, fmt.Errorf("invalid input for find_files tool: %w", err)
	}

	if params.MaxResults <= 0 {
		params.MaxResults = defaultFindMaxResults
	}

	filter, err := t.newFindFilter(params)
	if err != nil {
		return FindFilesResult{
			Error: fmt.Sprintf("Invalid input: %v", err),
		}, fmt.Errorf("invalid input for find_files tool: %w", err)
	}

	root, err := workspace.Root()
	if err != nil {
		return FindFilesResult{Error: fmt.Sprintf("Find failed: %v", err)}, fmt.Errorf("find failed: %w", err)
	}
	dir, err := workspace.ResolveDir(root, params.Path)
	if err != nil {
		return FindFilesResult{Error: fmt.Sprintf("Find failed: %v", err)}, fmt.Errorf("find failed: %w", err)
	}

	result := FindFilesResult{
		Directory: workspace.Rel(root, dir),
		Files:     []FileMatch{},
	}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path == dir {
			return err
		}
		// Skip entries we cannot access
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() && isIgnoredDir(d.Name()) {
			return filepath.SkipDir
		}
		if !params.IncludeHidden && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel := workspace.Rel(dir, path)
		depth := strings.Count(rel, "/") + 1

		if filter.matches(rel, d) {
			if info, err := d.Info(); err == nil && filter.matchesInfo(info) {
				result.Total++
				if len(result.Files) < params.MaxResults {
					match := FileMatch{
						Path:    workspace.Rel(root, path),
						IsDir:   d.IsDir(),
						ModTime: info.ModTime().UTC(),
					}
					if !d.IsDir() {
						match.Size = info.Size()
					}
					result.Files = append(result.Files, match)
				} else {
					result.Truncated = true
				}
			}
		}

		if d.IsDir() && params.MaxDepth > 0 && depth >= params.MaxDepth {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		result.Error = fmt.Sprintf("Find failed: %v", err)
		return result, fmt.Errorf("find failed: %w", err)
	}

	return result, nil
}

// findFilter holds the parsed, validated matching criteria
type findFilter struct {
	name    string
	pattern string
	typ     string
	size    *numericFilter
	mtime   *numericFilter
	now     time.Time
}

// numericFilter compares a value against a bound: '+' greater, '-' less, '=' equal
type numericFilter struct {
	op    byte
	value int64
}

func (f *numericFilter) accept(v int64) bool {
	switch f.op {
	case '+':
		return v > f.value
	case '-':
		return v < f.value
	default:
		return v == f.value
	}
}

func (t *FindFilesTool) newFindFilter(params FindFilesInput) (*findFilter, error) {
	f := &findFilter{
		name:    params.Name,
		pattern: params.Pattern,
		typ:     params.Type,
		now:     t.now(),
	}

	switch params.Type {
	case "", "f", "d":
	default:
		return nil, fmt.Errorf("type must be 'f' or 'd', got %q", params.Type)
	}
	if params.MaxDepth < 0 {
		return nil, fmt.Errorf("max_depth must not be negative")
	}
	if err := validateGlob(params.Name); err != nil {
		return nil, fmt.Errorf("invalid name pattern: %w", err)
	}
	if params.Pattern != "" && !doublestar.ValidatePattern(params.Pattern) {
		return nil, fmt.Errorf("invalid path pattern %q", params.Pattern)
	}

	if params.Size != "" {
		size, err := parseSize(params.Size)
		if err != nil {
			return nil, err
		}
		f.size = size
	}
	if params.Mtime != "" {
		mtime, err := parseDays(params.Mtime)
		if err != nil {
			return nil, err
		}
		f.mtime = mtime
	}
	return f, nil
}

// matches applies the criteria that need only the directory entry
func (f *findFilter) matches(rel string, d fs.DirEntry) bool {
	switch f.typ {
	case "f":
		if !d.Type().IsRegular() {
			return false
		}
	case "d":
		if !d.IsDir() {
			return false
		}
	}
	if f.name != "" {
		if ok, _ := filepath.Match(f.name, d.Name()); !ok {
			return false
		}
	}
	if f.pattern != "" {
		if ok, _ := doublestar.Match(f.pattern, rel); !ok {
			return false
		}
	}
	return true
}

// matchesInfo applies the size and age criteria
func (f *findFilter) matchesInfo(info fs.FileInfo) bool {
	if f.size != nil {
		if info.IsDir() || !f.size.accept(info.Size()) {
			return false
		}
	}
	if f.mtime != nil {
		age := f.now.Sub(info.ModTime())
		days := int64(age / (24 * time.Hour))
		if f.mtime.op == '-' {
			// "-N" means modified less than N days ago
			return age < time.Duration(f.mtime.value)*24*time.Hour
		}
		return f.mtime.accept(days)
	}
	return true
}

var sizeUnits = map[byte]int64{
	'c': 1,
	'b': 1,
	'k': 1 << 10,
	'K': 1 << 10,
	'M': 1 << 20,
	'G': 1 << 30,
}

// parseSize parses "+1k", "-10M", "512" into a byte filter
func parseSize(s string) (*numericFilter, error) {
	op, rest := splitSign(s)
	if rest == "" {
		return nil, fmt.Errorf("invalid size %q", s)
	}
	mult := int64(1)
	if unit, ok := sizeUnits[rest[len(rest)-1]]; ok {
		mult = unit
		rest = rest[:len(rest)-1]
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("invalid size %q", s)
	}
	if n > math.MaxInt64/mult {
		return nil, fmt.Errorf("size %q is too large", s)
	}
	return &numericFilter{op: op, value: n * mult}, nil
}

// parseDays parses "+30", "-7", "3" into a day-count filter
func parseDays(s string) (*numericFilter, error) {
	op, rest := splitSign(s)
	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("invalid mtime %q", s)
	}
	return &numericFilter{op: op, value: n}, nil
}

func splitSign(s string) (byte, string) {
	s = strings.TrimSpace(s)
	if s != "" && (s[0] == '+' || s[0] == '-') {
		return s[0], s[1:]
	}
	return '=', s
}
