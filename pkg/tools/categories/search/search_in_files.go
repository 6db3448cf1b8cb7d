package search

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/navicore/searchtools/pkg/tools/core"
	"github.com/navicore/searchtools/pkg/workspace"
)

const (
	defaultMaxFiles      = 1000
	defaultMaxResults    = 200
	defaultMaxLineLength = 500
	maxContextLines      = 10
	maxScanTokenSize     = 1024 * 1024
)

// SearchInFilesInput represents parameters for the search_in_files tool
type SearchInFilesInput struct {
	Pattern       string `json:"pattern"`                   // The pattern to search for
	Path          string `json:"path,omitempty"`            // File or directory to search (defaults to workspace root)
	Include       string `json:"include,omitempty"`         // File pattern to include (e.g., "*.go")
	Exclude       string `json:"exclude,omitempty"`         // File pattern to exclude
	Recursive     *bool  `json:"recursive,omitempty"`       // Whether to search subdirectories (default true)
	IgnoreCase    bool   `json:"ignore_case,omitempty"`     // Case insensitive search
	FixedStrings  bool   `json:"fixed_strings,omitempty"`   // Treat pattern as a literal string
	ContextLines  int    `json:"context_lines,omitempty"`   // Lines of context around each match
	MaxFiles      int    `json:"max_files,omitempty"`       // Maximum number of files to search
	MaxResults    int    `json:"max_results,omitempty"`     // Maximum number of matches to return
	MaxLineLength int    `json:"max_line_length,omitempty"` // Longer lines are clipped
}

// SearchMatch represents a single match in a file
type SearchMatch struct {
	LineNumber int      `json:"line_number"`      // Line number where the match was found
	LineText   string   `json:"line_text"`        // The text of the matched line
	Before     []string `json:"before,omitempty"` // Context lines preceding the match
	After      []string `json:"after,omitempty"`  // Context lines following the match
}

// SearchFileResult represents the matches for a single file
type SearchFileResult struct {
	FilePath string        `json:"file_path"` // Path relative to the workspace root
	Matches  []SearchMatch `json:"matches"`
}

// SearchInFilesResult represents the complete search results
type SearchInFilesResult struct {
	Pattern       string             `json:"pattern"`
	TotalMatches  int                `json:"total_matches"`
	FilesMatched  int                `json:"files_matched"`
	FilesSearched int                `json:"files_searched"`
	Results       []SearchFileResult `json:"results"`
	Error         string             `json:"error,omitempty"`
	Truncated     bool               `json:"truncated,omitempty"`
}

// SearchInFilesTool searches file contents for a regular expression
type SearchInFilesTool struct {
	core.BaseToolImpl
}

// NewSearchInFilesTool creates a new search_in_files tool
func NewSearchInFilesTool() core.Tool {
	tool := &SearchInFilesTool{}
	tool.BaseToolImpl = *core.NewBaseTool(
		"search_in_files",
		"Search file contents in the workspace for a regular expression and return matching lines with their line numbers",
		CategoryID,
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"pattern": map[string]interface{}{
					"type":        "string",
					"description": "Regular expression (RE2 syntax) to search for",
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "File or directory to search, relative to the workspace root (defaults to the root)",
				},
				"include": map[string]interface{}{
					"type":        "string",
					"description": "Only search files whose name matches this glob (e.g., '*.go')",
				},
				"exclude": map[string]interface{}{
					"type":        "string",
					"description": "Skip files whose name matches this glob",
				},
				"recursive": map[string]interface{}{
					"type":        "boolean",
					"description": "Whether to search subdirectories (default true)",
				},
				"ignore_case": map[string]interface{}{
					"type":        "boolean",
					"description": "Case insensitive search",
				},
				"fixed_strings": map[string]interface{}{
					"type":        "boolean",
					"description": "Treat the pattern as a literal string instead of a regular expression",
				},
				"context_lines": map[string]interface{}{
					"type":        "integer",
					"description": "Number of lines of context to include before and after each match (max 10)",
				},
				"max_files": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of files to search (default 1000)",
				},
				"max_results": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of matches to return (default 200)",
				},
				"max_line_length": map[string]interface{}{
					"type":        "integer",
					"description": "Clip matched and context lines to this many characters (default 500)",
				},
			},
			"required": []string{"pattern"},
		},
	)
	return tool
}

// Execute implements the Tool interface
func (t *SearchInFilesTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params SearchInFilesInput
	if err := json.Unmarshal(input, &params); err != nil {
		return SearchInFilesResult{
			Error: fmt.Sprintf("Invalid input: %v", err),
		}, fmt.Errorf("invalid input for search_in_files tool: %w", err)
	}

	if params.Pattern == "" {
		return SearchInFilesResult{
			Error: "Pattern is required",
		}, fmt.Errorf("pattern is required")
	}

	applySearchDefaults(&params)

	pattern, err := compilePattern(params)
	if err != nil {
		return SearchInFilesResult{
			Pattern: params.Pattern,
			Error:   fmt.Sprintf("Invalid pattern: %v", err),
		}, fmt.Errorf("invalid pattern: %w", err)
	}

	if err := validateGlob(params.Include); err != nil {
		return SearchInFilesResult{
			Pattern: params.Pattern,
			Error:   fmt.Sprintf("Invalid include pattern: %v", err),
		}, fmt.Errorf("invalid include pattern: %w", err)
	}
	if err := validateGlob(params.Exclude); err != nil {
		return SearchInFilesResult{
			Pattern: params.Pattern,
			Error:   fmt.Sprintf("Invalid exclude pattern: %v", err),
		}, fmt.Errorf("invalid exclude pattern: %w", err)
	}

	result := SearchInFilesResult{
		Pattern: params.Pattern,
		Results: []SearchFileResult{},
	}

	root, err := workspace.Root()
	if err != nil {
		result.Error = fmt.Sprintf("Search failed: %v", err)
		return result, fmt.Errorf("search failed: %w", err)
	}
	target, err := workspace.ResolveIn(root, params.Path)
	if err != nil {
		result.Error = fmt.Sprintf("Search failed: %v", err)
		return result, fmt.Errorf("search failed: %w", err)
	}

	files, truncated, err := collectFiles(ctx, target, params)
	if err != nil {
		result.Error = fmt.Sprintf("Search failed: %v", err)
		return result, fmt.Errorf("search failed: %w", err)
	}
	result.FilesSearched = len(files)
	result.Truncated = truncated

	perFile, err := scanFiles(ctx, files, pattern, params)
	if err != nil {
		result.Error = fmt.Sprintf("Search failed: %v", err)
		return result, fmt.Errorf("search failed: %w", err)
	}

	for i, matches := range perFile {
		if len(matches) == 0 {
			continue
		}
		remaining := params.MaxResults - result.TotalMatches
		if remaining <= 0 {
			result.Truncated = true
			break
		}
		if len(matches) > remaining {
			matches = matches[:remaining]
			result.Truncated = true
		}
		result.FilesMatched++
		result.TotalMatches += len(matches)
		result.Results = append(result.Results, SearchFileResult{
			FilePath: workspace.Rel(root, files[i]),
			Matches:  matches,
		})
	}

	return result, nil
}

func applySearchDefaults(params *SearchInFilesInput) {
	if params.Recursive == nil {
		recursive := true
		params.Recursive = &recursive
	}
	if params.MaxFiles <= 0 {
		params.MaxFiles = defaultMaxFiles
	}
	if params.MaxResults <= 0 {
		params.MaxResults = defaultMaxResults
	}
	if params.MaxLineLength <= 0 {
		params.MaxLineLength = defaultMaxLineLength
	}
	if params.ContextLines < 0 {
		params.ContextLines = 0
	}
	if params.ContextLines > maxContextLines {
		params.ContextLines = maxContextLines
	}
}

func compilePattern(params SearchInFilesInput) (*regexp.Regexp, error) {
	expr := params.Pattern
	if params.FixedStrings {
		expr = regexp.QuoteMeta(expr)
	}
	if params.IgnoreCase {
		expr = "(?i)" + expr
	}
	return regexp.Compile(expr)
}

func validateGlob(pattern string) error {
	if pattern == "" {
		return nil
	}
	_, err := filepath.Match(pattern, "")
	return err
}

// collectFiles lists candidate files under target in lexical order.
// The bool result reports whether max_files cut the list short.
func collectFiles(ctx context.Context, target string, params SearchInFilesInput) ([]string, bool, error) {
	fi, err := os.Stat(target)
	if err != nil {
		return nil, false, err
	}
	if !fi.IsDir() {
		return []string{target}, false, nil
	}

	var files []string
	truncated := false
	err = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// Skip entries we cannot access
		if err != nil {
			if d != nil && d.IsDir() && path != target {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path == target {
				return nil
			}
			if isIgnoredDir(d.Name()) || !*params.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if params.Include != "" {
			if matched, _ := filepath.Match(params.Include, d.Name()); !matched {
				return nil
			}
		}
		if params.Exclude != "" {
			if matched, _ := filepath.Match(params.Exclude, d.Name()); matched {
				return nil
			}
		}

		if len(files) >= params.MaxFiles {
			truncated = true
			return filepath.SkipAll
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return files, truncated, nil
}

// scanFiles searches files concurrently. The returned slice is indexed
// like files so callers can merge in walk order.
func scanFiles(ctx context.Context, files []string, pattern *regexp.Regexp, params SearchInFilesInput) ([][]SearchMatch, error) {
	perFile := make([][]SearchMatch, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, file := range files {
		g.Go(func() error {
			matches, err := searchInFile(gctx, file, pattern, params)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return nil // Skip unreadable files
			}
			perFile[i] = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return perFile, nil
}

// searchInFile searches for the pattern in a single file, stopping after
// max_results+1 matches so the caller can tell when output was cut.
func searchInFile(ctx context.Context, filePath string, pattern *regexp.Regexp, params SearchInFilesInput) ([]SearchMatch, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := bufio.NewReaderSize(file, 64*1024)
	if looksBinary(reader) {
		return nil, nil
	}

	limit := params.MaxResults + 1
	contextLines := params.ContextLines

	var (
		matches []SearchMatch
		before  []string
		pending []int // indexes of matches still collecting after-context
	)
	lineNum := 0
	buf := make([]byte, 0, 4096)
	for {
		raw, readErr := readLine(reader, buf[:0])
		if readErr != nil && readErr != io.EOF {
			return nil, readErr
		}
		if readErr == io.EOF && len(raw) == 0 {
			break
		}
		buf = raw

		lineNum++
		if lineNum%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		text := string(raw)
		line := clipLine(text, params.MaxLineLength)

		if len(pending) > 0 {
			kept := pending[:0]
			for _, idx := range pending {
				matches[idx].After = append(matches[idx].After, line)
				if len(matches[idx].After) < contextLines {
					kept = append(kept, idx)
				}
			}
			pending = kept
		}

		if len(matches) < limit && pattern.MatchString(text) {
			m := SearchMatch{LineNumber: lineNum, LineText: line}
			if contextLines > 0 {
				m.Before = append([]string(nil), before...)
				pending = append(pending, len(matches))
			}
			matches = append(matches, m)
		}

		if contextLines > 0 {
			before = append(before, line)
			if len(before) > contextLines {
				before = before[1:]
			}
		}

		if len(matches) >= limit && len(pending) == 0 {
			break
		}
		if readErr == io.EOF {
			break
		}
	}

	return matches, nil
}

// readLine reads one line into buf without its line ending. Only the first
// maxScanTokenSize bytes of a longer line are kept; the rest is discarded
// so the next call starts on the following line. io.EOF is returned with
// the final line when the file does not end in a newline.
func readLine(r *bufio.Reader, buf []byte) ([]byte, error) {
	for {
		chunk, err := r.ReadSlice('\n')
		if room := maxScanTokenSize - len(buf); room > 0 {
			if len(chunk) > room {
				chunk = chunk[:room]
			}
			buf = append(buf, chunk...)
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		buf = bytes.TrimSuffix(buf, []byte("\n"))
		buf = bytes.TrimSuffix(buf, []byte("\r"))
		return buf, err
	}
}
