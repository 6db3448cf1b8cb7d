// Package workspace resolves tool-supplied paths against the workspace root
// and keeps them from escaping it.
package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// RootEnv names the environment variable holding the workspace root.
const RootEnv = "SEARCHTOOLS_ROOT"

// Error codes reported in PathError
const (
	ErrCodeOutsideRoot = "ERR_PATH_OUTSIDE_ROOT"
	ErrCodeNotFound    = "ERR_NOT_FOUND"
	ErrCodeNotADir     = "ERR_NOT_A_DIR"
)

// PathError is a machine-readable path policy violation.
type PathError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error returns a compact single-line JSON body so tool results stay small.
func (e *PathError) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

var (
	rootOnce sync.Once
	rootPath string
	rootErr  error
)

// Root returns the absolute workspace root, reading SEARCHTOOLS_ROOT once
// and falling back to the working directory.
func Root() (string, error) {
	rootOnce.Do(func() {
		rootPath, rootErr = NormalizeRoot(os.Getenv(RootEnv))
	})
	return rootPath, rootErr
}

// NormalizeRoot makes root absolute and resolves symlinks where possible.
// An empty root means the current working directory.
func NormalizeRoot(root string) (string, error) {
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		root = cwd
	}

	root, err := expandHome(root)
	if err != nil {
		return "", err
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("abs(%s): %w", root, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return abs, nil
}

// ResolveIn maps p onto an absolute path inside root. Relative paths are
// joined to root; absolute paths and ~ are accepted when they land inside
// root after symlink resolution.
func ResolveIn(root, p string) (string, error) {
	p, err := expandHome(p)
	if err != nil {
		return "", err
	}

	candidate := p
	if candidate == "" {
		candidate = root
	} else if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(root, candidate)
	}
	candidate = filepath.Clean(candidate)

	// Outside paths get the same error whether or not they exist. Aliases
	// of root through symlinks are settled after EvalSymlinks.
	lexicallyInside := Within(root, candidate)

	if _, err := os.Lstat(candidate); err != nil {
		if !lexicallyInside {
			return "", outsideRoot()
		}
		if os.IsNotExist(err) {
			return "", &PathError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path %s does not exist", p)}
		}
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		candidate = resolved
	}

	if !Within(root, candidate) {
		return "", outsideRoot()
	}
	return candidate, nil
}

func outsideRoot() *PathError {
	return &PathError{Code: ErrCodeOutsideRoot, Message: "requested path resolves outside the workspace root"}
}

// ResolveDir is ResolveIn for paths that must be directories.
func ResolveDir(root, p string) (string, error) {
	abs, err := ResolveIn(root, p)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !fi.IsDir() {
		return "", &PathError{Code: ErrCodeNotADir, Message: fmt.Sprintf("path %s is not a directory", p)}
	}
	return abs, nil
}

// Within reports whether target is root or lies beneath it.
func Within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// Rel returns target relative to root with forward slashes, "." for root.
func Rel(root, target string) string {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
