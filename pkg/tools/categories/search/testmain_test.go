package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/navicore/searchtools/pkg/workspace"
)

// sharedDir is the workspace root for every test in this package
var sharedDir string

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "search-tools-tests-")
	if err != nil {
		panic(err)
	}
	// Set once so workspace caches the same root for all tests
	_ = os.Setenv(workspace.RootEnv, dir)
	sharedDir, err = workspace.NormalizeRoot(dir)
	if err != nil {
		panic(err)
	}

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// rel builds a per-test path relative to the workspace root
func rel(t *testing.T, elems ...string) string {
	return filepath.ToSlash(filepath.Join(append([]string{t.Name()}, elems...)...))
}

// writeFiles creates files (relative to the per-test dir) with the given content
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(sharedDir, filepath.FromSlash(rel(t)))
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	require.NoError(t, os.MkdirAll(dir, 0755))
	return dir
}
