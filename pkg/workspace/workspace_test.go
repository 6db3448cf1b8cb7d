package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoot(t *testing.T) string {
	t.Helper()
	root, err := NormalizeRoot(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "pkg"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main.go"), []byte("package main\n"), 0644))
	return root
}

func TestResolveIn(t *testing.T) {
	root := newRoot(t)

	t.Run("EmptyIsRoot", func(t *testing.T) {
		got, err := ResolveIn(root, "")
		require.NoError(t, err)
		assert.Equal(t, root, got)
	})

	t.Run("Relative", func(t *testing.T) {
		got, err := ResolveIn(root, "src/main.go")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "src", "main.go"), got)
	})

	t.Run("AbsoluteInside", func(t *testing.T) {
		got, err := ResolveIn(root, filepath.Join(root, "src"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "src"), got)
	})

	t.Run("ParentTraversal", func(t *testing.T) {
		_, err := ResolveIn(root, "..")
		var pe *PathError
		require.True(t, errors.As(err, &pe), "got %v", err)
		assert.Equal(t, ErrCodeOutsideRoot, pe.Code)
	})

	t.Run("MissingOutsideRoot", func(t *testing.T) {
		for _, p := range []string{
			"../definitely-not-here",
			"../../../../../../../../definitely-not-here",
			filepath.Join(filepath.Dir(root), "definitely-not-here"),
		} {
			_, err := ResolveIn(root, p)
			var pe *PathError
			require.True(t, errors.As(err, &pe), "%s: got %v", p, err)
			assert.Equal(t, ErrCodeOutsideRoot, pe.Code, p)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := ResolveIn(root, "nope")
		var pe *PathError
		require.True(t, errors.As(err, &pe), "got %v", err)
		assert.Equal(t, ErrCodeNotFound, pe.Code)
	})
}

func TestResolveIn_SymlinkEscape(t *testing.T) {
	root := newRoot(t)
	outside := t.TempDir()

	link := filepath.Join(root, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, err := ResolveIn(root, "escape")
	var pe *PathError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, ErrCodeOutsideRoot, pe.Code)
}

func TestResolveDir(t *testing.T) {
	root := newRoot(t)

	_, err := ResolveDir(root, "src")
	require.NoError(t, err)

	_, err = ResolveDir(root, "src/main.go")
	var pe *PathError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ErrCodeNotADir, pe.Code)
}

func TestWithinAndRel(t *testing.T) {
	root := filepath.FromSlash("/work/repo")

	assert.True(t, Within(root, root))
	assert.True(t, Within(root, filepath.Join(root, "a", "b")))
	assert.False(t, Within(root, filepath.FromSlash("/work/repo-other")))
	assert.False(t, Within(root, filepath.FromSlash("/work")))

	assert.Equal(t, ".", Rel(root, root))
	assert.Equal(t, "a/b", Rel(root, filepath.Join(root, "a", "b")))
}

func TestPathError_JSON(t *testing.T) {
	err := &PathError{Code: ErrCodeNotFound, Message: "gone"}
	assert.JSONEq(t, `{"code":"ERR_NOT_FOUND","message":"gone"}`, err.Error())
}
