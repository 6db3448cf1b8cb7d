package search

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withNULAt(pos, size int) *bufio.Reader {
	b := []byte(strings.Repeat("a", size))
	b[pos] = 0
	return bufio.NewReaderSize(strings.NewReader(string(b)), 64*1024)
}

func TestLooksBinary(t *testing.T) {
	assert.False(t, looksBinary(bufio.NewReader(strings.NewReader("plain text\n"))))
	assert.False(t, looksBinary(bufio.NewReader(strings.NewReader(""))))
	assert.True(t, looksBinary(bufio.NewReader(strings.NewReader("\x00ELF"))))

	// The whole first 8 KiB is inspected and nothing past it
	assert.True(t, looksBinary(withNULAt(8191, 9000)))
	assert.False(t, looksBinary(withNULAt(8192, 9000)))

	r := withNULAt(10, 20)
	require.True(t, looksBinary(r))
	assert.Equal(t, 20, r.Buffered(), "sniffing does not consume input")
}

func TestSearchInFiles_SkipsBinaryFiles(t *testing.T) {
	writeFiles(t, map[string]string{
		"text.txt":  "needle\n",
		"blob.bin":  strings.Repeat("x", 8000) + "\x00needle\n",
		"later.bin": "needle\n" + strings.Repeat("x", 8300) + "\x00",
	})

	res, err := runSearch(t, SearchInFilesInput{Pattern: "needle", Path: rel(t)})
	require.NoError(t, err)

	paths := resultPaths(res)
	assert.Contains(t, paths, rel(t, "text.txt"))
	assert.NotContains(t, paths, rel(t, "blob.bin"))
	assert.Contains(t, paths, rel(t, "later.bin"), "a NUL past the first 8 KiB does not mark a file binary")
}
