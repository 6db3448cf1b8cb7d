package search

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// ignoredDirs are never descended into
var ignoredDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
}

// binarySniffLen is how much of a file is inspected for NUL bytes (8 KiB)
const binarySniffLen = 8 << 10

func isIgnoredDir(name string) bool {
	return ignoredDirs[name]
}

func isHidden(name string) bool {
	return len(name) > 1 && strings.HasPrefix(name, ".")
}

// looksBinary reports whether the buffered reader starts with a NUL byte
// within the first binarySniffLen bytes. The reader is not advanced.
func looksBinary(r *bufio.Reader) bool {
	head, err := r.Peek(binarySniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return false
	}
	return bytes.IndexByte(head, 0) >= 0
}

// clipLine shortens s to at most n runes, marking the cut with an ellipsis
func clipLine(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
