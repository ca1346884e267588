package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MultipleSpaces matches any sequence of whitespace (including newlines).
var MultipleSpaces = regexp.MustCompile(`\s+`)

// CompressAllWhitespace replaces all whitespace sequences (including newlines) with a single space.
func CompressAllWhitespace(s string) string {
	return strings.TrimSpace(MultipleSpaces.ReplaceAllString(s, " "))
}

// Truncate shortens s to at most limit runes, replacing the tail with "..."
// when it had to cut.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)
	if limit <= 3 {
		return string(runes[:limit])
	}

	return string(runes[:limit-3]) + "..."
}

// ChunkLines groups lines into newline-joined chunks of at most limit runes.
// A single line longer than limit is truncated to fit its own chunk.
func ChunkLines(lines []string, limit int) []string {
	var (
		chunks  []string
		current strings.Builder
		size    int
	)

	for _, line := range lines {
		line = Truncate(line, limit)
		lineSize := utf8.RuneCountInString(line)

		if size > 0 && size+1+lineSize > limit {
			chunks = append(chunks, current.String())
			current.Reset()
			size = 0
		}

		if size > 0 {
			current.WriteByte('\n')
			size++
		}
		current.WriteString(line)
		size += lineSize
	}

	if size > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}
