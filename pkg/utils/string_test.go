package utils_test

import (
	"strings"
	"testing"

	"github.com/robalyx/sentinel/pkg/utils"
	"github.com/stretchr/testify/assert"
)

func TestCompressAllWhitespace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "already compact", input: "hello world", expected: "hello world"},
		{name: "mixed whitespace", input: "  hello \t\n  world  ", expected: "hello world"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, utils.CompressAllWhitespace(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		limit    int
		expected string
	}{
		{name: "fits", input: "short", limit: 10, expected: "short"},
		{name: "exact length", input: "exact", limit: 5, expected: "exact"},
		{name: "cut with ellipsis", input: "hello world", limit: 8, expected: "hello..."},
		{name: "tiny limit", input: "hello", limit: 2, expected: "he"},
		{name: "multibyte runes", input: "ééééé", limit: 4, expected: "é..."},
		{name: "zero limit", input: "hello", limit: 0, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, utils.Truncate(tt.input, tt.limit))
		})
	}
}

func TestChunkLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		lines    []string
		limit    int
		expected []string
	}{
		{
			name:     "no lines",
			lines:    nil,
			limit:    10,
			expected: nil,
		},
		{
			name:     "single chunk",
			lines:    []string{"a", "b", "c"},
			limit:    10,
			expected: []string{"a\nb\nc"},
		},
		{
			name:     "splits at boundary",
			lines:    []string{"aaaa", "bbbb", "cccc"},
			limit:    9,
			expected: []string{"aaaa\nbbbb", "cccc"},
		},
		{
			name:     "long line truncated",
			lines:    []string{strings.Repeat("x", 20), "y"},
			limit:    10,
			expected: []string{"xxxxxxx...", "y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			chunks := utils.ChunkLines(tt.lines, tt.limit)
			assert.Equal(t, tt.expected, chunks)
			for _, chunk := range chunks {
				assert.LessOrEqual(t, len([]rune(chunk)), tt.limit)
			}
		})
	}
}
