package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// lineRing keeps the most recent lines written to a log file.
type lineRing struct {
	lines []string
	next  int
	count int
	// written counts lines since the last compaction.
	written int
}

func newLineRing(capacity int) *lineRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &lineRing{lines: make([]string, capacity)}
}

func (r *lineRing) push(line string) {
	r.lines[r.next] = line
	r.next = (r.next + 1) % len(r.lines)
	if r.count < len(r.lines) {
		r.count++
	}
	r.written++
}

// ordered returns the retained lines oldest first.
func (r *lineRing) ordered() []string {
	out := make([]string, 0, r.count)
	start := (r.next - r.count + len(r.lines)) % len(r.lines)
	for i := range r.count {
		out = append(out, r.lines[(start+i)%len(r.lines)])
	}
	return out
}

// LogRotator wraps a log file and keeps it at roughly maxLines lines. The
// file is compacted down to the newest maxLines once twice that many lines
// have been written.
type LogRotator struct {
	writer   io.Writer
	ring     *lineRing
	filePath string
	mu       sync.Mutex
}

// NewLogRotator creates a new LogRotator. A non-positive maxLines disables compaction.
func NewLogRotator(writer io.Writer, maxLines int, filePath string) *LogRotator {
	var ring *lineRing
	if maxLines > 0 {
		ring = newLineRing(maxLines)
	}

	return &LogRotator{
		writer:   writer,
		ring:     ring,
		filePath: filePath,
	}
}

// Write implements io.Writer.
func (w *LogRotator) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.writer.Write(p)
	if err != nil || w.ring == nil {
		return n, err
	}

	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}

		w.ring.push(line)

		if w.ring.written >= 2*len(w.ring.lines) {
			if err := w.compact(); err != nil {
				return n, fmt.Errorf("failed to rotate log file: %w", err)
			}
			w.ring.written = w.ring.count
		}
	}

	return n, nil
}

// compact replaces the file with the retained lines and reopens it for appending.
func (w *LogRotator) compact() error {
	lines := w.ring.ordered()
	if len(lines) == 0 {
		return nil
	}

	temp, err := os.CreateTemp(filepath.Dir(w.filePath), "temp-log-")
	if err != nil {
		return err
	}
	tempPath := temp.Name()

	_, err = temp.WriteString(strings.Join(lines, "\n") + "\n")
	if err == nil {
		err = temp.Sync()
	}
	temp.Close()
	if err != nil {
		os.Remove(tempPath)
		return err
	}

	if closer, ok := w.writer.(io.Closer); ok {
		closer.Close()
	}

	// Windows refuses to rename over an existing file
	os.Remove(w.filePath)

	if err := os.Rename(tempPath, w.filePath); err != nil {
		return err
	}

	file, err := os.OpenFile(w.filePath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.writer = file

	return nil
}
