package phrasebook

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

var testNow = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

// memFS serves file contents from memory and can simulate locked files.
type memFS struct {
	mu     sync.Mutex
	files  map[string]string
	locked map[string]int
	opens  map[string]int
}

func newMemFS() *memFS {
	return &memFS{
		files:  make(map[string]string),
		locked: make(map[string]int),
		opens:  make(map[string]int),
	}
}

func (m *memFS) write(path, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = content
}

func (m *memFS) lock(path string, attempts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked[path] = attempts
}

func (m *memFS) openCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens[path]
}

func (m *memFS) open(path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opens[path]++
	if m.locked[path] > 0 {
		m.locked[path]--
		return nil, fmt.Errorf("open %s: %w", path, ErrFileLocked)
	}
	content, ok := m.files[path]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func newTestIndex(t *testing.T, fs *memFS, opts ...Option) *Index {
	t.Helper()
	base := []Option{
		WithOpener(fs.open),
		WithClock(testNow),
		WithRetryPolicy(RetryPolicy{InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Deadline: time.Second}),
	}
	return New(append(base, opts...)...)
}

func cfgPath(t *testing.T, base string, parts ...string) string {
	t.Helper()
	return filepath.Join(append([]string{base}, parts...)...)
}
