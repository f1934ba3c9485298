// internal/sink/sink.go

// Package sink is the artifact output boundary: every report, screenshot and
// analysis is written through Sink.Write with a path relative to the run's
// output directory.
package sink

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
)

// Sink persists artifacts.
type Sink interface {
	Write(path string, content []byte) error
}

// FileSink writes artifacts below a root directory of an afero filesystem.
type FileSink struct {
	fs   afero.Fs
	root string
	mu   sync.Mutex
}

// NewFileSink creates a sink rooted at dir. A leading ~ is expanded.
func NewFileSink(fs afero.Fs, dir string) (*FileSink, error) {
	root, err := homedir.Expand(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to expand output dir %q: %w", dir, err)
	}
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir %q: %w", root, err)
	}
	return &FileSink{fs: fs, root: root}, nil
}

// NewOSFileSink creates a FileSink on the real filesystem.
func NewOSFileSink(dir string) (*FileSink, error) {
	return NewFileSink(afero.NewOsFs(), dir)
}

// Root returns the expanded output directory.
func (s *FileSink) Root() string { return s.root }

// Write stores content at path, creating parent directories.
func (s *FileSink) Write(path string, content []byte) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := afero.WriteFile(s.fs, full, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (s *FileSink) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("artifact path %q escapes the output directory", path)
	}
	return filepath.Join(s.root, clean), nil
}

// Memory keeps artifacts in memory. Used by tests.
type Memory struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewMemory creates an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

func (m *Memory) Write(path string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = append([]byte(nil), content...)
	return nil
}

// Get returns a stored artifact.
func (m *Memory) Get(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[path]
	return b, ok
}

// Paths lists stored artifacts in sorted order.
func (m *Memory) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// SafeName maps s to a file-name-safe form; anything outside [A-Za-z0-9_-]
// becomes an underscore.
func SafeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
