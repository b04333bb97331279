package contentstore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process store, used for tests and ephemeral deployments
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

func (m *Memory) Read(ctx context.Context, p string) ([]byte, error) {
	cleaned, err := Clean(p)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[cleaned]
	if !ok {
		return nil, ErrNotExist
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Write(ctx context.Context, p string, data []byte) error {
	cleaned, err := Clean(p)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[cleaned] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) Delete(ctx context.Context, p string) error {
	cleaned, err := Clean(p)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, cleaned)
	return nil
}

func (m *Memory) List(ctx context.Context, dir string) ([]string, error) {
	cleaned, err := Clean(dir)
	if err != nil {
		return nil, err
	}
	prefix := cleaned + "/"

	m.mu.RLock()
	defer m.mu.RUnlock()
	files := []string{}
	for p := range m.files {
		if strings.HasPrefix(p, prefix) {
			files = append(files, p)
		}
	}
	sort.Strings(files)
	return files, nil
}

// Len returns the number of stored files
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}
