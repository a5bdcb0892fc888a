package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// FileKV is a durable KV backed by a single JSON file, intended for CLI
// and desktop use where no shared store is available. The file is written
// with 0600 permissions since it holds tokens.
type FileKV struct {
	mu     sync.Mutex
	path   string
	data   map[string]string
	closed bool
}

var _ KV = (*FileKV)(nil)

// NewFileKV opens (or initializes) the JSON file at path. A missing file
// is treated as an empty store; an unreadable or unparsable file is an
// error so corrupted credential files never silently pass for empty.
func NewFileKV(path string) (*FileKV, error) {
	data := make(map[string]string)
	b, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First run, nothing persisted yet.
	case err != nil:
		return nil, fmt.Errorf("credentials: read %s: %w", path, err)
	case len(b) > 0:
		if err := json.Unmarshal(b, &data); err != nil {
			return nil, fmt.Errorf("credentials: parse %s: %w", path, err)
		}
	}
	return &FileKV{path: path, data: data}, nil
}

// Get returns the value for key, or ErrNotFound.
func (f *FileKV) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}
	v, ok := f.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return []byte(v), nil
}

// Set stores the value for key and persists the file.
func (f *FileKV) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.data[key] = string(value)
	return f.persistLocked("set", key)
}

// Delete removes key and persists the file. Deleting an absent key is
// not an error.
func (f *FileKV) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if _, ok := f.data[key]; !ok {
		return nil
	}
	delete(f.data, key)
	return f.persistLocked("delete", key)
}

// Close marks the store closed. The file is left in place.
func (f *FileKV) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *FileKV) persistLocked(op, key string) error {
	b, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return NewOperationError(op, key, err)
	}
	if err := os.WriteFile(f.path, b, 0o600); err != nil {
		return NewOperationError(op, key, err)
	}
	return nil
}
