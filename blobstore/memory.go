package blobstore

import (
	"bytes"
	"context"
	"io"
	"slices"
	"strings"
	"sync"
)

// Op names a MemoryStore operation passed to a fault hook.
type Op string

const (
	OpOpen   Op = "open"
	OpWrite  Op = "write"
	OpDelete Op = "delete"
	OpList   Op = "list"
)

// MemoryStore keeps blobs in a map. It is meant for tests; SetFault makes
// selected operations fail.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	fault func(op Op, name string) error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// SetFault installs a hook consulted before every operation. A non-nil
// error from the hook is returned instead of performing the operation.
// For writes the hook runs when the blob is committed. Pass nil to clear.
func (m *MemoryStore) SetFault(fn func(op Op, name string) error) {
	m.mu.Lock()
	m.fault = fn
	m.mu.Unlock()
}

func (m *MemoryStore) check(op Op, name string) error {
	if m.fault == nil {
		return nil
	}
	return m.fault(op, name)
}

// Len returns the number of stored blobs.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

// Bytes returns the total size of all stored blobs.
func (m *MemoryStore) Bytes() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, b := range m.blobs {
		n += int64(len(b))
	}
	return n
}

func (m *MemoryStore) Open(_ context.Context, name string) (Blob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.check(OpOpen, name); err != nil {
		return nil, err
	}
	data, ok := m.blobs[name]
	if !ok {
		return nil, ErrNotFound
	}
	return memoryBlob(data), nil
}

// Create buffers writes until Close commits the blob.
func (m *MemoryStore) Create(_ context.Context, name string) (WritableBlob, error) {
	return &memoryWriter{store: m, name: name}, nil
}

func (m *MemoryStore) Put(_ context.Context, name string, data []byte) error {
	return m.commit(name, bytes.Clone(data))
}

func (m *MemoryStore) commit(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(OpWrite, name); err != nil {
		return err
	}
	m.blobs[name] = data
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(OpDelete, name); err != nil {
		return err
	}
	delete(m.blobs, name)
	return nil
}

func (m *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.check(OpList, prefix); err != nil {
		return nil, err
	}
	var names []string
	for name := range m.blobs {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// memoryBlob aliases the stored slice. Stored slices are replaced, never
// written to.
type memoryBlob []byte

func (b memoryBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b memoryBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	if off >= int64(len(b)) {
		return nil, io.EOF
	}
	return io.NopCloser(bytes.NewReader(b[off:min(off+length, int64(len(b)))])), nil
}

func (b memoryBlob) Size() int64  { return int64(len(b)) }
func (b memoryBlob) Close() error { return nil }

type memoryWriter struct {
	store   *MemoryStore
	name    string
	buf     bytes.Buffer
	aborted bool
}

func (w *memoryWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }
func (w *memoryWriter) Sync() error                 { return nil }

func (w *memoryWriter) Close() error {
	if w.aborted {
		return nil
	}
	return w.store.commit(w.name, bytes.Clone(w.buf.Bytes()))
}

func (w *memoryWriter) Abort() error {
	w.aborted = true
	w.buf.Reset()
	return nil
}
