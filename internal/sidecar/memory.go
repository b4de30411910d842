package sidecar

import (
	"context"
	"slices"
	"sync"

	"photocat/internal/catalog"
)

// MemoryStore is an in-memory SidecarStore, useful for testing and for
// throwaway catalogs. Documents are stored encoded so callers never share
// maps with the store. This implementation is safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string][]byte
	writes int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (m *MemoryStore) Write(ctx context.Context, id string, doc catalog.Document, mode catalog.MergeMode) (catalog.WriteResult, error) {
	if err := catalog.ValidateContentID(id); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, found, err := m.decode(id)
	if err != nil {
		return 0, err
	}
	next, result := plan(existing, found, doc, mode)
	if result == catalog.WriteUnchanged {
		return result, nil
	}
	data, err := catalog.EncodeDocument(next)
	if err != nil {
		return 0, err
	}
	m.docs[id] = data
	m.writes++
	return result, nil
}

func (m *MemoryStore) Read(ctx context.Context, id string) (catalog.Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.decode(id)
}

func (m *MemoryStore) Exists(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.docs[id]
	return ok, nil
}

func (m *MemoryStore) ReadAll(ctx context.Context, fn func(id string, doc catalog.Document) error) error {
	m.mu.RLock()
	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	slices.Sort(ids)

	for _, id := range ids {
		doc, found, err := m.Read(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		if err := fn(id, doc); err != nil {
			return err
		}
	}
	return nil
}

// Writes returns how many documents were physically written.
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Len returns the number of stored documents.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// decode must be called with mu held.
func (m *MemoryStore) decode(id string) (catalog.Document, bool, error) {
	data, ok := m.docs[id]
	if !ok {
		return nil, false, nil
	}
	doc, err := catalog.DecodeDocumentBytes(data)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

var _ catalog.SidecarStore = (*MemoryStore)(nil)
