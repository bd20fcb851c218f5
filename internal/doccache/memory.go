package doccache

import (
	"context"
	"sync"
)

// MemoryBackend keeps documents in process memory. The default backend,
// and the one offline/test configurations use.
type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string]*Document)}
}

func (m *MemoryBackend) Get(_ context.Context, url string) (*Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[url]
	return doc, ok, nil
}

func (m *MemoryBackend) Put(_ context.Context, doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.URL] = doc
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, url)
	return nil
}

func (m *MemoryBackend) Close() error { return nil }

// Len reports the number of cached documents. Test helper.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}
