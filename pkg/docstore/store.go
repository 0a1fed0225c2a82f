// Package docstore provides in-memory slice storage for chat sessions.
// Used for ephemeral sessions and tests; nothing survives the process.
package docstore

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/kittclouds/chatsession/internal/store"
)

// Store holds raw slice documents in memory.
// Thread-safe for concurrent access from WASM callbacks.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// Document is one stored slice.
type Document struct {
	Key     string
	Data    []byte
	Version int64 // incremented on every write
}

// New creates an empty document store.
func New() *Store {
	return &Store{
		docs: make(map[string]*Document),
	}
}

// Hydrate bulk-loads documents into the store, on top of what it holds.
func (s *Store) Hydrate(docs map[string][]byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range docs {
		s.docs[k] = &Document{
			Key:     k,
			Data:    append([]byte(nil), v...),
			Version: 1,
		}
	}
	return len(docs)
}

// LoadSlice returns a copy of the document under key.
func (s *Store) LoadSlice(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), doc.Data...), true, nil
}

// SaveSlice adds or replaces the document under key.
func (s *Store) SaveSlice(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var version int64 = 1
	if prev, ok := s.docs[key]; ok {
		version = prev.Version + 1
	}
	s.docs[key] = &Document{
		Key:     key,
		Data:    append([]byte(nil), value...),
		Version: version,
	}
	return nil
}

// Version returns the write counter for key, 0 if never written.
func (s *Store) Version(key string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if doc, ok := s.docs[key]; ok {
		return doc.Version
	}
	return 0
}

// Count returns the number of documents in the store.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.docs)
}

// Keys returns all document keys, sorted.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.docs))
	for k := range s.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear removes all documents.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs = make(map[string]*Document)
}

// =============================================================================
// Export/Import (same key -> raw value object as store.SQLiteStore)
// =============================================================================

// Export serializes every document to a JSON object of key -> raw value.
func (s *Store) Export() ([]byte, error) {
	data := make(map[string]string, s.Count())
	for _, k := range s.Keys() {
		if v, ok, _ := s.LoadSlice(k); ok {
			data[k] = string(v)
		}
	}
	return json.Marshal(data)
}

// Import replaces the store contents with an Export payload and returns the
// number of documents loaded. Empty data is a no-op.
func (s *Store) Import(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}

	var slices map[string]string
	if err := json.Unmarshal(data, &slices); err != nil {
		return 0, fmt.Errorf("import unmarshal: %w", err)
	}

	docs := make(map[string][]byte, len(slices))
	for k, v := range slices {
		docs[k] = []byte(v)
	}
	s.Clear()
	return s.Hydrate(docs), nil
}

// Close is a no-op; the store lives as long as the process.
func (s *Store) Close() error { return nil }

var _ store.SliceStore = (*Store)(nil)
