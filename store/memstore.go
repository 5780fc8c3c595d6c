package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore holds documents in memory. Used by tests and as a
// fallback when no durable backend is configured.
type MemoryStore struct {
	mutex sync.Mutex
	docs  map[Kind][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[Kind][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, kind Kind, v interface{}) error {
	s.mutex.Lock()
	data, ok := s.docs[kind]
	s.mutex.Unlock()

	if !ok {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return nil
	}
	return nil
}

func (s *MemoryStore) Save(_ context.Context, kind Kind, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s document: %w", kind, err)
	}

	s.mutex.Lock()
	s.docs[kind] = data
	s.mutex.Unlock()
	return nil
}

// SaveCount reports how many documents are currently held. Test helper.
func (s *MemoryStore) SaveCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.docs)
}
