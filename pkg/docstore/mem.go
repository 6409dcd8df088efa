package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemStore is an in-memory Store for tests and single-node deployments.
// Documents are stored as marshaled JSON so Get/Put round-trip exactly
// like the postgres implementation.
type MemStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{docs: make(map[string][]byte)}
}

func memKey(kind, conversationID string) string {
	return kind + "/" + conversationID
}

func (s *MemStore) Get(ctx context.Context, kind, conversationID string, out any) (bool, error) {
	s.mu.RLock()
	raw, ok := s.docs[memKey(kind, conversationID)]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("docstore: decoding %s/%s: %w", kind, conversationID, err)
	}
	return true, nil
}

func (s *MemStore) Put(ctx context.Context, kind, conversationID string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("docstore: encoding %s/%s: %w", kind, conversationID, err)
	}
	s.mu.Lock()
	s.docs[memKey(kind, conversationID)] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemStore) Delete(ctx context.Context, kind, conversationID string) error {
	s.mu.Lock()
	delete(s.docs, memKey(kind, conversationID))
	s.mu.Unlock()
	return nil
}

func (s *MemStore) List(ctx context.Context, kind string) ([]string, error) {
	prefix := kind + "/"
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for k := range s.docs {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			ids = append(ids, k[len(prefix):])
		}
	}
	return ids, nil
}
