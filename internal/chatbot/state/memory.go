package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/entity"
)

// MemoryStore is an in-memory Store used in tests and local runs without a
// database. Contexts are kept serialized so reads return independent copies
// and the JSON round-trip matches the Postgres store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, userID string) (*Context, error) {
	s.mu.RLock()
	raw, ok := s.data[userID]
	s.mu.RUnlock()

	if !ok {
		return nil, entity.ErrContextNotFound
	}

	var c Context
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode stored context: %w", err)
	}
	return &c, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, c *Context) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode context: %w", err)
	}

	s.mu.Lock()
	s.data[c.UserID] = raw
	s.mu.Unlock()
	return nil
}

// SaveRaw stores pre-serialized bytes for a user, bypassing encoding.
// Tests use it to plant malformed records.
func (s *MemoryStore) SaveRaw(userID string, raw []byte) {
	s.mu.Lock()
	s.data[userID] = raw
	s.mu.Unlock()
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.data, userID)
	s.mu.Unlock()
	return nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) ([]*Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Context, 0, len(s.data))
	for _, raw := range s.data {
		var c Context
		if err := json.Unmarshal(raw, &c); err != nil {
			// One undecodable context must not block the scan.
			continue
		}
		out = append(out, &c)
	}
	return out, nil
}
