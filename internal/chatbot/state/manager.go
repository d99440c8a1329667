package state

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store defines the interface for conversation context persistence.
type Store interface {
	// Get retrieves the context of a user. Missing users return
	// entity.ErrContextNotFound.
	Get(ctx context.Context, userID string) (*Context, error)

	// Save persists the context.
	Save(ctx context.Context, c *Context) error

	// Delete removes the context of a user.
	Delete(ctx context.Context, userID string) error

	// List returns all stored contexts of the bot's namespace. Used by
	// the reconciliation job.
	List(ctx context.Context) ([]*Context, error)
}

// Manager wraps a Store and serializes access per user: live message
// handling and the reconciliation job both take the user's lock before a
// read-modify-write of the same context.
type Manager struct {
	store Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a new state manager.
func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the per-user mutex. Different users never contend.
func (m *Manager) Lock(userID string) {
	m.userLock(userID).Lock()
}

// Unlock releases the per-user mutex.
func (m *Manager) Unlock(userID string) {
	m.userLock(userID).Unlock()
}

func (m *Manager) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	return l
}

// Get retrieves a user's context from the store.
func (m *Manager) Get(ctx context.Context, userID string) (*Context, error) {
	c, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get conversation context: %w", err)
	}
	return c, nil
}

// Save persists a context, stamping the update time.
func (m *Manager) Save(ctx context.Context, c *Context) error {
	c.UpdatedAt = time.Now()
	if err := m.store.Save(ctx, c); err != nil {
		return fmt.Errorf("save conversation context: %w", err)
	}
	return nil
}

// Delete removes a user's context.
func (m *Manager) Delete(ctx context.Context, userID string) error {
	if err := m.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete conversation context: %w", err)
	}
	return nil
}

// List returns every stored context.
func (m *Manager) List(ctx context.Context) ([]*Context, error) {
	cs, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conversation contexts: %w", err)
	}
	return cs, nil
}
