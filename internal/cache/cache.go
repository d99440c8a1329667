package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	// DefaultPayloadTTL is how long a button payload stays clickable.
	DefaultPayloadTTL = time.Hour

	cleanupInterval = 10 * time.Minute
)

// Cache is a TTL key-value store for transient dialogue data: button
// payloads and long-lived per-user flags. Values are stored serialized so a
// corrupt entry degrades to "expired" instead of breaking the conversation.
type Cache struct {
	store      *gocache.Cache
	defaultTTL time.Duration
	logger     *zap.Logger
}

// New creates a cache with the given default TTL.
func New(defaultTTL time.Duration, logger *zap.Logger) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultPayloadTTL
	}
	return &Cache{
		store:      gocache.New(defaultTTL, cleanupInterval),
		defaultTTL: defaultTTL,
		logger:     logger,
	}
}

// Put stores a value under key with the given TTL and returns the key.
// A zero ttl falls back to the default. An empty key generates one
// unguessable enough to serve as a bearer token for a button.
func (c *Cache) Put(value any, ttl time.Duration, key string) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("marshal cache value: %w", err)
	}

	if key == "" {
		key = uuid.NewString()
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.store.Set(key, data, ttl)
	return key, nil
}

// Get loads the value stored under key into out. It returns false when the
// key is absent, expired or the stored bytes cannot be parsed; a broken
// entry is logged, removed and reported as absent, never as an error.
func (c *Cache) Get(key string, out any) bool {
	raw, found := c.store.Get(key)
	if !found {
		return false
	}

	data, ok := raw.([]byte)
	if !ok {
		c.logger.Warn("cache entry has unexpected type, dropping it",
			zap.String("key", key),
		)
		c.store.Delete(key)
		return false
	}

	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn("cache entry is corrupt, dropping it",
			zap.Error(err),
			zap.String("key", key),
		)
		c.store.Delete(key)
		return false
	}

	return true
}

// Remove deletes the entry under key. Removing a missing key is a no-op.
func (c *Cache) Remove(key string) {
	c.store.Delete(key)
}
