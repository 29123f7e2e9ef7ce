package session

import (
	"sync"

	"sealchat/pkg/security"
)

// Cache holds derived session keys per conversation for the lifetime of
// the process. It is an explicit object handed to the messaging
// components rather than package state, so tests can build isolated
// instances. Entries never expire on their own; Clear wipes them when the
// client session ends.
type Cache struct {
	mu sync.RWMutex
	m  map[string]Keys
}

// NewCache returns an empty session key cache.
func NewCache() *Cache {
	return &Cache{m: make(map[string]Keys)}
}

// Get returns the cached keys for a conversation.
func (c *Cache) Get(chatID string) (Keys, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	k, ok := c.m[chatID]
	return k, ok
}

// Put caches keys for a conversation, best-effort pinning the material
// out of swap.
func (c *Cache) Put(chatID string, k Keys) {
	_ = security.LockMemory(k.RX)
	_ = security.LockMemory(k.TX)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[chatID] = k
}

// Has reports whether keys exist for a conversation.
func (c *Cache) Has(chatID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.m[chatID]
	return ok
}

// Delete wipes and forgets the keys for one conversation.
func (c *Cache) Delete(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if k, ok := c.m[chatID]; ok {
		_ = security.UnlockMemory(k.RX)
		_ = security.UnlockMemory(k.TX)
		k.Zero()
		delete(c.m, chatID)
	}
}

// Clear wipes every cached key. Called when the client session ends.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, k := range c.m {
		_ = security.UnlockMemory(k.RX)
		_ = security.UnlockMemory(k.TX)
		k.Zero()
		delete(c.m, id)
	}
}
