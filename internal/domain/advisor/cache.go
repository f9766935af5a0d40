package advisor

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
)

// Cache stores raw model replies by request key
type Cache interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// MemoryCache is an in-process Cache
type MemoryCache struct {
	mu    sync.RWMutex
	store map[string]string
}

// NewMemoryCache creates an empty memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		store: make(map[string]string),
	}
}

// Get retrieves a value from cache
func (c *MemoryCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, found := c.store[key]
	return value, found
}

// Set stores a value in cache
func (c *MemoryCache) Set(key string, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = value
}

// Clear removes all entries from cache
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = make(map[string]string)
}

// Size returns the number of cached entries
func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.store)
}

// cacheKey identifies a request by model, temperature and prompt.
func cacheKey(cfg Config, prompt string) string {
	h := sha256.New()
	h.Write([]byte(cfg.Model))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(cfg.Temperature, 'g', -1, 64)))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}
