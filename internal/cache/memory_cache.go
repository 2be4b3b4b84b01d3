package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache is a process-local ResponseCache.
type MemoryCache struct {
	mu      sync.RWMutex
	clock   clock.Clock
	entries map[string]memoryEntry
	counters
}

func NewMemoryCache(clk clock.Clock) *MemoryCache {
	if clk == nil {
		clk = clock.WallClock
	}
	return &MemoryCache{
		clock:   clk,
		entries: make(map[string]memoryEntry),
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (*models.AIResponse, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.clock.Now().Before(entry.expiresAt) {
		c.record(false)
		return nil, false, nil
	}
	// a stored copy is returned so callers cannot mutate the entry
	resp, err := decode(entry.data)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode cached response: %w", err)
	}
	c.record(true)
	return resp, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, resp *models.AIResponse, ttl time.Duration) error {
	data, err := encode(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{data: data, expiresAt: c.clock.Now().Add(ttl)}
	return nil
}

// Purge removes expired entries and returns how many were dropped.
func (c *MemoryCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *MemoryCache) Stats() Stats {
	return c.stats()
}
