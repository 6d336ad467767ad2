package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero: kept until deleted
}

func (e memoryEntry) live(now time.Time) bool {
	return e.expiresAt.IsZero() || !now.After(e.expiresAt)
}

// MemoryExactCache keeps results in process. Contents are lost on restart,
// so it suits development and tests.
type MemoryExactCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryExactCache starts a sweeper that drops expired results every
// sweepEvery (5 minutes when <= 0).
func NewMemoryExactCache(sweepEvery time.Duration) *MemoryExactCache {
	if sweepEvery <= 0 {
		sweepEvery = 5 * time.Minute
	}
	c := &MemoryExactCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go c.sweepLoop(sweepEvery)
	return c
}

func (c *MemoryExactCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !e.live(c.now()) {
		// the sweeper reclaims it
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *MemoryExactCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

func (c *MemoryExactCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

func (c *MemoryExactCache) DeletePrefix(_ context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			n++
		}
	}
	return n, nil
}

// sweep removes expired entries and returns how many it dropped.
func (c *MemoryExactCache) sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.entries {
		if !e.live(now) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *MemoryExactCache) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

// Close stops the sweeper. Safe to call more than once.
func (c *MemoryExactCache) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// Len counts stored entries, expired ones included until swept.
func (c *MemoryExactCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
