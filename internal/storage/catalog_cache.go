package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	go_json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const catalogCacheKey = "catalog:services"

// CatalogCache is a read-through cache in front of CatalogStore lookups.
type CatalogCache interface {
	// GetCatalogEntry returns ErrNotFound on a cache miss.
	GetCatalogEntry(ctx context.Context, serviceID string) (CatalogEntry, error)

	SetCatalogEntry(ctx context.Context, entry CatalogEntry, ttl time.Duration) error

	// InvalidateCatalog drops every cached entry, called after a sync.
	InvalidateCatalog(ctx context.Context) error
}

var (
	_ CatalogCache = (*RedisCatalogCache)(nil)
	_ CatalogCache = (*MemoryCatalogCache)(nil)
)

// RedisCatalogCache keeps every entry in one hash so that a sync can drop
// the whole cache with a single DEL. The hash expires ttl after its first
// write; later writes do not push the expiry out.
type RedisCatalogCache struct {
	client *redis.Client
}

func NewRedisCatalogCache(client *redis.Client) *RedisCatalogCache {
	return &RedisCatalogCache{client: client}
}

func (c *RedisCatalogCache) GetCatalogEntry(ctx context.Context, serviceID string) (CatalogEntry, error) {
	data, err := c.client.HGet(ctx, catalogCacheKey, serviceID).Bytes()
	if errors.Is(err, redis.Nil) {
		return CatalogEntry{}, ErrNotFound
	}
	if err != nil {
		return CatalogEntry{}, fmt.Errorf("get cached catalog entry: %w", err)
	}

	var entry CatalogEntry
	if err := go_json.Unmarshal(data, &entry); err != nil {
		return CatalogEntry{}, fmt.Errorf("unmarshal cached catalog entry: %w", err)
	}
	return entry, nil
}

func (c *RedisCatalogCache) SetCatalogEntry(ctx context.Context, entry CatalogEntry, ttl time.Duration) error {
	data, err := go_json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal catalog entry: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, catalogCacheKey, entry.ServiceID, data)
	pipe.ExpireNX(ctx, catalogCacheKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache catalog entry: %w", err)
	}
	return nil
}

func (c *RedisCatalogCache) InvalidateCatalog(ctx context.Context) error {
	if err := c.client.Del(ctx, catalogCacheKey).Err(); err != nil {
		return fmt.Errorf("invalidate catalog cache: %w", err)
	}
	return nil
}

type catalogCacheEntry struct {
	entry     CatalogEntry
	expiresAt time.Time
}

type MemoryCatalogCache struct {
	mu      sync.RWMutex
	entries map[string]catalogCacheEntry

	done      chan struct{}
	closeOnce sync.Once
	interval  time.Duration
}

func NewMemoryCatalogCache(cleanupInterval time.Duration) *MemoryCatalogCache {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	c := &MemoryCatalogCache{
		entries:  make(map[string]catalogCacheEntry),
		done:     make(chan struct{}),
		interval: cleanupInterval,
	}
	go c.cleanupLoop()
	return c
}

func (c *MemoryCatalogCache) GetCatalogEntry(_ context.Context, serviceID string) (CatalogEntry, error) {
	c.mu.RLock()
	cached, ok := c.entries[serviceID]
	c.mu.RUnlock()

	if !ok || time.Now().After(cached.expiresAt) {
		return CatalogEntry{}, ErrNotFound
	}
	return cached.entry, nil
}

func (c *MemoryCatalogCache) SetCatalogEntry(_ context.Context, entry CatalogEntry, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[entry.ServiceID] = catalogCacheEntry{
		entry:     entry,
		expiresAt: time.Now().Add(ttl),
	}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCatalogCache) InvalidateCatalog(_ context.Context) error {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCatalogCache) cleanupLoop() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.done:
			return
		}
	}
}

func (c *MemoryCatalogCache) cleanup() {
	now := time.Now()
	c.mu.Lock()
	for id, cached := range c.entries {
		if now.After(cached.expiresAt) {
			delete(c.entries, id)
		}
	}
	c.mu.Unlock()
}

func (c *MemoryCatalogCache) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}
