package cache

import (
	"context"
	"sync"
	"time"
)

type priceEntry struct {
	price     int64
	expiresAt time.Time
}

// MemoryCache keeps prices in process. An expired entry is treated as missing
// and overwritten by the next SetPrice.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]priceEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]priceEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) GetPrice(_ context.Context, ticker string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[ticker]
	if !ok {
		return 0, ErrCacheMiss
	}

	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, ticker)
		return 0, ErrCacheMiss
	}

	return entry.price, nil
}

func (c *MemoryCache) SetPrice(_ context.Context, ticker string, price int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[ticker] = priceEntry{price: price, expiresAt: c.now().Add(c.ttl)}
	return nil
}

func (c *MemoryCache) SetPrices(ctx context.Context, prices map[string]int64) error {
	for ticker, price := range prices {
		_ = c.SetPrice(ctx, ticker, price)
	}
	return nil
}

func (c *MemoryCache) FlushPrices(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
	return nil
}
