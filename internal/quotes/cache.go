package quotes

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Cache keeps the last successful quote per symbol for a TTL so a burst of
// orders and portfolio reads does not hammer the upstream provider. Fetch
// errors are never cached.
type Cache struct {
	next Provider
	ttl  time.Duration

	mu   sync.RWMutex
	data map[string]cachedQuote
}

type cachedQuote struct {
	quote     Quote
	fetchedAt time.Time
}

func NewCache(next Provider, ttl time.Duration) *Cache {
	return &Cache{next: next, ttl: ttl, data: make(map[string]cachedQuote)}
}

func (c *Cache) Current(ctx context.Context, symbol string) (Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	c.mu.RLock()
	entry, ok := c.data[symbol]
	c.mu.RUnlock()
	if ok && time.Since(entry.fetchedAt) < c.ttl {
		return entry.quote, nil
	}

	quote, err := c.next.Current(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}
	c.mu.Lock()
	c.data[symbol] = cachedQuote{quote: quote, fetchedAt: time.Now()}
	c.mu.Unlock()
	return quote, nil
}
