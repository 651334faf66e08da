package quotes

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisCache shares quotes across instances. Redis failures degrade to the
// wrapped provider; they never fail a lookup on their own.
type RedisCache struct {
	next Provider
	rdb  *redis.Client
	ttl  time.Duration
	log  logrus.FieldLogger
}

func NewRedisCache(next Provider, rdb *redis.Client, ttl time.Duration, log logrus.FieldLogger) *RedisCache {
	return &RedisCache{next: next, rdb: rdb, ttl: ttl, log: log.WithField("component", "quote_cache")}
}

func quoteKey(symbol string) string {
	return "quote:" + strings.ToUpper(strings.TrimSpace(symbol))
}

func (c *RedisCache) Current(ctx context.Context, symbol string) (Quote, error) {
	key := quoteKey(symbol)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var q Quote
		if err := json.Unmarshal(raw, &q); err == nil {
			return q, nil
		}
		c.log.WithField("key", key).Warn("dropping undecodable cached quote")
	} else if err != redis.Nil {
		c.log.WithError(err).Warn("redis get failed")
	}

	quote, err := c.next.Current(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}
	if raw, err := json.Marshal(quote); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.log.WithError(err).Warn("redis set failed")
		}
	}
	return quote, nil
}
