package storage

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// PriceCache keeps last-known prices so a failed price fetch can degrade
// to cached data instead of aborting a monitoring tick. Backed by Redis
// when available, with a transparent in-memory fallback otherwise.
type PriceCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger

	mu        sync.RWMutex
	useMemory bool
	memory    map[string]cachedPrice
}

type cachedPrice struct {
	price float64
	at    time.Time
}

// RedisConfig holds cache connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewPriceCache connects to Redis; when the ping fails it logs a warning
// and serves from process memory instead.
func NewPriceCache(ctx context.Context, cfg RedisConfig, logger zerolog.Logger) *PriceCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c := &PriceCache{
		ttl:    ttl,
		log:    logger.With().Str("component", "PriceCache").Logger(),
		memory: make(map[string]cachedPrice),
	}

	if cfg.Addr == "" {
		c.useMemory = true
		c.log.Info().Msg("no redis configured, using in-memory price cache")
		return c
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		c.useMemory = true
		c.log.Warn().Err(err).Msg("redis unavailable, falling back to in-memory price cache")
		return c
	}

	c.client = client
	c.log.Info().Str("addr", cfg.Addr).Msg("price cache connected to redis")
	return c
}

func priceKey(symbol string) string {
	return "price:" + symbol
}

// Set stores a price under the cache TTL.
func (c *PriceCache) Set(ctx context.Context, symbol string, price float64) {
	if c.useMemory {
		c.mu.Lock()
		c.memory[symbol] = cachedPrice{price: price, at: time.Now()}
		c.mu.Unlock()
		return
	}
	if err := c.client.Set(ctx, priceKey(symbol), fmt.Sprintf("%g", price), c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("price cache write failed")
	}
}

// Get returns the cached price, or false when missing or expired.
func (c *PriceCache) Get(ctx context.Context, symbol string) (float64, bool) {
	if c.useMemory {
		c.mu.RLock()
		entry, ok := c.memory[symbol]
		c.mu.RUnlock()
		if !ok || time.Since(entry.at) > c.ttl {
			return 0, false
		}
		return entry.price, true
	}

	val, err := c.client.Get(ctx, priceKey(symbol)).Result()
	if err != nil {
		return 0, false
	}
	price, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

// Close releases the Redis connection if one is held.
func (c *PriceCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
