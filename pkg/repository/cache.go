package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

const DefaultMaxLocalEntries = 4096

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, expiration time.Duration) error
}

type LocalEntry struct {
	Expires time.Time
	Data    []byte
}

// RedisCache keeps a short lived process local copy in front of redis.
type RedisCache struct {
	Addr     string
	Password string
	DB       int
	LocalTTL time.Duration

	// MaxLocalEntries bounds the process local copy.
	MaxLocalEntries int

	client   *redis.Client
	mu       sync.RWMutex
	memCache map[string]LocalEntry
}

func NewRedisCache(addr, password string, db int) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{
		Addr:     addr,
		Password: password,
		DB:       db,
		LocalTTL:        time.Minute,
		MaxLocalEntries: DefaultMaxLocalEntries,
		client:          rdb,
		memCache:        make(map[string]LocalEntry),
	}
}

func (c *RedisCache) Client() *redis.Client {
	return c.client
}

func (c *RedisCache) getLocal(key string) ([]byte, bool) {
	c.mu.RLock()
	local, found := c.memCache[key]
	c.mu.RUnlock()
	if !found {
		return nil, false
	}
	if local.Expires.Before(time.Now()) {
		c.mu.Lock()
		delete(c.memCache, key)
		c.mu.Unlock()
		return nil, false
	}
	return local.Data, true
}

func (c *RedisCache) setLocal(key string, data []byte, expiration time.Duration) {
	ttl := c.LocalTTL
	if expiration > 0 && expiration < ttl {
		ttl = expiration
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.memCache == nil {
		c.memCache = make(map[string]LocalEntry)
	}
	if _, exists := c.memCache[key]; !exists {
		c.makeRoomUnsafe(now)
	}
	c.memCache[key] = LocalEntry{Expires: now.Add(ttl), Data: data}
}

// makeRoomUnsafe drops expired entries once the local copy is full and, if
// that frees nothing, the entry closest to expiry.
func (c *RedisCache) makeRoomUnsafe(now time.Time) {
	limit := c.MaxLocalEntries
	if limit <= 0 {
		limit = DefaultMaxLocalEntries
	}
	if len(c.memCache) < limit {
		return
	}
	oldestKey := ""
	var oldest time.Time
	for k, e := range c.memCache {
		if e.Expires.Before(now) {
			delete(c.memCache, k)
			continue
		}
		if oldestKey == "" || e.Expires.Before(oldest) {
			oldestKey, oldest = k, e.Expires
		}
	}
	if len(c.memCache) >= limit && oldestKey != "" {
		delete(c.memCache, oldestKey)
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := c.getLocal(key); ok {
		return data, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	c.setLocal(key, data, c.LocalTTL)
	return data, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, data []byte, expiration time.Duration) error {
	c.setLocal(key, data, expiration)
	return c.client.Set(ctx, key, data, expiration).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
