package repository

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/matst80/slask-fordon/pkg/types"
)

// Cached stores query results of another repository. Results are a pure
// function of the descriptor and the inventory, so a short TTL is all the
// invalidation needed.
type Cached struct {
	Repository
	Cache      Cache
	Expiration time.Duration
	Prefix     string
}

func NewCached(inner Repository, cache Cache, expiration time.Duration) *Cached {
	return &Cached{
		Repository: inner,
		Cache:      cache,
		Expiration: expiration,
		Prefix:     "inventory",
	}
}

func (c *Cached) key(kind string, q types.QueryDescriptor, extra string) string {
	data, _ := json.Marshal(q)
	sum := sha1.Sum(append(data, extra...))
	return c.Prefix + ":" + kind + ":" + hex.EncodeToString(sum[:])
}

func cachedCall[T any](ctx context.Context, c *Cached, key string, fn func() (T, error)) (T, error) {
	var ret T
	data, err := c.Cache.Get(ctx, key)
	if err == nil {
		if err = json.Unmarshal(data, &ret); err == nil {
			return ret, nil
		}
		log.Printf("dropping unreadable cache entry %s: %v", key, err)
	} else if !errors.Is(err, ErrCacheMiss) {
		log.Printf("cache read failed for %s: %v", key, err)
	}
	ret, err = fn()
	if err != nil {
		return ret, err
	}
	if data, err := json.Marshal(ret); err == nil {
		if err := c.Cache.Set(ctx, key, data, c.Expiration); err != nil {
			log.Printf("cache write failed for %s: %v", key, err)
		}
	}
	return ret, nil
}

func (c *Cached) Query(ctx context.Context, q types.QueryDescriptor) (*types.ResultPage, error) {
	return cachedCall(ctx, c, c.key("query", q, ""), func() (*types.ResultPage, error) {
		return c.Repository.Query(ctx, q)
	})
}

func (c *Cached) ValueCounts(ctx context.Context, q types.QueryDescriptor, field types.Field) (map[string]int, error) {
	q.Page = 0
	q.PageSize = 0
	q.Sort = ""
	return cachedCall(ctx, c, c.key("counts", q, string(field)), func() (map[string]int, error) {
		return c.Repository.ValueCounts(ctx, q, field)
	})
}
