package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const cacheKeyPrefix = "catalogmatch:search:"

// Store is a byte-oriented key/value store with expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedSearcher serves repeated queries from a Store. Store failures are
// logged and the backend is queried directly; backend errors are never cached.
type CachedSearcher struct {
	next  Searcher
	store Store
	ttl   time.Duration
}

// NewCachedSearcher wraps next with a cache of raw search hits.
func NewCachedSearcher(next Searcher, store Store, ttl time.Duration) *CachedSearcher {
	return &CachedSearcher{next: next, store: store, ttl: ttl}
}

// Search implements Searcher.
func (c *CachedSearcher) Search(ctx context.Context, query string) ([]TrackRecord, error) {
	key := cacheKey(query)

	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		log.Printf("[cache] get %q failed: %v", key, err)
	} else if ok {
		var hits []TrackRecord
		if err := json.Unmarshal(data, &hits); err == nil {
			return hits, nil
		}
		log.Printf("[cache] discarding undecodable entry %q", key)
	}

	hits, err := c.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(hits); err == nil {
		if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
			log.Printf("[cache] set %q failed: %v", key, err)
		}
	}
	return hits, nil
}

func cacheKey(query string) string {
	return cacheKeyPrefix + strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// RedisStore implements Store on a Redis server.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisStore connects to addr and verifies the connection with PING.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	log.Printf("[cache] connected to redis at %s", addr)
	return &RedisStore{client: client, timeout: 3 * time.Second}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
