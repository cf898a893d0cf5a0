// Package db declares the key-value storage the catalog, the profile store,
// the embedding cache and the budget counters share.
package db

import (
	"context"
	"time"
)

// Store is everything the process needs from one Redis-protocol server.
type Store interface {
	Pinger
	HashStore
	KVStore
	CounterStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem is one product or profile hash written by HSetMulti.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore holds catalog products and user profiles. Multi-key calls are
// pipelined in batches; a missing hash reads as an empty map.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// KVStore holds opaque values such as cached embeddings.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CounterIncr adds Delta to an integer counter. The first write of a counter
// fixes its expiry at TTL; later writes leave it alone.
type CounterIncr struct {
	Key   string
	Delta int64
	TTL   time.Duration
}

// CounterStore maintains expiring integer counters.
type CounterStore interface {
	IncrCounters(ctx context.Context, incrs []CounterIncr) error
}
