// Package catalog reads raw product records from the configured catalog store.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/prodsearch/internal/db"
	"github.com/kailas-cloud/prodsearch/internal/domain/product"
)

// store is the consumer interface for the hash-backed catalog (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisSource keeps one hash per product under "<prefix>product:<id>".
type RedisSource struct {
	store  store
	prefix string
}

// NewRedisSource creates a hash-backed catalog source.
func NewRedisSource(s store, keyPrefix string) *RedisSource {
	return &RedisSource{store: s, prefix: keyPrefix + "product:"}
}

// FetchProducts returns every product hash ordered by key.
// Hashes that vanished between SCAN and HGETALL are skipped.
func (r *RedisSource) FetchProducts(ctx context.Context) ([]product.Record, error) {
	keys, err := r.store.Scan(ctx, r.prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan catalog: %w", err)
	}
	if len(keys) == 0 {
		return []product.Record{}, nil
	}
	sort.Strings(keys)

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load catalog hashes: %w", err)
	}

	out := make([]product.Record, 0, len(keys))
	for i, m := range hashes {
		if len(m) == 0 {
			continue
		}
		out = append(out, recordFromHash(strings.TrimPrefix(keys[i], r.prefix), m))
	}
	return out, nil
}

// Put writes records in one pipeline, replacing fields present in each record.
func (r *RedisSource) Put(ctx context.Context, records []product.Record) error {
	items := make([]db.HashSetItem, 0, len(records))
	for _, rec := range records {
		id := strings.TrimSpace(rec.ID)
		if id == "" {
			return fmt.Errorf("put catalog record %d: empty id", len(items))
		}
		items = append(items, db.HashSetItem{Key: r.prefix + id, Fields: hashFromRecord(rec)})
	}
	if len(items) == 0 {
		return nil
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return nil
}

// Delete removes products by id. Missing ids are ignored.
func (r *RedisSource) Delete(ctx context.Context, ids ...string) error {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			keys = append(keys, r.prefix+id)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("delete catalog records: %w", err)
	}
	return nil
}
