package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/prodsearch/internal/db"
)

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.b().Get().Key(key).Build()
	data, err := s.do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Key: key, Err: err}
	}
	return data, nil
}

// MGet retrieves several values in one round-trip.
// Missing keys yield nil entries at their position.
// Keys must hash to one slot when the server is a cluster.
func (s *Store) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	cmd := s.b().Mget().Key(keys...).Build()
	arr, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpMGet, Err: err}
	}
	out := make([][]byte, len(arr))
	for i := range arr {
		if arr[i].IsNil() {
			continue
		}
		b, err := arr[i].AsBytes()
		if err != nil {
			return nil, &db.Error{Op: db.OpMGet, Key: keys[i], Err: err}
		}
		out[i] = b
	}
	return out, nil
}

// Set stores a value at the given key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	cmd := s.b().Set().Key(key).Value(string(value)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Key: key, Err: err}
	}
	return nil
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := s.b().Set().Key(key).Value(string(value)).Ex(ttl).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Key: key, Err: err}
	}
	return nil
}

// IncrCounters applies each increment followed by EXPIRE NX on its key, all
// in pipelined batches. A counter keeps the expiry set by its first write.
func (s *Store) IncrCounters(ctx context.Context, incrs []db.CounterIncr) error {
	if len(incrs) == 0 {
		return nil
	}
	cmds := make([]rueidis.Completed, 0, 2*len(incrs))
	for _, c := range incrs {
		cmds = append(cmds,
			s.b().Incrby().Key(c.Key).Increment(c.Delta).Build(),
			s.b().Expire().Key(c.Key).Seconds(int64(c.TTL/time.Second)).Nx().Build(),
		)
	}

	results, err := s.doBatched(ctx, cmds)
	if err != nil {
		return &db.Error{Op: db.OpIncrBy, Err: err}
	}
	for i, res := range results {
		if err := res.Error(); err != nil {
			op := db.OpIncrBy
			if i%2 == 1 {
				op = db.OpExpireNX
			}
			return &db.Error{Op: op, Key: incrs[i/2].Key, Err: err}
		}
	}
	return nil
}
