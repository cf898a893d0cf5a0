package redis

import (
	"context"
	"maps"
	"slices"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/prodsearch/internal/db"
)

// scanCount is the COUNT hint for catalog key scans.
const scanCount = 500

func (s *Store) hsetCmd(key string, fields map[string]string) rueidis.Completed {
	cmd := s.b().Hset().Key(key).FieldValue()
	// Sorted for a stable command line.
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		cmd = cmd.FieldValue(k, fields[k])
	}
	return cmd.Build()
}

// HSet sets hash fields. An empty field set is a no-op.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.do(ctx, s.hsetCmd(key, fields)).Error(); err != nil {
		return &db.Error{Op: db.OpHSet, Key: key, Err: err}
	}
	return nil
}

// HSetMulti writes many hashes in pipelined batches. Items without fields
// are skipped.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	cmds := make([]rueidis.Completed, 0, len(items))
	keys := make([]string, 0, len(items))
	for _, item := range items {
		if len(item.Fields) == 0 {
			continue
		}
		cmds = append(cmds, s.hsetCmd(item.Key, item.Fields))
		keys = append(keys, item.Key)
	}
	if len(cmds) == 0 {
		return nil
	}

	results, err := s.doBatched(ctx, cmds)
	if err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	for i, res := range results {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Key: keys[i], Err: err}
		}
	}
	return nil
}

// HGetAll returns all fields of a hash; a missing hash yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.do(ctx, s.b().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Key: key, Err: err}
	}
	return m, nil
}

// HGetAllMulti reads many hashes in pipelined batches. The result is
// aligned with keys.
func (s *Store) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Hgetall().Key(key).Build()
	}

	results, err := s.doBatched(ctx, cmds)
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	out := make([]map[string]string, len(results))
	for i, res := range results {
		m, err := res.AsStrMap()
		if err != nil {
			return nil, &db.Error{Op: db.OpHGetAll, Key: keys[i], Err: err}
		}
		out[i] = m
	}
	return out, nil
}

// Del removes keys, one DEL per key so cluster slots never mix.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Del().Key(key).Build()
	}

	results, err := s.doBatched(ctx, cmds)
	if err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	for i, res := range results {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpDel, Key: keys[i], Err: err}
		}
	}
	return nil
}

// Scan collects every key matching pattern. Keys are returned in SCAN order
// and may repeat if the keyspace is rehashed mid-scan; duplicates are dropped.
func (s *Store) Scan(ctx context.Context, pattern string) ([]string, error) {
	seen := make(map[string]struct{})
	var keys []string
	var cursor uint64
	for {
		cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(scanCount).Build()
		entry, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Key: pattern, Err: err}
		}
		for _, k := range entry.Elements {
			if _, dup := seen[k]; !dup {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
		if cursor = entry.Cursor; cursor == 0 {
			return keys, nil
		}
	}
}
