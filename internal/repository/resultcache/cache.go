// Package resultcache memoizes ranked search results in process memory
// with LRU eviction and a fixed TTL.
package resultcache

import (
	"container/list"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/prodsearch/internal/clock"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/result"
)

// Defaults used when the config leaves capacity or TTL unset.
const (
	DefaultCapacity       = 100
	DefaultTTL            = time.Hour
	DefaultComputeTimeout = 30 * time.Second
)

// Key identifies a cached result list.
type Key struct {
	query  string
	k      int
	bounds string
	scope  string
}

// NewKey normalizes the query (lower-case, trimmed, whitespace collapsed)
// and pairs it with k and any explicit request bounds.
func NewKey(query string, k int, minRating, maxPrice *float64) Key {
	var b strings.Builder
	if minRating != nil {
		b.WriteString("r>=" + strconv.FormatFloat(*minRating, 'g', -1, 64))
	}
	if maxPrice != nil {
		if b.Len() > 0 {
			b.WriteByte(';')
		}
		b.WriteString("p<=" + strconv.FormatFloat(*maxPrice, 'g', -1, 64))
	}
	return Key{query: Normalize(query), k: k, bounds: b.String()}
}

// Normalize lower-cases, trims and collapses internal whitespace.
func Normalize(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// WithScope returns a copy of the key partitioned by scope, for results
// that depend on more than the query text (e.g. caller-supplied entities).
func (k Key) WithScope(scope string) Key {
	k.scope = scope
	return k
}

// Query returns the normalized query.
func (k Key) Query() string { return k.query }

func (k Key) String() string {
	return fmt.Sprintf("%s|%d|%s|%s", k.query, k.k, k.bounds, k.scope)
}

// ComputeFunc produces the results for a missing key. cacheable false
// hands the results to the waiting callers without storing them.
type ComputeFunc func(ctx context.Context) (rs []result.Ranked, cacheable bool, err error)

type entry struct {
	key       Key
	results   []result.Ranked
	createdAt time.Time
}

// Cache is a concurrency-safe TTL + LRU cache for ranked results.
type Cache struct {
	mu       sync.Mutex
	items    map[Key]*list.Element
	order    *list.List // front = most recently used
	capacity int
	ttl      time.Duration
	clock    clock.Clock
	group    singleflight.Group
	// computeTimeout bounds a shared compute, which outlives any one caller.
	computeTimeout time.Duration

	lookups *prometheus.CounterVec
	logger  *zap.Logger
}

// New creates a Cache.
// lookups is a counter vec with label "result" ("hit"/"miss"), passed explicitly; may be nil.
func New(capacity int, ttl time.Duration, clk clock.Clock, lookups *prometheus.CounterVec, logger *zap.Logger) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		items:          make(map[Key]*list.Element, capacity),
		order:          list.New(),
		capacity:       capacity,
		ttl:            ttl,
		clock:          clk,
		computeTimeout: DefaultComputeTimeout,
		lookups:        lookups,
		logger:         logger,
	}
}

// WithComputeTimeout sets the deadline of a shared compute. Non-positive
// values keep the default.
func (c *Cache) WithComputeTimeout(d time.Duration) *Cache {
	if d > 0 {
		c.computeTimeout = d
	}
	return c
}

// GetOrCompute returns the cached results for key or runs compute once for
// all concurrent callers of the same key. The bool reports a cache hit.
// The shared compute ignores cancellation of whichever caller started it
// and runs under its own deadline; a caller that gives up only stops
// waiting. A failed compute stores nothing.
func (c *Cache) GetOrCompute(ctx context.Context, key Key, compute ComputeFunc) ([]result.Ranked, bool, error) {
	if rs, ok := c.get(key); ok {
		c.count("hit")
		return rs, true, nil
	}
	c.count("miss")
	if err := ctx.Err(); err != nil {
		return nil, false, fmt.Errorf("result cache: %w", err)
	}

	ch := c.group.DoChan(key.String(), func() (any, error) {
		if rs, ok := c.get(key); ok {
			return rs, nil
		}
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.computeTimeout)
		defer cancel()

		rs, cacheable, err := compute(sharedCtx)
		if err != nil {
			return nil, err
		}
		if cacheable {
			c.put(key, rs)
		} else {
			c.logger.Debug("Result not cached", zap.Stringer("key", key))
		}
		return rs, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("result cache: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		rs, _ := res.Val.([]result.Ranked)
		return slices.Clone(rs), false, nil
	}
}

// Get returns a live entry without computing.
func (c *Cache) Get(key Key) ([]result.Ranked, bool) {
	return c.get(key)
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	n := len(c.items)
	c.items = make(map[Key]*list.Element, c.capacity)
	c.order.Init()
	c.mu.Unlock()
	c.logger.Debug("Result cache purged", zap.Int("entries", n))
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) get(key Key) ([]result.Ranked, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e, _ := el.Value.(*entry)
	if c.clock.Now().Sub(e.createdAt) > c.ttl {
		c.order.Remove(el)
		delete(c.items, key)
		return nil, false
	}
	c.order.MoveToFront(el)
	return slices.Clone(e.results), true
}

func (c *Cache) put(key Key, rs []result.Ranked) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry{key: key, results: slices.Clone(rs), createdAt: c.clock.Now()}
	if el, ok := c.items[key]; ok {
		el.Value = e
		c.order.MoveToFront(el)
		return
	}
	for len(c.items) >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		old, _ := oldest.Value.(*entry)
		c.order.Remove(oldest)
		delete(c.items, old.key)
	}
	c.items[key] = c.order.PushFront(e)
}

func (c *Cache) count(res string) {
	if c.lookups != nil {
		c.lookups.WithLabelValues(res).Inc()
	}
}
