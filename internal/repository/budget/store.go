// Package budget persists per-provider token counters for the budget tracker.
package budget

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/prodsearch/internal/db"
)

// Default counter lifetimes. A counter outlives its period so the previous
// day or month can still be inspected.
const (
	DefaultDailyTTL   = 48 * time.Hour
	DefaultMonthlyTTL = 62 * 24 * time.Hour
)

type counters interface {
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	IncrCounters(ctx context.Context, incrs []db.CounterIncr) error
}

// Store keeps one daily and one monthly counter per provider:
//
//	{prefix}budget:{<provider>}:daily:2006-01-02
//	{prefix}budget:{<provider>}:monthly:2006-01
//
// The braces are a cluster hash tag, so a provider's counters share a slot
// and load with one MGET.
type Store struct {
	kv         counters
	prefix     string
	dailyTTL   time.Duration
	monthlyTTL time.Duration
}

// New creates a budget store. Non-positive TTLs take the defaults.
func New(kv counters, prefix string, dailyTTL, monthlyTTL time.Duration) *Store {
	if dailyTTL <= 0 {
		dailyTTL = DefaultDailyTTL
	}
	if monthlyTTL <= 0 {
		monthlyTTL = DefaultMonthlyTTL
	}
	return &Store{kv: kv, prefix: prefix, dailyTTL: dailyTTL, monthlyTTL: monthlyTTL}
}

// DailyKey returns the counter key for provider on the UTC day of at.
func (s *Store) DailyKey(provider string, at time.Time) string {
	return fmt.Sprintf("%sbudget:{%s}:daily:%s", s.prefix, provider, at.UTC().Format("2006-01-02"))
}

// MonthlyKey returns the counter key for provider in the UTC month of at.
func (s *Store) MonthlyKey(provider string, at time.Time) string {
	return fmt.Sprintf("%sbudget:{%s}:monthly:%s", s.prefix, provider, at.UTC().Format("2006-01"))
}

// Add charges tokens to provider's day and month counters in one pipeline.
func (s *Store) Add(ctx context.Context, provider string, at time.Time, tokens int64) error {
	if tokens <= 0 {
		return nil
	}
	err := s.kv.IncrCounters(ctx, []db.CounterIncr{
		{Key: s.DailyKey(provider, at), Delta: tokens, TTL: s.dailyTTL},
		{Key: s.MonthlyKey(provider, at), Delta: tokens, TTL: s.monthlyTTL},
	})
	if err != nil {
		return fmt.Errorf("budget %s add %d: %w", provider, tokens, err)
	}
	return nil
}

// Load returns provider's usage for the day and month containing at.
// Counters that do not exist yet read as zero.
func (s *Store) Load(ctx context.Context, provider string, at time.Time) (daily, monthly int64, err error) {
	keys := []string{s.DailyKey(provider, at), s.MonthlyKey(provider, at)}
	vals, err := s.kv.MGet(ctx, keys)
	if err != nil {
		return 0, 0, fmt.Errorf("budget %s load: %w", provider, err)
	}
	if len(vals) != len(keys) {
		return 0, 0, fmt.Errorf("budget %s load: got %d values for %d keys", provider, len(vals), len(keys))
	}

	out := make([]int64, len(keys))
	for i, v := range vals {
		if v == nil {
			continue
		}
		if out[i], err = strconv.ParseInt(string(v), 10, 64); err != nil {
			return 0, 0, fmt.Errorf("budget %s load %s: %w", provider, keys[i], err)
		}
	}
	return out[0], out[1], nil
}
