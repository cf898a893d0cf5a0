// Package budget enforces daily and monthly token limits for paid model
// backends (embeddings, generation).
package budget

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/clock"
)

// Action defines behavior when a token budget is exceeded.
type Action string

const (
	// ActionWarn logs a warning but allows the request.
	ActionWarn Action = "warn"
	// ActionReject blocks the request.
	ActionReject Action = "reject"
)

// Store persists a provider's counters for the day and month containing at.
type Store interface {
	Add(ctx context.Context, provider string, at time.Time, tokens int64) error
	Load(ctx context.Context, provider string, at time.Time) (daily, monthly int64, err error)
}

// Config describes one tracked provider.
type Config struct {
	// Provider labels keys, logs and metrics ("embedding", "generation").
	Provider     string
	DailyLimit   int64
	MonthlyLimit int64
	Action       Action
	// Exceeded is returned by Check when Action is reject.
	Exceeded error
}

// Tracker is an in-memory token budget tracker with optional persistence.
// Check is in-memory only; Record updates memory first, then writes behind to the store.
type Tracker struct {
	mu             sync.Mutex
	cfg            Config
	dailyUsed      int64
	monthlyUsed    int64
	lastDayReset   time.Time
	lastMonthReset time.Time
	store          Store
	clock          clock.Clock
	logger         *zap.Logger
}

// NewTracker creates a tracker. A zero limit means unlimited.
func NewTracker(cfg Config, clk clock.Clock, logger *zap.Logger) *Tracker {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	now := clk.Now().UTC()
	return &Tracker{
		cfg:            cfg,
		lastDayReset:   truncateToDay(now),
		lastMonthReset: truncateToMonth(now),
		clock:          clk,
		logger:         logger,
	}
}

// WithStore attaches a persistence store and loads current counters.
func (b *Tracker) WithStore(ctx context.Context, store Store) *Tracker {
	b.store = store
	b.loadFromStore(ctx)
	return b
}

func (b *Tracker) loadFromStore(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	daily, monthly, err := b.store.Load(ctx, b.cfg.Provider, b.clock.Now().UTC())
	if err != nil {
		b.logger.Warn("Failed to load budget from store", zap.String("provider", b.cfg.Provider), zap.Error(err))
		return
	}
	b.dailyUsed, b.monthlyUsed = daily, monthly

	b.logger.Info("Budget loaded from store",
		zap.String("provider", b.cfg.Provider),
		zap.Int64("daily_used", b.dailyUsed),
		zap.Int64("monthly_used", b.monthlyUsed),
	)
}

// Check verifies the budget allows a new request.
func (b *Tracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetIfNeeded()

	dailyExceeded := b.cfg.DailyLimit > 0 && b.dailyUsed >= b.cfg.DailyLimit
	monthlyExceeded := b.cfg.MonthlyLimit > 0 && b.monthlyUsed >= b.cfg.MonthlyLimit

	if !dailyExceeded && !monthlyExceeded {
		return nil
	}

	if b.cfg.Action == ActionReject {
		return b.cfg.Exceeded
	}

	b.logger.Warn("Token budget exceeded",
		zap.String("provider", b.cfg.Provider),
		zap.Int64("daily_used", b.dailyUsed),
		zap.Int64("daily_limit", b.cfg.DailyLimit),
		zap.Int64("monthly_used", b.monthlyUsed),
		zap.Int64("monthly_limit", b.cfg.MonthlyLimit),
	)
	return nil
}

// Record registers consumed tokens after a request.
func (b *Tracker) Record(tokens int64) {
	if tokens <= 0 {
		return
	}

	b.mu.Lock()
	b.resetIfNeeded()
	b.dailyUsed += tokens
	b.monthlyUsed += tokens
	store := b.store
	now := b.clock.Now().UTC()
	b.mu.Unlock()

	if store == nil {
		return
	}

	// Background context: store writes must not inherit the caller's deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := store.Add(ctx, b.cfg.Provider, now, tokens); err != nil {
		b.logger.Warn("Failed to persist budget", zap.String("provider", b.cfg.Provider), zap.Error(err))
	}
}

// Provider returns the tracked provider label.
func (b *Tracker) Provider() string { return b.cfg.Provider }

// DailyLimit returns the configured daily limit (0 = unlimited).
func (b *Tracker) DailyLimit() int64 { return b.cfg.DailyLimit }

// MonthlyLimit returns the configured monthly limit (0 = unlimited).
func (b *Tracker) MonthlyLimit() int64 { return b.cfg.MonthlyLimit }

// RemainingDaily returns tokens left in the daily budget (-1 if unlimited).
func (b *Tracker) RemainingDaily() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetIfNeeded()
	return remaining(b.cfg.DailyLimit, b.dailyUsed)
}

// RemainingMonthly returns tokens left in the monthly budget (-1 if unlimited).
func (b *Tracker) RemainingMonthly() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetIfNeeded()
	return remaining(b.cfg.MonthlyLimit, b.monthlyUsed)
}

// DailyUsed returns tokens consumed today.
func (b *Tracker) DailyUsed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfNeeded()
	return b.dailyUsed
}

// MonthlyUsed returns tokens consumed this month.
func (b *Tracker) MonthlyUsed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfNeeded()
	return b.monthlyUsed
}

// resetIfNeeded zeroes counters when the day or month rolls over.
func (b *Tracker) resetIfNeeded() {
	now := b.clock.Now().UTC()
	today := truncateToDay(now)
	thisMonth := truncateToMonth(now)

	if today.After(b.lastDayReset) {
		b.dailyUsed = 0
		b.lastDayReset = today
	}
	if thisMonth.After(b.lastMonthReset) {
		b.monthlyUsed = 0
		b.lastMonthReset = thisMonth
	}
}

func remaining(limit, used int64) int64 {
	if limit == 0 {
		return -1
	}
	if used >= limit {
		return 0
	}
	return limit - used
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
