// Package usage reports token consumption against the embedding and
// generation budgets.
package usage

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/prodsearch/internal/clock"
)

// Period selects the budget window.
type Period string

const (
	// PeriodDay is the current UTC day.
	PeriodDay Period = "day"
	// PeriodMonth is the current UTC month.
	PeriodMonth Period = "month"
)

// ParsePeriod maps a query value onto a Period; empty means month.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodMonth:
		return PeriodMonth, nil
	case PeriodDay:
		return PeriodDay, nil
	default:
		return "", fmt.Errorf("period must be %q or %q, got %q", PeriodDay, PeriodMonth, s)
	}
}

// Budget is one provider's standing in the window. Limit 0 means unlimited,
// in which case Remaining is -1.
type Budget struct {
	Provider  string
	Limit     int64
	Used      int64
	Remaining int64
	Exhausted bool
}

// Report covers every tracked provider for one window.
type Report struct {
	Period  Period
	Start   time.Time
	End     time.Time
	Budgets []Budget
}

// Service handles usage reporting.
type Service struct {
	readers []BudgetReader
	clock   clock.Clock
}

// New creates a Service. Nil readers are skipped; with none the report
// lists no budgets.
func New(clk clock.Clock, readers ...BudgetReader) *Service {
	if clk == nil {
		clk = clock.Real{}
	}
	s := &Service{clock: clk}
	for _, r := range readers {
		if r != nil {
			s.readers = append(s.readers, r)
		}
	}
	return s
}

// Report builds a usage report for the given period.
func (s *Service) Report(period Period) Report {
	now := s.clock.Now().UTC()

	var start, end time.Time
	if period == PeriodDay {
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		end = start.Add(24 * time.Hour)
	} else {
		period = PeriodMonth
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	}

	budgets := make([]Budget, 0, len(s.readers))
	for _, r := range s.readers {
		b := Budget{Provider: r.Provider()}
		if period == PeriodDay {
			b.Limit, b.Used, b.Remaining = r.DailyLimit(), r.DailyUsed(), r.RemainingDaily()
		} else {
			b.Limit, b.Used, b.Remaining = r.MonthlyLimit(), r.MonthlyUsed(), r.RemainingMonthly()
		}
		b.Exhausted = b.Limit > 0 && b.Remaining <= 0
		budgets = append(budgets, b)
	}

	return Report{Period: period, Start: start, End: end, Budgets: budgets}
}
