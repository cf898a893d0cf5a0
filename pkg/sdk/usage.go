package prodsearch

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// UsagePeriod is the budget window for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
)

// UsageReport contains token budget standing for a time period.
type UsageReport struct {
	Period      UsagePeriod    `json:"period"`
	PeriodStart time.Time      `json:"period_start"`
	PeriodEnd   time.Time      `json:"period_end"`
	Budgets     []BudgetStatus `json:"budgets"`
}

// BudgetStatus tracks one provider's token quota. Remaining is -1 and
// Limit 0 when the provider is unlimited.
type BudgetStatus struct {
	Provider  string `json:"provider"`
	Limit     int64  `json:"limit"`
	Used      int64  `json:"used"`
	Remaining int64  `json:"remaining"`
	Exhausted bool   `json:"exhausted"`
}

// Usage returns the token budget report for the given period. An empty
// period means the current month.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) (report UsageReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, err) }()

	path := "/usage"
	if period != "" {
		path += "?" + url.Values{"period": {string(period)}}.Encode()
	}
	_, err = c.do(ctx, http.MethodGet, path, nil, &report)
	return report, err
}
