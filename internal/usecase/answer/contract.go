package answer

import (
	"context"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/request"
	"github.com/kailas-cloud/prodsearch/internal/usecase/search"
)

// Searcher retrieves ranked products for a query.
type Searcher interface {
	Search(ctx context.Context, req *request.Request, ents domain.Entities) (search.Response, error)
}

// BudgetChecker enforces the generation token budget.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// Limiter gates calls to the generation backend.
type Limiter interface {
	Allow() bool
}
