package chi

import (
	"context"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/domain/product"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/request"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/result"
	answeruc "github.com/kailas-cloud/prodsearch/internal/usecase/answer"
	cataloguc "github.com/kailas-cloud/prodsearch/internal/usecase/catalog"
	chatuc "github.com/kailas-cloud/prodsearch/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/prodsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/prodsearch/internal/usecase/search"
	usageuc "github.com/kailas-cloud/prodsearch/internal/usecase/usage"
)

// Searcher runs product searches.
type Searcher interface {
	Search(ctx context.Context, req *request.Request, ents domain.Entities) (searchuc.Response, error)
}

// Answerer produces grounded answers.
type Answerer interface {
	Answer(ctx context.Context, query string) (answeruc.Result, error)
}

// Chatter routes chat messages.
type Chatter interface {
	Handle(ctx context.Context, req chatuc.Request) (chatuc.Reply, error)
}

// Recommender returns personalized products.
type Recommender interface {
	Recommend(ctx context.Context, userID string, k int) ([]result.Ranked, error)
}

// Catalog exposes product lookup and reindexing.
type Catalog interface {
	Product(id string) (product.Product, error)
	Rebuild(ctx context.Context) (cataloguc.Stats, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// UsageReporter reports token budget consumption.
type UsageReporter interface {
	Report(period usageuc.Period) usageuc.Report
}
