package chat

import (
	"context"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/request"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/result"
	"github.com/kailas-cloud/prodsearch/internal/usecase/search"
)

// Searcher retrieves ranked products for a query.
type Searcher interface {
	Search(ctx context.Context, req *request.Request, ents domain.Entities) (search.Response, error)
}

// Recommender returns personalized products for a user.
type Recommender interface {
	Recommend(ctx context.Context, userID string, k int) ([]result.Ranked, error)
}
