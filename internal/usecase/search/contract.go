package search

import (
	"context"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/result"
	"github.com/kailas-cloud/prodsearch/internal/repository/resultcache"
	"github.com/kailas-cloud/prodsearch/internal/vectorindex"
)

// Index is the read side of a vector index snapshot.
type Index interface {
	Search(query []float32, k int) ([]vectorindex.Hit, error)
}

// IndexProvider hands out the currently published snapshot.
type IndexProvider interface {
	Snapshot() (*vectorindex.Snapshot, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Cache memoizes ranked results per normalized query.
type Cache interface {
	GetOrCompute(ctx context.Context, key resultcache.Key, compute resultcache.ComputeFunc) ([]result.Ranked, bool, error)
}
