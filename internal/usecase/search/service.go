package search

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/request"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/result"
	"github.com/kailas-cloud/prodsearch/internal/repository/resultcache"
)

// Response is a ranked result list and whether it came from the cache.
type Response struct {
	Results  []result.Ranked
	CacheHit bool
}

// DefaultExtractTimeout bounds the entity extractor when no timeout is set.
const DefaultExtractTimeout = 3 * time.Second

// Service answers product queries: embed, filter-extract, rank, cache.
type Service struct {
	index    IndexProvider
	embed    Embedder
	entities domain.EntityExtractor
	cache    Cache
	ranker   *Ranker
	logger   *zap.Logger

	extractTimeout time.Duration
}

// New creates a search service. entities and cache may be nil.
func New(
	index IndexProvider, embed Embedder, entities domain.EntityExtractor,
	cache Cache, ranker *Ranker, logger *zap.Logger,
) *Service {
	if ranker == nil {
		ranker = NewRanker(0, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		index:    index,
		embed:    embed,
		entities: entities,
		cache:    cache,
		ranker:   ranker,
		logger:   logger,

		extractTimeout: DefaultExtractTimeout,
	}
}

// WithExtractTimeout bounds each entity extractor call. Non-positive values
// keep the default.
func (s *Service) WithExtractTimeout(d time.Duration) *Service {
	if d > 0 {
		s.extractTimeout = d
	}
	return s
}

// Search returns the top req.TopK() products for the query.
// ents, when non-nil, are used instead of running the entity extractor and
// get their own cache entries. Results ranked after an extractor failure
// are returned but not cached.
func (s *Service) Search(ctx context.Context, req *request.Request, ents domain.Entities) (Response, error) {
	compute := func(ctx context.Context) ([]result.Ranked, bool, error) {
		return s.rank(ctx, req, ents)
	}

	if s.cache == nil {
		rs, _, err := compute(ctx)
		if err != nil {
			return Response{}, err
		}
		return Response{Results: rs}, nil
	}

	key := resultcache.NewKey(req.Query(), req.TopK(), req.MinRating(), req.MaxPrice())
	if ents != nil {
		key = key.WithScope(entityScope(ents))
	}
	rs, hit, err := s.cache.GetOrCompute(ctx, key, compute)
	if err != nil {
		return Response{}, err
	}
	return Response{Results: rs, CacheHit: hit}, nil
}

// entityScope is a stable rendering of supplied entities for cache keys.
func entityScope(ents domain.Entities) string {
	parts := make([]string, 0, len(ents))
	for label, text := range ents {
		parts = append(parts, label+"="+strings.ToLower(strings.TrimSpace(text)))
	}
	slices.Sort(parts)
	return "entities:" + strings.Join(parts, ";")
}

// rank reports cacheable false when the extractor failed and the results
// were ranked without entities.
func (s *Service) rank(ctx context.Context, req *request.Request, ents domain.Entities) ([]result.Ranked, bool, error) {
	snap, err := s.index.Snapshot()
	if err != nil {
		return nil, false, fmt.Errorf("get snapshot: %w", err)
	}

	emb, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return nil, false, fmt.Errorf("vectorize query: %w", err)
	}

	cacheable := true
	if ents == nil {
		ents, cacheable = s.extractEntities(ctx, req.Query())
	}

	f := Extract(req.Query(), ents).Tighten(req.MaxPrice(), req.MinRating())

	rs, err := s.ranker.Rank(ctx, snap, req.Query(), emb.Embedding, f, req.TopK(), EntityKeywords(ents)...)
	if err != nil {
		return nil, false, err
	}

	s.logger.Debug("Search ranked",
		zap.String("query", req.Query()),
		zap.Stringer("filters", f),
		zap.Int("k", req.TopK()),
		zap.Int("results", len(rs)),
		zap.Uint64("index_version", snap.Version()),
		zap.Bool("cacheable", cacheable),
	)
	return rs, cacheable, nil
}

// extractEntities never fails: an extractor error or timeout means no
// entities, reported as ok false.
func (s *Service) extractEntities(ctx context.Context, query string) (domain.Entities, bool) {
	if s.entities == nil {
		return domain.Entities{}, true
	}
	ctx, cancel := context.WithTimeout(ctx, s.extractTimeout)
	defer cancel()

	ents, err := s.entities.ExtractEntities(ctx, query)
	if err != nil {
		s.logger.Warn("Entity extraction failed, continuing without entities",
			zap.Duration("timeout", s.extractTimeout), zap.Error(err))
		return domain.Entities{}, false
	}
	if ents == nil {
		return domain.Entities{}, true
	}
	return ents, true
}
