// Package recommend scores catalog products against a user's latent profile.
package recommend

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/domain/search/result"
)

// DefaultTopK is used when the caller asks for k <= 0.
const DefaultTopK = 10

// Service is the recommendation engine behind the chat and HTTP surfaces.
type Service struct {
	profiles ProfileStore
	index    IndexProvider
	logger   *zap.Logger
}

// New creates a recommendation service.
func New(profiles ProfileStore, index IndexProvider, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{profiles: profiles, index: index, logger: logger}
}

// Recommend returns the k in-stock indexed products with the highest
// profile score. Items with trained factors are scored on those; items
// without fall back to their embedding when it matches the profile size.
// A user without a profile yields domain.ErrProfileNotFound.
func (s *Service) Recommend(ctx context.Context, userID string, k int) ([]result.Ranked, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	profile, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	snap, err := s.index.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	items, err := s.profiles.ItemFactors(ctx)
	if err != nil {
		return nil, fmt.Errorf("load item factors: %w", err)
	}

	dim := len(profile.Factors())
	out := make([]result.Ranked, 0, k)
	for _, p := range snap.Products() {
		if !p.InStock() {
			continue
		}
		vec, ok := items[p.ID()]
		if !ok {
			if len(p.Embedding()) != dim {
				continue
			}
			vec = p.Embedding()
		}
		score := profile.Score(vec)
		out = append(out, result.New(p, score, score, 0))
	}

	slices.SortStableFunc(out, func(a, b result.Ranked) int {
		switch {
		case a.RawScore() > b.RawScore():
			return -1
		case a.RawScore() < b.RawScore():
			return 1
		}
		return 0
	})
	if len(out) > k {
		out = out[:k]
	}
	for i := range out {
		out[i] = out[i].WithRank(i + 1)
	}

	s.logger.Debug("Recommendations scored",
		zap.String("user_id", userID),
		zap.Int("k", k),
		zap.Int("results", len(out)),
		zap.Int("item_factors", len(items)),
	)
	return out, nil
}
