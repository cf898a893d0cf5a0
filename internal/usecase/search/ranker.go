package search

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/kailas-cloud/prodsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/result"
)

// Ranking defaults.
const (
	DefaultOverfetch   = 3
	DefaultBoostWeight = 0.1
)

// Ranker turns nearest-neighbour hits into a filtered, keyword-boosted list.
type Ranker struct {
	overfetch   int
	boostWeight float64
}

// NewRanker creates a Ranker. Non-positive values fall back to defaults.
func NewRanker(overfetch int, boostWeight float64) *Ranker {
	if overfetch <= 0 {
		overfetch = DefaultOverfetch
	}
	if boostWeight <= 0 {
		boostWeight = DefaultBoostWeight
	}
	return &Ranker{overfetch: overfetch, boostWeight: boostWeight}
}

// Rank over-fetches k*overfetch candidates, accepts them in raw-score order
// until k pass the filters, boosts each by matched query keywords and
// returns them sorted by boosted score (stable on raw order).
// extraKeywords are tagger-supplied adjectives merged into the query keywords.
func (r *Ranker) Rank(
	ctx context.Context, idx Index,
	query string, vector []float32, f filter.Filters, k int,
	extraKeywords ...string,
) ([]result.Ranked, error) {
	if k <= 0 {
		return []result.Ranked{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}

	hits, err := idx.Search(vector, k*r.overfetch)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	keywords := Keywords(query, nil)
	for _, kw := range extraKeywords {
		if !slices.Contains(keywords, kw) {
			keywords = append(keywords, kw)
		}
	}

	out := make([]result.Ranked, 0, k)
	for _, h := range hits {
		if len(out) == k {
			break
		}
		if !f.Accepts(h.Product) {
			continue
		}
		matches := CountMatches(h.Product.SearchText(), keywords)
		boosted := h.Score * (1 + r.boostWeight*float64(matches))
		out = append(out, result.New(h.Product, h.Score, boosted, matches))
	}

	slices.SortStableFunc(out, func(a, b result.Ranked) int {
		return cmp.Compare(b.BoostedScore(), a.BoostedScore())
	})
	for i := range out {
		out[i] = out[i].WithRank(i + 1)
	}
	return out, nil
}
