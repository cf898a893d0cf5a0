package result

import "github.com/kailas-cloud/prodsearch/internal/domain/product"

// Ranked is a single product in a final result list.
type Ranked struct {
	product product.Product
	raw     float64
	boosted float64
	rank    int
	matches int
}

// New creates a ranked result. The rank is assigned later with WithRank.
func New(p product.Product, raw, boosted float64, matches int) Ranked {
	return Ranked{product: p, raw: raw, boosted: boosted, matches: matches}
}

// WithRank returns a copy carrying the 1-based position in the final order.
func (r Ranked) WithRank(rank int) Ranked {
	r.rank = rank
	return r
}

// Product returns the matched product.
func (r Ranked) Product() product.Product { return r.product }

// RawScore returns the cosine similarity to the query.
func (r Ranked) RawScore() float64 { return r.raw }

// BoostedScore returns the score after keyword boosting.
func (r Ranked) BoostedScore() float64 { return r.boosted }

// Rank returns the 1-based position.
func (r Ranked) Rank() int { return r.rank }

// Matches returns how many query keywords the product text contains.
func (r Ranked) Matches() int { return r.matches }

// Products extracts the products of a result list, preserving order.
func Products(rs []Ranked) []product.Product {
	out := make([]product.Product, len(rs))
	for i := range rs {
		out[i] = rs[i].product
	}
	return out
}
