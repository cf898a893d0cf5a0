package chi

import (
	"time"

	"github.com/kailas-cloud/prodsearch/internal/domain/product"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/result"
	cataloguc "github.com/kailas-cloud/prodsearch/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/prodsearch/internal/usecase/health"
	usageuc "github.com/kailas-cloud/prodsearch/internal/usecase/usage"
)

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query     string   `json:"query"`
	K         *int     `json:"k,omitempty"`
	MinRating *float64 `json:"min_rating,omitempty"`
	MaxPrice  *float64 `json:"max_price,omitempty"`
}

// QueryRequest is the body of POST /ask.
type QueryRequest struct {
	Query string `json:"query"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id,omitempty"`
}

// Product is the wire form of a catalog product. Scores are only set on
// ranked results.
type Product struct {
	ID              string   `json:"product_id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Price           float64  `json:"price"`
	Rating          float64  `json:"rating"`
	Stock           int      `json:"stock"`
	Categories      []string `json:"categories,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
	URL             string   `json:"url,omitempty"`
	SimilarityScore *float64 `json:"similarity_score,omitempty"`
	Score           *float64 `json:"score,omitempty"`
	Rank            int      `json:"rank,omitempty"`
}

// ProductListResponse is returned by search and recommendations.
type ProductListResponse struct {
	Products []Product `json:"products"`
	Count    int       `json:"count"`
}

// AnswerResponse is returned by POST /ask.
type AnswerResponse struct {
	Answer   string    `json:"answer"`
	Products []Product `json:"products"`
	Model    string    `json:"model,omitempty"`
}

// ChatResponse is returned by POST /chat.
type ChatResponse struct {
	Intent   string    `json:"intent"`
	Reply    string    `json:"reply"`
	Products []Product `json:"products"`
}

// ReindexResponse is returned by POST /admin/reindex.
type ReindexResponse struct {
	Version    uint64 `json:"version"`
	Indexed    int    `json:"indexed"`
	Unindexed  int    `json:"unindexed"`
	Rejected   int    `json:"rejected"`
	DurationMS int64  `json:"duration_ms"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status       string            `json:"status"`
	Checks       map[string]string `json:"checks"`
	ProductCount int               `json:"product_count"`
	IndexVersion uint64            `json:"index_version"`
}

// BudgetUsage is one provider's entry in UsageResponse. Remaining is -1
// when the budget is unlimited.
type BudgetUsage struct {
	Provider  string `json:"provider"`
	Limit     int64  `json:"limit"`
	Used      int64  `json:"used"`
	Remaining int64  `json:"remaining"`
	Exhausted bool   `json:"exhausted"`
}

// UsageResponse is returned by GET /usage.
type UsageResponse struct {
	Period      string        `json:"period"`
	PeriodStart time.Time     `json:"period_start"`
	PeriodEnd   time.Time     `json:"period_end"`
	Budgets     []BudgetUsage `json:"budgets"`
}

func productToDTO(p product.Product) Product {
	return Product{
		ID:          p.ID(),
		Title:       p.Title(),
		Description: p.Description(),
		Price:       p.Price(),
		Rating:      p.Rating(),
		Stock:       p.Stock(),
		Categories:  p.Categories(),
		ImageURL:    p.ImageURL(),
		URL:         p.URL(),
	}
}

func rankedToDTO(r result.Ranked) Product {
	out := productToDTO(r.Product())
	raw, boosted := r.RawScore(), r.BoostedScore()
	out.SimilarityScore = &raw
	out.Score = &boosted
	out.Rank = r.Rank()
	return out
}

func rankedListToDTO(rs []result.Ranked) []Product {
	out := make([]Product, len(rs))
	for i := range rs {
		out[i] = rankedToDTO(rs[i])
	}
	return out
}

func productsToDTO(ps []product.Product) []Product {
	out := make([]Product, len(ps))
	for i := range ps {
		out[i] = productToDTO(ps[i])
	}
	return out
}

func statsToDTO(s cataloguc.Stats) ReindexResponse {
	return ReindexResponse{
		Version:    s.Version,
		Indexed:    s.Indexed,
		Unindexed:  s.Unindexed,
		Rejected:   s.Rejected,
		DurationMS: s.Duration.Milliseconds(),
	}
}

func healthToDTO(r healthuc.Report) HealthResponse {
	checks := make(map[string]string, len(r.Checks))
	for k, v := range r.Checks {
		checks[k] = string(v)
	}
	return HealthResponse{
		Status:       string(r.Status),
		Checks:       checks,
		ProductCount: r.ProductCount,
		IndexVersion: r.IndexVersion,
	}
}

func usageToDTO(r usageuc.Report) UsageResponse {
	budgets := make([]BudgetUsage, 0, len(r.Budgets))
	for _, b := range r.Budgets {
		budgets = append(budgets, BudgetUsage{
			Provider:  b.Provider,
			Limit:     b.Limit,
			Used:      b.Used,
			Remaining: b.Remaining,
			Exhausted: b.Exhausted,
		})
	}
	return UsageResponse{
		Period:      string(r.Period),
		PeriodStart: r.Start,
		PeriodEnd:   r.End,
		Budgets:     budgets,
	}
}
