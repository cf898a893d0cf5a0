package prodsearch

import "time"

// Intent labels returned by Chat.
const (
	IntentProductSearch  = "product_search"
	IntentRecommendation = "recommendation"
	IntentOrderTracking  = "order_tracking"
	IntentGeneral        = "general_inquiry"
)

// SearchRequest is a product search. Nil fields use server defaults.
type SearchRequest struct {
	Query     string   `json:"query"`
	K         *int     `json:"k,omitempty"`
	MinRating *float64 `json:"min_rating,omitempty"`
	MaxPrice  *float64 `json:"max_price,omitempty"`
}

// Product is a catalog product. SimilarityScore, Score and Rank are set
// only on ranked results.
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

// SearchResult is a ranked product list.
type SearchResult struct {
	Products []Product `json:"products"`
	Count    int       `json:"count"`
	// CacheHit reports whether the server answered from its result cache.
	CacheHit bool `json:"-"`
}

// Answer is a generated answer grounded in the listed products.
type Answer struct {
	Text     string    `json:"answer"`
	Products []Product `json:"products"`
	Model    string    `json:"model,omitempty"`
}

// ChatReply is the routed response to a chat message.
type ChatReply struct {
	Intent   string    `json:"intent"`
	Reply    string    `json:"reply"`
	Products []Product `json:"products"`
}

// ReindexStats describes a completed index rebuild.
type ReindexStats struct {
	Version    uint64 `json:"version"`
	Indexed    int    `json:"indexed"`
	Unindexed  int    `json:"unindexed"`
	Rejected   int    `json:"rejected"`
	DurationMS int64  `json:"duration_ms"`
}

// Duration returns the rebuild time.
func (s ReindexStats) Duration() time.Duration {
	return time.Duration(s.DurationMS) * time.Millisecond
}
