package request

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length in characters.
	MaxQueryLength = 1024
	DefaultTopK    = 10
	MaxTopK        = 50
)

// Request is a validated search query with optional explicit bounds.
type Request struct {
	query     string
	topK      int
	minRating *float64
	maxPrice  *float64
}

// New validates and normalizes search parameters.
// topK <= 0 falls back to defaultK (or DefaultTopK); topK above maxK is clamped.
func New(query string, topK, defaultK, maxK int, minRating, maxPrice *float64) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("query is required")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if defaultK <= 0 {
		defaultK = DefaultTopK
	}
	if maxK <= 0 {
		maxK = MaxTopK
	}
	if topK <= 0 {
		topK = defaultK
	}
	if topK > maxK {
		topK = maxK
	}
	if minRating != nil && (*minRating < 0 || *minRating > 5) {
		return Request{}, fmt.Errorf("min_rating must be between 0 and 5")
	}
	if maxPrice != nil && *maxPrice < 0 {
		return Request{}, fmt.Errorf("max_price must be non-negative")
	}

	return Request{
		query:     query,
		topK:      topK,
		minRating: copyFloat(minRating),
		maxPrice:  copyFloat(maxPrice),
	}, nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// TopK returns the number of results to return.
func (r *Request) TopK() int { return r.topK }

// MinRating returns the explicit rating floor, nil when not supplied.
func (r *Request) MinRating() *float64 { return r.minRating }

// MaxPrice returns the explicit price ceiling, nil when not supplied.
func (r *Request) MaxPrice() *float64 { return r.maxPrice }

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
