package filter

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/prodsearch/internal/domain/product"
)

// Filters are the structured constraints a ranked product must satisfy.
// The zero value is not usable; start from None().
type Filters struct {
	maxPrice  float64
	minRating float64
	brand     string
	region    string
}

// None returns filters that accept every in-stock product.
func None() Filters {
	return Filters{maxPrice: math.Inf(1)}
}

// WithMaxPrice returns a copy with a price ceiling.
func (f Filters) WithMaxPrice(p float64) Filters {
	f.maxPrice = p
	return f
}

// WithMinRating returns a copy with a rating floor.
func (f Filters) WithMinRating(r float64) Filters {
	f.minRating = r
	return f
}

// WithBrand returns a copy constrained to a brand (stored lower-case).
func (f Filters) WithBrand(b string) Filters {
	f.brand = strings.ToLower(strings.TrimSpace(b))
	return f
}

// WithRegion returns a copy constrained to a region (stored lower-case).
func (f Filters) WithRegion(r string) Filters {
	f.region = strings.ToLower(strings.TrimSpace(r))
	return f
}

// Tighten combines f with explicit bounds; the stricter value of each wins.
func (f Filters) Tighten(maxPrice, minRating *float64) Filters {
	if maxPrice != nil && *maxPrice < f.maxPrice {
		f.maxPrice = *maxPrice
	}
	if minRating != nil && *minRating > f.minRating {
		f.minRating = *minRating
	}
	return f
}

// MaxPrice returns the price ceiling (+Inf when unset).
func (f Filters) MaxPrice() float64 { return f.maxPrice }

// MinRating returns the rating floor (0 when unset).
func (f Filters) MinRating() float64 { return f.minRating }

// Brand returns the brand constraint, empty when unset.
func (f Filters) Brand() string { return f.brand }

// Region returns the region constraint, empty when unset.
func (f Filters) Region() string { return f.region }

// IsEmpty reports whether no constraint beyond stock is set.
func (f Filters) IsEmpty() bool {
	return math.IsInf(f.maxPrice, 1) && f.minRating == 0 && f.brand == "" && f.region == ""
}

// Reject returns the first reason p fails the filters, or "" when p is accepted.
// Checks run in the order price, rating, stock, brand, region.
func (f Filters) Reject(p product.Product) string {
	switch {
	case p.Price() > f.maxPrice:
		return "price"
	case p.Rating() < f.minRating:
		return "rating"
	case !p.InStock():
		return "stock"
	case f.brand != "" && !p.Mentions(f.brand):
		return "brand"
	case f.region != "" && !p.Mentions(f.region):
		return "region"
	}
	return ""
}

// Accepts reports whether p passes every constraint.
func (f Filters) Accepts(p product.Product) bool { return f.Reject(p) == "" }

// String renders the filters for logs.
func (f Filters) String() string {
	var parts []string
	if !math.IsInf(f.maxPrice, 1) {
		parts = append(parts, fmt.Sprintf("max_price=%g", f.maxPrice))
	}
	if f.minRating > 0 {
		parts = append(parts, fmt.Sprintf("min_rating=%g", f.minRating))
	}
	if f.brand != "" {
		parts = append(parts, "brand="+f.brand)
	}
	if f.region != "" {
		parts = append(parts, "region="+f.region)
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}
