package product

import (
	"math"
	"strings"

	"github.com/kailas-cloud/prodsearch/internal/domain"
)

// MaxRating is the upper bound of the rating scale.
const MaxRating = 5.0

// Attrs holds the raw fields of a catalog record before validation.
type Attrs struct {
	ID               string
	Title            string
	Description      string
	Price            float64
	Rating           float64
	Stock            int
	Categories       []string
	Embedding        []float32
	ImageURL         string
	URL              string
	SourceCollection string
}

// Product is the catalog aggregate (immutable value object).
type Product struct {
	id               string
	title            string
	description      string
	price            float64
	rating           float64
	stock            int
	categories       []string
	embedding        []float32
	imageURL         string
	url              string
	sourceCollection string
}

// New validates a catalog record.
// The returned error is always a *domain.DataQualityError.
func New(a Attrs) (Product, error) {
	id := strings.TrimSpace(a.ID)
	if id == "" {
		return Product{}, domain.NewDataQualityError("", "id is required")
	}
	if math.IsNaN(a.Price) || math.IsInf(a.Price, 0) || a.Price < 0 {
		return Product{}, domain.NewDataQualityError(id, "price %v must be a non-negative number", a.Price)
	}
	if math.IsNaN(a.Rating) || a.Rating < 0 || a.Rating > MaxRating {
		return Product{}, domain.NewDataQualityError(id, "rating %v must be within [0, %v]", a.Rating, MaxRating)
	}
	if a.Stock < 0 {
		return Product{}, domain.NewDataQualityError(id, "stock %d must be non-negative", a.Stock)
	}
	for i, f := range a.Embedding {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return Product{}, domain.NewDataQualityError(id, "embedding component %d is not finite", i)
		}
	}

	return Product{
		id:               id,
		title:            a.Title,
		description:      a.Description,
		price:            a.Price,
		rating:           a.Rating,
		stock:            a.Stock,
		categories:       cloneStrings(a.Categories),
		embedding:        cloneVector(a.Embedding),
		imageURL:         a.ImageURL,
		url:              a.URL,
		sourceCollection: a.SourceCollection,
	}, nil
}

// ID returns the catalog identifier.
func (p Product) ID() string { return p.id }

// Title returns the product title.
func (p Product) Title() string { return p.title }

// Description returns the product description.
func (p Product) Description() string { return p.description }

// Price returns the final price.
func (p Product) Price() float64 { return p.price }

// Rating returns the average rating in [0, 5].
func (p Product) Rating() float64 { return p.rating }

// Stock returns the units available.
func (p Product) Stock() int { return p.stock }

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool { return p.stock > 0 }

// Categories returns the category labels.
func (p Product) Categories() []string { return p.categories }

// Embedding returns the raw (unnormalized) embedding, nil when absent.
func (p Product) Embedding() []float32 { return p.embedding }

// HasEmbedding reports whether the product can be indexed.
func (p Product) HasEmbedding() bool { return len(p.embedding) > 0 }

// ImageURL returns the primary image URL.
func (p Product) ImageURL() string { return p.imageURL }

// URL returns the product page URL.
func (p Product) URL() string { return p.url }

// SourceCollection returns the provenance tag of the catalog this record came from.
func (p Product) SourceCollection() string { return p.sourceCollection }

// WithEmbedding returns a copy carrying the given embedding.
func (p Product) WithEmbedding(v []float32) Product {
	c := p
	c.embedding = cloneVector(v)
	return c
}

// SearchText is the lower-cased title and description used for lexical matching.
func (p Product) SearchText() string {
	return strings.ToLower(p.title + " " + p.description)
}

// EmbeddingText is the text an embedder should vectorize for this product.
func (p Product) EmbeddingText() string {
	return strings.TrimSpace(p.title + " " + p.description)
}

// Mentions reports whether term (lower-case) occurs in the title,
// description or any category.
func (p Product) Mentions(term string) bool {
	if term == "" {
		return true
	}
	if strings.Contains(p.SearchText(), term) {
		return true
	}
	for _, c := range p.categories {
		if strings.Contains(strings.ToLower(c), term) {
			return true
		}
	}
	return false
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}

func cloneVector(v []float32) []float32 {
	if v == nil {
		return nil
	}
	c := make([]float32, len(v))
	copy(c, v)
	return c
}
