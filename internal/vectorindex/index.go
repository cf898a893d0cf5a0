// Package vectorindex is an exact inner-product index over unit-normalized
// product embeddings. A Snapshot is immutable once built and safe for
// concurrent readers.
package vectorindex

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/domain/product"
)

// Hit is a single nearest-neighbour match.
type Hit struct {
	Product product.Product
	Score   float64
}

// Snapshot is a versioned, read-only index.
type Snapshot struct {
	version  uint64
	dim      int
	products []product.Product // indexed, insertion order
	vectors  []float32         // len(products) * dim, unit norm rows
	byID     map[string]int    // every accepted product, index into all
	all      []product.Product
}

// Build indexes products in the given order.
// dim == 0 takes the dimension from the first embedded product.
// Products without an embedding are kept for id lookup but not indexed.
// Rejected records are reported, never fatal.
func Build(version uint64, dim int, products []product.Product) (*Snapshot, []domain.DataQualityError) {
	s := &Snapshot{
		version: version,
		dim:     dim,
		byID:    make(map[string]int, len(products)),
	}
	var rejected []domain.DataQualityError

	for i := range products {
		p := products[i]
		if _, dup := s.byID[p.ID()]; dup {
			rejected = append(rejected, *domain.NewDataQualityError(p.ID(), "duplicate id"))
			continue
		}
		if !p.HasEmbedding() {
			s.byID[p.ID()] = len(s.all)
			s.all = append(s.all, p)
			continue
		}

		emb := p.Embedding()
		if s.dim == 0 {
			s.dim = len(emb)
		}
		if len(emb) != s.dim {
			rejected = append(rejected, *domain.NewDataQualityError(p.ID(),
				"dimension mismatch: got %d, want %d", len(emb), s.dim))
			continue
		}
		norm := l2(emb)
		if norm == 0 {
			rejected = append(rejected, *domain.NewDataQualityError(p.ID(), "zero-norm embedding"))
			continue
		}

		for _, v := range emb {
			s.vectors = append(s.vectors, float32(float64(v)/norm))
		}
		s.products = append(s.products, p)
		s.byID[p.ID()] = len(s.all)
		s.all = append(s.all, p)
	}

	return s, rejected
}

// Search returns the k entries with the highest inner product against the
// normalized query, ties broken by insertion order.
func (s *Snapshot) Search(query []float32, k int) ([]Hit, error) {
	if k <= 0 || len(s.products) == 0 {
		return []Hit{}, nil
	}
	if len(query) != s.dim {
		return nil, fmt.Errorf("query has %d dimensions, index has %d: %w",
			len(query), s.dim, domain.ErrVectorDimMismatch)
	}
	norm := l2(query)
	if norm == 0 {
		return []Hit{}, nil
	}

	type scored struct {
		pos   int
		score float64
	}
	all := make([]scored, len(s.products))
	for i := range s.products {
		row := s.vectors[i*s.dim : (i+1)*s.dim]
		var dot float64
		for j, v := range row {
			dot += float64(v) * float64(query[j])
		}
		all[i] = scored{pos: i, score: dot / norm}
	}
	slices.SortStableFunc(all, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})

	if k > len(all) {
		k = len(all)
	}
	hits := make([]Hit, k)
	for i := 0; i < k; i++ {
		hits[i] = Hit{Product: s.products[all[i].pos], Score: all[i].score}
	}
	return hits, nil
}

// Product looks up any accepted product by id, indexed or not.
func (s *Snapshot) Product(id string) (product.Product, bool) {
	i, ok := s.byID[id]
	if !ok {
		return product.Product{}, false
	}
	return s.all[i], true
}

// Products returns every indexed product in insertion order.
func (s *Snapshot) Products() []product.Product { return s.products }

// Version returns the build version.
func (s *Snapshot) Version() uint64 { return s.version }

// Dim returns the vector dimension (0 when nothing is indexed).
func (s *Snapshot) Dim() int { return s.dim }

// Len returns the number of indexed products.
func (s *Snapshot) Len() int { return len(s.products) }

// Count returns the number of products known to the snapshot, indexed or not.
func (s *Snapshot) Count() int { return len(s.all) }

func l2(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
