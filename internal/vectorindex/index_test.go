package vectorindex

import (
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/domain/product"
)

func prod(t *testing.T, id string, emb ...float32) product.Product {
	t.Helper()
	p, err := product.New(product.Attrs{ID: id, Title: id, Stock: 1, Rating: 4, Price: 10, Embedding: emb})
	if err != nil {
		t.Fatalf("product.New(%s): %v", id, err)
	}
	return p
}

func ids(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Product.ID()
	}
	return out
}

func TestBuild_NormalizesAndSearches(t *testing.T) {
	s, rejected := Build(1, 0, []product.Product{
		prod(t, "x", 10, 0),
		prod(t, "y", 0, 3),
		prod(t, "xy", 1, 1),
	})
	if len(rejected) != 0 {
		t.Fatalf("unexpected rejections: %v", rejected)
	}
	if s.Dim() != 2 || s.Len() != 3 || s.Version() != 1 {
		t.Fatalf("dim=%d len=%d version=%d", s.Dim(), s.Len(), s.Version())
	}

	hits, err := s.Search([]float32{5, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	got := ids(hits)
	if len(got) != 2 || got[0] != "x" || got[1] != "xy" {
		t.Fatalf("hits = %v", got)
	}
	if math.Abs(hits[0].Score-1) > 1e-6 {
		t.Errorf("self score = %v, want 1", hits[0].Score)
	}
	if math.Abs(hits[1].Score-math.Sqrt2/2) > 1e-6 {
		t.Errorf("diagonal score = %v", hits[1].Score)
	}
}

func TestSearch_ScoresNonIncreasingAndBounded(t *testing.T) {
	s, _ := Build(1, 3, []product.Product{
		prod(t, "a", 1, 2, 3),
		prod(t, "b", -1, 0, 4),
		prod(t, "c", 3, 3, 0),
		prod(t, "d", 0, -2, -1),
	})
	hits, err := s.Search([]float32{1, 1, 1}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 4 {
		t.Fatalf("len = %d, want min(k, size) = 4", len(hits))
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("scores not sorted: %v > %v", hits[i].Score, hits[i-1].Score)
		}
	}
	for _, h := range hits {
		if h.Score < -1-1e-6 || h.Score > 1+1e-6 {
			t.Errorf("score %v outside [-1, 1]", h.Score)
		}
	}
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	s, _ := Build(1, 0, []product.Product{
		prod(t, "first", 1, 0),
		prod(t, "second", 2, 0),
		prod(t, "third", 3, 0),
	})
	hits, _ := s.Search([]float32{1, 0}, 3)
	got := ids(hits)
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestBuild_Rejections(t *testing.T) {
	noEmb := prod(t, "plain")
	s, rejected := Build(2, 2, []product.Product{
		prod(t, "ok", 1, 0),
		prod(t, "wrong-dim", 1, 0, 0),
		prod(t, "zero", 0, 0),
		noEmb,
		prod(t, "ok", 0, 1),
	})
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	if s.Count() != 2 {
		t.Errorf("Count() = %d, want 2 (indexed + unembedded)", s.Count())
	}
	if len(rejected) != 3 {
		t.Fatalf("rejected = %v", rejected)
	}
	wantIDs := []string{"wrong-dim", "zero", "ok"}
	for i, r := range rejected {
		if r.ProductID != wantIDs[i] {
			t.Errorf("rejected[%d] = %s, want %s", i, r.ProductID, wantIDs[i])
		}
		if !errors.Is(&r, domain.ErrDataQuality) {
			t.Errorf("rejected[%d] should wrap ErrDataQuality", i)
		}
	}

	if _, ok := s.Product("plain"); !ok {
		t.Error("unembedded product should be fetchable by id")
	}
	if _, ok := s.Product("wrong-dim"); ok {
		t.Error("rejected product should not be fetchable")
	}
}

func TestSearch_EdgeCases(t *testing.T) {
	empty, _ := Build(1, 4, nil)
	hits, err := empty.Search([]float32{1, 2, 3, 4}, 5)
	if err != nil || len(hits) != 0 {
		t.Errorf("empty index: hits=%v err=%v", hits, err)
	}

	s, _ := Build(1, 0, []product.Product{prod(t, "a", 1, 0)})

	if hits, _ := s.Search([]float32{1, 0}, 0); len(hits) != 0 {
		t.Error("k=0 should return no hits")
	}
	if hits, _ := s.Search([]float32{0, 0}, 3); len(hits) != 0 {
		t.Error("zero query should return no hits")
	}
	_, err = s.Search([]float32{1, 0, 0}, 1)
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestSearch_DeterministicAcrossSnapshots(t *testing.T) {
	ps := []product.Product{prod(t, "a", 1, 2), prod(t, "b", 2, 1), prod(t, "c", 1, 1)}
	s1, _ := Build(1, 0, ps)
	s2, _ := Build(2, 0, ps)

	q := []float32{0.3, 0.7}
	h1, _ := s1.Search(q, 3)
	h2, _ := s2.Search(q, 3)
	for i := range h1 {
		if h1[i].Product.ID() != h2[i].Product.ID() || h1[i].Score != h2[i].Score {
			t.Fatalf("non-deterministic result at %d", i)
		}
	}
}
