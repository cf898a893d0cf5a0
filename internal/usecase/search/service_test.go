package search

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kailas-cloud/prodsearch/internal/clock"
	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/request"
	"github.com/kailas-cloud/prodsearch/internal/repository/resultcache"
	"github.com/kailas-cloud/prodsearch/internal/vectorindex"
)

// --- Mocks ---

type mockIndex struct {
	snap *vectorindex.Snapshot
	err  error
}

func (m *mockIndex) Snapshot() (*vectorindex.Snapshot, error) { return m.snap, m.err }

type mockEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 3}, nil
}

type mockEntities struct {
	ents  domain.Entities
	err   error
	block bool
	calls int
}

func (m *mockEntities) ExtractEntities(ctx context.Context, _ string) (domain.Entities, error) {
	m.calls++
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.ents, m.err
}

// --- Helpers ---

func mustRequest(t *testing.T, q string, k int, minRating, maxPrice *float64) *request.Request {
	t.Helper()
	r, err := request.New(q, k, 0, 0, minRating, maxPrice)
	if err != nil {
		t.Fatal(err)
	}
	return &r
}

func newTestService(t *testing.T, idx IndexProvider, emb Embedder, ents domain.EntityExtractor) (*Service, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	cache := resultcache.New(10, time.Hour, clk, nil, nil)
	return New(idx, emb, ents, cache, NewRanker(0, 0), nil), clk
}

// --- Tests ---

func TestSearch_CachedOutputIsIdentical(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1, 0}}
	svc, clk := newTestService(t, &mockIndex{snap: cameraCatalog(t)}, emb, nil)
	req := mustRequest(t, "camera", 5, nil, nil)

	first, err := svc.Search(context.Background(), req, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheHit {
		t.Error("first call must be a miss")
	}

	clk.Advance(59 * time.Minute)
	second, err := svc.Search(context.Background(), req, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheHit {
		t.Error("second call within TTL must be a hit")
	}
	if !reflect.DeepEqual(first.Results, second.Results) {
		t.Error("cached output must be identical")
	}
	if emb.calls != 1 {
		t.Errorf("embedder called %d times, want 1", emb.calls)
	}

	clk.Advance(2 * time.Minute)
	third, _ := svc.Search(context.Background(), req, nil)
	if third.CacheHit {
		t.Error("call after TTL must be a miss")
	}
}

func TestSearch_IndexUnavailable(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1, 0}}
	svc, _ := newTestService(t, &mockIndex{err: domain.ErrIndexUnavailable}, emb, nil)

	_, err := svc.Search(context.Background(), mustRequest(t, "camera", 5, nil, nil), nil)
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("err = %v, want ErrIndexUnavailable", err)
	}
	if emb.calls != 0 {
		t.Error("embedder must not be called without an index")
	}
}

func TestSearch_EmbedderError(t *testing.T) {
	emb := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	svc, _ := newTestService(t, &mockIndex{snap: cameraCatalog(t)}, emb, nil)

	_, err := svc.Search(context.Background(), mustRequest(t, "camera", 5, nil, nil), nil)
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("err = %v", err)
	}
}

func TestSearch_QueryFiltersApplied(t *testing.T) {
	svc, _ := newTestService(t, &mockIndex{snap: cameraCatalog(t)}, &mockEmbedder{vec: []float32{1, 0}}, nil)

	resp, err := svc.Search(context.Background(), mustRequest(t, "affordable camera under $50", 10, nil, nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Product().ID() != "A" {
		t.Fatalf("expected only A, got %d results", len(resp.Results))
	}
}

func TestSearch_ExplicitBoundsTighten(t *testing.T) {
	svc, _ := newTestService(t, &mockIndex{snap: cameraCatalog(t)}, &mockEmbedder{vec: []float32{1, 0}}, nil)
	minRating := 4.6

	resp, err := svc.Search(context.Background(), mustRequest(t, "camera", 10, &minRating, nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Product().ID() != "B" {
		t.Fatalf("min_rating 4.6 should keep only B")
	}
}

func TestSearch_EntityExtraction(t *testing.T) {
	ents := &mockEntities{ents: domain.Entities{domain.EntityOrg: "Pro"}}
	svc, _ := newTestService(t, &mockIndex{snap: cameraCatalog(t)}, &mockEmbedder{vec: []float32{0, 1}}, ents)

	resp, err := svc.Search(context.Background(), mustRequest(t, "pro camera", 10, nil, nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Product().ID() != "B" {
		t.Fatal("brand entity should restrict results to B")
	}
	if ents.calls != 1 {
		t.Errorf("extractor calls = %d", ents.calls)
	}
}

func TestSearch_EntityFailureDegrades(t *testing.T) {
	ents := &mockEntities{err: errors.New("tagger down")}
	svc, _ := newTestService(t, &mockIndex{snap: cameraCatalog(t)}, &mockEmbedder{vec: []float32{1, 0}}, ents)

	resp, err := svc.Search(context.Background(), mustRequest(t, "camera", 10, nil, nil), nil)
	if err != nil {
		t.Fatalf("extractor failure must not fail search: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Errorf("len = %d, want 2", len(resp.Results))
	}
}

func TestSearch_SuppliedEntitiesSkipExtractor(t *testing.T) {
	ents := &mockEntities{}
	svc, _ := newTestService(t, &mockIndex{snap: cameraCatalog(t)}, &mockEmbedder{vec: []float32{1, 0}}, ents)

	_, err := svc.Search(context.Background(), mustRequest(t, "camera", 10, nil, nil), domain.Entities{})
	if err != nil {
		t.Fatal(err)
	}
	if ents.calls != 0 {
		t.Error("extractor must not run when entities are supplied")
	}
}

func TestSearch_WithoutCache(t *testing.T) {
	svc := New(&mockIndex{snap: cameraCatalog(t)}, &mockEmbedder{vec: []float32{1, 0}}, nil, nil, nil, nil)
	resp, err := svc.Search(context.Background(), mustRequest(t, "camera", 1, nil, nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.CacheHit {
		t.Errorf("len=%d hit=%v", len(resp.Results), resp.CacheHit)
	}
}

func TestSearch_ExtractorTimeoutDegrades(t *testing.T) {
	ents := &mockEntities{block: true}
	svc, _ := newTestService(t, &mockIndex{snap: cameraCatalog(t)}, &mockEmbedder{vec: []float32{1, 0}}, ents)
	svc.WithExtractTimeout(20 * time.Millisecond)

	type outcome struct {
		resp Response
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		resp, err := svc.Search(context.Background(), mustRequest(t, "pro camera", 10, nil, nil), nil)
		done <- outcome{resp, err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			t.Fatalf("stalled extractor must not fail search: %v", out.err)
		}
		if len(out.resp.Results) != 2 {
			t.Errorf("len = %d, want 2 unfiltered results", len(out.resp.Results))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("search blocked on a stalled entity extractor")
	}
}

func TestSearch_DegradedResultsAreNotCached(t *testing.T) {
	ents := &mockEntities{err: errors.New("tagger down")}
	svc, _ := newTestService(t, &mockIndex{snap: cameraCatalog(t)}, &mockEmbedder{vec: []float32{0, 1}}, ents)
	req := mustRequest(t, "pro camera", 10, nil, nil)

	degraded, err := svc.Search(context.Background(), req, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(degraded.Results) != 2 {
		t.Fatalf("degraded len = %d, want 2", len(degraded.Results))
	}

	ents.err = nil
	ents.ents = domain.Entities{domain.EntityOrg: "Pro"}
	recovered, err := svc.Search(context.Background(), req, nil)
	if err != nil {
		t.Fatal(err)
	}
	if recovered.CacheHit {
		t.Fatal("degraded result must not be served from the cache")
	}
	if len(recovered.Results) != 1 || recovered.Results[0].Product().ID() != "B" {
		t.Fatalf("brand filter should apply once the extractor recovers, got %d results", len(recovered.Results))
	}

	cached, _ := svc.Search(context.Background(), req, nil)
	if !cached.CacheHit || len(cached.Results) != 1 {
		t.Errorf("hit=%v len=%d, want the filtered result cached", cached.CacheHit, len(cached.Results))
	}
	if ents.calls != 2 {
		t.Errorf("extractor calls = %d, want 2", ents.calls)
	}
}

func TestSearch_SuppliedEntitiesGetOwnCacheEntry(t *testing.T) {
	svc, _ := newTestService(t, &mockIndex{snap: cameraCatalog(t)}, &mockEmbedder{vec: []float32{0, 1}}, nil)
	req := mustRequest(t, "pro camera", 10, nil, nil)

	branded, err := svc.Search(context.Background(), req, domain.Entities{domain.EntityOrg: "Pro"})
	if err != nil {
		t.Fatal(err)
	}
	if len(branded.Results) != 1 {
		t.Fatalf("branded len = %d, want 1", len(branded.Results))
	}

	plain, err := svc.Search(context.Background(), req, domain.Entities{})
	if err != nil {
		t.Fatal(err)
	}
	if plain.CacheHit || len(plain.Results) != 2 {
		t.Errorf("hit=%v len=%d, want an unfiltered miss", plain.CacheHit, len(plain.Results))
	}

	again, _ := svc.Search(context.Background(), req, domain.Entities{domain.EntityOrg: " pro "})
	if !again.CacheHit || len(again.Results) != 1 {
		t.Errorf("hit=%v len=%d, want the branded entry", again.CacheHit, len(again.Results))
	}
}
