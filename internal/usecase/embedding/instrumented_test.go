package embedding

import (
	"context"
	"errors"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/metrics"
	"github.com/kailas-cloud/prodsearch/internal/usecase/budget"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type mockEmbedder struct {
	result     domain.EmbeddingResult
	err        error
	batchErr   error
	batchSizes []int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return m.result, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: m.result.PromptTokens * len(texts),
		TotalTokens:  m.result.TotalTokens * len(texts),
	}, nil
}

// plainMockEmbedder implements only Embedder, not BatchEmbedder.
type plainMockEmbedder struct {
	result domain.EmbeddingResult
	calls  int
}

func (m *plainMockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return m.result, nil
}

type shortBatchEmbedder struct{ mockEmbedder }

func (m *shortBatchEmbedder) BatchEmbed(_ context.Context, _ []string) (domain.BatchEmbeddingResult, error) {
	return domain.BatchEmbeddingResult{Embeddings: [][]float32{{1}}}, nil
}

type healthyEmbedder struct {
	plainMockEmbedder
	err error
}

func (h *healthyEmbedder) HealthCheck(context.Context) error { return h.err }

func newTracker(provider string, daily int64) *budget.Tracker {
	return budget.NewTracker(budget.Config{
		Provider:   provider,
		DailyLimit: daily,
		Action:     budget.ActionReject,
		Exceeded:   domain.ErrEmbeddingQuotaExceeded,
	}, nil, zap.NewNop())
}

// --- Tests ---

func TestInstrumentedEmbedder_Embed(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}, TotalTokens: 7}}
	p := NewInstrumentedEmbedder(inner, "embedding", "test-model", nil, zap.NewNop())

	res, err := p.Embed(context.Background(), "red shoes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embedding) != 3 || res.TotalTokens != 7 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestInstrumentedEmbedder_EmbedError(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	p := NewInstrumentedEmbedder(inner, "embedding", "test-model", nil, zap.NewNop())

	_, err := p.Embed(context.Background(), "red shoes")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestInstrumentedEmbedder_BudgetRejection(t *testing.T) {
	tracker := newTracker("embed-reject", 100)
	tracker.Record(100)

	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	p := NewInstrumentedEmbedder(inner, "embed-reject", "m", tracker, zap.NewNop())

	if _, err := p.Embed(context.Background(), "x"); !errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
		t.Fatalf("Embed: expected quota error, got %v", err)
	}
	if _, err := p.BatchEmbed(context.Background(), []string{"a", "b"}); !errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
		t.Fatalf("BatchEmbed: expected quota error, got %v", err)
	}
	if len(inner.batchSizes) != 0 {
		t.Error("inner embedder must not be called once the budget is exhausted")
	}
}

func TestInstrumentedEmbedder_RecordsBudget(t *testing.T) {
	tracker := newTracker("embed-record", 1_000_000)
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}, TotalTokens: 100}}
	p := NewInstrumentedEmbedder(inner, "embed-record", "m", tracker, zap.NewNop())

	before := tracker.RemainingDaily()
	if _, err := p.Embed(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.BatchEmbed(context.Background(), []string{"a", "b", "c"}); err != nil {
		t.Fatal(err)
	}
	if got := before - tracker.RemainingDaily(); got != 400 {
		t.Errorf("budget decrease = %d, want 400", got)
	}
}

func TestInstrumentedEmbedder_BatchEmbed_Chunks(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 0}, TotalTokens: 1}}
	p := NewInstrumentedEmbedder(inner, "embedding", "m", nil, zap.NewNop()).WithBatchSize(2)

	res, err := p.BatchEmbed(context.Background(), []string{"a", "b", "c", "d", "e"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 5 || res.TotalTokens != 5 {
		t.Fatalf("unexpected result: %d vectors, %d tokens", len(res.Embeddings), res.TotalTokens)
	}
	want := []int{2, 2, 1}
	if len(inner.batchSizes) != len(want) {
		t.Fatalf("chunks = %v, want %v", inner.batchSizes, want)
	}
	for i := range want {
		if inner.batchSizes[i] != want[i] {
			t.Fatalf("chunks = %v, want %v", inner.batchSizes, want)
		}
	}
}

func TestInstrumentedEmbedder_BatchEmbed_Empty(t *testing.T) {
	inner := &mockEmbedder{}
	p := NewInstrumentedEmbedder(inner, "embedding", "m", nil, zap.NewNop())

	res, err := p.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Embeddings != nil || len(inner.batchSizes) != 0 {
		t.Error("empty input must not reach the provider")
	}
}

func TestInstrumentedEmbedder_BatchEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{batchErr: errors.New("api error")}
	p := NewInstrumentedEmbedder(inner, "embedding", "m", nil, zap.NewNop())

	if _, err := p.BatchEmbed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestInstrumentedEmbedder_BatchEmbed_CountMismatch(t *testing.T) {
	p := NewInstrumentedEmbedder(&shortBatchEmbedder{}, "embedding", "m", nil, zap.NewNop())

	_, err := p.BatchEmbed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestInstrumentedEmbedder_BatchEmbed_FallbackToSingle(t *testing.T) {
	inner := &plainMockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}, TotalTokens: 5}}
	p := NewInstrumentedEmbedder(inner, "embedding", "m", nil, zap.NewNop())

	res, err := p.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 || inner.calls != 2 {
		t.Fatalf("expected 2 single calls, got %d (vectors %d)", inner.calls, len(res.Embeddings))
	}
	if res.TotalTokens != 10 {
		t.Errorf("total tokens = %d, want 10", res.TotalTokens)
	}
}

func TestInstrumentedEmbedder_HealthCheck(t *testing.T) {
	down := errors.New("down")
	p := NewInstrumentedEmbedder(&healthyEmbedder{err: down}, "embedding", "m", nil, zap.NewNop())
	if err := p.HealthCheck(context.Background()); !errors.Is(err, down) {
		t.Fatalf("expected forwarded error, got %v", err)
	}

	p = NewInstrumentedEmbedder(&plainMockEmbedder{}, "embedding", "m", nil, zap.NewNop())
	if err := p.HealthCheck(context.Background()); err != nil {
		t.Fatalf("embedder without checks must report healthy, got %v", err)
	}
}
