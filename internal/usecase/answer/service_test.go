package answer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/domain/product"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/request"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/result"
	"github.com/kailas-cloud/prodsearch/internal/usecase/search"
)

// --- Mocks ---

type mockSearcher struct {
	results []result.Ranked
	err     error
	lastK   int
}

func (m *mockSearcher) Search(_ context.Context, req *request.Request, _ domain.Entities) (search.Response, error) {
	m.lastK = req.TopK()
	if m.err != nil {
		return search.Response{}, m.err
	}
	n := min(len(m.results), req.TopK())
	return search.Response{Results: m.results[:n]}, nil
}

type mockGenerator struct {
	gen    domain.Generation
	err    error
	block  bool
	calls  int
	prompt domain.Prompt
	opts   domain.GenerateOptions
}

func (m *mockGenerator) Generate(ctx context.Context, p domain.Prompt, o domain.GenerateOptions) (domain.Generation, error) {
	m.calls++
	m.prompt, m.opts = p, o
	if m.block {
		<-ctx.Done()
		return domain.Generation{}, ctx.Err()
	}
	return m.gen, m.err
}

type mockLimiter struct{ allow bool }

func (m *mockLimiter) Allow() bool { return m.allow }

type mockBudget struct {
	err      error
	recorded int64
}

func (m *mockBudget) Check(context.Context) error { return m.err }
func (m *mockBudget) Record(t int64)              { m.recorded += t }
func (m *mockBudget) RemainingDaily() int64       { return -1 }
func (m *mockBudget) RemainingMonthly() int64     { return -1 }

func ranked(t *testing.T, n int) []result.Ranked {
	t.Helper()
	out := make([]result.Ranked, n)
	for i := range n {
		p, err := product.New(product.Attrs{
			ID:          string(rune('a' + i)),
			Title:       "Headphones " + string(rune('A'+i)),
			Description: "Wireless over-ear headphones",
			Price:       float64(100 + i),
			Rating:      4.5,
			Stock:       1,
			URL:         "https://shop/p" + string(rune('a'+i)),
		})
		if err != nil {
			t.Fatal(err)
		}
		out[i] = result.New(p, 0.9, 0.9, 0).WithRank(i + 1)
	}
	return out
}

// --- Tests ---

func TestAnswer_Success(t *testing.T) {
	s := &mockSearcher{results: ranked(t, 8)}
	g := &mockGenerator{gen: domain.Generation{Text: "Headphones A costs $100.", Model: "m", TotalTokens: 50}}
	b := &mockBudget{}
	svc := New(s, g, &mockLimiter{allow: true}, b, Config{}, zap.NewNop())

	res, err := svc.Answer(context.Background(), "  cheapest headphones? ")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if s.lastK != 5 {
		t.Errorf("retrieval k = %d, want 5", s.lastK)
	}
	if res.Text != "Headphones A costs $100." || res.Model != "m" {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(res.Products) != 5 {
		t.Errorf("products = %d, want 5", len(res.Products))
	}
	if g.opts.Temperature != 0.3 {
		t.Errorf("temperature = %v, want 0.3", g.opts.Temperature)
	}
	if !strings.Contains(g.prompt.System, UnknownAnswer) {
		t.Error("system prompt must carry the unknown-answer instruction")
	}
	for _, want := range []string{"Headphones A", "Price: $100.00", "Rating: 4.5/5", "Source: https://shop/pa", "Question: cheapest headphones?"} {
		if !strings.Contains(g.prompt.User, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if b.recorded != 50 {
		t.Errorf("budget recorded %d tokens, want 50", b.recorded)
	}
}

func TestAnswer_NoProducts(t *testing.T) {
	g := &mockGenerator{}
	svc := New(&mockSearcher{}, g, nil, nil, Config{}, zap.NewNop())

	res, err := svc.Answer(context.Background(), "unicorn saddle")
	if err != nil {
		t.Fatalf("no products must not be an error: %v", err)
	}
	if res.Text != NoProductsAnswer || res.Products == nil || len(res.Products) != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
	if g.calls != 0 {
		t.Error("generator must not be called without context")
	}
}

func TestAnswer_EmptyQuery(t *testing.T) {
	svc := New(&mockSearcher{}, &mockGenerator{}, nil, nil, Config{}, zap.NewNop())

	if _, err := svc.Answer(context.Background(), "   "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAnswer_Timeout(t *testing.T) {
	g := &mockGenerator{block: true}
	svc := New(&mockSearcher{results: ranked(t, 1)}, g, nil, nil, Config{Timeout: 20 * time.Millisecond}, zap.NewNop())

	_, err := svc.Answer(context.Background(), "headphones")
	if !errors.Is(err, domain.ErrGenerationTimeout) {
		t.Fatalf("expected ErrGenerationTimeout, got %v", err)
	}
	if errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatal("timeout must be distinct from backend unavailable")
	}
}

func TestAnswer_BackendFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"plain error", errors.New("connection refused")},
		{"already classified", domain.ErrBackendUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := New(&mockSearcher{results: ranked(t, 2)}, &mockGenerator{err: tc.err}, nil, nil, Config{}, zap.NewNop())
			_, err := svc.Answer(context.Background(), "headphones")
			if !errors.Is(err, domain.ErrBackendUnavailable) {
				t.Fatalf("expected ErrBackendUnavailable, got %v", err)
			}
			if errors.Is(err, domain.ErrGenerationTimeout) {
				t.Fatal("must not be a timeout")
			}
		})
	}
}

func TestAnswer_GeneratorTimeoutSentinel(t *testing.T) {
	g := &mockGenerator{err: domain.ErrGenerationTimeout}
	svc := New(&mockSearcher{results: ranked(t, 1)}, g, nil, nil, Config{}, zap.NewNop())

	if _, err := svc.Answer(context.Background(), "q"); !errors.Is(err, domain.ErrGenerationTimeout) {
		t.Fatalf("expected ErrGenerationTimeout, got %v", err)
	}
}

func TestAnswer_NoGenerator(t *testing.T) {
	svc := New(&mockSearcher{results: ranked(t, 1)}, nil, nil, nil, Config{}, zap.NewNop())

	if _, err := svc.Answer(context.Background(), "q"); !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestAnswer_RateLimited(t *testing.T) {
	g := &mockGenerator{}
	svc := New(&mockSearcher{results: ranked(t, 1)}, g, &mockLimiter{allow: false}, nil, Config{}, zap.NewNop())

	if _, err := svc.Answer(context.Background(), "q"); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if g.calls != 0 {
		t.Error("generator must not be called when rate limited")
	}
}

func TestAnswer_QuotaExceeded(t *testing.T) {
	g := &mockGenerator{}
	b := &mockBudget{err: domain.ErrGenerationQuotaExceeded}
	svc := New(&mockSearcher{results: ranked(t, 1)}, g, nil, b, Config{}, zap.NewNop())

	if _, err := svc.Answer(context.Background(), "q"); !errors.Is(err, domain.ErrGenerationQuotaExceeded) {
		t.Fatalf("expected ErrGenerationQuotaExceeded, got %v", err)
	}
	if g.calls != 0 {
		t.Error("generator must not be called over budget")
	}
}

func TestAnswer_SearchError(t *testing.T) {
	svc := New(&mockSearcher{err: domain.ErrIndexUnavailable}, &mockGenerator{}, nil, nil, Config{}, zap.NewNop())

	if _, err := svc.Answer(context.Background(), "q"); !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}
