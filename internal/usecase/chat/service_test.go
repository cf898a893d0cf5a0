package chat

import (
	"context"
	"errors"
	"sync"
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

type mockClassifier struct {
	cls   domain.Classification
	err   error
	delay time.Duration
}

func (m *mockClassifier) ClassifyIntent(ctx context.Context, _ string) (domain.Classification, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return domain.Classification{}, ctx.Err()
		}
	}
	return m.cls, m.err
}

type mockEntities struct {
	ents  domain.Entities
	err   error
	delay time.Duration
}

func (m *mockEntities) ExtractEntities(ctx context.Context, _ string) (domain.Entities, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.ents, m.err
}

type mockSearcher struct {
	mu      sync.Mutex
	results []result.Ranked
	err     error
	queries []string
	ents    []domain.Entities
}

func (m *mockSearcher) Search(_ context.Context, req *request.Request, ents domain.Entities) (search.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, req.Query())
	m.ents = append(m.ents, ents)
	return search.Response{Results: m.results}, m.err
}

type mockRecommender struct {
	results []result.Ranked
	err     error
	users   []string
}

func (m *mockRecommender) Recommend(_ context.Context, userID string, _ int) ([]result.Ranked, error) {
	m.users = append(m.users, userID)
	return m.results, m.err
}

func someResults(t *testing.T, ids ...string) []result.Ranked {
	t.Helper()
	out := make([]result.Ranked, len(ids))
	for i, id := range ids {
		p, err := product.New(product.Attrs{ID: id, Title: id, Price: 1, Stock: 1})
		if err != nil {
			t.Fatal(err)
		}
		out[i] = result.New(p, 1, 1, 0).WithRank(i + 1)
	}
	return out
}

func classified(intent domain.Intent, conf float64) *mockClassifier {
	return &mockClassifier{cls: domain.Classification{Intent: intent, Confidence: conf}}
}

// --- Tests ---

func TestHandle_ProductSearchUsesEntities(t *testing.T) {
	s := &mockSearcher{results: someResults(t, "a", "b")}
	ents := &mockEntities{ents: domain.Entities{domain.EntityBrand: "sony"}}
	svc := New(classified(domain.IntentProductSearch, 0.9), ents, s, nil, Config{}, zap.NewNop())

	reply, err := svc.Handle(context.Background(), Request{Query: "sony headphones"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply.Intent != domain.IntentProductSearch || len(reply.Products) != 2 {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if reply.Text != searchReply(2) {
		t.Errorf("text = %q", reply.Text)
	}
	if len(s.ents) != 1 || s.ents[0][domain.EntityBrand] != "sony" {
		t.Errorf("entities not forwarded: %v", s.ents)
	}
}

func TestHandle_ProductSearchNoResults(t *testing.T) {
	svc := New(classified(domain.IntentProductSearch, 0.9), nil, &mockSearcher{}, nil, Config{}, zap.NewNop())

	reply, err := svc.Handle(context.Background(), Request{Query: "unicorn saddle"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply.Text != noResultsReply {
		t.Errorf("text = %q", reply.Text)
	}
}

func TestHandle_ClassifierDegradesToGeneralInquiry(t *testing.T) {
	tests := []struct {
		name string
		cls  *mockClassifier
	}{
		{"classifier error", &mockClassifier{err: domain.ErrBackendUnavailable}},
		{"low confidence", classified(domain.IntentProductSearch, 0.2)},
		{"unknown label", classified(domain.Intent("weather"), 0.99)},
		{"classifier timeout", &mockClassifier{cls: domain.Classification{Intent: domain.IntentProductSearch, Confidence: 1}, delay: time.Second}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := &mockSearcher{}
			svc := New(tc.cls, nil, s, nil, Config{ClassifyTimeout: 20 * time.Millisecond}, zap.NewNop())

			reply, err := svc.Handle(context.Background(), Request{Query: "hello"})
			if err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if reply.Intent != domain.IntentGeneralInquiry || reply.Text != generalInquiryReply {
				t.Errorf("unexpected reply: %+v", reply)
			}
			if len(s.queries) != 0 {
				t.Error("general inquiry must not search")
			}
		})
	}
}

func TestHandle_ExtractorFailureMeansNoEntities(t *testing.T) {
	s := &mockSearcher{results: someResults(t, "a")}
	ents := &mockEntities{err: errors.New("tagger down")}
	svc := New(classified(domain.IntentProductSearch, 0.9), ents, s, nil, Config{}, zap.NewNop())

	if _, err := svc.Handle(context.Background(), Request{Query: "shoes"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if s.ents[0] == nil || len(s.ents[0]) != 0 {
		t.Errorf("expected empty entities, got %v", s.ents[0])
	}
}

func TestHandle_RunsUnderstandingConcurrently(t *testing.T) {
	cls := &mockClassifier{cls: domain.Classification{Intent: domain.IntentProductSearch, Confidence: 1}, delay: 80 * time.Millisecond}
	ents := &mockEntities{ents: domain.Entities{}, delay: 80 * time.Millisecond}
	svc := New(cls, ents, &mockSearcher{}, nil, Config{}, zap.NewNop())

	start := time.Now()
	if _, err := svc.Handle(context.Background(), Request{Query: "shoes"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if elapsed := time.Since(start); elapsed >= 150*time.Millisecond {
		t.Errorf("classification and extraction look sequential: %s", elapsed)
	}
}

func TestHandle_RecommendationWithProfile(t *testing.T) {
	rec := &mockRecommender{results: someResults(t, "x", "y", "z")}
	s := &mockSearcher{}
	svc := New(classified(domain.IntentRecommendation, 0.9), nil, s, rec, Config{}, zap.NewNop())

	reply, err := svc.Handle(context.Background(), Request{Query: "what should I buy", UserID: "u1"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(reply.Products) != 3 || reply.Text != recommendationReply(3, true) {
		t.Errorf("unexpected reply: %+v", reply)
	}
	if len(rec.users) != 1 || rec.users[0] != "u1" || len(s.queries) != 0 {
		t.Errorf("recommender users=%v searches=%v", rec.users, s.queries)
	}
}

func TestHandle_RecommendationFallsBackToPopular(t *testing.T) {
	tests := []struct {
		name string
		user string
		rec  *mockRecommender
	}{
		{"anonymous", "", &mockRecommender{}},
		{"no profile", "u2", &mockRecommender{err: domain.ErrProfileNotFound}},
		{"empty recommendations", "u3", &mockRecommender{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := &mockSearcher{results: someResults(t, "p")}
			svc := New(classified(domain.IntentRecommendation, 0.9), nil, s, tc.rec, Config{}, zap.NewNop())

			reply, err := svc.Handle(context.Background(), Request{Query: "suggest something", UserID: tc.user})
			if err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if len(s.queries) != 1 || s.queries[0] != DefaultPopularQuery {
				t.Fatalf("expected popular search, got %v", s.queries)
			}
			if reply.Text != recommendationReply(1, false) {
				t.Errorf("text = %q", reply.Text)
			}
		})
	}
}

func TestHandle_RecommendationError(t *testing.T) {
	rec := &mockRecommender{err: domain.ErrIndexUnavailable}
	svc := New(classified(domain.IntentRecommendation, 0.9), nil, &mockSearcher{}, rec, Config{}, zap.NewNop())

	if _, err := svc.Handle(context.Background(), Request{Query: "suggest", UserID: "u"}); !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestHandle_OrderTracking(t *testing.T) {
	svc := New(classified(domain.IntentOrderTracking, 0.95), nil, &mockSearcher{}, nil, Config{}, zap.NewNop())

	reply, err := svc.Handle(context.Background(), Request{Query: "where is my order"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply.Intent != domain.IntentOrderTracking || reply.Text != orderTrackingReply || reply.Products == nil {
		t.Errorf("unexpected reply: %+v", reply)
	}
}

func TestHandle_EmptyQuery(t *testing.T) {
	svc := New(nil, nil, &mockSearcher{}, nil, Config{}, zap.NewNop())

	if _, err := svc.Handle(context.Background(), Request{Query: " "}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHandle_SearchErrorPropagates(t *testing.T) {
	s := &mockSearcher{err: domain.ErrIndexUnavailable}
	svc := New(classified(domain.IntentProductSearch, 0.9), nil, s, nil, Config{}, zap.NewNop())

	if _, err := svc.Handle(context.Background(), Request{Query: "shoes"}); !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}
