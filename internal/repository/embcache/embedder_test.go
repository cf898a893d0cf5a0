package embcache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEmbed_MissThenHit(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{0.1, 0.2, 0.3}, tokens: 10}
	ce, ms := newTestCachedEmbedder(t, inner)
	ctx := context.Background()

	first, err := ce.Embed(ctx, "red shoes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TotalTokens != 10 {
		t.Errorf("miss should report provider tokens, got %d", first.TotalTokens)
	}
	if ms.sets != 1 || ms.lastTTL != time.Hour {
		t.Errorf("sets=%d ttl=%v", ms.sets, ms.lastTTL)
	}

	second, err := ce.Embed(ctx, "red shoes")
	if err != nil {
		t.Fatal(err)
	}
	if inner.embedCalls != 1 {
		t.Errorf("inner called %d times, want 1", inner.embedCalls)
	}
	if second.TotalTokens != 0 {
		t.Errorf("hit must not report tokens, got %d", second.TotalTokens)
	}
	if len(second.Embedding) != 3 || second.Embedding[2] != 0.3 {
		t.Errorf("unexpected cached vector: %v", second.Embedding)
	}
}

func TestEmbed_InnerError(t *testing.T) {
	boom := errors.New("provider down")
	ce, ms := newTestCachedEmbedder(t, &mockEmbedder{err: boom})

	_, err := ce.Embed(context.Background(), "x")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if ms.sets != 0 {
		t.Error("errors must not be cached")
	}
}

func TestEmbed_StoreFailuresDegrade(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{1}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.getErr = errors.New("redis down")
	ms.setErr = errors.New("redis down")

	res, err := ce.Embed(context.Background(), "x")
	if err != nil {
		t.Fatalf("store failure must not fail Embed: %v", err)
	}
	if len(res.Embedding) != 1 {
		t.Errorf("unexpected vector: %v", res.Embedding)
	}
}

func TestEmbed_CorruptEntryIsMiss(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{1, 2}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.data[ce.cacheKey("x")] = []byte{1, 2, 3}

	if _, err := ce.Embed(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if inner.embedCalls != 1 {
		t.Error("corrupt entry should fall through to the provider")
	}
}

func TestBatchEmbed_OnlyMissesReachProvider(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{0.5, 0.5}, tokens: 4}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.data[ce.cacheKey("cached")] = vectorToCacheBytes([]float32{9, 9})

	res, err := ce.BatchEmbed(context.Background(), []string{"a", "cached", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batchCalls != 1 || len(inner.lastBatch) != 2 {
		t.Fatalf("provider batch = %v", inner.lastBatch)
	}
	if inner.lastBatch[0] != "a" || inner.lastBatch[1] != "b" {
		t.Errorf("misses out of order: %v", inner.lastBatch)
	}
	if len(res.Embeddings) != 3 || res.Embeddings[1][0] != 9 || res.Embeddings[0][0] != 0.5 {
		t.Errorf("unexpected embeddings: %v", res.Embeddings)
	}
	if res.TotalTokens != 8 {
		t.Errorf("TotalTokens = %d, want 8", res.TotalTokens)
	}
	if ms.sets != 2 {
		t.Errorf("sets = %d, want 2", ms.sets)
	}
}

func TestBatchEmbed_AllCached(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{1}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.data[ce.cacheKey("a")] = vectorToCacheBytes([]float32{2})

	res, err := ce.BatchEmbed(context.Background(), []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	if inner.batchCalls != 0 || res.Embeddings[0][0] != 2 {
		t.Error("fully cached batch must not reach the provider")
	}
}

func TestBatchEmbed_MGetFailureEmbedsAll(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{1}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.mgetErr = errors.New("redis down")

	res, err := ce.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(inner.lastBatch) != 2 || len(res.Embeddings) != 2 {
		t.Error("all texts should be embedded when the cache is unreadable")
	}
}

func TestVectorRoundTrip(t *testing.T) {
	v := []float32{-1.5, 0, 3.25}
	got, err := bytesToVector(vectorToCacheBytes(v))
	if err != nil {
		t.Fatal(err)
	}
	for i := range v {
		if got[i] != v[i] {
			t.Fatalf("got %v, want %v", got, v)
		}
	}
	if _, err := bytesToVector([]byte{1}); err == nil {
		t.Error("expected error for truncated data")
	}
}
