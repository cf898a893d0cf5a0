package openai

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/domain"
)

func newTestClassifier(url string) *Classifier {
	return NewClassifier(&Config{APIKey: "test-key", BaseURL: url, Model: "test-chat", Logger: zap.NewNop()})
}

func TestClassifier_ClassifyIntent(t *testing.T) {
	var seen map[string]any
	srv := chatServer(t, http.StatusOK, `{"intent":"order_tracking","confidence":0.92}`, &seen)

	got, err := newTestClassifier(srv.URL).ClassifyIntent(context.Background(), "where is my order?")
	if err != nil {
		t.Fatalf("ClassifyIntent failed: %v", err)
	}
	if got.Intent != domain.IntentOrderTracking || got.Confidence != 0.92 {
		t.Errorf("unexpected classification: %+v", got)
	}
	rf, _ := seen["response_format"].(map[string]any)
	if rf["type"] != "json_object" {
		t.Errorf("response_format = %v, want json_object", seen["response_format"])
	}
}

func TestClassifier_UnknownLabelAndBadConfidence(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "```json\n{\"intent\":\"weather\",\"confidence\":7}\n```", nil)

	got, err := newTestClassifier(srv.URL).ClassifyIntent(context.Background(), "is it raining")
	if err != nil {
		t.Fatalf("ClassifyIntent failed: %v", err)
	}
	if got.Intent != domain.IntentGeneralInquiry {
		t.Errorf("intent = %s, want general_inquiry", got.Intent)
	}
	if got.Confidence != 0 {
		t.Errorf("out-of-range confidence should be zeroed, got %v", got.Confidence)
	}
}

func TestClassifier_BadJSON(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "product_search", nil)

	_, err := newTestClassifier(srv.URL).ClassifyIntent(context.Background(), "shoes")
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected backend unavailable, got %v", err)
	}
}

func TestClassifier_ExtractEntities(t *testing.T) {
	reply := `{"entities":[
		{"label":"brand","text":"Sony"},
		{"label":"ADJ","text":"wireless"},
		{"label":"ADJ","text":"lightweight"},
		{"label":"GPE","text":" "},
		{"label":"","text":"ignored"}
	]}`
	srv := chatServer(t, http.StatusOK, reply, nil)

	ents, err := newTestClassifier(srv.URL).ExtractEntities(context.Background(), "sony wireless lightweight headphones")
	if err != nil {
		t.Fatalf("ExtractEntities failed: %v", err)
	}
	if ents[domain.EntityBrand] != "Sony" {
		t.Errorf("BRAND = %q", ents[domain.EntityBrand])
	}
	if ents[domain.EntityAdjective] != "wireless lightweight" {
		t.Errorf("ADJ = %q", ents[domain.EntityAdjective])
	}
	if len(ents) != 2 {
		t.Errorf("unexpected entities: %v", ents)
	}
}

func TestClassifier_BackendError(t *testing.T) {
	srv := chatServer(t, http.StatusBadGateway, "", nil)

	if _, err := newTestClassifier(srv.URL).ExtractEntities(context.Background(), "x"); !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected backend unavailable, got %v", err)
	}
}

func TestStripFence(t *testing.T) {
	cases := map[string]string{
		`{"a":1}`:                 `{"a":1}`,
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
	}
	for in, want := range cases {
		if got := stripFence(in); got != want {
			t.Errorf("stripFence(%q) = %q, want %q", in, got, want)
		}
	}
}
