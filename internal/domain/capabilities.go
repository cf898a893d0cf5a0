package domain

import (
	"context"
	"strings"
)

// Intent is the coarse purpose of a chat query.
type Intent string

// Supported intents.
const (
	IntentProductSearch  Intent = "product_search"
	IntentOrderTracking  Intent = "order_tracking"
	IntentRecommendation Intent = "recommendation"
	IntentGeneralInquiry Intent = "general_inquiry"
)

// ParseIntent maps a classifier label onto a known intent.
// Unknown labels fall back to IntentGeneralInquiry.
func ParseIntent(label string) Intent {
	norm := strings.ToLower(strings.TrimSpace(label))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	switch Intent(norm) {
	case IntentProductSearch, IntentOrderTracking, IntentRecommendation, IntentGeneralInquiry:
		return Intent(norm)
	}
	switch norm {
	case "search", "product", "productsearch":
		return IntentProductSearch
	case "order", "tracking", "ordertracking":
		return IntentOrderTracking
	case "recommend", "recommendations":
		return IntentRecommendation
	}
	return IntentGeneralInquiry
}

// Classification is an intent label with the classifier's confidence in [0,1].
type Classification struct {
	Intent     Intent
	Confidence float64
}

// IntentClassifier assigns one of the supported intents to free text.
type IntentClassifier interface {
	ClassifyIntent(ctx context.Context, text string) (Classification, error)
}

// Entity labels recognised by the filter extractor and the ranker.
const (
	EntityBrand     = "BRAND"
	EntityOrg       = "ORG"
	EntityProduct   = "PRODUCT"
	EntityRegion    = "REGION"
	EntityGPE       = "GPE"
	EntityLoc       = "LOC"
	EntityMoney     = "MONEY"
	EntityAdjective = "ADJ"
)

// Entities maps an entity label to the text the tagger found for it.
// Multiple values for one label are space-joined by the producer.
type Entities map[string]string

// First returns the first non-empty value among labels.
func (e Entities) First(labels ...string) (string, bool) {
	for _, l := range labels {
		if v := strings.TrimSpace(e[l]); v != "" {
			return v, true
		}
	}
	return "", false
}

// EntityExtractor pulls named entities and descriptive keywords out of text.
type EntityExtractor interface {
	ExtractEntities(ctx context.Context, text string) (Entities, error)
}

// Prompt is a two-part generation request.
type Prompt struct {
	System string
	User   string
}

// GenerateOptions fixes the decoding parameters of one generation call.
type GenerateOptions struct {
	Temperature float32
	MaxTokens   int
}

// Generation is the backend's answer plus token accounting.
type Generation struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Generator produces text grounded in a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt, opts GenerateOptions) (Generation, error)
}
