package chat

import (
	"context"
	"strings"

	"github.com/kailas-cloud/prodsearch/internal/domain"
)

// RuleClassifier is a keyword intent classifier for deployments without a
// model-backed classifier. Rules are checked in order; the first hit wins.
type RuleClassifier struct{}

type intentRule struct {
	intent     domain.Intent
	confidence float64
	// wholeWords rejects a phrase that is only the start of a longer word.
	wholeWords bool
	phrases    []string
}

// Order tracking phrases carry an order context; bare nouns such as
// "package" or "delivery" also appear in product queries.
var intentRules = []intentRule{
	{domain.IntentOrderTracking, 0.9, true, []string{
		"my order", "order status", "track my", "track an order", "tracking number", "shipped",
		"shipping status", "delivery status", "my delivery", "where is my", "my package",
		"refund", "return my",
	}},
	{domain.IntentRecommendation, 0.8, false, []string{
		"recommend", "suggest", "for me", "what should i", "something i", "you think i", "gift idea",
	}},
	{domain.IntentGeneralInquiry, 0.7, false, []string{
		"hello", "hi there", "opening hours", "contact", "customer service", "return policy",
		"payment method", "who are you", "help me with my account", "thank",
	}},
	{domain.IntentProductSearch, 0.8, false, []string{
		"looking for", "show me", "find", "search", "buy", "need a", "need some", "want a",
		"under $", "cheap", "best", "price", "stars", "rating", "deal",
	}},
}

// ClassifyIntent implements domain.IntentClassifier. Phrases match at word
// starts. Text with no rule hit is treated as a low-confidence product search.
func (RuleClassifier) ClassifyIntent(_ context.Context, text string) (domain.Classification, error) {
	words := strings.Fields(strings.ToLower(text))
	for i, w := range words {
		words[i] = strings.Trim(w, ".,!?;:\"'()")
	}
	t := " " + strings.Join(words, " ") + " "
	for _, r := range intentRules {
		for _, p := range r.phrases {
			needle := " " + p
			if r.wholeWords {
				needle += " "
			}
			if strings.Contains(t, needle) {
				return domain.Classification{Intent: r.intent, Confidence: r.confidence}, nil
			}
		}
	}
	if strings.TrimSpace(t) == "" {
		return domain.Classification{Intent: domain.IntentGeneralInquiry, Confidence: 1}, nil
	}
	return domain.Classification{Intent: domain.IntentProductSearch, Confidence: 0.55}, nil
}
