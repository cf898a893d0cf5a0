package search

import (
	"strings"
	"unicode"

	"github.com/kailas-cloud/prodsearch/internal/domain"
)

// adjectives is a small shopping-domain lexicon; suffix rules catch the rest.
var adjectives = toSet(
	"affordable", "best", "big", "black", "blue", "bright", "brown", "budget",
	"cheap", "classic", "clean", "comfortable", "compact", "cool", "cozy", "cute",
	"dark", "durable", "easy", "eco", "elegant", "fancy", "fast", "fine", "fresh",
	"friendly", "gold", "good", "great", "green", "grey", "gray", "handmade",
	"heavy", "high", "hot", "large", "light", "lightweight", "little", "long",
	"loud", "luxury", "mini", "modern", "new", "nice", "old", "orange", "organic",
	"pink", "plain", "portable", "premium", "pretty", "pure", "purple", "quick",
	"quiet", "rare", "red", "rich", "rugged", "safe", "sharp", "short", "silver",
	"simple", "slim", "small", "smart", "smooth", "soft", "sparkly", "sturdy",
	"strong", "stylish", "sweet", "tall", "thick", "thin", "tiny", "top", "vintage",
	"warm", "waterproof", "white", "wide", "wireless", "yellow",
)

var adjectiveSuffixes = []string{
	"able", "ible", "ful", "ous", "ive", "less", "ic", "al", "ish", "est",
}

var stopwords = toSet(
	"a", "about", "all", "also", "an", "and", "any", "are", "as", "at", "be",
	"buy", "by", "can", "could", "do", "does", "find", "for", "from", "get",
	"give", "have", "i", "in", "is", "it", "its", "looking", "me", "my", "need",
	"of", "on", "one", "or", "please", "recommend", "search", "show", "some",
	"something", "that", "the", "their", "them", "there", "these", "this",
	"those", "to", "want", "what", "which", "with", "would", "you", "your",
	"interval", "general", "several", "usual", "animal", "total", "hospital",
)

// Words that belong to price and rating clauses rather than the product.
var filterTokens = toSet(
	"under", "below", "less", "than", "cheaper", "rating", "rated", "ratings",
	"star", "stars", "above", "over", "least", "up", "higher", "price", "priced",
	"dollars", "usd", "minimum", "maximum",
)

// Keywords returns the deduplicated adjective-like tokens of query in order
// of first appearance, merged with tagger-supplied ADJ entities.
func Keywords(query string, ents domain.Entities) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(tok string) {
		if _, dup := seen[tok]; dup {
			return
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}

	for _, tok := range tokenize(query) {
		if isKeyword(tok) {
			add(tok)
		}
	}
	for _, tok := range EntityKeywords(ents) {
		add(tok)
	}
	return out
}

// EntityKeywords returns the tokens of the tagger-supplied ADJ entity.
func EntityKeywords(ents domain.Entities) []string {
	adj, ok := ents.First(domain.EntityAdjective)
	if !ok {
		return nil
	}
	var out []string
	for _, tok := range tokenize(adj) {
		if !isStopword(tok) && !hasDigit(tok) {
			out = append(out, tok)
		}
	}
	return out
}

// CountMatches counts keywords contained in text (already lower-cased).
func CountMatches(text string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(text, k) {
			n++
		}
	}
	return n
}

func isKeyword(tok string) bool {
	if isStopword(tok) || hasDigit(tok) {
		return false
	}
	if _, ok := adjectives[tok]; ok {
		return true
	}
	for _, suf := range adjectiveSuffixes {
		if len(tok) >= len(suf)+3 && strings.HasSuffix(tok, suf) {
			return true
		}
	}
	return false
}

func isStopword(tok string) bool {
	if _, ok := stopwords[tok]; ok {
		return true
	}
	_, ok := filterTokens[tok]
	return ok
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
