package answer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/result"
)

// UnknownAnswer is the phrase the model must use when the context lacks the answer.
const UnknownAnswer = "I couldn't find that information"

const systemInstruction = "You are a shopping assistant. Answer the customer's question using only " +
	"the product information in the context. Mention product titles and prices when relevant. " +
	"If the context does not contain the answer, reply exactly: \"" + UnknownAnswer + ".\""

const (
	defaultMaxPromptChars = 6000
	maxDescriptionChars   = 300
)

// buildPrompt renders the grounded prompt. Products are added in rank order
// until maxChars would be exceeded; at least one product is always included.
func buildPrompt(query string, products []result.Ranked, maxChars int) (domain.Prompt, int) {
	if maxChars <= 0 {
		maxChars = defaultMaxPromptChars
	}

	var ctx strings.Builder
	used := 0
	for i, r := range products {
		block := productBlock(i+1, r)
		if used > 0 && ctx.Len()+len(block) > maxChars {
			break
		}
		ctx.WriteString(block)
		used++
	}

	user := fmt.Sprintf("Context:\n%s\nQuestion: %s", ctx.String(), query)
	return domain.Prompt{System: systemInstruction, User: user}, used
}

func productBlock(n int, r result.Ranked) string {
	p := r.Product()
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s\n", n, oneLine(p.Title()))
	if d := truncate(oneLine(p.Description()), maxDescriptionChars); d != "" {
		fmt.Fprintf(&b, "Description: %s\n", d)
	}
	fmt.Fprintf(&b, "Price: $%.2f\n", p.Price())
	fmt.Fprintf(&b, "Rating: %.1f/5\n", p.Rating())
	if p.URL() != "" {
		fmt.Fprintf(&b, "Source: %s\n", p.URL())
	}
	b.WriteString("\n")
	return b.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n])) + "…"
}
