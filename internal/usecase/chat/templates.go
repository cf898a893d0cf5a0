package chat

import "fmt"

const (
	orderTrackingReply = "You can check the status of your order on the Orders page of your account. " +
		"If it hasn't arrived within the estimated delivery window, our support team can look it up for you."
	generalInquiryReply = "I can help you find products, compare prices and ratings, or suggest something you might like. " +
		"Try asking something like \"wireless headphones under $100\"."
	noResultsReply = "I couldn't find products matching your request. Try different words or a wider price range."
)

func searchReply(n int) string {
	if n == 1 {
		return "Here is a product that matches your request."
	}
	return fmt.Sprintf("Here are %d products that match your request.", n)
}

func recommendationReply(n int, personalized bool) string {
	if personalized {
		return fmt.Sprintf("Based on your preferences, here are %d products you might like.", n)
	}
	return fmt.Sprintf("Here are %d popular products you might like.", n)
}
