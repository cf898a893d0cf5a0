package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals a malformed client request.
	ErrValidation = errors.New("validation failed")
	// ErrIndexUnavailable signals that no usable vector index has been published yet.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrBackendUnavailable signals that a generative or classification backend is unreachable.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrGenerationTimeout signals that answer generation exceeded its deadline.
	ErrGenerationTimeout = errors.New("generation timed out")
	// ErrDataQuality signals a malformed catalog record.
	ErrDataQuality = errors.New("data quality")
	// ErrProductNotFound signals a missing product.
	ErrProductNotFound = errors.New("product not found")
	// ErrProfileNotFound signals a user without a recommendation profile.
	ErrProfileNotFound = errors.New("recommendation profile not found")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrGenerationQuotaExceeded signals an exhausted generation token budget.
	ErrGenerationQuotaExceeded = errors.New("generation quota exceeded")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding token budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// ValidationError wraps ErrValidation with a message that is safe to show to clients.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a client-facing validation error.
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// DataQualityError records why a single catalog record was excluded from the index.
type DataQualityError struct {
	ProductID string
	Reason    string
}

func (e *DataQualityError) Error() string {
	id := e.ProductID
	if id == "" {
		id = "<unknown>"
	}
	return fmt.Sprintf("%s: product %s: %s", ErrDataQuality.Error(), id, e.Reason)
}

func (e *DataQualityError) Unwrap() error { return ErrDataQuality }

// NewDataQualityError creates a per-record data quality error.
func NewDataQualityError(productID, format string, args ...any) *DataQualityError {
	return &DataQualityError{ProductID: productID, Reason: fmt.Sprintf(format, args...)}
}
