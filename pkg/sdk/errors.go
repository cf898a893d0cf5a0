package prodsearch

import (
	"fmt"

	"github.com/kailas-cloud/prodsearch/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation              = domain.ErrValidation
	ErrIndexUnavailable        = domain.ErrIndexUnavailable
	ErrBackendUnavailable      = domain.ErrBackendUnavailable
	ErrGenerationTimeout       = domain.ErrGenerationTimeout
	ErrProductNotFound         = domain.ErrProductNotFound
	ErrProfileNotFound         = domain.ErrProfileNotFound
	ErrRateLimited             = domain.ErrRateLimited
	ErrGenerationQuotaExceeded = domain.ErrGenerationQuotaExceeded
	ErrEmbeddingQuotaExceeded  = domain.ErrEmbeddingQuotaExceeded
	ErrEmbeddingProviderError  = domain.ErrEmbeddingProviderError
)

var codeSentinels = map[string]error{
	"validation_failed":         ErrValidation,
	"bad_request":               ErrValidation,
	"index_unavailable":         ErrIndexUnavailable,
	"backend_unavailable":       ErrBackendUnavailable,
	"generation_timeout":        ErrGenerationTimeout,
	"product_not_found":         ErrProductNotFound,
	"profile_not_found":         ErrProfileNotFound,
	"rate_limited":              ErrRateLimited,
	"generation_quota_exceeded": ErrGenerationQuotaExceeded,
	"embedding_quota_exceeded":  ErrEmbeddingQuotaExceeded,
	"embedding_provider_error":  ErrEmbeddingProviderError,
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("prodsearch: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap returns the sentinel matching Code, or nil for unknown codes.
func (e *APIError) Unwrap() error { return codeSentinels[e.Code] }
