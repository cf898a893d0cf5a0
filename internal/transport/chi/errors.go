package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kailas-cloud/prodsearch/internal/domain"
)

// ErrorCode is a stable machine-readable error code.
type ErrorCode string

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest              ErrorCode = "bad_request"
	CodeUnauthorized            ErrorCode = "unauthorized"
	CodeValidationFailed        ErrorCode = "validation_failed"
	CodeIndexUnavailable        ErrorCode = "index_unavailable"
	CodeBackendUnavailable      ErrorCode = "backend_unavailable"
	CodeGenerationTimeout       ErrorCode = "generation_timeout"
	CodeProductNotFound         ErrorCode = "product_not_found"
	CodeProfileNotFound         ErrorCode = "profile_not_found"
	CodeRateLimited             ErrorCode = "rate_limited"
	CodeGenerationQuotaExceeded ErrorCode = "generation_quota_exceeded"
	CodeEmbeddingQuotaExceeded  ErrorCode = "embedding_quota_exceeded"
	CodeEmbeddingProviderError  ErrorCode = "embedding_provider_error"
	CodeNotFound                ErrorCode = "not_found"
	CodeMethodNotAllowed        ErrorCode = "method_not_allowed"
	CodeInternalError           ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrProductNotFound, http.StatusNotFound, CodeProductNotFound),
		sentinelHandler(domain.ErrProfileNotFound, http.StatusNotFound, CodeProfileNotFound),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, CodeIndexUnavailable),
		sentinelHandler(domain.ErrGenerationTimeout, http.StatusGatewayTimeout, CodeGenerationTimeout),
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusServiceUnavailable, CodeBackendUnavailable),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(domain.ErrGenerationQuotaExceeded,
			http.StatusPaymentRequired, CodeGenerationQuotaExceeded),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded,
			http.StatusPaymentRequired, CodeEmbeddingQuotaExceeded),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, CodeEmbeddingProviderError),
	}
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// safeDomainMessage returns a client-safe message without exposing internals.
func safeDomainMessage(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrProductNotFound,
		domain.ErrProfileNotFound,
		domain.ErrIndexUnavailable,
		domain.ErrGenerationTimeout,
		domain.ErrBackendUnavailable,
		domain.ErrRateLimited,
		domain.ErrGenerationQuotaExceeded,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
