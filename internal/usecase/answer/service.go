// Package answer produces grounded natural-language answers from the top
// search results.
package answer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/domain/product"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/request"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/prodsearch/internal/logger"
	"github.com/kailas-cloud/prodsearch/internal/metrics"
)

// NoProductsAnswer is returned when retrieval finds nothing to ground on.
const NoProductsAnswer = "Sorry, I couldn't find any relevant products for your question."

// Defaults for Config.
const (
	DefaultTopK        = 5
	DefaultTemperature = 0.3
	DefaultTimeout     = 20 * time.Second
)

// Config tunes generation.
type Config struct {
	TopK           int
	Temperature    float32
	MaxTokens      int
	Timeout        time.Duration
	MaxPromptChars int
}

// Result is a generated answer with the products it was grounded on.
type Result struct {
	Text     string
	Products []product.Product
	Model    string
}

// Service orchestrates retrieval and generation.
type Service struct {
	searcher  Searcher
	generator domain.Generator
	limiter   Limiter
	budget    BudgetChecker
	cfg       Config
	logger    *zap.Logger
}

// New creates an answer service. limiter and budget may be nil.
func New(
	searcher Searcher, generator domain.Generator,
	limiter Limiter, budget BudgetChecker,
	cfg Config, logger *zap.Logger,
) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		searcher:  searcher,
		generator: generator,
		limiter:   limiter,
		budget:    budget,
		cfg:       cfg,
		logger:    logger,
	}
}

// Answer retrieves the top products for query and asks the generator to
// answer from them. An empty retrieval is a normal answer, not an error.
func (s *Service) Answer(ctx context.Context, query string) (Result, error) {
	req, err := request.New(query, s.cfg.TopK, s.cfg.TopK, s.cfg.TopK, nil, nil)
	if err != nil {
		return Result{}, domain.NewValidationError("%s", err.Error())
	}

	resp, err := s.searcher.Search(ctx, &req, nil)
	if err != nil {
		return Result{}, fmt.Errorf("retrieve products: %w", err)
	}

	if len(resp.Results) == 0 {
		metrics.AnswersTotal.WithLabelValues("no_products").Inc()
		return Result{Text: NoProductsAnswer, Products: []product.Product{}}, nil
	}

	gen, used, err := s.generate(ctx, req.Query(), resp.Results)
	if err != nil {
		return Result{}, err
	}

	metrics.AnswersTotal.WithLabelValues("answered").Inc()
	return Result{
		Text:     gen.Text,
		Products: result.Products(resp.Results[:used]),
		Model:    gen.Model,
	}, nil
}

func (s *Service) generate(ctx context.Context, query string, rs []result.Ranked) (domain.Generation, int, error) {
	if s.generator == nil {
		metrics.AnswersTotal.WithLabelValues("unavailable").Inc()
		return domain.Generation{}, 0, fmt.Errorf("no generator configured: %w", domain.ErrBackendUnavailable)
	}
	if s.limiter != nil && !s.limiter.Allow() {
		metrics.AnswersTotal.WithLabelValues("rate_limited").Inc()
		return domain.Generation{}, 0, fmt.Errorf("generation: %w", domain.ErrRateLimited)
	}
	if s.budget != nil {
		if err := s.budget.Check(ctx); err != nil {
			metrics.AnswersTotal.WithLabelValues("quota").Inc()
			return domain.Generation{}, 0, fmt.Errorf("generation budget: %w", err)
		}
	}

	prompt, used := buildPrompt(query, rs, s.cfg.MaxPromptChars)

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	gen, err := s.generator.Generate(genCtx, prompt, domain.GenerateOptions{
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		return domain.Generation{}, 0, s.classify(genCtx, err, time.Since(start))
	}

	if s.budget != nil && gen.TotalTokens > 0 {
		s.budget.Record(int64(gen.TotalTokens))
		metrics.BudgetTokensRemaining.WithLabelValues("generation", "daily").Set(float64(s.budget.RemainingDaily()))
		metrics.BudgetTokensRemaining.WithLabelValues("generation", "monthly").Set(float64(s.budget.RemainingMonthly()))
	}

	s.logger.Debug("Answer generated",
		zap.Int("products", used),
		zap.Int("prompt_chars", len(prompt.User)),
		zap.Int("total_tokens", gen.TotalTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return gen, used, nil
}

// classify maps a generator failure onto timeout or backend-unavailable.
func (s *Service) classify(genCtx context.Context, err error, elapsed time.Duration) error {
	if errors.Is(err, domain.ErrGenerationTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(genCtx.Err(), context.DeadlineExceeded) {
		metrics.AnswersTotal.WithLabelValues("timeout").Inc()
		logpkg.FromContextOr(genCtx, s.logger).Warn("Answer generation timed out",
			zap.Duration("elapsed", elapsed), zap.Error(err))
		return fmt.Errorf("generate after %s: %w", elapsed.Round(time.Millisecond), domain.ErrGenerationTimeout)
	}

	metrics.AnswersTotal.WithLabelValues("unavailable").Inc()
	logpkg.FromContextOr(genCtx, s.logger).Error("Answer generation failed", zap.Error(err))
	if errors.Is(err, domain.ErrBackendUnavailable) {
		return fmt.Errorf("generate: %w", err)
	}
	return fmt.Errorf("generate: %w: %w", domain.ErrBackendUnavailable, err)
}
