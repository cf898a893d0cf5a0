package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/metrics"
)

const opGenerate = "generate"

// Generator produces grounded answers through the chat completions API.
type Generator struct {
	client *openai.Client
	model  string
	user   string
	logger *zap.Logger
}

// NewGenerator creates a chat-completion backed generator.
func NewGenerator(cfg *Config) *Generator {
	return &Generator{
		client: newClient(cfg),
		model:  cfg.Model,
		user:   cfg.User,
		logger: loggerOrNop(cfg.Logger),
	}
}

// Model returns the configured model name.
func (g *Generator) Model() string { return g.model }

// Generate implements domain.Generator.
// Deadline failures map to domain.ErrGenerationTimeout, everything else to
// domain.ErrBackendUnavailable.
func (g *Generator) Generate(ctx context.Context, p domain.Prompt, opts domain.GenerateOptions) (domain.Generation, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: p.User},
		},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		User:        g.user,
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)
	metrics.GenerationRequestDuration.WithLabelValues(opGenerate, g.model).Observe(duration.Seconds())

	if err != nil {
		if isTimeout(ctx, err) {
			metrics.GenerationRequestsTotal.WithLabelValues(opGenerate, g.model, "timeout").Inc()
			return domain.Generation{}, fmt.Errorf("chat completion after %s: %w", duration.Round(time.Millisecond), domain.ErrGenerationTimeout)
		}
		metrics.GenerationRequestsTotal.WithLabelValues(opGenerate, g.model, "error").Inc()
		g.logger.Warn("Chat completion failed", zap.String("model", g.model), zap.Error(err))
		return domain.Generation{}, parseAPIError("generation", err, domain.ErrBackendUnavailable)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.GenerationRequestsTotal.WithLabelValues(opGenerate, g.model, "error").Inc()
		return domain.Generation{}, fmt.Errorf("empty chat completion: %w", domain.ErrBackendUnavailable)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(opGenerate, g.model, "success").Inc()
	recordTokens(opGenerate, g.model, resp.Usage)

	model := resp.Model
	if model == "" {
		model = g.model
	}
	return domain.Generation{
		Text:             strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:            model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels.
func (g *Generator) HealthCheck(ctx context.Context) error {
	return listModels(ctx, g.client)
}

func recordTokens(op, model string, u openai.Usage) {
	if u.TotalTokens <= 0 {
		return
	}
	metrics.GenerationTokensTotal.WithLabelValues(op, model, "prompt").Add(float64(u.PromptTokens))
	metrics.GenerationTokensTotal.WithLabelValues(op, model, "completion").Add(float64(u.CompletionTokens))
}
