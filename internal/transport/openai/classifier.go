package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/metrics"
)

const (
	opClassify = "classify"
	opEntities = "entities"
)

const intentInstruction = `You route shopping assistant messages.
Reply with a JSON object {"intent": "<label>", "confidence": <0..1>}.
Labels: product_search, order_tracking, recommendation, general_inquiry.`

const entityInstruction = `Extract shopping entities from the message.
Reply with a JSON object {"entities": [{"label": "<LABEL>", "text": "<span>"}]}.
Labels: BRAND, PRODUCT, REGION, MONEY, ADJ (descriptive adjectives such as "lightweight" or "waterproof").
Return an empty list when nothing applies.`

// Classifier implements intent classification and entity extraction with
// JSON-mode chat completions at temperature 0.
type Classifier struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewClassifier creates a chat-completion backed classifier.
func NewClassifier(cfg *Config) *Classifier {
	return &Classifier{
		client: newClient(cfg),
		model:  cfg.Model,
		logger: loggerOrNop(cfg.Logger),
	}
}

// ClassifyIntent implements domain.IntentClassifier.
func (c *Classifier) ClassifyIntent(ctx context.Context, text string) (domain.Classification, error) {
	var out struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	if err := c.complete(ctx, opClassify, intentInstruction, text, &out); err != nil {
		return domain.Classification{}, err
	}
	conf := out.Confidence
	if conf < 0 || conf > 1 {
		conf = 0
	}
	return domain.Classification{Intent: domain.ParseIntent(out.Intent), Confidence: conf}, nil
}

// ExtractEntities implements domain.EntityExtractor.
// Several spans with the same label are space-joined.
func (c *Classifier) ExtractEntities(ctx context.Context, text string) (domain.Entities, error) {
	var out struct {
		Entities []struct {
			Label string `json:"label"`
			Text  string `json:"text"`
		} `json:"entities"`
	}
	if err := c.complete(ctx, opEntities, entityInstruction, text, &out); err != nil {
		return nil, err
	}

	ents := domain.Entities{}
	for _, e := range out.Entities {
		label := strings.ToUpper(strings.TrimSpace(e.Label))
		span := strings.TrimSpace(e.Text)
		if label == "" || span == "" {
			continue
		}
		if prev := ents[label]; prev != "" {
			span = prev + " " + span
		}
		ents[label] = span
	}
	return ents, nil
}

// HealthCheck verifies API availability via ListModels.
func (c *Classifier) HealthCheck(ctx context.Context) error {
	return listModels(ctx, c.client)
}

func (c *Classifier) complete(ctx context.Context, op, instruction, text string, dst any) error {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: instruction},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	metrics.GenerationRequestDuration.WithLabelValues(op, c.model).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(op, c.model, "error").Inc()
		return parseAPIError(op, err, domain.ErrBackendUnavailable)
	}
	recordTokens(op, c.model, resp.Usage)

	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(op, c.model, "error").Inc()
		return fmt.Errorf("%s: empty completion: %w", op, domain.ErrBackendUnavailable)
	}
	if err := json.Unmarshal([]byte(stripFence(resp.Choices[0].Message.Content)), dst); err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(op, c.model, "bad_json").Inc()
		c.logger.Debug("Unparseable classifier reply", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: decode reply: %w", op, domain.ErrBackendUnavailable)
	}
	metrics.GenerationRequestsTotal.WithLabelValues(op, c.model, "success").Inc()
	return nil
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
