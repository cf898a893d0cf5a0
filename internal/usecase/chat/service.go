// Package chat routes free-text shopper messages to search, recommendations
// or canned replies.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/request"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/prodsearch/internal/logger"
	"github.com/kailas-cloud/prodsearch/internal/metrics"
)

// Defaults for Config.
const (
	DefaultTopK            = 5
	DefaultPopularQuery    = "popular best rated products"
	DefaultClassifyTimeout = 3 * time.Second
	DefaultExtractTimeout  = 3 * time.Second
	DefaultMinConfidence   = 0.5
)

// Config tunes routing.
type Config struct {
	TopK            int
	PopularQuery    string
	ClassifyTimeout time.Duration
	ExtractTimeout  time.Duration
	MinConfidence   float64
}

// Request is one chat turn. UserID is optional.
type Request struct {
	Query  string
	UserID string
}

// Reply is the routed answer.
type Reply struct {
	Intent   domain.Intent
	Text     string
	Products []result.Ranked
}

// Service classifies a message and dispatches it. It keeps no state
// between requests.
type Service struct {
	classifier  domain.IntentClassifier
	entities    domain.EntityExtractor
	searcher    Searcher
	recommender Recommender
	cfg         Config
	logger      *zap.Logger
}

// New creates a chat service. A nil classifier falls back to RuleClassifier;
// entities and recommender may be nil.
func New(
	classifier domain.IntentClassifier, entities domain.EntityExtractor,
	searcher Searcher, recommender Recommender,
	cfg Config, logger *zap.Logger,
) *Service {
	if classifier == nil {
		classifier = RuleClassifier{}
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.PopularQuery == "" {
		cfg.PopularQuery = DefaultPopularQuery
	}
	if cfg.ClassifyTimeout <= 0 {
		cfg.ClassifyTimeout = DefaultClassifyTimeout
	}
	if cfg.ExtractTimeout <= 0 {
		cfg.ExtractTimeout = DefaultExtractTimeout
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		classifier:  classifier,
		entities:    entities,
		searcher:    searcher,
		recommender: recommender,
		cfg:         cfg,
		logger:      logger,
	}
}

// Handle classifies the message and extracts entities concurrently, then
// routes on the intent.
func (s *Service) Handle(ctx context.Context, req Request) (Reply, error) {
	rq, err := request.New(req.Query, s.cfg.TopK, s.cfg.TopK, s.cfg.TopK, nil, nil)
	if err != nil {
		return Reply{}, domain.NewValidationError("%s", err.Error())
	}

	intent, ents := s.understand(ctx, rq.Query())
	metrics.ChatIntentsTotal.WithLabelValues(string(intent)).Inc()

	log := logpkg.FromContextOr(ctx, s.logger).With(zap.String("intent", string(intent)))
	switch intent {
	case domain.IntentProductSearch:
		return s.search(ctx, &rq, ents)
	case domain.IntentRecommendation:
		return s.recommend(ctx, req.UserID, log)
	case domain.IntentOrderTracking:
		return Reply{Intent: intent, Text: orderTrackingReply, Products: []result.Ranked{}}, nil
	default:
		return Reply{Intent: domain.IntentGeneralInquiry, Text: generalInquiryReply, Products: []result.Ranked{}}, nil
	}
}

// understand never fails: classifier problems degrade to GeneralInquiry,
// extractor problems to no entities.
func (s *Service) understand(ctx context.Context, text string) (domain.Intent, domain.Entities) {
	var (
		cls  domain.Classification
		cerr error
		ents domain.Entities
		eerr error
	)

	var g errgroup.Group
	g.Go(func() error {
		cctx, cancel := context.WithTimeout(ctx, s.cfg.ClassifyTimeout)
		defer cancel()
		cls, cerr = s.classifier.ClassifyIntent(cctx, text)
		return nil
	})
	if s.entities != nil {
		g.Go(func() error {
			ectx, cancel := context.WithTimeout(ctx, s.cfg.ExtractTimeout)
			defer cancel()
			ents, eerr = s.entities.ExtractEntities(ectx, text)
			return nil
		})
	}
	_ = g.Wait()

	intent := cls.Intent
	switch {
	case cerr != nil:
		s.logger.Warn("Intent classification failed, treating as general inquiry", zap.Error(cerr))
		intent = domain.IntentGeneralInquiry
	case cls.Confidence < s.cfg.MinConfidence:
		s.logger.Debug("Low intent confidence, treating as general inquiry",
			zap.String("label", string(cls.Intent)), zap.Float64("confidence", cls.Confidence))
		intent = domain.IntentGeneralInquiry
	default:
		intent = domain.ParseIntent(string(intent))
	}

	if eerr != nil {
		s.logger.Warn("Entity extraction failed, continuing without entities", zap.Error(eerr))
		ents = nil
	}
	if ents == nil {
		ents = domain.Entities{}
	}
	return intent, ents
}

func (s *Service) search(ctx context.Context, rq *request.Request, ents domain.Entities) (Reply, error) {
	resp, err := s.searcher.Search(ctx, rq, ents)
	if err != nil {
		return Reply{}, fmt.Errorf("chat search: %w", err)
	}
	text := noResultsReply
	if n := len(resp.Results); n > 0 {
		text = searchReply(n)
	}
	return Reply{Intent: domain.IntentProductSearch, Text: text, Products: resp.Results}, nil
}

func (s *Service) recommend(ctx context.Context, userID string, log *zap.Logger) (Reply, error) {
	if userID != "" && s.recommender != nil {
		rs, err := s.recommender.Recommend(ctx, userID, s.cfg.TopK)
		switch {
		case err == nil && len(rs) > 0:
			return Reply{Intent: domain.IntentRecommendation, Text: recommendationReply(len(rs), true), Products: rs}, nil
		case err == nil, errors.Is(err, domain.ErrProfileNotFound):
			log.Debug("No personal recommendations, using popular products", zap.String("user_id", userID))
		default:
			return Reply{}, fmt.Errorf("chat recommend: %w", err)
		}
	}

	rq, err := request.New(s.cfg.PopularQuery, s.cfg.TopK, s.cfg.TopK, s.cfg.TopK, nil, nil)
	if err != nil {
		return Reply{}, fmt.Errorf("popular query: %w", err)
	}
	resp, err := s.searcher.Search(ctx, &rq, domain.Entities{})
	if err != nil {
		return Reply{}, fmt.Errorf("chat popular search: %w", err)
	}
	text := noResultsReply
	if n := len(resp.Results); n > 0 {
		text = recommendationReply(n, false)
	}
	return Reply{Intent: domain.IntentRecommendation, Text: text, Products: resp.Results}, nil
}
