package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/prodsearch/internal/config"
	dbRedis "github.com/kailas-cloud/prodsearch/internal/db/redis"
	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/metrics"
	budgetrepo "github.com/kailas-cloud/prodsearch/internal/repository/budget"
	catalogrepo "github.com/kailas-cloud/prodsearch/internal/repository/catalog"
	"github.com/kailas-cloud/prodsearch/internal/repository/embcache"
	profilerepo "github.com/kailas-cloud/prodsearch/internal/repository/profile"
	"github.com/kailas-cloud/prodsearch/internal/repository/resultcache"
	openaiTransport "github.com/kailas-cloud/prodsearch/internal/transport/openai"
	answeruc "github.com/kailas-cloud/prodsearch/internal/usecase/answer"
	budgetuc "github.com/kailas-cloud/prodsearch/internal/usecase/budget"
	cataloguc "github.com/kailas-cloud/prodsearch/internal/usecase/catalog"
	chatuc "github.com/kailas-cloud/prodsearch/internal/usecase/chat"
	embeddinguc "github.com/kailas-cloud/prodsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/prodsearch/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/prodsearch/internal/usecase/recommend"
	searchuc "github.com/kailas-cloud/prodsearch/internal/usecase/search"
	usageuc "github.com/kailas-cloud/prodsearch/internal/usecase/usage"
	"github.com/kailas-cloud/prodsearch/internal/vectorindex"
)

// app is the composition root shared by serve, search, ask and load.
type app struct {
	store     *dbRedis.Store
	sqlConn   *sql.DB
	catalog   *cataloguc.Service
	products  *catalogrepo.RedisSource
	profiles  *profilerepo.Repo
	search    *searchuc.Service
	answer    *answeruc.Service
	chat      *chatuc.Service
	recommend *recommenduc.Service
	health    *healthuc.Service
	usage     *usageuc.Service
	logger    *zap.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()
	metrics.RegisterSearchMetrics()

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
	}
	a := &app{store: store, logger: logger}

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		a.close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database",
		zap.String("driver", cfg.Database.Driver),
		zap.Strings("addrs", cfg.Database.Addrs),
	)

	prefix := cfg.Database.KeyPrefix
	a.products = catalogrepo.NewRedisSource(store, prefix)
	a.profiles = profilerepo.New(store, prefix)

	source, err := a.catalogSource(cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	// Embedder chain: OpenAI -> Cached -> Instrumented -> Instruction.
	embBudget := newBudget(ctx, "embedding", cfg.Embedding.Budget, domain.ErrEmbeddingQuotaExceeded, prefix, store, logger)
	instrumented := buildEmbedder(cfg, store, embBudget, logger)
	queryEmbedder := withInstruction(instrumented, cfg.Embedding.QueryInstruction)
	docEmbedder := withInstruction(instrumented, cfg.Embedding.DocumentInstruction)

	a.catalog = cataloguc.New(source, docEmbedder, cataloguc.Config{
		Dim:             cfg.Embedding.Dimensions,
		DefaultStock:    cfg.Catalog.DefaultStock,
		EmbedMissing:    cfg.Catalog.EmbedMissing,
		RebuildInterval: time.Duration(cfg.Catalog.RebuildIntervalSec) * time.Second,
	}, logger)

	cache := resultcache.New(cfg.Cache.Capacity, time.Duration(cfg.Cache.TTLSec)*time.Second,
		nil, metrics.ResultCacheTotal, logger)
	a.catalog.OnRebuild(func(*vectorindex.Snapshot) { cache.Purge() })

	// Pass nil interfaces (not typed nil pointers) when the classifier is off.
	var (
		classifier     domain.IntentClassifier
		chatEntities   domain.EntityExtractor
		searchEntities domain.EntityExtractor
	)
	if cfg.Classifier.Enabled {
		cl := openaiTransport.NewClassifier(&openaiTransport.Config{
			APIKey:   cfg.Classifier.APIKey,
			BaseURL:  cfg.Classifier.BaseURL,
			Model:    cfg.Classifier.Model,
			Provider: cfg.Generation.Provider,
			Timeout:  time.Duration(max(cfg.Classifier.ClassifyTimeoutMS, cfg.Classifier.ExtractTimeoutMS)) * time.Millisecond,
			Logger:   logger,
		})
		classifier, chatEntities = cl, cl
		if cfg.Search.ExtractEntities {
			searchEntities = cl
		}
	}

	a.search = searchuc.New(a.catalog, queryEmbedder, searchEntities, cache,
		searchuc.NewRanker(cfg.Search.Overfetch, cfg.Search.BoostWeight), logger).
		WithExtractTimeout(time.Duration(cfg.Classifier.ExtractTimeoutMS) * time.Millisecond)

	generator := openaiTransport.NewGenerator(&openaiTransport.Config{
		APIKey:   cfg.Generation.APIKey,
		BaseURL:  cfg.Generation.BaseURL,
		Model:    cfg.Generation.Model,
		Provider: cfg.Generation.Provider,
		Logger:   logger,
	})
	var limiter answeruc.Limiter
	if cfg.Generation.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Generation.RatePerSec), cfg.Generation.Burst)
	}
	var budgets []usageuc.BudgetReader
	if embBudget != nil {
		budgets = append(budgets, embBudget)
	}
	var genBudget answeruc.BudgetChecker
	if b := newBudget(ctx, "generation", cfg.Generation.Budget, domain.ErrGenerationQuotaExceeded,
		prefix, store, logger); b != nil {
		genBudget = b
		budgets = append(budgets, b)
	}
	a.usage = usageuc.New(nil, budgets...)
	a.answer = answeruc.New(a.search, generator, limiter, genBudget, answeruc.Config{
		TopK:           cfg.Generation.TopK,
		Temperature:    cfg.Generation.Temperature,
		MaxTokens:      cfg.Generation.MaxTokens,
		Timeout:        time.Duration(cfg.Generation.TimeoutSec) * time.Second,
		MaxPromptChars: cfg.Generation.MaxPromptChars,
	}, logger)

	a.recommend = recommenduc.New(a.profiles, a.catalog, logger)
	a.chat = chatuc.New(classifier, chatEntities, a.search, a.recommend, chatuc.Config{
		TopK:            cfg.Classifier.TopK,
		PopularQuery:    cfg.Classifier.PopularQuery,
		ClassifyTimeout: time.Duration(cfg.Classifier.ClassifyTimeoutMS) * time.Millisecond,
		ExtractTimeout:  time.Duration(cfg.Classifier.ExtractTimeoutMS) * time.Millisecond,
		MinConfidence:   cfg.Classifier.MinConfidence,
	}, logger)

	a.health = healthuc.New(store, a.catalog, generator, instrumented)
	return a, nil
}

func (a *app) catalogSource(cfg *config.Config) (cataloguc.Source, error) {
	switch cfg.Catalog.Source {
	case "postgres", "sqlite":
		conn, err := catalogrepo.OpenSQL(cfg.Catalog.Source, cfg.Catalog.DSN)
		if err != nil {
			return nil, fmt.Errorf("open catalog: %w", err)
		}
		a.sqlConn = conn
		src, err := catalogrepo.NewSQLSource(conn, cfg.Catalog.Table, cfg.Catalog.OrderBy)
		if err != nil {
			return nil, fmt.Errorf("catalog source: %w", err)
		}
		return src, nil
	default:
		return a.products, nil
	}
}

func (a *app) close() {
	if a.catalog != nil {
		a.catalog.Shutdown()
	}
	if a.sqlConn != nil {
		if err := a.sqlConn.Close(); err != nil {
			a.logger.Warn("Failed to close catalog database", zap.Error(err))
		}
	}
	a.store.Close()
}

// newBudget returns nil when no limit is configured.
func newBudget(
	ctx context.Context, provider string, cfg config.BudgetConfig, exceeded error,
	prefix string, store *dbRedis.Store, logger *zap.Logger,
) *budgetuc.Tracker {
	if !cfg.Enabled() {
		return nil
	}
	action := budgetuc.ActionWarn
	if cfg.Action == "reject" {
		action = budgetuc.ActionReject
	}
	return budgetuc.NewTracker(budgetuc.Config{
		Provider:     provider,
		DailyLimit:   cfg.DailyTokenLimit,
		MonthlyLimit: cfg.MonthlyTokenLimit,
		Action:       action,
		Exceeded:     exceeded,
	}, nil, logger).WithStore(ctx, budgetrepo.New(store, prefix, budgetrepo.DefaultDailyTTL, budgetrepo.DefaultMonthlyTTL))
}

func buildEmbedder(
	cfg *config.Config, store *dbRedis.Store, budget *budgetuc.Tracker, logger *zap.Logger,
) *embeddinguc.InstrumentedEmbedder {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:     logger,
	})

	cached := embcache.New(base, store,
		cfg.Database.KeyPrefix+"emb_cache:"+cfg.Embedding.Model+":",
		time.Duration(cfg.Embedding.CacheTTLHours)*time.Hour,
		metrics.EmbeddingCacheTotal, logger)

	// Go gotcha: (*Tracker)(nil) wrapped in BudgetChecker != nil.
	var checker embeddinguc.BudgetChecker
	if budget != nil {
		checker = budget
	}
	return embeddinguc.NewInstrumentedEmbedder(
		cached, cfg.Embedding.Provider, cfg.Embedding.Model, checker, logger,
	).WithBatchSize(cfg.Embedding.BatchSize)
}

// withInstruction is the outermost layer so cache keys include the instruction.
func withInstruction(e domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return e
	}
	return domain.NewInstructionEmbedder(e, instruction)
}
