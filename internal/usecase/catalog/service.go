// Package catalog owns the process-wide vector index handle: it loads the
// catalog, builds snapshots and publishes them atomically.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/domain/product"
	"github.com/kailas-cloud/prodsearch/internal/metrics"
	"github.com/kailas-cloud/prodsearch/internal/vectorindex"
)

// Config controls how the catalog is turned into an index.
type Config struct {
	// Dim fixes the vector dimension; 0 takes it from the first embedded product.
	Dim int
	// DefaultStock applies to records without a stock value.
	DefaultStock int
	// EmbedMissing vectorizes products that arrive without an embedding.
	EmbedMissing bool
	// RebuildInterval enables periodic rebuilds when positive.
	RebuildInterval time.Duration
}

// Stats describes one successful rebuild.
type Stats struct {
	Version   uint64
	Indexed   int
	Unindexed int
	Rejected  int
	Duration  time.Duration
}

// Listener is notified after a new snapshot is published.
type Listener func(snap *vectorindex.Snapshot)

// Service is the explicit index handle shared by search, answer, chat and
// recommendations. Readers never block on a rebuild.
type Service struct {
	source   Source
	embedder domain.Embedder
	cfg      Config
	logger   *zap.Logger

	snap    atomic.Pointer[vectorindex.Snapshot]
	version atomic.Uint64

	rebuildMu sync.Mutex
	listenMu  sync.Mutex
	listeners []Listener

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// New creates an unpublished catalog handle. embedder may be nil when
// EmbedMissing is off.
func New(source Source, embedder domain.Embedder, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source:   source,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// OnRebuild registers a listener for published snapshots.
func (s *Service) OnRebuild(l Listener) {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Init builds the first snapshot and starts the periodic rebuild loop.
// A failed first build is returned; the loop still starts so a later
// rebuild can recover.
func (s *Service) Init(ctx context.Context) error {
	_, err := s.Rebuild(ctx)

	if s.cfg.RebuildInterval > 0 {
		s.wg.Add(1)
		go s.loop()
	}
	return err
}

// Shutdown stops the rebuild loop and waits for it to exit.
func (s *Service) Shutdown() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *Service) loop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.RebuildInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RebuildInterval)
			if _, err := s.Rebuild(ctx); err != nil {
				s.logger.Error("Periodic index rebuild failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// Rebuild fetches the catalog and publishes a new snapshot. Bad records are
// skipped and counted. With no indexable product left the rebuild fails with
// domain.ErrIndexUnavailable and the previous snapshot stays published.
func (s *Service) Rebuild(ctx context.Context) (Stats, error) {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	start := time.Now()
	stats, err := s.rebuild(ctx)
	duration := time.Since(start)
	metrics.IndexRebuildDuration.Observe(duration.Seconds())

	if err != nil {
		metrics.IndexRebuildsTotal.WithLabelValues("error").Inc()
		return Stats{}, err
	}
	stats.Duration = duration
	metrics.IndexRebuildsTotal.WithLabelValues("success").Inc()

	s.logger.Info("Index published",
		zap.Uint64("version", stats.Version),
		zap.Int("indexed", stats.Indexed),
		zap.Int("unindexed", stats.Unindexed),
		zap.Int("rejected", stats.Rejected),
		zap.Duration("duration", duration),
	)
	return stats, nil
}

func (s *Service) rebuild(ctx context.Context) (Stats, error) {
	records, err := s.source.FetchProducts(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("fetch catalog: %w", err)
	}

	products := make([]product.Product, 0, len(records))
	rejected := 0
	for _, rec := range records {
		p, err := product.Decode(rec, s.cfg.DefaultStock)
		if err != nil {
			rejected++
			s.logDataQuality(err)
			continue
		}
		products = append(products, p)
	}

	if s.cfg.EmbedMissing {
		if products, err = s.embedMissing(ctx, products); err != nil {
			return Stats{}, err
		}
	}

	version := s.version.Add(1)
	snap, dqs := vectorindex.Build(version, s.cfg.Dim, products)
	for i := range dqs {
		s.logDataQuality(&dqs[i])
	}
	rejected += len(dqs)
	metrics.IndexRejectedTotal.Add(float64(rejected))

	if snap.Len() == 0 {
		return Stats{}, fmt.Errorf("rebuild: %d records, none indexable: %w", len(records), domain.ErrIndexUnavailable)
	}

	s.snap.Store(snap)
	metrics.IndexVersion.Set(float64(version))
	metrics.IndexProducts.WithLabelValues("indexed").Set(float64(snap.Len()))
	metrics.IndexProducts.WithLabelValues("unindexed").Set(float64(snap.Count() - snap.Len()))
	s.notify(snap)

	return Stats{
		Version:   version,
		Indexed:   snap.Len(),
		Unindexed: snap.Count() - snap.Len(),
		Rejected:  rejected,
	}, nil
}

// embedMissing fills in embeddings for products that have none, in one batch.
func (s *Service) embedMissing(ctx context.Context, products []product.Product) ([]product.Product, error) {
	var idx []int
	var texts []string
	for i, p := range products {
		if p.HasEmbedding() {
			continue
		}
		if text := p.EmbeddingText(); text != "" {
			idx = append(idx, i)
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 || s.embedder == nil {
		return products, nil
	}

	res, err := domain.EmbedAll(ctx, s.embedder, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d catalog products: %w", len(texts), err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed catalog: got %d vectors for %d products: %w",
			len(res.Embeddings), len(texts), domain.ErrEmbeddingProviderError)
	}
	for j, i := range idx {
		products[i] = products[i].WithEmbedding(res.Embeddings[j])
	}
	s.logger.Info("Embedded catalog products", zap.Int("count", len(texts)), zap.Int("total_tokens", res.TotalTokens))
	return products, nil
}

func (s *Service) notify(snap *vectorindex.Snapshot) {
	s.listenMu.Lock()
	ls := append([]Listener(nil), s.listeners...)
	s.listenMu.Unlock()
	for _, l := range ls {
		l(snap)
	}
}

func (s *Service) logDataQuality(err error) {
	var dq *domain.DataQualityError
	if errors.As(err, &dq) {
		s.logger.Warn("Catalog record skipped",
			zap.String("product_id", dq.ProductID),
			zap.String("reason", dq.Reason),
		)
		return
	}
	s.logger.Warn("Catalog record skipped", zap.Error(err))
}

// Snapshot returns the published snapshot or domain.ErrIndexUnavailable.
func (s *Service) Snapshot() (*vectorindex.Snapshot, error) {
	snap := s.snap.Load()
	if snap == nil {
		return nil, domain.ErrIndexUnavailable
	}
	return snap, nil
}

// Product looks up a product by id, including products that are not indexed.
func (s *Service) Product(id string) (product.Product, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return product.Product{}, err
	}
	p, ok := snap.Product(id)
	if !ok {
		return product.Product{}, fmt.Errorf("%s: %w", id, domain.ErrProductNotFound)
	}
	return p, nil
}

// Count returns the number of known products (0 before the first build).
func (s *Service) Count() int {
	if snap := s.snap.Load(); snap != nil {
		return snap.Count()
	}
	return 0
}

// Ready reports whether a snapshot has been published.
func (s *Service) Ready() bool { return s.snap.Load() != nil }

// Version returns the published snapshot version (0 before the first build).
func (s *Service) Version() uint64 {
	if snap := s.snap.Load(); snap != nil {
		return snap.Version()
	}
	return 0
}
