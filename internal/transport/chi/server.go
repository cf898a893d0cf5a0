package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/request"
	chatuc "github.com/kailas-cloud/prodsearch/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/prodsearch/internal/usecase/health"
	usageuc "github.com/kailas-cloud/prodsearch/internal/usecase/usage"
)

// Defaults for Config.
const (
	DefaultRecommendK   = 10
	DefaultMaxBodyBytes = 1 << 20
)

// Config tunes request handling.
type Config struct {
	DefaultK     int
	MaxK         int
	RecommendK   int
	MaxBodyBytes int64
}

// Deps are the use cases served over HTTP. Chat, Recommend, Catalog and
// Usage may be nil; their routes are then not mounted.
type Deps struct {
	Search    Searcher
	Answer    Answerer
	Chat      Chatter
	Recommend Recommender
	Catalog   Catalog
	Health    HealthChecker
	Usage     UsageReporter
}

// Server is the product search HTTP API.
type Server struct {
	deps          Deps
	cfg           Config
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(deps Deps, cfg Config, logger *zap.Logger) *Server {
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = request.DefaultTopK
	}
	if cfg.MaxK <= 0 {
		cfg.MaxK = request.MaxTopK
	}
	if cfg.RecommendK <= 0 {
		cfg.RecommendK = DefaultRecommendK
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		deps:          deps,
		cfg:           cfg,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Mount registers the API routes on r.
func (s *Server) Mount(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
	})

	r.Post("/search", s.SearchProducts)
	r.Post("/ask", s.AskQuestion)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	if s.deps.Chat != nil {
		r.Post("/chat", s.Chat)
	}
	if s.deps.Catalog != nil {
		r.Get("/products/{id}", s.GetProduct)
		r.Post("/admin/reindex", s.Reindex)
	}
	if s.deps.Recommend != nil {
		r.Get("/users/{userID}/recommendations", s.GetRecommendations)
	}
	if s.deps.Usage != nil {
		r.Get("/usage", s.GetUsage)
	}
}

// Handler returns a router with the API routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Mount(r)
	return r
}

// SearchProducts handles POST /search.
func (s *Server) SearchProducts(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !s.decode(w, r, &req) {
		return
	}

	if req.K != nil && (*req.K < 1 || *req.K > s.cfg.MaxK) {
		s.handleDomainError(w, r, domain.NewValidationError("k must be between 1 and %d", s.cfg.MaxK))
		return
	}
	k := 0
	if req.K != nil {
		k = *req.K
	}

	sr, err := request.New(req.Query, k, s.cfg.DefaultK, s.cfg.MaxK, req.MinRating, req.MaxPrice)
	if err != nil {
		s.handleDomainError(w, r, domain.NewValidationError("%s", err.Error()))
		return
	}

	resp, err := s.deps.Search.Search(r.Context(), &sr, nil)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	cache := "miss"
	if resp.CacheHit {
		cache = "hit"
	}
	w.Header().Set("X-Cache", cache)
	writeJSON(w, http.StatusOK, ProductListResponse{
		Products: rankedListToDTO(resp.Results),
		Count:    len(resp.Results),
	})
}

// AskQuestion handles POST /ask.
func (s *Server) AskQuestion(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.deps.Answer.Answer(r.Context(), req.Query)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AnswerResponse{
		Answer:   res.Text,
		Products: productsToDTO(res.Products),
		Model:    res.Model,
	})
}

// Chat handles POST /chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !s.decode(w, r, &req) {
		return
	}

	reply, err := s.deps.Chat.Handle(r.Context(), chatuc.Request{Query: req.Query, UserID: req.UserID})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Intent:   string(reply.Intent),
		Reply:    reply.Text,
		Products: rankedListToDTO(reply.Products),
	})
}

// GetProduct handles GET /products/{id}.
func (s *Server) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Catalog.Product(chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, productToDTO(p))
}

// GetRecommendations handles GET /users/{userID}/recommendations.
func (s *Server) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	k := s.cfg.RecommendK
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > s.cfg.MaxK {
			s.handleDomainError(w, r, domain.NewValidationError("k must be between 1 and %d", s.cfg.MaxK))
			return
		}
		k = n
	}

	rs, err := s.deps.Recommend.Recommend(r.Context(), chi.URLParam(r, "userID"), k)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ProductListResponse{
		Products: rankedListToDTO(rs),
		Count:    len(rs),
	})
}

// Reindex handles POST /admin/reindex.
func (s *Server) Reindex(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Catalog.Rebuild(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsToDTO(stats))
}

// GetUsage handles GET /usage?period=day|month.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period, err := usageuc.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		s.handleDomainError(w, r, domain.NewValidationError("%s", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, usageToDTO(s.deps.Usage.Report(period)))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.deps.Health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthToDTO(report))
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.logger.With(zap.String("request_id", chiMiddleware.GetReqID(r.Context())))
	if errors.Is(err, domain.ErrValidation) {
		log.Debug("validation error", zap.Error(err))
	} else {
		log.Warn("domain error", zap.Error(err))
	}
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
