package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"stephly/internal/assistant"
	"stephly/internal/auth"
	"stephly/internal/cache"
	"stephly/internal/core"
	"stephly/internal/currency"
	"stephly/internal/log"
	"stephly/internal/middleware/ratelimit"
	"stephly/internal/middleware/security"
	"stephly/internal/middleware/trace"
	"stephly/internal/services"
	"stephly/internal/store"
)

const (
	cacheTTL          = 5 * time.Minute
	cacheCleanupEvery = 10 * time.Minute
	maxHistory        = 100
)

// Services are the application services the handlers call.
type Services struct {
	Store        store.Store // readiness
	Users        *services.UserService
	Transactions *services.TransactionService
	Budgets      *services.BudgetService
	Todos        *services.TodoService
	Assistant    *assistant.Assistant
	Currency     *currency.Client
}

// Config holds the server settings that do not come from services.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	TrustedProxies     []string
}

type Server struct {
	http.Server
	svc    Services
	issuer *auth.Issuer
	logger *log.Logger
	now    func() time.Time

	detector *security.Detector
	tracer   *trace.Middleware
	limiter  *ratelimit.Limiter

	// per-user caches, keyed "<userID>:..."
	caches    *cache.Manager
	stats     *cache.LRUCache[core.Stats]
	summaries *cache.LRUCache[summaryView]
	cacheHits int64

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer wires the middleware chain and routes, returning a ready-to-run
// server. Cache invalidation is hooked onto the transaction and budget
// services.
func NewServer(cfg Config, svc Services, issuer *auth.Issuer, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server:    http.Server{Addr: cfg.Addr, ReadHeaderTimeout: 10 * time.Second},
		svc:       svc,
		issuer:    issuer,
		logger:    logger,
		now:       time.Now,
		detector:  security.NewDetector(logger),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		caches:    cache.NewManager(logger),
		stats:     cache.NewLRUCache[core.Stats](500, cacheTTL),
		summaries: cache.NewLRUCache[summaryView](500, cacheTTL),
		started:   time.Now(),
	}
	for _, cidr := range cfg.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	s.caches.Register(s.stats)
	s.caches.Register(s.summaries)
	if svc.Currency != nil {
		s.caches.Register(svc.Currency.Cache())
	}
	s.caches.StartCleanup(cacheCleanupEvery)

	if svc.Transactions != nil {
		svc.Transactions.OnChange(s.invalidateUser)
	}
	if svc.Budgets != nil {
		svc.Budgets.OnChange(s.invalidateUser)
	}

	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(s.tracer.Middleware)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(trace.RequestID))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		writeErrorMessage(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorMessage(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignUp)
		r.Post("/auth/signin", s.handleSignIn)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/profile", s.handleGetProfile)
			r.Patch("/profile", s.handleUpdateProfile)

			r.Get("/transactions", s.handleListTransactions)
			r.Post("/transactions", s.handleAddTransaction)
			r.Get("/transactions/{id}", s.handleGetTransaction)
			r.Put("/transactions/{id}", s.handleUpdateTransaction)
			r.Delete("/transactions/{id}", s.handleDeleteTransaction)

			r.Get("/budgets", s.handleListBudgets)
			r.Post("/budgets", s.handleSetBudget)
			r.Post("/budgets/affordability", s.handleAffordability)
			r.Delete("/budgets/{id}", s.handleDeleteBudget)

			r.Get("/todos", s.handleListTodos)
			r.Post("/todos", s.handleAddTodo)
			r.Post("/todos/{id}/complete", s.handleCompleteTodo)
			r.Delete("/todos/{id}", s.handleDeleteTodo)

			r.Post("/chat", s.handleChat)
			r.Get("/chat/history", s.handleChatHistory)
			r.Delete("/chat/history", s.handleClearAIData)
			r.Get("/insights", s.handleListInsights)
			r.Post("/insights/{id}/ack", s.handleAckInsight)
			r.Put("/memory", s.handleSaveMemory)

			r.Get("/analytics/summary", s.handleSummary)
			r.Get("/analytics/advice", s.handleAdvice)
			r.Get("/analytics/suggestions", s.handleSuggestions)

			r.Get("/currency/rates", s.handleRates)
			r.Get("/currency/convert", s.handleConvert)
		})
	})
	return r
}

func userPrefix(userID int64) string {
	return strconv.FormatInt(userID, 10) + ":"
}

// invalidateUser drops every cached view of the user's data.
func (s *Server) invalidateUser(userID int64) {
	p := userPrefix(userID)
	n := s.stats.DeletePrefix(p) + s.summaries.DeletePrefix(p)
	if n > 0 {
		s.logger.Debug("Cache invalidated", log.FieldUserID, userID, "entries", n)
	}
}

// cachedStats returns the user's running totals, cached until the next write.
func (s *Server) cachedStats(ctx context.Context, userID int64) (core.Stats, error) {
	key := userPrefix(userID) + "stats"
	if st, ok := s.stats.Get(key); ok {
		atomic.AddInt64(&s.cacheHits, 1)
		return st, nil
	}
	st, err := s.svc.Transactions.Stats(ctx, userID)
	if err != nil {
		return core.Stats{}, err
	}
	s.stats.Set(key, st)
	return st, nil
}

// Shutdown stops background cleanups and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.svc.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.Store.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store unavailable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics exposes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	rm := s.limiter.GetMetrics()
	dm := s.detector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n", tm.TotalRequests)
	fmt.Fprintf(w, "# HELP http_client_errors_total Responses with a 4xx status\n")
	fmt.Fprintf(w, "# TYPE http_client_errors_total counter\n")
	fmt.Fprintf(w, "http_client_errors_total %d\n", tm.ClientErrors)
	fmt.Fprintf(w, "# HELP http_server_errors_total Responses with a 5xx status\n")
	fmt.Fprintf(w, "# TYPE http_server_errors_total counter\n")
	fmt.Fprintf(w, "http_server_errors_total %d\n", tm.ServerErrors)
	fmt.Fprintf(w, "# HELP cache_hits_total Total number of cache hits\n")
	fmt.Fprintf(w, "# TYPE cache_hits_total counter\n")
	fmt.Fprintf(w, "cache_hits_total %d\n", atomic.LoadInt64(&s.cacheHits))
	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total number of rate limited requests\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n", rm.TotalHits)
	fmt.Fprintf(w, "# HELP suspicious_requests_total Total number of suspicious requests\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n", dm.SuspiciousRequests)
	fmt.Fprintf(w, "# HELP active_rate_limit_clients Number of clients tracked by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n", s.limiter.ActiveClients())
	fmt.Fprintf(w, "# HELP uptime_seconds Time since server start\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.started).Seconds())
}
