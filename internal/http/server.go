// Package http exposes the finance service as a small JSON API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"financas/internal/cache"
	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/middleware/ratelimit"
	"financas/internal/middleware/security"
	"financas/internal/middleware/trace"
	"financas/internal/services"
	"financas/internal/storage"
)

// FinanceAPI is the slice of the finance service the handlers call.
type FinanceAPI interface {
	Now() time.Time
	GetMonthlySummary(ctx context.Context, year, month int) (core.MonthlySummary, error)
	GetPartitionedSummary(ctx context.Context, year, month int) (core.PartitionedSummary, error)
	GetActiveInstallments(ctx context.Context) ([]services.InstallmentStatus, error)
	CheckAlerts(ctx context.Context, year, month int) ([]core.Alert, error)
	GenerateInstallmentTransactions(ctx context.Context, year, month int) (services.ExpansionResult, error)
	CancelInstallmentPlan(ctx context.Context, id int64) error
	ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error)
	ReassignCategory(ctx context.Context, id int64, category string) error
	ListCategories(ctx context.Context) ([]core.Category, error)
	SetCategoryBudget(ctx context.Context, name string, budget core.Money) error
	CategoryHistory(ctx context.Context, from, to core.Month) ([]core.CategoryMonthTotal, error)
}

type Options struct {
	Logger            *applog.Logger
	RequestsPerMinute int
	CacheTTL          time.Duration
	CacheSize         int
	TrustedProxies    []string
	// Ready reports whether dependencies can serve; nil means always ready.
	Ready func(context.Context) error
}

type Server struct {
	http.Server
	api   FinanceAPI
	ready func(context.Context) error

	summaries   *cache.LRUCache[core.MonthlySummary]
	partitioned *cache.LRUCache[core.PartitionedSummary]
	janitor     *cache.Janitor
	limiter     *ratelimit.Limiter
	tracer      *trace.Middleware
	stop        context.CancelFunc
}

func NewServer(addr string, api FinanceAPI, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 24
	}
	resolver, err := security.NewIPResolver(opts.TrustedProxies...)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	s := &Server{
		api:         api,
		ready:       opts.Ready,
		summaries:   cache.NewLRUCache[core.MonthlySummary](opts.CacheSize, opts.CacheTTL),
		partitioned: cache.NewLRUCache[core.PartitionedSummary](opts.CacheSize, opts.CacheTTL),
		janitor:     cache.NewJanitor(),
		limiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		tracer:      trace.NewMiddleware(opts.Logger, resolver.ClientIP),
	}
	s.janitor.Register(s.summaries)
	s.janitor.Register(s.partitioned)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/summary/partitioned", s.handlePartitioned)
	mux.HandleFunc("GET /api/installments", s.handleInstallments)
	mux.HandleFunc("POST /api/installments/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/installments/{id}/cancel", s.handleCancel)
	mux.HandleFunc("GET /api/alerts", s.handleAlerts)
	mux.HandleFunc("GET /api/transactions", s.handleTransactions)
	mux.HandleFunc("PUT /api/transactions/{id}/category", s.handleReassign)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("PUT /api/categories/{name}/budget", s.handleBudget)
	mux.HandleFunc("GET /api/forecast", s.handleForecast)
	mux.HandleFunc("GET /api/budget/recommendations", s.handleRecommendations)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)

	limited := s.limiter.Middleware(resolver.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, errorJSON{Error: "rate limit exceeded"})
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(security.Headers(security.DefaultHeadersConfig())(limited(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// StartBackground runs cache and limiter housekeeping until Shutdown.
func (s *Server) StartBackground(ctx context.Context) {
	ctx, s.stop = context.WithCancel(ctx)
	s.janitor.Start(ctx, time.Minute)
	go s.limiter.Run(ctx)
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.stop != nil {
		s.stop()
		s.janitor.Stop()
	}
	return s.Server.Shutdown(ctx)
}

func (s *Server) invalidate(m core.Month) {
	s.summaries.Delete(m.String())
	s.partitioned.Delete(m.String())
}

// invalidateAll drops every cached month; budgets and categories apply to all.
func (s *Server) invalidateAll() {
	s.summaries.DeletePrefix("")
	s.partitioned.DeletePrefix("")
}
