// internal/api/server.go
package api

import (
	"context"
	"net"
	"net/http"

	"loan-risk-service/internal/analytics"
	"loan-risk-service/internal/common/logger"
	"loan-risk-service/internal/common/metrics"
	"loan-risk-service/internal/common/observability"
	"loan-risk-service/internal/models"

	"github.com/gorilla/mux"
)

// maxBodyBytes bounds a loan application request body.
const maxBodyBytes = 1 << 20

type LoanService interface {
	Apply(ctx context.Context, req models.ApplicationRequest) (*models.ApplicationRecord, error)
	Recent(ctx context.Context) ([]*models.ApplicationRecord, error)
}

type AnalyticsQueries interface {
	Health(ctx context.Context) (int64, error)
	Summary(ctx context.Context) (*analytics.Summary, error)
	RiskDistribution(ctx context.Context) ([]analytics.RiskBucket, error)
	ApprovalRates(ctx context.Context) ([]analytics.DailyApprovalRate, error)
	TopFactors(ctx context.Context, limit int) ([]analytics.FactorImpact, error)
}

// Checker reports whether a dependency is usable.
type Checker func(ctx context.Context) error

type Options struct {
	RateLimit      float64 // per client, requests/second on POST /loans/apply; 0 disables
	RateBurst      int
	AllowedOrigins []string
	TrustedProxies []*net.IPNet
	Readiness      map[string]Checker
	Observability  *observability.Observability
}

type Server struct {
	loans     LoanService
	analytics AnalyticsQueries
	opts      Options
	limiter   *RateLimiter
	logger    logger.Logger
}

// NewServer wires the HTTP surface. queries may be nil when the analytical
// warehouse is not configured.
func NewServer(loans LoanService, queries AnalyticsQueries, opts Options, log logger.Logger) *Server {
	s := &Server{
		loans:     loans,
		analytics: queries,
		opts:      opts,
		logger:    log.With(map[string]interface{}{"component": "http"}),
	}
	if opts.RateLimit > 0 {
		s.limiter = NewRateLimiter(opts.RateLimit, opts.RateBurst, opts.TrustedProxies, s.logger)
	}
	return s
}

// RateLimiter returns the apply-route limiter, or nil when disabled.
func (s *Server) RateLimiter() *RateLimiter {
	return s.limiter
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware(s.logger))
	r.Use(MetricsMiddleware(s.opts.Observability))
	r.Use(CORSMiddleware(s.opts.AllowedOrigins))

	var apply http.Handler = http.HandlerFunc(s.handleApply)
	if s.limiter != nil {
		apply = s.limiter.Handler(apply)
	}

	loans := r.PathPrefix("/loans").Subrouter()
	loans.Handle("/apply", apply).Methods(http.MethodPost, http.MethodOptions)
	loans.HandleFunc("/recent", s.handleRecent).Methods(http.MethodGet, http.MethodOptions)

	an := r.PathPrefix("/analytics").Subrouter()
	an.HandleFunc("/health", s.handleAnalyticsHealth).Methods(http.MethodGet, http.MethodOptions)
	an.HandleFunc("/summary", s.handleAnalyticsSummary).Methods(http.MethodGet, http.MethodOptions)
	an.HandleFunc("/risk-distribution", s.handleRiskDistribution).Methods(http.MethodGet, http.MethodOptions)
	an.HandleFunc("/approval-rates", s.handleApprovalRates).Methods(http.MethodGet, http.MethodOptions)
	an.HandleFunc("/top-factors", s.handleTopFactors).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	return r
}
