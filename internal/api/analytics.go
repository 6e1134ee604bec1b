// internal/api/analytics.go
package api

import (
	"errors"
	"net/http"

	"loan-risk-service/internal/analytics"
)

var errAnalyticsDisabled = errors.New("analytics warehouse is not configured")

func (s *Server) handleAnalyticsHealth(w http.ResponseWriter, r *http.Request) {
	if s.analytics == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "unhealthy",
			"error":  errAnalyticsDisabled.Error(),
		})
		return
	}

	count, err := s.analytics.Health(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "unhealthy",
			"error":  describe(err),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "healthy",
		"total_applications": count,
		"message":            "Analytics warehouse connection successful",
	})
}

type summaryResponse struct {
	*analytics.Summary
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	if s.analytics == nil {
		writeJSON(w, http.StatusOK, summaryResponse{Status: "error", Error: errAnalyticsDisabled.Error()})
		return
	}

	summary, err := s.analytics.Summary(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, summaryResponse{Status: "error", Error: describe(err)})
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Summary: summary, Status: "success"})
}

func (s *Server) handleRiskDistribution(w http.ResponseWriter, r *http.Request) {
	if !s.analyticsEnabled(w) {
		return
	}
	buckets, err := s.analytics.RiskDistribution(r.Context())
	if err != nil {
		writeError(w, "Failed to load risk distribution", err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

func (s *Server) handleApprovalRates(w http.ResponseWriter, r *http.Request) {
	if !s.analyticsEnabled(w) {
		return
	}
	rates, err := s.analytics.ApprovalRates(r.Context())
	if err != nil {
		writeError(w, "Failed to load approval rates", err)
		return
	}
	writeJSON(w, http.StatusOK, rates)
}

func (s *Server) handleTopFactors(w http.ResponseWriter, r *http.Request) {
	if !s.analyticsEnabled(w) {
		return
	}
	factors, err := s.analytics.TopFactors(r.Context(), analytics.DefaultFactorLimit)
	if err != nil {
		writeError(w, "Failed to load top factors", err)
		return
	}
	writeJSON(w, http.StatusOK, factors)
}

func (s *Server) analyticsEnabled(w http.ResponseWriter) bool {
	if s.analytics != nil {
		return true
	}
	writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: errAnalyticsDisabled.Error()})
	return false
}
