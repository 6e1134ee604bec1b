// internal/api/loans.go
package api

import (
	"io"
	"net/http"

	apperrors "loan-risk-service/internal/common/errors"
	"loan-risk-service/internal/common/validation"
	"loan-risk-service/internal/models"
)

const (
	applyFailurePrefix  = "Failed to process loan application"
	recentFailurePrefix = "Failed to fetch recent applications"
)

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, "", apperrors.NewValidationError("request body too large or unreadable"))
		return
	}

	req, err := validation.ParseApplicationRequest(raw)
	if err != nil {
		s.logger.Warn("Rejected loan application", map[string]interface{}{"error": describe(err)})
		writeError(w, "", err)
		return
	}

	rec, err := s.loans.Apply(r.Context(), *req)
	if err != nil {
		writeError(w, applyFailurePrefix, err)
		return
	}
	writeJSON(w, http.StatusOK, rec.Response())
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	records, err := s.loans.Recent(r.Context())
	if err != nil {
		writeError(w, recentFailurePrefix, err)
		return
	}

	out := make([]models.RecentApplication, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Recent())
	}
	writeJSON(w, http.StatusOK, out)
}
