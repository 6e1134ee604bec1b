// internal/models/application.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationRequest is a borrower profile that already passed validation.
// JSON names match the scoring model's feature names exactly.
type ApplicationRequest struct {
	RevolvingUtilizationOfUnsecuredLines  float64 `json:"RevolvingUtilizationOfUnsecuredLines"`
	Age                                   int     `json:"age"`
	NumberOfTime30To59DaysPastDueNotWorse int     `json:"NumberOfTime30_59DaysPastDueNotWorse"`
	DebtRatio                             float64 `json:"DebtRatio"`
	MonthlyIncome                         float64 `json:"MonthlyIncome"`
	NumberOfOpenCreditLinesAndLoans       int     `json:"NumberOfOpenCreditLinesAndLoans"`
	NumberOfTimes90DaysLate               int     `json:"NumberOfTimes90DaysLate"`
	NumberRealEstateLoansOrLines          int     `json:"NumberRealEstateLoansOrLines"`
	NumberOfTime60To89DaysPastDueNotWorse int     `json:"NumberOfTime60_89DaysPastDueNotWorse"`
	NumberOfDependents                    int     `json:"NumberOfDependents"`
}

// PredictionResult is the scoring service verdict.
type PredictionResult struct {
	RiskScore  float64    `json:"risk_score"`
	Decision   string     `json:"decision"`
	TopFactors TopFactors `json:"top_factors"`
}

// ApplicationRecord is the persisted outcome of one application.
type ApplicationRecord struct {
	ID         uuid.UUID          `json:"id"`
	UserID     *uuid.UUID         `json:"userId"` // not wired to an identity system yet
	Payload    ApplicationPayload `json:"payload"`
	RiskScore  float64            `json:"risk_score"`
	Decision   string             `json:"decision"`
	TopFactors TopFactors         `json:"top_factors"`
	CreatedAt  time.Time          `json:"created_at"`
}

// NewApplicationRecord builds an unsaved record. CreatedAt is truncated to
// the precision Postgres keeps so a read-back compares equal.
func NewApplicationRecord(payload ApplicationPayload, result *PredictionResult, now time.Time) *ApplicationRecord {
	return &ApplicationRecord{
		Payload:    payload,
		RiskScore:  result.RiskScore,
		Decision:   result.Decision,
		TopFactors: result.TopFactors,
		CreatedAt:  now.UTC().Truncate(time.Microsecond),
	}
}

// HasID reports whether the primary store already assigned an identifier.
func (r *ApplicationRecord) HasID() bool {
	return r.ID != uuid.Nil
}

// ApplicationResponse is the caller-facing view of a processed application.
type ApplicationResponse struct {
	ApplicationID uuid.UUID  `json:"applicationId"`
	Decision      string     `json:"decision"`
	RiskScore     float64    `json:"risk_score"`
	TopFactors    TopFactors `json:"top_factors"`
}

// RecentApplication is one entry of the recent-applications listing.
type RecentApplication struct {
	ApplicationID uuid.UUID  `json:"applicationId"`
	Decision      string     `json:"decision"`
	RiskScore     float64    `json:"risk_score"`
	TopFactors    TopFactors `json:"top_factors"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (r *ApplicationRecord) Response() ApplicationResponse {
	return ApplicationResponse{
		ApplicationID: r.ID,
		Decision:      r.Decision,
		RiskScore:     r.RiskScore,
		TopFactors:    r.TopFactors,
	}
}

func (r *ApplicationRecord) Recent() RecentApplication {
	return RecentApplication{
		ApplicationID: r.ID,
		Decision:      r.Decision,
		RiskScore:     r.RiskScore,
		TopFactors:    r.TopFactors,
		CreatedAt:     r.CreatedAt,
	}
}
