// internal/workers/loan/apply-loan-application/models.go
package applyloanapplication

import "loan-risk-service/internal/models"

// Input is the job's variables: one borrower profile.
type Input = models.ApplicationRequest

// Output is merged back into the process instance.
type Output struct {
	ApplicationID string            `json:"applicationId"`
	Decision      string            `json:"decision"`
	RiskScore     float64           `json:"risk_score"`
	TopFactors    models.TopFactors `json:"top_factors"`
}
