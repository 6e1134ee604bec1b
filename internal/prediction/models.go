// internal/prediction/models.go
package prediction

import "loan-risk-service/internal/models"

// predictResponse is the wire shape of a scoring answer. Pointers tell a
// missing field from a zero value.
type predictResponse struct {
	RiskScore  *float64          `json:"risk_score"`
	Decision   *string           `json:"decision"`
	TopFactors models.TopFactors `json:"top_factors"`
}

func (r *predictResponse) result() *models.PredictionResult {
	return &models.PredictionResult{
		RiskScore:  *r.RiskScore,
		Decision:   *r.Decision,
		TopFactors: r.TopFactors,
	}
}
