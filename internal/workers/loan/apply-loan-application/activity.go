// internal/workers/loan/apply-loan-application/activity.go
package applyloanapplication

import (
	"sort"

	"loan-risk-service/internal/common/errors"
	"loan-risk-service/internal/common/validation"
	"loan-risk-service/pkg/registry"
)

// Activity is this worker's entry in the activity registry.
func Activity() registry.Activity {
	codes := make([]string, 0, len(errors.BPMNErrorMapping))
	for _, code := range errors.BPMNErrorMapping {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	cfg := DefaultConfig()
	return registry.Activity{
		ID:                   TaskType,
		DisplayName:          "Apply Loan Application",
		Description:          "Scores a borrower profile, stores the decision and mirrors it to analytics",
		Category:             "loan",
		Version:              "1.0.0",
		TaskType:             TaskType,
		ImplementationStatus: registry.StatusCompleted,
		InputSchema:          validation.ApplicationRequestSchema(),
		OutputSchema:         outputSchema(),
		ErrorCodes:           codes,
		Timeout:              cfg.Timeout.String(),
		Retries:              cfg.MaxRetries,
		Tags:                 []string{"scoring", "persistence"},
	}
}

func outputSchema() map[string]interface{} {
	return map[string]interface{}{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type":    "object",
		"properties": map[string]interface{}{
			"applicationId": map[string]interface{}{"type": "string", "format": "uuid"},
			"decision":      map[string]interface{}{"type": "string"},
			"risk_score":    map[string]interface{}{"type": "number"},
			"top_factors": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type":     "array",
					"minItems": 2,
					"maxItems": 2,
				},
			},
		},
		"required": []interface{}{"applicationId", "decision", "risk_score", "top_factors"},
	}
}
