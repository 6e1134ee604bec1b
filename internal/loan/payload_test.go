// internal/loan/payload_test.go
package loan

import (
	"encoding/json"
	"testing"

	"loan-risk-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioRequest() models.ApplicationRequest {
	return models.ApplicationRequest{
		RevolvingUtilizationOfUnsecuredLines:  0.3,
		Age:                                   45,
		NumberOfTime30To59DaysPastDueNotWorse: 0,
		DebtRatio:                             0.2,
		MonthlyIncome:                         5000,
		NumberOfOpenCreditLinesAndLoans:       4,
		NumberOfTimes90DaysLate:               0,
		NumberRealEstateLoansOrLines:          1,
		NumberOfTime60To89DaysPastDueNotWorse: 0,
		NumberOfDependents:                    2,
	}
}

func TestToPayload_CanonicalKeysInOrder(t *testing.T) {
	payload := ToPayload(scenarioRequest())
	assert.Equal(t, models.PayloadKeys(), payload.Keys())
}

func TestToPayload_ValuesCopiedVerbatim(t *testing.T) {
	req := models.ApplicationRequest{
		RevolvingUtilizationOfUnsecuredLines:  1.75,
		Age:                                   67,
		NumberOfTime30To59DaysPastDueNotWorse: 3,
		DebtRatio:                             0.0001,
		MonthlyIncome:                         12345.67,
		NumberOfOpenCreditLinesAndLoans:       11,
		NumberOfTimes90DaysLate:               2,
		NumberRealEstateLoansOrLines:          5,
		NumberOfTime60To89DaysPastDueNotWorse: 1,
		NumberOfDependents:                    0,
	}
	payload := ToPayload(req)

	// The payload must agree field by field with the request's own JSON form.
	raw, err := json.Marshal(req)
	require.NoError(t, err)
	var fromRequest map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fromRequest))

	require.Equal(t, len(fromRequest), payload.Len())
	for _, e := range payload.Entries() {
		encoded, err := json.Marshal(e.Value)
		require.NoError(t, err)
		var v interface{}
		require.NoError(t, json.Unmarshal(encoded, &v))
		assert.Equal(t, fromRequest[e.Key], v, e.Key)
	}

	age, ok := payload.Get("age")
	require.True(t, ok)
	assert.Equal(t, 67, age)
	income, _ := payload.Get("MonthlyIncome")
	assert.Equal(t, 12345.67, income)
}

func TestToPayload_Deterministic(t *testing.T) {
	a, err := json.Marshal(ToPayload(scenarioRequest()))
	require.NoError(t, err)
	b, err := json.Marshal(ToPayload(scenarioRequest()))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
