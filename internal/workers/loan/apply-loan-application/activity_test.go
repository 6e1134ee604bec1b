// internal/workers/loan/apply-loan-application/activity_test.go
package applyloanapplication

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivity(t *testing.T) {
	a := Activity()

	require.NoError(t, a.Validate())
	assert.Equal(t, TaskType, a.TaskType)
	assert.Equal(t, "30s", a.Timeout)
	assert.Equal(t, 1, a.Retries)
	assert.Contains(t, a.ErrorCodes, "LOAN_APPLICATION_INVALID")
	assert.IsIncreasing(t, a.ErrorCodes)
}

func TestActivity_InputSchemaMatchesWorkerValidation(t *testing.T) {
	a := Activity()

	valid := `{"RevolvingUtilizationOfUnsecuredLines":0.3,"age":45,"NumberOfTime30_59DaysPastDueNotWorse":0,` +
		`"DebtRatio":0.2,"MonthlyIncome":5000,"NumberOfOpenCreditLinesAndLoans":4,"NumberOfTimes90DaysLate":0,` +
		`"NumberRealEstateLoansOrLines":1,"NumberOfTime60_89DaysPastDueNotWorse":0,"NumberOfDependents":2}`
	assert.NoError(t, a.ValidateInput([]byte(valid)))
	assert.Error(t, a.ValidateInput([]byte(`{"age":12}`)))
}
