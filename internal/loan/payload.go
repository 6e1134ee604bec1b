// internal/loan/payload.go
package loan

import "loan-risk-service/internal/models"

// ToPayload maps a validated request onto the canonical ordered payload.
// Values are copied as-is.
func ToPayload(req models.ApplicationRequest) models.ApplicationPayload {
	return models.NewApplicationPayload(
		models.PayloadEntry{Key: "RevolvingUtilizationOfUnsecuredLines", Value: req.RevolvingUtilizationOfUnsecuredLines},
		models.PayloadEntry{Key: "age", Value: req.Age},
		models.PayloadEntry{Key: "NumberOfTime30_59DaysPastDueNotWorse", Value: req.NumberOfTime30To59DaysPastDueNotWorse},
		models.PayloadEntry{Key: "DebtRatio", Value: req.DebtRatio},
		models.PayloadEntry{Key: "MonthlyIncome", Value: req.MonthlyIncome},
		models.PayloadEntry{Key: "NumberOfOpenCreditLinesAndLoans", Value: req.NumberOfOpenCreditLinesAndLoans},
		models.PayloadEntry{Key: "NumberOfTimes90DaysLate", Value: req.NumberOfTimes90DaysLate},
		models.PayloadEntry{Key: "NumberRealEstateLoansOrLines", Value: req.NumberRealEstateLoansOrLines},
		models.PayloadEntry{Key: "NumberOfTime60_89DaysPastDueNotWorse", Value: req.NumberOfTime60To89DaysPastDueNotWorse},
		models.PayloadEntry{Key: "NumberOfDependents", Value: req.NumberOfDependents},
	)
}
