// internal/analytics/queries.go
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	apperrors "loan-risk-service/internal/common/errors"
	"loan-risk-service/internal/common/logger"
)

// approvedDecisions are the decision labels counted as approvals.
const approvedDecisions = `('APPROVE', 'APPROVED')`

const (
	RecentWindowDays   = 7
	ApprovalRateDays   = 30
	DefaultFactorLimit = 10
)

// Summary is the headline view of the warehouse.
type Summary struct {
	TotalApplications          int64    `json:"total_applications"`
	OverallApprovalRatePercent *float64 `json:"overall_approval_rate_percent"`
	AverageRiskScore           *float64 `json:"average_risk_score"`
	ApplicationsLast7Days      int64    `json:"applications_last_7_days"`
}

type RiskBucket struct {
	Bucket              string   `json:"risk_score_bucket"`
	ApplicationCount    int64    `json:"application_count"`
	ApprovedCount       int64    `json:"approved_count"`
	DeniedCount         int64    `json:"denied_count"`
	ApprovalRatePercent *float64 `json:"approval_rate_percent"`
}

type DailyApprovalRate struct {
	Date                 string   `json:"application_date"`
	TotalApplications    int64    `json:"total_applications"`
	ApprovedApplications int64    `json:"approved_applications"`
	DeniedApplications   int64    `json:"denied_applications"`
	ApprovalRatePercent  *float64 `json:"approval_rate_percent"`
	AvgRiskScore         *float64 `json:"avg_risk_score"`
}

type FactorImpact struct {
	FactorName       string   `json:"factor_name"`
	AvgImpact        *float64 `json:"avg_impact"`
	ApplicationCount int64    `json:"application_count"`
}

// Queries runs the read-only reporting queries against the mirror table.
type Queries struct {
	db     *sql.DB
	table  string
	logger logger.Logger
}

func NewQueries(db *sql.DB, table string, log logger.Logger) *Queries {
	return &Queries{
		db:     db,
		table:  table,
		logger: log.With(map[string]interface{}{"component": "analytics-queries"}),
	}
}

func (q *Queries) fail(name string, err error) error {
	q.logger.Error("Analytics query failed", map[string]interface{}{
		"query": name,
		"error": err.Error(),
	})
	return apperrors.NewAnalyticsQueryFailedError(name, err)
}

// Health counts the mirrored rows, proving the warehouse is reachable.
func (q *Queries) Health(ctx context.Context) (int64, error) {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", q.table)
	if err := q.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, q.fail("health", err)
	}
	return count, nil
}

func (q *Queries) Summary(ctx context.Context) (*Summary, error) {
	query := fmt.Sprintf(`SELECT
		COUNT(*),
		ROUND(AVG(CASE WHEN DECISION IN %[2]s THEN 1.0 ELSE 0.0 END) * 100, 2),
		ROUND(AVG(RISK_SCORE)::numeric, 4),
		COUNT(*) FILTER (WHERE CREATED_AT >= CURRENT_DATE - $1 * INTERVAL '1 day')
	FROM %[1]s`, q.table, approvedDecisions)

	var (
		s        Summary
		rate     sql.NullFloat64
		avgScore sql.NullFloat64
	)
	err := q.db.QueryRowContext(ctx, query, RecentWindowDays).
		Scan(&s.TotalApplications, &rate, &avgScore, &s.ApplicationsLast7Days)
	if err != nil {
		return nil, q.fail("summary", err)
	}
	s.OverallApprovalRatePercent = nullable(rate)
	s.AverageRiskScore = nullable(avgScore)
	return &s, nil
}

// RiskDistribution groups applications into tenth-wide risk score buckets.
func (q *Queries) RiskDistribution(ctx context.Context) ([]RiskBucket, error) {
	query := fmt.Sprintf(`SELECT
		TO_CHAR(LEAST(FLOOR(RISK_SCORE * 10), 9) / 10.0, 'FM0.0') || '-' ||
			TO_CHAR((LEAST(FLOOR(RISK_SCORE * 10), 9) + 1) / 10.0, 'FM0.0') AS bucket,
		COUNT(*),
		COUNT(*) FILTER (WHERE DECISION IN %[2]s),
		COUNT(*) FILTER (WHERE DECISION NOT IN %[2]s),
		ROUND(AVG(CASE WHEN DECISION IN %[2]s THEN 1.0 ELSE 0.0 END) * 100, 2)
	FROM %[1]s
	WHERE RISK_SCORE IS NOT NULL
	GROUP BY 1
	ORDER BY 1`, q.table, approvedDecisions)

	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, q.fail("risk-distribution", err)
	}
	defer rows.Close()

	out := []RiskBucket{}
	for rows.Next() {
		var (
			b    RiskBucket
			rate sql.NullFloat64
		)
		if err := rows.Scan(&b.Bucket, &b.ApplicationCount, &b.ApprovedCount, &b.DeniedCount, &rate); err != nil {
			return nil, q.fail("risk-distribution", err)
		}
		b.ApprovalRatePercent = nullable(rate)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, q.fail("risk-distribution", err)
	}
	return out, nil
}

// ApprovalRates returns one entry per day, newest first, for at most
// ApprovalRateDays days.
func (q *Queries) ApprovalRates(ctx context.Context) ([]DailyApprovalRate, error) {
	query := fmt.Sprintf(`SELECT
		CAST(CREATED_AT AS DATE) AS application_date,
		COUNT(*),
		COUNT(*) FILTER (WHERE DECISION IN %[2]s),
		COUNT(*) FILTER (WHERE DECISION NOT IN %[2]s),
		ROUND(AVG(CASE WHEN DECISION IN %[2]s THEN 1.0 ELSE 0.0 END) * 100, 2),
		ROUND(AVG(RISK_SCORE)::numeric, 4)
	FROM %[1]s
	GROUP BY 1
	ORDER BY 1 DESC
	LIMIT $1`, q.table, approvedDecisions)

	rows, err := q.db.QueryContext(ctx, query, ApprovalRateDays)
	if err != nil {
		return nil, q.fail("approval-rates", err)
	}
	defer rows.Close()

	out := []DailyApprovalRate{}
	for rows.Next() {
		var (
			d        DailyApprovalRate
			day      time.Time
			rate     sql.NullFloat64
			avgScore sql.NullFloat64
		)
		if err := rows.Scan(&day, &d.TotalApplications, &d.ApprovedApplications, &d.DeniedApplications, &rate, &avgScore); err != nil {
			return nil, q.fail("approval-rates", err)
		}
		d.Date = day.Format("2006-01-02")
		d.ApprovalRatePercent = nullable(rate)
		d.AvgRiskScore = nullable(avgScore)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, q.fail("approval-rates", err)
	}
	return out, nil
}

// TopFactors averages the factor impacts stored in SHAP_VALUES. Pairs with
// a non-numeric impact are ignored.
func (q *Queries) TopFactors(ctx context.Context, limit int) ([]FactorImpact, error) {
	if limit <= 0 {
		limit = DefaultFactorLimit
	}
	query := fmt.Sprintf(`SELECT
		pair->>0 AS factor_name,
		ROUND(AVG((pair->>1)::numeric), 4) AS avg_impact,
		COUNT(DISTINCT APPLICATION_ID)
	FROM %s, jsonb_array_elements(
		CASE WHEN jsonb_typeof(SHAP_VALUES::jsonb) = 'array' THEN SHAP_VALUES::jsonb ELSE '[]'::jsonb END
	) AS pair
	WHERE jsonb_typeof(pair->1) = 'number'
	GROUP BY 1
	ORDER BY 2 DESC
	LIMIT $1`, q.table)

	rows, err := q.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, q.fail("top-factors", err)
	}
	defer rows.Close()

	out := []FactorImpact{}
	for rows.Next() {
		var (
			f      FactorImpact
			impact sql.NullFloat64
		)
		if err := rows.Scan(&f.FactorName, &impact, &f.ApplicationCount); err != nil {
			return nil, q.fail("top-factors", err)
		}
		f.AvgImpact = nullable(impact)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, q.fail("top-factors", err)
	}
	return out, nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
