// internal/analytics/row.go
package analytics

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"loan-risk-service/internal/common/logger"
	"loan-risk-service/internal/common/metrics"
	"loan-risk-service/internal/models"
)

// Fixed analytical columns around the flattened payload.
const (
	ColumnApplicationID = "APPLICATION_ID"
	ColumnUserID        = "USER_ID"
	ColumnRiskScore     = "RISK_SCORE"
	ColumnDecision      = "DECISION"
	ColumnShapValues    = "SHAP_VALUES"
	ColumnCreatedAt     = "CREATED_AT"
)

// Columns returns the wide-row column list in insert order. The payload
// columns come from models.PayloadFields.
func Columns() []string {
	cols := make([]string, 0, len(models.PayloadFields)+6)
	cols = append(cols, ColumnApplicationID, ColumnUserID)
	for _, f := range models.PayloadFields {
		cols = append(cols, f.Column)
	}
	return append(cols, ColumnRiskScore, ColumnDecision, ColumnShapValues, ColumnCreatedAt)
}

// Row is one denormalized application in the analytical schema. Values
// line up with Columns(); nil is written as NULL.
type Row struct {
	ApplicationID string
	UserID        *string
	Fields        []interface{}
	RiskScore     float64
	Decision      string
	ShapValues    string
	CreatedAt     time.Time
}

// Values returns the row's values in Columns() order.
func (r *Row) Values() []interface{} {
	vals := make([]interface{}, 0, len(r.Fields)+6)
	var userID interface{}
	if r.UserID != nil {
		userID = *r.UserID
	}
	vals = append(vals, r.ApplicationID, userID)
	vals = append(vals, r.Fields...)
	return append(vals, r.RiskScore, r.Decision, r.ShapValues, r.CreatedAt)
}

// Document returns the row keyed by column name.
func (r *Row) Document() map[string]interface{} {
	cols := Columns()
	vals := r.Values()
	doc := make(map[string]interface{}, len(cols))
	for i, c := range cols {
		doc[c] = vals[i]
	}
	return doc
}

// Project flattens a persisted record. Payload values that are missing or
// cannot be coerced to the column kind become nil and are logged; projection
// itself never fails.
func Project(rec *models.ApplicationRecord, log logger.Logger) *Row {
	row := &Row{
		ApplicationID: rec.ID.String(),
		Fields:        make([]interface{}, len(models.PayloadFields)),
		RiskScore:     rec.RiskScore,
		Decision:      rec.Decision,
		CreatedAt:     rec.CreatedAt,
	}
	if rec.UserID != nil {
		uid := rec.UserID.String()
		row.UserID = &uid
	}

	for i, f := range models.PayloadFields {
		raw, _ := rec.Payload.Get(f.Key)
		v, ok := coerce(raw, f.Kind)
		if !ok {
			log.Warn("Could not coerce payload value, writing NULL", map[string]interface{}{
				"applicationId": row.ApplicationID,
				"key":           f.Key,
				"value":         raw,
			})
			metrics.MirrorCoercionNulls.WithLabelValues(f.Column).Inc()
		}
		row.Fields[i] = v
	}

	shap, err := rec.TopFactors.JSON()
	if err != nil {
		log.Warn("Could not serialize top factors", map[string]interface{}{
			"applicationId": row.ApplicationID,
			"error":         err.Error(),
		})
		shap = "null"
	}
	row.ShapValues = shap
	return row
}

// coerce converts a loosely typed payload value to float64 or int64. Reals
// truncate toward zero when an integer is wanted. Strings are parsed.
func coerce(v interface{}, kind models.FieldKind) (interface{}, bool) {
	var (
		f   float64
		i   int64
		isI bool
	)

	switch n := v.(type) {
	case nil:
		return nil, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		i, isI = int64(n), true
	case int32:
		i, isI = int64(n), true
	case int64:
		i, isI = n, true
	case json.Number:
		if iv, err := n.Int64(); err == nil {
			i, isI = iv, true
		} else if fv, err := n.Float64(); err == nil {
			f = fv
		} else {
			return nil, false
		}
	case string:
		s := strings.TrimSpace(n)
		if kind == models.KindInteger {
			iv, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, false
			}
			return iv, true
		}
		fv, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(fv) || math.IsInf(fv, 0) {
			return nil, false
		}
		return fv, true
	default:
		return nil, false
	}

	if kind == models.KindInteger {
		if isI {
			return i, true
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		return int64(f), true
	}
	if isI {
		return float64(i), true
	}
	return f, true
}
