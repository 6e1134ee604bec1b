// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	apperrors "loan-risk-service/internal/common/errors"
	"loan-risk-service/internal/common/logger"
	"loan-risk-service/internal/models"

	"github.com/google/uuid"
)

const (
	insertApplicationSQL = `INSERT INTO loan_applications
		(id, user_id, payload, risk_score, decision, shap_values, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	recentApplicationsSQL = `SELECT id, user_id, payload, risk_score, decision, shap_values, created_at
		FROM loan_applications
		ORDER BY created_at DESC
		LIMIT $1`
)

// DefaultRecentLimit is the size of the recent-applications listing.
const DefaultRecentLimit = 10

// PostgresStore is the system of record for scored applications.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.With(map[string]interface{}{"component": "primary-store"}),
	}
}

// Save inserts the record as a single row and returns it with its
// identifier set. A fresh UUID is assigned when the record has none. The
// caller's record is not modified.
func (s *PostgresStore) Save(ctx context.Context, record *models.ApplicationRecord) (*models.ApplicationRecord, error) {
	saved := *record
	if !saved.HasID() {
		saved.ID = uuid.New()
	}

	payloadJSON, err := json.Marshal(saved.Payload)
	if err != nil {
		return nil, apperrors.NewPrimaryStoreError(fmt.Errorf("marshal payload: %w", err))
	}
	factorsJSON, err := json.Marshal(saved.TopFactors)
	if err != nil {
		return nil, apperrors.NewPrimaryStoreError(fmt.Errorf("marshal top factors: %w", err))
	}

	var userID interface{}
	if saved.UserID != nil {
		userID = *saved.UserID
	}

	_, err = s.db.ExecContext(ctx, insertApplicationSQL,
		saved.ID,
		userID,
		string(payloadJSON),
		saved.RiskScore,
		saved.Decision,
		string(factorsJSON),
		saved.CreatedAt,
	)
	if err != nil {
		s.logger.Error("Failed to persist loan application", map[string]interface{}{
			"applicationId": saved.ID.String(),
			"error":         err.Error(),
		})
		return nil, apperrors.NewPrimaryStoreError(fmt.Errorf("insert loan application: %w", err))
	}

	s.logger.Debug("Loan application persisted", map[string]interface{}{
		"applicationId": saved.ID.String(),
	})
	return &saved, nil
}

// Recent returns up to limit records, newest first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]*models.ApplicationRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := s.db.QueryContext(ctx, recentApplicationsSQL, limit)
	if err != nil {
		return nil, apperrors.NewRecentQueryFailedError(err)
	}
	defer rows.Close()

	records := make([]*models.ApplicationRecord, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, apperrors.NewRecentQueryFailedError(err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewRecentQueryFailedError(err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (*models.ApplicationRecord, error) {
	var (
		rec         models.ApplicationRecord
		userID      uuid.NullUUID
		payloadJSON []byte
		factorsJSON []byte
	)
	if err := rows.Scan(&rec.ID, &userID, &payloadJSON, &rec.RiskScore, &rec.Decision, &factorsJSON, &rec.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan loan application: %w", err)
	}

	if userID.Valid {
		id := userID.UUID
		rec.UserID = &id
	}
	if err := json.Unmarshal(payloadJSON, &rec.Payload); err != nil {
		return nil, fmt.Errorf("decode payload of %s: %w", rec.ID, err)
	}
	if len(factorsJSON) > 0 {
		if err := json.Unmarshal(factorsJSON, &rec.TopFactors); err != nil {
			return nil, fmt.Errorf("decode top factors of %s: %w", rec.ID, err)
		}
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}
