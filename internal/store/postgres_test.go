// internal/store/postgres_test.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	apperrors "loan-risk-service/internal/common/errors"
	"loan-risk-service/internal/common/logger"
	"loan-risk-service/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recordColumns = []string{"id", "user_id", "payload", "risk_score", "decision", "shap_values", "created_at"}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db, logger.NewTestLogger(t)), mock
}

func testRecord() *models.ApplicationRecord {
	payload := models.NewApplicationPayload(
		models.PayloadEntry{Key: "age", Value: 45},
		models.PayloadEntry{Key: "DebtRatio", Value: 0.2},
	)
	return models.NewApplicationRecord(payload, &models.PredictionResult{
		RiskScore:  0.12,
		Decision:   "APPROVED",
		TopFactors: models.TopFactors{{Name: "DebtRatio", Impact: 0.4}},
	}, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
}

func TestPostgresStore_Save_AssignsID(t *testing.T) {
	store, mock := newMockStore(t)
	rec := testRecord()

	mock.ExpectExec("INSERT INTO loan_applications").
		WithArgs(sqlmock.AnyArg(), nil, `{"age":45,"DebtRatio":0.2}`, 0.12, "APPROVED", `[["DebtRatio",0.4]]`, rec.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	saved, err := store.Save(context.Background(), rec)
	require.NoError(t, err)

	assert.True(t, saved.HasID())
	assert.False(t, rec.HasID(), "input record must not be mutated")
	assert.Equal(t, rec.Decision, saved.Decision)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Save_KeepsExistingID(t *testing.T) {
	store, mock := newMockStore(t)
	rec := testRecord()
	rec.ID = uuid.MustParse("7f9c1e2a-0000-4000-8000-000000000001")
	userID := uuid.MustParse("7f9c1e2a-0000-4000-8000-0000000000ff")
	rec.UserID = &userID

	mock.ExpectExec("INSERT INTO loan_applications").
		WithArgs(rec.ID.String(), userID.String(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	saved, err := store.Save(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, saved.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Save_Failure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO loan_applications").WillReturnError(errors.New("connection reset"))

	saved, err := store.Save(context.Background(), testRecord())
	assert.Nil(t, saved)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePrimaryStore))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPostgresStore_Recent(t *testing.T) {
	store, mock := newMockStore(t)
	newer := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	older := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	userID := "7f9c1e2a-0000-4000-8000-0000000000ff"

	rows := sqlmock.NewRows(recordColumns).
		AddRow("7f9c1e2a-0000-4000-8000-000000000002", nil,
			[]byte(`{"DebtRatio":0.5,"age":30}`), 0.8, "DENIED", []byte(`[["DebtRatio",0.7]]`), newer).
		AddRow("7f9c1e2a-0000-4000-8000-000000000001", userID,
			[]byte(`{"age":45}`), 0.1, "APPROVED", nil, older)

	mock.ExpectQuery("ORDER BY created_at DESC").WithArgs(10).WillReturnRows(rows)

	records, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "DENIED", first.Decision)
	assert.Nil(t, first.UserID)
	assert.Equal(t, []string{"age", "DebtRatio"}, first.Payload.Keys())
	require.Len(t, first.TopFactors, 1)
	assert.Equal(t, newer, first.CreatedAt)

	second := records[1]
	require.NotNil(t, second.UserID)
	assert.Equal(t, userID, second.UserID.String())
	assert.Nil(t, second.TopFactors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Recent_DefaultLimit(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("ORDER BY created_at DESC").WithArgs(DefaultRecentLimit).
		WillReturnRows(sqlmock.NewRows(recordColumns))

	records, err := store.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPostgresStore_Recent_Failures(t *testing.T) {
	t.Run("query error", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("ORDER BY created_at DESC").WillReturnError(sql.ErrConnDone)

		_, err := store.Recent(context.Background(), 10)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRecentQueryFailed))
	})

	t.Run("corrupt payload", func(t *testing.T) {
		store, mock := newMockStore(t)
		rows := sqlmock.NewRows(recordColumns).
			AddRow("7f9c1e2a-0000-4000-8000-000000000001", nil, []byte(`not json`), 0.1, "APPROVED", nil, time.Now())
		mock.ExpectQuery("ORDER BY created_at DESC").WillReturnRows(rows)

		_, err := store.Recent(context.Background(), 10)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRecentQueryFailed))
	})
}
