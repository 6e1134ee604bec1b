// internal/loan/service.go
package loan

import (
	"context"
	"time"

	apperrors "loan-risk-service/internal/common/errors"
	"loan-risk-service/internal/common/logger"
	"loan-risk-service/internal/common/metrics"
	"loan-risk-service/internal/models"
)

// Stage is a step of one application's lifecycle.
type Stage string

const (
	StageReceived         Stage = "received"
	StageScored           Stage = "scored"
	StagePrimaryPersisted Stage = "primary_persisted"
	StageMirrorAttempted  Stage = "mirror_attempted"
	StageResponded        Stage = "responded"
)

const RecentLimit = 10

type Predictor interface {
	Predict(ctx context.Context, payload models.ApplicationPayload) (*models.PredictionResult, error)
}

type RecordStore interface {
	Save(ctx context.Context, record *models.ApplicationRecord) (*models.ApplicationRecord, error)
	Recent(ctx context.Context, limit int) ([]*models.ApplicationRecord, error)
}

// Mirror must swallow its own failures.
type Mirror interface {
	Mirror(ctx context.Context, record *models.ApplicationRecord)
}

// Service runs a loan application through scoring, durable persistence and
// the analytics mirror.
type Service struct {
	predictor Predictor
	store     RecordStore
	mirror    Mirror
	logger    logger.Logger
	now       func() time.Time
}

func NewService(predictor Predictor, store RecordStore, mirror Mirror, log logger.Logger) *Service {
	return &Service{
		predictor: predictor,
		store:     store,
		mirror:    mirror,
		logger:    log.With(map[string]interface{}{"component": "loan-service"}),
		now:       time.Now,
	}
}

// Apply scores and persists one application. Only the scoring and primary
// persistence stages can fail; nothing is written when scoring fails and the
// mirror is not attempted when persistence fails. The returned record is the
// one the primary store confirmed.
func (s *Service) Apply(ctx context.Context, req models.ApplicationRequest) (*models.ApplicationRecord, error) {
	start := time.Now()
	defer func() {
		metrics.ApplicationDuration.Observe(time.Since(start).Seconds())
	}()

	payload := ToPayload(req)
	s.logger.Debug("Loan application received", map[string]interface{}{"stage": StageReceived})

	result, err := s.predictor.Predict(ctx, payload)
	if err != nil {
		return nil, s.fail(StageScored, err)
	}

	saved, err := s.store.Save(ctx, models.NewApplicationRecord(payload, result, s.now()))
	if err != nil {
		return nil, s.fail(StagePrimaryPersisted, err)
	}
	log := s.logger.With(map[string]interface{}{"applicationId": saved.ID.String()})

	s.mirror.Mirror(ctx, saved)
	log.Debug("Analytics mirror attempted", map[string]interface{}{"stage": StageMirrorAttempted})

	metrics.ApplicationsProcessed.WithLabelValues(saved.Decision).Inc()
	log.Info("Loan application processed", map[string]interface{}{
		"stage":     StageResponded,
		"decision":  saved.Decision,
		"riskScore": saved.RiskScore,
		"duration":  time.Since(start).String(),
	})
	return saved, nil
}

func (s *Service) fail(stage Stage, err error) error {
	code := apperrors.CodeOf(err)
	metrics.StageFailures.WithLabelValues(string(stage), string(code)).Inc()
	metrics.ApplicationsProcessed.WithLabelValues("failed").Inc()
	s.logger.Error("Loan application failed", map[string]interface{}{
		"stage":     stage,
		"errorCode": code,
		"error":     err.Error(),
	})
	return err
}

// Recent returns the most recently created applications, newest first.
func (s *Service) Recent(ctx context.Context) ([]*models.ApplicationRecord, error) {
	records, err := s.store.Recent(ctx, RecentLimit)
	if err != nil {
		s.logger.Error("Failed to load recent applications", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	return records, nil
}
