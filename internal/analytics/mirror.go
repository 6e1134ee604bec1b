// internal/analytics/mirror.go
package analytics

import (
	"context"
	"fmt"
	"time"

	apperrors "loan-risk-service/internal/common/errors"
	"loan-risk-service/internal/common/logger"
	"loan-risk-service/internal/common/metrics"
	"loan-risk-service/internal/models"
)

// Mirror copies persisted applications into the analytical sinks. It is
// best effort: a failing sink is logged and counted, never reported to the
// caller, and never stops the remaining sinks. There is no retry.
type Mirror struct {
	sinks   []Sink
	timeout time.Duration
	logger  logger.Logger
}

func NewMirror(timeout time.Duration, log logger.Logger, sinks ...Sink) *Mirror {
	return &Mirror{
		sinks:   sinks,
		timeout: timeout,
		logger:  log.With(map[string]interface{}{"component": "analytics-mirror"}),
	}
}

// Sinks reports the configured sink names.
func (m *Mirror) Sinks() []string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return names
}

func (m *Mirror) Mirror(ctx context.Context, rec *models.ApplicationRecord) {
	if len(m.sinks) == 0 {
		return
	}

	row := Project(rec, m.logger)
	for _, sink := range m.sinks {
		m.write(ctx, sink, row)
	}
}

func (m *Mirror) write(ctx context.Context, sink Sink, row *Row) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in sink: %v", r)
			}
		}()
		return sink.Write(ctx, row)
	}()

	if err != nil {
		stdErr := apperrors.NewMirrorWriteFailedError(sink.Name(), err)
		m.logger.Error("Failed to mirror loan application", map[string]interface{}{
			"applicationId": row.ApplicationID,
			"sink":          sink.Name(),
			"errorCode":     stdErr.Code,
			"error":         err.Error(),
		})
		metrics.MirrorWrites.WithLabelValues(sink.Name(), "failure").Inc()
		return
	}

	m.logger.Info("Mirrored loan application", map[string]interface{}{
		"applicationId": row.ApplicationID,
		"sink":          sink.Name(),
	})
	metrics.MirrorWrites.WithLabelValues(sink.Name(), "success").Inc()
}
