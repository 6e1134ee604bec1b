// internal/prediction/client.go
package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	apperrors "loan-risk-service/internal/common/errors"
	"loan-risk-service/internal/common/httpclient"
	"loan-risk-service/internal/common/logger"
	"loan-risk-service/internal/common/metrics"
	"loan-risk-service/internal/models"
)

var (
	errMissingRiskScore = errors.New("response missing risk_score")
	errMissingDecision  = errors.New("response missing decision")
)

// Doer sends an HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the external scoring service. It never retries or caches.
type Client struct {
	config *Config
	http   Doer
	logger logger.Logger
}

func NewClient(cfg *Config, log logger.Logger) *Client {
	hc := httpclient.NewClient(cfg.Timeout)
	c := NewClientWithDoer(cfg, hc, log)
	c.logger.Info("Prediction client configured", map[string]interface{}{
		"endpoint": cfg.Endpoint(),
		"timeout":  hc.Timeout().String(),
	})
	return c
}

func NewClientWithDoer(cfg *Config, doer Doer, log logger.Logger) *Client {
	return &Client{
		config: cfg,
		http:   doer,
		logger: log.With(map[string]interface{}{"component": "prediction-client"}),
	}
}

// Predict posts the payload to /predict and returns the verdict.
//
// Failures:
//   - PREDICTION_SERVICE_ERROR for a non-2xx answer, with status and body
//   - PREDICTION_EMPTY_RESPONSE for an empty, null or {} body
//   - PREDICTION_CALL_FAILED for transport, timeout and decoding failures
func (c *Client) Predict(ctx context.Context, payload models.ApplicationPayload) (*models.PredictionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.NewPredictionCallFailedError(fmt.Errorf("encode payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewPredictionCallFailedError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Sending payload to prediction service", map[string]interface{}{
		"endpoint": c.config.Endpoint(),
		"payload":  string(body),
	})

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.PredictionDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		c.logger.Error("Unexpected error calling prediction service", map[string]interface{}{
			"error":   err.Error(),
			"timeout": apperrors.IsTimeout(err),
		})
		return nil, apperrors.NewPredictionCallFailedError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	metrics.PredictionDuration.WithLabelValues(strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, apperrors.NewPredictionCallFailedError(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("Prediction service returned error", map[string]interface{}{
			"status": resp.StatusCode,
			"body":   string(raw),
		})
		return nil, apperrors.NewPredictionServiceError(resp.StatusCode, string(raw))
	}

	result, err := decode(raw)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Prediction service response", map[string]interface{}{
		"decision":   result.Decision,
		"risk_score": result.RiskScore,
		"factors":    len(result.TopFactors),
	})
	return result, nil
}

func decode(raw []byte) (*models.PredictionResult, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}")) {
		return nil, apperrors.NewPredictionEmptyResponseError()
	}

	var body predictResponse
	if err := json.Unmarshal(trimmed, &body); err != nil {
		return nil, apperrors.NewPredictionCallFailedError(fmt.Errorf("decode response: %w", err))
	}
	if body.RiskScore == nil {
		return nil, apperrors.NewPredictionCallFailedError(errMissingRiskScore)
	}
	if body.Decision == nil {
		return nil, apperrors.NewPredictionCallFailedError(errMissingDecision)
	}
	return body.result(), nil
}
