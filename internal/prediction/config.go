// internal/prediction/config.go
package prediction

import (
	"strings"
	"time"

	"loan-risk-service/internal/common/config"
)

const (
	PredictPath    = "/predict"
	DefaultTimeout = 10 * time.Second

	// maxBodyBytes caps how much of a scoring response is read.
	maxBodyBytes = 1 << 20
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

func ConfigFrom(cfg config.PredictionConfig) *Config {
	c := &Config{
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		Timeout: config.GetDuration(cfg.Timeout),
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

func (c *Config) Endpoint() string {
	return strings.TrimRight(c.BaseURL, "/") + PredictPath
}
