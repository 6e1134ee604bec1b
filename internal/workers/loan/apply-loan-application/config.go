// internal/workers/loan/apply-loan-application/config.go
package applyloanapplication

import (
	"fmt"
	"time"

	"loan-risk-service/internal/common/camunda"
	"loan-risk-service/internal/common/config"
)

// Config for the apply worker. Timeout bounds one application run inside a
// job; RequestTimeout bounds the complete and throw-error commands sent
// after it.
type Config struct {
	Enabled        bool
	MaxJobsActive  int
	Timeout        time.Duration
	MaxRetries     int
	RequestTimeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:        true,
		MaxJobsActive:  5,
		Timeout:        30 * time.Second,
		MaxRetries:     1,
		RequestTimeout: 30 * time.Second,
	}
}

// LoadConfig reads the worker's entry under workers.<TaskType>.
func LoadConfig(cfg *config.Config) *Config {
	wcfg := config.GetWorkerConfig(cfg, TaskType)
	c := DefaultConfig()
	c.Enabled = wcfg.Enabled
	c.RequestTimeout = camunda.RequestTimeout(cfg.Camunda)
	if wcfg.MaxJobsActive > 0 {
		c.MaxJobsActive = wcfg.MaxJobsActive
	}
	if wcfg.Timeout > 0 {
		c.Timeout = config.GetDuration(wcfg.Timeout)
	}
	if wcfg.MaxRetries > 0 {
		c.MaxRetries = wcfg.MaxRetries
	}
	return c
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	return nil
}

// WorkerConfig converts back to the shape camunda.StartWorker expects.
func (c *Config) WorkerConfig() config.WorkerConfig {
	return config.WorkerConfig{
		Enabled:       c.Enabled,
		MaxJobsActive: c.MaxJobsActive,
		Timeout:       int(c.Timeout / time.Millisecond),
		MaxRetries:    c.MaxRetries,
	}
}
