// internal/common/config/loader_test.go
package config

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
prediction:
  base_url: http://ml:8000
database:
  postgres:
    host: db
    database: loans
    user: app
workers:
  loan-application-apply:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Server.Addr())
	assert.Equal(t, 10000, cfg.Prediction.Timeout)
	assert.Equal(t, 10*time.Second, GetDuration(cfg.Prediction.Timeout))
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, "loan_applications_mirror", cfg.Database.Analytics.Table)
	assert.Equal(t, "loan-applications", cfg.Database.Elasticsearch.Index)
	assert.Equal(t, 256, cfg.Mirror.QueueSize)
	assert.False(t, cfg.Mirror.Async)
	assert.Equal(t, "info", cfg.Logging.Level)

	w := GetWorkerConfig(cfg, "loan-application-apply")
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 1, w.MaxRetries)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_ML_URL", "http://scorer:9000")
	t.Setenv("TEST_DB_PASSWORD", "s3cret")

	path := writeConfig(t, `
prediction:
  base_url: ${TEST_ML_URL}
database:
  postgres:
    host: db
    database: loans
    user: app
    password: ${TEST_DB_PASSWORD}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://scorer:9000", cfg.Prediction.BaseURL)
	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
	assert.Contains(t, cfg.Database.Postgres.GetDSN(), "password=s3cret")
}

func TestLoadFromFile_Validation(t *testing.T) {
	t.Setenv("ML_SERVICE_URL", "")
	t.Setenv("DB_USER", "")

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing prediction url",
			body:    "database:\n  postgres:\n    host: db\n    database: loans\n    user: app\n",
			wantErr: "prediction.base_url is required",
		},
		{
			name:    "missing postgres host",
			body:    "prediction:\n  base_url: http://ml\n",
			wantErr: "database.postgres.host is required",
		},
		{
			name: "redis enabled without address",
			body: "prediction:\n  base_url: http://ml\ndatabase:\n  postgres:\n    host: db\n    database: loans\n    user: app\n" +
				"  redis:\n    enabled: true\n",
			wantErr: "database.redis.address is required",
		},
		{
			name: "camunda enabled without broker",
			body: "prediction:\n  base_url: http://ml\ndatabase:\n  postgres:\n    host: db\n    database: loans\n    user: app\n" +
				"camunda:\n  enabled: true\n",
			wantErr: "camunda.broker_address is required",
		},
		{
			name: "bad trusted proxy",
			body: "prediction:\n  base_url: http://ml\ndatabase:\n  postgres:\n    host: db\n    database: loans\n    user: app\n" +
				"server:\n  trusted_proxies:\n    - not-an-ip\n",
			wantErr: "server.trusted_proxies",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestServerConfig_TrustedProxyNets(t *testing.T) {
	nets, err := ServerConfig{TrustedProxies: []string{"10.0.0.0/8", " 192.168.1.5 ", "::1"}}.TrustedProxyNets()
	require.NoError(t, err)
	require.Len(t, nets, 3)

	assert.True(t, nets[0].Contains(net.ParseIP("10.20.30.40")))
	assert.True(t, nets[1].Contains(net.ParseIP("192.168.1.5")))
	assert.False(t, nets[1].Contains(net.ParseIP("192.168.1.6")))
	assert.True(t, nets[2].Contains(net.ParseIP("::1")))

	nets, err = ServerConfig{}.TrustedProxyNets()
	require.NoError(t, err)
	assert.Empty(t, nets)
}

func TestIsWorkerEnabled(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{"off": {Enabled: false}}}

	assert.False(t, IsWorkerEnabled(cfg, "off"))
	assert.True(t, IsWorkerEnabled(cfg, "unknown"))
}
