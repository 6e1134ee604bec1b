// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"loan-risk-service/internal/common/config"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Pool names, also used as the db_name label of the pool metrics.
const (
	PoolPrimary   = "primary"
	PoolAnalytics = "analytics"
)

// PostgresClient is one named connection pool. The primary store and the
// analytics warehouse each get their own.
type PostgresClient struct {
	DB   *sql.DB
	Name string
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	return open(PoolPrimary, cfg.GetDSN(), cfg.MaxConnections, cfg.MaxIdle)
}

func NewAnalytics(cfg config.AnalyticsConfig) (*PostgresClient, error) {
	return open(PoolAnalytics, cfg.GetDSN(), cfg.MaxConnections, cfg.MaxIdle)
}

// sql.Open only validates the DSN; nothing is dialled until Ping or the
// first query.
func open(name, dsn string, maxOpen, maxIdle int) (*PostgresClient, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s pool: %w", name, err)
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db, Name: name}, nil
}

// RegisterMetrics exports the pool's sql.DBStats on reg. Registering the
// same pool twice is not an error.
func (c *PostgresClient) RegisterMetrics(reg prometheus.Registerer) error {
	err := reg.Register(collectors.NewDBStatsCollector(c.DB, c.Name))
	var already prometheus.AlreadyRegisteredError
	if err != nil && !errors.As(err, &already) {
		return fmt.Errorf("register %s pool metrics: %w", c.Name, err)
	}
	return nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("%s pool ping: %w", c.Name, err)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

func (c *PostgresClient) GetDB() *sql.DB {
	return c.DB
}
