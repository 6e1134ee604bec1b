// cmd/loan-service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"loan-risk-service/internal/analytics"
	"loan-risk-service/internal/api"
	"loan-risk-service/internal/common/camunda"
	"loan-risk-service/internal/common/config"
	"loan-risk-service/internal/common/database"
	"loan-risk-service/internal/common/logger"
	"loan-risk-service/internal/common/observability"
	"loan-risk-service/internal/loan"
	"loan-risk-service/internal/prediction"
	"loan-risk-service/internal/store"
	apply "loan-risk-service/internal/workers/loan/apply-loan-application"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})
	zapLog.Info("Starting loan risk service...", zap.String("environment", cfg.App.Environment))

	obs := observability.New(cfg.App.Name, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	readiness := map[string]api.Checker{}

	// --- Primary store with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	readiness["postgres"] = pg.Ping
	if err := pg.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		zapLog.Warn("pool metrics disabled", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	var records loan.RecordStore = store.NewPostgresStore(pg.GetDB(), log)

	// --- Recent-list cache ---
	if cfg.Database.Redis.Enabled {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		records = store.NewCachedStore(records, rdb.GetClient(), rdb.CacheTTL(), log)
		zapLog.Info("Redis connected successfully")
	}

	// --- Analytics sinks ---
	var (
		sinks   []analytics.Sink
		queries api.AnalyticsQueries
	)

	if cfg.Database.Analytics.Enabled {
		var wh *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			wh, err = database.NewAnalytics(cfg.Database.Analytics)
			if err != nil {
				return err
			}
			return wh.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Analytics warehouse connection")
		if err != nil {
			// The warehouse is best-effort; the service still answers without it.
			zapLog.Warn("analytics warehouse unavailable, mirror and reports disabled", zap.Error(err))
		} else {
			defer wh.Close()
			if err := wh.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
				zapLog.Warn("pool metrics disabled", zap.Error(err))
			}
			sinks = append(sinks, analytics.NewSQLSink(wh.GetDB(), cfg.Database.Analytics.Table))
			queries = analytics.NewQueries(wh.GetDB(), cfg.Database.Analytics.Table, log)
			zapLog.Info("Analytics warehouse connected successfully",
				zap.String("table", cfg.Database.Analytics.Table))
		}
	}

	if cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := esClient.Ping(ctx); err != nil {
				return err
			}
			created, err := esClient.EnsureIndex(ctx, cfg.Database.Elasticsearch.Index)
			if created {
				zapLog.Info("Created search index", zap.String("index", cfg.Database.Elasticsearch.Index))
			}
			return err
		}, 10, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, search index mirror disabled", zap.Error(err))
		} else {
			sinks = append(sinks, analytics.NewElasticsearchSink(esClient.Client, cfg.Database.Elasticsearch.Index))
			zapLog.Info("Elasticsearch connected successfully",
				zap.String("index", cfg.Database.Elasticsearch.Index))
		}
	}

	fanout := analytics.NewMirror(config.GetDuration(cfg.Mirror.Timeout), log, sinks...)
	var mirror loan.Mirror = fanout

	var async *analytics.AsyncMirror
	if cfg.Mirror.Async {
		async = analytics.NewAsyncMirror(fanout, cfg.Mirror.QueueSize, cfg.Mirror.Workers, log)
		async.Start()
		mirror = async
	}
	zapLog.Info("Analytics mirror configured",
		zap.Strings("sinks", fanout.Sinks()),
		zap.Bool("async", cfg.Mirror.Async),
	)

	// --- Orchestrator ---
	predictor := prediction.NewClient(prediction.ConfigFrom(cfg.Prediction), log)
	service := loan.NewService(predictor, records, mirror, log)

	// --- Workflow worker ---
	var (
		zeebe     *camunda.Client
		jobWorker worker.JobWorker
	)
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		readiness["zeebe"] = zeebe.HealthCheck
		zapLog.Info("Zeebe client connected successfully")

		wcfg := apply.LoadConfig(cfg)
		if err := wcfg.Validate(); err != nil {
			zapLog.Fatal("invalid worker config", zap.String("taskType", apply.TaskType), zap.Error(err))
		}
		handler := apply.NewHandler(wcfg, service, obs, log)
		jobWorker = camunda.StartWorker(zeebe.GetClient(), apply.TaskType, wcfg.WorkerConfig(), handler.Handle, log)
	}

	// --- HTTP surface ---
	trustedProxies, err := cfg.Server.TrustedProxyNets()
	if err != nil {
		zapLog.Fatal("invalid trusted proxies", zap.Error(err))
	}

	server := api.NewServer(service, queries, api.Options{
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustedProxies: trustedProxies,
		Readiness:      readiness,
		Observability:  obs,
	}, log)

	if limiter := server.RateLimiter(); limiter != nil {
		limiter.StartCleanup(ctx, time.Minute)
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	serveErr := make(chan error, 1)
	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		zapLog.Info("Shutting down loan risk service...")
	case err := <-serveErr:
		zapLog.Error("HTTP server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("HTTP server shutdown incomplete", zap.Error(err))
	}

	if jobWorker != nil {
		jobWorker.Close()
		jobWorker.AwaitClose()
	}
	if zeebe != nil {
		_ = zeebe.Close()
	}

	if async != nil {
		if err := async.Shutdown(shutdownCtx); err != nil {
			zapLog.Warn("analytics mirror queue not drained", zap.Error(err))
		}
	}

	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("observability shutdown failed", zap.Error(err))
	}

	zapLog.Info("Loan risk service stopped")
}
