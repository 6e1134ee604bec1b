// internal/analytics/async.go
package analytics

import (
	"context"
	"sync"

	"loan-risk-service/internal/common/logger"
	"loan-risk-service/internal/common/metrics"
	"loan-risk-service/internal/models"
)

// Writer is anything that mirrors a record without reporting failure.
type Writer interface {
	Mirror(ctx context.Context, rec *models.ApplicationRecord)
}

// AsyncMirror hands records to a bounded queue drained by a fixed set of
// goroutines. When the queue is full the record is dropped and logged, so
// delivery is at most once.
type AsyncMirror struct {
	next    Writer
	queue   chan *models.ApplicationRecord
	workers int
	logger  logger.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewAsyncMirror(next Writer, queueSize, workers int, log logger.Logger) *AsyncMirror {
	if queueSize <= 0 {
		queueSize = 1
	}
	if workers <= 0 {
		workers = 1
	}
	return &AsyncMirror{
		next:    next,
		queue:   make(chan *models.ApplicationRecord, queueSize),
		workers: workers,
		logger:  log.With(map[string]interface{}{"component": "async-mirror"}),
	}
}

func (a *AsyncMirror) Start() {
	for i := 0; i < a.workers; i++ {
		a.wg.Add(1)
		go a.run()
	}
	a.logger.Info("Async mirror started", map[string]interface{}{
		"workers":   a.workers,
		"queueSize": cap(a.queue),
	})
}

func (a *AsyncMirror) run() {
	defer a.wg.Done()
	for rec := range a.queue {
		metrics.MirrorQueueDepth.Set(float64(len(a.queue)))
		a.next.Mirror(context.Background(), rec)
	}
}

// Mirror enqueues a copy of rec and returns immediately. The caller's
// context is not carried over since the write outlives the request.
func (a *AsyncMirror) Mirror(_ context.Context, rec *models.ApplicationRecord) {
	cp := *rec

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.drop(&cp, "mirror is shut down")
		return
	}

	select {
	case a.queue <- &cp:
		metrics.MirrorQueueDepth.Set(float64(len(a.queue)))
	default:
		a.drop(&cp, "mirror queue full")
	}
}

func (a *AsyncMirror) drop(rec *models.ApplicationRecord, reason string) {
	metrics.MirrorQueueDropped.Inc()
	a.logger.Error("Dropped analytics mirror write", map[string]interface{}{
		"applicationId": rec.ID.String(),
		"reason":        reason,
	})
}

// Shutdown stops accepting records and waits for the queue to drain or ctx
// to expire.
func (a *AsyncMirror) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
