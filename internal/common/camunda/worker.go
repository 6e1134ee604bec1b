// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"loan-risk-service/internal/common/config"
	"loan-risk-service/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// JobWorkerBuilder is the part of zbc.Client needed to open a job worker.
type JobWorkerBuilder interface {
	NewJobWorker() worker.JobWorkerBuilderStep1
}

// StartWorker opens a job worker for taskType. It returns nil when the
// worker is disabled in config.
func StartWorker(
	client JobWorkerBuilder,
	taskType string,
	wcfg config.WorkerConfig,
	handlerFunc worker.JobHandler,
	log logger.Logger,
) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(handlerFunc).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return jw
}
