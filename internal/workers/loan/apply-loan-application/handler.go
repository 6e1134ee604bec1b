// internal/workers/loan/apply-loan-application/handler.go
package applyloanapplication

import (
	"context"
	"time"

	"loan-risk-service/internal/common/errors"
	"loan-risk-service/internal/common/logger"
	"loan-risk-service/internal/common/metrics"
	"loan-risk-service/internal/common/observability"
	"loan-risk-service/internal/common/validation"
	"loan-risk-service/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "loan-application-apply"

type LoanService interface {
	Apply(ctx context.Context, req models.ApplicationRequest) (*models.ApplicationRecord, error)
}

type Handler struct {
	config       *Config
	service      LoanService
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
	logger       logger.Logger
}

func NewHandler(config *Config, service LoanService, obs *observability.Observability, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		service:      service,
		errorHandler: errors.NewErrorHandler(l),
		obs:          obs,
		logger:       l,
	}
}

// Handle runs one job. A failed application is thrown as a BPMN error and
// never failed back for another attempt.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.process(ctx, job)

	// The run may have used up its own deadline; commands get a fresh one.
	cmdCtx, cmdCancel := context.WithTimeout(context.Background(), h.config.RequestTimeout)
	defer cmdCancel()

	if err != nil {
		code := errors.CodeOf(err)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(code)).Inc()
		h.record(cmdCtx, start, "failed")
		h.errorHandler.HandleJobError(cmdCtx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.errorHandler.HandleJobError(cmdCtx, client, job, errors.NewInternalError(err))
		return
	}
	if _, err := cmd.Send(cmdCtx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.record(cmdCtx, start, "completed")
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey":        job.Key,
		"applicationId": output.ApplicationID,
		"decision":      output.Decision,
	})
}

func (h *Handler) record(ctx context.Context, start time.Time, status string) {
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	if h.obs != nil {
		h.obs.RecordJobProcessed(ctx, TaskType, status)
		h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), status)
	}
}

func (h *Handler) process(ctx context.Context, job entities.Job) (*Output, error) {
	input, err := validation.ParseApplicationRequest([]byte(job.Variables))
	if err != nil {
		return nil, err
	}
	return h.Execute(ctx, input)
}

// Execute runs one validated application through the loan service.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	rec, err := h.service.Apply(ctx, *input)
	if err != nil {
		return nil, err
	}
	return &Output{
		ApplicationID: rec.ID.String(),
		Decision:      rec.Decision,
		RiskScore:     rec.RiskScore,
		TopFactors:    rec.TopFactors,
	}, nil
}
