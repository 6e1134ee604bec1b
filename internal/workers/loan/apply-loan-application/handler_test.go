// internal/workers/loan/apply-loan-application/handler_test.go
package applyloanapplication

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"loan-risk-service/internal/common/config"
	"loan-risk-service/internal/common/errors"
	"loan-risk-service/internal/common/logger"
	"loan-risk-service/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

// ==========================
// Mock Service Implementation
// ==========================

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) Apply(ctx context.Context, req models.ApplicationRequest) (*models.ApplicationRecord, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApplicationRecord), args.Error(1)
}

// ==========================
// Mock Job Helper
// ==========================

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)

	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                      key,
		Type:                     TaskType,
		ProcessInstanceKey:       key * 10,
		BpmnProcessId:            "loan-application",
		ProcessDefinitionVersion: 1,
		ElementId:                "Activity_ApplyLoan",
		CustomHeaders:            "{}",
		Worker:                   "test-worker",
		Retries:                  3,
		Variables:                string(variablesJSON),
	}}
}

func validVariables() map[string]interface{} {
	return map[string]interface{}{
		"RevolvingUtilizationOfUnsecuredLines": 0.3,
		"age":                                  45,
		"NumberOfTime30_59DaysPastDueNotWorse": 0,
		"DebtRatio":                            0.2,
		"MonthlyIncome":                        5000,
		"NumberOfOpenCreditLinesAndLoans":      4,
		"NumberOfTimes90DaysLate":              0,
		"NumberRealEstateLoansOrLines":         1,
		"NumberOfTime60_89DaysPastDueNotWorse": 0,
		"NumberOfDependents":                   2,
		"processStartedBy":                     "broker-portal",
	}
}

func createTestHandler(t *testing.T, svc LoanService) *Handler {
	return NewHandler(DefaultConfig(), svc, nil, logger.NewTestLogger(t))
}

// ==========================
// Recording Job Client
// ==========================

// sentCommand is one job command as the gateway received it.
type sentCommand struct {
	kind      string
	jobKey    int64
	errorCode string
	variables string
	ctxErr    error
	deadline  time.Time
}

type recordingGateway struct {
	pb.GatewayClient

	mu   sync.Mutex
	sent []sentCommand
}

func (g *recordingGateway) record(ctx context.Context, c sentCommand) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c.ctxErr = ctx.Err()
	c.deadline, _ = ctx.Deadline()
	g.sent = append(g.sent, c)
}

func (g *recordingGateway) commands() []sentCommand {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sentCommand(nil), g.sent...)
}

func (g *recordingGateway) CompleteJob(ctx context.Context, in *pb.CompleteJobRequest, _ ...grpc.CallOption) (*pb.CompleteJobResponse, error) {
	g.record(ctx, sentCommand{kind: "complete", jobKey: in.JobKey, variables: in.Variables})
	return &pb.CompleteJobResponse{}, nil
}

func (g *recordingGateway) FailJob(ctx context.Context, in *pb.FailJobRequest, _ ...grpc.CallOption) (*pb.FailJobResponse, error) {
	g.record(ctx, sentCommand{kind: "fail", jobKey: in.JobKey})
	return &pb.FailJobResponse{}, nil
}

func (g *recordingGateway) ThrowError(ctx context.Context, in *pb.ThrowErrorRequest, _ ...grpc.CallOption) (*pb.ThrowErrorResponse, error) {
	g.record(ctx, sentCommand{kind: "throw", jobKey: in.JobKey, errorCode: in.ErrorCode, variables: in.Variables})
	return &pb.ThrowErrorResponse{}, nil
}

type recordingJobClient struct {
	gw *recordingGateway
}

func noRetry(context.Context, error) bool { return false }

func (c recordingJobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return commands.NewCompleteJobCommand(c.gw, noRetry)
}

func (c recordingJobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return commands.NewFailJobCommand(c.gw, noRetry)
}

func (c recordingJobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return commands.NewThrowErrorCommand(c.gw, noRetry)
}

// ==========================
// Tests
// ==========================

func TestHandler_Handle_CompletesJob(t *testing.T) {
	svc := new(MockLoanService)
	svc.On("Apply", mock.Anything, mock.Anything).Return(&models.ApplicationRecord{
		ID:        uuid.MustParse("7f9c1e2a-0000-4000-8000-000000000002"),
		RiskScore: 0.2,
		Decision:  "APPROVED",
	}, nil).Once()

	gw := &recordingGateway{}
	createTestHandler(t, svc).Handle(recordingJobClient{gw: gw}, createMockJob(7, validVariables()))

	sent := gw.commands()
	require.Len(t, sent, 1)
	assert.Equal(t, "complete", sent[0].kind)
	assert.Equal(t, int64(7), sent[0].jobKey)
	assert.Contains(t, sent[0].variables, `"applicationId":"7f9c1e2a-0000-4000-8000-000000000002"`)
	svc.AssertExpectations(t)
}

func TestHandler_Handle_FailureIsThrownOnce(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantBPMN string
	}{
		{"scoring service 5xx", errors.NewPredictionServiceError(503, "unavailable"), "PREDICTION_SERVICE_ERROR"},
		{"scoring call failed", errors.NewPredictionCallFailedError(assert.AnError), "PREDICTION_CALL_FAILED"},
		{"primary store", errors.NewPrimaryStoreError(assert.AnError), "PRIMARY_STORE_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockLoanService)
			svc.On("Apply", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			gw := &recordingGateway{}
			createTestHandler(t, svc).Handle(recordingJobClient{gw: gw}, createMockJob(8, validVariables()))

			sent := gw.commands()
			require.Len(t, sent, 1, "exactly one command per job")
			assert.Equal(t, "throw", sent[0].kind)
			assert.Equal(t, tt.wantBPMN, sent[0].errorCode)
			assert.Contains(t, sent[0].variables, `"retryable":true`)
			svc.AssertNumberOfCalls(t, "Apply", 1)
		})
	}
}

func TestHandler_Handle_ThrowsAfterRunDeadline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	cfg.RequestTimeout = 2 * time.Second

	svc := new(MockLoanService)
	svc.On("Apply", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, errors.NewPredictionCallFailedError(context.DeadlineExceeded))

	gw := &recordingGateway{}
	start := time.Now()
	NewHandler(cfg, svc, nil, logger.NewTestLogger(t)).Handle(recordingJobClient{gw: gw}, createMockJob(9, validVariables()))

	sent := gw.commands()
	require.Len(t, sent, 1)
	assert.Equal(t, "throw", sent[0].kind)
	assert.NoError(t, sent[0].ctxErr, "command context must outlive the run deadline")
	require.False(t, sent[0].deadline.IsZero())
	assert.WithinDuration(t, start.Add(cfg.RequestTimeout), sent[0].deadline, time.Second)
}

func TestHandler_Process_Success(t *testing.T) {
	svc := new(MockLoanService)
	id := uuid.MustParse("7f9c1e2a-0000-4000-8000-000000000001")
	svc.On("Apply", mock.Anything, mock.MatchedBy(func(req models.ApplicationRequest) bool {
		return req.Age == 45 && req.NumberRealEstateLoansOrLines == 1
	})).Return(&models.ApplicationRecord{
		ID:         id,
		RiskScore:  0.12,
		Decision:   "APPROVED",
		TopFactors: models.TopFactors{{Name: "DebtRatio", Impact: json.Number("0.4")}},
	}, nil)

	output, err := createTestHandler(t, svc).process(context.Background(), createMockJob(1, validVariables()))
	require.NoError(t, err)

	assert.Equal(t, id.String(), output.ApplicationID)
	assert.Equal(t, "APPROVED", output.Decision)

	vars, err := json.Marshal(output)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"applicationId":"7f9c1e2a-0000-4000-8000-000000000001","decision":"APPROVED","risk_score":0.12,"top_factors":[["DebtRatio",0.4]]}`,
		string(vars))
	svc.AssertExpectations(t)
}

func TestHandler_Process_InvalidVariables(t *testing.T) {
	vars := validVariables()
	vars["age"] = 16

	svc := new(MockLoanService)
	_, err := createTestHandler(t, svc).process(context.Background(), createMockJob(2, vars))
	require.Error(t, err)

	assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
	bpmnErr := errors.ConvertToBPMNError(errors.Normalize(err))
	assert.Equal(t, "LOAN_APPLICATION_INVALID", bpmnErr.Code)
	assert.False(t, bpmnErr.Retryable)
	svc.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything)
}

func TestHandler_Execute_PropagatesCoreErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode errors.ErrorCode
		wantBPMN string
	}{
		{"scoring service 5xx", errors.NewPredictionServiceError(503, "unavailable"), errors.ErrCodePredictionServiceError, "PREDICTION_SERVICE_ERROR"},
		{"scoring call failed", errors.NewPredictionCallFailedError(context.DeadlineExceeded), errors.ErrCodePredictionCallFailed, "PREDICTION_CALL_FAILED"},
		{"primary store", errors.NewPrimaryStoreError(assert.AnError), errors.ErrCodePrimaryStore, "PRIMARY_STORE_ERROR"},
		{"empty verdict", errors.NewPredictionEmptyResponseError(), errors.ErrCodePredictionEmptyResponse, "PREDICTION_EMPTY_RESPONSE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockLoanService)
			svc.On("Apply", mock.Anything, mock.Anything).Return(nil, tt.err)

			input := &Input{Age: 30}
			output, err := createTestHandler(t, svc).Execute(context.Background(), input)
			assert.Nil(t, output)
			assert.Equal(t, tt.wantCode, errors.CodeOf(err))
			assert.Equal(t, tt.wantBPMN, errors.ConvertToBPMNError(errors.Normalize(err)).Code)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	cfg := &config.Config{Workers: map[string]config.WorkerConfig{
		TaskType: {Enabled: false, MaxJobsActive: 2, Timeout: 15000, MaxRetries: 1},
	}}

	c := LoadConfig(cfg)
	assert.False(t, c.Enabled)
	assert.Equal(t, 2, c.MaxJobsActive)
	assert.Equal(t, 15*time.Second, c.Timeout)
	require.NoError(t, c.Validate())

	assert.Equal(t, 30*time.Second, c.RequestTimeout)

	wcfg := c.WorkerConfig()
	assert.Equal(t, 15000, wcfg.Timeout)
	assert.False(t, wcfg.Enabled)
}

func TestLoadConfig_Defaults(t *testing.T) {
	c := LoadConfig(&config.Config{})
	assert.True(t, c.Enabled)
	assert.Equal(t, DefaultConfig().Timeout, c.Timeout)
}

func TestLoadConfig_RequestTimeoutFromCamunda(t *testing.T) {
	cfg := &config.Config{Camunda: config.CamundaConfig{RequestTimeout: 5000}}
	assert.Equal(t, 5*time.Second, LoadConfig(cfg).RequestTimeout)
}

func TestConfig_Validate(t *testing.T) {
	c := DefaultConfig()
	c.Timeout = 0
	assert.Error(t, c.Validate())

	c = DefaultConfig()
	c.RequestTimeout = 0
	assert.Error(t, c.Validate())
}
