// internal/common/errors/errors_test.go
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func TestPredictionServiceError_CarriesStatusAndBody(t *testing.T) {
	err := NewPredictionServiceError(500, `{"detail":"boom"}`)

	assert.Equal(t, ErrCodePredictionServiceError, err.Code)
	assert.Equal(t, 500, err.Metadata["status"])
	assert.Equal(t, `{"detail":"boom"}`, err.Metadata["body"])
	assert.True(t, err.Retryable)
	assert.Contains(t, err.Error(), "500")

	clientErr := NewPredictionServiceError(422, "bad input")
	assert.False(t, clientErr.Retryable)
}

func TestPredictionCallFailed_WrapsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewPredictionCallFailedError(cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.Nil(t, err.Metadata["timeout"])

	timeout := NewPredictionCallFailedError(fmt.Errorf("post: %w", context.DeadlineExceeded))
	assert.Equal(t, true, timeout.Metadata["timeout"])
}

func TestCodeOf_And_HasCode(t *testing.T) {
	wrapped := fmt.Errorf("apply: %w", NewPrimaryStoreError(stderrors.New("disk full")))

	assert.Equal(t, ErrCodePrimaryStore, CodeOf(wrapped))
	assert.True(t, HasCode(wrapped, ErrCodePrimaryStore))
	assert.False(t, HasCode(wrapped, ErrCodeValidation))
	assert.Equal(t, ErrCodeInternal, CodeOf(stderrors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidationError("age must be >= 18"), http.StatusBadRequest},
		{"service error", NewPredictionServiceError(500, ""), http.StatusBadGateway},
		{"empty response", NewPredictionEmptyResponseError(), http.StatusBadGateway},
		{"call failed", NewPredictionCallFailedError(stderrors.New("refused")), http.StatusBadGateway},
		{"call timeout", NewPredictionCallFailedError(context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"primary store", NewPrimaryStoreError(stderrors.New("down")), http.StatusInternalServerError},
		{"unknown", stderrors.New("???"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestConvertToBPMNError(t *testing.T) {
	bpmn := ConvertToBPMNError(NewPrimaryStoreError(stderrors.New("down")))
	assert.Equal(t, "PRIMARY_STORE_ERROR", bpmn.Code)
	assert.True(t, bpmn.Retryable)
	assert.Equal(t, "PRIMARY_STORE_ERROR", bpmn.ToErrorVariables()["originalErrorCode"])

	validation := ConvertToBPMNError(NewValidationError("bad"))
	assert.Equal(t, "LOAN_APPLICATION_INVALID", validation.Code)
	assert.False(t, validation.Retryable)

	notFound := ConvertToBPMNError(NewPredictionServiceError(404, "no route"))
	assert.Equal(t, "PREDICTION_SERVICE_ERROR", notFound.Code)
	assert.Equal(t, false, notFound.ToErrorVariables()["retryable"])
}

func TestNormalize(t *testing.T) {
	std := NewPredictionEmptyResponseError()
	assert.Same(t, std, Normalize(fmt.Errorf("wrap: %w", std)))

	internal := Normalize(stderrors.New("boom"))
	require.NotNil(t, internal)
	assert.Equal(t, ErrCodeInternal, internal.Code)
	assert.Equal(t, "boom", internal.Details)
}

// jobGateway records the job commands a JobClient sends.
type jobGateway struct {
	pb.GatewayClient

	mu     sync.Mutex
	thrown []*pb.ThrowErrorRequest
	failed []*pb.FailJobRequest
}

func (g *jobGateway) ThrowError(_ context.Context, in *pb.ThrowErrorRequest, _ ...grpc.CallOption) (*pb.ThrowErrorResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.thrown = append(g.thrown, in)
	return &pb.ThrowErrorResponse{}, nil
}

func (g *jobGateway) FailJob(_ context.Context, in *pb.FailJobRequest, _ ...grpc.CallOption) (*pb.FailJobResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failed = append(g.failed, in)
	return &pb.FailJobResponse{}, nil
}

type jobClient struct {
	gw *jobGateway
}

func noRetry(context.Context, error) bool { return false }

func (c jobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return commands.NewCompleteJobCommand(c.gw, noRetry)
}

func (c jobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return commands.NewFailJobCommand(c.gw, noRetry)
}

func (c jobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return commands.NewThrowErrorCommand(c.gw, noRetry)
}

type discardLogger struct{}

func (discardLogger) Error(string, map[string]interface{}) {}

func TestHandleJobError_ThrowsWithoutRetry(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"scoring service 5xx", NewPredictionServiceError(503, "unavailable"), "PREDICTION_SERVICE_ERROR"},
		{"scoring call failed", NewPredictionCallFailedError(context.DeadlineExceeded), "PREDICTION_CALL_FAILED"},
		{"primary store", NewPrimaryStoreError(stderrors.New("commit unknown")), "PRIMARY_STORE_ERROR"},
		{"validation", NewValidationError("age must be >= 18"), "LOAN_APPLICATION_INVALID"},
		{"plain error", stderrors.New("boom"), string(ErrCodeInternal)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &jobGateway{}
			job := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 42, Type: "loan-application-apply", Retries: 3}}

			NewErrorHandler(discardLogger{}).HandleJobError(context.Background(), jobClient{gw: gw}, job, tt.err)

			assert.Empty(t, gw.failed)
			require.Len(t, gw.thrown, 1)
			assert.Equal(t, int64(42), gw.thrown[0].JobKey)
			assert.Equal(t, tt.wantCode, gw.thrown[0].ErrorCode)
			assert.Contains(t, gw.thrown[0].Variables, `"retryable"`)
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "SCORING", GetErrorCategory(ErrCodePredictionCallFailed))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodePrimaryStore))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeRecentQueryFailed))
	assert.Equal(t, "ANALYTICS", GetErrorCategory(ErrCodeMirrorWriteFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeValidation))
}
