// internal/api/response.go
package api

import (
	"encoding/json"
	"net/http"

	apperrors "loan-risk-service/internal/common/errors"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string      `json:"error"`
	Code   string      `json:"code,omitempty"`
	Fields interface{} `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError answers with the status mapped from err and a body of the form
// {"error": "<prefix>: <cause>", "code": "<CODE>"}. An empty prefix leaves
// the cause alone.
func writeError(w http.ResponseWriter, prefix string, err error) {
	msg := describe(err)
	if prefix != "" {
		msg = prefix + ": " + msg
	}
	resp := ErrorResponse{
		Error: msg,
		Code:  string(apperrors.CodeOf(err)),
	}
	if stdErr, ok := apperrors.AsStandard(err); ok {
		if fields, found := stdErr.Metadata["errors"]; found {
			resp.Fields = fields
		}
	}
	writeJSON(w, apperrors.HTTPStatus(err), resp)
}

func describe(err error) string {
	stdErr, ok := apperrors.AsStandard(err)
	if !ok {
		return err.Error()
	}
	if stdErr.Details == "" {
		return stdErr.Message
	}
	return stdErr.Message + ": " + stdErr.Details
}
