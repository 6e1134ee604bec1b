// internal/common/validation/schema.go
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	apperrors "loan-risk-service/internal/common/errors"
	"loan-risk-service/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// String renders the errors as "field: message; ..." sorted by field.
func (r *ValidationResult) String() string {
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

const minimumAge = 18

// ApplicationRequestSchema is built from the canonical payload field table:
// every field is required, real fields are non-negative numbers, integer
// fields non-negative integers, and age at least 18. Unknown fields are
// ignored.
func ApplicationRequestSchema() map[string]interface{} {
	properties := make(map[string]interface{}, len(models.PayloadFields))
	required := make([]interface{}, 0, len(models.PayloadFields))

	for _, f := range models.PayloadFields {
		prop := map[string]interface{}{"minimum": 0}
		if f.Kind == models.KindInteger {
			prop["type"] = "integer"
		} else {
			prop["type"] = "number"
		}
		if f.Key == "age" {
			prop["minimum"] = minimumAge
		}
		properties[f.Key] = prop
		required = append(required, f.Key)
	}

	return map[string]interface{}{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// Validate checks a raw JSON document against the application schema.
func Validate(raw []byte) (*ValidationResult, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(ApplicationRequestSchema()),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   e.Field(),
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}
	return out, nil
}

// ParseApplicationRequest validates raw and decodes it. Every failure is a
// VALIDATION_ERROR so it is rejected before the orchestrator sees it.
func ParseApplicationRequest(raw []byte) (*models.ApplicationRequest, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, apperrors.NewValidationError("request body is empty")
	}

	result, err := Validate(raw)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if !result.Valid {
		return nil, apperrors.NewValidationError(result.String()).
			WithMetadata("errors", result.Errors)
	}

	normalized, err := integralCounts(raw)
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("malformed application: %v", err))
	}

	var req models.ApplicationRequest
	if err := json.Unmarshal(normalized, &req); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("malformed application: %v", err))
	}
	return &req, nil
}

// maxExactInteger is the largest magnitude a float64 holds without gaps.
const maxExactInteger = 1 << 53

// integralCounts rewrites integer fields sent in float notation with a whole
// value (45.0, 4.5e1) as plain integer literals, which the schema already
// accepts as integers but encoding/json will not decode into int.
func integralCounts(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc map[string]interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	changed := false
	for _, f := range models.PayloadFields {
		if f.Kind != models.KindInteger {
			continue
		}
		n, ok := doc[f.Key].(json.Number)
		if !ok {
			continue
		}
		if _, err := n.Int64(); err == nil {
			continue
		}
		v, err := n.Float64()
		if err != nil || v != math.Trunc(v) || math.Abs(v) > maxExactInteger {
			continue
		}
		doc[f.Key] = json.Number(strconv.FormatInt(int64(v), 10))
		changed = true
	}

	if !changed {
		return raw, nil
	}
	return json.Marshal(doc)
}
