// pkg/registry/activity.go
package registry

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Implementation states an activity moves through.
const (
	StatusPlanned    = "planned"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusVerified   = "verified"
)

// Activity describes one job worker to process modellers: the task type to
// put on a service task, the variables it reads and writes, and the BPMN
// error codes it can throw.
type Activity struct {
	ID                   string                 `json:"id"`
	DisplayName          string                 `json:"displayName"`
	Description          string                 `json:"description"`
	Category             string                 `json:"category"`
	Version              string                 `json:"version"`
	TaskType             string                 `json:"taskType"`
	ImplementationStatus string                 `json:"implementationStatus"`
	InputSchema          map[string]interface{} `json:"inputSchema"`
	OutputSchema         map[string]interface{} `json:"outputSchema"`
	ErrorCodes           []string               `json:"errorCodes"`
	Timeout              string                 `json:"timeout"`
	Retries              int                    `json:"retries"`
	Tags                 []string               `json:"tags,omitempty"`
}

// Validate checks required fields and that both schemas compile.
func (a *Activity) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("activity missing required field: id")
	}
	if a.DisplayName == "" {
		return fmt.Errorf("activity %s missing required field: displayName", a.ID)
	}
	if a.TaskType == "" {
		return fmt.Errorf("activity %s missing required field: taskType", a.ID)
	}
	if a.Category == "" {
		return fmt.Errorf("activity %s missing required field: category", a.ID)
	}
	switch a.ImplementationStatus {
	case StatusPlanned, StatusInProgress, StatusCompleted, StatusVerified:
	default:
		return fmt.Errorf("activity %s has unknown implementationStatus %q", a.ID, a.ImplementationStatus)
	}

	for name, schema := range map[string]map[string]interface{}{
		"inputSchema":  a.InputSchema,
		"outputSchema": a.OutputSchema,
	} {
		if len(schema) == 0 {
			continue
		}
		if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema)); err != nil {
			return fmt.Errorf("activity %s has invalid %s: %w", a.ID, name, err)
		}
	}
	return nil
}

// ValidateInput checks a job's variables against the activity input schema.
func (a *Activity) ValidateInput(variables []byte) error {
	if len(a.InputSchema) == 0 {
		return nil
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(a.InputSchema),
		gojsonschema.NewBytesLoader(variables),
	)
	if err != nil {
		return fmt.Errorf("validate %s input: %w", a.ID, err)
	}
	if !result.Valid() {
		return fmt.Errorf("%s input invalid: %s", a.ID, result.Errors()[0].String())
	}
	return nil
}
