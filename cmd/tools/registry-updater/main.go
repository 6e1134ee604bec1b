// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	apply "loan-risk-service/internal/workers/loan/apply-loan-application"
	"loan-risk-service/pkg/registry"
)

// builtin lists the activities this service implements.
func builtin() []registry.Activity {
	return []registry.Activity{
		apply.Activity(),
	}
}

func main() {
	if len(os.Args) < 2 {
		help(os.Stdout)
		os.Exit(1)
	}

	if err := run(os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string, out io.Writer) error {
	switch command {
	case "sync":
		fs := flag.NewFlagSet("sync", flag.ContinueOnError)
		path := fs.String("path", registry.DefaultPath, "Path to registry file")
		if err := fs.Parse(args); err != nil {
			return err
		}
		changed, err := syncRegistry(*path, builtin(), time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Synced %d activities into %s (%d changed)\n", len(builtin()), *path, changed)
		return nil

	case "update":
		fs := flag.NewFlagSet("update", flag.ContinueOnError)
		path := fs.String("path", registry.DefaultPath, "Path to registry file")
		id := fs.String("id", "", "Activity ID to update")
		field := fs.String("field", "", "Field to update (status, version, etc.)")
		value := fs.String("value", "", "New value for the field")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *id == "" || *field == "" || *value == "" {
			return fmt.Errorf("id, field, and value are required for update")
		}
		if err := updateActivity(*path, *id, *field, *value, time.Now()); err != nil {
			return err
		}
		fmt.Fprintf(out, "Updated activity %s, field %s to %s\n", *id, *field, *value)
		return nil

	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		path := fs.String("path", registry.DefaultPath, "Path to registry file")
		if err := fs.Parse(args); err != nil {
			return err
		}
		n, err := validateRegistry(*path, builtin())
		if err != nil {
			return fmt.Errorf("registry validation failed: %w", err)
		}
		fmt.Fprintf(out, "Registry validation passed. Found %d activities.\n", n)
		return nil

	case "help":
		help(out)
		return nil

	default:
		help(out)
		return fmt.Errorf("unknown command %q", command)
	}
}

// syncRegistry writes the built-in activity definitions into the registry
// file, keeping entries it does not own.
func syncRegistry(path string, activities []registry.Activity, now time.Time) (int, error) {
	reg, err := registry.LoadOrNew(path)
	if err != nil {
		return 0, fmt.Errorf("failed to load registry: %w", err)
	}

	changed := 0
	for _, a := range activities {
		if err := a.Validate(); err != nil {
			return 0, err
		}
		if reg.Upsert(a, now) {
			changed++
		}
	}

	if changed == 0 {
		return 0, nil
	}
	return changed, reg.Save(path)
}

func updateActivity(path, id, field, value string, now time.Time) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	existing, ok := reg.Find(id)
	if !ok {
		return fmt.Errorf("activity with ID %s not found", id)
	}
	a := *existing

	switch field {
	case "status":
		a.ImplementationStatus = value
	case "version":
		a.Version = value
	case "displayName":
		a.DisplayName = value
	case "description":
		a.Description = value
	case "timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		a.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		a.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	if err := a.Validate(); err != nil {
		return err
	}
	reg.Upsert(a, now)
	return reg.Save(path)
}

// validateRegistry checks the file and reports built-in activities whose
// task type or schemas drifted from the code.
func validateRegistry(path string, activities []registry.Activity) (int, error) {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return 0, fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return 0, err
	}

	for _, want := range activities {
		got, ok := reg.Find(want.ID)
		if !ok {
			return 0, fmt.Errorf("activity %s is implemented but not registered; run sync", want.ID)
		}
		if got.TaskType != want.TaskType {
			return 0, fmt.Errorf("activity %s task type is %q, worker listens on %q", want.ID, got.TaskType, want.TaskType)
		}
		if !sameJSON(got.InputSchema, want.InputSchema) || !sameJSON(got.OutputSchema, want.OutputSchema) {
			return 0, fmt.Errorf("activity %s schemas are out of date; run sync", want.ID)
		}
	}
	return len(reg.Activities), nil
}

func sameJSON(a, b interface{}) bool {
	x, err1 := json.Marshal(a)
	y, err2 := json.Marshal(b)
	return err1 == nil && err2 == nil && string(x) == string(y)
}

func help(out io.Writer) {
	fmt.Fprintln(out, `
Usage: registry-updater <command> [flags]

Commands:
  sync     Write the built-in worker activities into the registry
  update   Update an existing activity's field
  validate Validate the registry file against the built-in workers
  help     Show this help message

Examples:
  registry-updater sync -path configs/activity-registry.json
  registry-updater update -id loan-application-apply -field status -value verified
  registry-updater validate -path configs/activity-registry.json

Use 'registry-updater <command> -h' for more information about a command.`)
}
