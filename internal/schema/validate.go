package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError represents a single structural issue with a manifest.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InvalidManifestError aggregates every validation issue found in a
// manifest. Load and save paths fail with the complete list, never just the
// first violation.
type InvalidManifestError struct {
	Errors []ValidationError
}

func (e *InvalidManifestError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, v := range e.Errors {
		msgs[i] = v.Error()
	}
	return strings.Join(msgs, "; ")
}

var idPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// ValidID reports whether a work package id (or dirname) uses only lowercase
// letters, digits, and dashes.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Validate checks a manifest for structural errors and returns every issue
// found (empty if valid). It never panics and never stops at the first error.
func Validate(m *Manifest) []ValidationError {
	var errs []ValidationError

	if m.SchemaVersion != SchemaVersion {
		errs = append(errs, ValidationError{
			Field:   "schema_version",
			Message: fmt.Sprintf("must be %d", SchemaVersion),
		})
	}

	wp := m.WorkPackage
	if wp.ID == "" || !ValidID(wp.ID) {
		errs = append(errs, ValidationError{
			Field:   "work_package.id",
			Message: "must match ^[a-z0-9-]+$",
		})
	}
	if strings.TrimSpace(wp.Title) == "" {
		errs = append(errs, ValidationError{
			Field:   "work_package.title",
			Message: "is required",
		})
	}
	if !IsStage(wp.CurrentStage) {
		errs = append(errs, ValidationError{
			Field:   "work_package.current_stage",
			Message: "must be a known stage id",
		})
	}

	f := m.Fields
	if f.Dirname == "" || !ValidID(f.Dirname) {
		errs = append(errs, ValidationError{
			Field:   "fields.dirname",
			Message: "must contain lowercase letters, digits, or dashes",
		})
	}
	if f.ContextMode != ContextModeNew && f.ContextMode != ContextModeFeature {
		errs = append(errs, ValidationError{
			Field:   "fields.context_mode",
			Message: "must be NEW or FEATURE",
		})
	}
	if len(f.AcceptanceCriteria) == 0 {
		errs = append(errs, ValidationError{
			Field:   "fields.acceptance_criteria",
			Message: "must be a non-empty list",
		})
	}

	required := []struct {
		key   string
		value string
	}{
		{"artifacts_root", m.Paths.ArtifactsRoot},
		{"design", m.Paths.Design},
		{"planning", m.Paths.Planning},
		{"tests", m.Paths.Tests},
		{"implementation", m.Paths.Implementation},
		{"dashboard", m.Paths.Dashboard},
		{"approvals_root", m.Paths.ApprovalsRoot},
	}
	for _, p := range required {
		if strings.TrimSpace(p.value) == "" {
			errs = append(errs, ValidationError{
				Field:   "paths." + p.key,
				Message: "is required",
			})
		}
	}

	for stageID := range m.Lifecycle.StageApprovals {
		if !IsStage(stageID) {
			errs = append(errs, ValidationError{
				Field:   "lifecycle.stage_approvals." + stageID,
				Message: "is not a known stage id",
			})
		}
	}

	return errs
}

// ValidateStrict wraps Validate into a single error, or nil if the manifest
// is structurally sound.
func ValidateStrict(m *Manifest) error {
	if errs := Validate(m); len(errs) > 0 {
		return &InvalidManifestError{Errors: errs}
	}
	return nil
}
