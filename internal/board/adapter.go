// Package board translates an external kanban board's column movement into
// local lifecycle transitions. It guarantees the one-step-advance invariant
// is never bypassed by board automation that jumps several columns at once.
package board

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/craftwell/workpack/internal/artifacts"
	"github.com/craftwell/workpack/internal/dashboard"
	"github.com/craftwell/workpack/internal/gate"
	"github.com/craftwell/workpack/internal/lifecycle"
	"github.com/craftwell/workpack/internal/manifest"
	"github.com/craftwell/workpack/internal/schema"
)

// columnStages maps normalized board column titles to lifecycle stage ids.
var columnStages = map[string]string{
	"inbox":           "inbox",
	"design draft":    "design_draft",
	"design approved": "design_approved",
	"planning draft":  "planning_draft",
	"plan approved":   "plan_approved",
	"tests draft":     "tests_draft",
	"tests approved":  "tests_approved",
	"ralph loop":      "ralph_loop",
	"code review":     "code_review",
	"final review":    "final_review",
	"done":            "done",
}

var columnPrefix = regexp.MustCompile(`^\s*\d+\.\s*`)

// NormalizeColumnTitle strips the numeric ordering prefix boards put on
// column labels and lowercases the remainder.
func NormalizeColumnTitle(columnTitle string) string {
	return strings.ToLower(strings.TrimSpace(columnPrefix.ReplaceAllString(columnTitle, "")))
}

// StageForColumn resolves a lifecycle stage id from a board column title,
// or "" when the column has no stage mapping.
func StageForColumn(columnTitle string) string {
	return columnStages[NormalizeColumnTitle(columnTitle)]
}

// SyncResult is the outcome of driving the lifecycle toward a target stage.
type SyncResult struct {
	WorkPackageDir string
	FromStage      string
	ToStage        string
	EventIDs       []string
}

// TaskFields carries the board task metadata needed to bootstrap a work
// package.
type TaskFields struct {
	Dirname            string
	ContextMode        string
	AcceptanceCriteria []string
}

// Adapter drives the lifecycle engine from external board events.
type Adapter struct {
	store    *manifest.Store
	provider string
}

// NewAdapter creates an adapter managing work packages under baseDir on
// behalf of the named board provider.
func NewAdapter(baseDir, provider string) *Adapter {
	return &Adapter{store: manifest.NewStore(baseDir), provider: provider}
}

// EnsureWorkPackage creates or reconciles the local work package for an
// external task, then refreshes its registry and dashboard.
func (a *Adapter) EnsureWorkPackage(taskID int, title string, projectID int, fields TaskFields) (string, error) {
	contextMode := strings.ToUpper(strings.TrimSpace(fields.ContextMode))
	if contextMode == "" {
		contextMode = schema.ContextModeNew
	}
	criteria := schema.NormalizeCriteria(fields.AcceptanceCriteria)
	if len(criteria) == 0 {
		criteria = []string{"Acceptance criteria pending"}
	}

	dir, err := a.store.InitializeFromTask(taskID, title, strings.TrimSpace(fields.Dirname), contextMode, criteria, projectID, a.provider)
	if err != nil {
		return "", err
	}
	if _, err := artifacts.Refresh(dir); err != nil {
		return "", err
	}
	if _, _, err := dashboard.Refresh(dir, nil); err != nil {
		return "", err
	}
	return dir, nil
}

// SyncToColumn syncs the local lifecycle stage from an external board
// column.
func (a *Adapter) SyncToColumn(workPackageDir, columnTitle, actor string) (*SyncResult, error) {
	targetStage := StageForColumn(columnTitle)
	if targetStage == "" {
		return nil, fmt.Errorf("no lifecycle stage mapping for column %q", columnTitle)
	}
	return SyncToStage(workPackageDir, targetStage, actor, "sync-column:"+columnTitle)
}

// GateAction evaluates whether an agent action may execute based on artifact
// health.
func (a *Adapter) GateAction(workPackageDir, action string) (gate.Decision, error) {
	return gate.Evaluate(workPackageDir, action)
}

// SyncToStage drives the lifecycle to a target stage deterministically.
// Forward motion is expressed as repeated single-step advances, each
// producing its own event; backward or equal targets issue a single
// reopen/no-op call.
func SyncToStage(workPackageDir, toStage, actor, reason string) (*SyncResult, error) {
	m, err := manifest.Load(workPackageDir)
	if err != nil {
		return nil, err
	}
	currentStage := m.WorkPackage.CurrentStage
	if currentStage == toStage {
		return &SyncResult{
			WorkPackageDir: workPackageDir,
			FromStage:      currentStage,
			ToStage:        toStage,
		}, nil
	}

	if !schema.IsStage(toStage) {
		return nil, &lifecycle.UnknownStageError{Stage: toStage}
	}
	if reason == "" {
		reason = "sync-stage:" + toStage
	}

	result := &SyncResult{WorkPackageDir: workPackageDir, FromStage: currentStage}

	if schema.StageOrder(toStage) > schema.StageOrder(currentStage) {
		for currentStage != toStage {
			nextStage := schema.NextStage(currentStage)
			step, err := lifecycle.Transition(workPackageDir, nextStage, actor, reason)
			if err != nil {
				return nil, err
			}
			result.EventIDs = append(result.EventIDs, step.EventID)
			currentStage = nextStage
		}
	} else {
		step, err := lifecycle.Transition(workPackageDir, toStage, actor, reason)
		if err != nil {
			return nil, err
		}
		result.EventIDs = append(result.EventIDs, step.EventID)
		currentStage = toStage
	}

	result.ToStage = currentStage
	return result, nil
}
