package lifecycle

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/craftwell/workpack/internal/artifacts"
	"github.com/craftwell/workpack/internal/dashboard"
	"github.com/craftwell/workpack/internal/manifest"
	"github.com/craftwell/workpack/internal/schema"
)

// saveManifest is swappable so tests can inject persistence failures.
var saveManifest = manifest.Save

// UnknownStageError signals a transition request naming no known stage.
type UnknownStageError struct {
	Stage string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown target stage %q, expected one of: %s",
		e.Stage, strings.Join(schema.OrderedStageIDs(), ", "))
}

// InvalidTransitionError signals a forward jump past the next stage. Only
// single-step advances are permitted; multi-stage forward motion must be
// expressed as repeated single-step calls.
type InvalidTransitionError struct {
	FromStage string
	ToStage   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid forward jump: %s -> %s, only one-step forward transitions are allowed",
		e.FromStage, e.ToStage)
}

// PreconditionError signals an advance out of a draft stage that holds no
// artifact files.
type PreconditionError struct {
	Stage string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("cannot advance from %s: no stage artifacts found",
		strings.ReplaceAll(e.Stage, "_", " "))
}

// Result is the metadata of a performed (or idempotently replayed)
// transition.
type Result struct {
	FromStage string
	ToStage   string
	Type      string
	EventID   string
	EventFile string
}

// transitionType classifies a stage move, or rejects it.
func transitionType(fromStage, toStage string) (string, error) {
	fromOrder := schema.StageOrder(fromStage)
	toOrder := schema.StageOrder(toStage)
	switch {
	case toOrder == fromOrder+1:
		return TypeAdvance, nil
	case toOrder < fromOrder:
		return TypeReopen, nil
	default:
		return "", &InvalidTransitionError{FromStage: fromStage, ToStage: toStage}
	}
}

// listStageArtifacts returns the relative paths of every file under the
// directory owning a stage's artifacts, sorted.
func listStageArtifacts(workPackageDir string, m *schema.Manifest, stageID string) []string {
	group := schema.StageGroupFor(stageID)
	if group == "" {
		return nil
	}
	relative := m.Paths.ForGroup(group)
	if relative == "" {
		return nil
	}
	targetDir := filepath.Join(workPackageDir, relative)
	if _, err := os.Stat(targetDir); err != nil {
		return nil
	}

	var files []string
	_ = filepath.WalkDir(targetDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(workPackageDir, path)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(files)
	return files
}

func markApproved(m *schema.Manifest, stageID, eventID, actor string) {
	if m.Lifecycle.StageApprovals == nil {
		m.Lifecycle.StageApprovals = make(map[string]*schema.StageApproval)
	}
	m.Lifecycle.StageApprovals[stageID] = &schema.StageApproval{
		Status:     schema.ApprovalApproved,
		EventID:    eventID,
		ApprovedAt: utcNow(),
		ApprovedBy: actor,
	}
}

// markReopened flips every approval at or after the target stage to
// reopened, retaining the original approval fields. Returns the affected
// stage ids in pipeline order.
func markReopened(m *schema.Manifest, targetStage, eventID, actor string) []string {
	targetOrder := schema.StageOrder(targetStage)
	var reopened []string
	for stageID, approval := range m.Lifecycle.StageApprovals {
		if approval == nil || schema.StageOrder(stageID) < targetOrder {
			continue
		}
		approval.Status = schema.ApprovalReopened
		approval.ReopenedAt = utcNow()
		approval.ReopenedBy = actor
		approval.ReopenedEventID = eventID
		reopened = append(reopened, stageID)
	}
	sort.Slice(reopened, func(i, j int) bool {
		return schema.StageOrder(reopened[i]) < schema.StageOrder(reopened[j])
	})
	return reopened
}

// Transition moves a work package to a new stage and records a lifecycle
// event.
//
// Rules:
//   - A request for the current stage is an idempotent no-op returning the
//     prior transition's metadata; no event is written.
//   - One-step forward transitions only; advancing implicitly approves the
//     stage being left.
//   - Reopen transitions can jump to any prior stage and flip every approval
//     at or after the target to reopened.
//
// The operation is atomic: all mutations are staged in memory and the event
// file is finalized only after the manifest save succeeds, so a persistence
// failure leaves neither a stage change nor an event file behind.
func Transition(workPackageDir, toStage, actor, reason string) (*Result, error) {
	m, err := manifest.Load(workPackageDir)
	if err != nil {
		return nil, err
	}
	fromStage := m.WorkPackage.CurrentStage

	// Idempotent retry: answered before stage validation and preconditions
	// so a replayed request is always side-effect-free.
	if toStage == fromStage {
		if lt := m.WorkPackage.LastTransition; lt != nil {
			return &Result{
				FromStage: lt.FromStage,
				ToStage:   lt.ToStage,
				Type:      lt.EventType,
				EventID:   lt.EventID,
				EventFile: lt.EventFile,
			}, nil
		}
		return &Result{FromStage: fromStage, ToStage: toStage, Type: TypeNoop}, nil
	}

	if !schema.IsStage(toStage) {
		return nil, &UnknownStageError{Stage: toStage}
	}

	kind, err := transitionType(fromStage, toStage)
	if err != nil {
		return nil, err
	}

	if kind == TypeAdvance && schema.IsDraftStage(fromStage) {
		if len(listStageArtifacts(workPackageDir, m, fromStage)) == 0 {
			return nil, &PreconditionError{Stage: fromStage}
		}
	}

	now := time.Now().UTC()
	eventID := uuid.NewString()
	event := Event{
		EventID:   eventID,
		EventType: kind,
		At:        now.Format(time.RFC3339),
		Actor:     actor,
		Reason:    reason,
		FromStage: fromStage,
		ToStage:   toStage,
		Artifacts: []string{},
	}

	if kind == TypeAdvance {
		event.Artifacts = listStageArtifacts(workPackageDir, m, fromStage)
		event.Effects.ApprovedStage = fromStage
		markApproved(m, fromStage, eventID, actor)
	} else {
		event.Effects.ReopenedStages = markReopened(m, toStage, eventID, actor)
	}

	approvalsDir := filepath.Join(workPackageDir, m.Paths.ApprovalsRoot)
	eventFile := filepath.Join(approvalsDir, eventFileName(kind, eventID[:8], now))
	eventFileRel := filepath.ToSlash(filepath.Join(m.Paths.ApprovalsRoot, filepath.Base(eventFile)))

	m.WorkPackage.CurrentStage = toStage
	m.WorkPackage.UpdatedAt = event.At
	m.WorkPackage.LastTransition = &schema.TransitionSummary{
		EventID:   eventID,
		EventType: kind,
		FromStage: fromStage,
		ToStage:   toStage,
		At:        event.At,
		Actor:     actor,
		EventFile: eventFileRel,
	}

	refreshOpts := artifacts.RefreshOptions{Reason: "transition:" + kind}
	if kind == TypeAdvance {
		refreshOpts.ApprovedStage = fromStage
		refreshOpts.ApprovalEventID = eventID
	}
	if _, err := artifacts.RefreshWith(workPackageDir, m, refreshOpts); err != nil {
		return nil, err
	}

	// Stage the event in a hidden temp file and finalize it only after the
	// manifest save succeeds, so a failed save leaves no event behind.
	if err := os.MkdirAll(approvalsDir, 0o755); err != nil {
		return nil, &manifest.PersistenceError{Op: "mkdir", Path: approvalsDir, Err: err}
	}
	payload, err := json.MarshalIndent(&event, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	payload = append(payload, '\n')

	tmp, err := os.CreateTemp(approvalsDir, ".pending-*")
	if err != nil {
		return nil, &manifest.PersistenceError{Op: "create", Path: approvalsDir, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, &manifest.PersistenceError{Op: "write", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, &manifest.PersistenceError{Op: "close", Path: tmpName, Err: err}
	}

	if err := saveManifest(workPackageDir, m); err != nil {
		os.Remove(tmpName)
		return nil, err
	}
	if err := os.Rename(tmpName, eventFile); err != nil {
		return nil, &manifest.PersistenceError{Op: "rename", Path: eventFile, Err: err}
	}

	if _, _, err := dashboard.Refresh(workPackageDir, m); err != nil {
		return nil, err
	}

	return &Result{
		FromStage: fromStage,
		ToStage:   toStage,
		Type:      kind,
		EventID:   eventID,
		EventFile: eventFileRel,
	}, nil
}
