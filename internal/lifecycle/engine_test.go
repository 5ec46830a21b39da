package lifecycle

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/craftwell/workpack/internal/manifest"
	"github.com/craftwell/workpack/internal/schema"
)

func newTestWorkPackage(t *testing.T) string {
	t.Helper()
	store := manifest.NewStore(t.TempDir())
	dir, err := store.Initialize(manifest.InitParams{
		ID:                 "task-1",
		Title:              "Add widget",
		Dirname:            "widget-service",
		ContextMode:        schema.ContextModeNew,
		AcceptanceCriteria: []string{"Widget renders"},
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return dir
}

func writeArtifact(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func eventFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(dir, "approvals"))
	if err != nil {
		t.Fatalf("ReadDir approvals: %v", err)
	}
	var names []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	return names
}

func TestAdvanceOneStep(t *testing.T) {
	dir := newTestWorkPackage(t)

	result, err := Transition(dir, "design_draft", "tester", "start design")
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if result.Type != TypeAdvance {
		t.Errorf("Type = %q, want advance", result.Type)
	}
	if result.FromStage != "inbox" || result.ToStage != "design_draft" {
		t.Errorf("transition = %s->%s, want inbox->design_draft", result.FromStage, result.ToStage)
	}
	if result.EventID == "" || result.EventFile == "" {
		t.Error("result should carry event identity")
	}

	m, err := manifest.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.WorkPackage.CurrentStage != "design_draft" {
		t.Errorf("CurrentStage = %q, want design_draft", m.WorkPackage.CurrentStage)
	}
	approval := m.Lifecycle.StageApprovals["inbox"]
	if approval == nil || approval.Status != schema.ApprovalApproved {
		t.Errorf("leaving a stage must approve it, got %+v", approval)
	}
	if m.WorkPackage.LastTransition == nil || m.WorkPackage.LastTransition.EventID != result.EventID {
		t.Error("LastTransition should record the event")
	}

	files := eventFiles(t, dir)
	if len(files) != 1 {
		t.Fatalf("event files = %v, want exactly one", files)
	}
	if !strings.Contains(files[0], "-advance-") {
		t.Errorf("event filename %q should carry the event type", files[0])
	}
}

func TestAdvancePreconditionRequiresArtifacts(t *testing.T) {
	dir := newTestWorkPackage(t)
	if _, err := Transition(dir, "design_draft", "tester", ""); err != nil {
		t.Fatalf("Transition to design_draft: %v", err)
	}

	_, err := Transition(dir, "design_approved", "tester", "")
	var precondition *PreconditionError
	if !errors.As(err, &precondition) {
		t.Fatalf("error = %v, want PreconditionError", err)
	}
	if !strings.Contains(err.Error(), "design draft") {
		t.Errorf("error should name the stage, got: %v", err)
	}
	if len(eventFiles(t, dir)) != 1 {
		t.Error("rejected transition must not write an event")
	}

	writeArtifact(t, dir, "artifacts/design/overview.md", "design doc")
	result, err := Transition(dir, "design_approved", "tester", "")
	if err != nil {
		t.Fatalf("Transition after adding artifact: %v", err)
	}
	if result.Type != TypeAdvance {
		t.Errorf("Type = %q, want advance", result.Type)
	}
}

func TestAdvanceRecordsArtifactSnapshot(t *testing.T) {
	dir := newTestWorkPackage(t)
	if _, err := Transition(dir, "design_draft", "tester", ""); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	writeArtifact(t, dir, "artifacts/design/b.md", "b")
	writeArtifact(t, dir, "artifacts/design/a.md", "a")

	if _, err := Transition(dir, "design_approved", "tester", ""); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	events, err := ListEvents(dir)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	last := events[len(events)-1]
	if len(last.Artifacts) != 2 || last.Artifacts[0] != "artifacts/design/a.md" || last.Artifacts[1] != "artifacts/design/b.md" {
		t.Errorf("artifact snapshot = %v, want sorted design files", last.Artifacts)
	}
	if last.Effects.ApprovedStage != "design_draft" {
		t.Errorf("ApprovedStage = %q, want design_draft", last.Effects.ApprovedStage)
	}

	// The advance stamps the design artifacts as approved.
	m, err := manifest.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, rel := range []string{"artifacts/design/a.md", "artifacts/design/b.md"} {
		record := m.Artifacts.Items[rel]
		if record == nil || record.State != schema.StateApproved {
			t.Errorf("%s state = %+v, want approved", rel, record)
		}
	}
}

func TestSameStageIdempotentRetry(t *testing.T) {
	dir := newTestWorkPackage(t)
	first, err := Transition(dir, "design_draft", "tester", "")
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}

	retry, err := Transition(dir, "design_draft", "tester", "")
	if err != nil {
		t.Fatalf("retry Transition: %v", err)
	}
	if retry.EventID != first.EventID || retry.EventFile != first.EventFile {
		t.Errorf("retry = %+v, want metadata of first transition %+v", retry, first)
	}
	if retry.Type != TypeAdvance {
		t.Errorf("retry Type = %q, want advance", retry.Type)
	}
	if len(eventFiles(t, dir)) != 1 {
		t.Error("idempotent retry must not write a second event")
	}
}

func TestSameStageNoopWithoutHistory(t *testing.T) {
	dir := newTestWorkPackage(t)
	result, err := Transition(dir, "inbox", "tester", "")
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if result.Type != TypeNoop || result.EventID != "" {
		t.Errorf("result = %+v, want noop with no event identity", result)
	}
	if len(eventFiles(t, dir)) != 0 {
		t.Error("noop must not write an event")
	}
}

func TestForwardJumpRejected(t *testing.T) {
	dir := newTestWorkPackage(t)
	_, err := Transition(dir, "plan_approved", "tester", "")
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("error = %v, want InvalidTransitionError", err)
	}
	if len(eventFiles(t, dir)) != 0 {
		t.Error("rejected jump must not write an event")
	}
}

func TestUnknownStageRejected(t *testing.T) {
	dir := newTestWorkPackage(t)
	_, err := Transition(dir, "shipping", "tester", "")
	var unknown *UnknownStageError
	if !errors.As(err, &unknown) {
		t.Fatalf("error = %v, want UnknownStageError", err)
	}
}

func advanceTo(t *testing.T, dir, target string) {
	t.Helper()
	m, err := manifest.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	current := m.WorkPackage.CurrentStage
	for current != target {
		next := schema.NextStage(current)
		if schema.IsDraftStage(current) {
			group := schema.StageGroupFor(current)
			writeArtifact(t, dir, "artifacts/"+group+"/"+group+".md", group+" content")
		}
		if _, err := Transition(dir, next, "tester", ""); err != nil {
			t.Fatalf("Transition %s -> %s: %v", current, next, err)
		}
		current = next
	}
}

func TestReopenFlipsLaterApprovals(t *testing.T) {
	dir := newTestWorkPackage(t)
	advanceTo(t, dir, "plan_approved")

	result, err := Transition(dir, "design_draft", "reviewer", "design gap found")
	if err != nil {
		t.Fatalf("reopen Transition: %v", err)
	}
	if result.Type != TypeReopen {
		t.Fatalf("Type = %q, want reopen", result.Type)
	}

	m, err := manifest.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.WorkPackage.CurrentStage != "design_draft" {
		t.Errorf("CurrentStage = %q, want design_draft", m.WorkPackage.CurrentStage)
	}

	// Approvals at or after the target flip to reopened; earlier ones stay.
	if got := m.Lifecycle.StageApprovals["inbox"].Status; got != schema.ApprovalApproved {
		t.Errorf("inbox approval = %q, want approved", got)
	}
	for _, stage := range []string{"design_draft", "design_approved", "planning_draft"} {
		approval := m.Lifecycle.StageApprovals[stage]
		if approval == nil || approval.Status != schema.ApprovalReopened {
			t.Errorf("%s approval = %+v, want reopened", stage, approval)
		}
		if approval != nil && approval.EventID == "" {
			t.Errorf("%s original approval event must be retained", stage)
		}
		if approval != nil && approval.ReopenedEventID != result.EventID {
			t.Errorf("%s ReopenedEventID = %q, want %q", stage, approval.ReopenedEventID, result.EventID)
		}
	}

	events, err := ListEvents(dir)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	last := events[len(events)-1]
	want := []string{"design_draft", "design_approved", "planning_draft"}
	if len(last.Effects.ReopenedStages) != len(want) {
		t.Fatalf("ReopenedStages = %v, want %v", last.Effects.ReopenedStages, want)
	}
	for i := range want {
		if last.Effects.ReopenedStages[i] != want[i] {
			t.Errorf("ReopenedStages[%d] = %q, want %q", i, last.Effects.ReopenedStages[i], want[i])
		}
	}

	// With every design approval reopened, design artifacts fall back to draft.
	for rel, record := range m.Artifacts.Items {
		if record.StageGroup == schema.GroupDesign && record.Exists && record.State != schema.StateDraft {
			t.Errorf("%s state = %q, want draft after reopen", rel, record.State)
		}
	}
}

func TestFailedSaveLeavesNoObservableState(t *testing.T) {
	dir := newTestWorkPackage(t)

	saved := saveManifest
	saveManifest = func(string, *schema.Manifest) error {
		return errors.New("disk full")
	}
	defer func() { saveManifest = saved }()

	_, err := Transition(dir, "design_draft", "tester", "")
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("Transition = %v, want injected save failure", err)
	}

	m, loadErr := manifest.Load(dir)
	if loadErr != nil {
		t.Fatalf("Load: %v", loadErr)
	}
	if m.WorkPackage.CurrentStage != "inbox" {
		t.Errorf("CurrentStage = %q, want inbox unchanged", m.WorkPackage.CurrentStage)
	}
	if len(eventFiles(t, dir)) != 0 {
		t.Error("failed transition must not leave an event file")
	}

	entries, readErr := os.ReadDir(filepath.Join(dir, "approvals"))
	if readErr != nil {
		t.Fatalf("ReadDir: %v", readErr)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".pending-") {
			t.Errorf("pending temp file left behind: %s", entry.Name())
		}
	}
}

func TestListEventsOrdered(t *testing.T) {
	dir := newTestWorkPackage(t)
	advanceTo(t, dir, "plan_approved")

	events, err := ListEvents(dir)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	expected := [][2]string{
		{"inbox", "design_draft"},
		{"design_draft", "design_approved"},
		{"design_approved", "planning_draft"},
		{"planning_draft", "plan_approved"},
	}
	for i, event := range events {
		if event.FromStage != expected[i][0] || event.ToStage != expected[i][1] {
			t.Errorf("event[%d] = %s->%s, want %s->%s",
				i, event.FromStage, event.ToStage, expected[i][0], expected[i][1])
		}
		if event.EventType != TypeAdvance {
			t.Errorf("event[%d] type = %q, want advance", i, event.EventType)
		}
	}
}

func TestReplaySummary(t *testing.T) {
	dir := newTestWorkPackage(t)
	advanceTo(t, dir, "design_approved")
	if _, err := Transition(dir, "design_draft", "reviewer", "rework"); err != nil {
		t.Fatalf("reopen: %v", err)
	}

	lines, err := ReplaySummary(dir)
	if err != nil {
		t.Fatalf("ReplaySummary: %v", err)
	}
	if lines[0] != "work_package:task-1" {
		t.Errorf("lines[0] = %q", lines[0])
	}
	if lines[1] != "current_stage:design_draft" {
		t.Errorf("lines[1] = %q", lines[1])
	}
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5", len(lines))
	}
	if !strings.HasPrefix(lines[2], "event:advance:inbox->design_draft:") {
		t.Errorf("lines[2] = %q", lines[2])
	}
	if !strings.HasPrefix(lines[4], "event:reopen:design_approved->design_draft:") {
		t.Errorf("lines[4] = %q", lines[4])
	}
}
