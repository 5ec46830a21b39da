// Package lifecycle implements the stage state machine over the fixed
// lifecycle ordering, recording every transition as an immutable JSON event.
// The approvals directory is an append-only log; the manifest is a
// materialized view folded from it.
package lifecycle

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/craftwell/workpack/internal/manifest"
)

// Transition event types.
const (
	TypeAdvance = "advance"
	TypeReopen  = "reopen"
	TypeNoop    = "noop"
)

// Event is one immutable transition record. Event files are never modified
// after creation; filenames carry a microsecond timestamp so filename order
// is creation order.
type Event struct {
	EventID   string   `json:"event_id"`
	EventType string   `json:"event_type"`
	At        string   `json:"at"`
	Actor     string   `json:"actor"`
	Reason    string   `json:"reason"`
	FromStage string   `json:"from_stage"`
	ToStage   string   `json:"to_stage"`
	Artifacts []string `json:"artifacts"`
	Effects   Effects  `json:"effects"`

	// File is the event's path relative to the work package directory,
	// populated when listing. Not part of the persisted document.
	File string `json:"-"`
}

// Effects describes what a transition did to approval bookkeeping.
type Effects struct {
	ApprovedStage  string   `json:"approved_stage,omitempty"`
	ReopenedStages []string `json:"reopened_stages,omitempty"`
}

func utcNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// eventFileName builds the <UTC-timestamp>-<type>-<8-hex>.json event name.
func eventFileName(eventType, suffix string, now time.Time) string {
	now = now.UTC()
	return fmt.Sprintf("%s%06dZ-%s-%s.json",
		now.Format("20060102T150405"), now.Nanosecond()/1000, eventType, suffix)
}

// ListEvents loads the approval event history of a work package, ordered by
// event timestamp then filename. Unparseable files are skipped.
func ListEvents(workPackageDir string) ([]Event, error) {
	m, err := manifest.Load(workPackageDir)
	if err != nil {
		return nil, err
	}

	approvalsRoot := strings.TrimSpace(m.Paths.ApprovalsRoot)
	dir := filepath.Join(workPackageDir, approvalsRoot)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read approvals dir %s: %w", dir, err)
	}

	var events []Event
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var event Event
		if err := manifest.ReadJSON(filepath.Join(dir, entry.Name()), &event); err != nil {
			continue
		}
		event.File = filepath.ToSlash(filepath.Join(approvalsRoot, entry.Name()))
		events = append(events, event)
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].At != events[j].At {
			return events[i].At < events[j].At
		}
		return events[i].File < events[j].File
	})
	return events, nil
}

// ReplaySummary reconstructs a compact, ordered transition log for auditing.
func ReplaySummary(workPackageDir string) ([]string, error) {
	m, err := manifest.Load(workPackageDir)
	if err != nil {
		return nil, err
	}
	events, err := ListEvents(workPackageDir)
	if err != nil {
		return nil, err
	}

	lines := []string{
		"work_package:" + m.WorkPackage.ID,
		"current_stage:" + m.WorkPackage.CurrentStage,
	}
	for _, event := range events {
		lines = append(lines, fmt.Sprintf("event:%s:%s->%s:%s",
			event.EventType, event.FromStage, event.ToStage, event.EventID))
	}
	return lines, nil
}
