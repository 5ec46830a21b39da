// Package dashboard renders human-facing JSON and HTML snapshots of a work
// package's stage status, artifact health, and approval history.
package dashboard

import (
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/craftwell/workpack/internal/manifest"
	"github.com/craftwell/workpack/internal/schema"
)

// Data is the canonical dashboard snapshot, persisted as JSON next to the
// rendered HTML.
type Data struct {
	GeneratedAt    string             `json:"generated_at"`
	WorkPackage    schema.WorkPackage `json:"work_package"`
	Fields         schema.Fields      `json:"fields"`
	StageStatus    []StageRow         `json:"stage_status"`
	Artifacts      []ArtifactRow      `json:"artifacts"`
	ArtifactCounts map[string]int     `json:"artifact_counts"`
	ApprovalEvents []EventRow         `json:"approval_events"`
	Links          Links              `json:"links"`
}

// StageRow is one stage ladder entry.
type StageRow struct {
	ID              string `json:"id"`
	Label           string `json:"label"`
	Order           int    `json:"order"`
	IsCurrent       bool   `json:"is_current"`
	ApprovalStatus  string `json:"approval_status"`
	ApprovalEventID string `json:"approval_event_id,omitempty"`
}

// ArtifactRow is one tracked artifact entry.
type ArtifactRow struct {
	Path             string `json:"path"`
	FullPath         string `json:"full_path"`
	StageGroup       string `json:"stage_group"`
	State            string `json:"state"`
	SHA256           string `json:"sha256"`
	LastApprovedHash string `json:"last_approved_hash,omitempty"`
	Exists           bool   `json:"exists"`
}

// EventRow is one approval event entry, read straight from the immutable
// event files.
type EventRow struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	At        string `json:"at"`
	Actor     string `json:"actor"`
	FromStage string `json:"from_stage"`
	ToStage   string `json:"to_stage"`
	File      string `json:"file"`
}

// Links point readers at the underlying files.
type Links struct {
	Manifest      string `json:"manifest"`
	Approvals     string `json:"approvals"`
	ArtifactsRoot string `json:"artifacts_root"`
}

func utcNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// paths resolves the dashboard JSON and HTML output paths from the manifest.
func paths(workPackageDir string, m *schema.Manifest) (dataPath, htmlPath string) {
	htmlRel := strings.TrimSpace(m.Paths.Dashboard)
	if htmlRel == "" {
		htmlRel = "dashboard/dashboard.html"
	}
	dataRel := strings.TrimSpace(m.Paths.DashboardData)
	if dataRel == "" {
		dataRel = filepath.Join(filepath.Dir(htmlRel), "dashboard.json")
	}
	return filepath.Join(workPackageDir, dataRel), filepath.Join(workPackageDir, htmlRel)
}

func stageRows(m *schema.Manifest) []StageRow {
	rows := make([]StageRow, 0, len(schema.Stages))
	for _, stage := range schema.Stages {
		row := StageRow{
			ID:             stage.ID,
			Label:          stage.Label,
			Order:          stage.Order,
			IsCurrent:      stage.ID == m.WorkPackage.CurrentStage,
			ApprovalStatus: "n/a",
		}
		if approval, ok := m.Lifecycle.StageApprovals[stage.ID]; ok && approval != nil {
			row.ApprovalStatus = approval.Status
			row.ApprovalEventID = approval.EventID
		}
		rows = append(rows, row)
	}
	return rows
}

func artifactRows(workPackageDir string, m *schema.Manifest) []ArtifactRow {
	relPaths := make([]string, 0, len(m.Artifacts.Items))
	for relPath := range m.Artifacts.Items {
		relPaths = append(relPaths, relPath)
	}
	sort.Strings(relPaths)

	rows := make([]ArtifactRow, 0, len(relPaths))
	for _, relPath := range relPaths {
		record := m.Artifacts.Items[relPath]
		if record == nil {
			continue
		}
		full, err := filepath.Abs(filepath.Join(workPackageDir, relPath))
		if err != nil {
			full = filepath.Join(workPackageDir, relPath)
		}
		rows = append(rows, ArtifactRow{
			Path:             relPath,
			FullPath:         full,
			StageGroup:       record.StageGroup,
			State:            record.State,
			SHA256:           record.SHA256,
			LastApprovedHash: record.LastApprovedHash,
			Exists:           record.Exists,
		})
	}
	return rows
}

// approvalEvents reads every event file under the approvals root, ordered by
// timestamp then filename. Unreadable files are skipped; the log may be
// written concurrently with a render.
func approvalEvents(workPackageDir string, m *schema.Manifest) []EventRow {
	approvalsRoot := strings.TrimSpace(m.Paths.ApprovalsRoot)
	if approvalsRoot == "" {
		return nil
	}
	dir := filepath.Join(workPackageDir, approvalsRoot)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var events []EventRow
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var row EventRow
		if err := manifest.ReadJSON(filepath.Join(dir, entry.Name()), &row); err != nil {
			continue
		}
		row.File = filepath.ToSlash(filepath.Join(approvalsRoot, entry.Name()))
		events = append(events, row)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].At != events[j].At {
			return events[i].At < events[j].At
		}
		return events[i].File < events[j].File
	})
	return events
}

// Build assembles canonical dashboard data from the manifest, the approvals
// log, and the artifact registry.
func Build(workPackageDir string, m *schema.Manifest) *Data {
	abs := func(rel string) string {
		full, err := filepath.Abs(filepath.Join(workPackageDir, rel))
		if err != nil {
			return filepath.Join(workPackageDir, rel)
		}
		return full
	}
	return &Data{
		GeneratedAt:    utcNow(),
		WorkPackage:    m.WorkPackage,
		Fields:         m.Fields,
		StageStatus:    stageRows(m),
		Artifacts:      artifactRows(workPackageDir, m),
		ArtifactCounts: m.Artifacts.Counts,
		ApprovalEvents: approvalEvents(workPackageDir, m),
		Links: Links{
			Manifest:      abs(manifest.Filename),
			Approvals:     abs(m.Paths.ApprovalsRoot),
			ArtifactsRoot: abs(m.Paths.ArtifactsRoot),
		},
	}
}

var htmlTemplate = template.Must(template.New("dashboard").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>{{.WorkPackage.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 24px; color: #1a1a1a; }
    table { border-collapse: collapse; width: 100%; margin-bottom: 24px; }
    th, td { border: 1px solid #d4d4d4; padding: 8px; text-align: left; }
    th { background: #f5f5f5; }
    code { background: #f0f0f0; padding: 1px 4px; }
  </style>
</head>
<body>
  <h1>{{.WorkPackage.Title}}</h1>
  <p><strong>ID:</strong> <code>{{.WorkPackage.ID}}</code></p>
  <p><strong>Current stage:</strong> <code>{{.WorkPackage.CurrentStage}}</code></p>
  <p><strong>Generated:</strong> {{.GeneratedAt}}</p>
  <p>
    <strong>Links:</strong> manifest <code>{{.Links.Manifest}}</code>,
    artifacts <code>{{.Links.ArtifactsRoot}}</code>, approvals <code>{{.Links.Approvals}}</code>
  </p>
  <h2>Stage Status</h2>
  <table>
    <thead><tr><th>Order</th><th>Stage</th><th>Current</th><th>Approval</th></tr></thead>
    <tbody>
    {{- range .StageStatus}}
      <tr><td>{{.Order}}</td><td>{{.Label}}</td><td>{{if .IsCurrent}}yes{{end}}</td><td>{{.ApprovalStatus}}</td></tr>
    {{- end}}
    </tbody>
  </table>
  <h2>Artifacts</h2>
  <table>
    <thead><tr><th>Path</th><th>Stage</th><th>State</th><th>Exists</th></tr></thead>
    <tbody>
    {{- range .Artifacts}}
      <tr><td>{{.Path}}</td><td>{{.StageGroup}}</td><td>{{.State}}</td><td>{{if .Exists}}yes{{else}}no{{end}}</td></tr>
    {{- end}}
    </tbody>
  </table>
  <h2>Approval History</h2>
  <table>
    <thead><tr><th>Type</th><th>From</th><th>To</th><th>Event File</th></tr></thead>
    <tbody>
    {{- range .ApprovalEvents}}
      <tr><td>{{.EventType}}</td><td>{{.FromStage}}</td><td>{{.ToStage}}</td><td>{{.File}}</td></tr>
    {{- end}}
    </tbody>
  </table>
</body>
</html>
`))

// Refresh writes dashboard JSON and HTML files and returns their paths.
func Refresh(workPackageDir string, m *schema.Manifest) (dataPath, htmlPath string, err error) {
	if m == nil {
		m, err = manifest.Load(workPackageDir)
		if err != nil {
			return "", "", err
		}
	}

	dataPath, htmlPath = paths(workPackageDir, m)
	data := Build(workPackageDir, m)

	if err := manifest.WriteJSON(dataPath, data); err != nil {
		return "", "", err
	}

	var html strings.Builder
	if err := htmlTemplate.Execute(&html, data); err != nil {
		return "", "", err
	}
	if err := manifest.WriteAtomic(htmlPath, []byte(html.String())); err != nil {
		return "", "", err
	}
	return dataPath, htmlPath, nil
}
