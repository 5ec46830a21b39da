package schema

import (
	"strings"
	"time"
)

// BuildParams are the inputs for a fresh manifest.
type BuildParams struct {
	ID                 string
	Title              string
	Dirname            string
	ContextMode        string
	AcceptanceCriteria []string
	Source             Source
}

func utcNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// NormalizeCriteria trims each criterion, strips leading list dashes, and
// drops empty lines.
func NormalizeCriteria(criteria []string) []string {
	out := make([]string, 0, len(criteria))
	for _, item := range criteria {
		cleaned := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(item), "- "))
		if cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}

// SplitCriteria turns a multi-line acceptance criteria block into normalized
// individual criteria.
func SplitCriteria(block string) []string {
	return NormalizeCriteria(strings.Split(block, "\n"))
}

// BuildManifest produces a fresh v1 manifest at the inbox stage with empty
// approvals and artifacts.
func BuildManifest(p BuildParams) *Manifest {
	now := utcNow()
	return &Manifest{
		SchemaVersion: SchemaVersion,
		WorkPackage: WorkPackage{
			ID:           p.ID,
			Title:        p.Title,
			CurrentStage: "inbox",
			CreatedAt:    now,
			UpdatedAt:    now,
			Source:       p.Source,
		},
		Fields: Fields{
			Dirname:            p.Dirname,
			ContextMode:        p.ContextMode,
			AcceptanceCriteria: NormalizeCriteria(p.AcceptanceCriteria),
		},
		Paths: Paths{
			ArtifactsRoot:  "artifacts",
			Design:         "artifacts/design",
			Planning:       "artifacts/planning",
			Tests:          "artifacts/tests",
			Implementation: "artifacts/implementation",
			Dashboard:      "artifacts/dashboard.html",
			ApprovalsRoot:  "approvals",
		},
		Stages: Stages,
	}
}
