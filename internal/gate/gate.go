// Package gate answers whether an orchestration action may run, based on the
// artifact health of the stage group it depends on.
package gate

import (
	"fmt"

	"github.com/craftwell/workpack/internal/artifacts"
	"github.com/craftwell/workpack/internal/schema"
)

// Requirement is the kind of artifact health an action demands from its
// stage group.
type Requirement int

const (
	// RequireAny passes when at least one artifact exists in the stage group
	// and none is stale.
	RequireAny Requirement = iota
	// RequireApproved additionally demands at least one approved artifact.
	RequireApproved
)

// rule binds an action to the stage group it reads and the health it needs.
type rule struct {
	stageGroup  string
	requirement Requirement
}

// actionRules is the closed dispatch table. Actions not listed here have no
// artifact dependency and are allowed.
var actionRules = map[string]rule{
	"PM_AGENT":          {schema.GroupDesign, RequireApproved},
	"SPAWNER_AGENT":     {schema.GroupPlanning, RequireApproved},
	"TEST_AGENT":        {schema.GroupPlanning, RequireApproved},
	"TEST_CODE_AGENT":   {schema.GroupTests, RequireAny},
	"RALPH_CODER":       {schema.GroupTests, RequireApproved},
	"CODE_REVIEW_AGENT": {schema.GroupImplementation, RequireAny},
}

// Decision is the outcome of a gate evaluation.
type Decision struct {
	Allowed bool
	Reason  string
}

// Evaluate refreshes the artifact registry and decides whether an action may
// run. Unknown actions are allowed: they carry no artifact dependency.
func Evaluate(workPackageDir, action string) (Decision, error) {
	r, ok := actionRules[action]
	if !ok {
		return Decision{Allowed: true}, nil
	}

	state, err := artifacts.Refresh(workPackageDir)
	if err != nil {
		return Decision{}, err
	}
	return evaluateGroup(state.Items, r), nil
}

// EvaluateManifest decides from an already-loaded manifest without
// refreshing, for callers that just scanned.
func EvaluateManifest(m *schema.Manifest, action string) Decision {
	r, ok := actionRules[action]
	if !ok {
		return Decision{Allowed: true}
	}
	return evaluateGroup(m.Artifacts.Items, r)
}

func evaluateGroup(items map[string]*schema.ArtifactRecord, r rule) Decision {
	var group []*schema.ArtifactRecord
	for _, record := range items {
		if record != nil && record.StageGroup == r.stageGroup && record.Exists {
			group = append(group, record)
		}
	}

	if len(group) == 0 {
		if r.requirement == RequireApproved {
			return Decision{Allowed: false, Reason: fmt.Sprintf("Missing %s artifacts for approval gate", r.stageGroup)}
		}
		return Decision{Allowed: false, Reason: fmt.Sprintf("Missing %s artifacts", r.stageGroup)}
	}

	for _, record := range group {
		if record.State == schema.StateStale {
			return Decision{Allowed: false, Reason: fmt.Sprintf("Stale %s artifacts must be refreshed", r.stageGroup)}
		}
	}

	if r.requirement == RequireApproved {
		for _, record := range group {
			if record.State == schema.StateApproved {
				return Decision{Allowed: true}
			}
		}
		return Decision{Allowed: false, Reason: fmt.Sprintf("No approved %s artifacts available", r.stageGroup)}
	}
	return Decision{Allowed: true}
}
