package schema

// Stage is one fixed phase of the work package lifecycle.
type Stage struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
	Order int    `yaml:"order" json:"order"`
}

// Stages is the fixed lifecycle ordering. It is never mutated at runtime;
// order values are total and gapless so a forward advance is always
// order(current)+1.
var Stages = []Stage{
	{ID: "inbox", Label: "1. Inbox", Order: 1},
	{ID: "design_draft", Label: "2. Design Draft", Order: 2},
	{ID: "design_approved", Label: "3. Design Approved", Order: 3},
	{ID: "planning_draft", Label: "4. Planning Draft", Order: 4},
	{ID: "plan_approved", Label: "5. Plan Approved", Order: 5},
	{ID: "tests_draft", Label: "6. Tests Draft", Order: 6},
	{ID: "tests_approved", Label: "7. Tests Approved", Order: 7},
	{ID: "ralph_loop", Label: "8. Ralph Loop", Order: 8},
	{ID: "code_review", Label: "9. Code Review", Order: 9},
	{ID: "final_review", Label: "10. Final Review", Order: 10},
	{ID: "done", Label: "11. Done", Order: 11},
}

// Stage groups classify artifact directories.
const (
	GroupDesign         = "design"
	GroupPlanning       = "planning"
	GroupTests          = "tests"
	GroupImplementation = "implementation"
)

// StageGroups lists the artifact stage groups in pipeline order.
var StageGroups = []string{GroupDesign, GroupPlanning, GroupTests, GroupImplementation}

var (
	stageOrder = make(map[string]int, len(Stages))
	stageByID  = make(map[string]Stage, len(Stages))
)

// stageGroup maps each lifecycle stage to the artifact group its outputs
// belong to. Inbox produces no artifacts.
var stageGroup = map[string]string{
	"design_draft":    GroupDesign,
	"design_approved": GroupDesign,
	"planning_draft":  GroupPlanning,
	"plan_approved":   GroupPlanning,
	"tests_draft":     GroupTests,
	"tests_approved":  GroupTests,
	"ralph_loop":      GroupImplementation,
	"code_review":     GroupImplementation,
	"final_review":    GroupImplementation,
	"done":            GroupImplementation,
}

// draftStages are the stages that must hold at least one artifact file
// before they can be advanced out of.
var draftStages = map[string]bool{
	"design_draft":   true,
	"planning_draft": true,
	"tests_draft":    true,
}

func init() {
	for _, s := range Stages {
		stageOrder[s.ID] = s.Order
		stageByID[s.ID] = s
	}
}

// IsStage reports whether id names a known lifecycle stage.
func IsStage(id string) bool {
	_, ok := stageOrder[id]
	return ok
}

// StageOrder returns the 1-based order of a stage, or 0 if unknown.
func StageOrder(id string) int {
	return stageOrder[id]
}

// StageByID returns the stage definition for id.
func StageByID(id string) (Stage, bool) {
	s, ok := stageByID[id]
	return s, ok
}

// OrderedStageIDs returns all stage ids in pipeline order.
func OrderedStageIDs() []string {
	ids := make([]string, len(Stages))
	for i, s := range Stages {
		ids[i] = s.ID
	}
	return ids
}

// NextStage returns the stage immediately after id, or "" if id is the last
// stage or unknown.
func NextStage(id string) string {
	order, ok := stageOrder[id]
	if !ok || order >= len(Stages) {
		return ""
	}
	return Stages[order].ID // Stages is zero-indexed, orders are 1-based
}

// StageGroupFor returns the artifact group owning a lifecycle stage's
// outputs, or "" for stages with no artifacts (inbox).
func StageGroupFor(stageID string) string {
	return stageGroup[stageID]
}

// GroupStages returns the lifecycle stages whose approvals govern a stage
// group, in pipeline order.
func GroupStages(group string) []string {
	var out []string
	for _, s := range Stages {
		if stageGroup[s.ID] == group {
			out = append(out, s.ID)
		}
	}
	return out
}

// IsDraftStage reports whether a stage requires artifacts before advancing.
func IsDraftStage(id string) bool {
	return draftStages[id]
}
