package schema

// SchemaVersion is the manifest document version this build reads and writes.
const SchemaVersion = 1

// Artifact integrity states.
const (
	StateDraft      = "draft"
	StateApproved   = "approved"
	StateStale      = "stale"
	StateSuperseded = "superseded"
)

// ArtifactStates lists every integrity state, in lifecycle order.
var ArtifactStates = []string{StateDraft, StateApproved, StateStale, StateSuperseded}

// Context modes for fields.context_mode.
const (
	ContextModeNew     = "NEW"
	ContextModeFeature = "FEATURE"
)

// Approval statuses in lifecycle.stage_approvals.
const (
	ApprovalApproved = "approved"
	ApprovalReopened = "reopened"
)

// Manifest is the persisted document for a single work package. It is a
// materialized view over the approvals event log plus file-hash observations;
// the event log remains the source of truth.
type Manifest struct {
	SchemaVersion int           `yaml:"schema_version"`
	WorkPackage   WorkPackage   `yaml:"work_package"`
	Fields        Fields        `yaml:"fields"`
	Paths         Paths         `yaml:"paths"`
	Stages        []Stage       `yaml:"stages"`
	Lifecycle     Lifecycle     `yaml:"lifecycle,omitempty"`
	Artifacts     ArtifactState `yaml:"artifacts,omitempty"`
	ExternalRefs  ExternalRefs  `yaml:"external_refs,omitempty"`
}

// WorkPackage identifies the unit of work and its current position.
type WorkPackage struct {
	ID             string             `yaml:"id"`
	Title          string             `yaml:"title"`
	CurrentStage   string             `yaml:"current_stage"`
	CreatedAt      string             `yaml:"created_at"`
	UpdatedAt      string             `yaml:"updated_at"`
	Source         Source             `yaml:"source,omitempty"`
	LastTransition *TransitionSummary `yaml:"last_transition,omitempty"`
}

// Source records where the work package originated.
type Source struct {
	Provider  string `yaml:"provider,omitempty"`
	TaskID    int    `yaml:"task_id,omitempty"`
	ProjectID int    `yaml:"project_id,omitempty"`
}

// TransitionSummary is a denormalized copy of the most recent transition
// event, kept on the work package for cheap idempotent-retry answers.
type TransitionSummary struct {
	EventID   string `yaml:"event_id"`
	EventType string `yaml:"event_type"`
	FromStage string `yaml:"from_stage"`
	ToStage   string `yaml:"to_stage"`
	At        string `yaml:"at"`
	Actor     string `yaml:"actor"`
	EventFile string `yaml:"event_file,omitempty"`
}

// Fields carries the authored inputs of the work package.
type Fields struct {
	Dirname            string   `yaml:"dirname"`
	ContextMode        string   `yaml:"context_mode"`
	AcceptanceCriteria []string `yaml:"acceptance_criteria"`
}

// Paths maps each artifact group and output to a directory relative to the
// work package root.
type Paths struct {
	ArtifactsRoot  string `yaml:"artifacts_root"`
	Design         string `yaml:"design"`
	Planning       string `yaml:"planning"`
	Tests          string `yaml:"tests"`
	Implementation string `yaml:"implementation"`
	Dashboard      string `yaml:"dashboard"`
	DashboardData  string `yaml:"dashboard_data,omitempty"`
	ApprovalsRoot  string `yaml:"approvals_root"`
}

// ForGroup returns the relative directory for an artifact stage group.
func (p Paths) ForGroup(group string) string {
	switch group {
	case GroupDesign:
		return p.Design
	case GroupPlanning:
		return p.Planning
	case GroupTests:
		return p.Tests
	case GroupImplementation:
		return p.Implementation
	}
	return ""
}

// Lifecycle holds per-stage approval bookkeeping.
type Lifecycle struct {
	StageApprovals map[string]*StageApproval `yaml:"stage_approvals,omitempty"`
}

// StageApproval records that a stage was approved and, if later rolled back,
// reopened. Approval history is never deleted, only flipped to reopened.
type StageApproval struct {
	Status          string `yaml:"status"`
	EventID         string `yaml:"event_id"`
	ApprovedAt      string `yaml:"approved_at"`
	ApprovedBy      string `yaml:"approved_by"`
	ReopenedAt      string `yaml:"reopened_at,omitempty"`
	ReopenedBy      string `yaml:"reopened_by,omitempty"`
	ReopenedEventID string `yaml:"reopened_event_id,omitempty"`
}

// ArtifactState is the registry of tracked artifact files.
type ArtifactState struct {
	Items     map[string]*ArtifactRecord `yaml:"items,omitempty"`
	Counts    map[string]int             `yaml:"counts,omitempty"`
	UpdatedAt string                     `yaml:"updated_at,omitempty"`
	Reason    string                     `yaml:"reason,omitempty"`
}

// ArtifactRecord tracks one file's integrity relative to its last approved
// snapshot.
type ArtifactRecord struct {
	Path                string `yaml:"path"`
	StageGroup          string `yaml:"stage_group"`
	SHA256              string `yaml:"sha256"`
	SizeBytes           int64  `yaml:"size_bytes"`
	MtimeNS             int64  `yaml:"mtime_ns"`
	Exists              bool   `yaml:"exists"`
	State               string `yaml:"state"`
	LastApprovedHash    string `yaml:"last_approved_hash,omitempty"`
	LastApprovedAt      string `yaml:"last_approved_at,omitempty"`
	LastApprovedEventID string `yaml:"last_approved_event_id,omitempty"`
	ApprovalStage       string `yaml:"approval_stage,omitempty"`
	UpdatedAt           string `yaml:"updated_at,omitempty"`
	SupersededAt        string `yaml:"superseded_at,omitempty"`
}

// ExternalRefs maps the work package to work items in external providers.
type ExternalRefs struct {
	Items     []*ExternalRef `yaml:"items,omitempty"`
	UpdatedAt string         `yaml:"updated_at,omitempty"`
}

// ExternalRef is a single provider/work-item mapping entry.
type ExternalRef struct {
	Provider   string `yaml:"provider"`
	ExternalID string `yaml:"external_id"`
	URL        string `yaml:"url"`
	AddedAt    string `yaml:"added_at"`
	UpdatedAt  string `yaml:"updated_at"`
}
