package reconcile

// LocalItem is an entity already stored locally. Adapters define the concrete type.
type LocalItem any

// RemoteItem is an entity reported by a remote source. Adapters define the concrete type.
type RemoteItem any

// Result is the comparison of one key across the local and remote sides.
type Result struct {
	// Key is the merge key shared by both sides.
	Key string `json:"key"`

	// LocalPresent indicates whether the key is already stored.
	LocalPresent bool `json:"local_present"`

	// RemotePresent indicates whether the remote side reported the key.
	RemotePresent bool `json:"remote_present"`

	// Mismatch lists field differences, e.g. "gender: remote=F local=M".
	Mismatch []string `json:"mismatch"`
}

// ActionType represents the type of merge action.
type ActionType string

const (
	// ActionInsert stores a remote entity that has no local counterpart.
	ActionInsert ActionType = "insert"
	// ActionUpdate overwrites a local entity from its remote counterpart.
	ActionUpdate ActionType = "update"
	// ActionSkip leaves the key alone. Reason says why.
	ActionSkip ActionType = "skip"
)

// Skip reasons produced by the planner.
const (
	SkipExists    = "exists"
	SkipUnchanged = "unchanged"
	SkipDuplicate = "duplicate_row"
)

// Action represents a planned merge operation.
type Action struct {
	Type   ActionType `json:"type"`
	Key    string     `json:"key"`
	Reason string     `json:"reason,omitempty"`

	// Remote carries the source entity for insert and update actions.
	Remote RemoteItem `json:"-"`
	// Local is the stored entity an update replaces.
	Local LocalItem `json:"-"`
}

// Plan contains comparison results and planned actions, in remote input order.
type Plan struct {
	Results []Result    `json:"results"`
	Actions []Action    `json:"actions"`
	Summary PlanSummary `json:"summary"`
}

// PlanSummary provides aggregate counts for a plan.
type PlanSummary struct {
	// TotalRemote is the number of remote items fed to the planner, duplicates included.
	TotalRemote int `json:"total_remote"`

	// TotalLocal is the number of local items the planner compared against.
	TotalLocal int `json:"total_local"`

	Inserts     int            `json:"inserts"`
	Updates     int            `json:"updates"`
	Skips       int            `json:"skips"`
	SkipReasons map[string]int `json:"skip_reasons"`
}

// Options controls planning and applying.
type Options struct {
	// UpdateExisting plans updates for stored keys whose fields differ.
	// When false, stored keys are skipped as duplicates.
	UpdateExisting bool

	// DryRun plans without executing any mutation.
	DryRun bool
}

// ApplyResult reports what ApplyPlan wrote.
type ApplyResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`

	// Conflicts counts inserts the store rejected as duplicates. They are not errors.
	Conflicts int `json:"conflicts"`
}

// Executed is the number of rows actually written.
func (r ApplyResult) Executed() int {
	return r.Inserted + r.Updated
}
