package models

// Action is one planned operation on a resource.
type Action string

const (
	ActionNoOp    Action = "no-op"
	ActionCreate  Action = "create"
	ActionRead    Action = "read"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionReplace Action = "replace"
)

// PlanDocument is the wire shape of a change-set document as produced by
// `terraform show -json <planfile>`.
type PlanDocument struct {
	FormatVersion    string           `json:"format_version"`
	TerraformVersion string           `json:"terraform_version"`
	ResourceChanges  []ResourceChange `json:"resource_changes"`
}

type ResourceChange struct {
	Address       string `json:"address"`
	ModuleAddress string `json:"module_address,omitempty"`
	Mode          string `json:"mode,omitempty"`
	Type          string `json:"type"`
	Name          string `json:"name"`
	ProviderName  string `json:"provider_name"`
	ActionReason  string `json:"action_reason,omitempty"`
	Change        Change `json:"change"`
}

type Change struct {
	Actions      []string `json:"actions"`
	Before       Value    `json:"before"`
	After        Value    `json:"after"`
	AfterUnknown Value    `json:"after_unknown"`
}

// PlannedChange is one normalized proposed action. Before is null for
// create actions and After is null for delete actions; ChangedAttributes is
// empty exactly when the action is no-op.
type PlannedChange struct {
	Address           string   `json:"address"`
	Action            Action   `json:"action"`
	ResourceType      string   `json:"resource_type"`
	Provider          string   `json:"provider"`
	Before            Value    `json:"before"`
	After             Value    `json:"after"`
	ChangedAttributes []string `json:"changed_attribute_names"`
	ActionReason      string   `json:"action_reason,omitempty"`
	Description       string   `json:"description"`
}

// PlanSummary aggregates a whole change-set. No-op entries appear in
// ActionCounts but never in the add/change/destroy totals.
type PlanSummary struct {
	FormatVersion    string         `json:"format_version,omitempty"`
	TerraformVersion string         `json:"terraform_version,omitempty"`
	ActionCounts     map[Action]int `json:"action_counts"`
	TotalAdd         int            `json:"total_add"`
	TotalChange      int            `json:"total_change"`
	TotalDestroy     int            `json:"total_destroy"`
	Text             string         `json:"text"`
}
