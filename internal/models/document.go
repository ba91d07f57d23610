package models

// DocType discriminates the unified document variants.
type DocType string

const (
	DocConfigResource       DocType = "config_resource"
	DocStateResource        DocType = "state_resource"
	DocPlannedChange        DocType = "planned_change"
	DocPlannedChangeSummary DocType = "planned_change_summary"
)

// Document is one unified, index-ready record. IDs are deterministic
// functions of the input artifacts so re-running an unchanged batch yields
// byte-identical documents.
type Document struct {
	ID         string                 `json:"id"`
	DocType    DocType                `json:"doc_type"`
	Address    string                 `json:"address,omitempty"`
	ExternalID string                 `json:"external_id,omitempty"`
	Config     *ConfigBlock           `json:"config,omitempty"`
	State      *StateResourceInstance `json:"state,omitempty"`
	Change     *PlannedChange         `json:"change,omitempty"`
	Summary    *PlanSummary           `json:"summary,omitempty"`
	Text       string                 `json:"text"`
}

// Linkage records everything known about one resource address across the
// declared, deployed, and planned views. Dependencies maps a target address
// to the edge kind ("depends_on" or "implicit").
type Linkage struct {
	Address       string            `json:"address"`
	ExternalID    string            `json:"external_id,omitempty"`
	ConfigFile    string            `json:"config_file,omitempty"`
	ConfigLine    int               `json:"config_line,omitempty"`
	InState       bool              `json:"in_state"`
	PlannedAction Action            `json:"planned_action,omitempty"`
	Dependencies  map[string]string `json:"dependencies,omitempty"`
}

// ArtifactError attributes one failure to one input artifact.
type ArtifactError struct {
	Artifact string `json:"artifact"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}
