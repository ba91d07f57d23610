package models

import "encoding/json"

// StateSnapshot is the wire shape of a state snapshot document, format
// version 4 and later (the first version with the flat
// resources[].instances[] layout).
type StateSnapshot struct {
	Version          int                    `json:"version"`
	TerraformVersion string                 `json:"terraform_version"`
	Serial           uint64                 `json:"serial"`
	Lineage          string                 `json:"lineage"`
	Outputs          map[string]StateOutput `json:"outputs,omitempty"`
	Resources        []StateResource        `json:"resources"`
}

type StateOutput struct {
	Value     Value           `json:"value"`
	Type      json.RawMessage `json:"type,omitempty"`
	Sensitive bool            `json:"sensitive,omitempty"`
}

type StateResource struct {
	Module    string          `json:"module,omitempty"`
	Mode      string          `json:"mode"`
	Type      string          `json:"type"`
	Name      string          `json:"name"`
	Provider  string          `json:"provider"`
	Instances []StateInstance `json:"instances"`
	DependsOn []string        `json:"depends_on,omitempty"`
}

type StateInstance struct {
	SchemaVersion int      `json:"schema_version"`
	IndexKey      any      `json:"index_key,omitempty"`
	Attributes    Value    `json:"attributes"`
	Dependencies  []string `json:"dependencies,omitempty"`
}

// StateMetadata carries the snapshot-level fields of a normalized state,
// including serial and lineage so callers can detect staleness between two
// snapshots of the same lineage.
type StateMetadata struct {
	FormatVersion    int                    `json:"format_version"`
	TerraformVersion string                 `json:"terraform_version"`
	Serial           uint64                 `json:"serial"`
	Lineage          string                 `json:"lineage"`
	Outputs          map[string]StateOutput `json:"outputs,omitempty"`
}

// StateResourceInstance is one concrete instance of a resource from a state
// snapshot, with sensitive attribute values already redacted. Every path in
// SensitiveAttributePaths resolves to the redaction marker in Attributes.
type StateResourceInstance struct {
	Address                 string   `json:"address"`
	InstanceKey             any      `json:"instance_key,omitempty"`
	Module                  string   `json:"module,omitempty"`
	Mode                    string   `json:"mode"`
	Type                    string   `json:"type"`
	Name                    string   `json:"name"`
	Provider                string   `json:"provider"`
	Attributes              Value    `json:"attributes"`
	SensitiveAttributePaths []string `json:"sensitive_attribute_paths,omitempty"`
	Dependencies            []string `json:"dependencies,omitempty"`
}
