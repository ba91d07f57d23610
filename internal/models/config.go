package models

// BlockKind identifies what sort of declaration a ConfigBlock came from.
type BlockKind string

const (
	KindResource   BlockKind = "resource"
	KindDataSource BlockKind = "data_source"
	KindVariable   BlockKind = "variable"
	KindOutput     BlockKind = "output"
	KindModule     BlockKind = "module"
	KindProvider   BlockKind = "provider"
	KindLocal      BlockKind = "local"
	KindSettings   BlockKind = "settings"
)

// ConfigBlock is one declared unit from a configuration file. Addresses are
// unique per parse batch for resource and data blocks; module-scoped blocks
// prefix the module path.
type ConfigBlock struct {
	Kind       BlockKind        `json:"kind"`
	Type       string           `json:"type,omitempty"`
	Name       string           `json:"name"`
	Address    string           `json:"address"`
	ModulePath string           `json:"module_path,omitempty"`
	Attributes map[string]Value `json:"attributes,omitempty"`

	// Module calls carry source and version separately from the free-form
	// configuration attributes.
	Source  string `json:"source,omitempty"`
	Version string `json:"version,omitempty"`

	// Alias is set for provider blocks that declare one.
	Alias string `json:"alias,omitempty"`

	// Sensitive is set for variable and output blocks flagged sensitive.
	Sensitive bool `json:"sensitive,omitempty"`

	SourceFile string `json:"source_file"`
	SourceLine int    `json:"source_line,omitempty"`

	ExplicitDependencies []string `json:"explicit_dependencies,omitempty"`
	ImplicitDependencies []string `json:"implicit_dependencies,omitempty"`
}
