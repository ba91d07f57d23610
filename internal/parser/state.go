package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/zclconf/go-cty/cty"

	"github.com/terrascope/ingest/internal/models"
)

// NormalizerConfig is the immutable configuration of a StateNormalizer.
// It is read without synchronization by concurrent Normalize calls and
// must not be mutated after construction.
type NormalizerConfig struct {
	SensitivePatterns []string
	MinFormatVersion  int
	AttributeMarker   string
	OutputMarker      string
}

func DefaultNormalizerConfig() NormalizerConfig {
	return NormalizerConfig{
		SensitivePatterns: DefaultSensitivePatterns,
		MinFormatVersion:  4,
		AttributeMarker:   RedactedValue,
		OutputMarker:      SensitiveOutput,
	}
}

// StateNormalizer parses state snapshots into per-instance records with
// sensitive values redacted. The unredacted attribute tree never leaves
// this component.
type StateNormalizer struct {
	cfg NormalizerConfig
}

func NewStateNormalizer(cfg NormalizerConfig) *StateNormalizer {
	if len(cfg.SensitivePatterns) == 0 {
		panic("state normalizer requires a non-empty sensitive pattern list")
	}
	return &StateNormalizer{cfg: cfg}
}

// Normalize parses one state snapshot. Snapshots older than the configured
// minimum format version fail with UnsupportedStateVersionError.
func (n *StateNormalizer) Normalize(raw []byte) (*models.StateMetadata, []models.StateResourceInstance, error) {
	if len(raw) == 0 {
		return nil, nil, &ParseError{Artifact: "state snapshot", Err: errors.New("empty state data")}
	}
	var snap models.StateSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, nil, &ParseError{Artifact: "state snapshot", Err: err}
	}
	if snap.Version < n.cfg.MinFormatVersion {
		return nil, nil, &UnsupportedStateVersionError{Found: snap.Version, Minimum: n.cfg.MinFormatVersion}
	}

	meta := &models.StateMetadata{
		FormatVersion:    snap.Version,
		TerraformVersion: canonicalVersion(snap.TerraformVersion),
		Serial:           snap.Serial,
		Lineage:          snap.Lineage,
		Outputs:          scrubOutputs(snap.Outputs, n.cfg.OutputMarker),
	}

	var instances []models.StateResourceInstance
	for _, res := range snap.Resources {
		if res.Type == "" {
			return nil, nil, &MissingFieldError{Context: "state resource", Field: "type"}
		}
		if res.Name == "" {
			return nil, nil, &MissingFieldError{Context: "state resource " + res.Type, Field: "name"}
		}
		mode := res.Mode
		if mode == "" {
			mode = "managed"
		}
		for i, inst := range res.Instances {
			paths := FindSensitivePaths(inst.Attributes.Value, n.cfg.SensitivePatterns)
			attrs := RedactPaths(inst.Attributes.Value, paths, n.cfg.AttributeMarker)
			instances = append(instances, models.StateResourceInstance{
				Address:                 instanceAddress(res, inst, i),
				InstanceKey:             inst.IndexKey,
				Module:                  res.Module,
				Mode:                    mode,
				Type:                    res.Type,
				Name:                    res.Name,
				Provider:                ProviderShortName(res.Provider),
				Attributes:              models.Val(attrs),
				SensitiveAttributePaths: paths,
				Dependencies:            inst.Dependencies,
			})
		}
	}
	return meta, instances, nil
}

func canonicalVersion(raw string) string {
	if raw == "" {
		return ""
	}
	v, err := version.NewVersion(raw)
	if err != nil {
		return raw
	}
	return v.String()
}

func scrubOutputs(outputs map[string]models.StateOutput, marker string) map[string]models.StateOutput {
	if len(outputs) == 0 {
		return nil
	}
	out := make(map[string]models.StateOutput, len(outputs))
	for name, o := range outputs {
		if o.Sensitive {
			out[name] = models.StateOutput{
				Value:     models.Val(cty.StringVal(marker)),
				Sensitive: true,
			}
			continue
		}
		out[name] = models.StateOutput{Value: o.Value, Type: o.Type}
	}
	return out
}

// instanceAddress builds the dotted address of one instance: module path
// prefix, then type.name, then the index key for repeated resources.
func instanceAddress(res models.StateResource, inst models.StateInstance, ordinal int) string {
	var parts []string
	if res.Module != "" {
		parts = append(parts, res.Module)
	}
	if res.Mode == "data" {
		parts = append(parts, "data")
	}
	parts = append(parts, res.Type, res.Name)
	addr := strings.Join(parts, ".")

	switch {
	case inst.IndexKey != nil:
		addr += "[" + FormatIndexKey(inst.IndexKey) + "]"
	case len(res.Instances) > 1:
		addr += fmt.Sprintf("[%d]", ordinal)
	}
	return addr
}

// FormatIndexKey renders an instance index key the way addresses spell it:
// quoted for for-each string keys, bare for count indexes.
func FormatIndexKey(key any) string {
	switch k := key.(type) {
	case string:
		return fmt.Sprintf("%q", k)
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64)
	case int:
		return strconv.Itoa(k)
	default:
		return fmt.Sprintf("%v", k)
	}
}

// ProviderShortName reduces a fully qualified provider reference such as
// `provider["registry.terraform.io/hashicorp/aws"]` to its final segment.
func ProviderShortName(provider string) string {
	provider = strings.TrimPrefix(provider, `provider["`)
	provider = strings.TrimSuffix(provider, `"]`)
	parts := strings.Split(provider, "/")
	return parts[len(parts)-1]
}
