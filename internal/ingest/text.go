package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/terrascope/ingest/internal/models"
)

// Document IDs are deterministic functions of the input artifacts, so an
// unchanged batch always reproduces the same IDs.

func configDocID(file, addr string) string {
	return "config::" + file + "::" + addr
}

func stateDocID(stateID, addr string) string {
	return "state::" + stateID + "::" + addr
}

func planDocID(artifact, addr string) string {
	return "plan::" + artifact + "::" + addr
}

// stateID identifies a snapshot by lineage and serial, falling back to the
// artifact name for snapshots without a lineage.
func stateID(artifact string, meta *models.StateMetadata) string {
	if meta.Lineage == "" {
		return artifact
	}
	return fmt.Sprintf("%s::%d", meta.Lineage, meta.Serial)
}

func configDocument(b models.ConfigBlock, externalID string) models.Document {
	block := b
	return models.Document{
		ID:         configDocID(b.SourceFile, b.Address),
		DocType:    models.DocConfigResource,
		Address:    b.Address,
		ExternalID: externalID,
		Config:     &block,
		Text:       configText(b),
	}
}

// configText renders a block back into HCL-shaped source for retrieval. The
// rendering is canonical, not a copy of the input bytes: attributes are
// sorted and nested structures are elided.
func configText(b models.ConfigBlock) string {
	var sb strings.Builder
	switch b.Kind {
	case models.KindResource:
		fmt.Fprintf(&sb, "resource %q %q {\n", b.Type, b.Name)
	case models.KindDataSource:
		fmt.Fprintf(&sb, "data %q %q {\n", b.Type, b.Name)
	default:
		fmt.Fprintf(&sb, "%s %q {\n", b.Kind, b.Name)
	}
	if b.Source != "" {
		fmt.Fprintf(&sb, "  source = %q\n", b.Source)
	}
	if b.Version != "" {
		fmt.Fprintf(&sb, "  version = %q\n", b.Version)
	}
	for _, key := range sortedKeys(b.Attributes) {
		fmt.Fprintf(&sb, "  %s = %s\n", key, formatValue(b.Attributes[key].Value))
	}
	if len(b.ExplicitDependencies) > 0 {
		fmt.Fprintf(&sb, "  depends_on = [%s]\n", strings.Join(b.ExplicitDependencies, ", "))
	}
	sb.WriteString("}")
	return sb.String()
}

func formatValue(v cty.Value) string {
	if v == cty.NilVal || v.IsNull() {
		return "null"
	}
	if !v.IsKnown() {
		return "(unknown)"
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return fmt.Sprintf("%q", v.AsString())
	case ty == cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	case ty == cty.Number:
		bf := v.AsBigFloat()
		return bf.Text('f', -1)
	case ty.IsObjectType() || ty.IsMapType():
		return "{...}"
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		var parts []string
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			parts = append(parts, formatValue(ev))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprintf("%v", models.ValueToGo(v))
}

func stateDocument(stateID string, inst models.StateResourceInstance, externalID string) models.Document {
	instance := inst
	return models.Document{
		ID:         stateDocID(stateID, inst.Address),
		DocType:    models.DocStateResource,
		Address:    inst.Address,
		ExternalID: externalID,
		State:      &instance,
		Text:       stateText(inst),
	}
}

func stateText(inst models.StateResourceInstance) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s, provider %s)\n", inst.Address, inst.Mode, inst.Provider)
	attrs := attributeMap(inst.Attributes.Value)
	for _, key := range sortedKeys(attrs) {
		fmt.Fprintf(&sb, "  %s = %s\n", key, formatValue(attrs[key]))
	}
	if len(inst.Dependencies) > 0 {
		fmt.Fprintf(&sb, "  dependencies: %s\n", strings.Join(inst.Dependencies, ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func attributeMap(v cty.Value) map[string]cty.Value {
	out := make(map[string]cty.Value)
	if v == cty.NilVal || v.IsNull() || !v.IsKnown() {
		return out
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return out
	}
	for it := v.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		out[k.AsString()] = ev
	}
	return out
}

func changeDocument(artifact string, c models.PlannedChange, externalID string) models.Document {
	change := c
	return models.Document{
		ID:         planDocID(artifact, c.Address),
		DocType:    models.DocPlannedChange,
		Address:    c.Address,
		ExternalID: externalID,
		Change:     &change,
		Text:       changeText(c),
	}
}

func changeText(c models.PlannedChange) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", c.Action, c.Address)
	if c.Description != "" {
		fmt.Fprintf(&sb, "\n  %s", c.Description)
	}
	if len(c.ChangedAttributes) > 0 {
		fmt.Fprintf(&sb, "\n  attributes: %s", strings.Join(c.ChangedAttributes, ", "))
	}
	return sb.String()
}

func summaryDocument(artifact string, s *models.PlanSummary) models.Document {
	return models.Document{
		ID:      planDocID(artifact, "summary"),
		DocType: models.DocPlannedChangeSummary,
		Summary: s,
		Text:    s.Text,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
