package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/terrascope/ingest/internal/models"
)

// DefaultActionVerbs lists the verbs a change entry's actions array may
// carry. The composite "replace" is derived, never declared upstream.
var DefaultActionVerbs = []models.Action{
	models.ActionNoOp,
	models.ActionCreate,
	models.ActionRead,
	models.ActionUpdate,
	models.ActionDelete,
}

// PlanAnalyzer validates and normalizes change-set documents. The verb set
// is fixed at construction and read-only afterwards.
type PlanAnalyzer struct {
	verbs map[models.Action]struct{}
}

func NewPlanAnalyzer(verbs ...models.Action) *PlanAnalyzer {
	if len(verbs) == 0 {
		verbs = DefaultActionVerbs
	}
	set := make(map[models.Action]struct{}, len(verbs))
	for _, v := range verbs {
		set[v] = struct{}{}
	}
	return &PlanAnalyzer{verbs: set}
}

// Analyze parses one change-set document into per-resource changes and an
// aggregate summary. An unrecognized action verb fails the whole document.
func (a *PlanAnalyzer) Analyze(raw []byte) (*models.PlanSummary, []models.PlannedChange, error) {
	if len(raw) == 0 {
		return nil, nil, &ParseError{Artifact: "change-set", Err: errors.New("empty change-set data")}
	}
	var doc models.PlanDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, &ParseError{Artifact: "change-set", Err: err}
	}

	summary := &models.PlanSummary{
		FormatVersion:    doc.FormatVersion,
		TerraformVersion: doc.TerraformVersion,
		ActionCounts:     make(map[models.Action]int),
	}

	changes := make([]models.PlannedChange, 0, len(doc.ResourceChanges))
	for _, rc := range doc.ResourceChanges {
		if rc.Address == "" {
			return nil, nil, &MissingFieldError{Context: "resource change", Field: "address"}
		}
		action, err := a.classify(rc.Address, rc.Change.Actions)
		if err != nil {
			return nil, nil, err
		}

		before, after := rc.Change.Before, rc.Change.After
		if action == models.ActionCreate {
			before = models.NullValue()
		}
		if action == models.ActionDelete {
			after = models.NullValue()
		}

		pc := models.PlannedChange{
			Address:           rc.Address,
			Action:            action,
			ResourceType:      rc.Type,
			Provider:          rc.ProviderName,
			Before:            before,
			After:             after,
			ChangedAttributes: ChangedAttributePaths(before.Value, after.Value, action),
			ActionReason:      rc.ActionReason,
		}
		pc.Description = describeChange(pc)
		changes = append(changes, pc)

		summary.ActionCounts[action]++
		switch action {
		case models.ActionCreate, models.ActionReplace:
			summary.TotalAdd++
		case models.ActionUpdate:
			summary.TotalChange++
		case models.ActionDelete:
			summary.TotalDestroy++
		}
	}

	summary.Text = summaryText(summary, changes)
	return summary, changes, nil
}

func (a *PlanAnalyzer) classify(address string, verbs []string) (models.Action, error) {
	if len(verbs) == 0 {
		return "", &MissingFieldError{Context: address, Field: "change.actions"}
	}
	seen := make(map[models.Action]bool, len(verbs))
	for _, raw := range verbs {
		verb := models.Action(raw)
		if _, ok := a.verbs[verb]; !ok {
			return "", &InvalidActionError{Address: address, Verb: raw}
		}
		seen[verb] = true
	}
	switch {
	case seen[models.ActionCreate] && seen[models.ActionDelete]:
		return models.ActionReplace, nil
	case len(verbs) == 1:
		return models.Action(verbs[0]), nil
	}
	return "", &InvalidActionError{Address: address, Verb: strings.Join(verbs, ",")}
}

// ChangedAttributePaths computes the attribute names that differ between
// before and after under deep structural equality. Top-level names by
// default; update and replace flatten nested objects into dotted paths.
// When one side is null, every key of the other side counts as changed.
func ChangedAttributePaths(before, after cty.Value, action models.Action) []string {
	if action == models.ActionNoOp {
		return nil
	}
	beforeSet := present(before)
	afterSet := present(after)
	switch {
	case !beforeSet && !afterSet:
		return nil
	case !beforeSet:
		return topLevelKeys(after)
	case !afterSet:
		return topLevelKeys(before)
	}

	deep := action == models.ActionUpdate || action == models.ActionReplace
	changed := make(map[string]struct{})
	diffValues(before, after, "", deep, changed)

	paths := make([]string, 0, len(changed))
	for p := range changed {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func diffValues(before, after cty.Value, prefix string, deep bool, changed map[string]struct{}) {
	bElems := elementMap(before)
	aElems := elementMap(after)

	for key, bv := range bElems {
		path := joinPath(prefix, key)
		av, ok := aElems[key]
		if !ok {
			changed[path] = struct{}{}
			continue
		}
		if bv.RawEquals(av) {
			continue
		}
		if deep && isMapping(bv) && isMapping(av) {
			diffValues(bv, av, path, deep, changed)
			continue
		}
		changed[path] = struct{}{}
	}
	for key := range aElems {
		if _, ok := bElems[key]; !ok {
			changed[joinPath(prefix, key)] = struct{}{}
		}
	}
}

func present(v cty.Value) bool {
	return v != cty.NilVal && !v.IsNull()
}

func isMapping(v cty.Value) bool {
	return present(v) && (v.Type().IsObjectType() || v.Type().IsMapType())
}

func elementMap(v cty.Value) map[string]cty.Value {
	out := make(map[string]cty.Value)
	if !isMapping(v) {
		return out
	}
	for it := v.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		out[k.AsString()] = ev
	}
	return out
}

func topLevelKeys(v cty.Value) []string {
	if !isMapping(v) {
		return nil
	}
	var keys []string
	for it := v.ElementIterator(); it.Next(); {
		k, _ := it.Element()
		keys = append(keys, k.AsString())
	}
	sort.Strings(keys)
	return keys
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func describeChange(pc models.PlannedChange) string {
	switch pc.Action {
	case models.ActionCreate:
		return fmt.Sprintf("create: %d attributes known at plan time", len(pc.ChangedAttributes))
	case models.ActionUpdate:
		return fmt.Sprintf("update: %d attributes changing", len(pc.ChangedAttributes))
	case models.ActionReplace:
		if pc.ActionReason != "" {
			return "replace: " + pc.ActionReason
		}
		return "replace: cannot update in place"
	case models.ActionDelete:
		return "delete: resource will be destroyed"
	case models.ActionRead:
		return "read: data source will be refreshed during apply"
	default:
		return "no-op: no attribute changes"
	}
}

func summaryText(s *models.PlanSummary, changes []models.PlannedChange) string {
	lines := []string{fmt.Sprintf("Plan: %d to add, %d to change, %d to destroy",
		s.TotalAdd, s.TotalChange, s.TotalDestroy)}

	affecting := 0
	for _, c := range changes {
		if c.Action != models.ActionNoOp {
			affecting++
		}
	}
	if affecting == 0 {
		return lines[0]
	}

	lines = append(lines, "Changes:")
	shown := 0
	for _, c := range changes {
		if c.Action == models.ActionNoOp {
			continue
		}
		if shown == 10 {
			lines = append(lines, fmt.Sprintf("  ... and %d more", affecting-shown))
			break
		}
		lines = append(lines, fmt.Sprintf("  %s: %s", c.Action, c.Address))
		shown++
	}
	return strings.Join(lines, "\n")
}
