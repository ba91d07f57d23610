package parser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/terrascope/ingest/internal/models"
)

// refPattern matches dotted identifier sequences that look like resource
// addresses. Matches are filtered against the addresses actually declared
// in the parse batch, so prose that merely resembles an address only
// produces a reference when a block with that address exists.
var refPattern = regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_-]*(?:\.[a-zA-Z_][a-zA-Z0-9_-]*)+`)

// ScanReferences computes ImplicitDependencies for every resource and data
// block by scanning all attribute values for mentions of other blocks'
// addresses in the same batch. The scan is syntactic and best-effort:
// computed or interpolated addresses are not resolved, so false negatives
// (and the occasional false positive from a string that quotes a real
// address) are expected.
func ScanReferences(blocks []models.ConfigBlock) {
	known := make(map[string]struct{}, len(blocks))
	for _, b := range blocks {
		known[b.Address] = struct{}{}
	}

	for i := range blocks {
		b := &blocks[i]
		if b.Kind != models.KindResource && b.Kind != models.KindDataSource {
			continue
		}
		found := make(map[string]struct{})
		for _, v := range b.Attributes {
			scanValue(v.Value, known, b.Address, found)
		}
		if len(found) == 0 {
			b.ImplicitDependencies = nil
			continue
		}
		refs := make([]string, 0, len(found))
		for r := range found {
			refs = append(refs, r)
		}
		sort.Strings(refs)
		b.ImplicitDependencies = refs
	}
}

func scanValue(v cty.Value, known map[string]struct{}, self string, found map[string]struct{}) {
	if v == cty.NilVal || v.IsNull() || !v.IsKnown() {
		return
	}
	switch {
	case v.Type() == cty.String:
		scanString(v.AsString(), known, self, found)
	case v.CanIterateElements():
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			scanValue(ev, known, self, found)
		}
	}
}

func scanString(s string, known map[string]struct{}, self string, found map[string]struct{}) {
	for _, match := range refPattern.FindAllString(s, -1) {
		parts := strings.Split(match, ".")
		// Longest candidate first so data.type.name wins over type.name.
		limit := len(parts)
		if limit > 3 {
			limit = 3
		}
		for n := limit; n >= 2; n-- {
			candidate := strings.Join(parts[:n], ".")
			if candidate == self {
				continue
			}
			if _, ok := known[candidate]; ok {
				found[candidate] = struct{}{}
				break
			}
		}
	}
}
