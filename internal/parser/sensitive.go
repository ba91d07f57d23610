package parser

import (
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Redaction markers. The two cases stay distinguishable downstream: an
// attribute whose value was redacted in place, versus an output whose
// entire value is withheld.
const (
	RedactedValue   = "[REDACTED]"
	SensitiveOutput = "[SENSITIVE]"
)

// DefaultSensitivePatterns are the key-name substrings that flag an
// attribute as likely holding a secret.
var DefaultSensitivePatterns = []string{
	"password",
	"secret",
	"key",
	"token",
	"credential",
	"private_key",
	"client_secret",
	"access_key",
	"sas_token",
	"api_key",
	"auth",
	"connection_string",
}

// FindSensitivePaths walks an attribute tree and returns the sorted dotted
// paths of every key whose name contains one of the patterns,
// case-insensitively. Recursion descends through nested mappings whether or
// not the parent key matched, so a secret under an innocuous parent is
// still found. List elements are not descended into.
func FindSensitivePaths(v cty.Value, patterns []string) []string {
	var out []string
	findSensitive(v, "", patterns, &out)
	sort.Strings(out)
	return out
}

func findSensitive(v cty.Value, prefix string, patterns []string, out *[]string) {
	if v == cty.NilVal || v.IsNull() || !v.IsKnown() {
		return
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return
	}
	for it := v.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		key := k.AsString()
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if matchesSensitive(key, patterns) {
			*out = append(*out, path)
		}
		findSensitive(ev, path, patterns, out)
	}
}

func matchesSensitive(key string, patterns []string) bool {
	lower := strings.ToLower(key)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// RedactPaths returns a copy of the attribute tree with the value at every
// listed path replaced by marker. cty values are immutable, so the input
// tree is untouched and the caller cannot recover the originals from the
// result.
func RedactPaths(v cty.Value, paths []string, marker string) cty.Value {
	if len(paths) == 0 {
		return v
	}
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return redact(v, "", set, marker)
}

func redact(v cty.Value, prefix string, set map[string]struct{}, marker string) cty.Value {
	if v == cty.NilVal || v.IsNull() || !v.IsKnown() {
		return v
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return v
	}
	vals := make(map[string]cty.Value)
	for it := v.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		key := k.AsString()
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if _, hit := set[path]; hit {
			vals[key] = cty.StringVal(marker)
		} else {
			vals[key] = redact(ev, path, set, marker)
		}
	}
	if len(vals) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(vals)
}
