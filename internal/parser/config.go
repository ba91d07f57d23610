// Package parser provides the three leaf components of the normalization
// pipeline: the configuration parser, the state normalizer, and the
// change-set analyzer. Every entry point is a pure function over bytes the
// caller supplies, so all of them are safe to run concurrently.
package parser

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/terrascope/ingest/internal/models"
)

// rootSchema lists the top-level block types the parser extracts. Unknown
// block types are skipped rather than rejected.
var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "resource", LabelNames: []string{"type", "name"}},
		{Type: "data", LabelNames: []string{"type", "name"}},
		{Type: "variable", LabelNames: []string{"name"}},
		{Type: "output", LabelNames: []string{"name"}},
		{Type: "module", LabelNames: []string{"name"}},
		{Type: "provider", LabelNames: []string{"name"}},
		{Type: "terraform"},
		{Type: "locals"},
	},
}

// ConfigParser turns configuration text into ConfigBlocks. Both the native
// block syntax and the equivalent JSON serialization normalize to the same
// block shape.
type ConfigParser struct{}

func NewConfigParser() *ConfigParser { return &ConfigParser{} }

// ParseFile parses one configuration file. The path selects the syntax
// (.json suffix means the JSON serialization) and is recorded on every
// block for provenance. Implicit dependencies are resolved against the
// blocks of this file only; ParseFiles rescans across the whole batch.
func (p *ConfigParser) ParseFile(path string, src []byte) ([]models.ConfigBlock, error) {
	hp := hclparse.NewParser()
	var file *hcl.File
	var diags hcl.Diagnostics
	if strings.HasSuffix(path, ".json") {
		file, diags = hp.ParseJSON(src, path)
	} else {
		file, diags = hp.ParseHCL(src, path)
	}
	if file == nil || diags.HasErrors() {
		return nil, &ParseError{Artifact: path, Err: errors.New(diags.Error())}
	}

	content, _, contentDiags := file.Body.PartialContent(rootSchema)
	if contentDiags.HasErrors() {
		return nil, &ParseError{Artifact: path, Err: errors.New(contentDiags.Error())}
	}

	var blocks []models.ConfigBlock
	for _, block := range content.Blocks {
		decoded, err := decodeBlock(block, path, src)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, decoded...)
	}
	ScanReferences(blocks)
	return blocks, nil
}

// ParseFiles parses the given files (path to content) in path-sorted order
// as one batch. A file that fails to parse contributes an entry to the
// combined error and never blocks the remaining files; the returned blocks
// come from the files that did parse.
func (p *ConfigParser) ParseFiles(files map[string][]byte) ([]models.ConfigBlock, error) {
	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var blocks []models.ConfigBlock
	var merr *multierror.Error
	for _, path := range paths {
		parsed, err := p.ParseFile(path, files[path])
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		blocks = append(blocks, parsed...)
	}
	ScanReferences(blocks)
	return blocks, merr.ErrorOrNil()
}

// ParseDir reads every configuration file under dir and parses them as one
// batch. This is the only ConfigParser entry point that touches the disk.
func (p *ConfigParser) ParseDir(dir string) ([]models.ConfigBlock, error) {
	files, err := ReadConfigDir(dir)
	if err != nil {
		return nil, err
	}
	return p.ParseFiles(files)
}

// ReadConfigDir collects the contents of every .tf and .tf.json file under
// dir, keyed by path relative to dir. Anything under a .terraform
// directory is skipped.
func ReadConfigDir(dir string) (map[string][]byte, error) {
	files := make(map[string][]byte)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".terraform" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".tf") && !strings.HasSuffix(path, ".tf.json") {
			return nil
		}
		src, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}
		files[rel] = src
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func decodeBlock(block *hcl.Block, path string, src []byte) ([]models.ConfigBlock, error) {
	switch block.Type {
	case "resource":
		b, err := decodeResource(models.KindResource, block, path, src)
		if err != nil {
			return nil, err
		}
		return []models.ConfigBlock{b}, nil
	case "data":
		b, err := decodeResource(models.KindDataSource, block, path, src)
		if err != nil {
			return nil, err
		}
		return []models.ConfigBlock{b}, nil
	case "variable":
		return []models.ConfigBlock{decodeNamed(models.KindVariable, block, path, src)}, nil
	case "output":
		return []models.ConfigBlock{decodeNamed(models.KindOutput, block, path, src)}, nil
	case "module":
		return []models.ConfigBlock{decodeNamed(models.KindModule, block, path, src)}, nil
	case "provider":
		return []models.ConfigBlock{decodeNamed(models.KindProvider, block, path, src)}, nil
	case "locals":
		return decodeLocals(block, path, src), nil
	case "terraform":
		return []models.ConfigBlock{{
			Kind:       models.KindSettings,
			Name:       "terraform",
			Address:    "terraform",
			Attributes: decodeBody(block.Body, src),
			SourceFile: path,
			SourceLine: block.DefRange.Start.Line,
		}}, nil
	}
	return nil, nil
}

func decodeResource(kind models.BlockKind, block *hcl.Block, path string, src []byte) (models.ConfigBlock, error) {
	if len(block.Labels) < 2 || block.Labels[0] == "" || block.Labels[1] == "" {
		return models.ConfigBlock{}, &MissingFieldError{
			Context: fmt.Sprintf("%s: %s block at line %d", path, block.Type, block.DefRange.Start.Line),
			Field:   "type and name labels",
		}
	}
	resType, resName := block.Labels[0], block.Labels[1]

	attrs := decodeBody(block.Body, src)
	deps := explicitDeps(block.Body, attrs)
	if len(deps) > 0 {
		vals := make([]cty.Value, len(deps))
		for i, d := range deps {
			vals[i] = cty.StringVal(d)
		}
		attrs["depends_on"] = models.Val(cty.TupleVal(vals))
	}

	addr := resType + "." + resName
	if kind == models.KindDataSource {
		addr = "data." + addr
	}
	return models.ConfigBlock{
		Kind:                 kind,
		Type:                 resType,
		Name:                 resName,
		Address:              addr,
		Attributes:           attrs,
		SourceFile:           path,
		SourceLine:           block.DefRange.Start.Line,
		ExplicitDependencies: deps,
	}, nil
}

func decodeNamed(kind models.BlockKind, block *hcl.Block, path string, src []byte) models.ConfigBlock {
	name := block.Labels[0]
	attrs := decodeBody(block.Body, src)
	b := models.ConfigBlock{
		Kind:       kind,
		Name:       name,
		Attributes: attrs,
		SourceFile: path,
		SourceLine: block.DefRange.Start.Line,
	}
	switch kind {
	case models.KindVariable:
		b.Address = "var." + name
		b.Sensitive = boolAttr(attrs, "sensitive")
	case models.KindOutput:
		b.Address = "output." + name
		b.Sensitive = boolAttr(attrs, "sensitive")
	case models.KindModule:
		b.Address = "module." + name
		b.Source = stringAttr(attrs, "source")
		b.Version = stringAttr(attrs, "version")
		delete(attrs, "source")
		delete(attrs, "version")
	case models.KindProvider:
		b.Address = "provider." + name
		b.Alias = stringAttr(attrs, "alias")
		if b.Alias != "" {
			b.Address += "." + b.Alias
		}
	}
	return b
}

func decodeLocals(block *hcl.Block, path string, src []byte) []models.ConfigBlock {
	attrs := decodeBody(block.Body, src)
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	blocks := make([]models.ConfigBlock, 0, len(names))
	for _, name := range names {
		blocks = append(blocks, models.ConfigBlock{
			Kind:       models.KindLocal,
			Name:       name,
			Address:    "local." + name,
			Attributes: map[string]models.Value{"value": attrs[name]},
			SourceFile: path,
			SourceLine: block.DefRange.Start.Line,
		})
	}
	return blocks
}

// decodeBody extracts every attribute of a block body as a value. Nested
// blocks fold into the attribute map as objects, repeated nested blocks as
// tuples of objects.
func decodeBody(body hcl.Body, src []byte) map[string]models.Value {
	raw := decodeBodyValues(body, src)
	out := make(map[string]models.Value, len(raw))
	for k, v := range raw {
		out[k] = models.Val(v)
	}
	return out
}

func decodeBodyValues(body hcl.Body, src []byte) map[string]cty.Value {
	out := make(map[string]cty.Value)

	syn, ok := body.(*hclsyntax.Body)
	if !ok {
		// JSON syntax exposes every key, nested objects included, as an
		// attribute.
		attrs, _ := body.JustAttributes()
		for name, attr := range attrs {
			out[name] = evalExpr(attr.Expr, src)
		}
		return out
	}

	for name, attr := range syn.Attributes {
		out[name] = evalExpr(attr.Expr, src)
	}

	nested := make(map[string][]cty.Value)
	var order []string
	for _, blk := range syn.Blocks {
		name := blk.Type
		if len(blk.Labels) > 0 {
			name = name + "." + strings.Join(blk.Labels, ".")
		}
		if _, seen := nested[name]; !seen {
			order = append(order, name)
		}
		nested[name] = append(nested[name], cty.ObjectVal(decodeBodyValues(blk.Body, src)))
	}
	for _, name := range order {
		group := nested[name]
		if len(group) == 1 {
			out[name] = group[0]
		} else {
			out[name] = cty.TupleVal(group)
		}
	}
	return out
}

// evalExpr statically evaluates an expression. Expressions that reference
// other objects cannot be resolved without an evaluation context, so they
// keep their source text; the reference scanner works on that text.
func evalExpr(expr hcl.Expression, src []byte) cty.Value {
	v, diags := expr.Value(nil)
	if !diags.HasErrors() && v.IsWhollyKnown() {
		return v
	}
	rng := expr.Range()
	if rng.Start.Byte >= 0 && rng.Start.Byte < rng.End.Byte && rng.End.Byte <= len(src) {
		return cty.StringVal(strings.TrimSpace(string(src[rng.Start.Byte:rng.End.Byte])))
	}
	return cty.NullVal(cty.String)
}

// explicitDeps extracts the depends_on directive. In native syntax the
// elements are traversals; in JSON they are plain strings.
func explicitDeps(body hcl.Body, attrs map[string]models.Value) []string {
	if syn, ok := body.(*hclsyntax.Body); ok {
		attr, ok := syn.Attributes["depends_on"]
		if !ok {
			return nil
		}
		return traversalRefs(attr.Expr)
	}
	v, ok := attrs["depends_on"]
	if !ok || !v.IsSet() {
		return nil
	}
	return stringElements(v.Value)
}

func traversalRefs(expr hcl.Expression) []string {
	exprs, diags := hcl.ExprList(expr)
	if diags.HasErrors() {
		return renderTraversals(expr.Variables())
	}
	var out []string
	for _, e := range exprs {
		if trav, travDiags := hcl.AbsTraversalForExpr(e); !travDiags.HasErrors() {
			out = append(out, traversalString(trav))
			continue
		}
		out = append(out, renderTraversals(e.Variables())...)
	}
	return out
}

func renderTraversals(travs []hcl.Traversal) []string {
	var out []string
	for _, t := range travs {
		out = append(out, traversalString(t))
	}
	return out
}

func traversalString(trav hcl.Traversal) string {
	var b strings.Builder
	for _, step := range trav {
		switch s := step.(type) {
		case hcl.TraverseRoot:
			b.WriteString(s.Name)
		case hcl.TraverseAttr:
			b.WriteString(".")
			b.WriteString(s.Name)
		case hcl.TraverseIndex:
			b.WriteString("[")
			b.WriteString(indexValueString(s.Key))
			b.WriteString("]")
		}
	}
	return b.String()
}

func indexValueString(k cty.Value) string {
	switch {
	case k.Type() == cty.String:
		return fmt.Sprintf("%q", k.AsString())
	case k.Type() == cty.Number:
		return k.AsBigFloat().Text('f', -1)
	default:
		return ""
	}
}

func stringElements(v cty.Value) []string {
	if v.Type() == cty.String {
		return []string{v.AsString()}
	}
	if !v.CanIterateElements() {
		return nil
	}
	var out []string
	for it := v.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		if !ev.IsNull() && ev.Type() == cty.String {
			out = append(out, ev.AsString())
		}
	}
	return out
}

func stringAttr(attrs map[string]models.Value, name string) string {
	v, ok := attrs[name]
	if !ok || !v.IsSet() || v.Type() != cty.String {
		return ""
	}
	return v.AsString()
}

func boolAttr(attrs map[string]models.Value, name string) bool {
	v, ok := attrs[name]
	if !ok || !v.IsSet() || v.Type() != cty.Bool {
		return false
	}
	return v.True()
}
