package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/terrascope/ingest/internal/models"
)

func TestConfigParser_ParseFile(t *testing.T) {
	p := NewConfigParser()

	t.Run("parses a resource block with explicit dependencies", func(t *testing.T) {
		src := `
resource "example_widget" "main" {
  size  = 3
  label = "primary"

  depends_on = [example_group.base]
}

resource "example_group" "base" {
  name = "base"
}
`
		blocks, err := p.ParseFile("main.tf", []byte(src))
		require.NoError(t, err)
		require.Len(t, blocks, 2)

		widget := blocks[0]
		assert.Equal(t, models.KindResource, widget.Kind)
		assert.Equal(t, "example_widget", widget.Type)
		assert.Equal(t, "main", widget.Name)
		assert.Equal(t, "example_widget.main", widget.Address)
		assert.Equal(t, "main.tf", widget.SourceFile)
		assert.Equal(t, 2, widget.SourceLine)
		assert.Equal(t, []string{"example_group.base"}, widget.ExplicitDependencies)

		size, ok := widget.Attributes["size"]
		require.True(t, ok)
		assert.True(t, size.Value.RawEquals(cty.NumberIntVal(3)))

		label, ok := widget.Attributes["label"]
		require.True(t, ok)
		assert.Equal(t, "primary", label.AsString())
	})

	t.Run("data source addresses carry the data prefix", func(t *testing.T) {
		src := `
data "example_lookup" "current" {
  filter = "active"
}
`
		blocks, err := p.ParseFile("data.tf", []byte(src))
		require.NoError(t, err)
		require.Len(t, blocks, 1)

		assert.Equal(t, models.KindDataSource, blocks[0].Kind)
		assert.Equal(t, "data.example_lookup.current", blocks[0].Address)
	})

	t.Run("json syntax normalizes to the same blocks", func(t *testing.T) {
		native := `
resource "example_widget" "main" {
  size  = 3
  label = "primary"
}
`
		jsonSrc := `{
  "resource": {
    "example_widget": {
      "main": {
        "size": 3,
        "label": "primary"
      }
    }
  }
}`
		nativeBlocks, err := p.ParseFile("main.tf", []byte(native))
		require.NoError(t, err)
		jsonBlocks, err := p.ParseFile("main.tf.json", []byte(jsonSrc))
		require.NoError(t, err)

		require.Len(t, nativeBlocks, 1)
		require.Len(t, jsonBlocks, 1)

		assert.Equal(t, nativeBlocks[0].Address, jsonBlocks[0].Address)
		assert.Equal(t, nativeBlocks[0].Kind, jsonBlocks[0].Kind)
		for name, want := range nativeBlocks[0].Attributes {
			got, ok := jsonBlocks[0].Attributes[name]
			require.True(t, ok, "attribute %s missing from json parse", name)
			assert.True(t, want.Value.RawEquals(got.Value), "attribute %s differs", name)
		}
	})

	t.Run("json depends_on uses plain strings", func(t *testing.T) {
		src := `{
  "resource": {
    "example_widget": {
      "main": {
        "depends_on": ["example_group.base"]
      }
    }
  }
}`
		blocks, err := p.ParseFile("main.tf.json", []byte(src))
		require.NoError(t, err)
		require.Len(t, blocks, 1)
		assert.Equal(t, []string{"example_group.base"}, blocks[0].ExplicitDependencies)
	})

	t.Run("variable blocks record sensitivity", func(t *testing.T) {
		src := `
variable "db_password" {
  type      = string
  sensitive = true
}

variable "region" {
  default = "us-east-1"
}
`
		blocks, err := p.ParseFile("variables.tf", []byte(src))
		require.NoError(t, err)
		require.Len(t, blocks, 2)

		assert.Equal(t, "var.db_password", blocks[0].Address)
		assert.True(t, blocks[0].Sensitive)
		assert.Equal(t, "var.region", blocks[1].Address)
		assert.False(t, blocks[1].Sensitive)
	})

	t.Run("module blocks split source and version out", func(t *testing.T) {
		src := `
module "network" {
  source  = "registry.example.com/org/network"
  version = "2.1.0"
  cidr    = "10.0.0.0/16"
}
`
		blocks, err := p.ParseFile("modules.tf", []byte(src))
		require.NoError(t, err)
		require.Len(t, blocks, 1)

		m := blocks[0]
		assert.Equal(t, models.KindModule, m.Kind)
		assert.Equal(t, "module.network", m.Address)
		assert.Equal(t, "registry.example.com/org/network", m.Source)
		assert.Equal(t, "2.1.0", m.Version)
		assert.NotContains(t, m.Attributes, "source")
		assert.NotContains(t, m.Attributes, "version")
		assert.Contains(t, m.Attributes, "cidr")
	})

	t.Run("provider alias extends the address", func(t *testing.T) {
		src := `
provider "aws" {
  region = "us-east-1"
}

provider "aws" {
  alias  = "west"
  region = "us-west-2"
}
`
		blocks, err := p.ParseFile("providers.tf", []byte(src))
		require.NoError(t, err)
		require.Len(t, blocks, 2)

		assert.Equal(t, "provider.aws", blocks[0].Address)
		assert.Empty(t, blocks[0].Alias)
		assert.Equal(t, "provider.aws.west", blocks[1].Address)
		assert.Equal(t, "west", blocks[1].Alias)
	})

	t.Run("locals expand to one block per name", func(t *testing.T) {
		src := `
locals {
  env   = "prod"
  count = 3
}
`
		blocks, err := p.ParseFile("locals.tf", []byte(src))
		require.NoError(t, err)
		require.Len(t, blocks, 2)

		var addrs []string
		for _, b := range blocks {
			assert.Equal(t, models.KindLocal, b.Kind)
			addrs = append(addrs, b.Address)
		}
		assert.Equal(t, []string{"local.count", "local.env"}, addrs)
	})

	t.Run("terraform block becomes a settings block", func(t *testing.T) {
		src := `
terraform {
  required_version = ">= 1.5.0"
}
`
		blocks, err := p.ParseFile("versions.tf", []byte(src))
		require.NoError(t, err)
		require.Len(t, blocks, 1)

		assert.Equal(t, models.KindSettings, blocks[0].Kind)
		assert.Equal(t, "terraform", blocks[0].Address)
		assert.Contains(t, blocks[0].Attributes, "required_version")
	})

	t.Run("nested blocks fold into object attributes", func(t *testing.T) {
		src := `
resource "example_widget" "main" {
  lifecycle {
    prevent_destroy = true
  }
}
`
		blocks, err := p.ParseFile("main.tf", []byte(src))
		require.NoError(t, err)
		require.Len(t, blocks, 1)

		lc, ok := blocks[0].Attributes["lifecycle"]
		require.True(t, ok)
		require.True(t, lc.Type().IsObjectType())
		assert.True(t, lc.GetAttr("prevent_destroy").True())
	})

	t.Run("unresolvable expressions keep their source text", func(t *testing.T) {
		src := `
resource "example_widget" "main" {
  group = example_group.base.id
}

resource "example_group" "base" {
  name = "base"
}
`
		blocks, err := p.ParseFile("main.tf", []byte(src))
		require.NoError(t, err)

		group := blocks[0].Attributes["group"]
		require.Equal(t, cty.String, group.Type())
		assert.Equal(t, "example_group.base.id", group.AsString())
	})

	t.Run("missing resource name label fails", func(t *testing.T) {
		src := `
resource "example_widget" "" {
  size = 1
}
`
		_, err := p.ParseFile("main.tf", []byte(src))
		require.Error(t, err)

		var missing *MissingFieldError
		require.ErrorAs(t, err, &missing)
	})

	t.Run("malformed syntax reports a parse error", func(t *testing.T) {
		_, err := p.ParseFile("broken.tf", []byte(`resource "a" {`))
		require.Error(t, err)

		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "broken.tf", parseErr.Artifact)
	})
}

func TestConfigParser_ParseFiles(t *testing.T) {
	p := NewConfigParser()

	t.Run("resolves implicit references across files", func(t *testing.T) {
		files := map[string][]byte{
			"widgets.tf": []byte(`
resource "example_widget" "main" {
  group = example_group.base.id
}
`),
			"groups.tf": []byte(`
resource "example_group" "base" {
  name = "base"
}
`),
		}

		blocks, err := p.ParseFiles(files)
		require.NoError(t, err)
		require.Len(t, blocks, 2)

		byAddr := make(map[string]models.ConfigBlock)
		for _, b := range blocks {
			byAddr[b.Address] = b
		}
		widget := byAddr["example_widget.main"]
		assert.Equal(t, []string{"example_group.base"}, widget.ImplicitDependencies)
	})

	t.Run("one broken file does not block the others", func(t *testing.T) {
		files := map[string][]byte{
			"good.tf":   []byte(`resource "example_widget" "ok" {}`),
			"broken.tf": []byte(`resource "x" {`),
		}

		blocks, err := p.ParseFiles(files)
		require.Error(t, err)
		require.Len(t, blocks, 1)
		assert.Equal(t, "example_widget.ok", blocks[0].Address)
		assert.Contains(t, err.Error(), "broken.tf")
	})
}

func TestScanReferences(t *testing.T) {
	t.Run("only declared addresses become references", func(t *testing.T) {
		blocks := []models.ConfigBlock{
			{
				Kind:    models.KindResource,
				Address: "example_widget.main",
				Attributes: map[string]models.Value{
					"group":    models.Val(cty.StringVal("example_group.base.id")),
					"comment":  models.Val(cty.StringVal("not.a.real.address")),
					"upstream": models.Val(cty.StringVal("data.example_lookup.current.value")),
				},
			},
			{Kind: models.KindResource, Address: "example_group.base"},
			{Kind: models.KindDataSource, Address: "data.example_lookup.current"},
		}

		ScanReferences(blocks)

		want := []string{"data.example_lookup.current", "example_group.base"}
		if diff := cmp.Diff(want, blocks[0].ImplicitDependencies); diff != "" {
			t.Errorf("implicit dependencies mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("self references are skipped", func(t *testing.T) {
		blocks := []models.ConfigBlock{
			{
				Kind:    models.KindResource,
				Address: "example_widget.main",
				Attributes: map[string]models.Value{
					"note": models.Val(cty.StringVal("example_widget.main")),
				},
			},
		}

		ScanReferences(blocks)
		assert.Empty(t, blocks[0].ImplicitDependencies)
	})

	t.Run("scans nested values", func(t *testing.T) {
		blocks := []models.ConfigBlock{
			{
				Kind:    models.KindResource,
				Address: "example_widget.main",
				Attributes: map[string]models.Value{
					"config": models.Val(cty.ObjectVal(map[string]cty.Value{
						"targets": cty.TupleVal([]cty.Value{
							cty.StringVal("example_group.base"),
						}),
					})),
				},
			},
			{Kind: models.KindResource, Address: "example_group.base"},
		}

		ScanReferences(blocks)
		assert.Equal(t, []string{"example_group.base"}, blocks[0].ImplicitDependencies)
	})

	t.Run("non-resource blocks get no implicit dependencies", func(t *testing.T) {
		blocks := []models.ConfigBlock{
			{
				Kind:    models.KindOutput,
				Address: "output.widget_id",
				Attributes: map[string]models.Value{
					"value": models.Val(cty.StringVal("example_widget.main.id")),
				},
			},
			{Kind: models.KindResource, Address: "example_widget.main"},
		}

		ScanReferences(blocks)
		assert.Empty(t, blocks[0].ImplicitDependencies)
	})
}
