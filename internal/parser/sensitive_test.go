package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestFindSensitivePaths(t *testing.T) {
	t.Run("matches key names case insensitively", func(t *testing.T) {
		attrs := cty.ObjectVal(map[string]cty.Value{
			"admin_Password": cty.StringVal("hunter2"),
			"name":           cty.StringVal("db"),
		})

		paths := FindSensitivePaths(attrs, DefaultSensitivePatterns)
		assert.Equal(t, []string{"admin_Password"}, paths)
	})

	t.Run("finds secrets under innocuous parents", func(t *testing.T) {
		attrs := cty.ObjectVal(map[string]cty.Value{
			"settings": cty.ObjectVal(map[string]cty.Value{
				"client_secret": cty.StringVal("s3cr3t"),
				"timeout":       cty.NumberIntVal(30),
			}),
		})

		paths := FindSensitivePaths(attrs, DefaultSensitivePatterns)
		assert.Equal(t, []string{"settings.client_secret"}, paths)
	})

	t.Run("continues past a matched key", func(t *testing.T) {
		attrs := cty.ObjectVal(map[string]cty.Value{
			"auth": cty.ObjectVal(map[string]cty.Value{
				"token": cty.StringVal("abc"),
			}),
		})

		paths := FindSensitivePaths(attrs, DefaultSensitivePatterns)
		assert.Equal(t, []string{"auth", "auth.token"}, paths)
	})

	t.Run("does not descend into lists", func(t *testing.T) {
		attrs := cty.ObjectVal(map[string]cty.Value{
			"rules": cty.TupleVal([]cty.Value{
				cty.ObjectVal(map[string]cty.Value{
					"secret": cty.StringVal("x"),
				}),
			}),
		})

		paths := FindSensitivePaths(attrs, DefaultSensitivePatterns)
		assert.Empty(t, paths)
	})

	t.Run("null and non-object values yield nothing", func(t *testing.T) {
		assert.Empty(t, FindSensitivePaths(cty.NilVal, DefaultSensitivePatterns))
		assert.Empty(t, FindSensitivePaths(cty.NullVal(cty.DynamicPseudoType), DefaultSensitivePatterns))
		assert.Empty(t, FindSensitivePaths(cty.StringVal("password"), DefaultSensitivePatterns))
	})
}

func TestRedactPaths(t *testing.T) {
	t.Run("replaces matched values and keeps the rest", func(t *testing.T) {
		attrs := cty.ObjectVal(map[string]cty.Value{
			"admin_password": cty.StringVal("hunter2"),
			"engine":         cty.StringVal("postgres"),
		})

		out := RedactPaths(attrs, []string{"admin_password"}, RedactedValue)

		assert.Equal(t, RedactedValue, out.GetAttr("admin_password").AsString())
		assert.Equal(t, "postgres", out.GetAttr("engine").AsString())
	})

	t.Run("redacts nested paths", func(t *testing.T) {
		attrs := cty.ObjectVal(map[string]cty.Value{
			"settings": cty.ObjectVal(map[string]cty.Value{
				"api_key": cty.StringVal("k-123"),
				"region":  cty.StringVal("us-east-1"),
			}),
		})

		out := RedactPaths(attrs, []string{"settings.api_key"}, RedactedValue)

		settings := out.GetAttr("settings")
		assert.Equal(t, RedactedValue, settings.GetAttr("api_key").AsString())
		assert.Equal(t, "us-east-1", settings.GetAttr("region").AsString())
	})

	t.Run("input tree is unchanged", func(t *testing.T) {
		attrs := cty.ObjectVal(map[string]cty.Value{
			"token": cty.StringVal("abc"),
		})

		_ = RedactPaths(attrs, []string{"token"}, RedactedValue)
		assert.Equal(t, "abc", attrs.GetAttr("token").AsString())
	})

	t.Run("no paths returns the value untouched", func(t *testing.T) {
		attrs := cty.ObjectVal(map[string]cty.Value{
			"name": cty.StringVal("db"),
		})
		out := RedactPaths(attrs, nil, RedactedValue)
		assert.True(t, attrs.RawEquals(out))
	})

	t.Run("every found path resolves to the marker", func(t *testing.T) {
		attrs := cty.ObjectVal(map[string]cty.Value{
			"password": cty.StringVal("a"),
			"auth": cty.ObjectVal(map[string]cty.Value{
				"access_key": cty.StringVal("b"),
			}),
			"plain": cty.StringVal("c"),
		})

		paths := FindSensitivePaths(attrs, DefaultSensitivePatterns)
		out := RedactPaths(attrs, paths, RedactedValue)

		require.Contains(t, paths, "password")
		assert.Equal(t, RedactedValue, out.GetAttr("password").AsString())
		assert.Equal(t, RedactedValue, out.GetAttr("auth").AsString())
		assert.Equal(t, "c", out.GetAttr("plain").AsString())
	})
}

func TestMarkers(t *testing.T) {
	t.Run("attribute and output markers stay distinct", func(t *testing.T) {
		assert.NotEqual(t, RedactedValue, SensitiveOutput)
	})
}
