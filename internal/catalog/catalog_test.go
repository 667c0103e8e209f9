package catalog

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/flowgridgo/internal/ctxlog"
)

const sampleManifest = `
operation "http_get" {
  category    = "http"
  description = "Perform an HTTP GET request."

  param "url" {
    type        = string
    description = "Target URL."
  }
  param "timeout_seconds" {
    type    = number
    default = 10
  }
  param "method" {
    type    = string
    default = "GET"
    options = ["GET", "HEAD"]
  }
}

operation "assert_status" {
  category = "assert"

  param "value" {
    type = any
  }
  param "expected" {
    type    = number
    default = 200
  }
}
`

func testContext(t *testing.T) context.Context {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return ctxlog.WithLogger(context.Background(), logger)
}

func loadSample(t *testing.T) Catalog {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ops.hcl"), []byte(sampleManifest), 0o644))

	cat, err := LoadDir(testContext(t), dir)
	require.NoError(t, err)
	return cat
}

func TestLoadDir(t *testing.T) {
	cat := loadSample(t)
	require.Len(t, cat, 2)

	op, ok := cat.Lookup("http_get")
	require.True(t, ok)
	assert.Equal(t, "http", op.Category)
	assert.Equal(t, []string{"method", "timeout_seconds", "url"}, op.ParamNames())

	url := op.Params["url"]
	assert.Equal(t, cty.String, url.Type)
	assert.Nil(t, url.Default, "url has no default, so it is required")

	method := op.Params["method"]
	require.NotNil(t, method.Default)
	assert.Equal(t, "GET", method.Default.AsString())
	assert.Equal(t, []string{"GET", "HEAD"}, method.Options)
}

func TestDefaultArguments(t *testing.T) {
	cat := loadSample(t)
	op, _ := cat.Lookup("http_get")

	defaults := op.DefaultArguments()
	assert.Equal(t, map[string]any{
		"timeout_seconds": 10,
		"method":          "GET",
	}, defaults)
}

func TestCheckArguments(t *testing.T) {
	cat := loadSample(t)

	t.Run("valid arguments", func(t *testing.T) {
		assert.NoError(t, cat.CheckArguments("http_get", map[string]any{
			"url":             "/health",
			"timeout_seconds": 5,
			"method":          "HEAD",
		}))
	})

	t.Run("references are exempt", func(t *testing.T) {
		assert.NoError(t, cat.CheckArguments("assert_status", map[string]any{
			"value": "${{ steps.fetch.result.status }}",
		}))
		assert.NoError(t, cat.CheckArguments("assert_status", map[string]any{
			"value": map[string]any{"ref": "steps.fetch.status"},
		}))
	})

	t.Run("type mismatch", func(t *testing.T) {
		err := cat.CheckArguments("http_get", map[string]any{"timeout_seconds": "soon"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected number")
	})

	t.Run("unknown parameter", func(t *testing.T) {
		err := cat.CheckArguments("http_get", map[string]any{"verb": "GET"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no parameter")
	})

	t.Run("option not allowed", func(t *testing.T) {
		err := cat.CheckArguments("http_get", map[string]any{"method": "DELETE"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not one of")
	})

	t.Run("unknown operation", func(t *testing.T) {
		assert.Error(t, cat.CheckArguments("nope", nil))
	})
}

func TestLoadDirRejectsBadManifest(t *testing.T) {
	dir := t.TempDir()
	bad := `
operation "broken" {
  param "x" {
    type    = number
    default = "not a number"
  }
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.hcl"), []byte(bad), 0o644))
	_, err := LoadDir(testContext(t), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid default value type")
}

func TestFromWire(t *testing.T) {
	payload := `{
	  "operations": [
	    {
	      "name": "http_get",
	      "category": "http",
	      "parameters": [
	        {"name": "url", "type": "string"},
	        {"name": "timeout_seconds", "type": "number", "default": 10},
	        {"name": "method", "type": "string", "default": "GET", "options": ["GET", "HEAD"]}
	      ]
	    }
	  ]
	}`

	cat, err := FromWire([]byte(payload))
	require.NoError(t, err)

	op, ok := cat.Lookup("http_get")
	require.True(t, ok)
	assert.Equal(t, cty.String, op.Params["url"].Type)
	assert.Equal(t, map[string]any{
		"timeout_seconds": 10,
		"method":          "GET",
	}, op.DefaultArguments())
}

func TestFromWireRejectsUnknownType(t *testing.T) {
	_, err := FromWire([]byte(`{"operations":[{"name":"x","parameters":[{"name":"p","type":"duration"}]}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type keyword")
}
