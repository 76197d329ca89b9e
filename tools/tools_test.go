package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopwork-ai/artisan-mcp/internal"
	"github.com/loopwork-ai/artisan-mcp/internal/config"
	"github.com/loopwork-ai/artisan-mcp/mcp"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Values = map[string]any{
		"app": map[string]any{
			"name": "Acme",
			"env":  "local",
		},
		"database": map[string]any{
			"driver":   "mysql",
			"password": "hunter2",
		},
	}
	return cfg
}

func execute(t *testing.T, tool mcp.Tool, args map[string]any) *mcp.ToolResult {
	t.Helper()
	result, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NoError(t, result.Validate())
	assert.Equal(t, tool.Name(), result.Tool)
	return result
}

func dataMap(t *testing.T, result *mcp.ToolResult) map[string]any {
	t.Helper()
	data, err := json.Marshal(result.Data)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestAll(t *testing.T) {
	tools := All(Options{})
	var names []string
	for _, tool := range tools {
		names = append(names, tool.Name())
		assert.NotEmpty(t, tool.Description())
		require.NotNil(t, tool.InputSchema())
		assert.Equal(t, "object", tool.InputSchema().Type)
	}
	assert.Equal(t, []string{"GetConfig", "ListConfigKeys", "DescribeApiSpec", "ProbeUrl", "TailLog", "ExportConfig"}, names)

	for _, tool := range tools {
		assert.Equal(t, tool.Name() != "ExportConfig", tool.ReadOnly(), tool.Name())
	}
}

func TestEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.DisabledTools = []string{"ProbeUrl", "ExportConfig"}

	var names []string
	for _, tool := range Enabled(Options{Config: cfg}) {
		names = append(names, tool.Name())
	}
	assert.Equal(t, []string{"GetConfig", "ListConfigKeys", "DescribeApiSpec", "TailLog"}, names)
}

func TestGetConfig(t *testing.T) {
	tool := NewGetConfig(Options{Config: testConfig(), BaseDir: "/srv/app"})

	t.Run("found", func(t *testing.T) {
		result := execute(t, tool, map[string]any{"key": "database.driver"})
		assert.Equal(t, mcp.StatusOK, result.Status)
		assert.Equal(t, "database.driver = mysql", result.Summary)
		assert.Equal(t, map[string]any{"key": "database.driver", "value": "mysql", "source": "config"}, dataMap(t, result))
		assert.Equal(t, "/srv/app", result.Meta["base_path"])
		assert.Empty(t, result.Warnings)
		assert.Empty(t, result.Errors)
	})

	t.Run("sensitive value is masked", func(t *testing.T) {
		result := execute(t, tool, map[string]any{"key": "database.password"})
		assert.Equal(t, mcp.StatusOK, result.Status)
		assert.Equal(t, maskedValue, dataMap(t, result)["value"])
		assert.Equal(t, true, result.Meta["masked"])
	})

	t.Run("reveal", func(t *testing.T) {
		result := execute(t, tool, map[string]any{"key": "database.password", "reveal": true})
		assert.Equal(t, "hunter2", dataMap(t, result)["value"])
	})

	t.Run("section masks nested values", func(t *testing.T) {
		result := execute(t, tool, map[string]any{"key": "database"})
		value := dataMap(t, result)["value"].(map[string]any)
		assert.Equal(t, "mysql", value["driver"])
		assert.Equal(t, maskedValue, value["password"])
	})

	t.Run("missing with default", func(t *testing.T) {
		result := execute(t, tool, map[string]any{"key": "cache.driver", "default": "file"})
		assert.Equal(t, mcp.StatusWarning, result.Status)
		assert.Equal(t, map[string]any{"key": "cache.driver", "value": "file", "source": "default"}, dataMap(t, result))
		assert.Len(t, result.Warnings, 1)
	})

	t.Run("missing without default", func(t *testing.T) {
		result := execute(t, tool, map[string]any{"key": "cache.driver"})
		assert.Equal(t, mcp.StatusError, result.Status)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "not_found", result.Errors[0].Code)
	})

	t.Run("missing key argument", func(t *testing.T) {
		result := execute(t, tool, map[string]any{})
		assert.Equal(t, mcp.StatusError, result.Status)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "invalid_arguments", result.Errors[0].Code)
	})

	t.Run("wrong argument type", func(t *testing.T) {
		result := execute(t, tool, map[string]any{"key": float64(42)})
		assert.Equal(t, mcp.StatusError, result.Status)
		assert.Equal(t, "invalid_arguments", result.Errors[0].Code)
	})
}

func TestListConfigKeys(t *testing.T) {
	tool := NewListConfigKeys(Options{Config: testConfig()})

	result := execute(t, tool, map[string]any{})
	assert.Equal(t, mcp.StatusOK, result.Status)
	assert.Equal(t, []any{"app.env", "app.name", "database.driver", "database.password"}, dataMap(t, result)["keys"])

	result = execute(t, tool, map[string]any{"prefix": "database"})
	assert.Equal(t, []any{"database.driver", "database.password"}, dataMap(t, result)["keys"])
	assert.Equal(t, float64(2), dataMap(t, result)["count"])

	result = execute(t, tool, map[string]any{"prefix": "queue"})
	assert.Equal(t, mcp.StatusWarning, result.Status)
	assert.Equal(t, []any{}, dataMap(t, result)["keys"])
}

const petstore = `{
  "openapi": "3.0.0",
  "info": {"title": "Petstore", "version": "1.0.0"},
  "servers": [{"url": "https://api.example.com"}],
  "paths": {
    "/pets": {
      "get": {"operationId": "listPets", "summary": "List pets", "tags": ["pets"], "responses": {"200": {"description": "OK"}}},
      "post": {"operationId": "createPet", "tags": ["pets"], "responses": {"201": {"description": "Created"}}}
    },
    "/health": {
      "get": {"deprecated": true, "tags": ["ops"], "responses": {"200": {"description": "OK"}}}
    }
  }
}`

func TestDescribeApiSpec(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "storage", "api-docs", "api-docs.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(specPath), 0755))
	require.NoError(t, os.WriteFile(specPath, []byte(petstore), 0644))

	tool := NewDescribeApiSpec(Options{BaseDir: dir})

	t.Run("default path", func(t *testing.T) {
		result := execute(t, tool, map[string]any{})
		summary, ok := result.Data.(*ApiSpecSummary)
		require.True(t, ok)
		assert.Equal(t, "Petstore", summary.Title)
		assert.Equal(t, "1.0.0", summary.Version)
		assert.Equal(t, []string{"https://api.example.com"}, summary.Servers)
		assert.Len(t, summary.Operations, 3)

		// The health check has no operationId and is deprecated.
		assert.Equal(t, mcp.StatusWarning, result.Status)
		assert.Len(t, result.Warnings, 2)
	})

	t.Run("tag filter", func(t *testing.T) {
		result := execute(t, tool, map[string]any{"tag": "pets"})
		summary := result.Data.(*ApiSpecSummary)
		require.Len(t, summary.Operations, 2)
		var ids []string
		for _, op := range summary.Operations {
			ids = append(ids, op.OperationID)
		}
		assert.ElementsMatch(t, []string{"listPets", "createPet"}, ids)
		assert.Equal(t, mcp.StatusOK, result.Status)
	})

	t.Run("missing document", func(t *testing.T) {
		result := execute(t, tool, map[string]any{"path": "missing.json"})
		assert.Equal(t, mcp.StatusError, result.Status)
		assert.Equal(t, "not_found", result.Errors[0].Code)
	})

	t.Run("invalid document", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("not an openapi document"), 0644))
		result := execute(t, tool, map[string]any{"path": "bad.json"})
		assert.Equal(t, mcp.StatusError, result.Status)
		assert.Equal(t, "invalid_spec", result.Errors[0].Code)
	})
}

func TestProbeUrl(t *testing.T) {
	client := internal.NewHTTPClient(internal.ClientOptions{
		Retries:      2,
		Timeout:      5 * time.Second,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	})

	t.Run("recovers after a transient failure", func(t *testing.T) {
		var attempts atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()

		tool := NewProbeUrl(Options{HTTPClient: client})
		result := execute(t, tool, map[string]any{"url": ts.URL})
		assert.Equal(t, mcp.StatusOK, result.Status)
		data := dataMap(t, result)
		assert.Equal(t, float64(200), data["status"])
		assert.Equal(t, "text/html", data["content_type"])
		assert.Equal(t, int32(2), attempts.Load())
	})

	t.Run("url from config", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodHead, r.Method)
		}))
		defer ts.Close()

		cfg := testConfig()
		cfg.Values["app"].(map[string]any)["url"] = ts.URL
		tool := NewProbeUrl(Options{Config: cfg, HTTPClient: client})
		result := execute(t, tool, map[string]any{"method": "HEAD"})
		assert.Equal(t, mcp.StatusOK, result.Status)
		assert.Equal(t, ts.URL, dataMap(t, result)["url"])
	})

	t.Run("client error is a warning", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		defer ts.Close()

		result := execute(t, NewProbeUrl(Options{HTTPClient: client}), map[string]any{"url": ts.URL})
		assert.Equal(t, mcp.StatusWarning, result.Status)
		assert.Len(t, result.Warnings, 1)
	})

	t.Run("server error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer ts.Close()

		result := execute(t, NewProbeUrl(Options{HTTPClient: client}), map[string]any{"url": ts.URL})
		assert.Equal(t, mcp.StatusError, result.Status)
		assert.Equal(t, "server_error", result.Errors[0].Code)
		assert.Equal(t, float64(500), dataMap(t, result)["status"])
	})

	t.Run("unreachable", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		url := ts.URL
		ts.Close()

		noRetry := internal.NewHTTPClient(internal.ClientOptions{RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond})
		result := execute(t, NewProbeUrl(Options{HTTPClient: noRetry}), map[string]any{"url": url})
		assert.Equal(t, mcp.StatusError, result.Status)
		assert.Equal(t, "unreachable", result.Errors[0].Code)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		tool := NewProbeUrl(Options{HTTPClient: client})

		result := execute(t, tool, map[string]any{})
		assert.Equal(t, "invalid_arguments", result.Errors[0].Code)

		result = execute(t, tool, map[string]any{"url": "ftp://example.com"})
		assert.Equal(t, "invalid_arguments", result.Errors[0].Code)

		result = execute(t, tool, map[string]any{"url": "http://example.com", "method": "DELETE"})
		assert.Equal(t, "invalid_arguments", result.Errors[0].Code)
	})
}

func TestTailLog(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "storage", "logs", "laravel.log")
	require.NoError(t, os.MkdirAll(filepath.Dir(logPath), 0755))

	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, "[2024-01-01 00:00:00] local.INFO: request handled")
	}
	lines = append(lines,
		"[2024-01-01 00:00:01] local.ERROR: database connection failed",
		"#0 /srv/app/vendor/laravel/framework/src/Connection.php(100)",
		"[2024-01-01 00:00:02] production.WARNING: slow query",
	)
	require.NoError(t, os.WriteFile(logPath, []byte(strings.Join(lines, "\n")+"\n"), 0644))

	tool := NewTailLog(Options{BaseDir: dir})

	t.Run("last lines", func(t *testing.T) {
		result := execute(t, tool, map[string]any{"lines": float64(3)})
		data := dataMap(t, result)
		assert.Equal(t, []any{lines[10], lines[11], lines[12]}, data["lines"])
		assert.Equal(t, map[string]any{"error": float64(1), "warning": float64(1)}, data["levels"])
		assert.Equal(t, mcp.StatusWarning, result.Status)
		assert.Len(t, result.Warnings, 1)
	})

	t.Run("only info", func(t *testing.T) {
		result := execute(t, tool, map[string]any{"lines": float64(12)})
		data := dataMap(t, result)
		assert.Equal(t, float64(12), data["count"])
		assert.Equal(t, lines[1], data["lines"].([]any)[0])
	})

	t.Run("fewer lines than requested", func(t *testing.T) {
		result := execute(t, tool, map[string]any{})
		assert.Equal(t, float64(len(lines)), dataMap(t, result)["count"])
	})

	t.Run("empty", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.log"), nil, 0644))
		result := execute(t, tool, map[string]any{"path": "empty.log"})
		assert.Equal(t, mcp.StatusWarning, result.Status)
	})

	t.Run("missing", func(t *testing.T) {
		result := execute(t, tool, map[string]any{"path": "missing.log"})
		assert.Equal(t, mcp.StatusError, result.Status)
		assert.Equal(t, "not_found", result.Errors[0].Code)
	})

	t.Run("out of range", func(t *testing.T) {
		result := execute(t, tool, map[string]any{"lines": float64(0)})
		assert.Equal(t, "invalid_arguments", result.Errors[0].Code)

		result = execute(t, tool, map[string]any{"lines": float64(5000)})
		assert.Equal(t, "invalid_arguments", result.Errors[0].Code)
	})
}

func TestExportConfig(t *testing.T) {
	newTool := func(t *testing.T) (mcp.Tool, string) {
		dir := t.TempDir()
		return NewExportConfig(Options{Config: testConfig(), BaseDir: dir}), dir
	}

	t.Run("dry run by default", func(t *testing.T) {
		tool, dir := newTool(t)
		result := execute(t, tool, map[string]any{})
		assert.Equal(t, mcp.StatusOK, result.Status)
		assert.Equal(t, 0, result.Meta["writes_performed"])

		content := dataMap(t, result)["content"].(string)
		assert.Contains(t, content, "driver: mysql")
		assert.Contains(t, content, maskedValue)
		assert.NotContains(t, content, "hunter2")

		_, err := os.Stat(filepath.Join(dir, defaultExportPath))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("writes json", func(t *testing.T) {
		tool, dir := newTool(t)
		result := execute(t, tool, map[string]any{"path": "exports/config.json", "dry_run": false})
		assert.Equal(t, mcp.StatusOK, result.Status)
		assert.Equal(t, 1, result.Meta["writes_performed"])

		cfg, err := config.LoadFile(filepath.Join(dir, "exports", "config.json"))
		require.NoError(t, err)
		value, ok := cfg.Lookup("database.password")
		require.True(t, ok)
		assert.Equal(t, maskedValue, value)
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		tool, dir := newTool(t)
		target := filepath.Join(dir, defaultExportPath)
		require.NoError(t, os.WriteFile(target, []byte("keep"), 0644))

		result := execute(t, tool, map[string]any{"dry_run": false})
		assert.Equal(t, mcp.StatusError, result.Status)
		assert.Equal(t, "already_exists", result.Errors[0].Code)
		data, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.Equal(t, "keep", string(data))

		result = execute(t, tool, map[string]any{"dry_run": false, "overwrite": true, "reveal": true})
		assert.Equal(t, mcp.StatusWarning, result.Status)
		data, err = os.ReadFile(target)
		require.NoError(t, err)
		assert.Contains(t, string(data), "hunter2")
	})

	t.Run("outside the project", func(t *testing.T) {
		tool, _ := newTool(t)
		result := execute(t, tool, map[string]any{"path": "../escape.yaml", "dry_run": false})
		assert.Equal(t, mcp.StatusError, result.Status)
		assert.Equal(t, "path_outside_project", result.Errors[0].Code)
	})
}

func TestWithinBase(t *testing.T) {
	assert.True(t, withinBase("/srv/app", "/srv/app/config.yaml"))
	assert.True(t, withinBase("/srv/app", "/srv/app"))
	assert.False(t, withinBase("/srv/app", "/srv/other/config.yaml"))
	assert.False(t, withinBase("/srv/app", "/srv/app/../config.yaml"))
	assert.True(t, withinBase("/srv/app", "/srv/app/..config"))
}

func TestIsSensitiveKey(t *testing.T) {
	for key, want := range map[string]bool{
		"database.password":      true,
		"services.stripe.secret": true,
		"mail.api_key":           true,
		"app.token_ttl":          true,
		"passwords.driver":       false,
		"app.name":               false,
	} {
		assert.Equal(t, want, isSensitiveKey(key), key)
	}
}
