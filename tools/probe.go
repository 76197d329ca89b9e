package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/loopwork-ai/artisan-mcp/mcp"
)

// slowResponse is the latency above which a probe reports a warning
const slowResponse = 2 * time.Second

// NewProbeUrl creates the ProbeUrl tool. Retries and timeouts come from
// the HTTP client in opts.
func NewProbeUrl(opts Options) mcp.Tool {
	opts = opts.withDefaults()
	schema := objectSchema(nil, map[string]*jsonschema.Schema{
		"url":    stringProp("URL to request; defaults to the app.url configuration value"),
		"method": enumProp("HTTP method", http.MethodGet, http.MethodHead),
	})

	return mcp.NewTool("ProbeUrl", "Request a URL of the application and report the status code and latency.", schema,
		func(ctx context.Context, args map[string]any) (*mcp.ToolResult, error) {
			const name = "ProbeUrl"
			if invalid := validateArgs(name, schema, args); invalid != nil {
				return invalid, nil
			}

			target, ok := stringArg(args, "url")
			if !ok {
				target = configString(opts.Config, "app.url", "")
			}
			if target == "" {
				return mcp.Fail(name, "no URL to probe", mcp.ErrorEntry{
					Code:    "invalid_arguments",
					Message: "pass a url argument or set app.url in the configuration",
				}), nil
			}
			u, err := url.Parse(target)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return mcp.Fail(name, "invalid URL", mcp.ErrorEntry{
					Code:    "invalid_arguments",
					Message: fmt.Sprintf("%q is not an absolute http(s) URL", target),
				}), nil
			}

			method, ok := stringArg(args, "method")
			if !ok {
				method = http.MethodGet
			}

			req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
			if err != nil {
				return nil, fmt.Errorf("error creating request: %w", err)
			}

			start := time.Now()
			resp, err := opts.HTTPClient.Do(req)
			latency := time.Since(start)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				opts.Logger.Debug("probe failed", "url", target, "error", err)
				return mcp.Fail(name, fmt.Sprintf("%s is unreachable", target), mcp.ErrorEntry{
					Code:    "unreachable",
					Message: err.Error(),
				}).WithMeta("latency_ms", latency.Milliseconds()), nil
			}
			defer resp.Body.Close()
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

			data := map[string]any{
				"url":          target,
				"method":       method,
				"status":       resp.StatusCode,
				"content_type": resp.Header.Get("Content-Type"),
				"latency_ms":   latency.Milliseconds(),
			}
			summary := fmt.Sprintf("%s %s returned %d in %s", method, target, resp.StatusCode, latency.Round(time.Millisecond))

			var result *mcp.ToolResult
			switch {
			case resp.StatusCode >= 500:
				result = mcp.Fail(name, summary, mcp.ErrorEntry{
					Code:    "server_error",
					Message: fmt.Sprintf("server responded %s", resp.Status),
				})
				result.Data = data
			case resp.StatusCode >= 400:
				result = mcp.Warn(name, summary, data, fmt.Sprintf("client error %s", resp.Status))
			default:
				result = mcp.OK(name, summary, data)
			}
			if latency > slowResponse && result.Status != mcp.StatusError {
				result.WithWarning(fmt.Sprintf("response took %s", latency.Round(time.Millisecond)))
			}
			return result.WithMeta("latency_ms", latency.Milliseconds()), nil
		})
}
