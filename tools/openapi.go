package tools

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/pb33f/libopenapi"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"

	"github.com/loopwork-ai/artisan-mcp/mcp"
)

// defaultApiSpecPath is where l5-swagger writes the generated document
const defaultApiSpecPath = "storage/api-docs/api-docs.json"

// Operation summarizes one operation of an OpenAPI document
type Operation struct {
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	OperationID string   `json:"operationId,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Deprecated  bool     `json:"deprecated,omitempty"`
}

// ApiSpecSummary is the data returned by DescribeApiSpec
type ApiSpecSummary struct {
	Path       string      `json:"path"`
	Title      string      `json:"title,omitempty"`
	Version    string      `json:"version,omitempty"`
	Servers    []string    `json:"servers"`
	Operations []Operation `json:"operations"`
}

// NewDescribeApiSpec creates the DescribeApiSpec tool
func NewDescribeApiSpec(opts Options) mcp.Tool {
	opts = opts.withDefaults()
	schema := objectSchema(nil, map[string]*jsonschema.Schema{
		"path": stringProp("Path to the OpenAPI document, relative to the project root"),
		"tag":  stringProp("Only include operations with this tag"),
	})

	return mcp.NewTool("DescribeApiSpec", "Summarize the project's OpenAPI document: servers and operations.", schema,
		func(_ context.Context, args map[string]any) (*mcp.ToolResult, error) {
			const name = "DescribeApiSpec"
			if invalid := validateArgs(name, schema, args); invalid != nil {
				return invalid, nil
			}

			path, ok := stringArg(args, "path")
			if !ok {
				path = configString(opts.Config, "openapi.path", defaultApiSpecPath)
			}
			tag, _ := stringArg(args, "tag")
			fullPath := resolvePath(opts.BaseDir, path)

			specData, err := os.ReadFile(fullPath)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return mcp.Fail(name, "OpenAPI document not found", mcp.ErrorEntry{
						Code:    "not_found",
						Message: fmt.Sprintf("no OpenAPI document at %s", path),
					}).WithMeta("base_path", opts.BaseDir), nil
				}
				return nil, fmt.Errorf("error reading %s: %w", path, err)
			}

			summary, warnings, err := describeApiSpec(specData, tag)
			if err != nil {
				return mcp.Fail(name, "OpenAPI document is invalid", mcp.ErrorEntry{
					Code:    "invalid_spec",
					Message: err.Error(),
				}).WithMeta("base_path", opts.BaseDir), nil
			}
			summary.Path = path

			label := summary.Title
			if label == "" {
				label = path
			}
			result := mcp.OK(name, fmt.Sprintf("%s: %d operations", label, len(summary.Operations)), summary).
				WithMeta("base_path", opts.BaseDir)
			for _, w := range warnings {
				result.WithWarning(w)
			}
			return result, nil
		})
}

func describeApiSpec(specData []byte, tag string) (*ApiSpecSummary, []string, error) {
	doc, err := libopenapi.NewDocument(specData)
	if err != nil {
		return nil, nil, fmt.Errorf("error parsing OpenAPI document: %w", err)
	}

	model, errs := doc.BuildV3Model()
	if errs != nil {
		return nil, nil, fmt.Errorf("error building OpenAPI model: %v", errs)
	}
	if model == nil {
		return nil, nil, errors.New("document is not an OpenAPI 3 document")
	}

	summary := &ApiSpecSummary{
		Servers:    []string{},
		Operations: []Operation{},
	}
	if info := model.Model.Info; info != nil {
		summary.Title = info.Title
		summary.Version = info.Version
	}
	for _, server := range model.Model.Servers {
		if server != nil && server.URL != "" {
			summary.Servers = append(summary.Servers, server.URL)
		}
	}

	var warnings []string
	if len(summary.Servers) == 0 {
		warnings = append(warnings, "document declares no servers")
	}

	if model.Model.Paths == nil || model.Model.Paths.PathItems == nil {
		return summary, append(warnings, "document declares no paths"), nil
	}

	for pair := model.Model.Paths.PathItems.First(); pair != nil; pair = pair.Next() {
		path := pair.Key()
		for _, op := range pathOperations(pair.Value()) {
			if tag != "" && !contains(op.operation.Tags, tag) {
				continue
			}
			o := Operation{
				Method:      op.method,
				Path:        path,
				OperationID: op.operation.OperationId,
				Summary:     op.operation.Summary,
				Tags:        op.operation.Tags,
				Deprecated:  op.operation.Deprecated != nil && *op.operation.Deprecated,
			}
			if o.Summary == "" {
				o.Summary = op.operation.Description
			}
			if o.OperationID == "" {
				warnings = append(warnings, fmt.Sprintf("%s %s has no operationId", o.Method, o.Path))
			}
			if o.Deprecated {
				warnings = append(warnings, fmt.Sprintf("%s %s is deprecated", o.Method, o.Path))
			}
			summary.Operations = append(summary.Operations, o)
		}
	}

	return summary, warnings, nil
}

type methodOperation struct {
	method    string
	operation *v3.Operation
}

func pathOperations(item *v3.PathItem) []methodOperation {
	if item == nil {
		return nil
	}
	candidates := []methodOperation{
		{"GET", item.Get},
		{"POST", item.Post},
		{"PUT", item.Put},
		{"PATCH", item.Patch},
		{"DELETE", item.Delete},
		{"HEAD", item.Head},
		{"OPTIONS", item.Options},
	}
	ops := candidates[:0]
	for _, c := range candidates {
		if c.operation != nil {
			ops = append(ops, c)
		}
	}
	return ops
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
