package mcpserver

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rushi-auxo/fivetran-mcp/internal/result"
)

// toolResult renders a Result: the value as JSON text, or the error variant
// as an IsError result.
func toolResult[T any](r result.Result[T]) (*mcp.CallToolResult, error) {
	if !r.IsOK() {
		return errorResult(r.Err()), nil
	}
	return resultJSON(r.Value())
}

// textResult is toolResult for plain-text values.
func textResult(r result.Result[string]) (*mcp.CallToolResult, error) {
	if !r.IsOK() {
		return errorResult(r.Err()), nil
	}
	return mcp.NewToolResultText(r.Value()), nil
}

// resultJSON marshals v to JSON and returns it as a tool result.
func resultJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult encodes e as {"error": ..., "kind": ...} with IsError set.
func errorResult(e *result.Error) *mcp.CallToolResult {
	data, err := json.Marshal(e)
	if err != nil {
		return mcp.NewToolResultError(e.Message)
	}
	return mcp.NewToolResultError(string(data))
}

// invalidArgs reports an argument binding failure.
func invalidArgs(err error) *mcp.CallToolResult {
	return errorResult(result.Invalid("invalid arguments: %v", err))
}

// requireArgs reports the names whose values are empty, or nil when all are
// set. Pairs are name, value.
func requireArgs(pairs ...string) *mcp.CallToolResult {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return errorResult(result.Invalid("%s required", strings.Join(missing, ", ")))
}

// resourceJSON renders a Result as resource contents. Failures are returned
// as the same {"error": ...} document tools use rather than a protocol error.
func resourceJSON[T any](uri string, r result.Result[T]) ([]mcp.ResourceContents, error) {
	var v any = r.Err()
	if r.IsOK() {
		v = r.Value()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal resource %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// templateArg reads a URI template variable, falling back to the part of
// the URI after scheme://.
func templateArg(req mcp.ReadResourceRequest, name, scheme string) string {
	switch v := req.Params.Arguments[name].(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}
	return strings.TrimPrefix(req.Params.URI, scheme+"://")
}
