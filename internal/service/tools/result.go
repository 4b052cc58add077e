package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-mcp/internal/domain/models"
	"github.com/mamadbah2/dairy-mcp/pkg/clients/nutrition"
)

type errorPayload struct {
	Error  string `json:"error"`
	Status int    `json:"status,omitempty"`
}

// run validates in, invokes call and turns the outcome into a tool result. Errors
// never escape as protocol errors; the agent receives them as an error payload.
func (ts *toolServer) run(ctx context.Context, tool string, in any, call func(context.Context) (any, error)) (*mcp.CallToolResult, any, error) {
	start := ts.now()

	var (
		out any
		err error
	)
	if err = validateInput(in); err == nil {
		out, err = call(ctx)
	}
	elapsed := ts.now().Sub(start)

	inv := models.ToolInvocation{
		Tool:       tool,
		AuthMode:   ts.backend.Mode().String(),
		Status:     models.InvocationOK,
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  start.UTC(),
	}

	var result *mcp.CallToolResult
	if err != nil {
		inv.Status = models.InvocationError
		inv.Error = err.Error()
		inv.HTTPStatus = nutrition.StatusCode(err)
		ts.logger.Warn("tool call failed", zap.String("tool", tool), zap.Int("status", inv.HTTPStatus), zap.Error(err))
		result = errorResult(err.Error(), inv.HTTPStatus)
	} else {
		ts.logger.Info("tool call completed", zap.String("tool", tool), zap.Duration("duration", elapsed))
		result, err = jsonResult(out)
		if err != nil {
			inv.Status = models.InvocationError
			inv.Error = err.Error()
			result = errorResult(err.Error(), 0)
		}
	}

	ts.deps.Metrics.ObserveTool(tool, inv.Status, elapsed)
	if ts.deps.Recorder != nil {
		ts.deps.Recorder.Record(ctx, inv)
	}
	return result, nil, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	var text []byte
	switch data := v.(type) {
	case json.RawMessage:
		text = data
	default:
		encoded, err := encodeJSON(v)
		if err != nil {
			return nil, fmt.Errorf("encode tool result: %w", err)
		}
		text = encoded
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(text)}}}, nil
}

func errorResult(message string, status int) *mcp.CallToolResult {
	data, _ := encodeJSON(errorPayload{Error: message, Status: status})
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}

// encodeJSON marshals v without HTML escaping.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
