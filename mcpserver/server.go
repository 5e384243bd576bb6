// Package mcpserver exposes the tool dispatcher as a Model Context Protocol
// server, so external agents can drive the rules engine and the corpus.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/nathoo/keepercore/types"
)

// Name is the implementation name reported to clients.
const Name = "keepercore"

// Dispatcher executes tool calls.
type Dispatcher interface {
	Catalog() []types.ToolSpec
	Invoke(ctx context.Context, call types.ToolCall) types.Invocation
}

// New registers every catalog tool on a fresh MCP server.
func New(d Dispatcher, version string, log *zap.Logger) (*mcp.Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	server := mcp.NewServer(&mcp.Implementation{Name: Name, Version: version}, nil)
	for _, spec := range d.Catalog() {
		schema, err := inputSchema(spec.Parameters)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", spec.Name, err)
		}
		server.AddTool(&mcp.Tool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: schema,
		}, handler(d, log))
	}
	return server, nil
}

// inputSchema converts a parameter schema to the generic JSON form the SDK
// accepts. A missing schema becomes an empty object.
func inputSchema(s *types.Schema) (map[string]any, error) {
	if s == nil {
		s = &types.Schema{Type: "object"}
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func handler(d Dispatcher, log *zap.Logger) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decodeArgs(req.Params.Arguments)
		if err != nil {
			log.Warn("mcp arguments rejected", zap.String("tool", req.Params.Name), zap.Error(err))
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
				IsError: true,
			}, nil
		}
		inv := d.Invoke(ctx, types.ToolCall{ID: uuid.NewString(), Name: req.Params.Name, Args: args})
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: inv.Output}},
			IsError: inv.Failed,
		}, nil
	}
}

// decodeArgs accepts an absent or null argument object as empty.
func decodeArgs(raw json.RawMessage) (map[string]any, error) {
	args := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	return args, nil
}

// Serve runs the server on transport until ctx ends. Cancellation is a clean
// stop.
func Serve(ctx context.Context, server *mcp.Server, transport mcp.Transport) error {
	err := server.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// ServeStdio runs the server on stdin and stdout.
func ServeStdio(ctx context.Context, server *mcp.Server) error {
	return Serve(ctx, server, &mcp.StdioTransport{})
}
