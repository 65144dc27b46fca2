// Package mcpserver publishes the agent tools to external MCP clients over
// the streamable HTTP transport. Calls are dispatched through the same
// gateway the retrieval agent uses.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/smartfetcher/smartfetcher/internal/mcpgw"
)

// New builds an MCP server exposing every tool registered in gw.
func New(gw *mcpgw.Gateway, name, version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)
	for _, t := range gw.Tools() {
		srv.AddTool(&mcp.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Schema,
		}, dispatch(gw, t.Name))
	}
	log.Info().Int("tools", len(gw.Tools())).Msg("MCP server ready")
	return srv
}

func dispatch(gw *mcpgw.Gateway, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := map[string]interface{}{}
		if req.Params != nil && len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return nil, fmt.Errorf("decode arguments for %s: %w", name, err)
			}
		}
		res := gw.Call(ctx, name, args)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: res.Text}},
			IsError: !res.OK,
		}, nil
	}
}

// Handler serves srv over streamable HTTP without per-client session state.
func Handler(srv *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return srv
	}, &mcp.StreamableHTTPOptions{Stateless: true, JSONResponse: true})
}
