// Package mcpgw implements the in-process MCP (Model Context Protocol)
// gateway the retrieval agent dispatches tool calls through.
//
// The gateway supports:
//   - Tool registration and discovery (ordered, unique names)
//   - JSON-RPC 2.0 request handling (initialize, tools/list, tools/call, ping)
//   - Panic isolation: a failing handler becomes an isError tool result
package mcpgw

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/smartfetcher/smartfetcher/internal/tools"
	"github.com/smartfetcher/smartfetcher/pkg/models"
)

// ProtocolVersion is reported in the initialize handshake.
const ProtocolVersion = "2024-11-05"

// JSON-RPC error codes used by the gateway.
const (
	CodeInvalidParams  = -32602
	CodeMethodNotFound = -32601
	CodeToolNotFound   = -32001
)

// Gateway is the MCP gateway that manages tool registration and invocation.
type Gateway struct {
	name    string
	version string

	mu     sync.RWMutex
	tools  []tools.Tool
	byName map[string]int
}

// NewGateway creates an empty gateway.
func NewGateway(name, version string) *Gateway {
	return &Gateway{
		name:    name,
		version: version,
		byName:  make(map[string]int),
	}
}

// Register adds a tool. Names must be unique.
func (gw *Gateway) Register(t tools.Tool) error {
	if t.Name == "" || t.Handler == nil {
		return fmt.Errorf("tool registration requires a name and a handler")
	}
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if _, dup := gw.byName[t.Name]; dup {
		return fmt.Errorf("tool %q already registered", t.Name)
	}
	gw.byName[t.Name] = len(gw.tools)
	gw.tools = append(gw.tools, t)
	log.Debug().Str("tool", t.Name).Msg("MCP tool registered")
	return nil
}

// Tools returns the registered tools in registration order.
func (gw *Gateway) Tools() []tools.Tool {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	return append([]tools.Tool(nil), gw.tools...)
}

func (gw *Gateway) lookup(name string) (tools.Tool, bool) {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	i, ok := gw.byName[name]
	if !ok {
		return tools.Tool{}, false
	}
	return gw.tools[i], true
}

// Call invokes a tool directly. Unknown tools and handler panics produce a
// failed Result.
func (gw *Gateway) Call(ctx context.Context, name string, args map[string]interface{}) (res tools.Result) {
	t, ok := gw.lookup(name)
	if !ok {
		err := fmt.Errorf("tool %q is not registered", name)
		return tools.Failure(err, "Error: "+err.Error())
	}
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("tool %q panicked: %v", name, r)
			log.Error().Err(err).Msg("MCP tool handler panicked")
			res = tools.Failure(err, "Tool execution error: "+err.Error())
		}
	}()
	return t.Handler(ctx, args)
}

// HandleJSONRPC processes an MCP JSON-RPC 2.0 request.
func (gw *Gateway) HandleJSONRPC(ctx context.Context, req *models.MCPRequest) *models.MCPResponse {
	switch req.Method {

	// ── Discovery ────────────────────────────────────
	case "initialize":
		return gw.handleInitialize(req)

	case "tools/list":
		return gw.handleToolsList(req)

	// ── Tool Invocation ──────────────────────────────
	case "tools/call":
		return gw.handleToolsCall(ctx, req)

	// ── Notifications (no response) ──────────────────
	case "notifications/initialized":
		log.Debug().Msg("MCP client initialized")
		return nil

	case "ping":
		return &models.MCPResponse{
			Jsonrpc: "2.0",
			Result:  map[string]string{"status": "pong"},
			ID:      req.ID,
		}

	default:
		return errorResponse(req, CodeMethodNotFound, "Method not found",
			fmt.Sprintf("Method '%s' is not supported by the MCP gateway", req.Method))
	}
}

func (gw *Gateway) handleInitialize(req *models.MCPRequest) *models.MCPResponse {
	return &models.MCPResponse{
		Jsonrpc: "2.0",
		Result: map[string]interface{}{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]bool{"listChanged": false},
			},
			"serverInfo": map[string]string{
				"name":    gw.name,
				"version": gw.version,
			},
		},
		ID: req.ID,
	}
}

func (gw *Gateway) handleToolsList(req *models.MCPRequest) *models.MCPResponse {
	registered := gw.Tools()
	infos := make([]models.MCPToolInfo, 0, len(registered))
	for _, t := range registered {
		infos = append(infos, models.MCPToolInfo{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Schema,
		})
	}
	return &models.MCPResponse{
		Jsonrpc: "2.0",
		Result:  map[string]interface{}{"tools": infos},
		ID:      req.ID,
	}
}

func (gw *Gateway) handleToolsCall(ctx context.Context, req *models.MCPRequest) *models.MCPResponse {
	var params models.MCPToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req, CodeInvalidParams, "Invalid params", err.Error())
	}
	if _, ok := gw.lookup(params.Name); !ok {
		return errorResponse(req, CodeToolNotFound, "Tool not found",
			fmt.Sprintf("Tool '%s' is not registered", params.Name))
	}

	res := gw.Call(ctx, params.Name, params.Arguments)
	return &models.MCPResponse{
		Jsonrpc: "2.0",
		Result: models.MCPToolResult{
			Content: []models.MCPContent{{Type: "text", Text: res.Text}},
			IsError: !res.OK,
		},
		ID: req.ID,
	}
}

func errorResponse(req *models.MCPRequest, code int, msg string, data interface{}) *models.MCPResponse {
	return &models.MCPResponse{
		Jsonrpc: "2.0",
		Error:   &models.MCPError{Code: code, Message: msg, Data: data},
		ID:      req.ID,
	}
}
