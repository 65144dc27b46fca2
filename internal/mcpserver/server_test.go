package mcpserver_test

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartfetcher/smartfetcher/internal/linkverify"
	"github.com/smartfetcher/smartfetcher/internal/mcpgw"
	"github.com/smartfetcher/smartfetcher/internal/mcpserver"
	"github.com/smartfetcher/smartfetcher/internal/sessionlog"
	"github.com/smartfetcher/smartfetcher/internal/store"
	"github.com/smartfetcher/smartfetcher/internal/tools"
	"github.com/smartfetcher/smartfetcher/pkg/models"
)

const knownID = "550e8400-e29b-41d4-a716-446655440001"

func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	idx, err := store.NewMemoryIndex([]models.Resource{
		{ID: knownID, Name: "Trail Guide", Description: "Paths.", Tag: "hiking"},
	})
	require.NoError(t, err)

	gw := mcpgw.NewGateway("smartfetcher", "test")
	require.NoError(t, gw.Register(tools.ValidateResource(linkverify.NewVerifier(idx), sessionlog.Nop())))

	srv := mcpserver.New(gw, "smartfetcher", "test")
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ctx := context.Background()

	serverSession, err := srv.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return tc.Text
}

func TestServer_ListsGatewayTools(t *testing.T) {
	session := connect(t)

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Tools, 1)
	assert.Equal(t, tools.ValidateResourceName, res.Tools[0].Name)
}

func TestServer_CallDelegatesToGateway(t *testing.T) {
	session := connect(t)
	ctx := context.Background()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      tools.ValidateResourceName,
		Arguments: map[string]any{"url": models.ResourceLink(knownID)},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "true", text(t, res))

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      tools.ValidateResourceName,
		Arguments: map[string]any{"url": "/resources/not-a-uuid"},
	})
	require.NoError(t, err)
	assert.Equal(t, "false", text(t, res))
}

func TestServer_BadArgumentsAreToolErrors(t *testing.T) {
	session := connect(t)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      tools.ValidateResourceName,
		Arguments: map[string]any{"url": 42},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
