package ai

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greetInput struct {
	Name string `json:"name" description:"Who to greet"`
}

func greetTool() *Tool {
	return NewTool("greet", "Greets someone", func(ctx context.Context, in greetInput) (string, error) {
		if in.Name == "" {
			return "", errors.New("name is required")
		}
		return "hello " + in.Name, nil
	})
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestMCPHandler(t *testing.T) {
	handler := MCPHandler(greetTool())

	res, err := handler(context.Background(), callRequest("greet", map[string]any{"name": "ana"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "hello ana", resultText(t, res))

	res, err = handler(context.Background(), callRequest("greet", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "name is required", resultText(t, res))
}

func TestMCPHandler_ErrorResult(t *testing.T) {
	tool := &Tool{
		Name: "flaky",
		Execute: func(ctx context.Context, args map[string]interface{}) (*ToolResult, error) {
			return &ToolResult{Content: []ToolContent{{Type: "text", Content: "not today"}}, Error: true}, nil
		},
	}

	res, err := MCPHandler(tool)(context.Background(), callRequest("flaky", nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "not today", resultText(t, res))
}

func TestNewMCPServer_ListsTools(t *testing.T) {
	s, err := NewMCPServer("insights", "test", greetTool())
	require.NoError(t, err)

	msg := json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	resp := s.HandleMessage(context.Background(), msg)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"greet"`)
	assert.Contains(t, string(raw), "Who to greet")
}
