package ai

import (
	"context"
	"fmt"
	"strings"
)

// Tool mimics a "standard" mcp tool definition so you can easily use it with any mcp client
type Tool struct {
	Name        string                                                                    `json:"name"`
	Description string                                                                    `json:"description"`
	InputSchema map[string]interface{}                                                    `json:"inputSchema,omitempty"`
	Execute     func(ctx context.Context, args map[string]interface{}) (*ToolResult, error) `json:"-"`
}

// Call executes the tool with the given arguments
func (t *Tool) Call(ctx context.Context, args map[string]interface{}) (*ToolResult, error) {
	if t.Execute == nil {
		return nil, fmt.Errorf("tool %s has no execute function", t.Name)
	}

	return t.Execute(ctx, args)
}

type ToolContent struct {
	Type    string // "text", "image", ...
	Content any
}

type ToolResult struct {
	Content []ToolContent
	Error   bool
}

func TextResult(text string) *ToolResult {
	return &ToolResult{Content: []ToolContent{{Type: "text", Content: text}}}
}

// Text flattens the result into the string sent back to the model.
func (r *ToolResult) Text() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range r.Content {
		switch c.Type {
		case "text":
			if s, ok := c.Content.(string); ok {
				b.WriteString(s)
			}
		case "image":
			b.WriteString("[image content]")
		default:
			fmt.Fprintf(&b, "[%s content]", c.Type)
		}
	}
	return b.String()
}
