package insights

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nexxia-ai/insights/ai"
	"github.com/nexxia-ai/insights/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentRun(t *testing.T) {
	var received []ai.Message
	agent := &Agent{
		Name:         "test-agent",
		Description:  "You are a CRM assistant.",
		Instructions: "Answer briefly.",
		Model: ai.NewDummyModel(func(ctx context.Context, messages []ai.Message, tools []ai.Tool) (ai.AIMessage, error) {
			received = messages
			return ai.AIMessage{Role: ai.AssistantRole, Content: "Hello! I received your message."}, nil
		}),
	}

	result, err := agent.Run(context.Background(), "Test message")
	require.NoError(t, err)
	assert.Equal(t, "Hello! I received your message.", result)

	require.Len(t, received, 2)
	sys := received[0].(ai.SystemMessage)
	assert.True(t, strings.HasPrefix(sys.Content, "You are a CRM assistant."))
	assert.Contains(t, sys.Content, "<instructions>\nAnswer briefly.\n</instructions>")
	assert.Equal(t, ai.NewUserMessage("Test message"), received[1])
	assert.NotEmpty(t, agent.ID)
}

func TestAgentRunWithError(t *testing.T) {
	agent := &Agent{
		Name: "test-agent-error",
		Model: ai.NewDummyModel(func(ctx context.Context, messages []ai.Message, tools []ai.Tool) (ai.AIMessage, error) {
			return ai.AIMessage{}, fmt.Errorf("simulated error")
		}),
	}

	result, err := agent.Run(context.Background(), "Test message")
	assert.Error(t, err)
	assert.Equal(t, "", result)
	assert.Contains(t, err.Error(), "simulated error")
	assert.Empty(t, agent.History(), "failed turns must not be recorded")

	_, err = (&Agent{}).Run(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestAgentToolCalling(t *testing.T) {
	var toolArgs map[string]interface{}
	lookup := ai.Tool{
		Name:        "lookup",
		Description: "Looks up a customer",
		Execute: func(ctx context.Context, args map[string]interface{}) (*ai.ToolResult, error) {
			toolArgs = args
			return ai.TextResult("2 cases"), nil
		},
	}

	var sysPrompt string
	model := ai.NewDummyModel(func(ctx context.Context, messages []ai.Message, tools []ai.Tool) (ai.AIMessage, error) {
		sysPrompt = messages[0].(ai.SystemMessage).Content
		last := messages[len(messages)-1]
		if tm, ok := last.(ai.ToolMessage); ok {
			return ai.AIMessage{Role: ai.AssistantRole, Content: "Acme has " + tm.Content}, nil
		}
		return ai.AIMessage{Role: ai.AssistantRole, ToolCalls: []ai.ToolCall{
			{ID: "c1", Type: "function", Name: "lookup", Args: `{"customer":"Acme"}`},
		}}, nil
	})

	agent := &Agent{Name: "crm", Model: model, Tools: []ai.Tool{lookup}}
	transcript, err := agent.RunDetailed(context.Background(), "How many cases does Acme have?")
	require.NoError(t, err)

	assert.Equal(t, "Acme", toolArgs["customer"])
	assert.Len(t, transcript, 5)
	assert.Equal(t, "Acme has 2 cases", transcript[4].(ai.AIMessage).Content)
	assert.Contains(t, sysPrompt, "<tool>\nlookup\nLooks up a customer\n</tool>")
}

func TestAgentHistory(t *testing.T) {
	turns := 0
	var lastLen int
	agent := &Agent{Model: ai.NewDummyModel(func(ctx context.Context, messages []ai.Message, tools []ai.Tool) (ai.AIMessage, error) {
		turns++
		lastLen = len(messages)
		return ai.AIMessage{Role: ai.AssistantRole, Content: fmt.Sprintf("reply %d", turns)}, nil
	})}

	_, err := agent.Run(context.Background(), "first")
	require.NoError(t, err)
	_, err = agent.Run(context.Background(), "second")
	require.NoError(t, err)

	assert.Equal(t, 4, lastLen)
	history := agent.History()
	require.Len(t, history, 4)
	assert.Equal(t, ai.NewUserMessage("first"), history[0])
	assert.Equal(t, "reply 1", history[1].(ai.AIMessage).Content)

	agent.Reset()
	assert.Empty(t, agent.History())
	_, err = agent.Run(context.Background(), "third")
	require.NoError(t, err)
	assert.Equal(t, 2, lastLen)
}

func TestAgentChat(t *testing.T) {
	agent := &Agent{Name: "CRM Case Agent", Model: ai.NewDummyModel(func(ctx context.Context, messages []ai.Message, tools []ai.Tool) (ai.AIMessage, error) {
		text := messages[len(messages)-1].(ai.UserMessage).Content
		if text == "fail" {
			return ai.AIMessage{}, fmt.Errorf("backend unavailable")
		}
		return ai.AIMessage{Role: ai.AssistantRole, Content: "echo " + text}, nil
	})}

	in := strings.NewReader("hello\n\nfail\nQUIT\nignored\n")
	var out bytes.Buffer
	require.NoError(t, agent.Chat(context.Background(), in, &out))

	got := out.String()
	assert.Contains(t, got, "CRM Case Agent ready.")
	assert.Contains(t, got, "Agent: echo hello\n")
	assert.Contains(t, got, "Error: backend unavailable\n")
	assert.Contains(t, got, "Goodbye!")
	assert.NotContains(t, got, "ignored")
	assert.Len(t, agent.History(), 2)
}

func TestAgentChatEOF(t *testing.T) {
	agent := &Agent{Model: ai.NewScriptedModel(ai.AIMessage{Role: ai.AssistantRole, Content: "ok"})}
	var out bytes.Buffer
	require.NoError(t, agent.Chat(context.Background(), strings.NewReader("hi"), &out))
	assert.Contains(t, out.String(), "Agent: ok")
	assert.NotContains(t, out.String(), "Goodbye!")
}

func TestAgentTrace(t *testing.T) {
	tracer, err := trace.New(trace.Config{Directory: t.TempDir()})
	require.NoError(t, err)

	agent := &Agent{
		Name:   "traced",
		Tracer: tracer,
		Model: ai.NewDummyModel(func(ctx context.Context, messages []ai.Message, tools []ai.Tool) (ai.AIMessage, error) {
			return ai.AIMessage{Role: ai.AssistantRole, Content: "traced reply"}, nil
		}),
	}

	_, err = agent.Run(context.Background(), "hello tracer")
	require.NoError(t, err)

	files, err := filepath.Glob(filepath.Join(tracer.Directory(), "trace-*.txt"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	raw, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Start traced")
	assert.Contains(t, string(raw), "   hello tracer")
	assert.Contains(t, string(raw), "   traced reply")
}
