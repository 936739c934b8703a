package trace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nexxia-ai/insights/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_WritesTranscript(t *testing.T) {
	tr, err := New(Config{Directory: t.TempDir()})
	require.NoError(t, err)

	path, err := tr.Record(Turn{
		Agent: "CRM Case Agent",
		Model: "gpt-4o",
		Messages: []ai.Message{
			ai.NewSystemMessage("You are a CRM assistant."),
			ai.NewUserMessage("cases for Ana?"),
			ai.AIMessage{Role: ai.AssistantRole, ToolCalls: []ai.ToolCall{
				{ID: "c1", Name: "retrieve_customer_cases", Args: `{"customer_name":"Ana"}`},
			}},
			ai.ToolMessage{Role: ai.ToolRole, Content: "No cases found for customer: Ana", ToolCallID: "c1"},
			ai.AIMessage{Role: ai.AssistantRole, Content: "Ana has no cases.", Response: ai.Response{
				Usage: ai.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
			}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, tr.Directory(), filepath.Dir(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(raw)

	assert.Contains(t, content, "Start CRM Case Agent (gpt-4o)")
	assert.Contains(t, content, "   You are a CRM assistant.")
	assert.Contains(t, content, "   tool_name: retrieve_customer_cases")
	assert.Contains(t, content, " tool_call_id: c1")
	assert.Contains(t, content, "   No cases found for customer: Ana")
	assert.Contains(t, content, " usage: prompt=10 completion=5 total=15")
	assert.Contains(t, content, "==== End CRM Case Agent")
	assert.NotContains(t, content, "Error:")
}

func TestRecord_Error(t *testing.T) {
	tr, err := New(Config{Directory: t.TempDir()})
	require.NoError(t, err)

	path, err := tr.Record(Turn{
		Agent:    "chart",
		Messages: []ai.Message{ai.NewUserMessage("plot it")},
		Err:      errors.New("model unavailable"),
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Error: model unavailable")
}

func TestRecord_PrunesOldFiles(t *testing.T) {
	dir := t.TempDir()

	stale := filepath.Join(dir, "trace-20200101000000.001.txt")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))
	old := time.Now().Add(-30 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	unrelated := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(unrelated, []byte("keep"), 0644))

	tr, err := New(Config{Directory: dir, MaxTraceFiles: 2})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := tr.Record(Turn{Agent: "a"})
		require.NoError(t, err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "trace-*.txt"))
	require.NoError(t, err)
	assert.Len(t, matches, 2)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, unrelated)
}
