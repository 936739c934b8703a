package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nexxia-ai/insights/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionJSON = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": "<think>need data</think>Looking it up",
      "tool_calls": [{
        "id": "call_1",
        "type": "function",
        "function": {"name": "retrieve_customer_cases", "arguments": "{\"customer_name\":\"Acme\"}"}
      }]
    }
  }],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func TestChatCompletion(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionJSON)
	}))
	defer srv.Close()

	model := NewModel("gpt-4o", "test-key", srv.URL+"/v1/").WithTemperature(0.2)
	tool := ai.NewTool("retrieve_customer_cases", "Look up cases", func(ctx context.Context, in struct {
		CustomerName string `json:"customer_name"`
	}) (string, error) {
		return "", nil
	})

	msg, err := model.Call(context.Background(), []ai.Message{
		ai.NewSystemMessage("You are a CRM assistant."),
		ai.NewUserMessage("cases for Acme"),
	}, []ai.Tool{*tool})
	require.NoError(t, err)

	assert.Equal(t, "Looking it up", msg.Content)
	assert.Equal(t, "need data", msg.Think)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "retrieve_customer_cases", msg.ToolCalls[0].Name)
	assert.JSONEq(t, `{"customer_name":"Acme"}`, msg.ToolCalls[0].Args)
	assert.Equal(t, 15, msg.Response.Usage.TotalTokens)

	assert.Equal(t, "gpt-4o", body["model"])
	assert.InDelta(t, 0.2, body["temperature"], 1e-9)
	assert.Len(t, body["messages"], 2)
	assert.Len(t, body["tools"], 1)
}

func TestChatCompletion_ErrorClassification(t *testing.T) {
	status := http.StatusServiceUnavailable
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"error":{"message":"nope","type":"server_error"}}`)
	}))
	defer srv.Close()

	model := NewModel("gpt-4o", "k", srv.URL+"/v1/").WithRetry(1, time.Millisecond)
	_, err := model.Call(context.Background(), []ai.Message{ai.NewUserMessage("hi")}, nil)
	assert.ErrorIs(t, err, ai.ErrTemporary)
	assert.Equal(t, 2, calls)

	status = http.StatusBadRequest
	calls = 0
	_, err = model.Call(context.Background(), []ai.Message{ai.NewUserMessage("hi")}, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ai.ErrTemporary)
	assert.Equal(t, 1, calls)
}

func TestRegisteredModels(t *testing.T) {
	for _, id := range []string{"openai/gpt-4o", "openai/gpt-4.1", "openai/gpt-4.1-mini", "openai/gpt-4o-mini"} {
		m, err := ai.New(id, "key")
		require.NoError(t, err, id)
		assert.Equal(t, OpenAIBaseURL, m.BaseURL)
	}
}
