package chart

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nexxia-ai/insights/ai"
	"github.com/nexxia-ai/insights/chart/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chartModel asks for dataframe info, then a chart, then answers with the code it used.
func chartModel(t *testing.T) *ai.Model {
	return ai.NewDummyModel(func(ctx context.Context, messages []ai.Message, tools []ai.Tool) (ai.AIMessage, error) {
		require.Len(t, tools, 3)
		sys := messages[0].(ai.SystemMessage).Content
		require.True(t, strings.HasPrefix(sys, "You are an expert data visualization assistant"))

		var toolMsgs int
		for _, m := range messages {
			if _, ok := m.(ai.ToolMessage); ok {
				toolMsgs++
			}
		}
		switch toolMsgs {
		case 0:
			return ai.AIMessage{Role: ai.AssistantRole, ToolCalls: []ai.ToolCall{{
				ID: "1", Name: DataframeInfoToolName, Args: `{"data_json":"[{\"x\":1,\"y\":2}]"}`,
			}}}, nil
		case 1:
			return ai.AIMessage{Role: ai.AssistantRole, ToolCalls: []ai.ToolCall{{
				ID: "2", Name: CreateChartToolName, Args: `{"data_json":"[{\"x\":1,\"y\":2}]","plotly_code":"fig = px.scatter(df, x='x', y='y')"}`,
			}}}, nil
		default:
			last := messages[len(messages)-1].(ai.ToolMessage)
			require.Contains(t, last.Content, `"success":true`)
			return ai.AIMessage{Role: ai.AssistantRole, Content: "Here is your chart:\n```python\nfig = px.scatter(df, x='x', y='y')\n```"}, nil
		}
	})
}

func TestCreateChart(t *testing.T) {
	e := &Executor{Runner: stubRunner(`{"status":"ok","figure_json":"{}"}`, nil)}
	agent := NewAgent(chartModel(t), e)

	f, err := frame.FromJSON([]byte(`[{"x":1,"y":2}]`))
	require.NoError(t, err)

	res := agent.CreateChart(context.Background(), f, "scatter x against y", false)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "fig = px.scatter(df, x='x', y='y')", res.Code)
	assert.Len(t, res.Messages, 7)

	user := res.Messages[1].(ai.UserMessage).Content
	assert.Contains(t, user, "DATA (JSON format):\n[{\"x\":1,\"y\":2}]")
	assert.Contains(t, user, "INSTRUCTION:\nscatter x against y")
	assert.Len(t, agent.Agent().History(), 2)

	agent.CreateChart(context.Background(), []map[string]int{{"x": 1, "y": 2}}, "again", true)
	assert.Len(t, agent.Agent().History(), 2)
}

func TestCreateChart_Errors(t *testing.T) {
	failing := ai.NewDummyModel(func(ctx context.Context, messages []ai.Message, tools []ai.Tool) (ai.AIMessage, error) {
		return ai.AIMessage{}, errors.New("quota exceeded")
	})
	agent := NewAgent(failing, &Executor{})

	res := agent.CreateChart(context.Background(), `[{"a":1}]`, "bar", false)
	assert.False(t, res.Success)
	assert.Equal(t, "quota exceeded", res.Error)
	assert.Empty(t, agent.Agent().History())

	res = agent.CreateChart(context.Background(), make(chan int), "bar", false)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "failed to encode data")

	assert.Equal(t, "Error: quota exceeded", agent.Chat(context.Background(), "hello"))
}

func TestChatAndReset(t *testing.T) {
	agent := NewAgent(ai.NewScriptedModel(ai.AIMessage{Role: ai.AssistantRole, Content: "Use a bar chart."}), &Executor{})
	assert.Equal(t, "Use a bar chart.", agent.Chat(context.Background(), "what chart fits sales by region?"))
	assert.Len(t, agent.Agent().History(), 2)
	agent.Reset()
	assert.Empty(t, agent.Agent().History())
}

func TestQuickChart(t *testing.T) {
	e := &Executor{Runner: stubRunner(`{"status":"ok","figure_json":"{}"}`, nil)}
	res := QuickChart(context.Background(), chartModel(t), e, map[string]any{"x": []int{1}, "y": []int{2}}, "scatter")
	assert.True(t, res.Success, res.Error)
}
