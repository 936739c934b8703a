package chart

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nexxia-ai/insights"
	"github.com/nexxia-ai/insights/ai"
	"github.com/nexxia-ai/insights/chart/codeblock"
	"github.com/nexxia-ai/insights/chart/frame"
)

const SystemPrompt = `You are an expert data visualization assistant specializing in Plotly.

CAPABILITIES:
- Analyze data to determine the best chart type
- Create beautiful, interactive Plotly visualizations
- Handle errors and repair code when needed

WORKFLOW:
1. First, use get_dataframe_info to understand the data structure
2. Choose an appropriate chart type based on the data
3. Use create_plotly_chart to generate the visualization
4. If there's an error, use repair_plotly_code to fix it

CHART GUIDELINES:
- Always give charts a descriptive title using HTML bold tags: title="<b>My Title</b>"
- Format large numbers with appropriate suffixes (K, M, B)
- Add percentage signs and proper decimal places for percentages
- Format dates as Day/Month/Year when displayed
- Include hover information with useful details
- Use appropriate color schemes for the data type
- For line charts, include markers at data points
- For categorical comparisons, consider bar charts
- For trends over time, use line charts
- For distributions, use histograms or box plots
- For correlations, use scatter plots

CODE FORMAT:
Your plotly_code should always create a variable named 'fig'. Example:
` + "```python" + `
fig = px.bar(df, x='category', y='value', title='<b>My Chart</b>')
fig.update_layout(template='plotly_white')
` + "```" + `

When an error occurs, analyze the error message and fix the code accordingly.`

const userPromptTemplate = `Please create a visualization for the following data:

DATA (JSON format):
%s

INSTRUCTION:
%s

First analyze the data structure, then create an appropriate chart.`

type ChartResult struct {
	Success  bool         `json:"success"`
	Response string       `json:"response,omitempty"`
	Messages []ai.Message `json:"-"`
	// Code is the first Python block quoted in the response, if any
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// ChartAgent keeps a visualization conversation with its tools.
type ChartAgent struct {
	agent *insights.Agent
}

func NewAgent(model *ai.Model, executor *Executor) *ChartAgent {
	return &ChartAgent{agent: &insights.Agent{
		Name:        "Plotly Visualization Agent",
		Model:       model,
		Description: SystemPrompt,
		Tools:       NewTools(executor),
	}}
}

// Agent exposes the underlying conversational agent, e.g. for an interactive session.
func (c *ChartAgent) Agent() *insights.Agent { return c.agent }

// CreateChart asks for a chart of data. data may be a *frame.Frame, a JSON string or
// []byte, or any value that marshals to JSON.
func (c *ChartAgent) CreateChart(ctx context.Context, data any, instruction string, resetHistory bool) ChartResult {
	if resetHistory {
		c.agent.Reset()
	}

	dataJSON, err := encodeData(data)
	if err != nil {
		return ChartResult{Error: err.Error()}
	}

	transcript, err := c.agent.RunDetailed(ctx, fmt.Sprintf(userPromptTemplate, dataJSON, instruction))
	if err != nil {
		return ChartResult{Error: err.Error()}
	}

	response := transcript[len(transcript)-1].(ai.AIMessage).Content
	code, _ := codeblock.ExtractPython(response)
	return ChartResult{Success: true, Response: response, Messages: transcript, Code: code}
}

// Chat sends a free-form message. Failures come back as "Error: ..." text.
func (c *ChartAgent) Chat(ctx context.Context, message string) string {
	reply, err := c.agent.Run(ctx, message)
	if err != nil {
		return "Error: " + err.Error()
	}
	return reply
}

func (c *ChartAgent) Reset() { c.agent.Reset() }

// QuickChart creates a chart with a fresh agent.
func QuickChart(ctx context.Context, model *ai.Model, executor *Executor, data any, instruction string) ChartResult {
	return NewAgent(model, executor).CreateChart(ctx, data, instruction, false)
}

func encodeData(data any) (string, error) {
	switch d := data.(type) {
	case *frame.Frame:
		out, err := d.RecordsJSON()
		return string(out), err
	case string:
		return d, nil
	case []byte:
		return string(d), nil
	case json.RawMessage:
		return string(d), nil
	}
	out, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode data: %w", err)
	}
	return string(out), nil
}
