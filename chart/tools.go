package chart

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nexxia-ai/insights/ai"
	"github.com/nexxia-ai/insights/chart/frame"
)

const (
	CreateChartToolName   = "create_plotly_chart"
	RepairCodeToolName    = "repair_plotly_code"
	DataframeInfoToolName = "get_dataframe_info"
)

const createChartDescription = `Create a Plotly chart from data and Python code.

Use this tool to generate data visualizations. The code should create
a figure object named 'fig' using plotly.express (px) or plotly.graph_objects (go).

Returns JSON with figure_json for rendering, or an error message if it failed.`

const repairCodeDescription = `Attempt to repair and execute Plotly code that previously failed.

Use this tool when create_plotly_chart fails and you need to fix the code.
The previous error message is available to the code as previous_error.`

const dataframeInfoDescription = `Get information about a DataFrame to help with chart creation.

Use this tool to understand the structure and content of the data
before creating a chart. Returns columns, dtypes, shape, sample data
and a numeric summary.`

type createChartInput struct {
	DataJSON   string `json:"data_json" description:"JSON string representation of the DataFrame data. Example: '[{\"A\": 1, \"B\": 2}, {\"A\": 3, \"B\": 4}]'"`
	PlotlyCode string `json:"plotly_code" description:"Python code that creates a Plotly figure named 'fig'. Example: 'fig = px.line(df, x=\"A\", y=\"B\", title=\"My Chart\")'"`
}

type repairCodeInput struct {
	DataJSON     string `json:"data_json" description:"JSON string representation of the DataFrame data."`
	PlotlyCode   string `json:"plotly_code" description:"The corrected Python code that creates a Plotly figure named 'fig'."`
	ErrorMessage string `json:"error_message" description:"The error message from the previous failed attempt."`
}

type dataframeInfoInput struct {
	DataJSON string `json:"data_json" description:"JSON string representation of the DataFrame data."`
}

type toolResult struct {
	FigureJSON    string  `json:"figure_json,omitempty"`
	Success       bool    `json:"success"`
	Message       string  `json:"message,omitempty"`
	SavedPath     string  `json:"saved_path,omitempty"`
	Error         string  `json:"error,omitempty"`
	OriginalCode  string  `json:"original_code,omitempty"`
	PreviousError *string `json:"previous_error,omitempty"`
	AttemptedCode string  `json:"attempted_code,omitempty"`
}

// NewTools returns create_plotly_chart, repair_plotly_code and get_dataframe_info
// backed by e. Failures are reported inside the JSON result, never as tool errors.
func NewTools(e *Executor) []ai.Tool {
	return []ai.Tool{
		*NewCreateChartTool(e),
		*NewRepairCodeTool(e),
		*NewDataframeInfoTool(),
	}
}

func NewCreateChartTool(e *Executor) *ai.Tool {
	return ai.NewTool(CreateChartToolName, createChartDescription,
		func(ctx context.Context, in createChartInput) (string, error) {
			return encode(createChart(ctx, e, in)), nil
		})
}

func NewRepairCodeTool(e *Executor) *ai.Tool {
	return ai.NewTool(RepairCodeToolName, repairCodeDescription,
		func(ctx context.Context, in repairCodeInput) (string, error) {
			return encode(repairCode(ctx, e, in)), nil
		})
}

func NewDataframeInfoTool() *ai.Tool {
	return ai.NewTool(DataframeInfoToolName, dataframeInfoDescription,
		func(ctx context.Context, in dataframeInfoInput) (string, error) {
			return dataframeInfo(in.DataJSON), nil
		})
}

func createChart(ctx context.Context, e *Executor, in createChartInput) toolResult {
	res, err := run(ctx, e, in.DataJSON, in.PlotlyCode, nil, "chart")
	switch {
	case err == nil:
		return toolResult{FigureJSON: res.FigureJSON, Success: true, Message: "Chart created successfully", SavedPath: res.SavedPath}
	case errors.Is(err, ErrUnsafeCode):
		return toolResult{Error: "Security Error: Malicious code patterns detected. Please revise your code."}
	case errors.Is(err, ErrNoFigure):
		return toolResult{Error: "The code did not create a 'fig' variable. Ensure your code assigns the figure to 'fig'."}
	default:
		return toolResult{Error: "Error creating chart: " + err.Error(), OriginalCode: in.PlotlyCode}
	}
}

func repairCode(ctx context.Context, e *Executor, in repairCodeInput) toolResult {
	previous := in.ErrorMessage
	res, err := run(ctx, e, in.DataJSON, in.PlotlyCode, &previous, "repaired_chart")
	switch {
	case err == nil:
		return toolResult{FigureJSON: res.FigureJSON, Success: true, Message: "Chart repaired and created successfully", SavedPath: res.SavedPath}
	case errors.Is(err, ErrUnsafeCode):
		return toolResult{Error: "Security Error: Malicious code patterns detected in repair attempt."}
	case errors.Is(err, ErrNoFigure):
		return toolResult{Error: "Repair failed: The code still did not create a 'fig' variable.", PreviousError: &previous}
	default:
		return toolResult{Error: "Repair failed: " + err.Error(), PreviousError: &previous, AttemptedCode: in.PlotlyCode}
	}
}

func run(ctx context.Context, e *Executor, dataJSON, code string, previousError *string, chartType string) (*Result, error) {
	data, err := frame.FromJSON([]byte(dataJSON))
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, Request{Data: data, Code: code, PreviousError: previousError, ChartType: chartType})
}

func dataframeInfo(dataJSON string) string {
	data, err := frame.FromJSON([]byte(dataJSON))
	if err != nil {
		return encode(toolResult{Error: "Error analyzing data: " + err.Error()})
	}
	out, err := json.Marshal(struct {
		*frame.Info
		Success bool `json:"success"`
	}{data.Info(), true})
	if err != nil {
		return encode(toolResult{Error: "Error analyzing data: " + err.Error()})
	}
	return string(out)
}

func encode(r toolResult) string {
	out, err := json.Marshal(r)
	if err != nil {
		return `{"success": false, "error": "failed to encode result"}`
	}
	return string(out)
}
