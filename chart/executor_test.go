package chart

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/nexxia-ai/insights/chart/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runnerFunc func(ctx context.Context, script, input []byte) ([]byte, error)

func (f runnerFunc) Run(ctx context.Context, script, input []byte) ([]byte, error) {
	return f(ctx, script, input)
}

// stubRunner answers with resp and records the last harness request.
func stubRunner(resp string, got *harnessRequest) Runner {
	return runnerFunc(func(ctx context.Context, script, input []byte) ([]byte, error) {
		if got != nil {
			if err := json.Unmarshal(input, got); err != nil {
				return nil, err
			}
		}
		return []byte(resp), nil
	})
}

func sampleFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.FromJSON([]byte(`[{"category":"A","value":10},{"category":"B","value":20}]`))
	require.NoError(t, err)
	return f
}

func TestExecute_Success(t *testing.T) {
	var got harnessRequest
	e := &Executor{Runner: stubRunner(`{"status":"ok","figure_json":"{\"data\":[]}"}`, &got)}

	res, err := e.Execute(context.Background(), Request{Data: sampleFrame(t), Code: "fig = px.bar(df, x='category', y='value')"})
	require.NoError(t, err)
	assert.Equal(t, `{"data":[]}`, res.FigureJSON)
	assert.Empty(t, res.SavedPath)

	assert.JSONEq(t, `[{"category":"A","value":10},{"category":"B","value":20}]`, string(got.Data))
	assert.Nil(t, got.PreviousError)
	assert.Empty(t, got.HTMLPath)
}

func TestExecute_UnsafeCodeNeverRuns(t *testing.T) {
	ran := false
	e := &Executor{Runner: runnerFunc(func(ctx context.Context, script, input []byte) ([]byte, error) {
		ran = true
		return nil, nil
	})}

	_, err := e.Execute(context.Background(), Request{Code: "import os\nos.system('rm -rf /')\nfig = None"})
	require.ErrorIs(t, err, ErrUnsafeCode)
	assert.False(t, ran)

	var unsafe *UnsafeCodeError
	require.True(t, errors.As(err, &unsafe))
	assert.Len(t, unsafe.Verdict.Findings, 1)
	assert.Contains(t, err.Error(), "Dangerous import detected: os on line 1")
}

func TestExecute_HarnessStatuses(t *testing.T) {
	tests := []struct {
		name    string
		resp    string
		wantErr error
		wantMsg string
	}{
		{name: "no figure", resp: `{"status":"no_figure"}`, wantErr: ErrNoFigure},
		{name: "exception", resp: `{"status":"exception","error":"name 'pxx' is not defined"}`, wantMsg: "name 'pxx' is not defined"},
		{name: "environment", resp: `{"status":"environment","error":"No module named 'plotly'"}`, wantMsg: "python environment is missing plotting packages: No module named 'plotly'"},
		{name: "garbage", resp: `Traceback`, wantMsg: "invalid harness output"},
		{name: "unknown status", resp: `{"status":"weird"}`, wantMsg: `unexpected harness status "weird"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Executor{Runner: stubRunner(tt.resp, nil)}
			_, err := e.Execute(context.Background(), Request{Code: "fig = 1"})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestExecute_SavesChart(t *testing.T) {
	dir := t.TempDir()
	var got harnessRequest
	e := &Executor{
		Runner:     stubRunner(`{"status":"ok","figure_json":"{}","html_written":true}`, &got),
		DataDir:    dir,
		SaveImages: true,
		now:        func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) },
	}

	previous := "boom"
	res, err := e.Execute(context.Background(), Request{Code: "fig = 1", ChartType: "repaired_chart", PreviousError: &previous})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^repaired_chart_20250304_050607_[0-9a-f]{8}\.html$`), filepath.Base(got.HTMLPath))
	assert.Equal(t, dir, filepath.Dir(got.HTMLPath))
	assert.Equal(t, got.HTMLPath[:len(got.HTMLPath)-len(".html")]+".png", got.PNGPath)
	assert.Equal(t, got.HTMLPath, res.SavedPath)
	assert.Empty(t, res.PNGPath)
	require.NotNil(t, got.PreviousError)
	assert.Equal(t, "boom", *got.PreviousError)
}

func TestExecute_SaveFailureStillReturnsFigure(t *testing.T) {
	e := &Executor{
		Runner:     stubRunner(`{"status":"ok","figure_json":"{}","save_error":"disk full"}`, nil),
		DataDir:    t.TempDir(),
		SaveImages: true,
	}
	res, err := e.Execute(context.Background(), Request{Code: "fig = 1"})
	require.NoError(t, err)
	assert.Equal(t, "{}", res.FigureJSON)
	assert.Empty(t, res.SavedPath)
}

func TestPythonRunner_Errors(t *testing.T) {
	_, err := (&PythonRunner{Timeout: time.Hour}).Run(context.Background(), nil, nil)
	assert.ErrorContains(t, err, "timeout exceeds maximum")

	_, err = (&PythonRunner{Python: "definitely-not-python-xyz"}).Run(context.Background(), []byte("print(1)"), nil)
	assert.ErrorContains(t, err, "Python execution failed")
}

func TestPythonRunner_Timeout(t *testing.T) {
	python, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}
	r := &PythonRunner{Python: python, Timeout: 200 * time.Millisecond}
	_, err = r.Run(context.Background(), []byte("import time\ntime.sleep(5)\n"), nil)
	assert.ErrorIs(t, err, ErrTimeout)
}

func requirePlotly(t *testing.T) string {
	t.Helper()
	python, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}
	if err := exec.Command(python, "-c", "import pandas, plotly").Run(); err != nil {
		t.Skip("pandas/plotly not installed")
	}
	return python
}

func TestExecute_RealPython(t *testing.T) {
	python := requirePlotly(t)
	dir := t.TempDir()
	e := &Executor{
		Runner:     &PythonRunner{Python: python, Timeout: time.Minute},
		DataDir:    dir,
		SaveImages: true,
	}

	res, err := e.Execute(context.Background(), Request{
		Data: sampleFrame(t),
		Code: "fig = px.bar(df, x='category', y='value', title='<b>Values</b>')",
	})
	require.NoError(t, err)
	assert.Contains(t, res.FigureJSON, `"type":"bar"`)
	require.NotEmpty(t, res.SavedPath)
	_, err = os.Stat(res.SavedPath)
	assert.NoError(t, err)

	_, err = e.Execute(context.Background(), Request{Data: sampleFrame(t), Code: "x = 1"})
	assert.ErrorIs(t, err, ErrNoFigure)

	_, err = e.Execute(context.Background(), Request{Data: sampleFrame(t), Code: "fig = px.nope(df)"})
	var execErr *ExecutionError
	assert.True(t, errors.As(err, &execErr))
}

// writeStubPlotting installs minimal pandas and plotly modules so the harness can run
// without the real packages. Both announce themselves on stdout.
func writeStubPlotting(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"pandas.py": "print('pandas loaded')\n\nclass DataFrame:\n    def __init__(self, data):\n        self.data = data\n",
		"plotly/__init__.py": "",
		"plotly/express.py": "import json\n\nclass Figure:\n    def __init__(self, kind):\n        self.kind = kind\n\n" +
			"    def to_json(self):\n        return json.dumps({'data': [{'type': self.kind}]})\n\n" +
			"def bar(df, **kwargs):\n    print('bar called')\n    return Figure('bar')\n",
		"plotly/graph_objects.py": "",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestExecute_CodeOutputDoesNotCorruptResult(t *testing.T) {
	python, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}
	t.Setenv("PYTHONPATH", writeStubPlotting(t))

	e := &Executor{Runner: &PythonRunner{Python: python, Timeout: time.Minute}}
	res, err := e.Execute(context.Background(), Request{
		Data: sampleFrame(t),
		Code: "print(df.data)\nprint('building chart')\nfig = px.bar(df, x='category', y='value')",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[{"type":"bar"}]}`, res.FigureJSON)

	_, err = e.Execute(context.Background(), Request{Data: sampleFrame(t), Code: "print('no figure here')"})
	assert.ErrorIs(t, err, ErrNoFigure)
}
