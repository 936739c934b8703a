// Package chart turns natural-language requests into Plotly figures. Model-written
// plotting code is screened before it is handed to a Python interpreter.
package chart

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nexxia-ai/insights/chart/frame"
	"github.com/nexxia-ai/insights/config"
	"github.com/nexxia-ai/insights/security"
)

//go:embed harness.py
var harnessScript []byte

var (
	ErrUnsafeCode = errors.New("unsafe code rejected")
	ErrNoFigure   = errors.New("code did not create a 'fig' variable")
)

// UnsafeCodeError carries the screener verdict for rejected code.
type UnsafeCodeError struct {
	Verdict security.Verdict
}

func (e *UnsafeCodeError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnsafeCode, strings.Join(e.Verdict.Messages(), "; "))
}

func (e *UnsafeCodeError) Is(target error) bool { return target == ErrUnsafeCode }

// ExecutionError is an exception raised by the plotting code itself.
type ExecutionError struct {
	Message string
}

func (e *ExecutionError) Error() string { return e.Message }

type Request struct {
	Data *frame.Frame
	Code string
	// PreviousError is exposed to the code as previous_error when set
	PreviousError *string
	// ChartType prefixes saved file names
	ChartType string
}

type Result struct {
	FigureJSON string
	SavedPath  string
	PNGPath    string
}

type Executor struct {
	Runner     Runner
	Screener   *security.Screener
	DataDir    string
	SaveImages bool
	Logger     *slog.Logger

	now func() time.Time
}

// NewExecutor returns an executor running python with the default screening rules.
// Saving follows the SAVE_IMAGES environment variable.
func NewExecutor(python string, timeout time.Duration) *Executor {
	return &Executor{
		Runner:     &PythonRunner{Python: python, Timeout: timeout},
		Screener:   security.New(security.DefaultRules()),
		DataDir:    "data",
		SaveImages: saveImagesFromEnv(),
	}
}

func saveImagesFromEnv() bool {
	return config.ParseBool(os.Getenv("SAVE_IMAGES"))
}

type harnessRequest struct {
	Data          json.RawMessage `json:"data"`
	Code          string          `json:"code"`
	PreviousError *string         `json:"previous_error,omitempty"`
	HTMLPath      string          `json:"html_path,omitempty"`
	PNGPath       string          `json:"png_path,omitempty"`
}

type harnessResponse struct {
	Status      string `json:"status"`
	Error       string `json:"error"`
	FigureJSON  string `json:"figure_json"`
	HTMLWritten bool   `json:"html_written"`
	PNGWritten  bool   `json:"png_written"`
	SaveError   string `json:"save_error"`
}

// Execute screens req.Code and, when it is safe, runs it against req.Data.
func (e *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	logger := e.logger()

	screener := e.Screener
	if screener == nil {
		screener = security.New(security.DefaultRules())
	}
	verdict := screener.WithLogger(logger).ScanContext(ctx, req.Code)
	if verdict.Unsafe {
		return nil, &UnsafeCodeError{Verdict: verdict}
	}

	data := []byte("[]")
	if req.Data != nil {
		var err error
		if data, err = req.Data.RecordsJSON(); err != nil {
			return nil, fmt.Errorf("failed to encode data: %w", err)
		}
	}

	hreq := harnessRequest{Data: data, Code: req.Code, PreviousError: req.PreviousError}
	if e.SaveImages {
		htmlPath, err := e.chartPath(req.ChartType)
		if err != nil {
			logger.Warn("failed to prepare chart directory", "error", err)
		} else {
			hreq.HTMLPath = htmlPath
			hreq.PNGPath = strings.TrimSuffix(htmlPath, ".html") + ".png"
		}
	}

	input, err := json.Marshal(hreq)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	runner := e.Runner
	if runner == nil {
		runner = &PythonRunner{}
	}
	out, err := runner.Run(ctx, harnessScript, input)
	if err != nil {
		return nil, err
	}

	var resp harnessResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, fmt.Errorf("invalid harness output: %w", err)
	}

	switch resp.Status {
	case "ok":
	case "no_figure":
		return nil, ErrNoFigure
	case "exception":
		return nil, &ExecutionError{Message: resp.Error}
	case "environment":
		return nil, fmt.Errorf("python environment is missing plotting packages: %s", resp.Error)
	default:
		return nil, fmt.Errorf("unexpected harness status %q", resp.Status)
	}

	result := &Result{FigureJSON: resp.FigureJSON}
	switch {
	case resp.HTMLWritten && resp.PNGWritten:
		result.SavedPath, result.PNGPath = hreq.HTMLPath, hreq.PNGPath
		logger.Info("chart saved", "html", hreq.HTMLPath, "png", hreq.PNGPath)
	case resp.HTMLWritten:
		result.SavedPath = hreq.HTMLPath
		logger.Info("chart saved", "html", hreq.HTMLPath)
	case resp.SaveError != "":
		logger.Warn("failed to save chart", "error", resp.SaveError)
	}
	return result, nil
}

// chartPath returns an absolute <type>_<timestamp>_<id>.html path inside DataDir.
func (e *Executor) chartPath(chartType string) (string, error) {
	if chartType == "" {
		chartType = "chart"
	}
	dir := e.DataDir
	if dir == "" {
		dir = "data"
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	now := time.Now
	if e.now != nil {
		now = e.now
	}
	name := fmt.Sprintf("%s_%s_%s.html", chartType, now().Format("20060102_150405"), uuid.New().String()[:8])
	return filepath.Join(dir, name), nil
}

func (e *Executor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
