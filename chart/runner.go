package chart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultTimeout = 60 * time.Second
	maxTimeout     = 10 * time.Minute
)

var ErrTimeout = errors.New("execution timeout")

// Runner executes a Python script, feeding input on stdin and returning stdout.
type Runner interface {
	Run(ctx context.Context, script, input []byte) ([]byte, error)
}

// PythonRunner runs scripts with a local interpreter in a throwaway directory
// and a minimal environment.
type PythonRunner struct {
	Python  string
	Timeout time.Duration
}

func (r *PythonRunner) Run(ctx context.Context, script, input []byte) ([]byte, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if timeout > maxTimeout {
		return nil, fmt.Errorf("timeout exceeds maximum allowed value of %s", maxTimeout)
	}
	python := r.Python
	if python == "" {
		python = "python3"
	}

	tempDir, err := os.MkdirTemp("", "insights-chart-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	scriptPath := filepath.Join(tempDir, "harness.py")
	if err := os.WriteFile(scriptPath, script, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write script file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, python, scriptPath)
	cmd.Dir = tempDir
	cmd.Env = pythonEnv(tempDir)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: code execution exceeded %s limit", ErrTimeout, timeout)
	}
	if err != nil {
		var output strings.Builder
		output.WriteString("Python execution failed:\n\n")
		if stderr.Len() > 0 {
			output.WriteString("STDERR:\n")
			output.WriteString(stderr.String())
			output.WriteString("\n")
		}
		fmt.Fprintf(&output, "Exit error: %v", err)
		return nil, errors.New(output.String())
	}
	return stdout.Bytes(), nil
}

// pythonEnv keeps only what an interpreter needs to find its packages.
func pythonEnv(home string) []string {
	env := []string{
		"PYTHONUNBUFFERED=1",
		"PYTHONDONTWRITEBYTECODE=1",
		"MPLCONFIGDIR=" + home,
	}
	for _, key := range []string{"PATH", "HOME", "PYTHONPATH", "VIRTUAL_ENV", "CONDA_PREFIX", "SYSTEMROOT"} {
		if v, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+v)
		}
	}
	return env
}
