// Command insights runs the CRM case agent, the chart agent and the code screener.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/nexxia-ai/insights/ai"
	_ "github.com/nexxia-ai/insights/ai/openai"
	"github.com/nexxia-ai/insights/config"
	"github.com/nexxia-ai/insights/trace"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

// errUnsafe makes the process exit with status 1 without printing an error.
var errUnsafe = errors.New("unsafe code found")

type app struct {
	cfgFile  string
	envFile  string
	logLevel string
	traceDir string
	cfg      *config.Config
	logger   *slog.Logger
	tracer   *trace.Tracer
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errUnsafe) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "insights",
		Short:         "CRM case and chart assistants with a code safety screener",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&a.traceDir, "trace-dir", "", "write every agent turn to a trace file in this directory")

	rootCmd.AddCommand(
		a.crmCmd(),
		a.chartCmd(),
		a.screenCmd(),
		a.mcpCmd(),
		a.modelsCmd(),
	)
	return rootCmd
}

func (a *app) init() error {
	if err := config.LoadEnv(a.envFile); err != nil {
		return fmt.Errorf("loading %s: %w", a.envFile, err)
	}
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(a.logger)

	if a.traceDir != "" {
		if a.tracer, err = trace.New(trace.Config{Directory: a.traceDir}); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) model() (*ai.Model, error) {
	m, err := ai.New(a.cfg.Model, a.cfg.OpenAIAPIKey)
	if err != nil {
		return nil, err
	}
	return m.WithTemperature(0), nil
}
