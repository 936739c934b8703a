package main

import (
	"fmt"
	"io"
	"os"

	"github.com/nexxia-ai/insights/chart"
	"github.com/nexxia-ai/insights/security"
	"github.com/spf13/cobra"
)

func (a *app) chartCmd() *cobra.Command {
	var dataFile, instruction string
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Create a Plotly chart from JSON data, or chat with the chart agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := a.model()
			if err != nil {
				return err
			}
			agent := chart.NewAgent(model, a.executor())
			agent.Agent().LogLevel = a.cfg.SlogLevel()
			agent.Agent().Logger = a.logger.With("agent", agent.Agent().Name)
			agent.Agent().Tracer = a.tracer

			if instruction == "" {
				return agent.Agent().Chat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
			}
			if dataFile == "" {
				return fmt.Errorf("--data is required with --instruction")
			}

			data, err := readInput(dataFile, cmd.InOrStdin())
			if err != nil {
				return err
			}
			res := agent.CreateChart(cmd.Context(), data, instruction, false)
			if !res.Success {
				return fmt.Errorf("chart failed: %s", res.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Response)
			return nil
		},
	}
	cmd.Flags().StringVar(&dataFile, "data", "", "JSON data file, - for stdin")
	cmd.Flags().StringVar(&instruction, "instruction", "", "what to chart")
	return cmd
}

func (a *app) executor() *chart.Executor {
	e := chart.NewExecutor(a.cfg.Chart.Python, a.cfg.Chart.Timeout)
	e.Screener = a.screener()
	e.DataDir = a.cfg.Chart.DataDir
	e.SaveImages = a.cfg.Chart.SaveImages
	e.Logger = a.logger
	return e
}

func (a *app) screener() *security.Screener {
	return security.New(security.NewRules(a.cfg.Security.DangerousCalls, a.cfg.Security.DangerousImports))
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
