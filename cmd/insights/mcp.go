package main

import (
	"context"
	"encoding/json"

	"github.com/nexxia-ai/insights/ai"
	"github.com/nexxia-ai/insights/chart"
	"github.com/nexxia-ai/insights/crm"
	"github.com/nexxia-ai/insights/security"
	"github.com/spf13/cobra"
)

func (a *app) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the chart, CRM and screening tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tools := a.mcpTools(cmd.Context())
			s, err := ai.NewMCPServer("insights", version, tools...)
			if err != nil {
				return err
			}
			a.logger.Info("serving MCP on stdio", "tools", len(tools))
			return ai.ServeStdio(s)
		},
	}
}

func (a *app) mcpTools(ctx context.Context) []*ai.Tool {
	e := a.executor()
	return []*ai.Tool{
		chart.NewCreateChartTool(e),
		chart.NewRepairCodeTool(e),
		chart.NewDataframeInfoTool(),
		crm.NewRetrieveCasesTool(a.caseSource(ctx), a.cfg.Dataverse.CaseLimit),
		newScreenTool(a.screener()),
	}
}

type screenInput struct {
	Code string `json:"code" description:"Python source to check"`
}

// newScreenTool exposes the screener so MCP clients can vet code before running it.
func newScreenTool(s *security.Screener) *ai.Tool {
	return ai.NewTool("check_code_safety",
		"Checks Python code for dangerous calls, imports and dynamic execution. Returns the verdict as JSON with every finding.",
		func(ctx context.Context, in screenInput) (string, error) {
			out, err := json.Marshal(s.ScanContext(ctx, in.Code))
			if err != nil {
				return "", err
			}
			return string(out), nil
		})
}
