package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/nexxia-ai/insights/ai"
	"github.com/spf13/cobra"
)

func (a *app) modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the registered models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "IDENTIFIER\tNAME\tFAMILY")
			for _, m := range ai.Models() {
				marker := ""
				if m.Identifier == a.cfg.Model {
					marker = " (default)"
				}
				fmt.Fprintf(w, "%s\t%s%s\t%s\n", m.Identifier, m.DisplayName, marker, m.Family)
			}
			return w.Flush()
		},
	}
}
