package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/nexxia-ai/insights/crm"
	"github.com/nexxia-ai/insights/crm/dataverse"
	"github.com/spf13/cobra"
)

func (a *app) crmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crm [question]",
		Short: "Ask the CRM case agent, or start an interactive session without a question",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := a.model()
			if err != nil {
				return err
			}
			agent := crm.NewCaseAgent(model, a.caseSource(cmd.Context()), a.cfg.Dataverse.CaseLimit)
			agent.LogLevel = a.cfg.SlogLevel()
			agent.Logger = a.logger.With("agent", agent.Name)
			agent.Tracer = a.tracer

			if len(args) == 0 {
				return agent.Chat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
			}
			reply, err := agent.Run(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
}

// caseSource returns nil when Dataverse is not configured so the tool can say so.
func (a *app) caseSource(ctx context.Context) crm.Querier {
	dv := a.cfg.Dataverse
	if !dv.HasCredentials() {
		a.logger.Warn("dataverse is not configured; case lookups will fail")
		return nil
	}
	client, err := dataverse.New(ctx, dataverse.Options{
		ResourceURL:  dv.ResourceURL,
		TenantID:     dv.TenantID,
		ClientID:     dv.ClientID,
		ClientSecret: dv.ClientSecret,
		Token:        dv.Token,
		Logger:       a.logger,
	})
	if err != nil {
		a.logger.Error("failed to create dataverse client", "error", err)
		return nil
	}
	return client
}
