package crm

import (
	"context"
	"log/slog"

	"github.com/nexxia-ai/insights"
	"github.com/nexxia-ai/insights/ai"
)

const (
	SystemPrompt          = "You are a CRM assistant. Use the provided tools to look up customer cases."
	RetrieveCasesToolName = "retrieve_customer_cases"
	DefaultCaseLimit      = 50
)

const retrieveCasesDescription = `Retrieves CRM cases for a specific customer by their name.
Formatted (display) values from Dataverse are used when available, with
fallback mappings when only numeric codes are returned.`

type retrieveCasesInput struct {
	CustomerName string `json:"customer_name" description:"Full name of the contact or name of the account"`
}

// NewRetrieveCasesTool looks up at most limit cases per call. A nil q is reported
// to the model rather than failing the run.
func NewRetrieveCasesTool(q Querier, limit int) *ai.Tool {
	if limit <= 0 {
		limit = DefaultCaseLimit
	}
	return ai.NewTool(RetrieveCasesToolName, retrieveCasesDescription,
		func(ctx context.Context, in retrieveCasesInput) (string, error) {
			if q == nil {
				return "Error: Dataverse client not initialized.", nil
			}

			batches, err := GetCustomerCases(ctx, q, in.CustomerName, limit)
			if err != nil {
				slog.Error("case lookup failed", "customer", in.CustomerName, "error", err)
				return "Error retrieving cases: " + err.Error(), nil
			}

			var cases []Case
			for _, batch := range batches {
				for _, rec := range batch {
					cases = append(cases, ParseCase(rec))
				}
			}
			return FormatCases(in.CustomerName, cases), nil
		})
}

// NewCaseAgent returns the CRM case assistant.
func NewCaseAgent(model *ai.Model, q Querier, limit int) *insights.Agent {
	return &insights.Agent{
		Name:        "CRM Case Agent",
		Model:       model,
		Description: SystemPrompt,
		Tools:       []ai.Tool{*NewRetrieveCasesTool(q, limit)},
	}
}
