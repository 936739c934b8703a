// Package crm looks up customer service cases in Dataverse and formats them for the case agent.
package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/nexxia-ai/insights/crm/dataverse"
	"github.com/spf13/cast"
)

const notAvailable = "N/A"

var PriorityMap = map[int]string{
	1: "High",
	2: "Normal",
	3: "Low",
}

// StatusMap covers the case statecode.
var StatusMap = map[int]string{
	0: "Active",
	1: "Resolved",
	2: "Cancelled",
}

// StatusReasonMap covers the case statuscode, grouped by the status it belongs to.
var StatusReasonMap = map[int]string{
	1:    "In Progress",
	2:    "On Hold",
	3:    "Waiting for Details",
	4:    "Researching",
	5:    "Problem Solved",
	1000: "Information Provided",
	6:    "Cancelled",
	2000: "Merged",
}

var caseFields = []string{
	"incidentid",
	"title",
	"ticketnumber",
	"prioritycode",
	"statecode",
	"statuscode",
	"createdon",
	"modifiedon",
	"description",
	"_customerid_value",
}

// Querier is the part of the Dataverse client the case lookups need.
type Querier interface {
	Get(ctx context.Context, q dataverse.Query) ([][]dataverse.Record, error)
}

type Case struct {
	Customer     string `json:"customer"`
	Title        string `json:"title"`
	TicketNumber string `json:"ticket_number"`
	Priority     string `json:"priority"`
	Status       string `json:"status"`
	StatusReason string `json:"status_reason"`
	CreatedOn    string `json:"createdon,omitempty"`
	Description  string `json:"description"`
}

// GetCustomerCases returns the incidents whose contact full name or account name equals name.
func GetCustomerCases(ctx context.Context, q Querier, name string, top int) ([][]dataverse.Record, error) {
	escaped := strings.ReplaceAll(name, "'", "''")
	return q.Get(ctx, dataverse.Query{
		EntitySet: "incidents",
		Select:    caseFields,
		Expand:    []string{"customerid_contact($select=fullname)", "customerid_account($select=name)"},
		Filter:    fmt.Sprintf("customerid_contact/fullname eq '%s' or customerid_account/name eq '%s'", escaped, escaped),
		Top:       top,
	})
}

// CustomerName prefers the expanded contact over the account.
func CustomerName(rec dataverse.Record) string {
	if contact, ok := rec["customerid_contact"].(map[string]any); ok {
		return stringOr(contact["fullname"], notAvailable)
	}
	if account, ok := rec["customerid_account"].(map[string]any); ok {
		return stringOr(account["name"], notAvailable)
	}
	return notAvailable
}

// ParseCase reads a case record. Display values come from the formatted annotations
// when Dataverse sends them and from the code maps otherwise.
func ParseCase(rec dataverse.Record) Case {
	priority := formatted(rec, "prioritycode")
	if priority == "" {
		priority = lookup(rec["prioritycode"], PriorityMap)
	}

	status := formatted(rec, "statecode")
	if status == "" {
		status = lookup(rec["statecode"], StatusMap)
	}

	reason := formatted(rec, "statuscode")
	if reason == "" {
		reason = lookup(rec["statuscode"], StatusReasonMap)
	}

	if status == "" {
		status = statusFromReason(rec["statuscode"])
	}

	return Case{
		Customer:     CustomerName(rec),
		Title:        stringOr(rec["title"], notAvailable),
		TicketNumber: stringOr(rec["ticketnumber"], notAvailable),
		Priority:     orNA(priority),
		Status:       orNA(status),
		StatusReason: orNA(reason),
		CreatedOn:    stringOr(rec["createdon"], ""),
		Description:  stringOr(rec["description"], notAvailable),
	}
}

func statusFromReason(raw any) string {
	code, err := cast.ToIntE(raw)
	if raw == nil || err != nil {
		return ""
	}
	switch code {
	case 1, 2, 3, 4:
		return "Active"
	case 5, 1000:
		return "Resolved"
	case 6, 2000:
		return "Cancelled"
	}
	return StatusMap[code]
}

func formatted(rec dataverse.Record, field string) string {
	return stringOr(rec[field+dataverse.FormattedValueSuffix], "")
}

// lookup maps an option set code; unparseable codes are shown as sent.
func lookup(raw any, m map[int]string) string {
	if raw == nil {
		return ""
	}
	code, err := cast.ToIntE(raw)
	if err != nil {
		return cast.ToString(raw)
	}
	return m[code]
}

func stringOr(v any, fallback string) string {
	if v == nil {
		return fallback
	}
	s := cast.ToString(v)
	if s == "" {
		return fallback
	}
	return s
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

// FormatCases renders cases as the numbered markdown list the agent relays to the user.
func FormatCases(customer string, cases []Case) string {
	if len(cases) == 0 {
		return "No cases found for customer: " + customer
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d case(s) for '%s':\n\n", len(cases), customer)
	for i, c := range cases {
		fmt.Fprintf(&sb, "%d. **%s**\n", i+1, c.Title)
		fmt.Fprintf(&sb, "   - Ticket: %s\n", c.TicketNumber)
		fmt.Fprintf(&sb, "   - Priority: %s\n", c.Priority)
		fmt.Fprintf(&sb, "   - Status: %s\n", c.Status)
		fmt.Fprintf(&sb, "   - Status Reason: %s\n\n", c.StatusReason)
	}
	return sb.String()
}
