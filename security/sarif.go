package security

import (
	"fmt"
	"io"
	"sort"

	"github.com/owenrumney/go-sarif/v2/sarif"
)

const (
	sarifToolName = "insights-screener"
	sarifToolURI  = "https://github.com/nexxia-ai/insights"
)

var ruleDescriptions = map[FindingKind]string{
	KindCall:       "Call to a dynamic execution or reflection builtin",
	KindImport:     "Import of a system access module",
	KindImportFrom: "Import from a system access module",
	KindAttribute:  "Dynamic execution reached through attribute access",
	KindParse:      "Code could not be parsed and is treated as unsafe",
}

func ruleID(kind FindingKind) string {
	return "insights/" + string(kind)
}

// ToSARIF converts per-file verdicts into a SARIF 2.1.0 report.
func ToSARIF(verdicts map[string]Verdict) (*sarif.Report, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create sarif report: %w", err)
	}
	run := sarif.NewRunWithInformationURI(sarifToolName, sarifToolURI)

	paths := make([]string, 0, len(verdicts))
	for p := range verdicts {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	seen := map[FindingKind]bool{}
	for _, path := range paths {
		for _, f := range verdicts[path].Findings {
			if !seen[f.Kind] {
				run.AddRule(ruleID(f.Kind)).WithDescription(ruleDescriptions[f.Kind])
				seen[f.Kind] = true
			}

			physical := sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewSimpleArtifactLocation(path))
			if f.Line > 0 {
				physical = physical.WithRegion(sarif.NewSimpleRegion(f.Line, f.Line))
			}
			run.CreateResultForRule(ruleID(f.Kind)).
				WithLevel("error").
				WithMessage(sarif.NewTextMessage(f.Message)).
				AddLocation(sarif.NewLocationWithPhysicalLocation(physical))
		}
	}

	report.AddRun(run)
	return report, nil
}

func WriteSARIF(w io.Writer, verdicts map[string]Verdict) error {
	report, err := ToSARIF(verdicts)
	if err != nil {
		return err
	}
	return report.PrettyWrite(w)
}
