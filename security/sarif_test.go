package security

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSARIF(t *testing.T) {
	s := New(DefaultRules())
	verdicts := map[string]Verdict{
		"b.py": s.Scan("fig = px.pie(df, names='a', values='b')"),
		"a.py": s.Scan("import os\neval('1')"),
		"c.py": s.Scan("print((1)"),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSARIF(&buf, verdicts))

	var doc struct {
		Version string `json:"version"`
		Runs    []struct {
			Tool struct {
				Driver struct {
					Name  string `json:"name"`
					Rules []struct {
						ID string `json:"id"`
					} `json:"rules"`
				} `json:"driver"`
			} `json:"tool"`
			Results []struct {
				RuleID  string `json:"ruleId"`
				Level   string `json:"level"`
				Message struct {
					Text string `json:"text"`
				} `json:"message"`
			} `json:"results"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "2.1.0", doc.Version)
	require.Len(t, doc.Runs, 1)
	run := doc.Runs[0]
	assert.Equal(t, sarifToolName, run.Tool.Driver.Name)
	require.Len(t, run.Results, 3)

	// a.py sorts first
	assert.Equal(t, "insights/import", run.Results[0].RuleID)
	assert.Equal(t, "error", run.Results[0].Level)
	assert.Equal(t, "Dangerous import detected: os on line 1", run.Results[0].Message.Text)
	assert.Equal(t, "insights/call", run.Results[1].RuleID)
	assert.Equal(t, "insights/parse", run.Results[2].RuleID)
	assert.Len(t, run.Tool.Driver.Rules, 3)
}
