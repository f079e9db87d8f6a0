package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xab-mack/solrange/internal/model"
)

func TestToSARIF(t *testing.T) {
	findings := []model.Finding{
		{RuleID: "SOL-INTERVAL-ANOMALY", Severity: model.SeverityHigh, File: "a.sol", StartLine: 4, EndLine: 4, Message: "overflow", Interval: "[10, 265]"},
		{RuleID: "SOL-DEFI-RANGE", Severity: model.SeverityLow, File: "b.sol", StartLine: 9, EndLine: 9, Message: "range"},
	}
	data, err := ToSARIF(findings)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "2.1.0", doc["version"])

	runs := doc["runs"].([]any)
	require.Len(t, runs, 1)
	run := runs[0].(map[string]any)
	driver := run["tool"].(map[string]any)["driver"].(map[string]any)
	assert.Equal(t, "solrange", driver["name"])
	assert.Len(t, driver["rules"].([]any), 2)

	results := run["results"].([]any)
	require.Len(t, results, 2)
	first := results[0].(map[string]any)
	assert.Equal(t, "error", first["level"])
	assert.Contains(t, first["message"].(map[string]any)["text"], "[10, 265]")
	second := results[1].(map[string]any)
	assert.Equal(t, "note", second["level"])
}

func TestToRangeReport(t *testing.T) {
	findings := []model.Finding{
		{RuleID: "SOL-INTERVAL-ANOMALY", Contract: "Vault", Function: "withdraw", Variable: "balances[]", Message: "underflow", Interval: "[-10, 5]"},
		{RuleID: "SOL-FLASHLOAN-CALLBACK", Contract: "Receiver", Function: "executeOperation", Message: "no validation"},
	}
	data, err := ToRangeReport(findings)
	require.NoError(t, err)

	var out []RangeFinding
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "Vault", out[0].Contract)
	assert.Equal(t, "withdraw", out[0].Function)
	assert.Equal(t, "balances[]", out[0].Variable)
	assert.Equal(t, "[-10, 5]", out[0].Interval)
}

func TestSummaryJSON(t *testing.T) {
	summary := map[string]map[string]map[string]string{
		"Vault.withdraw": {"params": {"amount": "[0, 100]"}},
	}
	data, err := SummaryJSON(summary)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Vault.withdraw"`)
	assert.Contains(t, string(data), `"[0, 100]"`)
}
