package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xab-mack/solrange/internal/analysis"
	"github.com/xab-mack/solrange/internal/config"
	"github.com/xab-mack/solrange/internal/model"
)

const vulnerableSrc = `
contract VulnerableVault {
    mapping(address => uint256) public balances;

    function deposit() public payable {
        balances[msg.sender] += msg.value;
    }

    function withdraw(uint256 amount) public {
        balances[msg.sender] -= amount;
    }
}
`

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
	}
	return dir
}

func TestScanEndToEnd(t *testing.T) {
	dir := writeProject(t, map[string]string{"vault.sol": vulnerableSrc})

	eng := New()
	result, err := eng.Scan(context.Background(), model.ScanRequest{Path: dir})
	require.NoError(t, err)
	require.NotNil(t, result)

	// the unguarded withdraw must surface an interval anomaly
	found := false
	for _, f := range result.Findings {
		if f.RuleID == "SOL-INTERVAL-ANOMALY" && f.Function == "withdraw" {
			found = true
		}
	}
	assert.True(t, found, "expected an interval anomaly for withdraw, got %+v", result.Findings)

	summary, ok := result.Summary.(map[string]analysis.FunctionSummary)
	require.True(t, ok)
	_, ok = summary["VulnerableVault.withdraw"]
	assert.True(t, ok)
}

func TestScanSkipsDependencyDirs(t *testing.T) {
	dir := writeProject(t, map[string]string{"a.sol": `contract A { }`})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules", "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "lib", "b.sol"), []byte(`contract B { }`), 0o644))

	files := discoverFiles(dir)
	require.Len(t, files, 1)
	assert.Equal(t, "a.sol", filepath.Base(files[0]))
}

func TestFindingsSortedDeterministically(t *testing.T) {
	fs := []model.Finding{
		{File: "b.sol", StartLine: 3, RuleID: "R2"},
		{File: "a.sol", StartLine: 9, RuleID: "R1"},
		{File: "a.sol", StartLine: 2, RuleID: "R9"},
		{File: "a.sol", StartLine: 2, RuleID: "R1"},
	}
	sortFindings(fs)
	assert.Equal(t, "R1", fs[0].RuleID)
	assert.Equal(t, 2, fs[0].StartLine)
	assert.Equal(t, "R9", fs[1].RuleID)
	assert.Equal(t, "b.sol", fs[3].File)
}

func TestCalibrationMergesDuplicates(t *testing.T) {
	in := []model.Finding{
		{File: "a.sol", StartLine: 5, RuleID: "R1", Severity: model.SeverityMedium, Confidence: 0.5},
		{File: "a.sol", StartLine: 5, RuleID: "R1", Severity: model.SeverityHigh, Confidence: 0.7},
		{File: "a.sol", StartLine: 9, RuleID: "R1", Severity: model.SeverityLow, Confidence: 0.3},
	}
	out := calibrateFindings(in)
	require.Len(t, out, 2)
	merged := out[0]
	assert.Equal(t, model.SeverityHigh, merged.Severity)
	assert.InDelta(t, 0.7, merged.Confidence, 0.001)
}

func TestSeverityFilter(t *testing.T) {
	cfg := config.Default()
	cfg.SeverityThreshold = "high"
	in := []model.Finding{
		{RuleID: "A", Severity: model.SeverityLow},
		{RuleID: "B", Severity: model.SeverityCritical},
	}
	out := filterBySeverity(in, cfg)
	require.Len(t, out, 1)
	assert.Equal(t, "B", out[0].RuleID)
}

func TestBaselineRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "baseline.json")
	findings := []model.Finding{
		{RuleID: "R1", Fingerprint: "fp1"},
		{RuleID: "R2", Fingerprint: "fp2"},
	}
	require.NoError(t, WriteBaseline(path, findings))

	b, err := loadBaseline(path)
	require.NoError(t, err)
	out := filterByBaseline(append(findings, model.Finding{RuleID: "R3", Fingerprint: "fp3"}), b)
	require.Len(t, out, 1)
	assert.Equal(t, "R3", out[0].RuleID)
}

func TestInlineSuppression(t *testing.T) {
	dir := writeProject(t, map[string]string{"s.sol": `
// solrange:ignore SOL-TEST reason="accepted"
contract C { }
`})
	file := filepath.Join(dir, "s.sol")
	cfg := config.Default()
	in := []model.Finding{
		{RuleID: "SOL-TEST", File: file, StartLine: 3},
		{RuleID: "SOL-OTHER", File: file, StartLine: 3},
	}
	out := applyIgnores(in, cfg)
	require.Len(t, out, 1)
	assert.Equal(t, "SOL-OTHER", out[0].RuleID)
}
