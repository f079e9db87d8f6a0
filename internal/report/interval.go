package report

import (
	"encoding/json"

	"github.com/xab-mack/solrange/internal/model"
)

// RangeFinding is the compact range-violation record emitted by the
// JSON export: one line per violated interval.
type RangeFinding struct {
	Contract  string `json:"contract"`
	Function  string `json:"function"`
	Variable  string `json:"variable"`
	Violation string `json:"violation"`
	Interval  string `json:"interval"`
}

// ToRangeReport renders the findings that carry interval data in the
// compact schema. Findings from detectors that do not attach an
// interval are skipped; SARIF or the full JSON result cover those.
func ToRangeReport(findings []model.Finding) ([]byte, error) {
	out := make([]RangeFinding, 0, len(findings))
	for _, f := range findings {
		if f.Interval == "" && f.Variable == "" {
			continue
		}
		out = append(out, RangeFinding{
			Contract:  f.Contract,
			Function:  f.Function,
			Variable:  f.Variable,
			Violation: f.Message,
			Interval:  f.Interval,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}

// SummaryJSON renders the per-function interval summary.
func SummaryJSON(summary any) ([]byte, error) {
	return json.MarshalIndent(summary, "", "  ")
}
