package plugins

import (
	"context"

	"github.com/xab-mack/solrange/internal/analysis"
	"github.com/xab-mack/solrange/internal/model"
	"github.com/xab-mack/solrange/internal/util"
)

// intervalAnomalies surfaces the range-analysis violations as findings:
// overflow, underflow, division and modulo by zero, plus the
// incomplete-analysis diagnostics. Violations below minConfidence are
// dropped to keep the false-positive rate in check; that filters the
// low-confidence unmodeled-construct notes while keeping every
// sign-certain anomaly.
type intervalAnomalies struct{}

const minConfidence = 0.5

func (d *intervalAnomalies) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "SOL-INTERVAL-ANOMALY",
		Title:    "Numeric range anomaly",
		Severity: model.SeverityHigh,
		Tags:     []string{"solidity", "interval", "arithmetic"},
	}
}

func severityForKind(kind analysis.ViolationKind, confidence float64) model.Severity {
	switch kind {
	case analysis.KindOverflow, analysis.KindUnderflow:
		if confidence >= 0.9 {
			return model.SeverityCritical
		}
		return model.SeverityHigh
	case analysis.KindDivByZero, analysis.KindModByZero:
		if confidence >= 0.9 {
			return model.SeverityHigh
		}
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

var remediationForKind = map[analysis.ViolationKind]string{
	analysis.KindOverflow:   "Use a checked arithmetic path (Solidity >=0.8 default or SafeMath) or constrain the operands with require().",
	analysis.KindUnderflow:  "Guard the subtraction with a require() on the operand ordering.",
	analysis.KindDivByZero:  "Require the divisor to be non-zero before dividing.",
	analysis.KindModByZero:  "Require the modulus to be non-zero.",
	analysis.KindIncomplete: "Simplify the function's loop structure so the range analysis can converge.",
	analysis.KindUnmodeled:  "Manually review the constructs the analysis could not model.",
}

func (d *intervalAnomalies) Analyze(ctx context.Context, pctx *analysis.ProjectContext, req model.ScanRequest) ([]model.Finding, error) {
	var findings []model.Finding
	if pctx == nil || pctx.Results == nil {
		return findings, nil
	}
	pctx.Results.Each(func(fr *analysis.FunctionResult) {
		content := pctx.FileContents[fr.File]
		for _, v := range fr.Violations {
			if v.Confidence < minConfidence {
				continue
			}
			line := v.Line
			if line < 1 {
				line = 1
			}
			findings = append(findings, model.Finding{
				RuleID:      d.Meta().ID,
				Severity:    severityForKind(v.Kind, v.Confidence),
				Confidence:  v.Confidence,
				DetectorID:  "interval-anomalies",
				File:        fr.File,
				StartLine:   line,
				EndLine:     line,
				Snippet:     util.ExtractSnippet(content, line, line, 4),
				Contract:    v.Contract,
				Function:    v.Function,
				Variable:    v.Variable,
				Interval:    v.Interval,
				Message:     string(v.Kind) + ": " + v.Violation,
				Remediation: remediationForKind[v.Kind],
				Fingerprint: util.Fingerprint(d.Meta().ID, fr.File, line, line, v.Contract+"."+v.Function+"."+v.Variable+":"+string(v.Kind)),
			})
		}
	})
	return findings, nil
}
