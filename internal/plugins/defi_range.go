package plugins

import (
	"context"
	"sort"

	"github.com/xab-mack/solrange/internal/analysis"
	"github.com/xab-mack/solrange/internal/defi"
	"github.com/xab-mack/solrange/internal/model"
	"github.com/xab-mack/solrange/internal/util"
)

// defiRangeViolation checks solved intervals against the plausible
// ranges implied by a variable's protocol role (price, fee, leverage,
// collateral ratio and so on). Only contracts that look like protocol
// contracts are checked, and only variables whose interval the analysis
// actually constrained beyond the declared type, so an ordinary uint256
// parameter does not trip the price bound on its own.
type defiRangeViolation struct{}

func (d *defiRangeViolation) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "SOL-DEFI-RANGE",
		Title:    "Protocol value outside plausible range",
		Severity: model.SeverityHigh,
		Tags:     []string{"solidity", "defi", "interval"},
	}
}

func (d *defiRangeViolation) Analyze(ctx context.Context, pctx *analysis.ProjectContext, req model.ScanRequest) ([]model.Finding, error) {
	var findings []model.Finding
	if pctx == nil || pctx.Results == nil {
		return findings, nil
	}
	pctx.Results.Each(func(fr *analysis.FunctionResult) {
		contract, _ := pctx.Contract(fr.Contract)
		if contract == nil || !defi.IsProtocolContract(contract) {
			return
		}
		content := pctx.FileContents[fr.File]

		names := make([]string, 0, len(fr.Exit))
		for name := range fr.Exit {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			iv := fr.Exit[name]
			role, conf := defi.Classify(name)
			if role == defi.RoleNone || conf < 0.5 {
				continue
			}
			// unchanged since entry means the analysis learned nothing;
			// reporting would just flag the declared type width
			if entry, ok := fr.Entry[name]; ok && entry.Eq(iv) {
				continue
			}
			bad, want := defi.Violates(role, iv)
			if !bad {
				continue
			}
			line := fnLine(pctx, fr)
			findings = append(findings, model.Finding{
				RuleID:     d.Meta().ID,
				Severity:   model.SeverityHigh,
				Confidence: conf * 0.9,
				DetectorID: "defi-range",
				File:       fr.File,
				StartLine:  line,
				EndLine:    line,
				Snippet:    util.ExtractSnippet(content, line, line, 4),
				Contract:   fr.Contract,
				Function:   fr.Function,
				Variable:   name,
				Interval:   iv.String(),
				Message:    "value classified as " + string(role) + " can reach " + iv.String() + ", outside the plausible range " + want.String(),
				Remediation: "Constrain the value with require() against protocol invariants, or rename the variable if the role is misclassified.",
				Fingerprint: util.Fingerprint(d.Meta().ID, fr.File, line, line, fr.Contract+"."+fr.Function+"."+name),
			})
		}
	})
	return findings, nil
}

// fnLine locates the function's declaration line for snippet anchoring.
func fnLine(pctx *analysis.ProjectContext, fr *analysis.FunctionResult) int {
	contract, _ := pctx.Contract(fr.Contract)
	if contract != nil {
		for _, fn := range contract.Functions {
			if fn.Name == fr.Function {
				return fn.StartLine
			}
		}
	}
	return 1
}
