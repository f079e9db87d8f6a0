package plugins

import (
	"context"
	"strings"

	"github.com/xab-mack/solrange/internal/analysis"
	"github.com/xab-mack/solrange/internal/model"
	"github.com/xab-mack/solrange/internal/solidity"
	"github.com/xab-mack/solrange/internal/util"
)

// uncheckedBalanceChange flags token transfer calls whose effect is
// never verified: the affected balance must be read before and after
// the call and the delta asserted, otherwise fee-on-transfer and
// misbehaving tokens silently desynchronize internal accounting.
type uncheckedBalanceChange struct{}

func (d *uncheckedBalanceChange) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "SOL-UNCHECKED-BALANCE",
		Title:    "Token transfer without balance delta check",
		Severity: model.SeverityHigh,
		Tags:     []string{"solidity", "defi", "token"},
	}
}

// transferFacts captures, in statement order, whether a balance was
// read before the first token move, read again after it, and whether
// any assertion follows the move.
type transferFacts struct {
	moveSeen   bool
	moveLine   int
	moveToken  string
	readBefore bool
	readAfter  bool
	checkAfter bool
}

func inspectTransfers(fn *solidity.Function) transferFacts {
	var f transferFacts
	solidity.Walk(fn.Body, func(s solidity.Stmt) {
		if _, ok := s.(*solidity.RequireStmt); ok && f.moveSeen {
			f.checkAfter = true
		}
		solidity.StmtExprs(s, func(e solidity.Expr) {
			call, ok := e.(*solidity.Call)
			if !ok {
				return
			}
			switch n := strings.ToLower(call.Name); {
			case n == "balanceof":
				if f.moveSeen {
					f.readAfter = true
				} else {
					f.readBefore = true
				}
			case tokenMoveCalls[n]:
				if !f.moveSeen {
					f.moveSeen = true
					f.moveLine = s.Pos()
					f.moveToken = rootName(call.Target)
				}
			}
		})
	})
	return f
}

func (d *uncheckedBalanceChange) Analyze(ctx context.Context, pctx *analysis.ProjectContext, req model.ScanRequest) ([]model.Finding, error) {
	var findings []model.Finding
	if pctx == nil {
		return findings, nil
	}
	pctx.EachContract(func(file string, u *solidity.Unit, c *solidity.Contract) {
		content := pctx.FileContents[file]
		for _, fn := range c.Functions {
			if !fn.HasBody {
				continue
			}
			// flash-loan callbacks are covered by their own detector
			if _, isCallback := flashCallbackLenders[strings.ToLower(fn.Name)]; isCallback {
				continue
			}
			facts := inspectTransfers(fn)
			if !facts.moveSeen || (facts.readBefore && facts.readAfter && facts.checkAfter) {
				continue
			}
			var missing []string
			if !facts.readBefore {
				missing = append(missing, "no balance read before the transfer")
			}
			if !facts.readAfter {
				missing = append(missing, "no balance read after the transfer")
			}
			if !facts.checkAfter {
				missing = append(missing, "no assertion on the resulting delta")
			}
			findings = append(findings, model.Finding{
				RuleID:      d.Meta().ID,
				Severity:    model.SeverityHigh,
				Confidence:  0.7,
				DetectorID:  "unchecked-balance-change",
				File:        file,
				StartLine:   facts.moveLine,
				EndLine:     facts.moveLine,
				Snippet:     util.ExtractSnippet(content, facts.moveLine, facts.moveLine, 4),
				Contract:    c.Name,
				Function:    fn.Name,
				Variable:    facts.moveToken,
				Message:     fn.Name + " moves tokens without verifying the balance change: " + strings.Join(missing, ", "),
				Remediation: "Read the affected balance before and after the transfer and require the delta to match the intended amount.",
				Fingerprint: util.Fingerprint(d.Meta().ID, file, facts.moveLine, facts.moveLine, c.Name+"."+fn.Name),
			})
		}
	})
	return findings, nil
}
