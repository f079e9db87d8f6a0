package plugins

import (
	"context"
	"strings"

	"github.com/xab-mack/solrange/internal/analysis"
	"github.com/xab-mack/solrange/internal/interval"
	"github.com/xab-mack/solrange/internal/model"
	"github.com/xab-mack/solrange/internal/solidity"
	"github.com/xab-mack/solrange/internal/util"
)

// unboundedFlashloan checks flash-loan provider entry points for two
// independent predicates: the loan amount must be bounded against a
// stored maximum (or liquidity), and the loan must charge a fee. Each
// missing predicate yields one finding, so a lender can collect at
// most two per function.
type unboundedFlashloan struct{}

func (d *unboundedFlashloan) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "SOL-UNBOUNDED-FLASHLOAN",
		Title:    "Flash loan without amount bound or fee",
		Severity: model.SeverityMedium,
		Tags:     []string{"solidity", "defi", "flashloan"},
	}
}

func isFlashLender(name string) bool {
	n := strings.ToLower(name)
	return n == "flashloan" || n == "flash" || n == "flashborrow" || strings.HasPrefix(n, "flashloan")
}

// loanAmountParam picks the parameter carrying the loan size.
func loanAmountParam(fn *solidity.Function) string {
	for _, p := range fn.Params {
		n := strings.ToLower(p.Name)
		if strings.Contains(n, "amount") || strings.Contains(n, "value") || n == "wad" {
			return p.Name
		}
	}
	for _, p := range fn.Params {
		if p.Type.Kind == solidity.KindUint {
			return p.Name
		}
	}
	return ""
}

// amountBounded reports whether the body compares the amount parameter
// in any require or branch condition. The solved interval is accepted
// as evidence too: a constant bound refines the parameter below the
// full uint256 domain.
func amountBounded(fn *solidity.Function, param string, iv interval.Interval, solved bool) bool {
	if solved && !iv.Eq(interval.TypeDomain(256, false)) {
		return true
	}
	bounded := false
	solidity.Walk(fn.Body, func(s solidity.Stmt) {
		var cond solidity.Expr
		switch st := s.(type) {
		case *solidity.RequireStmt:
			cond = st.Cond
		case *solidity.IfStmt:
			cond = st.Cond
		}
		if cond == nil {
			return
		}
		solidity.WalkExpr(cond, func(e solidity.Expr) {
			b, ok := e.(*solidity.Binary)
			if !ok {
				return
			}
			switch b.Op {
			case solidity.OpLt, solidity.OpLe, solidity.OpGt, solidity.OpGe:
				if mentionsIdent(b.Left, param) || mentionsIdent(b.Right, param) {
					bounded = true
				}
			}
		})
	})
	return bounded
}

// computesFee reports whether anything in the body touches a fee or
// premium quantity.
func computesFee(fn *solidity.Function) bool {
	found := false
	solidity.Walk(fn.Body, func(s solidity.Stmt) {
		solidity.StmtExprs(s, func(e solidity.Expr) {
			switch x := e.(type) {
			case *solidity.Ident:
				found = found || isFeeName(x.Name)
			case *solidity.Member:
				found = found || isFeeName(x.Field)
			case *solidity.Call:
				found = found || isFeeName(x.Name)
			}
		})
	})
	return found
}

func isFeeName(n string) bool {
	ln := strings.ToLower(n)
	return strings.Contains(ln, "fee") || strings.Contains(ln, "premium")
}

func mentionsIdent(e solidity.Expr, name string) bool {
	found := false
	solidity.WalkExpr(e, func(x solidity.Expr) {
		if id, ok := x.(*solidity.Ident); ok && id.Name == name {
			found = true
		}
	})
	return found
}

func (d *unboundedFlashloan) Analyze(ctx context.Context, pctx *analysis.ProjectContext, req model.ScanRequest) ([]model.Finding, error) {
	var findings []model.Finding
	if pctx == nil || pctx.Results == nil {
		return findings, nil
	}
	pctx.EachContract(func(file string, u *solidity.Unit, c *solidity.Contract) {
		content := pctx.FileContents[file]
		for _, fn := range c.Functions {
			if !fn.HasBody || !isFlashLender(fn.Name) {
				continue
			}
			add := func(variable, iv, msg, rem, tag string) {
				findings = append(findings, model.Finding{
					RuleID:      d.Meta().ID,
					Severity:    model.SeverityMedium,
					Confidence:  0.65,
					DetectorID:  "unbounded-flashloan",
					File:        file,
					StartLine:   fn.StartLine,
					EndLine:     fn.StartLine,
					Snippet:     util.ExtractSnippet(content, fn.StartLine, fn.StartLine, 6),
					Contract:    c.Name,
					Function:    fn.Name,
					Variable:    variable,
					Interval:    iv,
					Message:     msg,
					Remediation: rem,
					Fingerprint: util.Fingerprint(d.Meta().ID, file, fn.StartLine, fn.StartLine, c.Name+"."+fn.Name+":"+tag),
				})
			}
			if param := loanAmountParam(fn); param != "" {
				iv, solved := pctx.Results.GetInterval(c.Name, fn.Name, param)
				if !amountBounded(fn, param, iv, solved) {
					ivs := interval.TypeDomain(256, false).String()
					if solved {
						ivs = iv.String()
					}
					add(param, ivs,
						"loan amount "+param+" is never bounded against available liquidity; interval stays "+ivs,
						"Require the amount not to exceed a stored maximum or the pool's token balance before lending.",
						"amount")
				}
			}
			if !computesFee(fn) {
				add("", "",
					fn.Name+" charges no flash-loan fee",
					"Charge a nonzero fee; free flash loans subsidize attacks against the protocol and its integrations.",
					"fee")
			}
		}
	})
	return findings, nil
}
