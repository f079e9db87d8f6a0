package plugins

import (
	"context"
	"strings"

	"github.com/xab-mack/solrange/internal/analysis"
	"github.com/xab-mack/solrange/internal/defi"
	"github.com/xab-mack/solrange/internal/model"
	"github.com/xab-mack/solrange/internal/solidity"
	"github.com/xab-mack/solrange/internal/util"
)

// flashloanCallback flags flash-loan callback entry points that mutate
// state or move tokens without validating the caller. The callback
// names cover the common lender interfaces.
type flashloanCallback struct{}

var flashCallbackLenders = map[string]string{
	"executeoperation":       "Aave",
	"onflashloan":            "ERC-3156",
	"uniswapv2call":          "Uniswap V2",
	"uniswapv3flashcallback": "Uniswap V3",
	"receiveflashloan":       "Balancer",
	"callfunction":           "dYdX",
}

var tokenMoveCalls = map[string]bool{
	"transfer": true, "transferfrom": true,
	"safetransfer": true, "safetransferfrom": true,
}

var lowLevelCalls = map[string]bool{
	"call": true, "delegatecall": true, "send": true,
}

func (d *flashloanCallback) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "SOL-FLASHLOAN-CALLBACK",
		Title:    "Flash-loan callback without caller validation",
		Severity: model.SeverityHigh,
		Tags:     []string{"solidity", "defi", "flashloan"},
	}
}

func (d *flashloanCallback) Analyze(ctx context.Context, pctx *analysis.ProjectContext, req model.ScanRequest) ([]model.Finding, error) {
	var findings []model.Finding
	if pctx == nil {
		return findings, nil
	}
	pctx.EachContract(func(file string, u *solidity.Unit, c *solidity.Contract) {
		stateVars := map[string]bool{}
		for _, sv := range c.StateVars {
			stateVars[sv.Var.Name] = true
		}
		content := pctx.FileContents[file]
		for _, fn := range c.Functions {
			lender, isCallback := flashCallbackLenders[strings.ToLower(fn.Name)]
			if !isCallback || !fn.HasBody {
				continue
			}
			facts := inspectCallback(fn, stateVars)
			add := func(sev model.Severity, conf float64, msg, rem string) {
				findings = append(findings, model.Finding{
					RuleID:      d.Meta().ID,
					Severity:    sev,
					Confidence:  conf,
					DetectorID:  "flashloan-callback",
					File:        file,
					StartLine:   fn.StartLine,
					EndLine:     fn.StartLine,
					Snippet:     util.ExtractSnippet(content, fn.StartLine, fn.StartLine, 6),
					Contract:    c.Name,
					Function:    fn.Name,
					Message:     lender + " flash-loan callback " + fn.Name + ": " + msg,
					Remediation: rem,
					Fingerprint: util.Fingerprint(d.Meta().ID, file, fn.StartLine, fn.StartLine, c.Name+"."+fn.Name+":"+msg),
				})
			}
			if facts.writesState && !facts.checksSender {
				add(model.SeverityHigh, 0.85,
					"mutates contract state without validating msg.sender",
					"Require msg.sender to be the expected lender (and the initiator to be this contract) before acting on callback data.")
			}
			if facts.movesTokens && !facts.checksSender {
				add(model.SeverityHigh, 0.75,
					"transfers tokens without validating msg.sender",
					"Validate the caller before moving funds; anyone can invoke an unguarded callback directly.")
			}
			if facts.callAfterBalanceWrite {
				add(model.SeverityHigh, 0.7,
					"issues an external call after updating balances",
					"Finish balance accounting only after external interactions, or snapshot and re-verify balances around the call.")
			}
			if (facts.writesState || facts.movesTokens) && !facts.reentrancyGuard {
				add(model.SeverityMedium, 0.6,
					"has no reentrancy guard",
					"Apply a nonReentrant modifier; flash-loan callbacks are a common reentrancy entry point.")
			}
		}
	})
	return findings, nil
}

type callbackFacts struct {
	checksSender          bool
	writesState           bool
	movesTokens           bool
	reentrancyGuard       bool
	callAfterBalanceWrite bool
}

func inspectCallback(fn *solidity.Function, stateVars map[string]bool) callbackFacts {
	var f callbackFacts
	for _, m := range fn.Modifiers {
		lm := strings.ToLower(m)
		if strings.Contains(lm, "nonreentrant") || strings.Contains(lm, "lock") {
			f.reentrancyGuard = true
		}
	}
	balanceWritten := false
	solidity.Walk(fn.Body, func(s solidity.Stmt) {
		switch st := s.(type) {
		case *solidity.RequireStmt:
			if exprMentionsSender(st.Cond) {
				f.checksSender = true
			}
		case *solidity.IfStmt:
			// if (msg.sender != lender) revert(); counts as a check
			if exprMentionsSender(st.Cond) {
				f.checksSender = true
			}
		case *solidity.AssignStmt:
			if base := rootName(st.Target); base != "" && stateVars[base] {
				f.writesState = true
				if role, _ := defi.Classify(base); role == defi.RoleTokenBalance {
					balanceWritten = true
				}
			}
		}
		solidity.StmtExprs(s, func(e solidity.Expr) {
			call, ok := e.(*solidity.Call)
			if !ok {
				return
			}
			name := strings.ToLower(call.Name)
			if tokenMoveCalls[name] {
				f.movesTokens = true
			}
			if (tokenMoveCalls[name] || lowLevelCalls[name]) && balanceWritten {
				f.callAfterBalanceWrite = true
			}
		})
	})
	return f
}

func exprMentionsSender(e solidity.Expr) bool {
	found := false
	solidity.WalkExpr(e, func(x solidity.Expr) {
		if m, ok := x.(*solidity.Member); ok && m.Field == "sender" {
			if id, ok := m.X.(*solidity.Ident); ok && id.Name == "msg" {
				found = true
			}
		}
	})
	return found
}

// rootName unwraps index and member chains to the base identifier.
func rootName(e solidity.Expr) string {
	for {
		switch x := e.(type) {
		case *solidity.Ident:
			return x.Name
		case *solidity.Index:
			e = x.X
		case *solidity.Member:
			e = x.X
		default:
			return ""
		}
	}
}
