package analysis

import (
	"github.com/rs/zerolog"

	"github.com/xab-mack/solrange/internal/interval"
	"github.com/xab-mack/solrange/internal/logger"
	"github.com/xab-mack/solrange/internal/solidity"
)

// Analyzer runs the interval analysis over parsed units.
type Analyzer struct {
	opts Options
	log  zerolog.Logger
}

func NewAnalyzer(opts Options) *Analyzer {
	return &Analyzer{opts: opts, log: logger.Logger().With().Str("component", "analysis").Logger()}
}

// AnalyzeUnit solves every function body in the unit and returns the
// collected per-function results.
func (a *Analyzer) AnalyzeUnit(unit *solidity.Unit) *Results {
	res := NewResults()
	for _, contract := range unit.Contracts {
		if contract.Kind == "interface" {
			continue
		}
		for _, fn := range contract.Functions {
			if !fn.HasBody || fn.Visibility == "modifier" {
				continue
			}
			initial := a.initialState(contract, fn)
			fr := solveFunction(contract, fn, a.opts, initial)
			fr.File = unit.File
			res.Add(fr)
			a.log.Debug().
				Str("contract", contract.Name).
				Str("function", fn.Name).
				Int("violations", len(fr.Violations)).
				Msg("function solved")
		}
	}
	return res
}

// initialState seeds parameters and state variables. Parameters start
// at their full type domain; state variables with constant initializers
// start at that constant, since analysis is per-function and any other
// function may have changed them we still widen them to the type domain
// unless the variable is immutable or constant.
func (a *Analyzer) initialState(contract *solidity.Contract, fn *solidity.Function) State {
	st := NewState()
	for _, sv := range contract.StateVars {
		if sv.Constant {
			if lit, ok := sv.Value.(*solidity.Literal); ok {
				st[sv.Var.Name] = interval.Const(lit.Value)
				continue
			}
		}
		st[sv.Var.Name] = typeDefault(sv.Var.Type)
	}
	for _, p := range fn.Params {
		if p.Name == "" {
			continue
		}
		st[p.Name] = typeDefault(p.Type)
	}
	return st
}
