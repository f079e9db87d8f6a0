package analysis

import (
	"github.com/xab-mack/solrange/internal/interval"
)

// State maps variable identity to its interval at one program point.
// Variables not present are untracked (Top when read).
type State map[string]interval.Interval

func NewState() State { return State{} }

func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Join merges states at a CFG join point: per-variable interval join.
// A variable tracked on only one side keeps that side's interval; the
// other path never constrained it, so this stays an over-approximation
// only if the variable was in scope with the same bound, which holds
// for declared variables initialized to their type domain.
func (s State) Join(o State) State {
	out := s.Clone()
	for k, v := range o {
		if cur, ok := out[k]; ok {
			out[k] = cur.Join(v)
		} else {
			out[k] = v
		}
	}
	return out
}

func (s State) Equal(o State) bool {
	if len(s) != len(o) {
		return false
	}
	for k, v := range s {
		ov, ok := o[k]
		if !ok || !v.Eq(ov) {
			return false
		}
	}
	return true
}

// Widen applies interval widening per variable against the previous
// state at a loop header.
func (s State) Widen(next State) State {
	out := s.Clone()
	for k, v := range next {
		if cur, ok := out[k]; ok {
			out[k] = cur.Widen(v)
		} else {
			out[k] = v
		}
	}
	return out
}

// Narrow tightens widened bounds using a concrete recomputation.
func (s State) Narrow(concrete State) State {
	out := s.Clone()
	for k, v := range out {
		if cv, ok := concrete[k]; ok {
			out[k] = v.Narrow(cv)
		}
	}
	return out
}
