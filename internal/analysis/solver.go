package analysis

import (
	"github.com/xab-mack/solrange/internal/interval"
	"github.com/xab-mack/solrange/internal/logger"
	"github.com/xab-mack/solrange/internal/solidity"
)

// Options tunes the fixed-point iteration.
type Options struct {
	MaxIterations     int
	WideningThreshold int
	NarrowingPasses   int
	PathSensitivity   bool
	OverflowChecks    bool
}

func DefaultOptions() Options {
	return Options{
		MaxIterations:     50,
		WideningThreshold: 3,
		NarrowingPasses:   2,
		PathSensitivity:   true,
		OverflowChecks:    true,
	}
}

// FunctionResult holds the solved states and findings for one function.
type FunctionResult struct {
	Contract   string
	Function   string
	Signature  string
	File       string
	Entry      State
	Exit       State
	In         map[int]State
	Violations []Violation
	Incomplete bool
}

// ReturnInterval is the interval of the function's return value at
// exit, or Top when the function returns nothing trackable.
func (r *FunctionResult) ReturnInterval() interval.Interval {
	if iv, ok := r.Exit[retKey]; ok {
		return iv
	}
	return interval.Top()
}

// solveFunction runs the worklist fixed point over fn's CFG: forward
// propagation with per-variable join at merges, widening at loop
// headers once a header has been revisited WideningThreshold times,
// then NarrowingPasses rounds of concrete re-evaluation to recover
// precision the widening threw away. Violations are collected in a
// single reporting pass over the final states, so iteration order never
// duplicates findings.
func solveFunction(contract *solidity.Contract, fn *solidity.Function, opts Options, initial State) *FunctionResult {
	res := &FunctionResult{
		Contract:  contract.Name,
		Function:  fn.Name,
		Signature: fn.Signature(),
		Entry:     initial.Clone(),
		In:        map[int]State{},
	}
	g := solidity.BuildCFG(fn)

	ctx := &evalCtx{
		contractName: contract.Name,
		functionName: fn.Name,
		types:        declaredTypes(contract, fn),
		opts:         opts,
		quiet:        true,
	}

	res.In[g.Entry] = initial.Clone()
	work := []int{g.Entry}
	visits := make([]int, len(g.Nodes))

	for len(work) > 0 {
		id := work[0]
		work = work[1:]
		n := g.Node(id)

		visits[id]++
		if visits[id] > opts.MaxIterations {
			res.Incomplete = true
			log := logger.Logger()
			log.Warn().
				Str("contract", contract.Name).
				Str("function", fn.Name).
				Int("node", id).
				Msg("fixed point did not stabilize, bailing out")
			break
		}

		out := transferNode(ctx, n, res.In[id])
		for _, edge := range successorStates(ctx, n, out, opts.PathSensitivity) {
			if !reachable(edge.state) {
				continue
			}
			prev, seen := res.In[edge.to]
			merged := edge.state
			if seen {
				merged = prev.Join(edge.state)
				if g.Node(edge.to).Kind == solidity.NodeLoopHeader && visits[edge.to] >= opts.WideningThreshold {
					merged = prev.Widen(merged)
				}
				if merged.Equal(prev) {
					continue
				}
			}
			res.In[edge.to] = merged
			work = append(work, edge.to)
		}
	}

	if res.Incomplete {
		res.Violations = append(res.Violations, Violation{
			Contract:   contract.Name,
			Function:   fn.Name,
			Variable:   "<function>",
			Violation:  "analysis did not converge within the iteration budget",
			Interval:   interval.Top().String(),
			Kind:       KindIncomplete,
			Line:       fn.StartLine,
			Confidence: 1,
		})
	}

	for pass := 0; pass < opts.NarrowingPasses; pass++ {
		narrowPass(ctx, g, res, opts)
	}

	reportPass(ctx, g, res)
	res.Exit = res.In[g.Exit]
	if res.Exit == nil {
		res.Exit = NewState()
	}
	return res
}

// declaredTypes maps every typed name visible in fn to its element
// type: contract state variables, parameters, named returns and the
// anonymous return slot.
func declaredTypes(contract *solidity.Contract, fn *solidity.Function) map[string]solidity.ElemType {
	types := map[string]solidity.ElemType{}
	for _, sv := range contract.StateVars {
		types[sv.Var.Name] = sv.Var.Type
	}
	for _, p := range fn.Params {
		if p.Name != "" {
			types[p.Name] = p.Type
		}
	}
	for i, r := range fn.Returns {
		if r.Name != "" {
			types[r.Name] = r.Type
		}
		if i == 0 {
			types[retKey] = r.Type
		}
	}
	return types
}

type edge struct {
	to    int
	state State
}

// successorStates splits the out state across a node's successors,
// refining along branch and loop-header condition edges.
func successorStates(ctx *evalCtx, n *solidity.Node, out State, pathSensitive bool) []edge {
	if n.Cond != nil && pathSensitive && n.TrueSucc >= 0 && n.FalseSucc >= 0 {
		ctx.line = n.Line
		edges := []edge{
			{to: n.TrueSucc, state: refineCond(ctx, out, n.Cond, true)},
			{to: n.FalseSucc, state: refineCond(ctx, out, n.Cond, false)},
		}
		// successors beyond the condition pair (none today) get out as is
		for _, s := range n.Succs {
			if s != n.TrueSucc && s != n.FalseSucc {
				edges = append(edges, edge{to: s, state: out.Clone()})
			}
		}
		return edges
	}
	edges := make([]edge, 0, len(n.Succs))
	for _, s := range n.Succs {
		edges = append(edges, edge{to: s, state: out.Clone()})
	}
	return edges
}

func transferNode(ctx *evalCtx, n *solidity.Node, in State) State {
	if in == nil {
		in = NewState()
	}
	out := in.Clone()
	for _, s := range n.Stmts {
		applyStmt(ctx, out, s)
	}
	return out
}

// reachable reports whether the state describes a feasible path. An
// empty interval on any variable means some refinement was
// unsatisfiable, so the path cannot execute.
func reachable(st State) bool {
	for _, iv := range st {
		if iv.IsBottom() {
			return false
		}
	}
	return true
}

// narrowPass re-evaluates every node's in state from its predecessors
// and narrows loop headers toward the concrete recomputation. The sweep
// runs in allocation order (near program order) with the exit node
// last, recomputing each node's out as soon as its in tightens, so one
// pass pushes recovered precision through a whole chain; back edges see
// the previous pass's value, which the next pass refines.
func narrowPass(ctx *evalCtx, g *solidity.Graph, res *FunctionResult, opts Options) {
	outs := map[int]State{}
	outOf := func(id int) (State, bool) {
		if o, ok := outs[id]; ok {
			return o, true
		}
		in, ok := res.In[id]
		if !ok {
			return nil, false // unreachable node
		}
		o := transferNode(ctx, g.Node(id), in)
		outs[id] = o
		return o, true
	}

	order := make([]int, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID != g.Exit {
			order = append(order, n.ID)
		}
	}
	order = append(order, g.Exit)

	for _, id := range order {
		n := g.Node(id)
		if id == g.Entry {
			continue
		}
		var merged State
		for _, p := range n.Preds {
			out, ok := outOf(p)
			if !ok {
				continue
			}
			pn := g.Node(p)
			st := out
			if pn.Cond != nil && opts.PathSensitivity {
				ctx.line = pn.Line
				st = refineCond(ctx, out, pn.Cond, id == pn.TrueSucc)
			}
			if !reachable(st) {
				continue
			}
			if merged == nil {
				merged = st.Clone()
			} else {
				merged = merged.Join(st)
			}
		}
		if merged == nil {
			continue
		}
		if prev, ok := res.In[id]; ok && n.Kind == solidity.NodeLoopHeader {
			res.In[id] = prev.Narrow(merged)
		} else {
			res.In[id] = merged
		}
		outs[id] = transferNode(ctx, n, res.In[id])
	}
}

// reportPass replays every reachable node once with reporting enabled
// and deduplicates findings by kind, variable and line.
func reportPass(ctx *evalCtx, g *solidity.Graph, res *FunctionResult) {
	seen := map[string]bool{}
	ctx.quiet = false
	ctx.collect = func(v Violation) {
		key := string(v.Kind) + "|" + v.Variable + "|" + itoa(v.Line)
		if seen[key] {
			return
		}
		seen[key] = true
		res.Violations = append(res.Violations, v)
	}
	defer func() {
		ctx.quiet = true
		ctx.collect = nil
	}()

	for _, n := range g.Nodes {
		in, ok := res.In[n.ID]
		if !ok || !reachable(in) {
			continue
		}
		out := transferNode(ctx, n, in)
		if n.Cond != nil {
			// evaluate the condition too so divisions inside it are checked
			ctx.line = n.Line
			evalExpr(ctx, out, n.Cond)
		}
	}
}
