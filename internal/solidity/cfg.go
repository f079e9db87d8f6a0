package solidity

// Control-flow graph over a function body. Nodes live in an arena
// indexed by ID; edges are ID references, so traversal never recurses
// through the graph itself.

type NodeKind int

const (
	NodeEntry NodeKind = iota
	NodeExit
	NodeBody
	NodeBranch
	NodeLoopHeader
)

// Node is one program point. Body nodes carry straight-line statements;
// branch and loop-header nodes carry a condition and a true/false
// successor pair.
type Node struct {
	ID    int
	Kind  NodeKind
	Stmts []Stmt
	Cond  Expr
	Line  int

	TrueSucc  int // valid for NodeBranch / NodeLoopHeader
	FalseSucc int
	Succs     []int
	Preds     []int
}

type Graph struct {
	Nodes []*Node
	Entry int
	Exit  int
}

func (g *Graph) Node(id int) *Node { return g.Nodes[id] }

// LoopHeaders returns the IDs of loop-header nodes (back-edge targets).
func (g *Graph) LoopHeaders() []int {
	var out []int
	for _, n := range g.Nodes {
		if n.Kind == NodeLoopHeader {
			out = append(out, n.ID)
		}
	}
	return out
}

type cfgBuilder struct {
	g *Graph
}

func (b *cfgBuilder) newNode(kind NodeKind, line int) *Node {
	n := &Node{ID: len(b.g.Nodes), Kind: kind, Line: line, TrueSucc: -1, FalseSucc: -1}
	b.g.Nodes = append(b.g.Nodes, n)
	return n
}

func (b *cfgBuilder) link(from, to *Node) {
	for _, s := range from.Succs {
		if s == to.ID {
			return
		}
	}
	from.Succs = append(from.Succs, to.ID)
	to.Preds = append(to.Preds, from.ID)
}

// BuildCFG lowers a function body to a control-flow graph. Statement
// lists are walked iteratively; if/for/while introduce branch and
// loop-header nodes, everything else accumulates into body nodes.
func BuildCFG(fn *Function) *Graph {
	b := &cfgBuilder{g: &Graph{}}
	entry := b.newNode(NodeEntry, fn.StartLine)
	exit := b.newNode(NodeExit, fn.EndLine)
	b.g.Entry = entry.ID
	b.g.Exit = exit.ID

	last := b.lowerBlock(fn.Body, entry, exit)
	if last != nil {
		b.link(last, exit)
	}
	return b.g
}

// lowerBlock lowers stmts starting after `cur`, returning the node open
// at the end of the block, or nil when control definitely left the
// block (return).
func (b *cfgBuilder) lowerBlock(stmts []Stmt, cur, exit *Node) *Node {
	for _, s := range stmts {
		if cur == nil {
			// unreachable code after return; keep analyzing anyway
			cur = b.newNode(NodeBody, s.Pos())
		}
		switch st := s.(type) {
		case *IfStmt:
			branch := b.newNode(NodeBranch, st.Line)
			branch.Cond = st.Cond
			b.link(cur, branch)

			thenEntry := b.newNode(NodeBody, st.Line)
			b.link(branch, thenEntry)
			branch.TrueSucc = thenEntry.ID
			thenEnd := b.lowerBlock(st.Then, thenEntry, exit)

			elseEntry := b.newNode(NodeBody, st.Line)
			b.link(branch, elseEntry)
			branch.FalseSucc = elseEntry.ID
			elseEnd := b.lowerBlock(st.Else, elseEntry, exit)

			if thenEnd == nil && elseEnd == nil {
				cur = nil
				continue
			}
			join := b.newNode(NodeBody, st.Line)
			if thenEnd != nil {
				b.link(thenEnd, join)
			}
			if elseEnd != nil {
				b.link(elseEnd, join)
			}
			cur = join

		case *ForStmt:
			if st.Init != nil {
				cur.Stmts = append(cur.Stmts, st.Init)
			}
			header := b.newNode(NodeLoopHeader, st.Line)
			header.Cond = st.Cond
			b.link(cur, header)

			bodyEntry := b.newNode(NodeBody, st.Line)
			b.link(header, bodyEntry)
			header.TrueSucc = bodyEntry.ID
			bodyEnd := b.lowerBlock(st.Body, bodyEntry, exit)
			if bodyEnd != nil {
				if st.Post != nil {
					bodyEnd.Stmts = append(bodyEnd.Stmts, st.Post)
				}
				b.link(bodyEnd, header) // back edge
			}

			after := b.newNode(NodeBody, st.Line)
			b.link(header, after)
			header.FalseSucc = after.ID
			cur = after

		case *WhileStmt:
			header := b.newNode(NodeLoopHeader, st.Line)
			header.Cond = st.Cond
			b.link(cur, header)

			bodyEntry := b.newNode(NodeBody, st.Line)
			b.link(header, bodyEntry)
			header.TrueSucc = bodyEntry.ID
			bodyEnd := b.lowerBlock(st.Body, bodyEntry, exit)
			if bodyEnd != nil {
				b.link(bodyEnd, header)
			}

			after := b.newNode(NodeBody, st.Line)
			b.link(header, after)
			header.FalseSucc = after.ID
			cur = after

		case *BlockStmt:
			cur = b.lowerBlock(st.Body, cur, exit)

		case *ReturnStmt:
			cur.Stmts = append(cur.Stmts, st)
			b.link(cur, exit)
			cur = nil

		default:
			cur.Stmts = append(cur.Stmts, s)
		}
	}
	return cur
}
