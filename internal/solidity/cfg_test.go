package solidity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFn(t *testing.T, src string) *Graph {
	t.Helper()
	unit := Parse("t.sol", src)
	require.Len(t, unit.Contracts, 1)
	require.NotEmpty(t, unit.Contracts[0].Functions)
	return BuildCFG(unit.Contracts[0].Functions[0])
}

func TestCFGStraightLine(t *testing.T) {
	g := buildFn(t, `contract C { function f() public { uint256 a = 1; uint256 b = a + 2; } }`)
	assert.Empty(t, g.LoopHeaders())

	entry := g.Node(g.Entry)
	require.Len(t, entry.Succs, 1)
	assert.Equal(t, g.Exit, entry.Succs[0])
	assert.Len(t, entry.Stmts, 2)
}

func TestCFGBranchJoin(t *testing.T) {
	g := buildFn(t, `
contract C {
    function f(uint256 x) public pure returns (uint256) {
        uint256 y = 0;
        if (x > 10) { y = 1; } else { y = 2; }
        return y;
    }
}`)
	var branch *Node
	for _, n := range g.Nodes {
		if n.Kind == NodeBranch {
			branch = n
		}
	}
	require.NotNil(t, branch)
	require.NotNil(t, branch.Cond)
	assert.NotEqual(t, -1, branch.TrueSucc)
	assert.NotEqual(t, -1, branch.FalseSucc)
	assert.NotEqual(t, branch.TrueSucc, branch.FalseSucc)

	// both arms converge before the exit
	thenEnd := g.Node(branch.TrueSucc)
	elseEnd := g.Node(branch.FalseSucc)
	require.Len(t, thenEnd.Succs, 1)
	require.Len(t, elseEnd.Succs, 1)
	assert.Equal(t, thenEnd.Succs[0], elseEnd.Succs[0])
}

func TestCFGLoopBackEdge(t *testing.T) {
	g := buildFn(t, `
contract C {
    function f() public pure {
        for (uint256 i = 0; i < 10; i++) { }
    }
}`)
	headers := g.LoopHeaders()
	require.Len(t, headers, 1)
	header := g.Node(headers[0])
	require.NotNil(t, header.Cond)

	// the loop body must point back at the header
	backEdge := false
	for _, p := range header.Preds {
		for _, s := range g.Node(p).Succs {
			if s == header.ID && g.Node(p).ID != g.Entry {
				backEdge = true
			}
		}
	}
	assert.True(t, backEdge)
	assert.NotEqual(t, -1, header.FalseSucc)
}

func TestCFGReturnLinksExit(t *testing.T) {
	g := buildFn(t, `
contract C {
    function f(bool c) public pure returns (uint256) {
        if (c) { return 1; }
        return 2;
    }
}`)
	// every node carrying a return links straight to exit
	for _, n := range g.Nodes {
		for _, s := range n.Stmts {
			if _, ok := s.(*ReturnStmt); ok {
				found := false
				for _, succ := range n.Succs {
					if succ == g.Exit {
						found = true
					}
				}
				assert.True(t, found, "return node %d must link to exit", n.ID)
			}
		}
	}
}

func TestWalkVisitsNested(t *testing.T) {
	unit := Parse("t.sol", `
contract C {
    function f(uint256 x) public {
        if (x > 0) {
            for (uint256 i = 0; i < x; i++) {
                require(i != 5);
            }
        }
    }
}`)
	fn := unit.Contracts[0].Functions[0]
	requires := 0
	Walk(fn.Body, func(s Stmt) {
		if _, ok := s.(*RequireStmt); ok {
			requires++
		}
	})
	assert.Equal(t, 1, requires)
}
