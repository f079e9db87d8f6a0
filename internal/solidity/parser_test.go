package solidity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenSrc = `
// SPDX-License-Identifier: MIT
pragma solidity ^0.8.0;

contract SimpleToken {
    mapping(address => uint256) public balances;
    uint256 public totalSupply;
    uint8 public constant decimals = 18;

    event Transfer(address indexed from, address indexed to, uint256 value);

    function transfer(address to, uint256 amount) public returns (bool) {
        require(balances[msg.sender] >= amount, "insufficient");
        balances[msg.sender] -= amount;
        balances[to] += amount;
        emit Transfer(msg.sender, to, amount);
        return true;
    }

    function mint(uint256 amount) internal {
        totalSupply += amount;
        balances[msg.sender] += amount;
    }
}
`

func TestParseContract(t *testing.T) {
	unit := Parse("token.sol", tokenSrc)
	require.Len(t, unit.Contracts, 1)

	c := unit.Contracts[0]
	assert.Equal(t, "SimpleToken", c.Name)
	assert.Equal(t, "contract", c.Kind)

	require.Len(t, c.StateVars, 3)
	assert.Equal(t, "balances", c.StateVars[0].Var.Name)
	assert.Equal(t, "totalSupply", c.StateVars[1].Var.Name)
	assert.Equal(t, KindUint, c.StateVars[1].Var.Type.Kind)
	assert.Equal(t, 256, c.StateVars[1].Var.Type.Bits)
	assert.True(t, c.StateVars[2].Constant)
	assert.Equal(t, 8, c.StateVars[2].Var.Type.Bits)

	require.Len(t, c.Functions, 2)
	fn := c.Functions[0]
	assert.Equal(t, "transfer", fn.Name)
	assert.Equal(t, "public", fn.Visibility)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, KindAddress, fn.Params[0].Type.Kind)
	assert.Equal(t, "amount", fn.Params[1].Name)
	require.Len(t, fn.Returns, 1)
	assert.Equal(t, KindBool, fn.Returns[0].Type.Kind)
	assert.True(t, fn.HasBody)

	assert.Equal(t, "internal", c.Functions[1].Visibility)
}

func TestParseStatements(t *testing.T) {
	unit := Parse("token.sol", tokenSrc)
	fn := unit.Contracts[0].Functions[0]

	require.GreaterOrEqual(t, len(fn.Body), 5)
	req, ok := fn.Body[0].(*RequireStmt)
	require.True(t, ok)
	cmp, ok := req.Cond.(*Binary)
	require.True(t, ok)
	assert.Equal(t, OpGe, cmp.Op)

	sub, ok := fn.Body[1].(*AssignStmt)
	require.True(t, ok)
	assert.Equal(t, "-=", sub.Op)
	idx, ok := sub.Target.(*Index)
	require.True(t, ok)
	assert.Equal(t, "balances", idx.X.(*Ident).Name)

	// emit degrades to an unmodeled statement
	_, ok = fn.Body[3].(*UnknownStmt)
	assert.True(t, ok)

	ret, ok := fn.Body[4].(*ReturnStmt)
	require.True(t, ok)
	lit, ok := ret.Value.(*Literal)
	require.True(t, ok)
	assert.Equal(t, int64(1), lit.Value.Int64())
}

func TestParseExprPrecedence(t *testing.T) {
	src := `contract C { function f(uint256 a, uint256 b) public pure returns (uint256) { return a + b * 2; } }`
	unit := Parse("c.sol", src)
	fn := unit.Contracts[0].Functions[0]
	ret := fn.Body[0].(*ReturnStmt)
	add, ok := ret.Value.(*Binary)
	require.True(t, ok)
	assert.Equal(t, OpAdd, add.Op)
	mul, ok := add.Right.(*Binary)
	require.True(t, ok)
	assert.Equal(t, OpMul, mul.Op)
}

func TestParseNumberForms(t *testing.T) {
	assert.Equal(t, "1000000", parseNumber("1_000_000").String())
	assert.Equal(t, "255", parseNumber("0xff").String())
	assert.Equal(t, "2000000000000000000", parseNumber("2e18").String())
	assert.Nil(t, parseNumber("2e999"))
}

func TestParseTolerance(t *testing.T) {
	src := `
contract Odd {
    function f() public {
        assembly { let x := 1 }
        uint256 y = 2;
    }
}`
	unit := Parse("odd.sol", src)
	require.Len(t, unit.Contracts, 1)
	fn := unit.Contracts[0].Functions[0]
	require.Len(t, fn.Body, 2)
	_, ok := fn.Body[0].(*UnknownStmt)
	assert.True(t, ok)
	decl, ok := fn.Body[1].(*DeclStmt)
	require.True(t, ok)
	assert.Equal(t, "y", decl.Var.Name)
}

func TestParseIncDec(t *testing.T) {
	src := `contract C { function f() public { uint256 i = 0; i++; } }`
	unit := Parse("c.sol", src)
	fn := unit.Contracts[0].Functions[0]
	inc, ok := fn.Body[1].(*AssignStmt)
	require.True(t, ok)
	assert.Equal(t, "+=", inc.Op)
}
