package defi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xab-mack/solrange/internal/interval"
	"github.com/xab-mack/solrange/internal/solidity"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		role Role
	}{
		{"balances", RoleTokenBalance},
		{"balances[]", RoleTokenBalance},
		{"totalSupply", RoleTokenBalance},
		{"tokenPrice", RolePrice},
		{"maxLeverage", RoleLeverage},
		{"swapFee", RoleFee},
		{"liquidityPool", RoleLiquidity},
		{"unlockTime", RoleTimeLock},
		{"slippageBps", RoleSlippage},
		{"currentApy", RoleAPY},
		{"interestRate", RoleInterestRate},
		{"collateralRatio", RoleCollateralRatio},
		{"owner", RoleNone},
	}
	for _, c := range cases {
		role, conf := Classify(c.name)
		assert.Equal(t, c.role, role, c.name)
		if c.role != RoleNone {
			assert.Greater(t, conf, 0.0, c.name)
		}
	}
}

func TestSpecificVocabularyWins(t *testing.T) {
	// "collateralRatio" must classify as collateral, not as a bare rate
	role, _ := Classify("collateralRatio")
	assert.Equal(t, RoleCollateralRatio, role)
	// "interestRate" as interest, despite containing "rate"
	role, _ = Classify("interestRate")
	assert.Equal(t, RoleInterestRate, role)
}

func TestViolates(t *testing.T) {
	bad, want := Violates(RoleLeverage, interval.NewInt64(500, 500))
	assert.True(t, bad)
	assert.True(t, interval.NewInt64(1, 100).Eq(want))

	bad, _ = Violates(RoleLeverage, interval.NewInt64(2, 50))
	assert.False(t, bad)

	// bottom never violates: the code path is unreachable
	bad, _ = Violates(RolePrice, interval.Bottom())
	assert.False(t, bad)

	// unknown role never violates
	bad, _ = Violates(RoleNone, interval.NewInt64(0, 1))
	assert.False(t, bad)
}

func TestIsProtocolContract(t *testing.T) {
	unit := solidity.Parse("v.sol", `
contract LendingPool {
    function f() public {}
}
contract Greeter {
    string public greeting;
    function greet() public {}
}
contract Ledger {
    uint256 public totalSupply;
    mapping(address => uint256) public balances;
}
contract Child is ERC20 {
}`)
	require.Len(t, unit.Contracts, 4)
	assert.True(t, IsProtocolContract(unit.Contracts[0]), "name vocabulary")
	assert.False(t, IsProtocolContract(unit.Contracts[1]), "no protocol signal")
	assert.True(t, IsProtocolContract(unit.Contracts[2]), "classified state vars")
	assert.True(t, IsProtocolContract(unit.Contracts[3]), "ERC20 base")
}
