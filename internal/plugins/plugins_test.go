package plugins

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xab-mack/solrange/internal/analysis"
	"github.com/xab-mack/solrange/internal/model"
	"github.com/xab-mack/solrange/internal/solidity"
)

func project(t *testing.T, src string) *analysis.ProjectContext {
	t.Helper()
	unit := solidity.Parse("test.sol", src)
	require.NotEmpty(t, unit.Contracts)
	res := analysis.NewAnalyzer(analysis.DefaultOptions()).AnalyzeUnit(unit)
	return &analysis.ProjectContext{
		RootPath:     ".",
		Files:        []string{"test.sol"},
		FileContents: map[string]string{"test.sol": src},
		Units:        map[string]*solidity.Unit{"test.sol": unit},
		Results:      res,
	}
}

func findingsByRule(fs []model.Finding, rule string) []model.Finding {
	var out []model.Finding
	for _, f := range fs {
		if f.RuleID == rule {
			out = append(out, f)
		}
	}
	return out
}

func TestIntervalAnomaliesDetector(t *testing.T) {
	pctx := project(t, `
contract Counter {
    function increment(uint8 x) public pure returns (uint8) {
        return x + 10;
    }
}`)
	d := &intervalAnomalies{}
	fs, err := d.Analyze(context.Background(), pctx, model.ScanRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, fs)

	f := fs[0]
	assert.Equal(t, "SOL-INTERVAL-ANOMALY", f.RuleID)
	assert.Equal(t, "Counter", f.Contract)
	assert.Equal(t, "increment", f.Function)
	assert.NotEmpty(t, f.Interval)
	assert.NotEmpty(t, f.Fingerprint)
}

func TestIntervalAnomaliesSuppressesLowConfidenceNotes(t *testing.T) {
	pctx := project(t, `
contract Odd {
    function f(uint256 a) public returns (uint256) {
        assembly { let x := 1 }
        return a;
    }
}`)
	d := &intervalAnomalies{}
	fs, err := d.Analyze(context.Background(), pctx, model.ScanRequest{})
	require.NoError(t, err)
	assert.Empty(t, fs)
}

func TestDefiRangeDetector(t *testing.T) {
	pctx := project(t, `
contract LeveragePool {
    uint256 public leverage;
    function crank() public {
        leverage = 500;
    }
    function sane() public {
        leverage = 10;
    }
}`)
	d := &defiRangeViolation{}
	fs, err := d.Analyze(context.Background(), pctx, model.ScanRequest{})
	require.NoError(t, err)
	require.Len(t, fs, 1)
	assert.Equal(t, "SOL-DEFI-RANGE", fs[0].RuleID)
	assert.Equal(t, "crank", fs[0].Function)
	assert.Equal(t, "leverage", fs[0].Variable)
	assert.Equal(t, "[500, 500]", fs[0].Interval)
}

func TestDefiRangeSkipsNonProtocolContracts(t *testing.T) {
	pctx := project(t, `
contract Greeter {
    uint256 public leverage;
    function crank() public {
        leverage = 500;
    }
}`)
	d := &defiRangeViolation{}
	fs, err := d.Analyze(context.Background(), pctx, model.ScanRequest{})
	require.NoError(t, err)
	assert.Empty(t, fs)
}

func TestFlashloanCallbackUnvalidated(t *testing.T) {
	pctx := project(t, `
contract Receiver {
    mapping(address => uint256) public balances;
    function executeOperation(address asset, uint256 amount, uint256 premium, address initiator, bytes calldata params) external returns (bool) {
        balances[initiator] += amount;
        return true;
    }
}`)
	d := &flashloanCallback{}
	fs, err := d.Analyze(context.Background(), pctx, model.ScanRequest{})
	require.NoError(t, err)

	byRule := findingsByRule(fs, "SOL-FLASHLOAN-CALLBACK")
	require.NotEmpty(t, byRule)
	// one for the unvalidated state write, one for the missing guard
	assert.Len(t, byRule, 2)
	assert.Equal(t, "executeOperation", byRule[0].Function)
}

func TestFlashloanCallbackValidated(t *testing.T) {
	pctx := project(t, `
contract Receiver {
    address public pool;
    mapping(address => uint256) public balances;
    function executeOperation(address asset, uint256 amount, uint256 premium, address initiator, bytes calldata params) external nonReentrant returns (bool) {
        require(msg.sender == pool);
        balances[initiator] += amount;
        return true;
    }
}`)
	d := &flashloanCallback{}
	fs, err := d.Analyze(context.Background(), pctx, model.ScanRequest{})
	require.NoError(t, err)
	assert.Empty(t, fs)
}

func TestFlashloanCallbackCallAfterBalanceWrite(t *testing.T) {
	pctx := project(t, `
contract Receiver {
    address public pool;
    mapping(address => uint256) public balances;
    function executeOperation(address asset, uint256 amount, uint256 premium, address initiator, bytes calldata params) external nonReentrant returns (bool) {
        require(msg.sender == pool);
        balances[initiator] += amount;
        asset.safeTransfer(initiator, premium);
        return true;
    }
}`)
	d := &flashloanCallback{}
	fs, err := d.Analyze(context.Background(), pctx, model.ScanRequest{})
	require.NoError(t, err)
	require.Len(t, fs, 1)
	assert.Contains(t, fs[0].Message, "external call after updating balances")
}

func TestUnboundedFlashloanBothPredicatesMissing(t *testing.T) {
	pctx := project(t, `
contract LendingPool {
    function flashLoan(address to, uint256 amount) external {
    }
}`)
	d := &unboundedFlashloan{}
	fs, err := d.Analyze(context.Background(), pctx, model.ScanRequest{})
	require.NoError(t, err)
	// one finding per missing predicate: unbounded amount, missing fee
	require.Len(t, fs, 2)
	assert.Equal(t, "SOL-UNBOUNDED-FLASHLOAN", fs[0].RuleID)
	assert.Equal(t, "amount", fs[0].Variable)
	assert.Contains(t, fs[1].Message, "fee")
}

func TestUnboundedFlashloanBoundedAgainstStoredMax(t *testing.T) {
	pctx := project(t, `
contract LendingPool {
    uint256 public maxLoan;
    uint256 public feeBps;
    function flashLoan(address to, uint256 amount) external {
        require(amount <= maxLoan);
        uint256 fee = amount * feeBps / 10000;
    }
}`)
	d := &unboundedFlashloan{}
	fs, err := d.Analyze(context.Background(), pctx, model.ScanRequest{})
	require.NoError(t, err)
	assert.Empty(t, fs)
}

func TestUnboundedFlashloanOnlyFeeMissing(t *testing.T) {
	pctx := project(t, `
contract LendingPool {
    function flashLoan(address to, uint256 amount) external {
        require(amount <= 1000000);
    }
}`)
	d := &unboundedFlashloan{}
	fs, err := d.Analyze(context.Background(), pctx, model.ScanRequest{})
	require.NoError(t, err)
	require.Len(t, fs, 1)
	assert.Contains(t, fs[0].Message, "fee")
}

func TestUncheckedBalanceChange(t *testing.T) {
	pctx := project(t, `
contract Vault {
    function sweep(address token, address to, uint256 amount) public {
        token.transfer(to, amount);
    }
    function safeSweep(address token, address to, uint256 amount) public {
        uint256 held = token.balanceOf(address(this));
        token.transfer(to, amount);
        uint256 left = token.balanceOf(address(this));
        require(held - left == amount);
    }
}`)
	d := &uncheckedBalanceChange{}
	fs, err := d.Analyze(context.Background(), pctx, model.ScanRequest{})
	require.NoError(t, err)
	require.Len(t, fs, 1)
	assert.Equal(t, "sweep", fs[0].Function)
	assert.Equal(t, "token", fs[0].Variable)
	assert.Contains(t, fs[0].Message, "before the transfer")
}

func TestRegistryRunsAllDetectors(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterBuiltin()
	require.Len(t, reg.Detectors(), 5)

	pctx := project(t, `
contract Counter {
    function increment(uint8 x) public pure returns (uint8) {
        return x + 10;
    }
}`)
	fs := reg.Run(context.Background(), pctx, model.ScanRequest{Path: "."})
	assert.NotEmpty(t, findingsByRule(fs, "SOL-INTERVAL-ANOMALY"))
}
