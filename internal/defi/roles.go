// Package defi maps protocol vocabulary onto value roles and the range
// constraints those roles imply. The classifier is purely lexical and
// kept apart from the interval machinery so its heuristics can evolve
// without touching the solver.
package defi

import "strings"

// Role is the protocol meaning attributed to a variable.
type Role string

const (
	RoleNone            Role = ""
	RoleTokenBalance    Role = "token_balance"
	RolePrice           Role = "price"
	RoleLeverage        Role = "leverage"
	RoleFee             Role = "fee"
	RoleLiquidity       Role = "liquidity"
	RoleTimeLock        Role = "time_lock"
	RoleSlippage        Role = "slippage"
	RoleAPY             Role = "apy"
	RoleInterestRate    Role = "interest_rate"
	RoleCollateralRatio Role = "collateral_ratio"
)

// vocab orders matter: more specific tokens first so "collateralratio"
// wins over "ratio" alone.
var vocab = []struct {
	needle     string
	role       Role
	confidence float64
}{
	{"collateral", RoleCollateralRatio, 0.8},
	{"ltv", RoleCollateralRatio, 0.7},
	{"interest", RoleInterestRate, 0.8},
	{"apy", RoleAPY, 0.9},
	{"apr", RoleAPY, 0.8},
	{"slippage", RoleSlippage, 0.9},
	{"timelock", RoleTimeLock, 0.9},
	{"deadline", RoleTimeLock, 0.7},
	{"unlock", RoleTimeLock, 0.6},
	{"leverage", RoleLeverage, 0.9},
	{"liquidity", RoleLiquidity, 0.8},
	{"reserve", RoleLiquidity, 0.7},
	{"price", RolePrice, 0.8},
	{"oracle", RolePrice, 0.6},
	{"rate", RoleInterestRate, 0.5},
	{"fee", RoleFee, 0.8},
	{"balance", RoleTokenBalance, 0.8},
	{"supply", RoleTokenBalance, 0.6},
	{"amount", RoleTokenBalance, 0.4},
}

// Classify attributes a role to a variable name with a confidence in
// (0, 1]. Names with no protocol vocabulary come back as RoleNone.
func Classify(name string) (Role, float64) {
	n := strings.ToLower(strings.TrimSuffix(name, "[]"))
	for _, v := range vocab {
		if strings.Contains(n, v.needle) {
			return v.role, v.confidence
		}
	}
	return RoleNone, 0
}
