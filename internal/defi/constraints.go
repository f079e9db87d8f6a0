package defi

import (
	"math/big"
	"strings"

	"github.com/xab-mack/solrange/internal/interval"
	"github.com/xab-mack/solrange/internal/solidity"
)

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

var zero = new(big.Int)

// expected holds the plausible range per role. Values outside these
// bounds are not impossible on chain, just suspicious for the role.
var expected = map[Role]interval.Interval{
	RoleTokenBalance:    interval.TypeDomain(256, false),
	RolePrice:           interval.NewBig(zero, pow10(36)),
	RoleLeverage:        interval.NewInt64(1, 100),
	RoleFee:             interval.NewBig(zero, pow10(18)),
	RoleLiquidity:       interval.TypeDomain(256, false),
	RoleTimeLock:        interval.TypeDomain(64, false),
	RoleSlippage:        interval.NewBig(zero, pow10(18)),
	RoleAPY:             interval.NewBig(zero, pow10(20)),
	RoleInterestRate:    interval.NewBig(zero, pow10(20)),
	RoleCollateralRatio: interval.NewBig(zero, pow10(20)),
}

// Expected returns the plausible range for a role.
func Expected(role Role) (interval.Interval, bool) {
	iv, ok := expected[role]
	return iv, ok
}

// Violates reports whether iv can leave the role's plausible range.
// The returned interval is the expected range for the role.
func Violates(role Role, iv interval.Interval) (bool, interval.Interval) {
	want, ok := expected[role]
	if !ok || iv.IsBottom() {
		return false, want
	}
	return !want.Contains(iv), want
}

// contract name vocabulary that marks a protocol contract
var contractVocab = []string{
	"vault", "pool", "swap", "lend", "borrow", "stake", "farm",
	"token", "defi", "amm", "dex", "yield", "flash", "oracle",
	"lottery", "auction", "market",
}

// IsProtocolContract decides whether the DeFi constraint layer applies
// to a contract: protocol vocabulary in the contract name or its bases,
// or enough classified state to make role checks meaningful.
func IsProtocolContract(c *solidity.Contract) bool {
	name := strings.ToLower(c.Name)
	for _, v := range contractVocab {
		if strings.Contains(name, v) {
			return true
		}
	}
	for _, b := range c.Base {
		base := strings.ToLower(b)
		if strings.Contains(base, "erc20") || strings.Contains(base, "erc721") {
			return true
		}
		for _, v := range contractVocab {
			if strings.Contains(base, v) {
				return true
			}
		}
	}
	classified := 0
	for _, sv := range c.StateVars {
		if role, conf := Classify(sv.Var.Name); role != RoleNone && conf >= 0.5 {
			classified++
		}
	}
	return classified >= 2
}
