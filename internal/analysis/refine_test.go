package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xab-mack/solrange/internal/interval"
)

func exitInterval(t *testing.T, src, contract, fn, name string) interval.Interval {
	t.Helper()
	res := analyze(t, src)
	fr := res.Function(contract, fn)
	require.NotNil(t, fr)
	iv, ok := fr.Exit[name]
	require.True(t, ok, "variable %s not tracked at exit", name)
	return iv
}

func TestRefineConjunction(t *testing.T) {
	iv := exitInterval(t, `
contract C {
    function f(uint256 a) public pure {
        require(a >= 1 && a <= 10);
    }
}`, "C", "f", "a")
	assertIv(t, interval.NewInt64(1, 10), iv)
}

func TestRefineNegation(t *testing.T) {
	iv := exitInterval(t, `
contract C {
    function f(uint256 a) public pure {
        require(!(a > 10));
    }
}`, "C", "f", "a")
	assertIv(t, interval.NewInt64(0, 10), iv)
}

func TestRefineEquality(t *testing.T) {
	iv := exitInterval(t, `
contract C {
    function f(uint256 a) public pure {
        require(a == 7);
    }
}`, "C", "f", "a")
	assertIv(t, interval.NewInt64(7, 7), iv)
}

func TestRefineDisjunctionFalseBranch(t *testing.T) {
	// else of (a < 5 || a > 10) pins a into [5, 10]
	iv := exitInterval(t, `
contract C {
    function f(uint256 a) public pure returns (uint256) {
        if (a < 5 || a > 10) {
            return 0;
        }
        return a;
    }
}`, "C", "f", "<return>")
	assertIv(t, interval.NewInt64(0, 10), iv)
}

func TestRefineAgainstVariableBound(t *testing.T) {
	iv := exitInterval(t, `
contract C {
    function f(uint256 a, uint256 cap) public pure {
        require(cap <= 100);
        require(a < cap);
    }
}`, "C", "f", "a")
	assertIv(t, interval.NewInt64(0, 99), iv)
}
