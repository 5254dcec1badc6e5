package params

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

var (
	ErrEmptyAmount    = errors.New("empty amount")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrAmountOverflow = errors.New("amount exceeds 256 bits")
)

const zepSuffix = "zep"

// ParseAmount parses a token amount. A bare integer is taken in base units;
// a decimal followed by "zep" (case insensitive, optionally space separated)
// is taken in whole tokens, e.g. "1.5zep" is 1.5 * 10^18 base units.
func ParseAmount(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyAmount
	}
	if strings.HasPrefix(s, "-") {
		return nil, ErrNegativeAmount
	}
	lower := strings.ToLower(s)
	if strings.HasSuffix(lower, zepSuffix) {
		return parseTokens(strings.TrimSpace(lower[:len(lower)-len(zepSuffix)]))
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return toUint256(v)
}

func parseTokens(s string) (*uint256.Int, error) {
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("invalid amount %q", s+zepSuffix)
	}
	if len(frac) > ZEPDecimals {
		return nil, fmt.Errorf("amount %q has more than %d decimals", s+zepSuffix, ZEPDecimals)
	}
	digits := whole + frac + strings.Repeat("0", ZEPDecimals-len(frac))
	if strings.ContainsAny(digits, "+-") {
		return nil, fmt.Errorf("invalid amount %q", s+zepSuffix)
	}
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s+zepSuffix)
	}
	return toUint256(v)
}

func toUint256(v *big.Int) (*uint256.Int, error) {
	if v.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrAmountOverflow
	}
	return out, nil
}

// FormatAmount renders v in whole tokens, trimming trailing zeros.
func FormatAmount(v *uint256.Int) string {
	if v == nil {
		return "0 ZEP"
	}
	s := v.ToBig().String()
	if len(s) <= ZEPDecimals {
		s = strings.Repeat("0", ZEPDecimals-len(s)+1) + s
	}
	whole, frac := s[:len(s)-ZEPDecimals], strings.TrimRight(s[len(s)-ZEPDecimals:], "0")
	if frac == "" {
		return whole + " ZEP"
	}
	return whole + "." + frac + " ZEP"
}
